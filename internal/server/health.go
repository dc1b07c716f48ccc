package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// isoMillis matches the timestamp format browsers produce for Date.toISOString.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// HealthResponse identifies the service.
type HealthResponse struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// HealthCheck handles GET /api
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router / [get]
func (s *Server) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Message:   "Blog API is running!",
		Timestamp: time.Now().UTC().Format(isoMillis),
	})
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now().UTC(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if s.store == nil {
		dbStatus = "unavailable"
	} else if err := s.store.Ping(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	// Redis is optional: without it the API runs uncached.
	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now().UTC(),
	})
}

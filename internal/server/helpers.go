package server

import (
	"errors"
	"log/slog"
	"strings"

	"inkwell/internal/config"
	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/samber/lo"
)

// respondError writes the JSON error body for err. Unclassified errors become
// InternalError; their cause is only shown outside production.
func (s *Server) respondError(c *fiber.Ctx, err error) error {
	appErr := models.AsAppError(err)
	if appErr.Code == models.CodeInternal {
		s.logger.ErrorContext(c.UserContext(), "request error",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("error", err.Error()),
		)
	}
	return models.RespondWithError(c, appErr.Status(), appErr, !s.config.IsProduction())
}

// errorHandler handles errors that reach fiber: unmatched routes, recovered
// panics and anything a handler returned instead of writing a response.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		if fe.Code == fiber.StatusNotFound {
			return s.respondError(c, models.NewRouteNotFoundError())
		}
		return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
	}
	return s.respondError(c, err)
}

// corsConfig builds the CORS policy from the configured allow-list. An empty
// list admits no cross-origin callers; "*" admits all, without credentials.
func corsConfig(cfg *config.Config) cors.Config {
	conf := cors.Config{
		AllowMethods: "GET,POST,PUT,DELETE",
		AllowHeaders: "Origin, Content-Type, Accept",
		MaxAge:       86400, // 24 hours
	}

	origins := cfg.Origins()
	switch {
	case lo.Contains(origins, "*"):
		conf.AllowOrigins = "*"
	case len(origins) == 0:
		conf.AllowOriginsFunc = func(string) bool { return false }
	default:
		conf.AllowOrigins = strings.Join(origins, ",")
		conf.AllowCredentials = true
	}
	return conf
}

// Package bootstrap builds the runtime dependencies shared by the commands.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/observability"
	"inkwell/internal/repository"

	"github.com/redis/go-redis/v9"
)

// Version is reported in traces.
const Version = "1.0.0"

// Options control runtime initialization behavior.
type Options struct {
	// Migrate prepares the schema. It defaults to on outside production.
	Migrate *bool
	// Tracing enables the tracer provider configured in cfg.
	Tracing bool
}

// Runtime holds the connections a command needs.
type Runtime struct {
	Store *database.Handle
	Redis *redis.Client

	shutdownTracing func(context.Context) error
}

// InitRuntime connects the store and Redis. Redis is optional: when it is
// unreachable the runtime continues without it.
func InitRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (*Runtime, error) {
	rt := &Runtime{shutdownTracing: func(context.Context) error { return nil }}

	if opts.Tracing {
		shutdown, err := observability.InitTracing(observability.TracingConfig{
			ServiceName:    observability.ServiceName,
			ServiceVersion: Version,
			Environment:    cfg.Env,
			Enabled:        cfg.TracingEnabled,
			Exporter:       cfg.TracingExporter,
			OTLPEndpoint:   cfg.OTLPEndpoint,
			SamplerRatio:   cfg.TracingSampleRatio,
		})
		if err != nil {
			return nil, fmt.Errorf("tracing init failed: %w", err)
		}
		rt.shutdownTracing = shutdown
	}

	store, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	rt.Store = store

	migrate := !cfg.IsProduction()
	if opts.Migrate != nil {
		migrate = *opts.Migrate
	}
	if migrate {
		if err := repository.Migrate(ctx, store); err != nil {
			_ = store.Close(ctx)
			return nil, err
		}
		logger.Info("Database schema ready", slog.String("driver", string(store.Driver)))
	}

	rdb, err := cache.NewRedisClient(ctx, cfg.RedisURL)
	switch {
	case err != nil:
		logger.Warn("Redis unavailable, continuing without cache", slog.String("error", err.Error()))
	case rdb == nil:
		logger.Info("Redis not configured, caching disabled")
	default:
		rt.Redis = rdb
	}

	logger.Info("Connected to database", slog.String("driver", string(store.Driver)))
	return rt, nil
}

// Close releases the runtime's connections and flushes traces.
func (r *Runtime) Close(ctx context.Context) error {
	var errs []error
	if r.Store != nil {
		if err := r.Store.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if r.Redis != nil {
		if err := r.Redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := r.ShutdownTracing(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ShutdownTracing flushes pending spans.
func (r *Runtime) ShutdownTracing(ctx context.Context) error {
	return r.shutdownTracing(ctx)
}

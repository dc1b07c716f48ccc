// Command migrate applies the post schema to the configured store.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return fmt.Errorf("usage: go run ./cmd/migrate/main.go <up|status>")
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := observability.NewLogger(cfg.Env, cfg.LogLevel)

	ctx := context.Background()
	h, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = h.Close(ctx) }()

	switch strings.ToLower(strings.TrimSpace(flag.Arg(0))) {
	case "up":
		if err := repository.Migrate(ctx, h); err != nil {
			return err
		}
		log.Printf("schema applied (driver=%s)", h.Driver)
	case "status":
		if err := h.Ping(ctx); err != nil {
			return fmt.Errorf("store unreachable: %w", err)
		}
		log.Printf("store reachable (driver=%s)", h.Driver)
	default:
		return usage()
	}
	return nil
}

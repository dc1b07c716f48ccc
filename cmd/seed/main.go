// Command seed fills a development store with fake posts.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"inkwell/internal/bootstrap"
	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
	"inkwell/internal/seed"
)

func main() {
	// Parse command line flags
	numPosts := flag.Int("posts", 20, "Number of posts to create")
	shouldClean := flag.Bool("clean", false, "Delete all posts before seeding")
	maxDays := flag.Int("days", 90, "Spread createdAt over this many past days")
	randSeed := flag.Int64("seed", 0, "Random seed (0 = random)")
	flag.Parse()

	log.Println("Database Seeder")
	log.Printf("Target: %d posts, clean=%v\n", *numPosts, *shouldClean)

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatalf("Refusing to seed a production store (APP_ENV=%s)", cfg.Env)
	}

	logger := observability.NewLogger(cfg.Env, cfg.LogLevel)
	ctx := context.Background()

	on := true
	rt, err := bootstrap.InitRuntime(ctx, cfg, logger, bootstrap.Options{Migrate: &on})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = rt.Close(ctx) }()

	repo, err := repository.NewPostRepository(rt.Store, logger)
	if err != nil {
		_ = rt.Close(ctx)
		log.Fatalf("Failed to open post repository: %v", err)
	}

	res, err := seed.Seed(ctx, repo, seed.Options{
		NumPosts:    *numPosts,
		ShouldClean: *shouldClean,
		MaxDays:     *maxDays,
		RandSeed:    *randSeed,
	}, logger)
	if err != nil {
		_ = rt.Close(ctx)
		log.Fatalf("Seeding failed: %v", err)
	}

	// A cached list would hide the new posts until it expires.
	cache.New(rt.Redis, time.Duration(cfg.CacheTTLSeconds)*time.Second, logger).InvalidatePostList(ctx)

	log.Printf("Done: removed %d, created %d posts", res.Removed, len(res.Created))
}

// Package seed provides helpers to create demo posts in a development store.
// These helpers are intended for development and testing only.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
)

// Options configuration for the seeder
type Options struct {
	NumPosts    int
	ShouldClean bool
	// MaxDays bounds how far back createdAt is spread. Defaults to 90.
	MaxDays int
	// RandSeed makes output reproducible. Zero picks a random seed.
	RandSeed int64
	// EditedRatio is the share of posts that get a later revision. Defaults to 0.3.
	EditedRatio float64
}

// Result reports what a seeding run did.
type Result struct {
	Removed int64
	Created []*models.Post
}

// Factory builds posts and persists them through a repository.
type Factory struct {
	repo  repository.PostRepository
	faker *gofakeit.Faker
	now   func() time.Time
	opts  Options
}

// NewFactory creates a new Factory bound to repo.
func NewFactory(repo repository.PostRepository, opts Options) *Factory {
	if opts.MaxDays <= 0 {
		opts.MaxDays = 90
	}
	if opts.EditedRatio <= 0 {
		opts.EditedRatio = 0.3
	}
	return &Factory{
		repo:  repo,
		faker: gofakeit.New(opts.RandSeed),
		now:   time.Now,
		opts:  opts,
	}
}

// BuildPost constructs a post with fake content and a realistic createdAt
// spread, without persisting it.
func (f *Factory) BuildPost(overrides ...func(*models.Post)) (*models.Post, error) {
	now := f.now()
	back := time.Duration(f.faker.IntRange(0, f.opts.MaxDays-1))*24*time.Hour +
		time.Duration(f.faker.IntRange(0, 23))*time.Hour +
		time.Duration(f.faker.IntRange(1, 59))*time.Minute
	createdAt := now.Add(-back)

	post, err := models.NewPost(f.faker.Sentence(f.faker.IntRange(3, 8)), f.faker.Paragraph(f.faker.IntRange(1, 3), 4, 12, "\n\n"), createdAt)
	if err != nil {
		return nil, err
	}

	if f.faker.Float64Range(0, 1) < f.opts.EditedRatio {
		editedAt := createdAt.Add(time.Duration(f.faker.IntRange(1, int(back/time.Minute))) * time.Minute)
		if err := post.Revise(post.Title, f.faker.Paragraph(1, 4, 12, "\n\n"), editedAt); err != nil {
			return nil, err
		}
	}

	for _, override := range overrides {
		override(post)
	}
	return post, nil
}

// CreatePost builds and persists one post.
func (f *Factory) CreatePost(ctx context.Context, overrides ...func(*models.Post)) (*models.Post, error) {
	post, err := f.BuildPost(overrides...)
	if err != nil {
		return nil, err
	}
	if err := f.repo.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return post, nil
}

// Seed optionally clears the store, then creates opts.NumPosts posts.
func Seed(ctx context.Context, repo repository.PostRepository, opts Options, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	res := &Result{}

	if opts.ShouldClean {
		n, err := repo.DeleteAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("clear posts: %w", err)
		}
		res.Removed = n
		logger.Info("Cleared posts", slog.Int64("removed", n))
	}

	f := NewFactory(repo, opts)
	for i := 0; i < opts.NumPosts; i++ {
		post, err := f.CreatePost(ctx)
		if err != nil {
			return res, err
		}
		res.Created = append(res.Created, post)
	}

	logger.Info("Seeded posts", slog.Int("created", len(res.Created)))
	return res, nil
}

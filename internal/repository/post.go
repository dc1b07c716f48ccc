// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"inkwell/internal/database"
	"inkwell/internal/models"
)

// postsCollection names the collection (or table) holding posts.
const postsCollection = "posts"

// PostRepository defines the interface for post data operations
type PostRepository interface {
	// Create persists post and assigns its ID.
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id string) (*models.Post, error)
	// List returns every post, newest first.
	List(ctx context.Context) ([]*models.Post, error)
	// Update overwrites title, content and updatedAt of the post with post.ID.
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id string) error
	// DeleteAll removes every post and reports how many were removed.
	DeleteAll(ctx context.Context) (int64, error)
}

// NewPostRepository returns the repository matching the handle's driver.
func NewPostRepository(h *database.Handle, logger *slog.Logger) (PostRepository, error) {
	switch {
	case h == nil:
		return nil, errors.New("database handle is nil")
	case h.MongoDB != nil:
		return NewMongoPostRepository(h.MongoDB, logger), nil
	case h.SQL != nil:
		return NewGormPostRepository(h.SQL, logger), nil
	default:
		return nil, fmt.Errorf("database handle for driver %q is not connected", h.Driver)
	}
}

// Migrate prepares the schema: a table for SQL stores, an index for MongoDB.
func Migrate(ctx context.Context, h *database.Handle) error {
	switch {
	case h.MongoDB != nil:
		return migrateMongo(ctx, h.MongoDB)
	case h.SQL != nil:
		if err := h.SQL.WithContext(ctx).AutoMigrate(&postRecord{}); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		return nil
	default:
		return errors.New("database handle is not connected")
	}
}

func errPostNotFound() error {
	return models.NewNotFoundError("Post")
}

// Package service holds the post use cases between the HTTP layer and the store.
package service

import (
	"context"
	"log/slog"
	"time"

	"inkwell/internal/cache"
	"inkwell/internal/models"
	"inkwell/internal/notifications"
	"inkwell/internal/repository"
)

type PostService struct {
	postRepo repository.PostRepository
	cache    *cache.Cache
	notifier *notifications.Notifier
	logger   *slog.Logger
	now      func() time.Time
}

type CreatePostInput struct {
	Title   string
	Content string
}

type UpdatePostInput struct {
	ID      string
	Title   string
	Content string
}

// Option customizes a PostService.
type Option func(*PostService)

// WithClock replaces the wall clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *PostService) { s.now = now }
}

// NewPostService builds the service. postCache and notifier may be nil.
func NewPostService(
	postRepo repository.PostRepository,
	postCache *cache.Cache,
	notifier *notifications.Notifier,
	logger *slog.Logger,
	opts ...Option,
) *PostService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &PostService{
		postRepo: postRepo,
		cache:    postCache,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListPosts returns every post, newest first. The result is never nil.
func (s *PostService) ListPosts(ctx context.Context) ([]*models.Post, error) {
	var posts []*models.Post
	err := s.cache.Aside(ctx, cache.PostListKey, &posts, func() error {
		var err error
		posts, err = s.postRepo.List(ctx)
		return err
	})
	if err != nil {
		return nil, classify(err)
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	return posts, nil
}

func (s *PostService) GetPost(ctx context.Context, id string) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return nil, classify(err)
	}
	return post, nil
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	post, err := models.NewPost(in.Title, in.Content, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, classify(err)
	}

	s.afterWrite(ctx, notifications.EventPostCreated, post.ID, post)
	return post, nil
}

// UpdatePost replaces title and content of an existing post. Input is
// validated before the post is looked up.
func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	if err := models.ValidatePostFields(in.Title, in.Content); err != nil {
		return nil, err
	}

	post, err := s.postRepo.GetByID(ctx, in.ID)
	if err != nil {
		return nil, classify(err)
	}

	if err := post.Revise(in.Title, in.Content, s.now()); err != nil {
		return nil, err
	}

	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, classify(err)
	}

	s.afterWrite(ctx, notifications.EventPostUpdated, post.ID, post)
	return post, nil
}

func (s *PostService) DeletePost(ctx context.Context, id string) error {
	if err := s.postRepo.Delete(ctx, id); err != nil {
		return classify(err)
	}

	s.afterWrite(ctx, notifications.EventPostDeleted, id, nil)
	return nil
}

// afterWrite drops the cached list and announces the change. Both are best
// effort; the write itself already succeeded.
func (s *PostService) afterWrite(ctx context.Context, event, id string, post *models.Post) {
	s.cache.InvalidatePostList(ctx)

	err := s.notifier.PublishPostEvent(ctx, notifications.PostEvent{
		Type:   event,
		PostID: id,
		Post:   post,
		At:     s.now().UTC(),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to publish post event",
			slog.String("event", event),
			slog.String("post_id", id),
			slog.String("error", err.Error()),
		)
	}
}

// classify keeps classified errors and wraps store faults as InternalError.
func classify(err error) error {
	return models.AsAppError(err)
}

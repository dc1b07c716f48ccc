package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/observability"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// postRecord is the SQL row layout of a post.
type postRecord struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)"`
	Title     string    `gorm:"not null"`
	Content   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null;index;autoCreateTime:false"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime:false"`
}

func (postRecord) TableName() string { return postsCollection }

func toPostRecord(p *models.Post) *postRecord {
	return &postRecord{
		ID:        p.ID,
		Title:     p.Title,
		Content:   p.Content,
		CreatedAt: p.CreatedAt.UTC(),
		UpdatedAt: p.UpdatedAt.UTC(),
	}
}

func (r *postRecord) toModel() *models.Post {
	return &models.Post{
		ID:        r.ID,
		Title:     r.Title,
		Content:   r.Content,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

// gormPostRepository implements PostRepository on a SQL database.
type gormPostRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewGormPostRepository creates a post repository backed by GORM.
func NewGormPostRepository(db *gorm.DB, logger *slog.Logger) PostRepository {
	return &gormPostRepository{
		db:  db,
		log: observability.NewRepoLogger(logger, postsCollection),
	}
}

func (r *gormPostRepository) Create(ctx context.Context, post *models.Post) (err error) {
	defer r.track(ctx, "create", &err)()

	rec := toPostRecord(post)
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return err
	}

	post.ID = rec.ID
	r.log.LogOperation(ctx, "create", slog.String("id", rec.ID))
	return nil
}

func (r *gormPostRepository) GetByID(ctx context.Context, id string) (_ *models.Post, err error) {
	defer r.track(ctx, "read", &err)()

	if _, parseErr := uuid.Parse(id); parseErr != nil {
		return nil, errPostNotFound()
	}

	var rec postRecord
	if err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errPostNotFound()
		}
		return nil, err
	}
	return rec.toModel(), nil
}

func (r *gormPostRepository) List(ctx context.Context) (_ []*models.Post, err error) {
	defer r.track(ctx, "list", &err)()

	var recs []postRecord
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&recs).Error; err != nil {
		return nil, err
	}

	posts := make([]*models.Post, 0, len(recs))
	for i := range recs {
		posts = append(posts, recs[i].toModel())
	}
	r.log.LogOperation(ctx, "list", slog.Int("count", len(posts)))
	return posts, nil
}

func (r *gormPostRepository) Update(ctx context.Context, post *models.Post) (err error) {
	defer r.track(ctx, "update", &err)()

	if _, parseErr := uuid.Parse(post.ID); parseErr != nil {
		return errPostNotFound()
	}

	res := r.db.WithContext(ctx).
		Model(&postRecord{}).
		Where("id = ?", post.ID).
		Updates(map[string]any{
			"title":      post.Title,
			"content":    post.Content,
			"updated_at": post.UpdatedAt.UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errPostNotFound()
	}

	r.log.LogOperation(ctx, "update", slog.String("id", post.ID))
	return nil
}

func (r *gormPostRepository) Delete(ctx context.Context, id string) (err error) {
	defer r.track(ctx, "delete", &err)()

	if _, parseErr := uuid.Parse(id); parseErr != nil {
		return errPostNotFound()
	}

	res := r.db.WithContext(ctx).Delete(&postRecord{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errPostNotFound()
	}

	r.log.LogOperation(ctx, "delete", slog.String("id", id))
	return nil
}

func (r *gormPostRepository) DeleteAll(ctx context.Context) (_ int64, err error) {
	defer r.track(ctx, "delete_all", &err)()

	res := r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&postRecord{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// track wraps an operation in a span and a latency observation, and logs
// unexpected failures. Not-found outcomes are not failures.
func (r *gormPostRepository) track(ctx context.Context, op string, errp *error) func() {
	_, span := observability.StartStoreSpan(ctx, r.db.Dialector.Name(), op, postsCollection)
	done := observability.TrackQuery(op, postsCollection)
	return func() {
		done()
		err := *errp
		if err != nil && models.IsNotFound(err) {
			err = nil
		}
		if err != nil {
			r.log.LogError(ctx, err, op)
		}
		observability.EndSpan(span, err)
	}
}

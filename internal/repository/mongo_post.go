package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/observability"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// postDocument is the document layout of a post.
type postDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Title     string             `bson:"title"`
	Content   string             `bson:"content"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func (d *postDocument) toModel() *models.Post {
	return &models.Post{
		ID:        d.ID.Hex(),
		Title:     d.Title,
		Content:   d.Content,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}

// mongoPostRepository implements PostRepository on a MongoDB collection.
type mongoPostRepository struct {
	coll *mongo.Collection
	log  *observability.RepoLogger
}

// NewMongoPostRepository creates a post repository backed by the posts collection of db.
func NewMongoPostRepository(db *mongo.Database, logger *slog.Logger) PostRepository {
	return &mongoPostRepository{
		coll: db.Collection(postsCollection),
		log:  observability.NewRepoLogger(logger, postsCollection),
	}
}

func migrateMongo(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(postsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "createdAt", Value: -1}},
		Options: options.Index().SetName("createdAt_desc"),
	})
	if err != nil {
		return fmt.Errorf("failed to create posts index: %w", err)
	}
	return nil
}

func (r *mongoPostRepository) Create(ctx context.Context, post *models.Post) (err error) {
	defer r.track(ctx, "create", &err)()

	doc := postDocument{
		ID:        primitive.NewObjectID(),
		Title:     post.Title,
		Content:   post.Content,
		CreatedAt: post.CreatedAt,
		UpdatedAt: post.UpdatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return err
	}

	post.ID = doc.ID.Hex()
	r.log.LogOperation(ctx, "create", slog.String("id", post.ID))
	return nil
}

func (r *mongoPostRepository) GetByID(ctx context.Context, id string) (_ *models.Post, err error) {
	defer r.track(ctx, "read", &err)()

	oid, parseErr := primitive.ObjectIDFromHex(id)
	if parseErr != nil {
		return nil, errPostNotFound()
	}

	var doc postDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errPostNotFound()
		}
		return nil, err
	}
	return doc.toModel(), nil
}

func (r *mongoPostRepository) List(ctx context.Context) (_ []*models.Post, err error) {
	defer r.track(ctx, "list", &err)()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}

	var docs []postDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	posts := make([]*models.Post, 0, len(docs))
	for i := range docs {
		posts = append(posts, docs[i].toModel())
	}
	r.log.LogOperation(ctx, "list", slog.Int("count", len(posts)))
	return posts, nil
}

func (r *mongoPostRepository) Update(ctx context.Context, post *models.Post) (err error) {
	defer r.track(ctx, "update", &err)()

	oid, parseErr := primitive.ObjectIDFromHex(post.ID)
	if parseErr != nil {
		return errPostNotFound()
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"title":     post.Title,
		"content":   post.Content,
		"updatedAt": post.UpdatedAt,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errPostNotFound()
	}

	r.log.LogOperation(ctx, "update", slog.String("id", post.ID))
	return nil
}

func (r *mongoPostRepository) Delete(ctx context.Context, id string) (err error) {
	defer r.track(ctx, "delete", &err)()

	oid, parseErr := primitive.ObjectIDFromHex(id)
	if parseErr != nil {
		return errPostNotFound()
	}

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return errPostNotFound()
	}

	r.log.LogOperation(ctx, "delete", slog.String("id", id))
	return nil
}

func (r *mongoPostRepository) DeleteAll(ctx context.Context) (_ int64, err error) {
	defer r.track(ctx, "delete_all", &err)()

	res, err := r.coll.DeleteMany(ctx, bson.D{})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (r *mongoPostRepository) track(ctx context.Context, op string, errp *error) func() {
	_, span := observability.StartStoreSpan(ctx, "mongodb", op, postsCollection)
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

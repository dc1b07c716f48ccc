package repository

import (
	"context"
	"testing"
	"time"

	"inkwell/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

const postsNamespace = "blog.posts"

func postDoc(id primitive.ObjectID, title string, created, updated time.Time) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "title", Value: title},
		{Key: "content", Value: "body of " + title},
		{Key: "createdAt", Value: created},
		{Key: "updatedAt", Value: updated},
	}
}

func TestMongoPostRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	mt.Run("create assigns an object id", func(mt *mtest.T) {
		repo := NewMongoPostRepository(mt.DB, quietLogger())
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		post := mustPost(mt.T, "Hello", "World", at)
		require.NoError(mt, repo.Create(ctx, post))
		assert.True(mt, primitive.IsValidObjectID(post.ID))
	})

	mt.Run("create surfaces write errors", func(mt *mtest.T) {
		repo := NewMongoPostRepository(mt.DB, quietLogger())
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index: 0, Code: 11000, Message: "duplicate key error",
		}))

		err := repo.Create(ctx, mustPost(mt.T, "Hello", "World", at))
		require.Error(mt, err)
		assert.False(mt, models.IsNotFound(err))
	})

	mt.Run("get by id", func(mt *mtest.T) {
		repo := NewMongoPostRepository(mt.DB, quietLogger())
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(1, postsNamespace, mtest.FirstBatch,
			postDoc(id, "Hello", at, at.Add(time.Minute))))

		post, err := repo.GetByID(ctx, id.Hex())
		require.NoError(mt, err)
		assert.Equal(mt, id.Hex(), post.ID)
		assert.Equal(mt, "Hello", post.Title)
		assert.True(mt, at.Equal(post.CreatedAt))
		assert.True(mt, at.Add(time.Minute).Equal(post.UpdatedAt))
	})

	mt.Run("get by id not found", func(mt *mtest.T) {
		repo := NewMongoPostRepository(mt.DB, quietLogger())
		mt.AddMockResponses(mtest.CreateCursorResponse(0, postsNamespace, mtest.FirstBatch))

		_, err := repo.GetByID(ctx, primitive.NewObjectID().Hex())
		assert.True(mt, models.IsNotFound(err))
	})

	mt.Run("malformed ids never reach the store", func(mt *mtest.T) {
		repo := NewMongoPostRepository(mt.DB, quietLogger())

		_, err := repo.GetByID(ctx, "not-an-object-id")
		assert.True(mt, models.IsNotFound(err))
		assert.True(mt, models.IsNotFound(repo.Delete(ctx, "123")))

		post := mustPost(mt.T, "a", "b", at)
		post.ID = "zzz"
		assert.True(mt, models.IsNotFound(repo.Update(ctx, post)))
	})

	mt.Run("list newest first", func(mt *mtest.T) {
		repo := NewMongoPostRepository(mt.DB, quietLogger())
		first := mtest.CreateCursorResponse(1, postsNamespace, mtest.FirstBatch,
			postDoc(primitive.NewObjectID(), "newer", at.Add(time.Hour), at.Add(time.Hour)))
		second := mtest.CreateCursorResponse(0, postsNamespace, mtest.NextBatch,
			postDoc(primitive.NewObjectID(), "older", at, at))
		mt.AddMockResponses(first, second)

		posts, err := repo.List(ctx)
		require.NoError(mt, err)
		require.Len(mt, posts, 2)
		assert.Equal(mt, "newer", posts[0].Title)
		assert.Equal(mt, "older", posts[1].Title)
	})

	mt.Run("list empty", func(mt *mtest.T) {
		repo := NewMongoPostRepository(mt.DB, quietLogger())
		mt.AddMockResponses(mtest.CreateCursorResponse(0, postsNamespace, mtest.FirstBatch))

		posts, err := repo.List(ctx)
		require.NoError(mt, err)
		assert.NotNil(mt, posts)
		assert.Empty(mt, posts)
	})

	mt.Run("list surfaces command errors", func(mt *mtest.T) {
		repo := NewMongoPostRepository(mt.DB, quietLogger())
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code: 13, Name: "Unauthorized", Message: "not authorized",
		}))

		_, err := repo.List(ctx)
		require.Error(mt, err)
		assert.False(mt, models.IsNotFound(err))
	})

	mt.Run("update", func(mt *mtest.T) {
		repo := NewMongoPostRepository(mt.DB, quietLogger())
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		post := mustPost(mt.T, "Hello", "World", at)
		post.ID = primitive.NewObjectID().Hex()
		require.NoError(mt, post.Revise("Hello2", "World", at.Add(time.Hour)))
		assert.NoError(mt, repo.Update(ctx, post))
	})

	mt.Run("update not found", func(mt *mtest.T) {
		repo := NewMongoPostRepository(mt.DB, quietLogger())
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))

		post := mustPost(mt.T, "Hello", "World", at)
		post.ID = primitive.NewObjectID().Hex()
		assert.True(mt, models.IsNotFound(repo.Update(ctx, post)))
	})

	mt.Run("delete", func(mt *mtest.T) {
		repo := NewMongoPostRepository(mt.DB, quietLogger())
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		assert.NoError(mt, repo.Delete(ctx, primitive.NewObjectID().Hex()))
	})

	mt.Run("delete not found", func(mt *mtest.T) {
		repo := NewMongoPostRepository(mt.DB, quietLogger())
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))

		assert.True(mt, models.IsNotFound(repo.Delete(ctx, primitive.NewObjectID().Hex())))
	})

	mt.Run("delete all", func(mt *mtest.T) {
		repo := NewMongoPostRepository(mt.DB, quietLogger())
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 4}))

		n, err := repo.DeleteAll(ctx)
		require.NoError(mt, err)
		assert.Equal(mt, int64(4), n)
	})

	mt.Run("migrate creates the createdAt index", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		assert.NoError(mt, migrateMongo(ctx, mt.DB))
	})
}

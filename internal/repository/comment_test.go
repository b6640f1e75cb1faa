package repository

import (
	"context"
	"testing"

	"socialnet/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentRepository_Threads(t *testing.T) {
	db := newTestDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	anna := createUser(t, db, "anna")
	bob := createUser(t, db, "bob")
	post := &models.Post{Text: "a post", UserID: anna.ID}
	require.NoError(t, db.Create(post).Error)

	root := &models.Comment{PostID: post.ID, UserID: anna.ID, Content: "root"}
	require.NoError(t, repo.Create(ctx, root))
	second := &models.Comment{PostID: post.ID, UserID: bob.ID, Content: "second"}
	require.NoError(t, repo.Create(ctx, second))

	reply := &models.Comment{PostID: post.ID, UserID: bob.ID, Content: "reply", ParentCommentID: &root.ID}
	require.NoError(t, repo.Create(ctx, reply))
	nested := &models.Comment{PostID: post.ID, UserID: anna.ID, Content: "nested", ParentCommentID: &reply.ID}
	require.NoError(t, repo.Create(ctx, nested))

	t.Run("top level excludes replies, oldest first", func(t *testing.T) {
		list, total, err := repo.ListTopLevel(ctx, post.ID, models.PageRequest{Page: 0, Size: 10}, bob.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		require.Len(t, list, 2)
		assert.Equal(t, "root", list[0].Content)
		assert.Equal(t, "anna", list[0].User.Username)
	})

	t.Run("replies", func(t *testing.T) {
		list, err := repo.ListReplies(ctx, root.ID, 0)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "reply", list[0].Content)
	})

	t.Run("likes", func(t *testing.T) {
		require.NoError(t, repo.Like(ctx, anna.ID, reply.ID))
		require.NoError(t, repo.Like(ctx, anna.ID, reply.ID))

		got, err := repo.GetByID(ctx, reply.ID, anna.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.LikesCount)
		assert.True(t, got.Liked)

		asBob, err := repo.GetByID(ctx, reply.ID, bob.ID)
		require.NoError(t, err)
		assert.False(t, asBob.Liked)
	})

	t.Run("update", func(t *testing.T) {
		second.Content = "second, edited"
		require.NoError(t, repo.Update(ctx, second))
		got, err := repo.GetByID(ctx, second.ID, 0)
		require.NoError(t, err)
		assert.Equal(t, "second, edited", got.Content)
	})

	t.Run("delete cascades to the whole subtree", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, root.ID))

		for _, id := range []uint{root.ID, reply.ID, nested.ID} {
			_, err := repo.GetByID(ctx, id, 0)
			assert.True(t, models.HasCode(err, models.CodeNotFound), "comment %d should be gone", id)
		}
		var likes int64
		require.NoError(t, db.Model(&models.CommentLike{}).Count(&likes).Error)
		assert.Zero(t, likes)

		_, err := repo.GetByID(ctx, second.ID, 0)
		assert.NoError(t, err)
	})
}

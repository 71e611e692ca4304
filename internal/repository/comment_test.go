package repository

import (
	"context"
	"testing"

	"nodeback/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentRepository_CreateAndList(t *testing.T) {
	db := newTestDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	author := createUser(t, db, "author")
	reader := createUser(t, db, "reader")
	post := createPost(t, db, author, fixedTime(0))

	first := &models.Comment{PostID: post.ID, UserID: reader.ID, Body: "first", CreatedAt: fixedTime(1)}
	second := &models.Comment{PostID: post.ID, UserID: author.ID, Body: "second", CreatedAt: fixedTime(2)}
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	got, err := repo.ListByPost(ctx, post.ID, Page{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "second", got[0].Body)
	require.NotNil(t, got[1].User)
	assert.Equal(t, reader.ID, got[1].User.ID)

	detail, err := NewPostRepository(db).GetByID(ctx, post.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), detail.CommentsCount)
	require.Len(t, detail.Comments, 2)
	assert.Equal(t, second.ID, detail.Comments[0].ID)
}

func TestCommentRepository_DeleteOwned(t *testing.T) {
	db := newTestDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	author := createUser(t, db, "author")
	reader := createUser(t, db, "reader")
	post := createPost(t, db, author, fixedTime(0))

	c := &models.Comment{PostID: post.ID, UserID: reader.ID, Body: "hi"}
	require.NoError(t, repo.Create(ctx, c))

	deleted, err := repo.DeleteOwned(ctx, c.ID, author.ID)
	require.NoError(t, err)
	assert.False(t, deleted, "post author does not own the comment")

	deleted, err = repo.DeleteOwned(ctx, c.ID, reader.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = repo.GetByID(ctx, c.ID)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

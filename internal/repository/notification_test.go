package repository

import (
	"context"
	"regexp"
	"testing"

	"nodeback/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationRepository_Inbox(t *testing.T) {
	db := newTestDB(t)
	repo := NewNotificationRepository(db)
	ctx := context.Background()

	author := createUser(t, db, "author")
	fan := createUser(t, db, "fan")
	post := createPost(t, db, author, fixedTime(0))

	like := models.NewLikeNotification(fan.ID, author.ID, post.ID)
	like.CreatedAt = fixedTime(1)
	follow := models.NewFollowNotification(fan.ID, author.ID)
	follow.CreatedAt = fixedTime(2)
	other := models.NewFollowNotification(author.ID, fan.ID)
	require.NoError(t, repo.CreateBatch(ctx, []*models.Notification{like, follow, other}))
	require.NotZero(t, like.ID)

	unseen, err := repo.ListUnseen(ctx, author.ID, Page{})
	require.NoError(t, err)
	require.Len(t, unseen, 2)
	assert.Equal(t, models.NotificationFollow, unseen[0].Type)
	require.NotNil(t, unseen[0].FromUser)
	assert.Equal(t, fan.ID, unseen[0].FromUser.ID)

	ok, err := repo.MarkSeen(ctx, fan.ID, like.ID)
	require.NoError(t, err)
	assert.False(t, ok, "only the recipient may mark it seen")

	for i := 0; i < 2; i++ {
		ok, err = repo.MarkSeen(ctx, author.ID, like.ID)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	n, err := repo.MarkAllSeen(ctx, author.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	unseen, err = repo.ListUnseen(ctx, author.ID, Page{})
	require.NoError(t, err)
	assert.Empty(t, unseen)
}

func TestNotificationRepository_RejectsMalformedVariant(t *testing.T) {
	db := newTestDB(t)
	repo := NewNotificationRepository(db)

	author := createUser(t, db, "author")
	postID := uint(1)
	bad := models.NewFollowNotification(author.ID, author.ID+1)
	bad.PostID = &postID

	err := repo.CreateBatch(context.Background(), []*models.Notification{bad})
	assert.True(t, models.IsCode(err, models.CodeValidation), "got %v", err)

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestNotificationRepository_MarkAllSeenSQL(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewNotificationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "notifications" SET "is_seen"=$1 WHERE to_user_id = $2 AND is_seen = $3`)).
		WithArgs(true, 7, false).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	n, err := repo.MarkAllSeen(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}


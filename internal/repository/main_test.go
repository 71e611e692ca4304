package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"nodeback/internal/models"
	"nodeback/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupMockDB returns a postgres-dialect gorm handle backed by sqlmock.
func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	return gormDB, mock
}

func newTestDB(t *testing.T) *gorm.DB {
	return testutil.NewSQLiteDB(t)
}

func createUser(t *testing.T, db *gorm.DB, name string) *models.User {
	return testutil.CreateUser(t, db, name)
}

// createPost inserts a post with the given tags at a fixed creation time.
func createPost(t *testing.T, db *gorm.DB, author *models.User, at time.Time, tags ...string) *models.Post {
	t.Helper()
	ctx := context.Background()
	resolved, err := NewTagRepository(db).GetOrCreate(ctx, tags)
	require.NoError(t, err)

	p := &models.Post{
		UserID:    author.ID,
		Content:   fmt.Sprintf("post by %s at %s", author.FirstName, at.Format(time.RFC3339)),
		Tags:      resolved,
		CreatedAt: at,
		UpdatedAt: at,
	}
	require.NoError(t, NewPostRepository(db).Create(ctx, p))
	return p
}

func setInterests(t *testing.T, db *gorm.DB, user *models.User, names ...string) {
	t.Helper()
	ctx := context.Background()
	tags, err := NewTagRepository(db).GetOrCreate(ctx, names)
	require.NoError(t, err)
	_, err = NewInterestRepository(db).Replace(ctx, user.ID, tags)
	require.NoError(t, err)
}

func postIDs(posts []*models.Post) []uint {
	ids := make([]uint, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	return ids
}

func userIDs(users []models.User) []uint {
	ids := make([]uint, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids
}

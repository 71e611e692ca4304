package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"nodeback/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_GetByID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	tests := []struct {
		name         string
		userID       uint
		mockBehavior func()
		wantEmail    string
		wantCode     string
	}{
		{
			name:   "Success",
			userID: 1,
			mockBehavior: func() {
				rows := sqlmock.NewRows([]string{"id", "email", "first_name"}).
					AddRow(1, "ada@example.com", "Ada")
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1 ORDER BY "users"."id" LIMIT $2`)).
					WithArgs(1, 1).
					WillReturnRows(rows)
			},
			wantEmail: "ada@example.com",
		},
		{
			name:   "Not Found",
			userID: 99,
			mockBehavior: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1`)).
					WithArgs(99, 1).
					WillReturnRows(sqlmock.NewRows([]string{"id"}))
			},
			wantCode: models.CodeNotFound,
		},
		{
			name:   "Database Error",
			userID: 2,
			mockBehavior: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1`)).
					WithArgs(2, 1).
					WillReturnError(errors.New("connection timeout"))
			},
			wantCode: models.CodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockBehavior()
			user, err := repo.GetByID(ctx, tt.userID)

			if tt.wantCode != "" {
				assert.Nil(t, user)
				assert.True(t, models.IsCode(err, tt.wantCode), "got %v", err)
			} else if assert.NoError(t, err) {
				assert.Equal(t, tt.wantEmail, user.Email)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_GetByEmailNormalizes(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE email = $1`)).
		WithArgs("ada@example.com", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email"}).AddRow(1, "ada@example.com"))

	user, err := repo.GetByEmail(context.Background(), "  Ada@Example.COM ")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, uint(1), user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_CreateDuplicateEmail(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "users"`)).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.User{Email: "dup@example.com", Password: "x", IsActive: true})
	assert.True(t, models.IsCode(err, models.CodeConflict), "got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Counts(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	follows := NewFollowRepository(db)
	posts := NewPostRepository(db)
	ctx := context.Background()

	ada := createUser(t, db, "ada")
	bob := createUser(t, db, "bob")
	cy := createUser(t, db, "cy")

	_, err := follows.Insert(ctx, bob.ID, ada.ID)
	require.NoError(t, err)
	_, err = follows.Insert(ctx, cy.ID, ada.ID)
	require.NoError(t, err)
	_, err = follows.Insert(ctx, ada.ID, bob.ID)
	require.NoError(t, err)

	post := createPost(t, db, ada, fixedTime(0))
	_, _, err = posts.ToggleLike(ctx, post.ID, bob.ID)
	require.NoError(t, err)
	_, err = posts.AddReport(ctx, post.ID, bob.ID)
	require.NoError(t, err)
	_, err = posts.AddReport(ctx, post.ID, cy.ID)
	require.NoError(t, err)

	got, err := repo.GetWithCounts(ctx, ada.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.FollowerCount)
	assert.Equal(t, int64(1), got.FollowingCount)
	assert.Equal(t, int64(0), got.LikesCount)
	assert.Equal(t, int64(1), got.ReportedPostsCount)

	gotBob, err := repo.GetWithCounts(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), gotBob.LikesCount)
}

func TestUserRepository_FlagsAndStaff(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	ada := createUser(t, db, "ada")
	require.NoError(t, repo.SetStaff(ctx, ada.ID, true))
	require.NoError(t, repo.SetActive(ctx, ada.ID, false))
	require.NoError(t, repo.MarkInterestSet(ctx, ada.ID))

	got, err := repo.GetByID(ctx, ada.ID)
	require.NoError(t, err)
	assert.True(t, got.IsStaff)
	assert.False(t, got.IsActive)
	assert.True(t, got.SetInterest)

	staff, err := repo.ListStaff(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint{ada.ID}, userIDs(staff))

	err = repo.SetOnline(ctx, 9999, true)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

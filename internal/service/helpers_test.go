package service

import (
	"context"
	"errors"
	"testing"

	"nodeback/internal/featureflags"
	"nodeback/internal/models"
	"nodeback/internal/repository"
	"nodeback/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// testEnv wires every service against one in-memory database.
type testEnv struct {
	db    *gorm.DB
	repos *repository.Repositories
	live  *testutil.LivePublisherStub

	posts         *PostService
	comments      *CommentService
	follows       *FollowService
	feed          *FeedService
	interests     *InterestService
	notifications *NotificationService
	users         *UserService
}

func newTestEnv(t *testing.T, flags string) *testEnv {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	repos := repository.NewRepositories(db)
	uow := repository.NewUnitOfWork(db)
	live := &testutil.LivePublisherStub{}
	manager := featureflags.NewManager(flags)
	fan := NewFanout(live, manager)
	images := NewImageService(nil)
	images.mediaDir = t.TempDir()

	return &testEnv{
		db:            db,
		repos:         repos,
		live:          live,
		posts:         NewPostService(repos, uow, images, fan),
		comments:      NewCommentService(repos, uow, fan),
		follows:       NewFollowService(repos, uow, fan),
		feed:          NewFeedService(repos, manager),
		interests:     NewInterestService(repos, uow),
		notifications: NewNotificationService(repos.Notifications),
		users:         NewUserService(repos.Users, fan),
	}
}

func (e *testEnv) user(t *testing.T, name string, opts ...testutil.UserOption) *models.User {
	return testutil.CreateUser(t, e.db, name, opts...)
}

func (e *testEnv) post(t *testing.T, author *models.User, content string, tags ...string) *models.Post {
	t.Helper()
	p, err := e.posts.CreatePost(context.Background(), CreatePostInput{UserID: author.ID, Content: content, Tags: tags})
	require.NoError(t, err)
	return p
}

func (e *testEnv) unseen(t *testing.T, user *models.User) []*models.Notification {
	t.Helper()
	out, err := e.notifications.Unseen(context.Background(), user.ID, repository.Page{})
	require.NoError(t, err)
	return out
}

func countByType(notes []*models.Notification, typ models.NotificationType) int {
	n := 0
	for _, note := range notes {
		if note.Type == typ {
			n++
		}
	}
	return n
}

// assertCode asserts that err is an AppError with the given code.
func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertCode(t, err, models.CodeValidation)
}

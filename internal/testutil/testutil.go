// Package testutil provides shared test doubles and fixtures for backend tests.
package testutil

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"sync"
	"testing"

	"nodeback/internal/database"
	"nodeback/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewSQLiteDB opens a migrated in-memory SQLite database on a single
// connection so every query sees the same data.
func NewSQLiteDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// UserOption customizes a fixture user before insert.
type UserOption func(*models.User)

// Staff marks the fixture user as staff.
func Staff(u *models.User) { u.IsStaff = true }

// Inactive marks the fixture user as deactivated.
func Inactive(u *models.User) { u.IsActive = false }

// CreateUser inserts an active user named name with email name@example.com.
func CreateUser(t testing.TB, db *gorm.DB, name string, opts ...UserOption) *models.User {
	t.Helper()
	u := &models.User{
		Email:     fmt.Sprintf("%s@example.com", name),
		Password:  "not-a-hash",
		FirstName: name,
		IsActive:  true,
	}
	for _, opt := range opts {
		opt(u)
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// LiveEvent is one call recorded by LivePublisherStub.
type LiveEvent struct {
	UserID       uint
	Type         string
	Notification *models.Notification
}

// LivePublisherStub records live pushes instead of delivering them.
type LivePublisherStub struct {
	mu     sync.Mutex
	events []LiveEvent
	Err    error
}

// PublishNotification records a notification push.
func (s *LivePublisherStub) PublishNotification(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, LiveEvent{UserID: n.ToUserID, Type: "notification", Notification: n})
	return s.Err
}

// PublishLogout records a logout push.
func (s *LivePublisherStub) PublishLogout(_ context.Context, userID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, LiveEvent{UserID: userID, Type: "logout_user"})
	return s.Err
}

// Events returns a copy of the recorded pushes.
func (s *LivePublisherStub) Events() []LiveEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]LiveEvent(nil), s.events...)
}

// TinyPNG returns an in-memory PNG byte slice with the requested dimensions.
func TinyPNG(t interface {
	Helper()
	Fatalf(string, ...any)
}, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	buf := bytes.NewBuffer(nil)
	if err := png.Encode(buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// TinySVG returns a minimal SVG document.
func TinySVG() []byte {
	return []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="4" height="4"><rect width="4" height="4"/></svg>`)
}

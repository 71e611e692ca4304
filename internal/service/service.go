// Package service holds the business rules behind the HTTP handlers. Every
// method takes the acting user's ID as its first business argument.
package service

import (
	"context"

	"nodeback/internal/models"
	"nodeback/internal/repository"
)

// Page size bounds for list endpoints.
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// NewPage clamps limit to [1, MaxPageLimit], defaulting to DefaultPageLimit,
// and drops negative offsets.
func NewPage(limit, offset int) repository.Page {
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return repository.Page{Limit: limit, Offset: offset}
}

// LivePublisher delivers realtime events to connected clients. Delivery is
// best effort; callers log and drop errors.
type LivePublisher interface {
	PublishNotification(ctx context.Context, n *models.Notification) error
	PublishLogout(ctx context.Context, userID uint) error
}

func requireStaff(ctx context.Context, users repository.UserRepository, userID uint) (*models.User, error) {
	user, err := users.GetByID(ctx, userID)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return nil, models.NewUnauthorizedError("User not found")
		}
		return nil, err
	}
	if !user.IsStaff {
		return nil, models.NewForbiddenError("Staff access required")
	}
	return user, nil
}

func isStaff(ctx context.Context, users repository.UserRepository, userID uint) (bool, error) {
	user, err := users.GetByID(ctx, userID)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return false, nil
		}
		return false, err
	}
	return user.IsStaff, nil
}

// unavailable hides unexpected failures behind a 503; client errors pass through.
func unavailable(err error) error {
	switch models.ErrorCode(err) {
	case models.CodeInternal, "":
		return models.NewUnavailableError(err)
	}
	return err
}

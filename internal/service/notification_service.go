package service

import (
	"context"

	"nodeback/internal/models"
	"nodeback/internal/repository"
)

// NotificationService reads and acknowledges a user's inbox.
type NotificationService struct {
	repo repository.NotificationRepository
}

func NewNotificationService(repo repository.NotificationRepository) *NotificationService {
	return &NotificationService{repo: repo}
}

// Unseen returns unseen notifications, newest first.
func (s *NotificationService) Unseen(ctx context.Context, userID uint, page repository.Page) ([]*models.Notification, error) {
	return s.repo.ListUnseen(ctx, userID, page)
}

// MarkSeen flags one notification as seen. Repeating it is harmless;
// another user's notification is NOT_FOUND.
func (s *NotificationService) MarkSeen(ctx context.Context, userID, notificationID uint) error {
	ok, err := s.repo.MarkSeen(ctx, userID, notificationID)
	if err != nil {
		return err
	}
	if !ok {
		return models.NewNotFoundError("Notification", notificationID)
	}
	return nil
}

// MarkAllSeen flags the whole inbox and returns how many changed.
func (s *NotificationService) MarkAllSeen(ctx context.Context, userID uint) (int64, error) {
	return s.repo.MarkAllSeen(ctx, userID)
}

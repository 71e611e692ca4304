package repository

import (
	"context"
	"errors"

	"nodeback/internal/models"

	"gorm.io/gorm"
)

const notificationBatchSize = 500

// NotificationRepository persists notifications and their seen flag.
type NotificationRepository interface {
	// CreateBatch inserts the notifications in order, assigning their IDs.
	CreateBatch(ctx context.Context, notifications []*models.Notification) error
	ListUnseen(ctx context.Context, userID uint, page Page) ([]*models.Notification, error)
	// MarkSeen returns false if userID owns no notification with that ID.
	MarkSeen(ctx context.Context, userID, id uint) (bool, error)
	MarkAllSeen(ctx context.Context, userID uint) (int64, error)
}

type notificationRepository struct {
	db   *gorm.DB
	read *gorm.DB
}

// NewNotificationRepository creates a new NotificationRepository
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db, read: readDB(db)}
}

func (r *notificationRepository) CreateBatch(ctx context.Context, notifications []*models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Omit("FromUser").CreateInBatches(notifications, notificationBatchSize).Error; err != nil {
		return internal(err)
	}
	return nil
}

func (r *notificationRepository) ListUnseen(ctx context.Context, userID uint, page Page) ([]*models.Notification, error) {
	notifications := []*models.Notification{}
	q := r.read.WithContext(ctx).
		Preload("FromUser").
		Where("to_user_id = ? AND is_seen = ?", userID, false).
		Order("created_at DESC").
		Order("id DESC")
	if err := page.apply(q).Find(&notifications).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return notifications, nil
}

func (r *notificationRepository) MarkSeen(ctx context.Context, userID, id uint) (bool, error) {
	var n models.Notification
	err := r.db.WithContext(ctx).
		Where("id = ? AND to_user_id = ?", id, userID).
		Take(&n).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, models.NewInternalError(err)
	}
	if n.IsSeen {
		return true, nil
	}
	if err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ?", id).
		Update("is_seen", true).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return true, nil
}

func (r *notificationRepository) MarkAllSeen(ctx context.Context, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("to_user_id = ? AND is_seen = ?", userID, false).
		Update("is_seen", true)
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	return res.RowsAffected, nil
}

package repository

import (
	"context"

	"nodeback/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FollowRepository stores the directed follow graph.
type FollowRepository interface {
	Exists(ctx context.Context, followerID, followingID uint) (bool, error)
	// Insert reports false if the edge was already present.
	Insert(ctx context.Context, followerID, followingID uint) (bool, error)
	// Delete reports false if there was no edge to remove.
	Delete(ctx context.Context, followerID, followingID uint) (bool, error)

	FollowerIDs(ctx context.Context, userID uint) ([]uint, error)
	Followers(ctx context.Context, userID uint, page Page) ([]models.User, error)
	Following(ctx context.Context, userID uint, page Page) ([]models.User, error)
	Network(ctx context.Context, userID uint, page Page) ([]models.User, error)
	Contacts(ctx context.Context, userID uint, page Page) ([]models.User, error)
}

type followRepository struct {
	db   *gorm.DB
	read *gorm.DB
}

// NewFollowRepository creates a new FollowRepository
func NewFollowRepository(db *gorm.DB) FollowRepository {
	return &followRepository{db: db, read: readDB(db)}
}

func (r *followRepository) Exists(ctx context.Context, followerID, followingID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *followRepository) Insert(ctx context.Context, followerID, followingID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "follower_id"}, {Name: "following_id"}},
			DoNothing: true,
		}).
		Create(&models.Follow{FollowerID: followerID, FollowingID: followingID})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *followRepository) Delete(ctx context.Context, followerID, followingID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Delete(&models.Follow{})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// FollowerIDs reads through the write handle; it feeds fan-out inside the
// same transaction as the triggering write.
func (r *followRepository) FollowerIDs(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("following_id = ?", userID).
		Order("follower_id ASC").
		Pluck("follower_id", &ids).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

func (r *followRepository) listUsers(ctx context.Context, page Page, scope func(*gorm.DB) *gorm.DB) ([]models.User, error) {
	users := []models.User{}
	q := scope(withUserCounts(r.read.WithContext(ctx).Model(&models.User{}))).Order("users.id ASC")
	if err := page.apply(q).Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *followRepository) Followers(ctx context.Context, userID uint, page Page) ([]models.User, error) {
	return r.listUsers(ctx, page, func(db *gorm.DB) *gorm.DB {
		return db.Where("users.id IN (SELECT follower_id FROM follows WHERE following_id = ?)", userID)
	})
}

func (r *followRepository) Following(ctx context.Context, userID uint, page Page) ([]models.User, error) {
	return r.listUsers(ctx, page, func(db *gorm.DB) *gorm.DB {
		return db.Where("users.id IN (SELECT following_id FROM follows WHERE follower_id = ?)", userID)
	})
}

// Network is every other account the user does not follow yet, inactive
// ones included.
func (r *followRepository) Network(ctx context.Context, userID uint, page Page) ([]models.User, error) {
	return r.listUsers(ctx, page, func(db *gorm.DB) *gorm.DB {
		return db.Where("users.id <> ?", userID).
			Where("users.id NOT IN (SELECT following_id FROM follows WHERE follower_id = ?)", userID)
	})
}

// Contacts is the union of followers and following, each user once.
func (r *followRepository) Contacts(ctx context.Context, userID uint, page Page) ([]models.User, error) {
	return r.listUsers(ctx, page, func(db *gorm.DB) *gorm.DB {
		return db.Where("users.id <> ?", userID).
			Where("users.id IN (SELECT follower_id FROM follows WHERE following_id = ? "+
				"UNION SELECT following_id FROM follows WHERE follower_id = ?)", userID, userID)
	})
}

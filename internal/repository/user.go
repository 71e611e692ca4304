package repository

import (
	"context"
	"strings"

	"nodeback/internal/cache"
	"nodeback/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetWithCounts(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, id uint, fields map[string]any) error
	SetActive(ctx context.Context, id uint, active bool) error
	SetOnline(ctx context.Context, id uint, online bool) error
	SetStaff(ctx context.Context, id uint, staff bool) error
	MarkInterestSet(ctx context.Context, id uint) error
	List(ctx context.Context, page Page) ([]models.User, error)
	ListStaff(ctx context.Context) ([]models.User, error)
}

type userRepository struct {
	db   *gorm.DB
	read *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db, read: readDB(db)}
}

// withUserCounts selects users.* plus the computed counters on models.User.
func withUserCounts(db *gorm.DB) *gorm.DB {
	return db.Select("users.*, " +
		"(SELECT COUNT(*) FROM follows WHERE follows.following_id = users.id) AS follower_count, " +
		"(SELECT COUNT(*) FROM follows WHERE follows.follower_id = users.id) AS following_count, " +
		"(SELECT COUNT(*) FROM post_likes WHERE post_likes.user_id = users.id) AS likes_count, " +
		"(SELECT COUNT(DISTINCT post_reports.post_id) FROM post_reports JOIN posts ON posts.id = post_reports.post_id " +
		"WHERE posts.user_id = users.id) AS reported_posts_count")
}

// GetByID is served through the cache; counters are not populated.
func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := cache.Aside(ctx, cache.UserKey(id), &user, cache.UserTTL, func() error {
		if err := r.read.WithContext(ctx).First(&user, id).Error; err != nil {
			return notFoundOr(err, "User", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetWithCounts(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := withUserCounts(r.read.WithContext(ctx).Model(&models.User{})).
		Where("users.id = ?", id).
		Take(&user).Error; err != nil {
		return nil, notFoundOr(err, "User", id)
	}
	return &user, nil
}

// GetByEmail returns (nil, nil) when no account uses email.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var users []models.User
	if err := r.read.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		Limit(1).
		Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if len(users) == 0 {
		return nil, nil
	}
	return &users[0], nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("User already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) Update(ctx context.Context, id uint, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		if isUniqueConstraintError(res.Error) {
			return models.NewConflictError("Email already in use")
		}
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	cache.InvalidateUser(ctx, id)
	return nil
}

func (r *userRepository) setFlag(ctx context.Context, id uint, column string, value bool) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update(column, value)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	cache.InvalidateUser(ctx, id)
	return nil
}

func (r *userRepository) SetActive(ctx context.Context, id uint, active bool) error {
	return r.setFlag(ctx, id, "is_active", active)
}

func (r *userRepository) SetOnline(ctx context.Context, id uint, online bool) error {
	return r.setFlag(ctx, id, "is_online", online)
}

func (r *userRepository) SetStaff(ctx context.Context, id uint, staff bool) error {
	return r.setFlag(ctx, id, "is_staff", staff)
}

func (r *userRepository) MarkInterestSet(ctx context.Context, id uint) error {
	return r.setFlag(ctx, id, "set_interest", true)
}

func (r *userRepository) List(ctx context.Context, page Page) ([]models.User, error) {
	var users []models.User
	q := withUserCounts(r.read.WithContext(ctx).Model(&models.User{})).Order("users.id ASC")
	if err := page.apply(q).Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *userRepository) ListStaff(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.read.WithContext(ctx).
		Where("is_staff = ?", true).
		Order("id ASC").
		Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

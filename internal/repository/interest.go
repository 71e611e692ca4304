package repository

import (
	"context"

	"nodeback/internal/models"

	"gorm.io/gorm"
)

// InterestRepository manages each user's interest tag set.
type InterestRepository interface {
	// Get returns nil, nil when the user has no interest row.
	Get(ctx context.Context, userID uint) (*models.Interest, error)
	Add(ctx context.Context, userID uint, tags []models.Tag) (*models.Interest, error)
	Replace(ctx context.Context, userID uint, tags []models.Tag) (*models.Interest, error)
}

type interestRepository struct {
	db   *gorm.DB
	read *gorm.DB
}

// NewInterestRepository creates a new InterestRepository
func NewInterestRepository(db *gorm.DB) InterestRepository {
	return &interestRepository{db: db, read: readDB(db)}
}

func (r *interestRepository) Get(ctx context.Context, userID uint) (*models.Interest, error) {
	var rows []models.Interest
	err := r.read.WithContext(ctx).
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("tags.name ASC") }).
		Where("user_id = ?", userID).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *interestRepository) ensure(ctx context.Context, userID uint) (*models.Interest, error) {
	var interest models.Interest
	if err := r.db.WithContext(ctx).
		Where(models.Interest{UserID: userID}).
		FirstOrCreate(&interest).Error; err != nil {
		return nil, internal(err)
	}
	return &interest, nil
}

func (r *interestRepository) reload(ctx context.Context, interest *models.Interest) (*models.Interest, error) {
	var out models.Interest
	err := r.db.WithContext(ctx).
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("tags.name ASC") }).
		First(&out, interest.ID).Error
	if err != nil {
		return nil, internal(err)
	}
	return &out, nil
}

func (r *interestRepository) Add(ctx context.Context, userID uint, tags []models.Tag) (*models.Interest, error) {
	interest, err := r.ensure(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(tags) > 0 {
		if err := r.db.WithContext(ctx).Model(interest).Omit("Tags.*").Association("Tags").Append(tags); err != nil {
			return nil, models.NewInternalError(err)
		}
	}
	return r.reload(ctx, interest)
}

func (r *interestRepository) Replace(ctx context.Context, userID uint, tags []models.Tag) (*models.Interest, error) {
	interest, err := r.ensure(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(interest).Omit("Tags.*").Association("Tags").Replace(tags); err != nil {
		return nil, models.NewInternalError(err)
	}
	return r.reload(ctx, interest)
}

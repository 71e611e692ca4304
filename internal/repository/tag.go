package repository

import (
	"context"

	"nodeback/internal/cache"
	"nodeback/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TagRepository manages the shared tag vocabulary.
type TagRepository interface {
	List(ctx context.Context) ([]models.Tag, error)
	// GetOrCreate returns one tag per name, inserting the ones that are new.
	GetOrCreate(ctx context.Context, names []string) ([]models.Tag, error)
	// FindByNames returns the existing tags and the names that matched none.
	FindByNames(ctx context.Context, names []string) ([]models.Tag, []string, error)
}

type tagRepository struct {
	db   *gorm.DB
	read *gorm.DB
}

// NewTagRepository creates a new TagRepository
func NewTagRepository(db *gorm.DB) TagRepository {
	return &tagRepository{db: db, read: readDB(db)}
}

func (r *tagRepository) List(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag
	err := cache.Aside(ctx, cache.TagListKey, &tags, cache.TagListTTL, func() error {
		return internal(r.read.WithContext(ctx).Order("name ASC").Find(&tags).Error)
	})
	if err != nil {
		return nil, err
	}
	return tags, nil
}

func (r *tagRepository) GetOrCreate(ctx context.Context, names []string) ([]models.Tag, error) {
	if len(names) == 0 {
		return nil, nil
	}
	rows := make([]models.Tag, 0, len(names))
	for _, n := range names {
		rows = append(rows, models.Tag{Name: n})
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&rows)
	if res.Error != nil {
		return nil, models.NewInternalError(res.Error)
	}
	if res.RowsAffected > 0 {
		cache.InvalidateTags(ctx)
	}

	// Read back through the write handle so rows inserted by a concurrent
	// request are picked up too.
	var tags []models.Tag
	if err := r.db.WithContext(ctx).Where("name IN ?", names).Find(&tags).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return orderByNames(tags, names), nil
}

func (r *tagRepository) FindByNames(ctx context.Context, names []string) ([]models.Tag, []string, error) {
	if len(names) == 0 {
		return nil, nil, nil
	}
	var tags []models.Tag
	if err := r.read.WithContext(ctx).Where("name IN ?", names).Find(&tags).Error; err != nil {
		return nil, nil, models.NewInternalError(err)
	}
	tags = orderByNames(tags, names)

	found := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		found[t.Name] = struct{}{}
	}
	var missing []string
	for _, n := range names {
		if _, ok := found[n]; !ok {
			missing = append(missing, n)
		}
	}
	return tags, missing, nil
}

// orderByNames returns tags in the order their names appear in names.
func orderByNames(tags []models.Tag, names []string) []models.Tag {
	byName := make(map[string]models.Tag, len(tags))
	for _, t := range tags {
		byName[t.Name] = t
	}
	out := make([]models.Tag, 0, len(tags))
	for _, n := range names {
		if t, ok := byName[n]; ok {
			out = append(out, t)
			delete(byName, n)
		}
	}
	return out
}

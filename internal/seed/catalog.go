package seed

import (
	_ "embed"
	"fmt"

	"nodeback/internal/models"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:embed tags.yaml
var tagCatalogYAML []byte

type tagCatalog struct {
	Tags []string `yaml:"tags"`
}

// LoadTagCatalog parses a tag catalogue document and returns the
// normalised names.
func LoadTagCatalog(data []byte) ([]string, error) {
	var c tagCatalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse tag catalogue: %w", err)
	}
	names := models.NormalizeTagNames(c.Tags)
	if len(names) == 0 {
		return nil, fmt.Errorf("tag catalogue is empty")
	}
	return names, nil
}

// DefaultTags returns the embedded catalogue.
func DefaultTags() []string {
	names, err := LoadTagCatalog(tagCatalogYAML)
	if err != nil {
		panic(err)
	}
	return names
}

// Tags inserts the given names, skipping ones that already exist, and
// returns every stored tag among them.
func Tags(db *gorm.DB, names []string) ([]models.Tag, error) {
	rows := make([]models.Tag, 0, len(names))
	for _, n := range names {
		rows = append(rows, models.Tag{Name: n})
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
		return nil, fmt.Errorf("insert tags: %w", err)
	}
	var stored []models.Tag
	if err := db.Where("name IN ?", names).Order("name").Find(&stored).Error; err != nil {
		return nil, fmt.Errorf("load tags: %w", err)
	}
	return stored, nil
}

package database

import "nodeback/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
// Join tables (post_tags, interest_tags) are created through the many2many
// associations on Post and Interest.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Tag{},
		&models.Post{},
		&models.Like{},
		&models.Report{},
		&models.Comment{},
		&models.Follow{},
		&models.Interest{},
		&models.Notification{},
	}
}

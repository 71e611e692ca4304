// Package bootstrap opens the process-wide connections shared by every
// binary and applies development-only fixtures.
package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"nodeback/internal/cache"
	"nodeback/internal/config"
	"nodeback/internal/database"
	"nodeback/internal/middleware"
	"nodeback/internal/models"
	"nodeback/internal/seed"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedTags inserts the built-in tag catalogue.
	SeedTags bool
}

// InitRuntime connects to the database and Redis. Redis is optional; the
// returned client is nil when it is unreachable.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)

	if err := EnsureDevStaff(cfg, db); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap development staff account: %w", err)
	}

	if opts.SeedTags {
		if _, err := seed.Tags(db, seed.DefaultTags()); err != nil {
			return nil, nil, fmt.Errorf("failed to seed built-in tags: %w", err)
		}
	}

	return db, cache.GetClient(), nil
}

// EnsureDevStaff makes sure a staff account exists in development when
// DEV_BOOTSTRAP_STAFF is set. An existing account with that email is
// promoted and reactivated; its password is left alone.
func EnsureDevStaff(cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") || !cfg.DevBootstrapStaff {
		return nil
	}

	email := strings.TrimSpace(strings.ToLower(cfg.DevStaffEmail))
	if email == "" {
		email = "staff@nodeback.local"
	}
	if cfg.DevStaffPassword == "" {
		return errors.New("DEV_STAFF_PASSWORD must be set when DEV_BOOTSTRAP_STAFF is enabled")
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		findErr := tx.Where("email = ?", email).First(&user).Error
		switch {
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			hash, err := bcrypt.GenerateFromPassword([]byte(cfg.DevStaffPassword), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("hash staff password: %w", err)
			}
			user = models.User{
				Email:     email,
				Password:  string(hash),
				FirstName: "Dev",
				LastName:  "Staff",
				IsActive:  true,
				IsStaff:   true,
			}
			return tx.Create(&user).Error
		case findErr != nil:
			return findErr
		default:
			return tx.Model(&models.User{}).Where("id = ?", user.ID).
				Updates(map[string]any{"is_staff": true, "is_active": true}).Error
		}
	})
	if err != nil {
		return err
	}

	middleware.Logger.Info("development staff account ensured", slog.String("email", email))
	return nil
}

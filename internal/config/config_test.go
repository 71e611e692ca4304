package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Env:                      "production",
		DBSSLMode:                "require",
		JWTSecret:                "secure-secret-at-least-32-chars-long",
		DBPassword:               "secure-password",
		Port:                     "8080",
		ImageMaxUploadSizeKB:     1536,
		DBConnMaxLifetimeMinutes: 1,
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           5,
		DBSchemaMode:             SchemaModeHybrid,
		RedisURL:                 "redis://localhost:6379",
	}
}

func TestConfig_ValidateSSLMode(t *testing.T) {
	tests := []struct {
		name        string
		env         string
		sslMode     string
		expectError bool
	}{
		{"Production with empty SSL mode", "production", "", true},
		{"Production with disable SSL mode", "production", "disable", true},
		{"Production with require SSL mode", "production", "require", false},
		{"Prod with disable SSL mode", "prod", "disable", true},
		{"Prod with verify-full SSL mode", "prod", "verify-full", false},
		{"Development with disable SSL mode", "development", "disable", false},
		{"Test with empty SSL mode", "test", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			c.Env = tt.env
			c.DBSSLMode = tt.sslMode

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateLimits(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing port", func(c *Config) { c.Port = "" }},
		{"missing secret", func(c *Config) { c.JWTSecret = "" }},
		{"default secret in production", func(c *Config) { c.JWTSecret = defaultJWTSecret }},
		{"short secret in production", func(c *Config) { c.JWTSecret = "short" }},
		{"weak db password", func(c *Config) { c.DBPassword = "password" }},
		{"zero upload limit", func(c *Config) { c.ImageMaxUploadSizeKB = 0 }},
		{"zero conn lifetime", func(c *Config) { c.DBConnMaxLifetimeMinutes = 0 }},
		{"idle above open", func(c *Config) { c.DBMaxIdleConns = 50 }},
		{"unknown schema mode", func(c *Config) { c.DBSchemaMode = "yolo" }},
		{"destructive automigrate in production", func(c *Config) {
			c.DBSchemaMode = SchemaModeAuto
			c.DBAutoMigrateAllowDestructive = true
		}},
		{"staff bootstrap in production", func(c *Config) { c.DevBootstrapStaff = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestImageMaxUploadBytes(t *testing.T) {
	c := validConfig()
	assert.Equal(t, int64(1536*1024), c.ImageMaxUploadBytes())
}

func TestLoadConfig_Normalization(t *testing.T) {
	t.Cleanup(viper.Reset)
	t.Setenv("APP_ENV", "development")
	t.Setenv("DB_SSLMODE", "  DISABLE  ")
	t.Setenv("DB_SCHEMA_MODE", " SQL ")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, SchemaModeSQL, c.DBSchemaMode)
	assert.Equal(t, 1536, c.ImageMaxUploadSizeKB)
	assert.Equal(t, "./media", c.MediaDir)
}

func TestLoadConfig_MissingTestProfileIsOptional(t *testing.T) {
	t.Cleanup(viper.Reset)
	t.Setenv("APP_ENV", "test")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "test", c.Env)
}

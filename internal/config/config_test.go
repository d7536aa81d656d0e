package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Env:                "production",
		DBDriver:           "postgres",
		DBSSLMode:          "require",
		JWTSecret:          "secure-secret-at-least-32-chars-long",
		DBPassword:         "secure-password",
		Port:               "8080",
		FeedPageSize:       10,
		TracingSampleRatio: 1,
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

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"missing port", func(c *Config) { c.Port = "" }, "PORT is required"},
		{"missing secret", func(c *Config) { c.JWTSecret = "" }, "JWT_SECRET is required"},
		{"default secret in production", func(c *Config) { c.JWTSecret = defaultJWTSecret }, "changed from the default"},
		{"short secret in production", func(c *Config) { c.JWTSecret = "short" }, "at least 32 characters"},
		{"unknown driver", func(c *Config) { c.DBDriver = "mysql" }, "DB_DRIVER must be postgres or sqlite"},
		{"sqlite in production", func(c *Config) { c.DBDriver = "sqlite" }, "must be postgres in production"},
		{"weak db password", func(c *Config) { c.DBPassword = "password" }, "DB_PASSWORD"},
		{"page size too large", func(c *Config) { c.FeedPageSize = 500 }, "FEED_PAGE_SIZE"},
		{"page size zero", func(c *Config) { c.FeedPageSize = 0 }, "FEED_PAGE_SIZE"},
		{"sample ratio out of range", func(c *Config) { c.TracingSampleRatio = 2 }, "TRACING_SAMPLE_RATIO"},
		{"unknown schema mode", func(c *Config) { c.DBSchemaMode = "manual" }, "DB_SCHEMA_MODE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("DB_SSLMODE", "  DISABLE  ")
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("FEED_PAGE_SIZE", "25")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, "sqlite", c.DBDriver)
	assert.Equal(t, 25, c.FeedPageSize)
	assert.Equal(t, "8080", c.Port)
	assert.Equal(t, "hybrid", c.DBSchemaMode)
	assert.False(t, c.DBAutoMigrateDestructive)
	assert.False(t, c.IsProduction())
}

func TestLoadConfig_ProductionRequiresProfile(t *testing.T) {
	t.Setenv("APP_ENV", "production")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config.production.yml")
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.HTTPPort)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Auth.AccessTTL)
	assert.Equal(t, 24*time.Hour, cfg.Auth.ConfirmationTTL)
	assert.Equal(t, 10, cfg.Pagination.PageSize)
	assert.True(t, cfg.UsesDefaultSecret())
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("YAMDB_HTTP_PORT", "9090")
	t.Setenv("YAMDB_AUTH_JWT_SECRET", "s3cret")
	t.Setenv("YAMDB_AUTH_CONFIRMATION_TTL", "15m")
	t.Setenv("YAMDB_MAIL_BACKEND", "smtp")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, "s3cret", cfg.Auth.JwtSecret)
	assert.Equal(t, 15*time.Minute, cfg.Auth.ConfirmationTTL)
	assert.Equal(t, "smtp", cfg.Mail.Backend)
	assert.False(t, cfg.UsesDefaultSecret())
}

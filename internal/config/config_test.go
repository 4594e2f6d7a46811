package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tingyu91/snsjf/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("APP_NAME", "MeanCore")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "meancore", cfg.AppName)
	assert.Equal(t, "sessionId", cfg.Session.Key)
	assert.Equal(t, 24*time.Hour, cfg.Session.MaxAge)
	assert.Contains(t, cfg.IllegalUsernames, "administrator")
	assert.Contains(t, cfg.DBURL, "sslmode=")
	assert.Equal(t, time.Duration(0), cfg.PasswordMaxAge())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/x")
	t.Setenv("ILLEGAL_USERNAMES", "root,system")
	t.Setenv("PASSWORD_MAX_AGE_DAYS", "90")
	t.Setenv("APP_ENV", "prod")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://u:p@db:5432/x", cfg.DBURL)
	assert.Equal(t, []string{"root", "system"}, cfg.IllegalUsernames)
	assert.Equal(t, 90*24*time.Hour, cfg.PasswordMaxAge())
	assert.True(t, cfg.IsProd())
}

func TestLoad_BadValue(t *testing.T) {
	t.Setenv("PORT", "not-a-number")

	_, err := config.Load()
	require.Error(t, err)
}

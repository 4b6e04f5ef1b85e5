package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, 720*time.Hour, cfg.JWTExpire)
	assert.Equal(t, 10*time.Minute, cfg.ResetTokenTTL)
	assert.Equal(t, "bootcamps", cfg.CollectionBootcampsName)
	assert.Equal(t, 30*24*60*60, cfg.CookieMaxAge())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("JWT_EXPIRE", "1h")
	t.Setenv("MAX_FILE_UPLOAD", "2048")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, time.Hour, cfg.JWTExpire)
	assert.Equal(t, int64(2048), cfg.MaxFileUpload)
}

func TestLoadRejectsDevSecretInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "development default")
}

func TestValidateCollectsAllProblems(t *testing.T) {
	err := (&Config{}).Validate()
	require.Error(t, err)
	for _, want := range []string{"PUBLIC_URL", "JWT_SECRET", "JWT_EXPIRE", "JWT_COOKIE_EXPIRE", "RESET_TOKEN_TTL", "MAX_FILE_UPLOAD"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestValidatePublicURL(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5000", cfg.PublicURL)

	for _, bad := range []string{"", "devcamper.io", "ftp://devcamper.io", "https://"} {
		cfg.PublicURL = bad
		assert.ErrorContains(t, cfg.Validate(), "PUBLIC_URL", bad)
	}
}

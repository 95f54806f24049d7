package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("APP_ENV", EnvDevelopment)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 10, cfg.Equipment.PageSize)
	assert.Equal(t, StorageDriverLocal, cfg.Storage.Driver)
	assert.Equal(t, int64(10*1024*1024), cfg.Storage.MaxUploadBytes)
	assert.Equal(t, 300, cfg.Thumbnails.Size)
	assert.Equal(t, 24*time.Hour, cfg.JWT.Expiration)
}

func TestLoadOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("EQUIPMENT_PAGE_SIZE", "25")
	t.Setenv("STORAGE_DRIVER", "S3")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.local, ,http://b.local")
	t.Setenv("JWT_EXPIRATION", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Equipment.PageSize)
	assert.Equal(t, StorageDriverS3, cfg.Storage.Driver)
	assert.Equal(t, []string{"http://a.local", "http://b.local"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 24*time.Hour, cfg.JWT.Expiration)
}

func TestLoadRejectsDefaultSecretInProduction(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("APP_ENV", EnvProduction)

	_, err := Load()
	require.Error(t, err)
}

package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"basic-cleaning/models"
	"basic-cleaning/utils"
)

func TestLoadDefaults(t *testing.T) {
	testChdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "nyc_airbnb", cfg.Project)
	assert.Equal(t, RegistryFile, cfg.RegistryBackend)
	assert.Equal(t, BlobFS, cfg.BlobBackend)
	assert.Equal(t, "./.artifacts", cfg.ArtifactRoot)
	assert.Equal(t, "./.artifacts/cache", cfg.CacheDir)
	assert.Equal(t, 5, cfg.RegistryConnectAttempts)
	assert.Equal(t, utils.LevelInfo, cfg.LogLevel)
	assert.False(t, cfg.MinioUseSSL)
}

func TestLoadFromEnv(t *testing.T) {
	testChdir(t, t.TempDir())
	t.Setenv("REGISTRY_BACKEND", "Postgres")
	t.Setenv("BLOB_BACKEND", "minio")
	t.Setenv("ARTIFACT_ROOT", "/data/artifacts")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("REGISTRY_CONNECT_ATTEMPTS", "9")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, RegistryPostgres, cfg.RegistryBackend)
	assert.Equal(t, BlobMinio, cfg.BlobBackend)
	assert.Equal(t, "/data/artifacts/cache", cfg.CacheDir)
	assert.True(t, cfg.MinioUseSSL)
	assert.Equal(t, 9, cfg.RegistryConnectAttempts)
	assert.Equal(t, utils.LevelDebug, cfg.LogLevel)
}

func TestLoadRejectsUnknownBackends(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"REGISTRY_BACKEND", "sqlite"},
		{"BLOB_BACKEND", "gcs"},
		{"LOG_LEVEL", "chatty"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			testChdir(t, t.TempDir())
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)

			var cfgErr *models.ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.key, cfgErr.Key)
		})
	}
}

func TestDSN(t *testing.T) {
	c := &Config{
		PostgresHost: "db", PostgresPort: "5433", PostgresUser: "u",
		PostgresPassword: "p", PostgresDB: "d", PostgresSSLMode: "require",
	}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=d sslmode=require", c.DSN())
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "sqlite://test.db")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "127.0.0.1:8001", cfg.Addr())
	require.Equal(t, "http://127.0.0.1:8000", cfg.Inference.BaseURL)
	require.Equal(t, 30*time.Second, cfg.Inference.Timeout)
	require.Equal(t, 2, cfg.Inference.MaxRetries)
	require.Equal(t, 5*time.Second, cfg.Database.QueryTimeout)
	require.Equal(t, "images", cfg.S3.BucketName)
	require.Equal(t, 4, cfg.Archive.Workers)
	require.Equal(t, 64, cfg.Archive.QueueSize)
	require.Equal(t, int64(10*1024*1024), cfg.App.MaxUploadSize)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://user:pass@db:5432/mrbeam?sslmode=disable")
	t.Setenv("ML_SERVICE", "http://ml:8011")
	t.Setenv("INFERENCE_TIMEOUT", "2s")
	t.Setenv("INFERENCE_MAX_RETRIES", "0")
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("ARCHIVE_WORKERS", "1")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "http://ml:8011", cfg.Inference.BaseURL)
	require.Equal(t, 2*time.Second, cfg.Inference.Timeout)
	require.Equal(t, 0, cfg.Inference.MaxRetries)
	require.Equal(t, "127.0.0.1:9000", cfg.Addr())
	require.Equal(t, 1, cfg.Archive.Workers)
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	require.ErrorContains(t, err, "DATABASE_URL is required")
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := &Config{}

	err := cfg.Validate()
	require.Error(t, err)
	require.ErrorContains(t, err, "DATABASE_URL")
	require.ErrorContains(t, err, "ARCHIVE_WORKERS")
	require.ErrorContains(t, err, "APP_MAX_UPLOAD_SIZE")
}

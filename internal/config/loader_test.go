package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_FileWithDefaults(t *testing.T) {
	path := writeConfig(t, `
service:
  name: webhookd-test
webhook:
  listen: "127.0.0.1:9090"
  shared_secret: "file-secret"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "webhookd-test", cfg.Service.Name)
	assert.Equal(t, "127.0.0.1:9090", cfg.Webhook.Listen)
	assert.Equal(t, "file-secret", cfg.Webhook.SharedSecret)
	// Untouched sections keep defaults.
	assert.Equal(t, "info", cfg.Service.LogLevel)
	assert.True(t, cfg.Retry.DrainEnabled)
	assert.Equal(t, 5*time.Second, cfg.Retry.DrainInterval)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
webhook:
  listen: "127.0.0.1:9090"
  shared_secret: "file-secret"
`)
	t.Setenv("WEBHOOKD_SHARED_SECRET", "env-secret")
	t.Setenv("WEBHOOKD_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-secret", cfg.Webhook.SharedSecret)
	assert.Equal(t, "debug", cfg.Service.LogLevel)
	assert.Equal(t, "127.0.0.1:9090", cfg.Webhook.Listen, "unset env vars leave file values alone")
}

func TestLoad_NoFileEnvOnly(t *testing.T) {
	t.Setenv("WEBHOOKD_SHARED_SECRET", "env-secret")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "env-secret", cfg.Webhook.SharedSecret)
	assert.Equal(t, "127.0.0.1:8080", cfg.Webhook.Listen)
}

func TestLoad_MissingSecretRejected(t *testing.T) {
	path := writeConfig(t, `
webhook:
  listen: "127.0.0.1:9090"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shared_secret")
}

func TestLoad_MissingFileRejected(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

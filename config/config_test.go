package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dashkit/authcore/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.APIBaseURL)
	assert.Equal(t, "/auth/login", cfg.LoginPath)
	assert.Equal(t, "/auth/refresh", cfg.RefreshPath)
	assert.Equal(t, "/auth/me", cfg.IdentityPath)
	assert.Equal(t, "/auth/logout", cfg.LogoutPath)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, time.Minute, cfg.ExpiryBuffer)
	assert.Contains(t, cfg.DatabasePath, ".authcore")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("AUTHCORE_API_URL", "https://api.example.com")
	t.Setenv("AUTHCORE_HTTP_TIMEOUT", "10s")
	t.Setenv("AUTHCORE_DB_PATH", "/tmp/custom.db")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", cfg.APIBaseURL)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "/tmp/custom.db", cfg.DatabasePath)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "authcore.yml")
	content := []byte("api_base_url: https://dash.example.com\nexpiry_buffer: \"2m\"\ndatabase_path: /tmp/dash.db\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://dash.example.com", cfg.APIBaseURL)
	assert.Equal(t, 2*time.Minute, cfg.ExpiryBuffer)
	assert.Equal(t, "/tmp/dash.db", cfg.DatabasePath)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

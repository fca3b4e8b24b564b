package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig drops a config file into a fake home's allowed directory.
func writeConfig(t *testing.T, content string, perm os.FileMode) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", "lifebank")
	require.NoError(t, os.MkdirAll(dir, 0700))
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), perm))
	return path
}

func TestLoadWithFile_Defaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := LoadWithFile("")
	require.NoError(t, err, "missing file falls back to defaults")
	assert.Equal(t, 8950, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadWithFile_YAML(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
collaborator:
  provider: anthropic
  api_key: sk-test
extraction:
  review_confidence: 0.8
`, 0600)

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "anthropic", cfg.Collaborator.Provider)
	assert.Equal(t, "sk-test", cfg.Collaborator.APIKey.Value())
	assert.Equal(t, 0.8, cfg.Extraction.ReviewConfidence)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host, "unset fields keep defaults")
}

func TestLoadWithFile_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9000\n", 0600)
	t.Setenv("SERVER_PORT", "9100")
	t.Setenv("COLLABORATOR_API_KEY", "sk-env")

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "sk-env", cfg.Collaborator.APIKey.Value())
}

func TestLoadWithFile_RejectsWeakPermissions(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9000\n", 0644)

	_, err := LoadWithFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insecure config file permissions")
}

func TestLoadWithFile_RejectsPathOutsideAllowedDirs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	outside := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(outside, []byte("server:\n  port: 9000\n"), 0600))

	_, err := LoadWithFile(outside)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file must be in")
}

func TestLoadWithFile_RejectsInvalidValues(t *testing.T) {
	path := writeConfig(t, "collaborator:\n  provider: martian\n", 0600)

	_, err := LoadWithFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
}

func TestEnsureConfigDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	require.NoError(t, EnsureConfigDir())
	info, err := os.Stat(filepath.Join(home, ".config", "lifebank"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
}

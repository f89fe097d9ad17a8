package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_NoFilesReturnsZeroValue(t *testing.T) {
	s, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "", s.LogLevel)
	assert.Nil(t, s.Telemetry)
}

func TestLoad_ProjectSettingsOnly(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git-sync-world"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, SettingsFile), []byte(`{"log_level":"debug","telemetry":true}`), 0o644))

	s, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "debug", s.LogLevel)
	require.NotNil(t, s.Telemetry)
	assert.True(t, *s.Telemetry)
}

func TestLoad_LocalOverridesProject(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git-sync-world"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, SettingsFile), []byte(`{"log_level":"info","telemetry":true}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, SettingsLocalFile), []byte(`{"telemetry":false}`), 0o644))

	s, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "info", s.LogLevel)
	require.NotNil(t, s.Telemetry)
	assert.False(t, *s.Telemetry)
}

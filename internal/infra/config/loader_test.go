package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plaintasks/plaintasks/internal/domain"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, domain.ConfigFileName), []byte(content), 0o644))
}

func TestLoader_DefaultsWhenNoFiles(t *testing.T) {
	dataDir := t.TempDir()
	l := NewLoaderWithGlobalDir(dataDir, t.TempDir())

	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, dataDir, cfg.DataDir, "data dir falls back to the loader's")
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 500, cfg.FlushWindowMS)
	assert.Equal(t, 200, cfg.WatchDebounceMS)
	assert.Equal(t, 100, cfg.RecurrenceLimit)
	assert.Equal(t, 14, cfg.AutoHideDays)
}

func TestLoader_GlobalOverridesDefaults(t *testing.T) {
	dataDir := t.TempDir()
	globalDir := t.TempDir()
	writeConfig(t, globalDir, "log_level = \"debug\"\nflush_window_ms = 1000\n")

	cfg, err := NewLoaderWithGlobalDir(dataDir, globalDir).Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 1000, cfg.FlushWindowMS)
	assert.Equal(t, 200, cfg.WatchDebounceMS, "untouched fields keep defaults")
}

func TestLoader_LocalOverridesGlobal(t *testing.T) {
	dataDir := t.TempDir()
	globalDir := t.TempDir()
	writeConfig(t, globalDir, "log_level = \"debug\"\nauto_hide_days = 30\n")
	writeConfig(t, dataDir, "log_level = \"warn\"\n")

	cfg, err := NewLoaderWithGlobalDir(dataDir, globalDir).Load()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel, "the data-dir config wins")
	assert.Equal(t, 30, cfg.AutoHideDays, "unset local fields fall through to global")
}

func TestLoader_MalformedTOML(t *testing.T) {
	dataDir := t.TempDir()
	writeConfig(t, dataDir, "log_level = [what\n")

	_, err := NewLoaderWithGlobalDir(dataDir, t.TempDir()).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}

func TestLoader_SaveLoadRoundTrip(t *testing.T) {
	dataDir := t.TempDir()
	l := NewLoaderWithGlobalDir(dataDir, t.TempDir())

	want := domain.NewDefaultConfig()
	want.LogLevel = "debug"
	want.RecurrenceLimit = 50
	require.NoError(t, l.Save(want))

	got, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", got.LogLevel)
	assert.Equal(t, 50, got.RecurrenceLimit)
	assert.Equal(t, dataDir, got.DataDir)
}

func TestConfig_DurationHelpers(t *testing.T) {
	cfg := domain.NewDefaultConfig()
	assert.Equal(t, "500ms", cfg.FlushWindow().String())
	assert.Equal(t, "200ms", cfg.WatchDebounce().String())
}

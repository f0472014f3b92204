package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plaintasks/plaintasks/internal/domain"
)

func readLog(t *testing.T, dataDir string) string {
	t.Helper()
	data, err := os.ReadFile(domain.GlobalLogPath(dataDir))
	require.NoError(t, err)
	return string(data)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), tt.in)
	}
}

func TestLogger_WritesFormattedLine(t *testing.T) {
	dir := t.TempDir()
	l := New(dir, slog.LevelInfo)
	defer l.Close()

	l.Info("store", "flush complete")

	content := readLog(t, dir)
	assert.Contains(t, content, "[INFO] [store] flush complete")
	assert.True(t, strings.HasPrefix(content, "["), "line starts with a timestamp")
}

func TestLogger_LevelFiltering(t *testing.T) {
	dir := t.TempDir()
	l := New(dir, slog.LevelWarn)
	defer l.Close()

	l.Debug("monitor", "dropped debug")
	l.Info("monitor", "dropped info")
	l.Warn("monitor", "kept warn")
	l.Error("monitor", "kept error")

	content := readLog(t, dir)
	assert.NotContains(t, content, "dropped debug")
	assert.NotContains(t, content, "dropped info")
	assert.Contains(t, content, "[WARN] [monitor] kept warn")
	assert.Contains(t, content, "[ERROR] [monitor] kept error")
}

func TestLogger_DisabledWithoutDataDir(t *testing.T) {
	l := New("", slog.LevelDebug)
	l.Info("noop", "goes nowhere")
	require.NoError(t, l.Close())
}

func TestLogger_AppendsAcrossInstances(t *testing.T) {
	dir := t.TempDir()

	first := New(dir, slog.LevelInfo)
	first.Info("app", "first run")
	require.NoError(t, first.Close())

	second := New(dir, slog.LevelInfo)
	second.Info("app", "second run")
	require.NoError(t, second.Close())

	content := readLog(t, dir)
	assert.Contains(t, content, "first run")
	assert.Contains(t, content, "second run")
}

func TestLogger_CreatesLogsDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	l := New(dir, slog.LevelInfo)
	defer l.Close()

	l.Info("app", "hello")
	info, err := os.Stat(domain.LogsDir(dir))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestFormatLog(t *testing.T) {
	at := time.Date(2026, 8, 25, 9, 30, 0, 0, time.UTC)
	got := formatLog(at, slog.LevelWarn, "store", "slow flush")
	assert.Equal(t, "[2026-08-25 09:30:00] [WARN] [store] slow flush\n", got)
}

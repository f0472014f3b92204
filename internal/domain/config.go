package domain

import "time"

// Config holds application settings loaded from config.toml files.
// Fields are ordered to minimize memory padding.
type Config struct {
	DataDir         string `toml:"data_dir"`
	LogLevel        string `toml:"log_level"`
	FlushWindowMS   int    `toml:"flush_window_ms"`
	WatchDebounceMS int    `toml:"watch_debounce_ms"`
	RecurrenceLimit int    `toml:"recurrence_limit"`
	AutoHideDays    int    `toml:"auto_hide_days"`
}

// NewDefaultConfig returns the built-in defaults.
func NewDefaultConfig() *Config {
	return &Config{
		LogLevel:        "info",
		FlushWindowMS:   500,
		WatchDebounceMS: 200,
		RecurrenceLimit: 100,
		AutoHideDays:    14,
	}
}

// FlushWindow returns the write coalescer's quiescence window.
func (c *Config) FlushWindow() time.Duration {
	return time.Duration(c.FlushWindowMS) * time.Millisecond
}

// WatchDebounce returns the external change monitor's per-path debounce
// window.
func (c *Config) WatchDebounce() time.Duration {
	return time.Duration(c.WatchDebounceMS) * time.Millisecond
}

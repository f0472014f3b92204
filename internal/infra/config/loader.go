// Package config provides configuration loading functionality.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/plaintasks/plaintasks/internal/domain"
)

// Loader loads configuration from TOML files.
type Loader struct {
	dataDir       string // Path to the data directory
	globalConfDir string // Path to global config directory (e.g., ~/.config/plaintasks)
}

// NewLoader creates a new Loader.
func NewLoader(dataDir string) *Loader {
	return &Loader{
		dataDir:       dataDir,
		globalConfDir: defaultGlobalConfigDir(),
	}
}

// NewLoaderWithGlobalDir creates a new Loader with a custom global config
// directory. This is useful for testing.
func NewLoaderWithGlobalDir(dataDir, globalConfDir string) *Loader {
	return &Loader{
		dataDir:       dataDir,
		globalConfDir: globalConfDir,
	}
}

// defaultGlobalConfigDir returns the default global config directory.
func defaultGlobalConfigDir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "plaintasks")
}

// Load returns the merged configuration. Merge order is
// default <- global <- data-dir local, later sources taking precedence.
func (l *Loader) Load() (*domain.Config, error) {
	base := domain.NewDefaultConfig()

	global, err := l.loadFile(filepath.Join(l.globalConfDir, domain.ConfigFileName))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if global != nil {
		merge(base, global)
	}

	local, err := l.loadFile(filepath.Join(l.dataDir, domain.ConfigFileName))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if local != nil {
		merge(base, local)
	}

	if base.DataDir == "" {
		base.DataDir = l.dataDir
	}
	return base, nil
}

// loadFile loads a configuration from a file. Missing files propagate
// os.ErrNotExist; malformed TOML is an error.
func (l *Loader) loadFile(path string) (*domain.Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Config paths come from known directories
	if err != nil {
		return nil, err
	}
	var cfg domain.Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

// merge overlays override's set fields onto base. Zero values mean "not
// set" and leave the base value in place.
func merge(base, override *domain.Config) {
	if override.DataDir != "" {
		base.DataDir = override.DataDir
	}
	if override.LogLevel != "" {
		base.LogLevel = override.LogLevel
	}
	if override.FlushWindowMS != 0 {
		base.FlushWindowMS = override.FlushWindowMS
	}
	if override.WatchDebounceMS != 0 {
		base.WatchDebounceMS = override.WatchDebounceMS
	}
	if override.RecurrenceLimit != 0 {
		base.RecurrenceLimit = override.RecurrenceLimit
	}
	if override.AutoHideDays != 0 {
		base.AutoHideDays = override.AutoHideDays
	}
}

// Save writes the config to the data directory's config.toml.
func (l *Loader) Save(cfg *domain.Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	path := filepath.Join(l.dataDir, domain.ConfigFileName)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // Config is user-readable text
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Package app provides the dependency injection container for the
// application.
package app

import (
	"fmt"

	"github.com/plaintasks/plaintasks/internal/domain"
	"github.com/plaintasks/plaintasks/internal/infra/config"
	"github.com/plaintasks/plaintasks/internal/infra/filestore"
	"github.com/plaintasks/plaintasks/internal/infra/logging"
	"github.com/plaintasks/plaintasks/internal/infra/watcher"
	"github.com/plaintasks/plaintasks/internal/monitor"
	"github.com/plaintasks/plaintasks/internal/recur"
	"github.com/plaintasks/plaintasks/internal/store"
)

// Container wires the persistence gateway, the store, and the engines
// around one data directory.
type Container struct {
	Config  *domain.Config
	Clock   domain.Clock
	Logger  *logging.Logger
	Files   *filestore.Store
	Store   *store.Store
	Recur   *recur.Engine
	Monitor *monitor.Monitor
}

// New builds a Container for the data directory. Configuration is
// merged from the global config dir and the data dir itself.
func New(dataDir string) (*Container, error) {
	cfg, err := config.NewLoader(dataDir).Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	clock := domain.RealClock{}
	logger := logging.New(cfg.DataDir, logging.ParseLevel(cfg.LogLevel))
	files := filestore.New(cfg.DataDir, clock)
	st := store.New(files, clock, logger, store.Options{
		FlushWindow:  cfg.FlushWindow(),
		AutoHideDays: cfg.AutoHideDays,
	})

	c := &Container{
		Config: cfg,
		Clock:  clock,
		Logger: logger,
		Files:  files,
		Store:  st,
		Recur:  recur.New(st, clock, logger, cfg.RecurrenceLimit),
	}
	c.Monitor = monitor.New(st, files, watcher.New(logger), logger, monitor.Options{
		Debounce: cfg.WatchDebounce(),
	})
	return c, nil
}

// Load reads every record from disk into the store and ensures the
// built-in boards exist. Per-file load failures are logged and skipped.
func (c *Container) Load() error {
	result, err := c.Files.LoadAll()
	if err != nil {
		return err
	}
	for _, le := range result.Errors {
		c.Logger.Warn("load", le.Error())
	}
	c.Store.Seed(result.Tasks, result.Boards)
	c.Store.EnsureBuiltinBoards()
	return nil
}

// StartMonitor begins watching the data tree for external edits.
func (c *Container) StartMonitor() error {
	return c.Monitor.Start()
}

// Shutdown flushes dirty state and releases resources. Safe to call
// whether or not the monitor was started.
func (c *Container) Shutdown() error {
	var first error
	if c.Monitor != nil {
		if err := c.Monitor.Close(); err != nil && first == nil {
			first = err
		}
	}
	if err := c.Store.Close(); err != nil && first == nil {
		first = err
	}
	if err := c.Logger.Close(); err != nil && first == nil {
		first = err
	}
	return first
}

// Package watcher adapts fsnotify to the DirWatcher port. It watches
// the data tree recursively, adding new subdirectories as they appear,
// and forwards raw change events for the monitor to debounce.
package watcher

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/plaintasks/plaintasks/internal/domain"
)

// Watcher streams filesystem events for the data root.
type Watcher struct {
	log    domain.Logger
	fsw    *fsnotify.Watcher
	events chan domain.FileEvent
	done   chan struct{}
	wg     sync.WaitGroup
}

// New creates an unstarted watcher.
func New(log domain.Logger) *Watcher {
	return &Watcher{
		log:    log,
		events: make(chan domain.FileEvent, 64),
		done:   make(chan struct{}),
	}
}

// Start begins watching root and all its subdirectories. Directories
// created later are added to the watch set when their create event
// arrives.
func (w *Watcher) Start(root string) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	w.fsw = fsw
	if err := w.addTree(root); err != nil {
		_ = fsw.Close()
		return err
	}
	w.wg.Add(1)
	go w.run()
	return nil
}

// Events returns the event stream. It closes after Close.
func (w *Watcher) Events() <-chan domain.FileEvent {
	return w.events
}

// Close stops the watcher and closes the event channel.
func (w *Watcher) Close() error {
	if w.fsw == nil {
		return nil
	}
	close(w.done)
	err := w.fsw.Close()
	w.wg.Wait()
	close(w.events)
	return err
}

func (w *Watcher) run() {
	defer w.wg.Done()
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch", err.Error())
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if ev.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addTree(ev.Name); err != nil {
				w.log.Warn("watch", fmt.Sprintf("watch new directory %s: %v", ev.Name, err))
			}
			return
		}
	}
	op, ok := mapOp(ev.Op)
	if !ok {
		return
	}
	select {
	case w.events <- domain.FileEvent{Path: ev.Name, Op: op}:
	case <-w.done:
	}
}

// addTree registers dir and every directory below it.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func mapOp(op fsnotify.Op) (domain.FileOp, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return domain.FileCreated, true
	case op.Has(fsnotify.Write):
		return domain.FileWritten, true
	case op.Has(fsnotify.Remove):
		return domain.FileRemoved, true
	case op.Has(fsnotify.Rename):
		return domain.FileRenamed, true
	default:
		// Chmod and other noise.
		return "", false
	}
}

// Package monitor reconciles external file edits into the in-memory
// store. Raw watcher events are debounced per path, the gateway's
// self-write marks filter out our own writes, and what remains is
// classified as an external create, update, delete, or conflict.
package monitor

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/plaintasks/plaintasks/internal/domain"
)

// Files is the persistence gateway surface the monitor reads through.
type Files interface {
	Root() string
	RecentlyWritten(path string) bool
	ReadTaskWithText(path string) (*domain.Task, string, error)
	ReadBoard(path string) (*domain.Board, string, error)
}

// State is the store surface the monitor reconciles against.
type State interface {
	Task(id string) (*domain.Task, bool)
	IsDirty(id string) bool
	Baseline(id string) string
	ApplyExternalTask(t *domain.Task, raw string)
	MarkExternallyDeleted(id string)
	EmitConflict(local, external *domain.Task, path string)

	Board(slug string) (*domain.Board, bool)
	IsBoardDirty(slug string) bool
	BoardBaseline(slug string) string
	ApplyExternalBoard(b *domain.Board, raw string)
	BoardExternallyDeleted(slug string)
}

// Options configures a Monitor.
type Options struct {
	Timers   domain.TimerSource // nil = time.AfterFunc
	Debounce time.Duration      // 0 = 200ms
}

// Monitor watches the data tree and reconciles external changes.
type Monitor struct {
	state    State
	files    Files
	watcher  domain.DirWatcher
	log      domain.Logger
	timers   domain.TimerSource
	debounce time.Duration

	// pending holds the per-path debounce timers. An editor saving a
	// file often produces several events in quick succession; each one
	// re-arms the path's timer, so one reconciliation runs per burst.
	pending map[string]domain.Timer
	mu      sync.Mutex

	done chan struct{}
	wg   sync.WaitGroup
}

// New creates an unstarted Monitor.
func New(state State, files Files, watcher domain.DirWatcher, log domain.Logger, opts Options) *Monitor {
	if opts.Debounce == 0 {
		opts.Debounce = 200 * time.Millisecond
	}
	timers := opts.Timers
	if timers == nil {
		timers = domain.StdTimerSource
	}
	return &Monitor{
		state:    state,
		files:    files,
		watcher:  watcher,
		log:      log,
		timers:   timers,
		debounce: opts.Debounce,
		pending:  make(map[string]domain.Timer),
		done:     make(chan struct{}),
	}
}

// Start begins watching the data tree.
func (m *Monitor) Start() error {
	if err := m.watcher.Start(m.files.Root()); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	m.wg.Add(1)
	go m.run()
	return nil
}

// Close stops the watcher and cancels pending reconciliations.
func (m *Monitor) Close() error {
	close(m.done)
	err := m.watcher.Close()
	m.wg.Wait()
	m.mu.Lock()
	for path, timer := range m.pending {
		timer.Stop()
		delete(m.pending, path)
	}
	m.mu.Unlock()
	return err
}

func (m *Monitor) run() {
	defer m.wg.Done()
	for {
		select {
		case ev, ok := <-m.watcher.Events():
			if !ok {
				return
			}
			m.Observe(ev)
		case <-m.done:
			return
		}
	}
}

// Observe feeds one raw file event into the debouncer. Exported so
// tests drive the monitor without a real filesystem watcher.
func (m *Monitor) Observe(ev domain.FileEvent) {
	if !strings.HasSuffix(ev.Path, domain.RecordExt) {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if timer, ok := m.pending[ev.Path]; ok {
		timer.Stop()
	}
	path := ev.Path
	m.pending[path] = m.timers(m.debounce, func() {
		m.mu.Lock()
		delete(m.pending, path)
		m.mu.Unlock()
		m.Reconcile(path)
	})
}

// Reconcile inspects one settled path and applies the external change.
func (m *Monitor) Reconcile(path string) {
	if m.files.RecentlyWritten(path) {
		m.log.Debug("monitor", "self write: "+path)
		return
	}
	switch {
	case m.isBoardPath(path):
		m.reconcileBoard(path)
	case m.isTaskPath(path):
		m.reconcileTask(path)
	}
}

func (m *Monitor) isTaskPath(path string) bool {
	root := m.files.Root()
	sep := string(filepath.Separator)
	return strings.HasPrefix(path, domain.ActiveTasksDir(root)+sep) ||
		strings.HasPrefix(path, domain.ArchiveTasksDir(root)+sep)
}

func (m *Monitor) isBoardPath(path string) bool {
	return filepath.Dir(path) == domain.BoardsDir(m.files.Root())
}

func (m *Monitor) reconcileTask(path string) {
	external, raw, err := m.files.ReadTaskWithText(path)
	if err != nil {
		m.log.Warn("monitor", fmt.Sprintf("ignore malformed record %s: %v", path, err))
		return
	}
	if external == nil {
		m.taskFileGone(path)
		return
	}

	if m.state.Baseline(external.ID) == raw {
		// File content matches what we last persisted; nothing external
		// happened (a rename event can replay our own content).
		return
	}
	local, exists := m.state.Task(external.ID)
	if exists && m.state.IsDirty(external.ID) {
		m.log.Info("monitor", "conflict on "+external.ID)
		m.state.EmitConflict(local, external, path)
		return
	}
	m.state.ApplyExternalTask(external, raw)
	m.log.Info("monitor", "external change applied: "+external.ID)
}

// taskFileGone handles a task record disappearing. The same ID may
// legitimately live in the other lifecycle bucket or under a renamed
// slug, so deletion is reported only when no record for the ID remains.
func (m *Monitor) taskFileGone(path string) {
	id, ok := domain.ParseTaskFileID(filepath.Base(path))
	if !ok {
		return
	}
	if _, exists := m.state.Task(id); !exists {
		return
	}
	if m.recordExists(id) {
		return
	}
	m.log.Info("monitor", "external delete detected: "+id)
	m.state.MarkExternallyDeleted(id)
}

// recordExists scans both lifecycle buckets for any record of the ID.
func (m *Monitor) recordExists(id string) bool {
	root := m.files.Root()
	for _, tree := range []string{domain.ActiveTasksDir(root), domain.ArchiveTasksDir(root)} {
		matches, err := filepath.Glob(filepath.Join(tree, "*", "*", id+"-*"+domain.RecordExt))
		if err == nil && len(matches) > 0 {
			return true
		}
	}
	return false
}

func (m *Monitor) reconcileBoard(path string) {
	external, raw, err := m.files.ReadBoard(path)
	if err != nil {
		m.log.Warn("monitor", fmt.Sprintf("ignore malformed record %s: %v", path, err))
		return
	}
	if external == nil {
		slug := strings.TrimSuffix(filepath.Base(path), domain.RecordExt)
		if _, exists := m.state.Board(slug); exists {
			m.state.BoardExternallyDeleted(slug)
		}
		return
	}
	if m.state.BoardBaseline(external.Slug) == raw {
		return
	}
	if m.state.IsBoardDirty(external.Slug) {
		// Board conflicts are not worth a resolution flow; the local
		// edit wins and the next flush rewrites the file.
		m.log.Warn("monitor", "external board edit lost to local edit: "+external.Slug)
		return
	}
	m.state.ApplyExternalBoard(external, raw)
	m.log.Info("monitor", "external board change applied: "+external.Slug)
}

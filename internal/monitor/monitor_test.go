package monitor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plaintasks/plaintasks/internal/domain"
	"github.com/plaintasks/plaintasks/internal/infra/codec"
	"github.com/plaintasks/plaintasks/internal/infra/filestore"
	"github.com/plaintasks/plaintasks/internal/store"
	"github.com/plaintasks/plaintasks/internal/testutil"
)

// stubWatcher satisfies domain.DirWatcher for tests that drive the
// monitor through Observe directly.
type stubWatcher struct {
	events chan domain.FileEvent
}

func newStubWatcher() *stubWatcher {
	return &stubWatcher{events: make(chan domain.FileEvent)}
}

func (w *stubWatcher) Start(string) error              { return nil }
func (w *stubWatcher) Events() <-chan domain.FileEvent { return w.events }
func (w *stubWatcher) Close() error                    { close(w.events); return nil }

// fixture wires a real gateway and store to the monitor. The store's
// flush timers and the monitor's debounce timers are kept separate so
// a test can settle the debounce without also firing a pending flush.
type fixture struct {
	store  *store.Store
	files  *filestore.Store
	mon    *Monitor
	timers *testutil.ManualTimers // monitor debounce
	flush  *testutil.ManualTimers // store flush window
	clock  *testutil.MockClock
	log    *testutil.MemoryLogger
	events []domain.Event
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		timers: testutil.NewManualTimers(),
		flush:  testutil.NewManualTimers(),
		clock:  testutil.NewMockClock(time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)),
		log:    &testutil.MemoryLogger{},
	}
	f.files = filestore.New(t.TempDir(), f.clock)
	require.NoError(t, f.files.Initialize())
	f.store = store.New(f.files, f.clock, f.log, store.Options{Timers: f.flush.Source})
	f.store.Subscribe(func(ev domain.Event) { f.events = append(f.events, ev) })
	f.mon = New(f.store, f.files, newStubWatcher(), f.log, Options{Timers: f.timers.Source})
	return f
}

func (f *fixture) externalEvents() []domain.Event {
	var out []domain.Event
	for _, ev := range f.events {
		if ev.Origin == domain.OriginExternal {
			out = append(out, ev)
		}
	}
	return out
}

// writeExternal simulates a text editor writing a task record.
func (f *fixture) writeExternal(t *testing.T, task *domain.Task) string {
	t.Helper()
	path := f.files.TaskPath(task)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(codec.EncodeTask(task)), 0o644))
	return path
}

func externalTask(title string) *domain.Task {
	now := time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)
	return &domain.Task{
		ID:       uuid.NewString(),
		Kind:     domain.KindTask,
		Title:    title,
		Status:   domain.StatusInbox,
		Priority: domain.PriorityMedium,
		Created:  now,
		Modified: now,
	}
}

func TestMonitor_ExternalCreate(t *testing.T) {
	f := newFixture(t)
	task := externalTask("Created in an editor")
	path := f.writeExternal(t, task)

	f.mon.Observe(domain.FileEvent{Path: path, Op: domain.FileCreated})
	f.timers.FireAll()

	got, ok := f.store.Task(task.ID)
	require.True(t, ok)
	assert.Equal(t, "Created in an editor", got.Title)
	assert.False(t, f.store.IsDirty(task.ID))

	ext := f.externalEvents()
	require.Len(t, ext, 1)
	assert.Equal(t, domain.EventCreated, ext[0].Type)
}

func TestMonitor_ExternalUpdate(t *testing.T) {
	f := newFixture(t)
	task := externalTask("Original")
	require.NoError(t, f.store.AddTask(task))
	require.NoError(t, f.store.FlushNow())
	f.clock.Advance(3 * time.Second) // Let the self-write mark expire
	f.events = nil

	edited := task.Clone()
	edited.Title = "Original" // Same slug, so same path
	edited.Body = "edited externally\n"
	path := f.writeExternal(t, edited)

	f.mon.Observe(domain.FileEvent{Path: path, Op: domain.FileWritten})
	f.timers.FireAll()

	got, _ := f.store.Task(task.ID)
	assert.Equal(t, "edited externally\n", got.Body)
	ext := f.externalEvents()
	require.Len(t, ext, 1)
	assert.Equal(t, domain.EventUpdated, ext[0].Type)
}

func TestMonitor_Debounce_OneReconcilePerBurst(t *testing.T) {
	f := newFixture(t)
	task := externalTask("Bursty")
	path := f.writeExternal(t, task)

	for i := 0; i < 5; i++ {
		f.mon.Observe(domain.FileEvent{Path: path, Op: domain.FileWritten})
	}
	assert.Equal(t, 1, f.timers.Armed(), "burst re-arms one timer per path")

	f.timers.FireAll()
	assert.Len(t, f.externalEvents(), 1)
}

func TestMonitor_SelfWriteSuppressed(t *testing.T) {
	f := newFixture(t)
	task := externalTask("Our own")
	require.NoError(t, f.store.AddTask(task))
	require.NoError(t, f.store.FlushNow())
	f.events = nil

	got, _ := f.store.Task(task.ID)
	path := f.files.TaskPath(got)
	f.mon.Observe(domain.FileEvent{Path: path, Op: domain.FileWritten})
	f.timers.FireAll()

	assert.Empty(t, f.externalEvents(), "our own flush is not an external change")

	// A genuinely external edit to the same path afterwards still lands.
	edited := got.Clone()
	edited.Body = "now external\n"
	f.writeExternal(t, edited)
	f.mon.Observe(domain.FileEvent{Path: path, Op: domain.FileWritten})
	f.timers.FireAll()
	require.Len(t, f.externalEvents(), 1)
}

func TestMonitor_Conflict_NeitherSideOverwritten(t *testing.T) {
	f := newFixture(t)
	task := externalTask("Contested")
	require.NoError(t, f.store.AddTask(task))
	require.NoError(t, f.store.FlushNow())
	f.clock.Advance(3 * time.Second)
	f.events = nil

	// Unsaved local edit.
	local := task.Clone()
	local.Title = "Contested" // Keep the slug stable
	local.Body = "local edit\n"
	require.NoError(t, f.store.UpdateTask(local))
	require.True(t, f.store.IsDirty(task.ID))

	// External edit to the same record before the flush fires.
	external := task.Clone()
	external.Body = "external edit\n"
	path := f.writeExternal(t, external)

	f.mon.Observe(domain.FileEvent{Path: path, Op: domain.FileWritten})
	f.timers.FireAll()

	ext := f.externalEvents()
	require.Len(t, ext, 1)
	require.Equal(t, domain.EventConflict, ext[0].Type)
	require.NotNil(t, ext[0].Conflict)
	assert.Equal(t, "local edit\n", ext[0].Conflict.Local.Body)
	assert.Equal(t, "external edit\n", ext[0].Conflict.External.Body)
	assert.Equal(t, path, ext[0].Conflict.Path)

	// In-memory state keeps the local edit; the file keeps the external
	// one.
	got, _ := f.store.Task(task.ID)
	assert.Equal(t, "local edit\n", got.Body)
	assert.True(t, f.store.IsDirty(task.ID))
	onDisk, _, err := f.files.ReadTaskWithText(path)
	require.NoError(t, err)
	assert.Equal(t, "external edit\n", onDisk.Body)
}

func TestMonitor_ExternalDelete(t *testing.T) {
	f := newFixture(t)
	task := externalTask("Vanishing")
	require.NoError(t, f.store.AddTask(task))
	require.NoError(t, f.store.FlushNow())
	f.clock.Advance(3 * time.Second)
	f.events = nil

	got, _ := f.store.Task(task.ID)
	path := f.files.TaskPath(got)
	require.NoError(t, os.Remove(path))

	f.mon.Observe(domain.FileEvent{Path: path, Op: domain.FileRemoved})
	f.timers.FireAll()

	ext := f.externalEvents()
	require.Len(t, ext, 1)
	assert.Equal(t, domain.EventExternallyDeleted, ext[0].Type)
	_, ok := f.store.Task(task.ID)
	assert.True(t, ok, "entity kept until the deletion is accepted")
}

func TestMonitor_MalformedExternalFileIgnored(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(domain.ActiveTasksDir(f.files.Root()), "2026", "08",
		uuid.NewString()+"-junk.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte("definitely not a record"), 0o644))

	f.mon.Observe(domain.FileEvent{Path: path, Op: domain.FileCreated})
	f.timers.FireAll()

	assert.Empty(t, f.externalEvents())
	assert.True(t, f.log.Has("warn", "malformed"))
}

func TestMonitor_IgnoresNonRecordPaths(t *testing.T) {
	f := newFixture(t)
	f.mon.Observe(domain.FileEvent{Path: "/tmp/whatever.tmp", Op: domain.FileWritten})
	f.mon.Observe(domain.FileEvent{Path: "/tmp/notes.md", Op: domain.FileWritten})
	assert.Zero(t, f.timers.Armed())
}

func TestMonitor_UnchangedContentIgnored(t *testing.T) {
	f := newFixture(t)
	task := externalTask("Steady")
	require.NoError(t, f.store.AddTask(task))
	require.NoError(t, f.store.FlushNow())
	f.events = nil

	got, _ := f.store.Task(task.ID)
	path := f.files.TaskPath(got)
	// Consume the self-write mark, then replay identical content (a
	// rename or editor save that changed nothing).
	require.True(t, f.files.RecentlyWritten(path))
	f.mon.Observe(domain.FileEvent{Path: path, Op: domain.FileWritten})
	f.timers.FireAll()

	assert.Empty(t, f.externalEvents())
}

func TestMonitor_ExternalBoardEdit(t *testing.T) {
	f := newFixture(t)
	f.store.EnsureBuiltinBoards()
	require.NoError(t, f.store.FlushNow())
	f.clock.Advance(3 * time.Second)
	f.events = nil

	board, _ := f.store.Board("inbox")
	board.Title = "Renamed externally"
	path := f.files.BoardPath(board)
	require.NoError(t, os.WriteFile(path, []byte(codec.EncodeBoard(board)), 0o644))

	f.mon.Observe(domain.FileEvent{Path: path, Op: domain.FileWritten})
	f.timers.FireAll()

	got, _ := f.store.Board("inbox")
	assert.Equal(t, "Renamed externally", got.Title)
	ext := f.externalEvents()
	require.Len(t, ext, 1)
	assert.Equal(t, domain.EventUpdated, ext[0].Type)
}

func TestMonitor_DirtyBoard_LocalWins(t *testing.T) {
	f := newFixture(t)
	f.store.EnsureBuiltinBoards()
	require.NoError(t, f.store.FlushNow())
	f.clock.Advance(3 * time.Second)
	f.events = nil

	board, _ := f.store.Board("inbox")
	board.Title = "Local rename"
	require.NoError(t, f.store.UpdateBoard(board))

	external := board.Clone()
	external.Title = "External rename"
	path := f.files.BoardPath(external)
	require.NoError(t, os.WriteFile(path, []byte(codec.EncodeBoard(external)), 0o644))

	f.mon.Observe(domain.FileEvent{Path: path, Op: domain.FileWritten})
	f.timers.FireAll()

	got, _ := f.store.Board("inbox")
	assert.Equal(t, "Local rename", got.Title)
	assert.True(t, f.log.Has("warn", "lost to local edit"))
}

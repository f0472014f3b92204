// Package store holds the authoritative in-memory task and board state.
// It is the single mutation gateway: every mutation validates invariants,
// updates the secondary indexes incrementally, emits one change
// notification, and schedules one persistence flush through the write
// scheduler.
package store

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/plaintasks/plaintasks/internal/domain"
	"github.com/plaintasks/plaintasks/internal/infra/codec"
)

// Persister is the file persistence surface the store flushes through.
type Persister interface {
	WriteTask(*domain.Task) error
	WriteBoard(*domain.Board) error
	DeleteTask(*domain.Task) error
	DeleteBoard(*domain.Board) error
	Archive(*domain.Task) error
	Restore(*domain.Task) error
}

// Options configures a Store.
type Options struct {
	Timers       domain.TimerSource // nil = time.AfterFunc
	FlushWindow  time.Duration      // 0 = 500ms
	AutoHideDays int                // Auto-hide policy for lazily created boards
}

// Store is the authoritative entity store.
type Store struct {
	clock domain.Clock
	log   domain.Logger
	files Persister
	sched *FlushScheduler

	tasks  map[string]*domain.Task
	boards map[string]*domain.Board

	byProject    map[string]map[string]struct{}
	byContext    map[string]map[string]struct{}
	byTag        map[string]map[string]struct{}
	statusCounts map[domain.Status]int

	// Persistence bookkeeping. gens increments on every mutation of an
	// entity; the flush only clears a dirty mark when the generation it
	// snapshotted is still current, so an edit racing a flush stays dirty.
	gens          map[string]uint64
	dirtyTasks    map[string]struct{}
	dirtyBoards   map[string]struct{}
	deletedTasks  map[string]*domain.Task
	deletedBoards map[string]*domain.Board
	baselines     map[string]string

	subs         map[int]func(domain.Event)
	nextSub      int
	autoHideDays int

	// mu serializes every mutation: the store has one logical owner,
	// whether the mutation came from application logic or the monitor.
	mu sync.Mutex
}

// New creates a Store flushing through files.
func New(files Persister, clock domain.Clock, log domain.Logger, opts Options) *Store {
	if opts.FlushWindow == 0 {
		opts.FlushWindow = 500 * time.Millisecond
	}
	timers := opts.Timers
	if timers == nil {
		timers = domain.StdTimerSource
	}
	s := &Store{
		clock:         clock,
		log:           log,
		files:         files,
		tasks:         make(map[string]*domain.Task),
		boards:        make(map[string]*domain.Board),
		byProject:     make(map[string]map[string]struct{}),
		byContext:     make(map[string]map[string]struct{}),
		byTag:         make(map[string]map[string]struct{}),
		statusCounts:  make(map[domain.Status]int),
		gens:          make(map[string]uint64),
		dirtyTasks:    make(map[string]struct{}),
		dirtyBoards:   make(map[string]struct{}),
		deletedTasks:  make(map[string]*domain.Task),
		deletedBoards: make(map[string]*domain.Board),
		baselines:     make(map[string]string),
		subs:          make(map[int]func(domain.Event)),
		autoHideDays:  opts.AutoHideDays,
	}
	s.sched = NewFlushScheduler(opts.FlushWindow, timers, func() { _ = s.flush() })
	return s
}

// Subscribe registers a change listener and returns its unsubscribe
// function. Listeners run outside the mutation lock and may call back
// into the store.
func (s *Store) Subscribe(fn func(domain.Event)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) emitLocked(ev domain.Event) func() {
	fns := make([]func(domain.Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	return func() {
		for _, fn := range fns {
			fn(ev)
		}
	}
}

// Seed installs entities loaded from disk. Seeded entities are clean:
// their persisted baseline is the current encoding and nothing is
// scheduled for flush. No events are emitted.
func (s *Store) Seed(tasks []*domain.Task, boards []*domain.Board) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range tasks {
		c := t.Clone()
		s.tasks[c.ID] = c
		s.indexAdd(c)
		s.baselines[c.ID] = codec.EncodeTask(c)
	}
	for _, b := range boards {
		c := b.Clone()
		s.boards[c.Slug] = c
		s.baselines[boardKey(c.Slug)] = codec.EncodeBoard(c)
	}
}

// EnsureBuiltinBoards creates the built-in boards missing from the
// store, persisting them on the next flush.
func (s *Store) EnsureBuiltinBoards() {
	now := s.now()
	s.mu.Lock()
	created := false
	for _, b := range domain.BuiltinBoards(now) {
		if _, ok := s.boards[b.Slug]; ok {
			continue
		}
		s.boards[b.Slug] = b
		s.markBoardDirty(b.Slug)
		created = true
	}
	s.mu.Unlock()
	if created {
		s.sched.Schedule()
	}
}

// === task reads ===

// Task returns a copy of the task with the given ID.
func (s *Store) Task(id string) (*domain.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

// Tasks returns copies of all tasks.
func (s *Store) Tasks() []*domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t.Clone())
	}
	return out
}

// TasksByProject returns copies of the tasks in a project, served from
// the project index.
func (s *Store) TasksByProject(project string) []*domain.Task {
	return s.tasksByIndex(s.byProject, project)
}

// TasksByContext returns copies of the tasks in a context.
func (s *Store) TasksByContext(context string) []*domain.Task {
	return s.tasksByIndex(s.byContext, context)
}

// TasksByTag returns copies of the tasks carrying a tag.
func (s *Store) TasksByTag(tag string) []*domain.Task {
	return s.tasksByIndex(s.byTag, tag)
}

func (s *Store) tasksByIndex(index map[string]map[string]struct{}, key string) []*domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := index[key]
	out := make([]*domain.Task, 0, len(ids))
	for id := range ids {
		out = append(out, s.tasks[id].Clone())
	}
	return out
}

// StatusCounts returns the task count per status.
func (s *Store) StatusCounts() map[domain.Status]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[domain.Status]int, len(s.statusCounts))
	for k, v := range s.statusCounts {
		out[k] = v
	}
	return out
}

// Projects returns the distinct project names, sorted.
func (s *Store) Projects() []string {
	return s.indexKeys(s.byProject)
}

// Contexts returns the distinct context names, sorted.
func (s *Store) Contexts() []string {
	return s.indexKeys(s.byContext)
}

// Tags returns the distinct tag names, sorted.
func (s *Store) Tags() []string {
	return s.indexKeys(s.byTag)
}

func (s *Store) indexKeys(index map[string]map[string]struct{}) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(index))
	for k, ids := range index {
		if len(ids) > 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// IsDirty reports whether the task has unflushed local edits.
func (s *Store) IsDirty(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, dirty := s.dirtyTasks[id]
	return dirty
}

// Baseline returns the last known-persisted encoding of the task, used
// by the change monitor to tell external edits from our own writes.
func (s *Store) Baseline(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.baselines[id]
}

// === task mutations ===

// CreateFields is the candidate field set accepted from quick-capture
// collaborators. Zero fields fall back to defaults.
type CreateFields struct {
	Due      time.Time
	Defer    time.Time
	Repeat   *domain.Recurrence
	Title    string
	Body     string
	Project  string
	Context  string
	Parent   string
	Kind     domain.Kind
	Status   domain.Status
	Priority domain.Priority
	Tags     []string
	Effort   int
	Flagged  bool
}

// Create builds a task from the candidate fields and adds it.
func (s *Store) Create(fields CreateFields) (*domain.Task, error) {
	now := s.now()
	t := &domain.Task{
		ID:       uuid.NewString(),
		Kind:     fields.Kind,
		Title:    fields.Title,
		Body:     fields.Body,
		Status:   fields.Status,
		Priority: fields.Priority,
		Project:  fields.Project,
		Context:  fields.Context,
		Parent:   fields.Parent,
		Due:      fields.Due,
		Defer:    fields.Defer,
		Tags:     fields.Tags,
		Effort:   fields.Effort,
		Flagged:  fields.Flagged,
		Repeat:   fields.Repeat,
		Created:  now,
		Modified: now,
	}
	if t.Kind == "" {
		t.Kind = domain.KindTask
	}
	if t.Status == "" {
		t.Status = domain.StatusInbox
	}
	if t.Priority == "" {
		t.Priority = domain.PriorityMedium
	}
	if err := s.AddTask(t); err != nil {
		return nil, err
	}
	return t.Clone(), nil
}

// AddTask inserts a new task.
func (s *Store) AddTask(t *domain.Task) error {
	return s.AddTasks([]*domain.Task{t})
}

// AddTasks inserts a batch of new tasks. The batch is atomic: it is
// validated as a whole and rejected entirely on any invariant violation.
// One aggregated created event and one flush schedule result.
func (s *Store) AddTasks(ts []*domain.Task) error {
	if len(ts) == 0 {
		return nil
	}
	now := s.now()
	s.mu.Lock()
	for _, t := range ts {
		if err := s.validateAdd(t, ts); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	ids := make([]string, 0, len(ts))
	for _, t := range ts {
		c := t.Clone()
		normalizeTask(c)
		if c.Modified.IsZero() {
			c.Modified = now
		}
		if c.Created.IsZero() {
			c.Created = now
		}
		s.tasks[c.ID] = c
		s.indexAdd(c)
		delete(s.deletedTasks, c.ID)
		s.markTaskDirty(c.ID)
		ids = append(ids, c.ID)
		ids = append(ids, s.linkParentLocked(c)...)
	}
	notify := s.emitLocked(domain.Event{Type: domain.EventCreated, Origin: domain.OriginLocal, IDs: ids})
	s.mu.Unlock()
	notify()
	s.sched.Schedule()
	return nil
}

// UpdateTask replaces a task's value after validating invariants. The
// mutation is rejected entirely on violation; store state is untouched.
func (s *Store) UpdateTask(t *domain.Task) error {
	return s.UpdateTasks([]*domain.Task{t})
}

// UpdateTasks replaces a batch of tasks atomically.
func (s *Store) UpdateTasks(ts []*domain.Task) error {
	if len(ts) == 0 {
		return nil
	}
	now := s.now()
	s.mu.Lock()
	for _, t := range ts {
		if err := s.validateUpdate(t, ts); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	ids := make([]string, 0, len(ts))
	for _, t := range ts {
		old := s.tasks[t.ID]
		c := t.Clone()
		normalizeTask(c)
		c.Created = old.Created // Creation time is immutable
		c.Modified = now
		s.indexRemove(old)
		s.tasks[c.ID] = c
		s.indexAdd(c)
		s.markTaskDirty(c.ID)
		ids = append(ids, c.ID)
		ids = append(ids, s.relinkParentLocked(old, c)...)
	}
	notify := s.emitLocked(domain.Event{Type: domain.EventUpdated, Origin: domain.OriginLocal, IDs: ids})
	s.mu.Unlock()
	notify()
	s.sched.Schedule()
	return nil
}

// DeleteTask permanently removes a task.
func (s *Store) DeleteTask(id string) error {
	return s.DeleteTasks([]string{id})
}

// DeleteTasks permanently removes a batch of tasks. Children of deleted
// tasks are unlinked, not deleted.
func (s *Store) DeleteTasks(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	s.mu.Lock()
	for _, id := range ids {
		if _, ok := s.tasks[id]; !ok {
			s.mu.Unlock()
			return &domain.ValidationError{ID: id, Err: domain.ErrTaskNotFound}
		}
	}
	affected := make([]string, 0, len(ids))
	for _, id := range ids {
		t := s.tasks[id]
		s.indexRemove(t)
		delete(s.tasks, id)
		delete(s.dirtyTasks, id)
		delete(s.baselines, id)
		s.deletedTasks[id] = t
		s.gens[id]++
		affected = append(affected, id)
		affected = append(affected, s.unlinkAllLocked(t)...)
	}
	notify := s.emitLocked(domain.Event{Type: domain.EventDeleted, Origin: domain.OriginLocal, IDs: affected})
	s.mu.Unlock()
	notify()
	s.sched.Schedule()
	return nil
}

// CompleteTask marks a task done, setting the completed timestamp
// atomically with the status change. Recurrence templates are not
// completed this way; completing their instances is the recurrence
// engine's job.
func (s *Store) CompleteTask(id string) (*domain.Task, error) {
	t, ok := s.Task(id)
	if !ok {
		return nil, &domain.ValidationError{ID: id, Err: domain.ErrTaskNotFound}
	}
	if t.IsTemplate() {
		return nil, &domain.ValidationError{ID: id, Err: domain.ErrInstancePattern}
	}
	t.Status = domain.StatusDone
	t.Completed = s.now()
	if err := s.UpdateTask(t); err != nil {
		return nil, err
	}
	return t, nil
}

// ArchiveTask moves a task to the archive bucket. The record is flushed
// first so the move operates on a durable, current file.
func (s *Store) ArchiveTask(id string) error {
	return s.moveTaskBucket(id, true)
}

// RestoreTask moves a task back to the active bucket.
func (s *Store) RestoreTask(id string) error {
	return s.moveTaskBucket(id, false)
}

func (s *Store) moveTaskBucket(id string, toArchive bool) error {
	if err := s.FlushNow(); err != nil {
		return err
	}
	s.mu.Lock()
	t, ok := s.tasks[id]
	if !ok {
		s.mu.Unlock()
		return &domain.ValidationError{ID: id, Err: domain.ErrTaskNotFound}
	}
	if t.Archived == toArchive {
		s.mu.Unlock()
		return nil
	}
	c := t.Clone()
	s.mu.Unlock()

	var err error
	if toArchive {
		err = s.files.Archive(c)
	} else {
		err = s.files.Restore(c)
	}
	if err != nil {
		return err
	}

	s.mu.Lock()
	if cur, ok := s.tasks[id]; ok {
		cur.Archived = toArchive
		s.baselines[id] = codec.EncodeTask(cur)
	}
	notify := s.emitLocked(domain.Event{Type: domain.EventUpdated, Origin: domain.OriginLocal, IDs: []string{id}})
	s.mu.Unlock()
	notify()
	return nil
}

// === board reads and mutations ===

// Board returns a copy of the board with the given slug.
func (s *Store) Board(slug string) (*domain.Board, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.boards[slug]
	if !ok {
		return nil, false
	}
	return b.Clone(), true
}

// Boards returns copies of all boards ordered by their order index,
// then slug.
func (s *Store) Boards() []*domain.Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.Board, 0, len(s.boards))
	for _, b := range s.boards {
		out = append(out, b.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].Slug < out[j].Slug
	})
	return out
}

// AddBoard inserts a new board.
func (s *Store) AddBoard(b *domain.Board) error {
	now := s.now()
	s.mu.Lock()
	if b.Slug == "" {
		s.mu.Unlock()
		return &domain.ValidationError{ID: b.Slug, Err: domain.ErrEmptyID}
	}
	if _, ok := s.boards[b.Slug]; ok {
		s.mu.Unlock()
		return &domain.ValidationError{ID: b.Slug, Err: domain.ErrDuplicateID}
	}
	if !b.Kind.IsValid() || !b.Layout.IsValid() {
		s.mu.Unlock()
		return &domain.ValidationError{ID: b.Slug, Err: domain.ErrInvalidKind}
	}
	c := b.Clone()
	normalizeBoard(c)
	if c.Created.IsZero() {
		c.Created = now
	}
	if c.Modified.IsZero() {
		c.Modified = now
	}
	s.boards[c.Slug] = c
	delete(s.deletedBoards, c.Slug)
	s.markBoardDirty(c.Slug)
	notify := s.emitLocked(domain.Event{Type: domain.EventCreated, Origin: domain.OriginLocal, IDs: []string{c.Slug}})
	s.mu.Unlock()
	notify()
	s.sched.Schedule()
	return nil
}

// UpdateBoard replaces a board's value.
func (s *Store) UpdateBoard(b *domain.Board) error {
	now := s.now()
	s.mu.Lock()
	if _, ok := s.boards[b.Slug]; !ok {
		s.mu.Unlock()
		return &domain.ValidationError{ID: b.Slug, Err: domain.ErrBoardNotFound}
	}
	if !b.Kind.IsValid() || !b.Layout.IsValid() {
		s.mu.Unlock()
		return &domain.ValidationError{ID: b.Slug, Err: domain.ErrInvalidKind}
	}
	c := b.Clone()
	normalizeBoard(c)
	c.Modified = now
	s.boards[c.Slug] = c
	s.markBoardDirty(c.Slug)
	notify := s.emitLocked(domain.Event{Type: domain.EventUpdated, Origin: domain.OriginLocal, IDs: []string{c.Slug}})
	s.mu.Unlock()
	notify()
	s.sched.Schedule()
	return nil
}

// DeleteBoard removes a board. Built-in boards cannot be deleted.
func (s *Store) DeleteBoard(slug string) error {
	s.mu.Lock()
	b, ok := s.boards[slug]
	if !ok {
		s.mu.Unlock()
		return &domain.ValidationError{ID: slug, Err: domain.ErrBoardNotFound}
	}
	if b.Kind == domain.BoardInbox || b.Kind == domain.BoardNext {
		s.mu.Unlock()
		return &domain.ValidationError{ID: slug, Err: domain.ErrInvalidKind}
	}
	delete(s.boards, slug)
	delete(s.dirtyBoards, slug)
	delete(s.baselines, boardKey(slug))
	s.deletedBoards[slug] = b
	notify := s.emitLocked(domain.Event{Type: domain.EventDeleted, Origin: domain.OriginLocal, IDs: []string{slug}})
	s.mu.Unlock()
	notify()
	s.sched.Schedule()
	return nil
}

// EnsureProjectBoard returns the project's board, lazily creating it on
// first reference.
func (s *Store) EnsureProjectBoard(project string) (*domain.Board, error) {
	slug := domain.ProjectBoardSlug(project)
	if b, ok := s.Board(slug); ok {
		return b, nil
	}
	b := domain.NewProjectBoard(project, s.autoHideDays, s.now())
	if err := s.AddBoard(b); err != nil {
		return nil, err
	}
	return b.Clone(), nil
}

// EnsureContextBoard returns the context's board, lazily creating it on
// first reference.
func (s *Store) EnsureContextBoard(context string) (*domain.Board, error) {
	slug := domain.ContextBoardSlug(context)
	if b, ok := s.Board(slug); ok {
		return b, nil
	}
	b := domain.NewContextBoard(context, s.autoHideDays, s.now())
	if err := s.AddBoard(b); err != nil {
		return nil, err
	}
	return b.Clone(), nil
}

// TouchBoard records that a board was opened, feeding the auto-hide
// policy.
func (s *Store) TouchBoard(slug string) error {
	b, ok := s.Board(slug)
	if !ok {
		return &domain.ValidationError{ID: slug, Err: domain.ErrBoardNotFound}
	}
	b.Accessed = s.now()
	return s.UpdateBoard(b)
}

// AutoHideStaleBoards hides (never deletes) boards whose inactivity
// window has passed. Returns the slugs hidden.
func (s *Store) AutoHideStaleBoards() ([]string, error) {
	now := s.now()
	var hidden []string
	for _, b := range s.Boards() {
		if !b.Hidden && b.ShouldAutoHide(now) {
			b.Hidden = true
			if err := s.UpdateBoard(b); err != nil {
				return hidden, err
			}
			hidden = append(hidden, b.Slug)
		}
	}
	return hidden, nil
}

// === helpers ===

func (s *Store) now() time.Time {
	return s.clock.Now().UTC().Truncate(time.Second)
}

func normalizeTask(t *domain.Task) {
	t.Created = t.Created.UTC().Truncate(time.Second)
	t.Modified = t.Modified.UTC().Truncate(time.Second)
	t.Completed = t.Completed.UTC().Truncate(time.Second)
	t.Due = t.Due.UTC().Truncate(time.Second)
	t.Defer = t.Defer.UTC().Truncate(time.Second)
	t.Occurrence = t.Occurrence.UTC().Truncate(time.Second)
	t.LastOccurrence = t.LastOccurrence.UTC().Truncate(time.Second)
	for i, e := range t.TimeEntries {
		t.TimeEntries[i].Start = e.Start.UTC().Truncate(time.Second)
		if !e.End.IsZero() {
			t.TimeEntries[i].End = e.End.UTC().Truncate(time.Second)
		}
	}
	// Empty collections become nil: the codec omits empty keys, so a
	// decoded record carries nil, and the stored form must match for the
	// round trip to be exact.
	if len(t.Tags) == 0 {
		t.Tags = nil
	}
	if len(t.Children) == 0 {
		t.Children = nil
	}
	if len(t.TimeEntries) == 0 {
		t.TimeEntries = nil
	}
	if len(t.Attachments) == 0 {
		t.Attachments = nil
	}
	if len(t.Positions) == 0 {
		t.Positions = nil
	}
	if t.Repeat != nil && len(t.Repeat.Weekdays) == 0 {
		t.Repeat.Weekdays = nil
	}
}

func normalizeBoard(b *domain.Board) {
	b.Created = b.Created.UTC().Truncate(time.Second)
	b.Modified = b.Modified.UTC().Truncate(time.Second)
	b.Accessed = b.Accessed.UTC().Truncate(time.Second)
	if len(b.Columns) == 0 {
		b.Columns = nil
	}
}

func boardKey(slug string) string {
	return "board/" + slug
}

func (s *Store) markTaskDirty(id string) {
	s.dirtyTasks[id] = struct{}{}
	s.gens[id]++
}

func (s *Store) markBoardDirty(slug string) {
	s.dirtyBoards[slug] = struct{}{}
	s.gens[boardKey(slug)]++
}

func (s *Store) indexAdd(t *domain.Task) {
	if t.Project != "" {
		indexInsert(s.byProject, t.Project, t.ID)
	}
	if t.Context != "" {
		indexInsert(s.byContext, t.Context, t.ID)
	}
	for _, tag := range t.Tags {
		indexInsert(s.byTag, tag, t.ID)
	}
	s.statusCounts[t.Status]++
}

func (s *Store) indexRemove(t *domain.Task) {
	if t.Project != "" {
		indexDelete(s.byProject, t.Project, t.ID)
	}
	if t.Context != "" {
		indexDelete(s.byContext, t.Context, t.ID)
	}
	for _, tag := range t.Tags {
		indexDelete(s.byTag, tag, t.ID)
	}
	s.statusCounts[t.Status]--
	if s.statusCounts[t.Status] == 0 {
		delete(s.statusCounts, t.Status)
	}
}

func indexInsert(index map[string]map[string]struct{}, key, id string) {
	ids, ok := index[key]
	if !ok {
		ids = make(map[string]struct{})
		index[key] = ids
	}
	ids[id] = struct{}{}
}

func indexDelete(index map[string]map[string]struct{}, key, id string) {
	ids, ok := index[key]
	if !ok {
		return
	}
	delete(ids, id)
	if len(ids) == 0 {
		delete(index, key)
	}
}

// linkParentLocked records the new task in its parent's child set.
// Returns additionally affected IDs.
func (s *Store) linkParentLocked(t *domain.Task) []string {
	if t.Parent == "" {
		return nil
	}
	parent, ok := s.tasks[t.Parent]
	if !ok || containsID(parent.Children, t.ID) {
		return nil
	}
	parent.Children = append(parent.Children, t.ID)
	s.markTaskDirty(parent.ID)
	return []string{parent.ID}
}

// relinkParentLocked reconciles parent child-sets after an update moved
// a task between parents.
func (s *Store) relinkParentLocked(old, cur *domain.Task) []string {
	if old.Parent == cur.Parent {
		return nil
	}
	var affected []string
	if old.Parent != "" {
		if parent, ok := s.tasks[old.Parent]; ok && containsID(parent.Children, cur.ID) {
			parent.Children = removeID(parent.Children, cur.ID)
			s.markTaskDirty(parent.ID)
			affected = append(affected, parent.ID)
		}
	}
	affected = append(affected, s.linkParentLocked(cur)...)
	return affected
}

// unlinkAllLocked detaches a deleted task from its parent and children.
func (s *Store) unlinkAllLocked(t *domain.Task) []string {
	var affected []string
	if t.Parent != "" {
		if parent, ok := s.tasks[t.Parent]; ok && containsID(parent.Children, t.ID) {
			parent.Children = removeID(parent.Children, t.ID)
			s.markTaskDirty(parent.ID)
			affected = append(affected, parent.ID)
		}
	}
	for _, childID := range t.Children {
		if child, ok := s.tasks[childID]; ok && child.Parent == t.ID {
			child.Parent = ""
			s.markTaskDirty(child.ID)
			affected = append(affected, child.ID)
		}
	}
	return affected
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// === validation ===

func (s *Store) validateAdd(t *domain.Task, batch []*domain.Task) error {
	if _, ok := s.tasks[t.ID]; ok {
		return &domain.ValidationError{ID: t.ID, Err: domain.ErrDuplicateID}
	}
	count := 0
	for _, other := range batch {
		if other.ID == t.ID {
			count++
		}
	}
	if count > 1 {
		return &domain.ValidationError{ID: t.ID, Err: domain.ErrDuplicateID}
	}
	return s.validateCommon(t, batch)
}

func (s *Store) validateUpdate(t *domain.Task, batch []*domain.Task) error {
	if _, ok := s.tasks[t.ID]; !ok {
		return &domain.ValidationError{ID: t.ID, Err: domain.ErrTaskNotFound}
	}
	return s.validateCommon(t, batch)
}

func (s *Store) validateCommon(t *domain.Task, batch []*domain.Task) error {
	fail := func(err error) error {
		return &domain.ValidationError{ID: t.ID, Err: err}
	}
	if t.ID == "" {
		return fail(domain.ErrEmptyID)
	}
	if t.Title == "" {
		return fail(domain.ErrEmptyTitle)
	}
	if !t.Kind.IsValid() {
		return fail(domain.ErrInvalidKind)
	}
	if !t.Status.IsValid() {
		return fail(domain.ErrInvalidStatus)
	}
	if !t.Priority.IsValid() {
		return fail(domain.ErrInvalidPriority)
	}
	if t.Status == domain.StatusDone && t.Completed.IsZero() {
		return fail(domain.ErrCompletedStatus)
	}
	if t.Status != domain.StatusDone && !t.Completed.IsZero() {
		return fail(domain.ErrCompletedStatus)
	}
	if t.IsInstance() {
		if t.Repeat != nil {
			return fail(domain.ErrInstancePattern)
		}
		if t.Occurrence.IsZero() {
			return fail(domain.ErrInstanceNoAnchor)
		}
	}
	if t.Repeat != nil && !t.Repeat.IsValid() {
		return fail(domain.ErrInvalidPattern)
	}
	if t.Parent != "" && !s.resolvable(t.Parent, batch) {
		return fail(domain.ErrDanglingParent)
	}
	if t.Parent == t.ID {
		return fail(domain.ErrInconsistentLink)
	}
	for _, childID := range t.Children {
		if !s.resolvable(childID, batch) {
			return fail(domain.ErrDanglingChild)
		}
	}
	return nil
}

// resolvable reports whether an ID refers to an existing task or one
// arriving in the same batch.
func (s *Store) resolvable(id string, batch []*domain.Task) bool {
	if _, ok := s.tasks[id]; ok {
		return true
	}
	for _, t := range batch {
		if t.ID == id {
			return true
		}
	}
	return false
}

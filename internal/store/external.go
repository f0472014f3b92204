package store

import (
	"github.com/plaintasks/plaintasks/internal/domain"
	"github.com/plaintasks/plaintasks/internal/infra/codec"
)

// External mutations arrive from the change monitor after it has read
// and decoded an externally edited file. They replace in-memory state
// without scheduling a flush: the file already holds this version, so
// its text becomes the new persisted baseline.

// ApplyExternalTask accepts a task version decoded from an external
// edit. raw is the file's text and becomes the persisted baseline.
func (s *Store) ApplyExternalTask(t *domain.Task, raw string) {
	s.mu.Lock()
	_, existed := s.tasks[t.ID]
	if existed {
		s.indexRemove(s.tasks[t.ID])
	}
	c := t.Clone()
	s.tasks[c.ID] = c
	s.indexAdd(c)
	s.baselines[c.ID] = raw
	delete(s.dirtyTasks, c.ID)
	delete(s.deletedTasks, c.ID)
	s.gens[c.ID]++
	evType := domain.EventCreated
	if existed {
		evType = domain.EventUpdated
	}
	notify := s.emitLocked(domain.Event{Type: evType, Origin: domain.OriginExternal, IDs: []string{c.ID}})
	s.mu.Unlock()
	notify()
}

// ApplyExternalBoard accepts a board version decoded from an external
// edit.
func (s *Store) ApplyExternalBoard(b *domain.Board, raw string) {
	s.mu.Lock()
	_, existed := s.boards[b.Slug]
	c := b.Clone()
	s.boards[c.Slug] = c
	s.baselines[boardKey(c.Slug)] = raw
	delete(s.dirtyBoards, c.Slug)
	delete(s.deletedBoards, c.Slug)
	s.gens[boardKey(c.Slug)]++
	evType := domain.EventCreated
	if existed {
		evType = domain.EventUpdated
	}
	notify := s.emitLocked(domain.Event{Type: evType, Origin: domain.OriginExternal, IDs: []string{c.Slug}})
	s.mu.Unlock()
	notify()
}

// IsBoardDirty reports whether the board has unflushed local edits.
func (s *Store) IsBoardDirty(slug string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, dirty := s.dirtyBoards[slug]
	return dirty
}

// BoardBaseline returns the last known-persisted encoding of the board.
func (s *Store) BoardBaseline(slug string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.baselines[boardKey(slug)]
}

// EmitConflict surfaces a divergence between a dirty local edit and an
/// external file version. Neither side is made authoritative: the
// in-memory entity, the dirty mark, and the file all stay as they are,
// and resolution is the subscriber's responsibility.
func (s *Store) EmitConflict(local, external *domain.Task, path string) {
	s.mu.Lock()
	notify := s.emitLocked(domain.Event{
		Type:   domain.EventConflict,
		Origin: domain.OriginExternal,
		IDs:    []string{local.ID},
		Conflict: &domain.Conflict{
			Local:    local.Clone(),
			External: external.Clone(),
			Path:     path,
		},
	})
	s.mu.Unlock()
	notify()
}

// MarkExternallyDeleted reports that the entity's file disappeared
// while the entity is still in memory. The entity is kept; subscribers
// decide whether to accept the removal or restore the record.
func (s *Store) MarkExternallyDeleted(id string) {
	s.mu.Lock()
	if _, ok := s.tasks[id]; !ok {
		s.mu.Unlock()
		return
	}
	// The on-disk copy is gone; a stale baseline must not make a later
	// external recreation look like our own write.
	delete(s.baselines, id)
	notify := s.emitLocked(domain.Event{Type: domain.EventExternallyDeleted, Origin: domain.OriginExternal, IDs: []string{id}})
	s.mu.Unlock()
	notify()
}

// AcceptExternalDelete removes an externally deleted entity from memory
// without scheduling a file deletion (the file is already gone).
func (s *Store) AcceptExternalDelete(id string) {
	s.mu.Lock()
	t, ok := s.tasks[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	s.indexRemove(t)
	delete(s.tasks, id)
	delete(s.dirtyTasks, id)
	delete(s.baselines, id)
	s.gens[id]++
	affected := append([]string{id}, s.unlinkAllLocked(t)...)
	notify := s.emitLocked(domain.Event{Type: domain.EventDeleted, Origin: domain.OriginExternal, IDs: affected})
	s.mu.Unlock()
	notify()
	// Unlinking dirtied the relatives' records; the file itself needs no
	// write, it is already gone.
	if len(affected) > 1 {
		s.sched.Schedule()
	}
}

// RestoreExternallyDeleted rewrites an externally deleted entity's
// record from the in-memory version.
func (s *Store) RestoreExternallyDeleted(id string) error {
	s.mu.Lock()
	t, ok := s.tasks[id]
	if !ok {
		s.mu.Unlock()
		return &domain.ValidationError{ID: id, Err: domain.ErrTaskNotFound}
	}
	s.markTaskDirty(t.ID)
	s.mu.Unlock()
	return s.FlushNow()
}

// BoardExternallyDeleted handles a board file disappearing. Boards have
// no dirty-edit conflict story worth keeping the tombstone around for:
// if the local copy is clean it is dropped, if it is dirty the next
// flush rewrites the record.
func (s *Store) BoardExternallyDeleted(slug string) {
	s.mu.Lock()
	b, ok := s.boards[slug]
	if !ok {
		s.mu.Unlock()
		return
	}
	if _, dirty := s.dirtyBoards[slug]; dirty {
		s.mu.Unlock()
		s.sched.Schedule()
		return
	}
	delete(s.boards, slug)
	delete(s.baselines, boardKey(slug))
	s.gens[boardKey(slug)]++
	notify := s.emitLocked(domain.Event{Type: domain.EventDeleted, Origin: domain.OriginExternal, IDs: []string{b.Slug}})
	s.mu.Unlock()
	notify()
}

// ExternalBaselineMatches reports whether raw equals the last persisted
// encoding of the task, meaning the file content is our own write.
func (s *Store) ExternalBaselineMatches(id, raw string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	baseline, ok := s.baselines[id]
	if !ok {
		// Fall back to re-encoding the current entity; a freshly seeded
		// store has baselines, but defensiveness here is free.
		if t, exists := s.tasks[id]; exists {
			return codec.EncodeTask(t) == raw
		}
		return false
	}
	return baseline == raw
}

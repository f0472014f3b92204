package store

import (
	"errors"

	"github.com/plaintasks/plaintasks/internal/domain"
	"github.com/plaintasks/plaintasks/internal/infra/codec"
)

// FlushNow cancels the pending debounce timer and persists all dirty
// state synchronously. It returns the joined write errors, if any;
// failed entities stay dirty and are retried on the next trigger.
func (s *Store) FlushNow() error {
	s.sched.Cancel()
	return s.flush()
}

// Close flushes dirty state before shutdown.
func (s *Store) Close() error {
	return s.FlushNow()
}

type pendingTask struct {
	task *domain.Task
	gen  uint64
}

type pendingBoard struct {
	board *domain.Board
	gen   uint64
}

// flush writes every dirty entity and performs pending deletions. The
// snapshot is taken under the mutation lock but file IO runs outside
// it, so store API calls do not block behind the disk. A dirty mark is
// only cleared when the entity's generation is unchanged, so an edit
// that raced the flush is written again by the next one.
func (s *Store) flush() error {
	s.mu.Lock()
	writeTasks := make([]pendingTask, 0, len(s.dirtyTasks))
	for id := range s.dirtyTasks {
		writeTasks = append(writeTasks, pendingTask{task: s.tasks[id].Clone(), gen: s.gens[id]})
	}
	writeBoards := make([]pendingBoard, 0, len(s.dirtyBoards))
	for slug := range s.dirtyBoards {
		writeBoards = append(writeBoards, pendingBoard{board: s.boards[slug].Clone(), gen: s.gens[boardKey(slug)]})
	}
	dropTasks := make([]*domain.Task, 0, len(s.deletedTasks))
	for _, t := range s.deletedTasks {
		dropTasks = append(dropTasks, t)
	}
	dropBoards := make([]*domain.Board, 0, len(s.deletedBoards))
	for _, b := range s.deletedBoards {
		dropBoards = append(dropBoards, b)
	}
	s.mu.Unlock()

	var failures []error

	for _, p := range writeTasks {
		if err := s.files.WriteTask(p.task); err != nil {
			failures = append(failures, s.writeFailed(p.task.ID, err))
			continue
		}
		s.mu.Lock()
		if s.gens[p.task.ID] == p.gen {
			delete(s.dirtyTasks, p.task.ID)
			s.baselines[p.task.ID] = codec.EncodeTask(p.task)
		}
		s.mu.Unlock()
	}

	for _, p := range writeBoards {
		if err := s.files.WriteBoard(p.board); err != nil {
			failures = append(failures, s.writeFailed(p.board.Slug, err))
			continue
		}
		s.mu.Lock()
		if s.gens[boardKey(p.board.Slug)] == p.gen {
			delete(s.dirtyBoards, p.board.Slug)
			s.baselines[boardKey(p.board.Slug)] = codec.EncodeBoard(p.board)
		}
		s.mu.Unlock()
	}

	for _, t := range dropTasks {
		if err := s.files.DeleteTask(t); err != nil {
			failures = append(failures, s.writeFailed(t.ID, err))
			continue
		}
		s.mu.Lock()
		// A task recreated since the delete was queued must not lose
		// its pending file deletion entry's replacement write; only the
		// original tombstone is cleared.
		if cur, ok := s.deletedTasks[t.ID]; ok && cur == t {
			delete(s.deletedTasks, t.ID)
		}
		s.mu.Unlock()
	}

	for _, b := range dropBoards {
		if err := s.files.DeleteBoard(b); err != nil {
			failures = append(failures, s.writeFailed(b.Slug, err))
			continue
		}
		s.mu.Lock()
		if cur, ok := s.deletedBoards[b.Slug]; ok && cur == b {
			delete(s.deletedBoards, b.Slug)
		}
		s.mu.Unlock()
	}

	if len(failures) > 0 {
		return errors.Join(failures...)
	}
	return nil
}

// writeFailed records a failed persistence attempt: the entity stays
// dirty, subscribers hear about it, and the error is logged.
func (s *Store) writeFailed(id string, err error) error {
	werr := &domain.WriteError{ID: id, Err: err}
	s.log.Error("persist", werr.Error())
	s.mu.Lock()
	notify := s.emitLocked(domain.Event{
		Type:   domain.EventWriteFailed,
		Origin: domain.OriginLocal,
		IDs:    []string{id},
		Err:    werr,
	})
	s.mu.Unlock()
	notify()
	return werr
}

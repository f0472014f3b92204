// Package filestore maps tasks and boards to deterministic file paths
// under the data root and performs crash-safe file IO for them.
//
// Layout:
//
//	<root>/tasks/active/<year>/<month>/<id>-<slug>.txt
//	<root>/tasks/archive/<year>/<month>/<id>-<slug>.txt
//	<root>/boards/<slug>.txt
package filestore

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/plaintasks/plaintasks/internal/domain"
	"github.com/plaintasks/plaintasks/internal/infra/codec"
)

// selfWriteTTL bounds how long a write mark suppresses watcher events
// for its path. Marks are consumed on first match; the TTL only cleans
// up marks whose events never arrived.
const selfWriteTTL = 2 * time.Second

// Store is the file persistence gateway.
type Store struct {
	clock      domain.Clock
	selfWrites map[string]time.Time
	root       string
	mu         sync.Mutex
}

// New creates a gateway rooted at the data directory.
func New(root string, clock domain.Clock) *Store {
	return &Store{
		root:       root,
		clock:      clock,
		selfWrites: make(map[string]time.Time),
	}
}

// Root returns the data directory.
func (s *Store) Root() string {
	return s.root
}

// IsInitialized checks whether the data directory has been set up.
func (s *Store) IsInitialized() bool {
	info, err := os.Stat(domain.ActiveTasksDir(s.root))
	return err == nil && info.IsDir()
}

// Initialize creates the directory layout.
func (s *Store) Initialize() error {
	for _, dir := range []string{
		domain.ActiveTasksDir(s.root),
		domain.ArchiveTasksDir(s.root),
		domain.BoardsDir(s.root),
		domain.LogsDir(s.root),
	} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// TaskPath derives the record path for a task. It is pure: the path
// depends only on the ID, title slug, lifecycle bucket, and creation
// year/month, so year/month sharding bounds directory sizes.
func (s *Store) TaskPath(t *domain.Task) string {
	bucket := domain.ActiveTasksDir(s.root)
	if t.Archived {
		bucket = domain.ArchiveTasksDir(s.root)
	}
	created := t.Created.UTC()
	return filepath.Join(
		bucket,
		fmt.Sprintf("%04d", created.Year()),
		fmt.Sprintf("%02d", int(created.Month())),
		domain.TaskFileName(t.ID, t.Title),
	)
}

// BoardPath derives the record path for a board.
func (s *Store) BoardPath(b *domain.Board) string {
	return filepath.Join(domain.BoardsDir(s.root), domain.BoardFileName(b.Slug))
}

// WriteTask encodes and atomically writes a task record. A previous
// record for the same ID under a stale slug is removed after the new
// record is durable, so a title edit never leaves two copies behind.
func (s *Store) WriteTask(t *domain.Task) error {
	path := s.TaskPath(t)
	stale, err := s.findByID(filepath.Dir(path), t.ID, filepath.Base(path))
	if err != nil {
		return err
	}
	if err := s.writeRecord(path, codec.EncodeTask(t)); err != nil {
		return err
	}
	for _, old := range stale {
		s.markSelfWrite(old)
		if err := os.Remove(old); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove stale record: %w", err)
		}
	}
	return nil
}

// WriteBoard encodes and atomically writes a board record.
func (s *Store) WriteBoard(b *domain.Board) error {
	return s.writeRecord(s.BoardPath(b), codec.EncodeBoard(b))
}

// ReadTask decodes the task record at path. A missing file yields
// (nil, nil); a malformed file yields a *domain.MalformedRecordError.
func (s *Store) ReadTask(path string) (*domain.Task, error) {
	t, _, err := s.ReadTaskWithText(path)
	return t, err
}

// ReadTaskWithText additionally returns the raw record text, which the
// change monitor compares against the store's persisted baseline.
func (s *Store) ReadTaskWithText(path string) (*domain.Task, string, error) {
	content, err := os.ReadFile(path) //nolint:gosec // Paths derive from the data root
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", nil
		}
		return nil, "", fmt.Errorf("read task record: %w", err)
	}
	t, err := codec.DecodeTask(string(content))
	if err != nil {
		return nil, "", err
	}
	// The file's bucket is authoritative for hand-moved records.
	t.Archived = strings.HasPrefix(path, domain.ArchiveTasksDir(s.root)+string(filepath.Separator))
	return t, string(content), nil
}

// ReadBoard decodes the board record at path. A missing file yields
// (nil, nil).
func (s *Store) ReadBoard(path string) (*domain.Board, string, error) {
	content, err := os.ReadFile(path) //nolint:gosec // Paths derive from the data root
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", nil
		}
		return nil, "", fmt.Errorf("read board record: %w", err)
	}
	b, err := codec.DecodeBoard(string(content))
	if err != nil {
		return nil, "", err
	}
	return b, string(content), nil
}

// LoadError reports one file that failed to load during LoadAll.
type LoadError struct {
	Err  error
	Path string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

// LoadResult is the outcome of a bulk load.
type LoadResult struct {
	Tasks  []*domain.Task
	Boards []*domain.Board
	Errors []*LoadError
}

// LoadAll enumerates the active tree, archive tree, and boards
// directory, decoding every record. Per-file failures are collected and
// returned alongside the successfully parsed entities; a single corrupt
// file never aborts the load.
func (s *Store) LoadAll() (*LoadResult, error) {
	if !s.IsInitialized() {
		return nil, domain.ErrNotInitialized
	}
	result := &LoadResult{}

	for _, tree := range []string{domain.ActiveTasksDir(s.root), domain.ArchiveTasksDir(s.root)} {
		err := filepath.WalkDir(tree, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				result.Errors = append(result.Errors, &LoadError{Path: path, Err: err})
				return nil
			}
			if d.IsDir() || !strings.HasSuffix(path, domain.RecordExt) {
				return nil
			}
			t, _, err := s.ReadTaskWithText(path)
			if err != nil {
				result.Errors = append(result.Errors, &LoadError{Path: path, Err: err})
				return nil
			}
			if t != nil {
				result.Tasks = append(result.Tasks, t)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", tree, err)
		}
	}

	entries, err := os.ReadDir(domain.BoardsDir(s.root))
	if err != nil {
		return nil, fmt.Errorf("read boards dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), domain.RecordExt) {
			continue
		}
		path := filepath.Join(domain.BoardsDir(s.root), entry.Name())
		b, _, err := s.ReadBoard(path)
		if err != nil {
			result.Errors = append(result.Errors, &LoadError{Path: path, Err: err})
			continue
		}
		if b != nil {
			result.Boards = append(result.Boards, b)
		}
	}

	return result, nil
}

// Archive moves a task record from the active to the archive bucket.
// The new copy is written and verified before the old file is removed,
// so there is never a moment with zero copies on disk.
func (s *Store) Archive(t *domain.Task) error {
	return s.moveBucket(t, true)
}

// Restore moves a task record from the archive back to the active
// bucket, with the same write-first ordering as Archive.
func (s *Store) Restore(t *domain.Task) error {
	return s.moveBucket(t, false)
}

func (s *Store) moveBucket(t *domain.Task, toArchive bool) error {
	if t.Archived == toArchive {
		return nil
	}
	oldPath := s.TaskPath(t)
	if _, err := os.Stat(oldPath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("move %s: %w", t.ID, domain.ErrMissingFile)
		}
		return fmt.Errorf("stat source record: %w", err)
	}

	moved := t.Clone()
	moved.Archived = toArchive
	newPath := s.TaskPath(moved)
	if err := s.writeRecord(newPath, codec.EncodeTask(moved)); err != nil {
		return err
	}
	if verify, err := s.ReadTask(newPath); err != nil || verify == nil {
		return fmt.Errorf("verify moved record %s: %w", newPath, err)
	}

	s.markSelfWrite(oldPath)
	if err := os.Remove(oldPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove source record: %w", err)
	}
	t.Archived = toArchive
	return nil
}

// DeleteTask removes a task record. Missing files are not an error.
func (s *Store) DeleteTask(t *domain.Task) error {
	path := s.TaskPath(t)
	stale, err := s.findByID(filepath.Dir(path), t.ID, "")
	if err != nil {
		return err
	}
	for _, p := range append(stale, path) {
		s.markSelfWrite(p)
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove task record: %w", err)
		}
	}
	return nil
}

// DeleteBoard removes a board record. Missing files are not an error.
func (s *Store) DeleteBoard(b *domain.Board) error {
	path := s.BoardPath(b)
	s.markSelfWrite(path)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove board record: %w", err)
	}
	return nil
}

// RecentlyWritten reports whether the gateway itself produced the most
// recent change to path. The mark is consumed, so a later genuinely
// external change to the same path is not suppressed.
func (s *Store) RecentlyWritten(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	mark, ok := s.selfWrites[path]
	if !ok {
		return false
	}
	delete(s.selfWrites, path)
	return s.clock.Now().Sub(mark) <= selfWriteTTL
}

func (s *Store) markSelfWrite(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	for p, mark := range s.selfWrites {
		if now.Sub(mark) > selfWriteTTL {
			delete(s.selfWrites, p)
		}
	}
	s.selfWrites[path] = now
}

// writeRecord writes content to path via a temporary file in the same
// directory followed by a rename, so a crash mid-write never leaves a
// truncated record.
func (s *Store) writeRecord(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create record directory: %w", err)
	}
	s.markSelfWrite(path)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, []byte(content), 0o644); err != nil { //nolint:gosec // Records are user-readable text
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// findByID lists record files in dir whose name carries the given task
// ID, excluding keep. Used to clean up records left under a stale slug.
func (s *Store) findByID(dir, id, keep string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read record directory: %w", err)
	}
	var paths []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == keep || !strings.HasSuffix(name, domain.RecordExt) {
			continue
		}
		if fileID, ok := domain.ParseTaskFileID(name); ok && fileID == id {
			paths = append(paths, filepath.Join(dir, name))
		}
	}
	return paths, nil
}

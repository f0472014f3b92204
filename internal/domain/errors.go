package domain

import (
	"errors"
	"fmt"
)

// Domain errors.
var (
	ErrTaskNotFound     = errors.New("task not found")
	ErrBoardNotFound    = errors.New("board not found")
	ErrDuplicateID      = errors.New("duplicate identifier")
	ErrEmptyTitle       = errors.New("title cannot be empty")
	ErrEmptyID          = errors.New("identifier cannot be empty")
	ErrDanglingParent   = errors.New("parent task does not exist")
	ErrDanglingChild    = errors.New("child task does not exist")
	ErrInconsistentLink = errors.New("parent and child references disagree")
	ErrInstancePattern  = errors.New("recurrence instance cannot carry a pattern")
	ErrInstanceNoAnchor = errors.New("recurrence instance missing occurrence date")
	ErrCompletedStatus  = errors.New("completed timestamp must match done status")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrInvalidPriority  = errors.New("invalid priority")
	ErrInvalidKind      = errors.New("invalid kind")
	ErrInvalidPattern   = errors.New("invalid recurrence pattern")
	ErrNoRecurrence     = errors.New("task has no recurrence pattern")
	ErrRecurrenceLimit  = errors.New("recurrence generation safety limit exceeded")
	ErrNotInitialized   = errors.New("data directory not initialized (run 'plaintasks init' first)")
	ErrMissingFile      = errors.New("file does not exist")
)

// MalformedRecordError reports a record that could not be decoded,
// naming the offending key where one is known.
type MalformedRecordError struct {
	Key    string // Offending metadata key ("" if structural)
	Reason string
}

func (e *MalformedRecordError) Error() string {
	if e.Key == "" {
		return "malformed record: " + e.Reason
	}
	return fmt.Sprintf("malformed record: key %q: %s", e.Key, e.Reason)
}

// ValidationError rejects a mutation that would violate a store
// invariant. The store's state is untouched when it is returned.
type ValidationError struct {
	Err error  // One of the invariant sentinels above
	ID  string // Entity the mutation targeted
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %v", e.ID, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// WriteError reports a failed persistence attempt. The entity stays
// dirty and is retried on the next flush trigger.
type WriteError struct {
	Err  error
	ID   string
	Path string
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s (%s): %v", e.ID, e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Package domain contains core business entities and interfaces.
package domain

import (
	"slices"
	"time"
)

// Kind distinguishes actionable tasks from reference notes.
type Kind string

const (
	KindTask Kind = "task"
	KindNote Kind = "note"
)

// IsValid returns true if the kind is a known value.
func (k Kind) IsValid() bool {
	return k == KindTask || k == KindNote
}

// AttachmentKind describes how an attachment value is interpreted.
type AttachmentKind string

const (
	AttachmentFile AttachmentKind = "file" // Value is a filesystem path
	AttachmentLink AttachmentKind = "link" // Value is a URL
	AttachmentText AttachmentKind = "text" // Value is inline text
)

// IsValid returns true if the attachment kind is a known value.
func (k AttachmentKind) IsValid() bool {
	return k == AttachmentFile || k == AttachmentLink || k == AttachmentText
}

// Attachment is a file reference, link, or inline text attached to a task.
type Attachment struct {
	Kind  AttachmentKind
	Value string
	Label string
}

// TimeEntry records a tracked work interval. End is zero while tracking
// is still running.
type TimeEntry struct {
	Start time.Time
	End   time.Time
}

// Position is a 2D placement on a freeform board.
type Position struct {
	X float64
	Y float64
}

// Task represents a single task or note record.
// Fields are ordered to minimize memory padding.
type Task struct {
	Created         time.Time           // Creation time (UTC, second precision)
	Modified        time.Time           // Last mutation time
	Completed       time.Time           // Set iff Status == done
	Due             time.Time           // Optional due date (zero = unset)
	Defer           time.Time           // Optional defer date (zero = unset)
	Occurrence      time.Time           // Instance only: the occurrence date
	LastOccurrence  time.Time           // Template only: anchor of the last generated occurrence
	Repeat          *Recurrence         // Template only: recurrence pattern
	Positions       map[string]Position // Board slug -> 2D position
	ID              string              // Immutable unique identifier
	Title           string
	Body            string // Free-form body text
	Project         string // Optional project name
	Context         string // Optional context name
	Parent          string // Optional parent task ID
	TemplateID      string // Instance only: ID of the recurrence template
	Kind            Kind
	Status          Status
	Priority        Priority
	Tags            []string // Ordered, unique
	Children        []string // Ordered child task IDs
	TimeEntries     []TimeEntry
	Attachments     []Attachment
	Effort          int  // Estimated minutes (0 = unset)
	OccurrenceCount int  // Template only: occurrences generated so far
	Flagged         bool
	Archived        bool // Lifecycle bucket: archive tree vs active tree
}

// IsTemplate returns true if the task defines a recurrence pattern.
func (t *Task) IsTemplate() bool {
	return t.Repeat != nil
}

// IsInstance returns true if the task is a materialized occurrence of a
// recurrence template.
func (t *Task) IsInstance() bool {
	return t.TemplateID != ""
}

// IsCompleted returns true if the task is done.
func (t *Task) IsCompleted() bool {
	return t.Status == StatusDone
}

// IsOverdue returns true if the task has a due date in the past and is
// not completed.
func (t *Task) IsOverdue(now time.Time) bool {
	if t.Due.IsZero() || t.IsCompleted() {
		return false
	}
	return t.Due.Before(now)
}

// IsDeferred returns true if the task's defer date has not yet arrived.
func (t *Task) IsDeferred(now time.Time) bool {
	return !t.Defer.IsZero() && t.Defer.After(now)
}

// HasTag returns true if the task carries the given tag.
func (t *Task) HasTag(tag string) bool {
	return slices.Contains(t.Tags, tag)
}

// TrackedMinutes returns the total closed tracked time in minutes.
func (t *Task) TrackedMinutes(now time.Time) int {
	var total time.Duration
	for _, e := range t.TimeEntries {
		end := e.End
		if end.IsZero() {
			end = now
		}
		if end.After(e.Start) {
			total += end.Sub(e.Start)
		}
	}
	return int(total / time.Minute)
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	c := *t
	if t.Repeat != nil {
		r := *t.Repeat
		r.Weekdays = slices.Clone(t.Repeat.Weekdays)
		c.Repeat = &r
	}
	if t.Positions != nil {
		c.Positions = make(map[string]Position, len(t.Positions))
		for k, v := range t.Positions {
			c.Positions[k] = v
		}
	}
	c.Tags = slices.Clone(t.Tags)
	c.Children = slices.Clone(t.Children)
	c.TimeEntries = slices.Clone(t.TimeEntries)
	c.Attachments = slices.Clone(t.Attachments)
	return &c
}

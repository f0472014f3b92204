package domain

import (
	"slices"
	"time"
)

// BoardKind identifies how a board came to exist.
type BoardKind string

const (
	BoardInbox   BoardKind = "inbox"   // Built-in inbox board
	BoardNext    BoardKind = "next"    // Built-in next-actions board
	BoardProject BoardKind = "project" // Lazily created per project
	BoardContext BoardKind = "context" // Lazily created per context
	BoardCustom  BoardKind = "custom"  // Explicit user-created board
)

// IsValid returns true if the board kind is a known value.
func (k BoardKind) IsValid() bool {
	switch k {
	case BoardInbox, BoardNext, BoardProject, BoardContext, BoardCustom:
		return true
	default:
		return false
	}
}

// Layout controls how a board renders its matches.
type Layout string

const (
	LayoutFreeform Layout = "freeform"
	LayoutKanban   Layout = "kanban"
	LayoutGrid     Layout = "grid"
)

// IsValid returns true if the layout is a known value.
func (l Layout) IsValid() bool {
	switch l {
	case LayoutFreeform, LayoutKanban, LayoutGrid:
		return true
	default:
		return false
	}
}

// Board is a named, filtered view over the task store. A board never
// stores task references; membership is derived by evaluating Filter at
// read time.
// Fields are ordered to minimize memory padding.
type Board struct {
	Created      time.Time
	Modified     time.Time
	Accessed     time.Time // Last time the board was opened
	Slug         string    // Stable unique identifier
	Title        string
	Kind         BoardKind
	Layout       Layout
	Filter       Filter
	Columns      []string // Kanban column titles, in order
	AutoHideDays int      // Hide after N days without access (0 = never)
	Order        int      // Display order index
	Hidden       bool
}

// ShouldAutoHide returns true if the board's inactivity window has passed.
func (b *Board) ShouldAutoHide(now time.Time) bool {
	if b.AutoHideDays <= 0 || b.Accessed.IsZero() {
		return false
	}
	return now.Sub(b.Accessed) > time.Duration(b.AutoHideDays)*24*time.Hour
}

// Clone returns a deep copy of the board.
func (b *Board) Clone() *Board {
	c := *b
	c.Columns = slices.Clone(b.Columns)
	c.Filter = cloneFilter(b.Filter)
	return &c
}

func cloneFilter(f Filter) Filter {
	c := f
	c.Predicates = make([]Predicate, len(f.Predicates))
	for i, p := range f.Predicates {
		p.Statuses = slices.Clone(p.Statuses)
		p.Priorities = slices.Clone(p.Priorities)
		c.Predicates[i] = p
	}
	c.Subfilters = make([]Filter, len(f.Subfilters))
	for i, sub := range f.Subfilters {
		c.Subfilters[i] = cloneFilter(sub)
	}
	if len(c.Predicates) == 0 {
		c.Predicates = nil
	}
	if len(c.Subfilters) == 0 {
		c.Subfilters = nil
	}
	return c
}

// BuiltinBoards returns the boards that exist from first run.
func BuiltinBoards(now time.Time) []*Board {
	return []*Board{
		{
			Slug:     "inbox",
			Title:    "Inbox",
			Kind:     BoardInbox,
			Layout:   LayoutGrid,
			Filter:   Filter{Mode: MatchAll, Predicates: []Predicate{StatusIn(StatusInbox)}},
			Order:    0,
			Created:  now,
			Modified: now,
		},
		{
			Slug:     "next",
			Title:    "Next Actions",
			Kind:     BoardNext,
			Layout:   LayoutKanban,
			Filter:   Filter{Mode: MatchAll, Predicates: []Predicate{StatusIn(StatusNext)}},
			Columns:  []string{"High", "Medium", "Low"},
			Order:    1,
			Created:  now,
			Modified: now,
		},
	}
}

// NewProjectBoard builds the lazily created board for a project.
func NewProjectBoard(project string, autoHideDays int, now time.Time) *Board {
	return &Board{
		Slug:         ProjectBoardSlug(project),
		Title:        project,
		Kind:         BoardProject,
		Layout:       LayoutKanban,
		Filter:       Filter{Mode: MatchAll, Predicates: []Predicate{ProjectIs(project)}},
		Columns:      []string{"Next", "Waiting", "Done"},
		AutoHideDays: autoHideDays,
		Order:        100,
		Created:      now,
		Modified:     now,
		Accessed:     now,
	}
}

// NewContextBoard builds the lazily created board for a context.
func NewContextBoard(context string, autoHideDays int, now time.Time) *Board {
	return &Board{
		Slug:         ContextBoardSlug(context),
		Title:        context,
		Kind:         BoardContext,
		Layout:       LayoutGrid,
		Filter:       Filter{Mode: MatchAll, Predicates: []Predicate{ContextIs(context)}},
		AutoHideDays: autoHideDays,
		Order:        200,
		Created:      now,
		Modified:     now,
		Accessed:     now,
	}
}

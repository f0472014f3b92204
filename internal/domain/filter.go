package domain

import (
	"slices"
	"strings"
	"time"
)

// MatchMode controls how a filter combines its predicates and subfilters.
type MatchMode string

const (
	MatchAll MatchMode = "all" // Every member must match
	MatchAny MatchMode = "any" // At least one member must match
)

// PredicateKind enumerates the closed set of leaf predicate types. New
// predicate kinds require a case in Predicate.matches; the matcher is
// exhaustive and unknown kinds never match.
type PredicateKind string

const (
	PredStatus         PredicateKind = "status"    // Status in Statuses
	PredKind           PredicateKind = "kind"      // Kind equals EntityKind
	PredPriority       PredicateKind = "priority"  // Priority in Priorities
	PredProject        PredicateKind = "project"   // Project equals Value
	PredContext        PredicateKind = "context"   // Context equals Value
	PredTag            PredicateKind = "tag"       // Tags contains Value
	PredFlagged        PredicateKind = "flagged"   // Flagged equals Flag
	PredOverdue        PredicateKind = "overdue"   // IsOverdue(now) equals Flag
	PredDueBefore      PredicateKind = "due<"      // Due set and before Time
	PredDueAfter       PredicateKind = "due>"      // Due set and after Time
	PredDeferBefore    PredicateKind = "defer<"    // Defer set and before Time
	PredDeferAfter     PredicateKind = "defer>"    // Defer set and after Time
	PredCompletedAfter PredicateKind = "done>"     // Completed set and after Time
	PredHasSubtasks    PredicateKind = "subtasks"  // Has children equals Flag
	PredHasRecurrence  PredicateKind = "repeat"    // Is template equals Flag
	PredText           PredicateKind = "text"      // Title or body contains Value
)

// Predicate is a single field test. Only the fields relevant to Kind are
// consulted; the rest stay zero.
// Fields are ordered to minimize memory padding.
type Predicate struct {
	Time       time.Time     `yaml:"time,omitempty"`
	Kind       PredicateKind `yaml:"kind"`
	Value      string        `yaml:"value,omitempty"`
	EntityKind Kind          `yaml:"entityKind,omitempty"`
	Statuses   []Status      `yaml:"statuses,omitempty"`
	Priorities []Priority    `yaml:"priorities,omitempty"`
	Flag       bool          `yaml:"flag,omitempty"`
}

// Filter is a composable predicate tree evaluated against tasks. The zero
// value (no predicates, no subfilters) matches everything.
type Filter struct {
	Mode       MatchMode   `yaml:"mode,omitempty"`
	Predicates []Predicate `yaml:"predicates,omitempty"`
	Subfilters []Filter    `yaml:"subfilters,omitempty"`
}

// IsEmpty returns true if the filter has no predicates and no subfilters.
func (f Filter) IsEmpty() bool {
	return len(f.Predicates) == 0 && len(f.Subfilters) == 0
}

// Matches evaluates the filter against a task. It is pure and
// deterministic; now is the reference time for date predicates.
func (f Filter) Matches(t *Task, now time.Time) bool {
	if f.IsEmpty() {
		return true
	}
	any := f.Mode == MatchAny
	for _, p := range f.Predicates {
		ok := p.matches(t, now)
		if any && ok {
			return true
		}
		if !any && !ok {
			return false
		}
	}
	for _, sub := range f.Subfilters {
		ok := sub.Matches(t, now)
		if any && ok {
			return true
		}
		if !any && !ok {
			return false
		}
	}
	return !any
}

// And returns a filter matching tasks that match both a and b. The result
// is semantically identical to nesting a and b under an all-mode filter.
func And(a, b Filter) Filter {
	return Filter{Mode: MatchAll, Subfilters: []Filter{a, b}}
}

// Or returns a filter matching tasks that match a or b.
func Or(a, b Filter) Filter {
	return Filter{Mode: MatchAny, Subfilters: []Filter{a, b}}
}

func (p Predicate) matches(t *Task, now time.Time) bool {
	switch p.Kind {
	case PredStatus:
		return slices.Contains(p.Statuses, t.Status)
	case PredKind:
		return t.Kind == p.EntityKind
	case PredPriority:
		return slices.Contains(p.Priorities, t.Priority)
	case PredProject:
		return t.Project == p.Value
	case PredContext:
		return t.Context == p.Value
	case PredTag:
		return t.HasTag(p.Value)
	case PredFlagged:
		return t.Flagged == p.Flag
	case PredOverdue:
		return t.IsOverdue(now) == p.Flag
	case PredDueBefore:
		return !t.Due.IsZero() && t.Due.Before(p.Time)
	case PredDueAfter:
		return !t.Due.IsZero() && t.Due.After(p.Time)
	case PredDeferBefore:
		return !t.Defer.IsZero() && t.Defer.Before(p.Time)
	case PredDeferAfter:
		return !t.Defer.IsZero() && t.Defer.After(p.Time)
	case PredCompletedAfter:
		return !t.Completed.IsZero() && t.Completed.After(p.Time)
	case PredHasSubtasks:
		return (len(t.Children) > 0) == p.Flag
	case PredHasRecurrence:
		return t.IsTemplate() == p.Flag
	case PredText:
		needle := strings.ToLower(p.Value)
		return strings.Contains(strings.ToLower(t.Title), needle) ||
			strings.Contains(strings.ToLower(t.Body), needle)
	default:
		return false
	}
}

// StatusIn builds a status membership predicate.
func StatusIn(statuses ...Status) Predicate {
	return Predicate{Kind: PredStatus, Statuses: statuses}
}

// ProjectIs builds a project equality predicate.
func ProjectIs(name string) Predicate {
	return Predicate{Kind: PredProject, Value: name}
}

// ContextIs builds a context equality predicate.
func ContextIs(name string) Predicate {
	return Predicate{Kind: PredContext, Value: name}
}

// HasTagPred builds a tag membership predicate.
func HasTagPred(tag string) Predicate {
	return Predicate{Kind: PredTag, Value: tag}
}

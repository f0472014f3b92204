// Package query evaluates filters over task snapshots and shapes the
// results: sorting, grouping, and named perspectives.
package query

import (
	"slices"
	"strings"
	"time"

	"github.com/plaintasks/plaintasks/internal/domain"
)

// SortKey selects the field tasks are ordered by.
type SortKey string

const (
	SortPriority SortKey = "priority"
	SortDue      SortKey = "due"
	SortCreated  SortKey = "created"
	SortModified SortKey = "modified"
	SortTitle    SortKey = "title"
	SortEffort   SortKey = "effort"
)

// IsValid checks if the sort key is a known value.
func (k SortKey) IsValid() bool {
	switch k {
	case SortPriority, SortDue, SortCreated, SortModified, SortTitle, SortEffort:
		return true
	}
	return false
}

// Sort orders tasks by key, in place, stably. Ties fall back to ID so
// the order is deterministic across runs. desc reverses the key
// comparison but not the tiebreak.
func Sort(tasks []*domain.Task, key SortKey, desc bool) {
	slices.SortStableFunc(tasks, func(a, b *domain.Task) int {
		c := compare(a, b, key)
		if desc {
			c = -c
		}
		if c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}

func compare(a, b *domain.Task, key SortKey) int {
	switch key {
	case SortPriority:
		return a.Priority.Rank() - b.Priority.Rank()
	case SortDue:
		return compareTime(a.Due, b.Due)
	case SortCreated:
		return a.Created.Compare(b.Created)
	case SortModified:
		return a.Modified.Compare(b.Modified)
	case SortTitle:
		return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	case SortEffort:
		return a.Effort - b.Effort
	default:
		return 0
	}
}

// compareTime orders set times ascending with zero (unset) times last.
func compareTime(a, b time.Time) int {
	switch {
	case a.IsZero() && b.IsZero():
		return 0
	case a.IsZero():
		return 1
	case b.IsZero():
		return -1
	default:
		return a.Compare(b)
	}
}

// Filtered returns the tasks matching the filter, preserving input
// order.
func Filtered(tasks []*domain.Task, f domain.Filter, now time.Time) []*domain.Task {
	out := make([]*domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if f.Matches(t, now) {
			out = append(out, t)
		}
	}
	return out
}

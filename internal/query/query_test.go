package query

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plaintasks/plaintasks/internal/domain"
)

var queryNow = time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

func qt(id, title string, mutate ...func(*domain.Task)) *domain.Task {
	t := &domain.Task{
		ID:       id,
		Kind:     domain.KindTask,
		Title:    title,
		Status:   domain.StatusNext,
		Priority: domain.PriorityMedium,
		Created:  queryNow.Add(-24 * time.Hour),
		Modified: queryNow.Add(-time.Hour),
	}
	for _, f := range mutate {
		f(t)
	}
	return t
}

func ids(tasks []*domain.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func TestSort_Priority(t *testing.T) {
	tasks := []*domain.Task{
		qt("b", "Two", func(t *domain.Task) { t.Priority = domain.PriorityLow }),
		qt("a", "One", func(t *domain.Task) { t.Priority = domain.PriorityHigh }),
		qt("c", "Three", func(t *domain.Task) { t.Priority = domain.PriorityMedium }),
	}
	Sort(tasks, SortPriority, false)
	assert.Equal(t, []string{"a", "c", "b"}, ids(tasks), "high ranks first")

	Sort(tasks, SortPriority, true)
	assert.Equal(t, []string{"b", "c", "a"}, ids(tasks))
}

func TestSort_DueZeroLast(t *testing.T) {
	tasks := []*domain.Task{
		qt("a", "No due"),
		qt("b", "Soon", func(t *domain.Task) { t.Due = queryNow.Add(time.Hour) }),
		qt("c", "Later", func(t *domain.Task) { t.Due = queryNow.Add(48 * time.Hour) }),
	}
	Sort(tasks, SortDue, false)
	assert.Equal(t, []string{"b", "c", "a"}, ids(tasks), "unset due sorts last")

	// Descending reverses the dated tasks but keeps unset ones in place
	// relative to the key comparison.
	Sort(tasks, SortDue, true)
	assert.Equal(t, []string{"a", "c", "b"}, ids(tasks))
}

func TestSort_TitleCaseInsensitive(t *testing.T) {
	tasks := []*domain.Task{
		qt("a", "zebra"),
		qt("b", "Apple"),
		qt("c", "mango"),
	}
	Sort(tasks, SortTitle, false)
	assert.Equal(t, []string{"b", "c", "a"}, ids(tasks))
}

func TestSort_TiesBreakOnID(t *testing.T) {
	tasks := []*domain.Task{
		qt("c", "Same"),
		qt("a", "Same"),
		qt("b", "Same"),
	}
	Sort(tasks, SortTitle, false)
	assert.Equal(t, []string{"a", "b", "c"}, ids(tasks))

	// The tiebreak is not reversed by desc: equal keys still order by ID.
	Sort(tasks, SortTitle, true)
	assert.Equal(t, []string{"a", "b", "c"}, ids(tasks))
}

func TestSortKey_IsValid(t *testing.T) {
	assert.True(t, SortDue.IsValid())
	assert.True(t, SortEffort.IsValid())
	assert.False(t, SortKey("urgency").IsValid())
	assert.False(t, SortKey("").IsValid())
}

func TestFiltered_PreservesOrder(t *testing.T) {
	tasks := []*domain.Task{
		qt("a", "Keep", func(t *domain.Task) { t.Project = "Home" }),
		qt("b", "Drop", func(t *domain.Task) { t.Project = "Work" }),
		qt("c", "Keep too", func(t *domain.Task) { t.Project = "Home" }),
	}
	f := domain.Filter{Predicates: []domain.Predicate{domain.ProjectIs("Home")}}
	assert.Equal(t, []string{"a", "c"}, ids(Filtered(tasks, f, queryNow)))
	assert.Len(t, Filtered(tasks, domain.Filter{}, queryNow), 3)
}

func TestGroupBy_FirstOccurrenceOrder(t *testing.T) {
	tasks := []*domain.Task{
		qt("a", "A", func(t *domain.Task) { t.Project = "Home" }),
		qt("b", "B", func(t *domain.Task) { t.Project = "Work" }),
		qt("c", "C", func(t *domain.Task) { t.Project = "Home" }),
		qt("d", "D"),
	}
	groups := GroupBy(tasks, GroupProject)
	require.Len(t, groups, 3)
	assert.Equal(t, "Home", groups[0].Key)
	assert.Equal(t, []string{"a", "c"}, ids(groups[0].Tasks))
	assert.Equal(t, "Work", groups[1].Key)
	assert.Equal(t, "", groups[2].Key, "no project groups under the empty key")
}

func TestGroupBy_NoneYieldsSingleGroup(t *testing.T) {
	tasks := []*domain.Task{qt("a", "A"), qt("b", "B")}
	groups := GroupBy(tasks, GroupNone)
	require.Len(t, groups, 1)
	assert.Empty(t, groups[0].Key)
	assert.Equal(t, []string{"a", "b"}, ids(groups[0].Tasks))
}

func TestGroupBy_Status(t *testing.T) {
	tasks := []*domain.Task{
		qt("a", "A", func(t *domain.Task) { t.Status = domain.StatusInbox }),
		qt("b", "B", func(t *domain.Task) { t.Status = domain.StatusNext }),
	}
	groups := GroupBy(tasks, GroupStatus)
	require.Len(t, groups, 2)
	assert.Equal(t, "inbox", groups[0].Key)
	assert.Equal(t, "next", groups[1].Key)
}

func TestPerspective_Run(t *testing.T) {
	tasks := []*domain.Task{
		qt("a", "Low home", func(t *domain.Task) {
			t.Project = "Home"
			t.Priority = domain.PriorityLow
		}),
		qt("b", "Work thing", func(t *domain.Task) { t.Project = "Work" }),
		qt("c", "High home", func(t *domain.Task) {
			t.Project = "Home"
			t.Priority = domain.PriorityHigh
		}),
	}
	p := Perspective{
		Name:   "home",
		Filter: domain.Filter{Predicates: []domain.Predicate{domain.ProjectIs("Home")}},
		Sort:   SortPriority,
		Group:  GroupPriority,
	}
	groups := p.Run(tasks, queryNow)
	require.Len(t, groups, 2)
	assert.Equal(t, "high", groups[0].Key, "sorted before grouped, best rank leads")
	assert.Equal(t, []string{"c"}, ids(groups[0].Tasks))
	assert.Equal(t, []string{"a"}, ids(groups[1].Tasks))
}

func TestPerspectives_SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	saved := []Perspective{
		{
			Name: "overdue home",
			Filter: domain.Filter{
				Mode: domain.MatchAll,
				Predicates: []domain.Predicate{
					domain.ProjectIs("Home"),
					{Kind: domain.PredOverdue, Flag: true},
				},
			},
			Sort: SortDue,
			Desc: true,
		},
		{
			Name:  "by status",
			Group: GroupStatus,
		},
	}
	require.NoError(t, SavePerspectives(dir, saved))

	loaded, err := LoadPerspectives(dir)
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)
}

func TestLoadPerspectives_MissingFile(t *testing.T) {
	loaded, err := LoadPerspectives(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestLoadPerspectives_Malformed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(domain.PerspectivesPath(dir), []byte("perspectives: [broken"), 0o644))
	_, err := LoadPerspectives(dir)
	assert.Error(t, err)
}

package query

import "github.com/plaintasks/plaintasks/internal/domain"

// GroupKey selects the field tasks are partitioned by.
type GroupKey string

const (
	GroupNone     GroupKey = ""
	GroupStatus   GroupKey = "status"
	GroupProject  GroupKey = "project"
	GroupContext  GroupKey = "context"
	GroupPriority GroupKey = "priority"
)

// IsValid checks if the group key is a known value.
func (k GroupKey) IsValid() bool {
	switch k {
	case GroupNone, GroupStatus, GroupProject, GroupContext, GroupPriority:
		return true
	}
	return false
}

// Group is one partition of a grouped result.
type Group struct {
	Key   string
	Tasks []*domain.Task
}

// GroupBy partitions tasks by key, preserving the input order inside
// each group. Group order follows the first occurrence of each key in
// the input, so grouping a sorted slice yields groups led by their
// best-ranked member.
func GroupBy(tasks []*domain.Task, key GroupKey) []Group {
	if key == GroupNone {
		return []Group{{Tasks: tasks}}
	}
	index := make(map[string]int)
	var groups []Group
	for _, t := range tasks {
		k := groupValue(t, key)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, Group{Key: k})
		}
		groups[i].Tasks = append(groups[i].Tasks, t)
	}
	return groups
}

func groupValue(t *domain.Task, key GroupKey) string {
	switch key {
	case GroupStatus:
		return string(t.Status)
	case GroupProject:
		return t.Project
	case GroupContext:
		return t.Context
	case GroupPriority:
		return string(t.Priority)
	default:
		return ""
	}
}

// Package recur materializes recurrence templates into task instances.
// Templates carry the pattern and never complete; instances are plain
// tasks stamped with the template ID and an occurrence date.
package recur

import (
	"time"

	"github.com/google/uuid"

	"github.com/plaintasks/plaintasks/internal/domain"
	"github.com/plaintasks/plaintasks/internal/store"
)

// DefaultLimit bounds how many instances one generation pass may
// produce. A template whose anchor lies years in the past would
// otherwise flood the store.
const DefaultLimit = 100

// Engine generates and maintains recurrence instances against the
// store.
type Engine struct {
	store *store.Store
	clock domain.Clock
	log   domain.Logger
	limit int
}

// New creates an Engine. limit <= 0 selects DefaultLimit.
func New(s *store.Store, clock domain.Clock, log domain.Logger, limit int) *Engine {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Engine{store: s, clock: clock, log: log, limit: limit}
}

// GenerateDueInstances materializes every occurrence of the template
// that falls at or before asOf and has not been generated yet. The
// instances land as one atomic batch and the template's anchor advances
// with them. A pass stops after the engine's limit: the generated
// instances are still committed and returned together with
// ErrRecurrenceLimit, so a stale template drains its backlog across
// calls instead of getting stuck.
func (e *Engine) GenerateDueInstances(templateID string, asOf time.Time) ([]*domain.Task, error) {
	tpl, ok := e.store.Task(templateID)
	if !ok {
		return nil, &domain.ValidationError{ID: templateID, Err: domain.ErrTaskNotFound}
	}
	if !tpl.IsTemplate() {
		return nil, &domain.ValidationError{ID: templateID, Err: domain.ErrNoRecurrence}
	}

	var instances []*domain.Task
	truncated := false
	anchor := e.anchor(tpl)
	for {
		next := tpl.Repeat.Next(anchor)
		if next.After(asOf) {
			break
		}
		if tpl.Repeat.Ended(next, tpl.OccurrenceCount) {
			break
		}
		if len(instances) >= e.limit {
			truncated = true
			break
		}
		instances = append(instances, e.instantiate(tpl, next))
		tpl.OccurrenceCount++
		tpl.LastOccurrence = next
		anchor = next
	}
	if len(instances) == 0 {
		return nil, nil
	}

	if err := e.store.AddTasks(instances); err != nil {
		return nil, err
	}
	if err := e.store.UpdateTask(tpl); err != nil {
		return nil, err
	}
	out := make([]*domain.Task, len(instances))
	for i, inst := range instances {
		out[i] = inst.Clone()
	}
	if truncated {
		e.log.Warn("recur", "generation truncated at limit for "+templateID)
		return out, &domain.ValidationError{ID: templateID, Err: domain.ErrRecurrenceLimit}
	}
	return out, nil
}

// CompleteInstance completes a recurrence instance and generates
// exactly the next occurrence of its template, unless the pattern has
// ended.
func (e *Engine) CompleteInstance(id string) (*domain.Task, error) {
	inst, ok := e.store.Task(id)
	if !ok {
		return nil, &domain.ValidationError{ID: id, Err: domain.ErrTaskNotFound}
	}
	if !inst.IsInstance() {
		return nil, &domain.ValidationError{ID: id, Err: domain.ErrNoRecurrence}
	}
	if _, err := e.store.CompleteTask(id); err != nil {
		return nil, err
	}

	tpl, ok := e.store.Task(inst.TemplateID)
	if !ok || !tpl.IsTemplate() {
		// Template deleted or stopped; the instance stands alone.
		return nil, nil
	}
	next := tpl.Repeat.Next(e.anchor(tpl))
	if tpl.Repeat.Ended(next, tpl.OccurrenceCount) {
		return nil, nil
	}
	created := e.instantiate(tpl, next)
	tpl.OccurrenceCount++
	tpl.LastOccurrence = next
	if err := e.store.AddTask(created); err != nil {
		return nil, err
	}
	if err := e.store.UpdateTask(tpl); err != nil {
		return nil, err
	}
	return created.Clone(), nil
}

// StopRecurrence removes the template's pattern, turning it into a
// plain task. Existing instances are untouched.
func (e *Engine) StopRecurrence(templateID string) error {
	tpl, ok := e.store.Task(templateID)
	if !ok {
		return &domain.ValidationError{ID: templateID, Err: domain.ErrTaskNotFound}
	}
	if !tpl.IsTemplate() {
		return &domain.ValidationError{ID: templateID, Err: domain.ErrNoRecurrence}
	}
	tpl.Repeat = nil
	return e.store.UpdateTask(tpl)
}

// DeleteFutureInstances removes the template's uncompleted instances
// with occurrence dates at or after asOf. Returns the number deleted.
func (e *Engine) DeleteFutureInstances(templateID string, asOf time.Time) (int, error) {
	if _, ok := e.store.Task(templateID); !ok {
		return 0, &domain.ValidationError{ID: templateID, Err: domain.ErrTaskNotFound}
	}
	var ids []string
	for _, t := range e.store.Tasks() {
		if t.TemplateID == templateID && !t.IsCompleted() && !t.Occurrence.Before(asOf) {
			ids = append(ids, t.ID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := e.store.DeleteTasks(ids); err != nil {
		return 0, err
	}
	return len(ids), nil
}

// anchor returns the date the next occurrence is computed from: the
// last generated occurrence, falling back to the template's due date,
// falling back to its creation time.
func (e *Engine) anchor(tpl *domain.Task) time.Time {
	switch {
	case !tpl.LastOccurrence.IsZero():
		return tpl.LastOccurrence
	case !tpl.Due.IsZero():
		return tpl.Due
	default:
		return tpl.Created
	}
}

// instantiate builds one occurrence instance. Instances inherit the
// template's descriptive fields but start fresh: default status, no
// pattern, no board positions, no parent/child links.
func (e *Engine) instantiate(tpl *domain.Task, occurrence time.Time) *domain.Task {
	now := e.clock.Now().UTC().Truncate(time.Second)
	return &domain.Task{
		ID:         uuid.NewString(),
		Kind:       tpl.Kind,
		Title:      tpl.Title,
		Body:       tpl.Body,
		Project:    tpl.Project,
		Context:    tpl.Context,
		Priority:   tpl.Priority,
		Tags:       append([]string(nil), tpl.Tags...),
		Effort:     tpl.Effort,
		Flagged:    tpl.Flagged,
		Status:     domain.StatusInbox,
		Due:        occurrence,
		Occurrence: occurrence,
		TemplateID: tpl.ID,
		Created:    now,
		Modified:   now,
	}
}

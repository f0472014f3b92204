package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plaintasks/plaintasks/internal/domain"
	"github.com/plaintasks/plaintasks/internal/infra/codec"
)

func TestStore_AddTask_EmptyCollectionsBecomeNil(t *testing.T) {
	s, _, _ := newTestStore(t)
	task := taskFixture("Sparse")
	task.Tags = []string{}
	task.Children = []string{}
	task.TimeEntries = []domain.TimeEntry{}
	task.Attachments = []domain.Attachment{}
	task.Positions = map[string]domain.Position{}
	task.Repeat = &domain.Recurrence{Freq: domain.FreqDaily, Interval: 1, Weekdays: []time.Weekday{}}
	require.NoError(t, s.AddTask(task))

	got, ok := s.Task(task.ID)
	require.True(t, ok)
	assert.Nil(t, got.Tags)
	assert.Nil(t, got.Children)
	assert.Nil(t, got.TimeEntries)
	assert.Nil(t, got.Attachments)
	assert.Nil(t, got.Positions)
	require.NotNil(t, got.Repeat)
	assert.Nil(t, got.Repeat.Weekdays)
}

func TestStore_AddTask_EmptyCollectionsRoundTripExact(t *testing.T) {
	s, _, _ := newTestStore(t)
	task := taskFixture("Sparse")
	task.Tags = []string{}
	task.Positions = map[string]domain.Position{}
	require.NoError(t, s.AddTask(task))

	// The codec omits empty keys; the stored form must survive an
	// encode/decode cycle unchanged.
	got, _ := s.Task(task.ID)
	decoded, err := codec.DecodeTask(codec.EncodeTask(got))
	require.NoError(t, err)
	assert.Equal(t, got, decoded)
}

func TestStore_AddBoard_EmptyColumnsBecomeNil(t *testing.T) {
	s, _, _ := newTestStore(t)
	board := &domain.Board{
		Slug:    "bare",
		Title:   "Bare",
		Kind:    domain.BoardCustom,
		Layout:  domain.LayoutGrid,
		Columns: []string{},
	}
	require.NoError(t, s.AddBoard(board))

	got, ok := s.Board("bare")
	require.True(t, ok)
	assert.Nil(t, got.Columns)
}

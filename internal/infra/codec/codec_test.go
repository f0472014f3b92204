package codec

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plaintasks/plaintasks/internal/domain"
)

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

func fullTask() *domain.Task {
	return &domain.Task{
		ID:       "0b5e7a52-9f7c-4d2a-8f31-2f6a1f9f0c11",
		Kind:     domain.KindTask,
		Title:    "Write quarterly report",
		Body:     "First draft by Friday.\n\n- outline\n- numbers\n",
		Status:   domain.StatusNext,
		Priority: domain.PriorityHigh,
		Project:  "Work",
		Context:  "office",
		Tags:     []string{"report", "q3"},
		Parent:   "11111111-1111-1111-1111-111111111111",
		Children: []string{"22222222-2222-2222-2222-222222222222"},
		Effort:   90,
		Flagged:  true,
		Due:      ts("2026-09-01T00:00:00Z"),
		Defer:    ts("2026-08-28T00:00:00Z"),
		Positions: map[string]domain.Position{
			"inbox": {X: 12.5, Y: -3},
		},
		TimeEntries: []domain.TimeEntry{
			{Start: ts("2026-08-20T09:00:00Z"), End: ts("2026-08-20T09:45:00Z")},
			{Start: ts("2026-08-21T10:00:00Z")},
		},
		Attachments: []domain.Attachment{
			{Kind: domain.AttachmentLink, Value: "https://example.com/spec", Label: "spec"},
			{Kind: domain.AttachmentText, Value: "call Bob first", Label: ""},
		},
		Created:  ts("2026-08-19T08:00:00Z"),
		Modified: ts("2026-08-22T17:30:00Z"),
	}
}

func TestEncodeDecodeTask_RoundTrip(t *testing.T) {
	original := fullTask()

	encoded := EncodeTask(original)
	decoded, err := DecodeTask(encoded)
	require.NoError(t, err)

	assert.Equal(t, original, decoded)
	// Re-encoding the decoded entity reproduces the exact text.
	assert.Equal(t, encoded, EncodeTask(decoded))
}

func TestEncodeDecodeTask_RecurrenceRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		repeat *domain.Recurrence
	}{
		{"daily", &domain.Recurrence{Freq: domain.FreqDaily, Interval: 1}},
		{"weekly with days", &domain.Recurrence{
			Freq:     domain.FreqWeekly,
			Interval: 2,
			Weekdays: []time.Weekday{time.Monday, time.Thursday},
		}},
		{"monthly last day", &domain.Recurrence{Freq: domain.FreqMonthly, Interval: 1, LastDay: true}},
		{"monthly fixed day with count", &domain.Recurrence{
			Freq:     domain.FreqMonthly,
			Interval: 3,
			MonthDay: 15,
			Count:    10,
		}},
		{"yearly until", &domain.Recurrence{
			Freq:     domain.FreqYearly,
			Interval: 1,
			Until:    ts("2030-01-01T00:00:00Z"),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := fullTask()
			original.Repeat = tt.repeat
			original.LastOccurrence = ts("2026-08-01T00:00:00Z")
			original.OccurrenceCount = 4

			decoded, err := DecodeTask(EncodeTask(original))
			require.NoError(t, err)
			assert.Equal(t, original.Repeat, decoded.Repeat)
			assert.Equal(t, original.LastOccurrence, decoded.LastOccurrence)
			assert.Equal(t, original.OccurrenceCount, decoded.OccurrenceCount)
		})
	}
}

func TestEncodeDecodeTask_EscapedValues(t *testing.T) {
	original := fullTask()
	original.Title = "Line one\nline two, with: punctuation\\slash"
	original.Project = "A,B"
	original.Tags = []string{"with,comma", "with\\backslash", "plain"}

	decoded, err := DecodeTask(EncodeTask(original))
	require.NoError(t, err)
	assert.Equal(t, original.Title, decoded.Title)
	assert.Equal(t, original.Project, decoded.Project)
	assert.Equal(t, original.Tags, decoded.Tags)
}

func TestDecodeTask_BodyPreservedVerbatim(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty", ""},
		{"trailing newlines", "text\n\n\n"},
		{"leading blank line", "\nstarts after a blank\n"},
		{"fence inside body", "---\nnot metadata\n---\n"},
		{"no trailing newline", "no newline at end"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := fullTask()
			original.Body = tt.body
			decoded, err := DecodeTask(EncodeTask(original))
			require.NoError(t, err)
			assert.Equal(t, tt.body, decoded.Body)
		})
	}
}

func TestDecodeTask_UnknownKeysDropped(t *testing.T) {
	encoded := EncodeTask(fullTask())
	withExtra := strings.Replace(encoded, "status:", "some_future_key: whatever\nstatus:", 1)

	decoded, err := DecodeTask(withExtra)
	require.NoError(t, err)
	assert.Equal(t, fullTask(), decoded)
}

func TestDecodeTask_Malformed(t *testing.T) {
	valid := EncodeTask(fullTask())

	tests := []struct {
		name string
		text string
		key  string
	}{
		{"missing opening fence", strings.TrimPrefix(valid, "---\n"), ""},
		{"bad status", strings.Replace(valid, "status: next", "status: bogus", 1), "status"},
		{"bad priority", strings.Replace(valid, "priority: high", "priority: urgent", 1), "priority"},
		{"bad kind", strings.Replace(valid, "kind: task", "kind: widget", 1), "kind"},
		{"bad timestamp", strings.Replace(valid, "created: 2026-08-19T08:00:00Z", "created: yesterday", 1), "created"},
		{"bad effort", strings.Replace(valid, "effort: 90", "effort: lots", 1), "effort"},
		{"bad flag", strings.Replace(valid, "flagged: true", "flagged: yes", 1), "flagged"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeTask(tt.text)
			require.Error(t, err)
			var mErr *domain.MalformedRecordError
			require.ErrorAs(t, err, &mErr)
			assert.Equal(t, tt.key, mErr.Key)
		})
	}
}

func TestDecodeTask_MissingRequiredKey(t *testing.T) {
	for _, key := range []string{"id", "kind", "title", "status", "priority", "created", "modified"} {
		t.Run(key, func(t *testing.T) {
			original := fullTask()
			encoded := EncodeTask(original)
			// Rename the key so it reads as unknown.
			mangled := strings.Replace(encoded, key+":", "x_"+key+":", 1)

			_, err := DecodeTask(mangled)
			var mErr *domain.MalformedRecordError
			require.ErrorAs(t, err, &mErr)
			assert.Equal(t, key, mErr.Key)
			assert.Contains(t, mErr.Reason, "missing required key")
		})
	}
}

func TestEncodeTask_Deterministic(t *testing.T) {
	original := fullTask()
	original.Positions = map[string]domain.Position{
		"zeta": {X: 1, Y: 2},
		"alfa": {X: 3, Y: 4},
		"mid":  {X: 5, Y: 6},
	}

	first := EncodeTask(original)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, EncodeTask(original))
	}
	// Map iteration order must not leak into the output.
	assert.Less(t, strings.Index(first, "alfa="), strings.Index(first, "zeta="))
}

func TestEncodeTask_OmitsUnsetFields(t *testing.T) {
	minimal := &domain.Task{
		ID:       "33333333-3333-3333-3333-333333333333",
		Kind:     domain.KindTask,
		Title:    "Minimal",
		Status:   domain.StatusInbox,
		Priority: domain.PriorityMedium,
		Created:  ts("2026-08-19T08:00:00Z"),
		Modified: ts("2026-08-19T08:00:00Z"),
	}

	encoded := EncodeTask(minimal)
	for _, absent := range []string{"due:", "defer:", "tags:", "parent:", "repeat:", "positions:", "archived:", "completed:"} {
		assert.NotContains(t, encoded, absent)
	}

	decoded, err := DecodeTask(encoded)
	require.NoError(t, err)
	assert.Equal(t, minimal, decoded)
}

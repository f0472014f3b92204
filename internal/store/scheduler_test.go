package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/plaintasks/plaintasks/internal/domain"
	"github.com/plaintasks/plaintasks/internal/testutil"
)

func TestFlushScheduler_ScheduleRearmsTimer(t *testing.T) {
	timers := testutil.NewManualTimers()
	fired := 0
	sched := NewFlushScheduler(500*time.Millisecond, timers.Source, func() { fired++ })

	sched.Schedule()
	sched.Schedule()
	sched.Schedule()
	assert.Equal(t, 1, timers.Armed(), "re-arming stops the previous timer")

	timers.FireAll()
	assert.Equal(t, 1, fired)
}

func TestFlushScheduler_Cancel(t *testing.T) {
	timers := testutil.NewManualTimers()
	fired := 0
	sched := NewFlushScheduler(500*time.Millisecond, timers.Source, func() { fired++ })

	sched.Schedule()
	sched.Cancel()
	timers.FireAll()
	assert.Zero(t, fired)
}

func TestFlushScheduler_FlushNow(t *testing.T) {
	timers := testutil.NewManualTimers()
	fired := 0
	sched := NewFlushScheduler(500*time.Millisecond, timers.Source, func() { fired++ })

	sched.Schedule()
	sched.FlushNow()
	assert.Equal(t, 1, fired, "flush runs synchronously")

	timers.FireAll()
	assert.Equal(t, 1, fired, "canceled timer does not fire again")
}

func TestFlushScheduler_WindowResetNotAccumulated(t *testing.T) {
	timers := testutil.NewManualTimers()
	var delays []time.Duration
	source := func(d time.Duration, fn func()) domain.Timer {
		delays = append(delays, d)
		return timers.Source(d, fn)
	}
	sched := NewFlushScheduler(500*time.Millisecond, source, func() {})

	sched.Schedule()
	sched.Schedule()
	sched.Schedule()

	// Every arm uses the full window; the window resets, it never
	// shrinks or accumulates.
	assert.Equal(t, []time.Duration{
		500 * time.Millisecond,
		500 * time.Millisecond,
		500 * time.Millisecond,
	}, delays)
	assert.Equal(t, 1, timers.Armed())
}

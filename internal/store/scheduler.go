package store

import (
	"sync"
	"time"

	"github.com/plaintasks/plaintasks/internal/domain"
)

// FlushScheduler coalesces flush requests behind a single debounce
// timer. Every Schedule resets the timer to the full quiescence window,
// so a burst of mutations produces one flush after the burst ends.
// The timer source is injectable so tests drive it without real time.
type FlushScheduler struct {
	timers domain.TimerSource
	flush  func()
	timer  domain.Timer
	window time.Duration
	mu     sync.Mutex
}

// NewFlushScheduler creates a scheduler invoking flush after the window.
func NewFlushScheduler(window time.Duration, timers domain.TimerSource, flush func()) *FlushScheduler {
	return &FlushScheduler{
		window: window,
		timers: timers,
		flush:  flush,
	}
}

// Schedule arms (or re-arms) the debounce timer. The window is reset,
// not accumulated.
func (c *FlushScheduler) Schedule() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = c.timers(c.window, c.fire)
}

// Cancel stops any pending flush without running it.
func (c *FlushScheduler) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// FlushNow cancels the pending timer and runs the flush synchronously.
// Used on explicit save and on shutdown; the caller returns only after
// dirty state has been handed to the persister.
func (c *FlushScheduler) FlushNow() {
	c.Cancel()
	c.flush()
}

func (c *FlushScheduler) fire() {
	c.mu.Lock()
	c.timer = nil
	c.mu.Unlock()
	c.flush()
}

// Package testutil provides shared test utilities and mock implementations.
package testutil

import (
	"strings"
	"sync"
	"time"

	"github.com/plaintasks/plaintasks/internal/domain"
)

// MockClock is a test double for domain.Clock.
type MockClock struct {
	mu      sync.Mutex
	nowTime time.Time
}

// NewMockClock creates a MockClock frozen at t.
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{nowTime: t}
}

// Now returns the configured time.
func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nowTime
}

// Advance moves the clock forward by d.
func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nowTime = m.nowTime.Add(d)
}

// Set moves the clock to t.
func (m *MockClock) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nowTime = t
}

// ManualTimer is a pending callback armed through ManualTimers.
type ManualTimer struct {
	fn      func()
	Delay   time.Duration
	stopped bool
	fired   bool
	mu      sync.Mutex
}

// Stop cancels the timer.
func (t *ManualTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// fire runs the callback unless the timer was stopped.
func (t *ManualTimer) fire() bool {
	t.mu.Lock()
	if t.stopped || t.fired {
		t.mu.Unlock()
		return false
	}
	t.fired = true
	fn := t.fn
	t.mu.Unlock()
	fn()
	return true
}

// ManualTimers is a TimerSource whose timers only fire when the test
// says so. Debounce logic becomes deterministic: arm, re-arm, then
// FireAll to simulate the window elapsing.
type ManualTimers struct {
	mu     sync.Mutex
	timers []*ManualTimer
}

// NewManualTimers creates an empty manual timer source.
func NewManualTimers() *ManualTimers {
	return &ManualTimers{}
}

// Source is the domain.TimerSource to inject.
func (m *ManualTimers) Source(d time.Duration, fn func()) domain.Timer {
	t := &ManualTimer{fn: fn, Delay: d}
	m.mu.Lock()
	m.timers = append(m.timers, t)
	m.mu.Unlock()
	return t
}

// FireAll fires every armed, unstopped timer and returns how many ran.
// Timers armed by the callbacks themselves are not fired; call again to
// run those.
func (m *ManualTimers) FireAll() int {
	m.mu.Lock()
	pending := m.timers
	m.timers = nil
	m.mu.Unlock()
	fired := 0
	for _, t := range pending {
		if t.fire() {
			fired++
		}
	}
	return fired
}

// Armed returns how many timers are currently armed and unstopped.
func (m *ManualTimers) Armed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.timers {
		t.mu.Lock()
		if !t.stopped && !t.fired {
			n++
		}
		t.mu.Unlock()
	}
	return n
}

// MemoryLogger is a test double for domain.Logger collecting entries.
type MemoryLogger struct {
	mu      sync.Mutex
	Entries []LogEntry
}

// LogEntry is one captured log line.
type LogEntry struct {
	Level    string
	Category string
	Msg      string
}

func (l *MemoryLogger) add(level, category, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Entries = append(l.Entries, LogEntry{Level: level, Category: category, Msg: msg})
}

// Debug records a debug entry.
func (l *MemoryLogger) Debug(category, msg string) { l.add("debug", category, msg) }

// Info records an info entry.
func (l *MemoryLogger) Info(category, msg string) { l.add("info", category, msg) }

// Warn records a warn entry.
func (l *MemoryLogger) Warn(category, msg string) { l.add("warn", category, msg) }

// Error records an error entry.
func (l *MemoryLogger) Error(category, msg string) { l.add("error", category, msg) }

// Has reports whether any captured entry contains msg at the level.
func (l *MemoryLogger) Has(level, msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.Entries {
		if e.Level == level && strings.Contains(e.Msg, msg) {
			return true
		}
	}
	return false
}

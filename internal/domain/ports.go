package domain

import "time"

// Clock provides time operations for testability.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// RealClock implements Clock using the system clock.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// Logger is the minimal logging surface used across the core.
type Logger interface {
	Debug(category, msg string)
	Info(category, msg string)
	Warn(category, msg string)
	Error(category, msg string)
}

// NopLogger discards all log output.
type NopLogger struct{}

// Debug discards the message.
func (NopLogger) Debug(string, string) {}

// Info discards the message.
func (NopLogger) Info(string, string) {}

// Warn discards the message.
func (NopLogger) Warn(string, string) {}

// Error discards the message.
func (NopLogger) Error(string, string) {}

// Timer is a cancelable pending callback.
type Timer interface {
	// Stop cancels the timer. It reports whether the callback was
	// prevented from running.
	Stop() bool
}

// TimerSource schedules a callback after a delay. Production code uses
// StdTimerSource; tests inject a manual source so debounce behavior is
// verifiable without real time.
type TimerSource func(d time.Duration, fn func()) Timer

// StdTimerSource schedules callbacks with time.AfterFunc.
func StdTimerSource(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// FileOp classifies a filesystem change event.
type FileOp string

const (
	FileCreated FileOp = "create"
	FileWritten FileOp = "write"
	FileRemoved FileOp = "remove"
	FileRenamed FileOp = "rename"
)

// FileEvent is a raw filesystem change, before debouncing.
type FileEvent struct {
	Path string
	Op   FileOp
}

// DirWatcher streams filesystem change events for a directory tree.
type DirWatcher interface {
	// Start begins watching root recursively.
	Start(root string) error

	// Events returns the change event stream. The channel closes when
	// the watcher is closed.
	Events() <-chan FileEvent

	// Close stops watching and releases resources.
	Close() error
}

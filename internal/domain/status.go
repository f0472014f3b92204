package domain

// Status represents the lifecycle state of a task.
type Status string

const (
	StatusInbox   Status = "inbox"   // Captured, not yet triaged
	StatusNext    Status = "next"    // Actionable now
	StatusWaiting Status = "waiting" // Blocked on someone or something
	StatusSomeday Status = "someday" // Deferred indefinitely
	StatusDone    Status = "done"    // Completed
)

// AllStatuses returns all valid status values.
func AllStatuses() []Status {
	return []Status{
		StatusInbox,
		StatusNext,
		StatusWaiting,
		StatusSomeday,
		StatusDone,
	}
}

// IsValid returns true if the status is a known value.
func (s Status) IsValid() bool {
	switch s {
	case StatusInbox, StatusNext, StatusWaiting, StatusSomeday, StatusDone:
		return true
	default:
		return false
	}
}

// IsTerminal returns true if the status is a terminal state.
func (s Status) IsTerminal() bool {
	return s == StatusDone
}

// Display returns a human-readable representation of the status.
func (s Status) Display() string {
	switch s {
	case StatusInbox:
		return "Inbox"
	case StatusNext:
		return "Next Action"
	case StatusWaiting:
		return "Waiting"
	case StatusSomeday:
		return "Someday"
	case StatusDone:
		return "Done"
	default:
		return string(s)
	}
}

// Priority represents the urgency of a task.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// AllPriorities returns all valid priority values, highest first.
func AllPriorities() []Priority {
	return []Priority{PriorityHigh, PriorityMedium, PriorityLow}
}

// IsValid returns true if the priority is a known value.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

// Rank returns a sortable rank for the priority, lower is more urgent.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}

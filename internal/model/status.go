package model

// ConversationStatus is the lifecycle state of a conversation.
// It only moves forward: pending < in_progress < {completed, failed}.
type ConversationStatus string

const (
	StatusPending    ConversationStatus = "pending"
	StatusInProgress ConversationStatus = "in_progress"
	StatusCompleted  ConversationStatus = "completed"
	StatusFailed     ConversationStatus = "failed"
)

// AllStatuses lists every known status in lifecycle order.
var AllStatuses = []ConversationStatus{StatusPending, StatusInProgress, StatusCompleted, StatusFailed}

// Valid reports whether s is a known status.
func (s ConversationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether s is completed or failed.
func (s ConversationStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

func (s ConversationStatus) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusInProgress:
		return 1
	case StatusCompleted, StatusFailed:
		return 2
	}
	return -1
}

// CanTransitionTo reports whether moving from s to next respects forward-only ordering.
// Staying in the same status is allowed; leaving a terminal status is not.
func (s ConversationStatus) CanTransitionTo(next ConversationStatus) bool {
	if !next.Valid() {
		return false
	}
	if s == next {
		return true
	}
	if s.IsTerminal() {
		return false
	}
	return next.rank() > s.rank()
}

// Label is the human readable badge text.
func (s ConversationStatus) Label() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusInProgress:
		return "In Progress"
	case StatusCompleted:
		return "Completed"
	case StatusFailed:
		return "Failed"
	}
	return string(s)
}

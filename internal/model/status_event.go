package model

import "time"

// StatusEvent is published whenever a watched conversation changes status.
type StatusEvent struct {
	ConversationID string             `json:"conversation_id"`
	PreviousStatus ConversationStatus `json:"previous_status,omitempty"`
	Status         ConversationStatus `json:"status"`
	CompletedAt    *time.Time         `json:"completed_at,omitempty"`
	ObservedAt     time.Time          `json:"observed_at"`
}

// Terminal reports whether the event closes the conversation.
func (e StatusEvent) Terminal() bool {
	return e.Status.IsTerminal()
}

package model

import (
	"sort"
	"time"
)

// MessageRole identifies who spoke a transcript line.
type MessageRole string

const (
	RoleAgent MessageRole = "agent"
	RoleHuman MessageRole = "human"
)

// Message is one append-only transcript line of a conversation.
type Message struct {
	ID             string      `json:"id"`
	ConversationID string      `json:"conversation_id"`
	Role           MessageRole `json:"role"`
	Content        string      `json:"content"`
	CreatedAt      time.Time   `json:"created_at"`
}

// SortMessages orders messages by creation time, keeping arrival order for ties.
func SortMessages(messages []Message) {
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})
}

package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// CallOutcome is the archived record of a finished conversation.
type CallOutcome struct {
	ConversationID string             `json:"conversation_id" gorm:"column:conversation_id;primaryKey"`
	AgentID        string             `json:"agent_id" gorm:"column:agent_id;index"`
	DriverID       string             `json:"driver_id" gorm:"column:driver_id;index"`
	LoadNumber     string             `json:"load_number" gorm:"column:load_number"`
	Status         ConversationStatus `json:"status" gorm:"column:status;index"`
	StartedAt      time.Time          `json:"started_at" gorm:"column:started_at"`
	CompletedAt    *time.Time         `json:"completed_at,omitempty" gorm:"column:completed_at"`
	DurationMs     *int64             `json:"duration_ms,omitempty" gorm:"column:duration_ms"`
	RecordingURL   *string            `json:"recording_url,omitempty" gorm:"column:recording_url"`
	Transcript     *string            `json:"transcript,omitempty" gorm:"column:transcript"`
	StructuredData datatypes.JSON     `json:"structured_data,omitempty" gorm:"type:jsonb;column:structured_data"`
	MessageCount   int                `json:"message_count" gorm:"column:message_count"`
	ArchivedAt     time.Time          `json:"archived_at" gorm:"column:archived_at"`
}

// TableName specifies the table name for GORM.
func (CallOutcome) TableName() string {
	return "call_outcomes"
}

// CallOutcomeUpdateColumns lists the columns refreshed when an outcome is archived again.
func CallOutcomeUpdateColumns() []string {
	return []string{
		"status", "completed_at", "duration_ms", "recording_url",
		"transcript", "structured_data", "message_count", "archived_at",
	}
}

// NewCallOutcome builds an archive record from the final conversation snapshot.
func NewCallOutcome(c Conversation, messages []Message, archivedAt time.Time) (CallOutcome, error) {
	outcome := CallOutcome{
		ConversationID: c.ID,
		AgentID:        c.AgentID,
		DriverID:       c.DriverID,
		LoadNumber:     c.LoadNumber,
		Status:         c.Status,
		StartedAt:      c.StartedAt,
		CompletedAt:    c.CompletedAt,
		DurationMs:     c.DurationMs,
		RecordingURL:   c.RecordingURL,
		Transcript:     c.Transcript,
		MessageCount:   len(messages),
		ArchivedAt:     archivedAt,
	}
	if c.StructuredData != nil {
		raw, err := json.Marshal(c.StructuredData)
		if err != nil {
			return CallOutcome{}, err
		}
		outcome.StructuredData = datatypes.JSON(raw)
	}
	return outcome, nil
}

// StatusCount is one row of the per-status aggregate.
type StatusCount struct {
	Status ConversationStatus `json:"status" gorm:"column:status"`
	Count  int64              `json:"count" gorm:"column:count"`
}

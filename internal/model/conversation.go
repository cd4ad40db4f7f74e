package model

import (
	"fmt"
	"time"

	"gitlab.com/timkado/api/voice-agent-console/pkg/utils"
)

// Conversation is a single test call between an agent and a driver.
type Conversation struct {
	ID         string             `json:"id"`
	AgentID    string             `json:"agent_id"`
	DriverID   string             `json:"driver_id"`
	LoadNumber string             `json:"load_number"`
	Status     ConversationStatus `json:"status"`
	StartedAt  time.Time          `json:"started_at"`
	// CompletedAt is set exactly when Status is terminal.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	// RetellCallID and RetellAccessToken are only populated by the live test-call flow.
	RetellCallID      *string                `json:"retell_call_id,omitempty"`
	RetellAccessToken *string                `json:"retell_access_token,omitempty"`
	RecordingURL      *string                `json:"recording_url,omitempty"`
	Transcript        *string                `json:"transcript,omitempty"`
	DurationMs        *int64                 `json:"duration_ms,omitempty"`
	StructuredData    map[string]interface{} `json:"structured_data,omitempty"`
}

// ConversationListItem is the list view projection with denormalised names.
type ConversationListItem struct {
	ID          string             `json:"id"`
	AgentID     string             `json:"agent_id"`
	DriverID    string             `json:"driver_id"`
	AgentName   string             `json:"agent_name"`
	DriverName  string             `json:"driver_name"`
	LoadNumber  string             `json:"load_number"`
	Status      ConversationStatus `json:"status"`
	StartedAt   time.Time          `json:"started_at"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`
	DurationMs  *int64             `json:"duration_ms,omitempty"`
}

// ConversationStatusResponse is the lightweight payload returned by the status endpoint.
type ConversationStatusResponse struct {
	ID          string             `json:"id"`
	Status      ConversationStatus `json:"status"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`
}

// StructuredDataResponse carries the post-call extraction for a conversation.
type StructuredDataResponse struct {
	ConversationID string                 `json:"conversation_id"`
	StructuredData map[string]interface{} `json:"structured_data,omitempty"`
	RecordingURL   *string                `json:"recording_url,omitempty"`
	DurationMs     *int64                 `json:"duration_ms,omitempty"`
}

// CheckInvariants verifies the completed_at/terminal pairing and the status value.
func (c Conversation) CheckInvariants() error {
	if !c.Status.Valid() {
		return fmt.Errorf("conversation %s: unknown status %q", c.ID, c.Status)
	}
	if c.Status.IsTerminal() && c.CompletedAt == nil {
		return fmt.Errorf("conversation %s: status %s without completed_at", c.ID, c.Status)
	}
	if !c.Status.IsTerminal() && c.CompletedAt != nil {
		return fmt.Errorf("conversation %s: completed_at set while %s", c.ID, c.Status)
	}
	return nil
}

// HasLiveSession reports whether the conversation carries credentials for a live call.
func (c Conversation) HasLiveSession() bool {
	return c.RetellAccessToken != nil && *c.RetellAccessToken != ""
}

// AccessToken returns the live call token or an empty string.
func (c Conversation) AccessToken() string {
	if c.RetellAccessToken == nil {
		return ""
	}
	return *c.RetellAccessToken
}

// WithStatus overlays a polled status onto the conversation snapshot.
// Responses for other conversations, or ones that would move the status
// backwards, leave the snapshot untouched.
func (c Conversation) WithStatus(s ConversationStatusResponse) Conversation {
	if s.ID != "" && s.ID != c.ID {
		return c
	}
	if !c.Status.CanTransitionTo(s.Status) {
		return c
	}
	c.Status = s.Status
	if s.Status.IsTerminal() {
		switch {
		case s.CompletedAt != nil:
			c.CompletedAt = s.CompletedAt
		case c.CompletedAt == nil:
			// Terminal responses without a timestamp still close the snapshot.
			now := utils.Now()
			c.CompletedAt = &now
		}
	} else {
		c.CompletedAt = nil
	}
	return c
}

// WithStructuredData merges the structured-data endpoint result into the snapshot.
func (c Conversation) WithStructuredData(d StructuredDataResponse) Conversation {
	if d.ConversationID != "" && d.ConversationID != c.ID {
		return c
	}
	if d.StructuredData != nil {
		c.StructuredData = d.StructuredData
	}
	if d.RecordingURL != nil {
		c.RecordingURL = d.RecordingURL
	}
	if d.DurationMs != nil {
		c.DurationMs = d.DurationMs
	}
	return c
}

// StartTestCallRequest starts a test call against an existing or a new driver.
// Exactly one of DriverID or (DriverName, DriverPhone) must be provided.
type StartTestCallRequest struct {
	AgentID     string `json:"agent_id" validate:"notblank"`
	DriverID    string `json:"driver_id,omitempty"`
	DriverName  string `json:"driver_name,omitempty"`
	DriverPhone string `json:"driver_phone,omitempty" validate:"omitempty,phone"`
	LoadNumber  string `json:"load_number" validate:"notblank"`
}

// DriverMode tells whether the request references an existing driver or creates one.
type DriverMode string

const (
	DriverModeExisting DriverMode = "existing"
	DriverModeNew      DriverMode = "new"
)

// Mode infers the driver mode from the populated fields.
func (r StartTestCallRequest) Mode() DriverMode {
	if r.DriverID != "" {
		return DriverModeExisting
	}
	return DriverModeNew
}

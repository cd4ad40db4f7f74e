package model

import (
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"gitlab.com/timkado/api/voice-agent-console/pkg/utils"
)

// init ensures gofakeit is seeded.
func init() {
	gofakeit.Seed(time.Now().UnixNano())
}

func strPtr(s string) *string { return &s }

// NewAgent creates an Agent with fake data. Non-zero fields of the override win.
func NewAgent(overrides ...*Agent) *Agent {
	base := &Agent{
		ID:        gofakeit.UUID(),
		Name:      gofakeit.JobTitle() + " Agent",
		Prompts:   gofakeit.Sentence(12),
		CreatedAt: utils.Now().Add(-time.Duration(gofakeit.Number(1, 100)) * time.Hour),
	}
	if len(overrides) > 0 && overrides[0] != nil {
		ovr := overrides[0]
		if ovr.ID != "" {
			base.ID = ovr.ID
		}
		if ovr.Name != "" {
			base.Name = ovr.Name
		}
		if ovr.Prompts != "" {
			base.Prompts = ovr.Prompts
		}
		if ovr.AdditionalDetails != nil {
			base.AdditionalDetails = ovr.AdditionalDetails
		}
		if ovr.SystemPrompt != nil {
			base.SystemPrompt = ovr.SystemPrompt
		}
		if ovr.LastUsedAt != nil {
			base.LastUsedAt = ovr.LastUsedAt
		}
		if !ovr.CreatedAt.IsZero() {
			base.CreatedAt = ovr.CreatedAt
		}
	}
	return base
}

// NewAgentListItem projects a fake Agent into its list form.
func NewAgentListItem(conversationCount int, overrides ...*Agent) AgentListItem {
	a := NewAgent(overrides...)
	return AgentListItem{
		ID:                a.ID,
		Name:              a.Name,
		Prompts:           a.Prompts,
		AdditionalDetails: a.AdditionalDetails,
		CreatedAt:         a.CreatedAt,
		LastUsedAt:        a.LastUsedAt,
		ConversationCount: conversationCount,
	}
}

// NewDriver creates a Driver with fake data.
func NewDriver(overrides ...*Driver) *Driver {
	base := &Driver{
		ID:          gofakeit.UUID(),
		Name:        gofakeit.Name(),
		PhoneNumber: "+1" + gofakeit.Numerify("##########"),
		CreatedAt:   utils.Now().Add(-time.Duration(gofakeit.Number(1, 100)) * time.Hour),
	}
	if len(overrides) > 0 && overrides[0] != nil {
		ovr := overrides[0]
		if ovr.ID != "" {
			base.ID = ovr.ID
		}
		if ovr.Name != "" {
			base.Name = ovr.Name
		}
		if ovr.PhoneNumber != "" {
			base.PhoneNumber = ovr.PhoneNumber
		}
	}
	return base
}

// NewConversation creates a pending Conversation with fake data.
// Terminal overrides get a completed_at so the result keeps its invariants.
func NewConversation(overrides ...*Conversation) *Conversation {
	base := &Conversation{
		ID:         gofakeit.UUID(),
		AgentID:    gofakeit.UUID(),
		DriverID:   gofakeit.UUID(),
		LoadNumber: "L" + gofakeit.Numerify("#####"),
		Status:     StatusPending,
		StartedAt:  utils.Now().Add(-time.Duration(gofakeit.Number(1, 120)) * time.Minute),
	}
	if len(overrides) > 0 && overrides[0] != nil {
		ovr := overrides[0]
		if ovr.ID != "" {
			base.ID = ovr.ID
		}
		if ovr.AgentID != "" {
			base.AgentID = ovr.AgentID
		}
		if ovr.DriverID != "" {
			base.DriverID = ovr.DriverID
		}
		if ovr.LoadNumber != "" {
			base.LoadNumber = ovr.LoadNumber
		}
		if ovr.Status != "" {
			base.Status = ovr.Status
		}
		if !ovr.StartedAt.IsZero() {
			base.StartedAt = ovr.StartedAt
		}
		base.CompletedAt = ovr.CompletedAt
		base.RetellCallID = ovr.RetellCallID
		base.RetellAccessToken = ovr.RetellAccessToken
		base.RecordingURL = ovr.RecordingURL
		base.Transcript = ovr.Transcript
		base.DurationMs = ovr.DurationMs
		base.StructuredData = ovr.StructuredData
	}
	if base.Status.IsTerminal() && base.CompletedAt == nil {
		done := base.StartedAt.Add(time.Duration(gofakeit.Number(30, 600)) * time.Second)
		base.CompletedAt = &done
	}
	return base
}

// NewLiveConversation creates a pending Conversation carrying live call credentials.
func NewLiveConversation(overrides ...*Conversation) *Conversation {
	c := NewConversation(overrides...)
	if c.RetellCallID == nil {
		c.RetellCallID = strPtr("call_" + gofakeit.LetterN(16))
	}
	if c.RetellAccessToken == nil {
		c.RetellAccessToken = strPtr(gofakeit.LetterN(32))
	}
	return c
}

// NewConversationListItem projects a fake Conversation into its list form.
func NewConversationListItem(overrides ...*Conversation) ConversationListItem {
	c := NewConversation(overrides...)
	return ConversationListItem{
		ID:          c.ID,
		AgentID:     c.AgentID,
		DriverID:    c.DriverID,
		AgentName:   gofakeit.JobTitle() + " Agent",
		DriverName:  gofakeit.Name(),
		LoadNumber:  c.LoadNumber,
		Status:      c.Status,
		StartedAt:   c.StartedAt,
		CompletedAt: c.CompletedAt,
		DurationMs:  c.DurationMs,
	}
}

// NewMessage creates a transcript line for the given conversation.
func NewMessage(conversationID string, role MessageRole, at time.Time) Message {
	return Message{
		ID:             gofakeit.UUID(),
		ConversationID: conversationID,
		Role:           role,
		Content:        gofakeit.Sentence(8),
		CreatedAt:      at,
	}
}

// NewStructuredData returns a representative extraction payload.
func NewStructuredData() map[string]interface{} {
	return map[string]interface{}{
		"load_confirmed":     gofakeit.Bool(),
		"eta_minutes":        float64(gofakeit.Number(5, 240)),
		"current_location":   gofakeit.City(),
		"issues_reported":    nil,
		"delivery_window":    map[string]interface{}{"start": "08:00", "end": "12:00"},
		"driver_sentiment":   gofakeit.RandomString([]string{"positive", "neutral", "negative"}),
		"requires_follow_up": false,
	}
}

package model

import "time"

// Agent is a voice-agent configuration as returned by the backend.
type Agent struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// Prompts is the free-text scenario description used to seed prompt generation.
	Prompts           string  `json:"prompts"`
	AdditionalDetails *string `json:"additional_details,omitempty"`
	// SystemPrompt is generated by the backend and never edited here.
	SystemPrompt *string `json:"system_prompt,omitempty"`
	// RetellAgentID is the external voice-agent identifier.
	RetellAgentID *string    `json:"retell_agent_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	LastUsedAt    *time.Time `json:"last_used_at,omitempty"`
}

// AgentListItem is the list view projection with the derived conversation count.
type AgentListItem struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Prompts           string     `json:"prompts"`
	AdditionalDetails *string    `json:"additional_details,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	LastUsedAt        *time.Time `json:"last_used_at,omitempty"`
	ConversationCount int        `json:"conversation_count"`
}

// AgentCreate is the create form payload.
type AgentCreate struct {
	Name              string  `json:"name" validate:"notblank,max=255"`
	Prompts           string  `json:"prompts" validate:"notblank"`
	AdditionalDetails *string `json:"additional_details,omitempty"`
}

// AgentUpdate is the partial update payload; nil fields are left unchanged.
type AgentUpdate struct {
	Name              *string `json:"name,omitempty" validate:"omitempty,notblank,max=255"`
	Prompts           *string `json:"prompts,omitempty" validate:"omitempty,notblank"`
	AdditionalDetails *string `json:"additional_details,omitempty"`
}

// Empty reports whether the update carries no field at all.
func (u AgentUpdate) Empty() bool {
	return u.Name == nil && u.Prompts == nil && u.AdditionalDetails == nil
}

// GeneratePromptRequest asks the backend to turn a scenario into a system prompt.
type GeneratePromptRequest struct {
	ScenarioDescription string  `json:"scenario_description" validate:"notblank"`
	AdditionalContext   *string `json:"additional_context,omitempty"`
}

// GeneratePromptResponse carries the generated system prompt.
type GeneratePromptResponse struct {
	SystemPrompt string `json:"system_prompt"`
}

// LastUsedLabel renders the last-used timestamp, or "Never".
func (a AgentListItem) LastUsedLabel() string {
	if a.LastUsedAt == nil {
		return "Never"
	}
	return a.LastUsedAt.UTC().Format("2006-01-02 15:04")
}

package api

import (
	"context"

	"gitlab.com/timkado/api/voice-agent-console/internal/model"
)

// AgentAPI defines the agent endpoints.
type AgentAPI interface {
	List(ctx context.Context) ([]model.AgentListItem, error)
	Get(ctx context.Context, id string) (*model.Agent, error)
	Create(ctx context.Context, in model.AgentCreate) (*model.Agent, error)
	Update(ctx context.Context, id string, in model.AgentUpdate) (*model.Agent, error)
	Delete(ctx context.Context, id string) error
	GeneratePrompt(ctx context.Context, in model.GeneratePromptRequest) (*model.GeneratePromptResponse, error)
}

// DriverAPI defines the driver endpoints.
type DriverAPI interface {
	List(ctx context.Context) ([]model.Driver, error)
	Get(ctx context.Context, id string) (*model.Driver, error)
	Create(ctx context.Context, in model.DriverCreate) (*model.Driver, error)
	Update(ctx context.Context, id string, in model.DriverUpdate) (*model.Driver, error)
	Delete(ctx context.Context, id string) error
}

// ConversationAPI defines the read-only conversation endpoints.
type ConversationAPI interface {
	List(ctx context.Context) ([]model.ConversationListItem, error)
	Get(ctx context.Context, id string) (*model.Conversation, error)
	Messages(ctx context.Context, id string) ([]model.Message, error)
	Status(ctx context.Context, id string) (*model.ConversationStatusResponse, error)
	StructuredData(ctx context.Context, id string) (*model.StructuredDataResponse, error)
}

// TestCallAPI defines the test-call endpoints.
type TestCallAPI interface {
	Start(ctx context.Context, in model.StartTestCallRequest) (*model.Conversation, error)
	End(ctx context.Context, conversationID string) error
}

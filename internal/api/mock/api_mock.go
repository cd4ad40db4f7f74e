package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"gitlab.com/timkado/api/voice-agent-console/internal/api"
	"gitlab.com/timkado/api/voice-agent-console/internal/model"
)

var (
	_ api.AgentAPI        = (*AgentAPIMock)(nil)
	_ api.DriverAPI       = (*DriverAPIMock)(nil)
	_ api.ConversationAPI = (*ConversationAPIMock)(nil)
	_ api.TestCallAPI     = (*TestCallAPIMock)(nil)
)

// --- AgentAPI Mock ---

// AgentAPIMock mocks the AgentAPI interface
type AgentAPIMock struct {
	mock.Mock
}

func (m *AgentAPIMock) List(ctx context.Context) ([]model.AgentListItem, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.AgentListItem), args.Error(1)
}

func (m *AgentAPIMock) Get(ctx context.Context, id string) (*model.Agent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Agent), args.Error(1)
}

func (m *AgentAPIMock) Create(ctx context.Context, in model.AgentCreate) (*model.Agent, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Agent), args.Error(1)
}

func (m *AgentAPIMock) Update(ctx context.Context, id string, in model.AgentUpdate) (*model.Agent, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Agent), args.Error(1)
}

func (m *AgentAPIMock) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *AgentAPIMock) GeneratePrompt(ctx context.Context, in model.GeneratePromptRequest) (*model.GeneratePromptResponse, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.GeneratePromptResponse), args.Error(1)
}

// --- DriverAPI Mock ---

// DriverAPIMock mocks the DriverAPI interface
type DriverAPIMock struct {
	mock.Mock
}

func (m *DriverAPIMock) List(ctx context.Context) ([]model.Driver, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Driver), args.Error(1)
}

func (m *DriverAPIMock) Get(ctx context.Context, id string) (*model.Driver, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Driver), args.Error(1)
}

func (m *DriverAPIMock) Create(ctx context.Context, in model.DriverCreate) (*model.Driver, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Driver), args.Error(1)
}

func (m *DriverAPIMock) Update(ctx context.Context, id string, in model.DriverUpdate) (*model.Driver, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Driver), args.Error(1)
}

func (m *DriverAPIMock) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// --- ConversationAPI Mock ---

// ConversationAPIMock mocks the ConversationAPI interface
type ConversationAPIMock struct {
	mock.Mock
}

func (m *ConversationAPIMock) List(ctx context.Context) ([]model.ConversationListItem, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ConversationListItem), args.Error(1)
}

func (m *ConversationAPIMock) Get(ctx context.Context, id string) (*model.Conversation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Conversation), args.Error(1)
}

func (m *ConversationAPIMock) Messages(ctx context.Context, id string) ([]model.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Message), args.Error(1)
}

func (m *ConversationAPIMock) Status(ctx context.Context, id string) (*model.ConversationStatusResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ConversationStatusResponse), args.Error(1)
}

func (m *ConversationAPIMock) StructuredData(ctx context.Context, id string) (*model.StructuredDataResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.StructuredDataResponse), args.Error(1)
}

// --- TestCallAPI Mock ---

// TestCallAPIMock mocks the TestCallAPI interface
type TestCallAPIMock struct {
	mock.Mock
}

func (m *TestCallAPIMock) Start(ctx context.Context, in model.StartTestCallRequest) (*model.Conversation, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Conversation), args.Error(1)
}

func (m *TestCallAPIMock) End(ctx context.Context, conversationID string) error {
	args := m.Called(ctx, conversationID)
	return args.Error(0)
}

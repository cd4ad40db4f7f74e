package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"gitlab.com/timkado/api/voice-agent-console/internal/api"
	"gitlab.com/timkado/api/voice-agent-console/internal/apperrors"
	"gitlab.com/timkado/api/voice-agent-console/internal/cache"
	"gitlab.com/timkado/api/voice-agent-console/internal/model"
	"gitlab.com/timkado/api/voice-agent-console/internal/poller"
	"gitlab.com/timkado/api/voice-agent-console/internal/session"
	"gitlab.com/timkado/api/voice-agent-console/internal/validator"
	"gitlab.com/timkado/api/voice-agent-console/pkg/logger"
)

// ConsoleService is the read/write facade used by the console and the watcher.
// Reads go through the query cache; every successful mutation invalidates the
// resources whose server-side state it changed.
type ConsoleService struct {
	agents        api.AgentAPI
	drivers       api.DriverAPI
	conversations api.ConversationAPI
	testCalls     api.TestCallAPI
	cache         *cache.Store
}

var (
	_ session.CallFinalizer = (*ConsoleService)(nil)
	_ poller.StatusFetcher  = (*ConsoleService)(nil)
)

// NewConsoleService wires the resource clients to a shared cache.
func NewConsoleService(
	agents api.AgentAPI,
	drivers api.DriverAPI,
	conversations api.ConversationAPI,
	testCalls api.TestCallAPI,
	store *cache.Store,
) *ConsoleService {
	if store == nil {
		store = cache.New(nil)
	}
	return &ConsoleService{
		agents:        agents,
		drivers:       drivers,
		conversations: conversations,
		testCalls:     testCalls,
		cache:         store,
	}
}

// NewConsoleServiceFromClient builds every resource client on top of one REST client.
func NewConsoleServiceFromClient(c *api.Client, store *cache.Store) *ConsoleService {
	return NewConsoleService(
		api.NewAgentClient(c),
		api.NewDriverClient(c),
		api.NewConversationClient(c),
		api.NewTestCallClient(c),
		store,
	)
}

// Cache exposes the query cache for subscriptions.
func (s *ConsoleService) Cache() *cache.Store {
	return s.cache
}

// invalidate drops every entry under the given resources.
func (s *ConsoleService) invalidate(ctx context.Context, resources ...string) {
	total := 0
	for _, r := range resources {
		total += s.cache.Invalidate(cache.ListKey(r))
	}
	logger.FromContext(ctx).Debug("Invalidated cached queries",
		zap.Strings("resources", resources),
		zap.Int("entries", total))
}

// --- Agents ---

func (s *ConsoleService) ListAgents(ctx context.Context) ([]model.AgentListItem, error) {
	return cache.Fetch(ctx, s.cache, cache.ListKey(cache.ResourceAgents), s.agents.List)
}

func (s *ConsoleService) GetAgent(ctx context.Context, id string) (*model.Agent, error) {
	return cache.Fetch(ctx, s.cache, cache.ItemKey(cache.ResourceAgents, id), func(ctx context.Context) (*model.Agent, error) {
		return s.agents.Get(ctx, id)
	})
}

// CreateAgent validates and creates an agent.
func (s *ConsoleService) CreateAgent(ctx context.Context, in model.AgentCreate) (*model.Agent, error) {
	if err := validator.Validate(in); err != nil {
		return nil, err
	}
	agent, err := s.agents.Create(ctx, in)
	if err != nil {
		logger.FromContext(ctx).Warn("Failed to create agent", zap.String("name", in.Name), zap.Error(err))
		return nil, err
	}
	s.invalidate(ctx, cache.ResourceAgents)
	logger.FromContext(ctx).Info("Agent created", zap.String("agent_id", agent.ID))
	return agent, nil
}

// UpdateAgent applies a partial update. An empty update is rejected.
func (s *ConsoleService) UpdateAgent(ctx context.Context, id string, in model.AgentUpdate) (*model.Agent, error) {
	if in.Empty() {
		return nil, fmt.Errorf("%w: nothing to update", apperrors.ErrValidation)
	}
	if err := validator.Validate(in); err != nil {
		return nil, err
	}
	agent, err := s.agents.Update(ctx, id, in)
	if err != nil {
		logger.FromContext(ctx).Warn("Failed to update agent", zap.String("agent_id", id), zap.Error(err))
		return nil, err
	}
	s.invalidate(ctx, cache.ResourceAgents)
	return agent, nil
}

// DeleteAgent removes an agent. Conversation lists carry agent names, so they are refreshed too.
func (s *ConsoleService) DeleteAgent(ctx context.Context, id string) error {
	if err := s.agents.Delete(ctx, id); err != nil {
		logger.FromContext(ctx).Warn("Failed to delete agent", zap.String("agent_id", id), zap.Error(err))
		return err
	}
	s.invalidate(ctx, cache.ResourceAgents, cache.ResourceConversations)
	return nil
}

// GeneratePrompt asks the backend for a system prompt. Nothing cached changes.
func (s *ConsoleService) GeneratePrompt(ctx context.Context, in model.GeneratePromptRequest) (*model.GeneratePromptResponse, error) {
	if err := validator.Validate(in); err != nil {
		return nil, err
	}
	return s.agents.GeneratePrompt(ctx, in)
}

// --- Drivers ---

func (s *ConsoleService) ListDrivers(ctx context.Context) ([]model.Driver, error) {
	return cache.Fetch(ctx, s.cache, cache.ListKey(cache.ResourceDrivers), s.drivers.List)
}

func (s *ConsoleService) GetDriver(ctx context.Context, id string) (*model.Driver, error) {
	return cache.Fetch(ctx, s.cache, cache.ItemKey(cache.ResourceDrivers, id), func(ctx context.Context) (*model.Driver, error) {
		return s.drivers.Get(ctx, id)
	})
}

func (s *ConsoleService) CreateDriver(ctx context.Context, in model.DriverCreate) (*model.Driver, error) {
	if err := validator.Validate(in); err != nil {
		return nil, err
	}
	driver, err := s.drivers.Create(ctx, in)
	if err != nil {
		logger.FromContext(ctx).Warn("Failed to create driver", zap.String("name", in.Name), zap.Error(err))
		return nil, err
	}
	s.invalidate(ctx, cache.ResourceDrivers)
	logger.FromContext(ctx).Info("Driver created", zap.String("driver_id", driver.ID))
	return driver, nil
}

func (s *ConsoleService) UpdateDriver(ctx context.Context, id string, in model.DriverUpdate) (*model.Driver, error) {
	if in.Empty() {
		return nil, fmt.Errorf("%w: nothing to update", apperrors.ErrValidation)
	}
	if err := validator.Validate(in); err != nil {
		return nil, err
	}
	driver, err := s.drivers.Update(ctx, id, in)
	if err != nil {
		logger.FromContext(ctx).Warn("Failed to update driver", zap.String("driver_id", id), zap.Error(err))
		return nil, err
	}
	s.invalidate(ctx, cache.ResourceDrivers)
	return driver, nil
}

func (s *ConsoleService) DeleteDriver(ctx context.Context, id string) error {
	if err := s.drivers.Delete(ctx, id); err != nil {
		logger.FromContext(ctx).Warn("Failed to delete driver", zap.String("driver_id", id), zap.Error(err))
		return err
	}
	s.invalidate(ctx, cache.ResourceDrivers, cache.ResourceConversations)
	return nil
}

// --- Conversations ---

func (s *ConsoleService) ListConversations(ctx context.Context) ([]model.ConversationListItem, error) {
	return cache.Fetch(ctx, s.cache, cache.ListKey(cache.ResourceConversations), s.conversations.List)
}

func (s *ConsoleService) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	return cache.Fetch(ctx, s.cache, cache.ItemKey(cache.ResourceConversations, id), func(ctx context.Context) (*model.Conversation, error) {
		return s.conversations.Get(ctx, id)
	})
}

func (s *ConsoleService) GetMessages(ctx context.Context, id string) ([]model.Message, error) {
	return cache.Fetch(ctx, s.cache, cache.ItemKey(cache.ResourceConversations, id, "messages"), func(ctx context.Context) ([]model.Message, error) {
		return s.conversations.Messages(ctx, id)
	})
}

func (s *ConsoleService) GetStructuredData(ctx context.Context, id string) (*model.StructuredDataResponse, error) {
	return cache.Fetch(ctx, s.cache, cache.ItemKey(cache.ResourceConversations, id, "structured-data"), func(ctx context.Context) (*model.StructuredDataResponse, error) {
		return s.conversations.StructuredData(ctx, id)
	})
}

// ReloadConversations drops cached conversations and lists them again.
func (s *ConsoleService) ReloadConversations(ctx context.Context) ([]model.ConversationListItem, error) {
	s.invalidate(ctx, cache.ResourceConversations)
	return s.ListConversations(ctx)
}

// GetStatus always reads through to the backend. Observing a terminal status
// invalidates the cached conversations so detail views pick up the final record.
func (s *ConsoleService) GetStatus(ctx context.Context, id string) (*model.ConversationStatusResponse, error) {
	status, err := s.conversations.Status(ctx, id)
	if err != nil {
		return nil, err
	}
	if status.Status.IsTerminal() {
		s.invalidate(ctx, cache.ResourceConversations)
	}
	return status, nil
}

// --- Test calls ---

// StartTestCall validates the form and starts a call. The agent list carries a
// derived conversation count and last-used time, so agents are refreshed along
// with conversations; a call placed to a new driver also refreshes drivers.
func (s *ConsoleService) StartTestCall(ctx context.Context, in model.StartTestCallRequest) (*model.Conversation, error) {
	if err := validator.Validate(in); err != nil {
		return nil, err
	}
	conv, err := s.testCalls.Start(ctx, in)
	if err != nil {
		logger.FromContext(ctx).Warn("Failed to start test call",
			zap.String("agent_id", in.AgentID),
			zap.String("load_number", in.LoadNumber),
			zap.Error(err))
		return nil, err
	}

	resources := []string{cache.ResourceConversations, cache.ResourceAgents}
	if in.Mode() == model.DriverModeNew {
		resources = append(resources, cache.ResourceDrivers)
	}
	s.invalidate(ctx, resources...)

	logger.FromContext(ctx).Info("Test call started",
		zap.String("conversation_id", conv.ID),
		zap.String("agent_id", conv.AgentID),
		zap.String("status", string(conv.Status)))
	return conv, nil
}

// EndCall tells the backend the call is over.
func (s *ConsoleService) EndCall(ctx context.Context, conversationID string) error {
	if err := s.testCalls.End(ctx, conversationID); err != nil {
		return err
	}
	s.invalidate(ctx, cache.ResourceConversations)
	return nil
}

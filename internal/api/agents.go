package api

import (
	"context"
	"net/http"
	"net/url"

	"gitlab.com/timkado/api/voice-agent-console/internal/model"
)

const agentsPath = "/api/agents"

// AgentClient talks to /api/agents.
type AgentClient struct {
	c *Client
}

var _ AgentAPI = (*AgentClient)(nil)

// NewAgentClient creates an AgentClient on top of c.
func NewAgentClient(c *Client) *AgentClient {
	return &AgentClient{c: c}
}

func (a *AgentClient) List(ctx context.Context) ([]model.AgentListItem, error) {
	var out []model.AgentListItem
	if err := a.c.do(ctx, "agents", http.MethodGet, agentsPath, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *AgentClient) Get(ctx context.Context, id string) (*model.Agent, error) {
	var out model.Agent
	if err := a.c.do(ctx, "agents", http.MethodGet, agentsPath+"/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *AgentClient) Create(ctx context.Context, in model.AgentCreate) (*model.Agent, error) {
	var out model.Agent
	if err := a.c.do(ctx, "agents", http.MethodPost, agentsPath, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *AgentClient) Update(ctx context.Context, id string, in model.AgentUpdate) (*model.Agent, error) {
	var out model.Agent
	if err := a.c.do(ctx, "agents", http.MethodPut, agentsPath+"/"+url.PathEscape(id), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *AgentClient) Delete(ctx context.Context, id string) error {
	return a.c.do(ctx, "agents", http.MethodDelete, agentsPath+"/"+url.PathEscape(id), nil, nil)
}

// GeneratePrompt asks the backend to produce a system prompt from a scenario.
func (a *AgentClient) GeneratePrompt(ctx context.Context, in model.GeneratePromptRequest) (*model.GeneratePromptResponse, error) {
	var out model.GeneratePromptResponse
	if err := a.c.do(ctx, "agents", http.MethodPost, agentsPath+"/generate-prompt", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

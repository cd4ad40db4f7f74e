package api

import (
	"context"
	"net/http"
	"net/url"

	"gitlab.com/timkado/api/voice-agent-console/internal/model"
)

const testCallsPath = "/api/test-calls"

// TestCallClient talks to /api/test-calls.
type TestCallClient struct {
	c *Client
}

var _ TestCallAPI = (*TestCallClient)(nil)

// NewTestCallClient creates a TestCallClient on top of c.
func NewTestCallClient(c *Client) *TestCallClient {
	return &TestCallClient{c: c}
}

// Start creates a conversation and returns it with the live call credentials.
func (t *TestCallClient) Start(ctx context.Context, in model.StartTestCallRequest) (*model.Conversation, error) {
	var out model.Conversation
	if err := t.c.do(ctx, "test_calls", http.MethodPost, testCallsPath+"/start", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// End tells the backend the live call was hung up on the client side.
func (t *TestCallClient) End(ctx context.Context, conversationID string) error {
	return t.c.do(ctx, "test_calls", http.MethodPost, testCallsPath+"/"+url.PathEscape(conversationID)+"/end", nil, nil)
}

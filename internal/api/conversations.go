package api

import (
	"context"
	"net/http"
	"net/url"

	"gitlab.com/timkado/api/voice-agent-console/internal/model"
)

const conversationsPath = "/api/conversations"

// ConversationClient talks to /api/conversations.
type ConversationClient struct {
	c *Client
}

var _ ConversationAPI = (*ConversationClient)(nil)

// NewConversationClient creates a ConversationClient on top of c.
func NewConversationClient(c *Client) *ConversationClient {
	return &ConversationClient{c: c}
}

func conversationPath(id string, sub ...string) string {
	p := conversationsPath + "/" + url.PathEscape(id)
	for _, s := range sub {
		p += "/" + s
	}
	return p
}

func (cc *ConversationClient) List(ctx context.Context) ([]model.ConversationListItem, error) {
	var out []model.ConversationListItem
	if err := cc.c.do(ctx, "conversations", http.MethodGet, conversationsPath, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (cc *ConversationClient) Get(ctx context.Context, id string) (*model.Conversation, error) {
	var out model.Conversation
	if err := cc.c.do(ctx, "conversations", http.MethodGet, conversationPath(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Messages returns the transcript lines ordered by creation time.
func (cc *ConversationClient) Messages(ctx context.Context, id string) ([]model.Message, error) {
	var out []model.Message
	if err := cc.c.do(ctx, "conversations", http.MethodGet, conversationPath(id, "messages"), nil, &out); err != nil {
		return nil, err
	}
	model.SortMessages(out)
	return out, nil
}

// Status hits the lightweight status endpoint used by polling.
func (cc *ConversationClient) Status(ctx context.Context, id string) (*model.ConversationStatusResponse, error) {
	var out model.ConversationStatusResponse
	if err := cc.c.do(ctx, "conversations", http.MethodGet, conversationPath(id, "status"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (cc *ConversationClient) StructuredData(ctx context.Context, id string) (*model.StructuredDataResponse, error) {
	var out model.StructuredDataResponse
	if err := cc.c.do(ctx, "conversations", http.MethodGet, conversationPath(id, "structured-data"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

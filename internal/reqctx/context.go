package reqctx

import (
	"context"
	"errors"
)

type contextKey string

const (
	requestIDKey      contextKey = "requestID"
	conversationIDKey contextKey = "conversationID"
)

// ErrNoRequestIDInContext is returned when no request ID is found in context
var ErrNoRequestIDInContext = errors.New("no request ID found in context")

// ErrNoConversationInContext is returned when no conversation ID is found in context
var ErrNoConversationInContext = errors.New("no conversation ID found in context")

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// FromRequestIDContext extracts the request ID from the context
func FromRequestIDContext(ctx context.Context) (string, error) {
	requestID, ok := ctx.Value(requestIDKey).(string)
	if !ok || requestID == "" {
		return "", ErrNoRequestIDInContext
	}
	return requestID, nil
}

// WithConversationID scopes the context to a single conversation.
func WithConversationID(ctx context.Context, conversationID string) context.Context {
	return context.WithValue(ctx, conversationIDKey, conversationID)
}

// FromConversationContext extracts the conversation ID from the context
func FromConversationContext(ctx context.Context) (string, error) {
	id, ok := ctx.Value(conversationIDKey).(string)
	if !ok || id == "" {
		return "", ErrNoConversationInContext
	}
	return id, nil
}

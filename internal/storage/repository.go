package storage

import (
	"context"

	"gitlab.com/timkado/api/voice-agent-console/internal/model"
)

// OutcomeRepo defines call outcome archive operations
type OutcomeRepo interface {
	Save(ctx context.Context, outcome model.CallOutcome) error
	FindByConversationID(ctx context.Context, conversationID string) (*model.CallOutcome, error)
	CountByStatus(ctx context.Context) ([]model.StatusCount, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

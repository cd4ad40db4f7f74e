package storage

import (
	"context"

	"gitlab.com/timkado/api/voice-agent-console/internal/model"
)

// OutcomeRepoAdapter adapts the PostgresRepo to the OutcomeRepo interface
type OutcomeRepoAdapter struct {
	postgres *PostgresRepo
}

// NewOutcomeRepoAdapter creates a new outcome repository adapter
func NewOutcomeRepoAdapter(postgres *PostgresRepo) OutcomeRepo {
	return &OutcomeRepoAdapter{postgres: postgres}
}

// Save upserts an outcome
func (a *OutcomeRepoAdapter) Save(ctx context.Context, outcome model.CallOutcome) error {
	return a.postgres.SaveOutcome(ctx, outcome)
}

// FindByConversationID finds the outcome archived for a conversation
func (a *OutcomeRepoAdapter) FindByConversationID(ctx context.Context, conversationID string) (*model.CallOutcome, error) {
	return a.postgres.FindOutcomeByConversationID(ctx, conversationID)
}

// CountByStatus aggregates the archive per status
func (a *OutcomeRepoAdapter) CountByStatus(ctx context.Context) ([]model.StatusCount, error) {
	return a.postgres.CountOutcomesByStatus(ctx)
}

func (a *OutcomeRepoAdapter) Ping(ctx context.Context) error {
	return a.postgres.Ping(ctx)
}

func (a *OutcomeRepoAdapter) Close(ctx context.Context) error {
	return a.postgres.Close(ctx)
}

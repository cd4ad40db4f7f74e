package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"gitlab.com/timkado/api/voice-agent-console/internal/model"
	"gitlab.com/timkado/api/voice-agent-console/internal/storage"
)

// OutcomeRepoMock mocks the OutcomeRepo interface
type OutcomeRepoMock struct {
	mock.Mock
}

var _ storage.OutcomeRepo = (*OutcomeRepoMock)(nil)

// Save mocks the Save method
func (m *OutcomeRepoMock) Save(ctx context.Context, outcome model.CallOutcome) error {
	args := m.Called(ctx, outcome)
	return args.Error(0)
}

// FindByConversationID mocks the FindByConversationID method
func (m *OutcomeRepoMock) FindByConversationID(ctx context.Context, conversationID string) (*model.CallOutcome, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CallOutcome), args.Error(1)
}

// CountByStatus mocks the CountByStatus method
func (m *OutcomeRepoMock) CountByStatus(ctx context.Context) ([]model.StatusCount, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.StatusCount), args.Error(1)
}

// Ping mocks the Ping method
func (m *OutcomeRepoMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Close mocks the Close method
func (m *OutcomeRepoMock) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gitlab.com/timkado/api/voice-agent-console/internal/apperrors"
	"gitlab.com/timkado/api/voice-agent-console/internal/jetstream"
	jsmock "gitlab.com/timkado/api/voice-agent-console/internal/jetstream/mock"
	"gitlab.com/timkado/api/voice-agent-console/internal/model"
)

func TestNATSStatusPublisher_Publish(t *testing.T) {
	client := new(jsmock.ClientMock)
	pub := NewNATSStatusPublisher(client, "console.conversations.status")
	done := time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC)
	event := model.StatusEvent{
		ConversationID: "C1",
		PreviousStatus: model.StatusInProgress,
		Status:         model.StatusCompleted,
		CompletedAt:    &done,
		ObservedAt:     done,
	}

	client.On("Publish", mock.Anything, "console.conversations.status.completed",
		mock.MatchedBy(func(data []byte) bool {
			var got model.StatusEvent
			return json.Unmarshal(data, &got) == nil && got.ConversationID == "C1" && got.PreviousStatus == model.StatusInProgress
		}),
		map[string]string{jetstream.MsgIDHeader: "C1:completed"},
	).Return(nil).Once()

	require.NoError(t, pub.PublishStatus(context.Background(), event))
	client.AssertExpectations(t)
}

func TestNATSStatusPublisher_PublishFailureIsRetryable(t *testing.T) {
	client := new(jsmock.ClientMock)
	pub := NewNATSStatusPublisher(client, "console.conversations.status")

	client.On("Publish", mock.Anything, "console.conversations.status.in_progress", mock.Anything, mock.Anything).
		Return(errors.New("nats: timeout")).Once()

	err := pub.PublishStatus(context.Background(), model.StatusEvent{ConversationID: "C1", Status: model.StatusInProgress})
	require.Error(t, err)
	assert.True(t, apperrors.IsRetryable(err))
	assert.False(t, apperrors.IsFatal(err))
}

func TestNATSStatusPublisher_MarshalFailureIsFatal(t *testing.T) {
	client := new(jsmock.ClientMock)
	pub := NewNATSStatusPublisher(client, "console.conversations.status")

	err := pub.PublishStatus(context.Background(), model.StatusEvent{
		ConversationID: "C1",
		Status:         model.StatusCompleted,
		ObservedAt:     time.Date(10000, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsFatal(err))
	client.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

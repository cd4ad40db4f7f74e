package mock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"gitlab.com/timkado/api/voice-agent-console/internal/jetstream"
)

// statusFeed is a minimal consumer of the client interface.
type statusFeed struct {
	client jetstream.ClientInterface
}

func (f *statusFeed) init(ctx context.Context) error {
	return f.client.SetupStream(ctx, jetstream.StatusStreamConfig("conversation_status", "v1.conversations.status", time.Hour))
}

func (f *statusFeed) send(ctx context.Context, payload []byte) error {
	return f.client.Publish(ctx, "v1.conversations.status.completed", payload, map[string]string{jetstream.MsgIDHeader: "c1:completed"})
}

func TestClientMock(t *testing.T) {
	mockClient := new(ClientMock)
	feed := &statusFeed{client: mockClient}

	mockClient.On("SetupStream", mock.Anything, mock.AnythingOfType("*nats.StreamConfig")).Return(nil)
	mockClient.On("Publish", mock.Anything, "v1.conversations.status.completed", []byte(`{}`), mock.Anything).Return(nil)

	assert.NoError(t, feed.init(context.Background()))
	assert.NoError(t, feed.send(context.Background(), []byte(`{}`)))

	mockClient.AssertExpectations(t)
}

func TestClientMockErrors(t *testing.T) {
	mockClient := new(ClientMock)
	feed := &statusFeed{client: mockClient}

	expectedErr := errors.New("stream setup failed")
	mockClient.On("SetupStream", mock.Anything, mock.AnythingOfType("*nats.StreamConfig")).Return(expectedErr)

	err := feed.init(context.Background())
	assert.Equal(t, expectedErr, err)
	mockClient.AssertExpectations(t)
}

func TestStatusStreamConfig(t *testing.T) {
	cfg := jetstream.StatusStreamConfig("conversation_status", "v1.conversations.status", 72*time.Hour)
	assert.Equal(t, []string{"v1.conversations.status.>"}, cfg.Subjects)
	assert.Equal(t, 72*time.Hour, cfg.MaxAge)
}

package mock

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"gitlab.com/timkado/api/voice-agent-console/internal/session"
)

// Transport is an in-memory session.Transport driven by Emit.
type Transport struct {
	StartErr error
	StopErr  error

	mu        sync.Mutex
	events    chan session.TransportEvent
	token     string
	started   bool
	stopped   bool
	stopCalls int
}

var _ session.Transport = (*Transport)(nil)

// NewTransport creates a fake transport with a buffered event stream.
func NewTransport() *Transport {
	return &Transport{events: make(chan session.TransportEvent, 32)}
}

func (t *Transport) Start(ctx context.Context, accessToken string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.started = true
	t.token = accessToken
	return t.StartErr
}

func (t *Transport) Events() <-chan session.TransportEvent {
	return t.events
}

func (t *Transport) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopCalls++
	if !t.stopped {
		t.stopped = true
		close(t.events)
	}
	return t.StopErr
}

// Emit delivers an event; it reports false once the transport is stopped.
func (t *Transport) Emit(eventType session.EventType, transcript string, err error) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return false
	}
	t.events <- session.TransportEvent{Type: eventType, Transcript: transcript, Err: err, At: time.Now()}
	return true
}

// Hangup simulates the remote side closing the stream.
func (t *Transport) Hangup() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.stopped {
		t.stopped = true
		close(t.events)
	}
}

func (t *Transport) Token() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.token
}

func (t *Transport) Started() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.started
}

func (t *Transport) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

func (t *Transport) StopCalls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopCalls
}

// Factory hands out the given transports in order.
func Factory(transports ...*Transport) session.TransportFactory {
	var mu sync.Mutex
	i := 0
	return func() (session.Transport, error) {
		mu.Lock()
		defer mu.Unlock()
		if i >= len(transports) {
			return NewTransport(), nil
		}
		t := transports[i]
		i++
		return t, nil
	}
}

// FinalizerMock mocks session.CallFinalizer
type FinalizerMock struct {
	mock.Mock
}

var _ session.CallFinalizer = (*FinalizerMock)(nil)

func (m *FinalizerMock) EndCall(ctx context.Context, conversationID string) error {
	args := m.Called(ctx, conversationID)
	return args.Error(0)
}

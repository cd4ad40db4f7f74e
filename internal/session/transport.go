package session

import (
	"context"
	"time"
)

// TransportEvent is one message from the voice transport.
type TransportEvent struct {
	Type EventType
	// Transcript carries the running transcript on update events.
	Transcript string
	// Err is set on error events.
	Err error
	At  time.Time
}

// Transport is a live audio connection to the voice platform.
// Events must be closed once the transport has stopped.
type Transport interface {
	Start(ctx context.Context, accessToken string) error
	Events() <-chan TransportEvent
	Stop() error
}

// TransportFactory creates a fresh transport per session.
type TransportFactory func() (Transport, error)

// PermissionRequester asks the operator for microphone access.
type PermissionRequester interface {
	RequestMicrophone(ctx context.Context) error
}

// StaticPermission answers every request with Err.
type StaticPermission struct {
	Err error
}

func (p StaticPermission) RequestMicrophone(ctx context.Context) error {
	return p.Err
}

// CallFinalizer tells the backend that the operator hung up.
type CallFinalizer interface {
	EndCall(ctx context.Context, conversationID string) error
}

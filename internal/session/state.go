package session

import (
	"errors"
	"fmt"
)

// State is the lifecycle of one live call session.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateRequesting    State = "requesting" // waiting for microphone permission
	StateConnecting    State = "connecting"
	StateActive        State = "active"
	StateTerminating   State = "terminating"
	StateEnded         State = "ended"
	StateFailed        State = "failed"
)

// Terminal reports whether the session is over.
func (s State) Terminal() bool {
	return s == StateEnded || s == StateFailed
}

// Live reports whether the session holds, or is acquiring, a transport.
func (s State) Live() bool {
	return s == StateRequesting || s == StateConnecting || s == StateActive
}

// Idle reports whether a new session may start.
func (s State) Idle() bool {
	return s == StateUninitialized || s.Terminal()
}

// EventType is the bounded set of inputs to the state machine.
type EventType string

// Events emitted by the voice transport.
const (
	EventCallStarted       EventType = "call_started"
	EventCallEnded         EventType = "call_ended"
	EventAgentStartTalking EventType = "agent_start_talking"
	EventAgentStopTalking  EventType = "agent_stop_talking"
	EventUpdate            EventType = "update"
	EventError             EventType = "error"
	EventDisconnect        EventType = "disconnect"
)

// Events raised by the adapter itself.
const (
	EventStartRequested    EventType = "start_requested"
	EventPermissionGranted EventType = "permission_granted"
	EventPermissionDenied  EventType = "permission_denied"
	EventEndRequested      EventType = "end_requested"
	EventTransportStopped  EventType = "transport_stopped"
	EventTransportFailed   EventType = "transport_failed"
)

// TransportEventTypes lists the events a transport may deliver.
var TransportEventTypes = []EventType{
	EventCallStarted, EventCallEnded, EventAgentStartTalking, EventAgentStopTalking,
	EventUpdate, EventError, EventDisconnect,
}

// ErrInvalidTransition is returned by Next for an event the state does not accept.
var ErrInvalidTransition = errors.New("invalid session transition")

type transitionKey struct {
	from  State
	event EventType
}

var transitions = map[transitionKey]State{
	{StateUninitialized, EventStartRequested}: StateRequesting,
	{StateEnded, EventStartRequested}:         StateRequesting,
	{StateFailed, EventStartRequested}:        StateRequesting,

	{StateRequesting, EventPermissionGranted}: StateConnecting,
	{StateRequesting, EventPermissionDenied}:  StateFailed,
	{StateRequesting, EventError}:             StateFailed,
	{StateRequesting, EventEndRequested}:      StateTerminating,

	{StateConnecting, EventCallStarted}:  StateActive,
	{StateConnecting, EventCallEnded}:    StateEnded,
	{StateConnecting, EventError}:        StateFailed,
	{StateConnecting, EventEndRequested}: StateTerminating,
	{StateConnecting, EventUpdate}:       StateConnecting,
	{StateConnecting, EventDisconnect}:   StateConnecting,

	{StateActive, EventAgentStartTalking}: StateActive,
	{StateActive, EventAgentStopTalking}:  StateActive,
	{StateActive, EventUpdate}:            StateActive,
	{StateActive, EventDisconnect}:        StateActive,
	{StateActive, EventCallEnded}:         StateEnded,
	{StateActive, EventEndRequested}:      StateTerminating,
	{StateActive, EventError}:             StateTerminating,

	{StateTerminating, EventTransportStopped}: StateEnded,
	{StateTerminating, EventTransportFailed}:  StateFailed,
	{StateTerminating, EventCallEnded}:        StateTerminating,
	{StateTerminating, EventAgentStopTalking}: StateTerminating,
	{StateTerminating, EventUpdate}:           StateTerminating,
	{StateTerminating, EventDisconnect}:       StateTerminating,
}

// Next is the pure transition function of the session state machine.
func Next(from State, event EventType) (State, error) {
	to, ok := transitions[transitionKey{from, event}]
	if !ok {
		return from, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, from, event)
	}
	return to, nil
}

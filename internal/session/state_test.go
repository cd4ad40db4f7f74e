package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNext(t *testing.T) {
	tests := []struct {
		from  State
		event EventType
		to    State
		ok    bool
	}{
		{StateUninitialized, EventStartRequested, StateRequesting, true},
		{StateRequesting, EventPermissionGranted, StateConnecting, true},
		{StateRequesting, EventPermissionDenied, StateFailed, true},
		{StateConnecting, EventCallStarted, StateActive, true},
		{StateConnecting, EventError, StateFailed, true},
		{StateActive, EventAgentStartTalking, StateActive, true},
		{StateActive, EventUpdate, StateActive, true},
		{StateActive, EventDisconnect, StateActive, true},
		{StateActive, EventCallEnded, StateEnded, true},
		{StateActive, EventEndRequested, StateTerminating, true},
		{StateActive, EventError, StateTerminating, true},
		{StateTerminating, EventTransportStopped, StateEnded, true},
		{StateTerminating, EventTransportFailed, StateFailed, true},
		{StateEnded, EventStartRequested, StateRequesting, true},
		{StateFailed, EventStartRequested, StateRequesting, true},

		{StateUninitialized, EventCallStarted, StateUninitialized, false},
		{StateActive, EventStartRequested, StateActive, false},
		{StateEnded, EventCallStarted, StateEnded, false},
		{StateFailed, EventEndRequested, StateFailed, false},
		{StateRequesting, EventCallStarted, StateRequesting, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"+"+string(tt.event), func(t *testing.T) {
			to, err := Next(tt.from, tt.event)
			assert.Equal(t, tt.to, to)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidTransition)
			}
		})
	}
}

func TestStatePredicates(t *testing.T) {
	assert.True(t, StateUninitialized.Idle())
	assert.True(t, StateEnded.Idle())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StateTerminating.Idle())
	assert.False(t, StateTerminating.Live())
	for _, s := range []State{StateRequesting, StateConnecting, StateActive} {
		assert.True(t, s.Live(), s)
		assert.False(t, s.Idle(), s)
	}
}

func TestEveryTransportEventIsHandledWhileActive(t *testing.T) {
	for _, ev := range TransportEventTypes {
		_, err := Next(StateActive, ev)
		assert.NoError(t, err, ev)
	}
}

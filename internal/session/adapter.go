package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"gitlab.com/timkado/api/voice-agent-console/internal/apperrors"
	"gitlab.com/timkado/api/voice-agent-console/internal/model"
	"gitlab.com/timkado/api/voice-agent-console/internal/observer"
	"gitlab.com/timkado/api/voice-agent-console/pkg/logger"
	"gitlab.com/timkado/api/voice-agent-console/pkg/utils"
)

// PermissionDeniedMessage is shown when microphone access is refused.
const PermissionDeniedMessage = "Microphone access denied. Please allow microphone access and try again."

const defaultFinalizeTimeout = 5 * time.Second

// Snapshot is a consistent copy of the adapter state for rendering.
type Snapshot struct {
	ConversationID string
	State          State
	AgentSpeaking  bool
	Transcript     string
	Err            error
	// Message is the operator-facing text for Err.
	Message string
}

// Option customises an Adapter.
type Option func(*Adapter)

// WithPermission sets the microphone permission source. Defaults to always granted.
func WithPermission(p PermissionRequester) Option {
	return func(a *Adapter) { a.permission = p }
}

// WithFinalizer sets the backend end-call notifier.
func WithFinalizer(f CallFinalizer) Option {
	return func(a *Adapter) { a.finalizer = f }
}

// WithFinalizeTimeout bounds the best-effort end-call notification.
func WithFinalizeTimeout(d time.Duration) Option {
	return func(a *Adapter) { a.finalizeTimeout = d }
}

// WithLogger sets the adapter logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Adapter) { a.logger = l }
}

// Adapter drives one call session at a time over an injected transport.
type Adapter struct {
	factory         TransportFactory
	permission      PermissionRequester
	finalizer       CallFinalizer
	finalizeTimeout time.Duration
	logger          *zap.Logger

	mu             sync.Mutex
	state          State
	conversationID string
	agentSpeaking  bool
	transcript     string
	err            error
	message        string
	transport      Transport
	done           chan struct{}
	listeners      []func(Snapshot)
}

// NewAdapter creates an adapter in the Uninitialized state.
func NewAdapter(factory TransportFactory, opts ...Option) *Adapter {
	a := &Adapter{
		factory:         factory,
		permission:      StaticPermission{},
		finalizeTimeout: defaultFinalizeTimeout,
		logger:          logger.Log,
		state:           StateUninitialized,
		done:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.Named("session")
	return a
}

// OnChange registers a listener called after every state change, outside the adapter lock.
func (a *Adapter) OnChange(fn func(Snapshot)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, fn)
}

// Snapshot returns the current session view.
func (a *Adapter) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

// State returns the current state.
func (a *Adapter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Done is closed when the current session reaches Ended or Failed.
func (a *Adapter) Done() <-chan struct{} {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.done
}

func (a *Adapter) snapshotLocked() Snapshot {
	return Snapshot{
		ConversationID: a.conversationID,
		State:          a.state,
		AgentSpeaking:  a.agentSpeaking,
		Transcript:     a.transcript,
		Err:            a.err,
		Message:        a.message,
	}
}

// Start opens a session for conv using its access token. It returns once the
// transport is connecting; progress is reported through OnChange and Done.
func (a *Adapter) Start(ctx context.Context, conv model.Conversation) error {
	if !conv.HasLiveSession() {
		return fmt.Errorf("%w: conversation %s has no access token", apperrors.ErrSession, conv.ID)
	}

	a.mu.Lock()
	if !a.state.Idle() {
		state := a.state
		a.mu.Unlock()
		return fmt.Errorf("%w: session is %s", apperrors.ErrSessionActive, state)
	}
	a.conversationID = conv.ID
	a.agentSpeaking = false
	a.transcript = ""
	a.err = nil
	a.message = ""
	a.done = make(chan struct{})
	changed := a.transitionLocked(EventStartRequested)
	a.mu.Unlock()
	a.notify(changed)

	log := logger.FromContextOr(ctx, a.logger).With(zap.String("conversation_id", conv.ID))

	if err := a.permission.RequestMicrophone(ctx); err != nil {
		log.Warn("Microphone permission denied", zap.Error(err))
		wrapped := fmt.Errorf("%w: %w", apperrors.ErrPermissionDenied, err)
		a.fail(EventPermissionDenied, wrapped, PermissionDeniedMessage)
		return wrapped
	}

	a.mu.Lock()
	if a.state != StateRequesting {
		// Ended while the permission prompt was open.
		a.mu.Unlock()
		return nil
	}
	changed = a.transitionLocked(EventPermissionGranted)
	a.mu.Unlock()
	a.notify(changed)

	transport, err := a.factory()
	if err != nil {
		wrapped := fmt.Errorf("%w: create transport: %w", apperrors.ErrSession, err)
		a.fail(EventError, wrapped, "Call failed: "+err.Error())
		return wrapped
	}

	a.mu.Lock()
	if a.state != StateConnecting {
		a.mu.Unlock()
		_ = transport.Stop()
		return nil
	}
	a.transport = transport
	a.mu.Unlock()

	events := transport.Events()
	utils.SafeGo(func() {
		a.consume(log, transport, events)
	}, func(r interface{}, stack []byte) {
		log.Error("[panic] Recovered from panic in session event loop", zap.Any("panic", r), zap.ByteString("stack", stack))
		a.fail(EventError, fmt.Errorf("%w: event loop panic: %v", apperrors.ErrSession, r), "Call failed unexpectedly")
		a.stopTransport(log)
	})

	if err := transport.Start(ctx, conv.AccessToken()); err != nil {
		log.Error("Failed to start call transport", zap.Error(err))
		wrapped := fmt.Errorf("%w: start transport: %w", apperrors.ErrSession, err)
		a.stopTransport(log)
		a.fail(EventError, wrapped, "Call failed: "+err.Error())
		return wrapped
	}

	log.Info("Call transport connecting")
	return nil
}

// End hangs up. The transport is stopped and the session reaches Ended first;
// the backend is then notified on a best-effort basis. A finalize failure is
// logged and never returned.
func (a *Adapter) End(ctx context.Context) error {
	a.mu.Lock()
	if !a.state.Live() {
		state := a.state
		a.mu.Unlock()
		return fmt.Errorf("%w: session is %s", apperrors.ErrNoActiveSession, state)
	}
	conversationID := a.conversationID
	changed := a.transitionLocked(EventEndRequested)
	a.mu.Unlock()
	a.notify(changed)

	log := logger.FromContextOr(ctx, a.logger).With(zap.String("conversation_id", conversationID))

	a.stopTransport(log)
	a.apply(EventTransportStopped, TransportEvent{})
	log.Info("Call ended by operator")

	if a.finalizer == nil {
		return nil
	}
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.finalizeTimeout)
	defer cancel()
	if err := a.finalizer.EndCall(fctx, conversationID); err != nil {
		log.Warn("Failed to notify backend of call end", zap.Error(err))
	}
	return nil
}

// Close releases the transport if the session still holds one. It is safe to call repeatedly.
func (a *Adapter) Close() {
	a.mu.Lock()
	if !a.state.Live() {
		a.mu.Unlock()
		return
	}
	changed := a.transitionLocked(EventEndRequested)
	a.mu.Unlock()
	a.notify(changed)

	a.stopTransport(a.logger)
	a.apply(EventTransportStopped, TransportEvent{})
}

func (a *Adapter) consume(log *zap.Logger, transport Transport, events <-chan TransportEvent) {
	for ev := range events {
		a.handle(log, ev)
	}

	// The transport closed its stream.
	a.mu.Lock()
	current := a.transport
	state := a.state
	a.mu.Unlock()
	if current != transport {
		return
	}
	switch state {
	case StateActive:
		log.Info("Call transport closed")
		a.apply(EventCallEnded, TransportEvent{})
	case StateConnecting:
		a.fail(EventError, fmt.Errorf("%w: transport closed before the call started", apperrors.ErrSession), "Call could not be connected")
	}
	a.clearTransport(transport)
}

func (a *Adapter) handle(log *zap.Logger, ev TransportEvent) {
	switch ev.Type {
	case EventDisconnect:
		log.Warn("Call transport disconnected")
		return
	case EventError:
		err := ev.Err
		if err == nil {
			err = errors.New("transport error")
		}
		log.Error("Call transport error", zap.Error(err))
		wrapped := fmt.Errorf("%w: %w", apperrors.ErrSession, err)

		if a.State() == StateActive {
			a.apply(EventError, ev)
			a.stopTransport(log)
			a.fail(EventTransportFailed, wrapped, "Call failed: "+err.Error())
			return
		}
		a.stopTransport(log)
		a.fail(EventError, wrapped, "Call failed: "+err.Error())
		return
	case EventCallEnded:
		log.Info("Call ended by agent")
		a.apply(EventCallEnded, ev)
		a.stopTransport(log)
		return
	}
	a.apply(ev.Type, ev)
}

// apply runs one transition and updates the derived fields.
func (a *Adapter) apply(event EventType, ev TransportEvent) {
	a.mu.Lock()
	changed := a.transitionLocked(event)
	if changed == nil {
		a.mu.Unlock()
		return
	}
	switch event {
	case EventAgentStartTalking:
		a.agentSpeaking = true
	case EventAgentStopTalking:
		a.agentSpeaking = false
	case EventUpdate:
		if ev.Transcript != "" {
			a.transcript = ev.Transcript
		}
	}
	snap := a.snapshotLocked()
	changed = &snap
	a.mu.Unlock()
	a.notify(changed)
}

func (a *Adapter) fail(event EventType, err error, message string) {
	a.mu.Lock()
	if _, nerr := Next(a.state, event); nerr != nil {
		a.mu.Unlock()
		a.logger.Debug("Ignoring session failure", zap.String("event", string(event)), zap.Error(err))
		return
	}
	a.err = err
	a.message = message
	changed := a.transitionLocked(event)
	a.mu.Unlock()
	a.notify(changed)
}

// transitionLocked moves the state machine and returns the new snapshot, or nil when the
// event was ignored. Callers hold a.mu.
func (a *Adapter) transitionLocked(event EventType) *Snapshot {
	from := a.state
	to, err := Next(from, event)
	if err != nil {
		a.logger.Debug("Ignoring session event", zap.String("state", string(from)), zap.String("event", string(event)))
		return nil
	}
	a.state = to
	if to != StateActive {
		a.agentSpeaking = false
	}
	if from != to {
		observer.IncSessionTransition(string(from), string(to))
		a.logger.Debug("Session transition", zap.String("from", string(from)), zap.String("to", string(to)), zap.String("event", string(event)))
	}
	if to.Terminal() && !from.Terminal() {
		close(a.done)
	}
	snap := a.snapshotLocked()
	return &snap
}

func (a *Adapter) notify(snap *Snapshot) {
	if snap == nil {
		return
	}
	a.mu.Lock()
	listeners := append([]func(Snapshot){}, a.listeners...)
	a.mu.Unlock()
	for _, fn := range listeners {
		fn(*snap)
	}
}

// stopTransport stops the held transport once.
func (a *Adapter) stopTransport(log *zap.Logger) {
	a.mu.Lock()
	t := a.transport
	a.transport = nil
	a.mu.Unlock()
	if t == nil {
		return
	}
	if err := t.Stop(); err != nil {
		log.Warn("Failed to stop call transport", zap.Error(err))
	}
}

func (a *Adapter) clearTransport(t Transport) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.transport == t {
		a.transport = nil
	}
}

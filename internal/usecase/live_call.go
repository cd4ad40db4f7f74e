package usecase

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"gitlab.com/timkado/api/voice-agent-console/internal/model"
	"gitlab.com/timkado/api/voice-agent-console/internal/poller"
	"gitlab.com/timkado/api/voice-agent-console/internal/reqctx"
	"gitlab.com/timkado/api/voice-agent-console/internal/session"
	"gitlab.com/timkado/api/voice-agent-console/pkg/logger"
	"gitlab.com/timkado/api/voice-agent-console/pkg/utils"
)

// LiveCallOptions tunes a live test call.
type LiveCallOptions struct {
	Permission      session.PermissionRequester
	PollInterval    time.Duration
	FinalizeTimeout time.Duration
	Clock           poller.Clock
	// OnStatus is called with the conversation snapshot after every successful status fetch.
	OnStatus func(model.Conversation)
	// OnSession is called after every call-session state change.
	OnSession func(session.Snapshot)
}

// LiveCall ties a started test call to its call session and status poller.
type LiveCall struct {
	adapter *session.Adapter
	poller  *poller.Controller
	logger  *zap.Logger

	onStatus func(model.Conversation)

	mu   sync.Mutex
	conv model.Conversation
}

// StartLiveCall starts a test call, opens its call session over a transport
// from factory and polls its status until it is terminal.
//
// A nil LiveCall is returned only when the test call could not be created.
// If the session fails to start, the LiveCall is returned together with the
// error so the caller can still follow the conversation; it must be closed.
func (s *ConsoleService) StartLiveCall(ctx context.Context, req model.StartTestCallRequest, factory session.TransportFactory, opts LiveCallOptions) (*LiveCall, error) {
	conv, err := s.StartTestCall(ctx, req)
	if err != nil {
		return nil, err
	}

	ctx = reqctx.WithConversationID(ctx, conv.ID)
	log := logger.FromContext(ctx).Named("live_call")

	lc := &LiveCall{
		logger:   log,
		conv:     *conv,
		onStatus: opts.OnStatus,
	}

	pollerOpts := []poller.Option{
		poller.WithInterval(opts.PollInterval),
		poller.WithObserver(lc.observe),
		poller.WithLogger(log),
	}
	if opts.Clock != nil {
		pollerOpts = append(pollerOpts, poller.WithClock(opts.Clock))
	}
	lc.poller = poller.New(s, pollerOpts...)

	adapterOpts := []session.Option{
		session.WithFinalizer(s),
		session.WithLogger(log),
	}
	if opts.Permission != nil {
		adapterOpts = append(adapterOpts, session.WithPermission(opts.Permission))
	}
	if opts.FinalizeTimeout > 0 {
		adapterOpts = append(adapterOpts, session.WithFinalizeTimeout(opts.FinalizeTimeout))
	}
	lc.adapter = session.NewAdapter(factory, adapterOpts...)
	if opts.OnSession != nil {
		lc.adapter.OnChange(opts.OnSession)
	}

	if err := lc.poller.Enable(context.WithoutCancel(ctx), conv.ID); err != nil {
		return nil, err
	}

	if err := lc.adapter.Start(ctx, *conv); err != nil {
		log.Warn("Call session failed to start", zap.Error(err))
		return lc, err
	}
	return lc, nil
}

func (lc *LiveCall) observe(obs poller.Observation) {
	if obs.Err != nil {
		return
	}
	lc.mu.Lock()
	lc.conv = lc.conv.WithStatus(obs.Response())
	conv := lc.conv
	lc.mu.Unlock()

	if obs.Terminal() {
		lc.logger.Info("Conversation reached a terminal status", zap.String("status", string(obs.Status)))
	}
	if lc.onStatus != nil {
		defer utils.RecoverWithLog(logger.WithLogger(context.Background(), lc.logger), "status callback")
		lc.onStatus(conv)
	}
}

// ID returns the conversation id.
func (lc *LiveCall) ID() string {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.conv.ID
}

// Conversation returns the latest conversation snapshot with the polled status applied.
func (lc *LiveCall) Conversation() model.Conversation {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.conv
}

// Session returns the call-session view.
func (lc *LiveCall) Session() session.Snapshot {
	return lc.adapter.Snapshot()
}

// PollState returns the status poller state.
func (lc *LiveCall) PollState() poller.State {
	return lc.poller.State()
}

// End hangs up. Polling continues until the backend reports a terminal status.
func (lc *LiveCall) End(ctx context.Context) error {
	return lc.adapter.End(ctx)
}

// Wait blocks until the session has finished and polling has stopped, or ctx is done.
func (lc *LiveCall) Wait(ctx context.Context) error {
	for _, done := range []<-chan struct{}{lc.adapter.Done(), lc.poller.Done()} {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Close releases the transport and stops polling. It is safe to call repeatedly.
func (lc *LiveCall) Close() {
	lc.adapter.Close()
	lc.poller.Disable()
}

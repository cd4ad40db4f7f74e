package poller

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
	"gitlab.com/timkado/api/voice-agent-console/internal/reqctx"
	"gitlab.com/timkado/api/voice-agent-console/pkg/logger"
	"gitlab.com/timkado/api/voice-agent-console/pkg/utils"
)

// DefaultInterval is the refetch period while a conversation is live.
const DefaultInterval = 3000 * time.Millisecond

// ErrAlreadyRunning is returned by Enable on a controller that is still polling.
var ErrAlreadyRunning = errors.New("poller already running")

// StatusFetcher loads the current status of one conversation.
type StatusFetcher interface {
	GetStatus(ctx context.Context, conversationID string) (*model.ConversationStatusResponse, error)
}

// StatusFetcherFunc adapts a function to StatusFetcher.
type StatusFetcherFunc func(ctx context.Context, conversationID string) (*model.ConversationStatusResponse, error)

func (f StatusFetcherFunc) GetStatus(ctx context.Context, id string) (*model.ConversationStatusResponse, error) {
	return f(ctx, id)
}

// IntervalFor returns the delay before the next fetch, or 0 when polling must stop.
func IntervalFor(status model.ConversationStatus, interval time.Duration) time.Duration {
	if status.IsTerminal() {
		return 0
	}
	if interval <= 0 {
		return DefaultInterval
	}
	return interval
}

// Observation is the outcome of one fetch.
type Observation struct {
	ConversationID string
	Status         model.ConversationStatus
	CompletedAt    *time.Time
	ObservedAt     time.Time
	Attempt        int
	// Err wraps apperrors.ErrPolling when the fetch failed; Status then keeps the last known value.
	Err error
}

// Terminal reports whether the observation ends polling.
func (o Observation) Terminal() bool {
	return o.Err == nil && o.Status.IsTerminal()
}

// Response converts a successful observation into the status payload.
func (o Observation) Response() model.ConversationStatusResponse {
	return model.ConversationStatusResponse{ID: o.ConversationID, Status: o.Status, CompletedAt: o.CompletedAt}
}

// State describes the controller lifecycle.
type State string

const (
	StateIdle     State = "idle"
	StatePolling  State = "polling"
	StateStopped  State = "stopped"  // disabled or cancelled
	StateFinished State = "finished" // terminal status observed
)

// Option customises a Controller.
type Option func(*Controller)

// WithClock injects a clock.
func WithClock(c Clock) Option {
	return func(ctrl *Controller) { ctrl.clock = c }
}

// WithInterval overrides DefaultInterval.
func WithInterval(d time.Duration) Option {
	return func(ctrl *Controller) { ctrl.interval = d }
}

// WithObserver registers a callback invoked after every fetch, on the polling goroutine.
func WithObserver(fn func(Observation)) Option {
	return func(ctrl *Controller) { ctrl.observers = append(ctrl.observers, fn) }
}

// WithLogger sets the controller logger.
func WithLogger(l *zap.Logger) Option {
	return func(ctrl *Controller) { ctrl.logger = l }
}

// Controller polls the status of one conversation until it reaches a terminal state.
// Fetches are strictly sequential.
type Controller struct {
	fetcher   StatusFetcher
	clock     Clock
	interval  time.Duration
	observers []func(Observation)
	logger    *zap.Logger

	mu      sync.Mutex
	state   State
	latest  *Observation
	stop    chan struct{}
	done    chan struct{}
	running bool
}

// New creates an idle controller.
func New(fetcher StatusFetcher, opts ...Option) *Controller {
	c := &Controller{
		fetcher:  fetcher,
		clock:    RealClock{},
		interval: DefaultInterval,
		logger:   logger.Log,
		state:    StateIdle,
		done:     closedChan(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("poller")
	return c
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// Enable starts polling id: one fetch immediately, then one per interval until
// a terminal status, Disable, or ctx cancellation.
func (c *Controller) Enable(ctx context.Context, conversationID string) error {
	if conversationID == "" {
		return fmt.Errorf("%w: conversation id is required", apperrors.ErrValidation)
	}

	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	c.running = true
	c.state = StatePolling
	c.latest = nil
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	stop, done := c.stop, c.done
	c.mu.Unlock()

	ctx = reqctx.WithConversationID(ctx, conversationID)
	observer.IncActivePollers(1)
	utils.SafeGo(func() {
		c.run(ctx, conversationID, stop, done)
	}, func(r interface{}, stack []byte) {
		c.logger.Error("[panic] Recovered from panic in poller",
			zap.String("conversation_id", conversationID),
			zap.Any("panic", r),
			zap.ByteString("stack", stack))
		c.finish(StateStopped, done)
	})
	return nil
}

// Disable stops polling at once and the controller can be enabled again.
// A fetch already in flight completes in the background but its result is discarded.
func (c *Controller) Disable() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	close(c.stop)
	c.running = false
	c.state = StateStopped
	observer.IncActivePollers(-1)
	close(c.done)
}

// Latest returns the most recent observation, if any.
func (c *Controller) Latest() (Observation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.latest == nil {
		return Observation{}, false
	}
	return *c.latest, true
}

// State returns the lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Done is closed when the current polling run has ended.
func (c *Controller) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

func (c *Controller) run(ctx context.Context, id string, stop, done chan struct{}) {
	log := logger.FromContextOr(ctx, c.logger)
	attempt := 0
	var last model.ConversationStatus

	for {
		attempt++
		resp, err := c.fetcher.GetStatus(ctx, id)
		observer.IncPollFetch(err)

		if stopped(ctx, stop) {
			log.Debug("Discarding status fetched after polling was disabled", zap.Int("attempt", attempt))
			c.finish(StateStopped, done)
			return
		}

		obs := Observation{ConversationID: id, ObservedAt: c.clock.Now(), Attempt: attempt, Status: last}
		if err != nil {
			obs.Err = fmt.Errorf("%w: %w", apperrors.ErrPolling, err)
			log.Warn("Status fetch failed, will retry", zap.Int("attempt", attempt), zap.Error(err))
		} else {
			if resp.ID != "" && resp.ID != id {
				log.Warn("Status response for another conversation", zap.String("response_id", resp.ID))
			}
			obs.Status = resp.Status
			obs.CompletedAt = resp.CompletedAt
			last = resp.Status
		}
		if !c.publish(obs, done) {
			log.Debug("Discarding status fetched after polling was disabled", zap.Int("attempt", attempt))
			return
		}

		if obs.Terminal() {
			log.Info("Conversation reached terminal status, polling stopped",
				zap.String("status", string(obs.Status)),
				zap.Int("fetches", attempt))
			c.finish(StateFinished, done)
			return
		}

		timer := c.clock.NewTimer(IntervalFor(obs.Status, c.interval))
		select {
		case <-timer.C():
		case <-stop:
			timer.Stop()
			c.finish(StateStopped, done)
			return
		case <-ctx.Done():
			timer.Stop()
			c.finish(StateStopped, done)
			return
		}
	}
}

func stopped(ctx context.Context, stop chan struct{}) bool {
	select {
	case <-stop:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// publish records obs for the run owning done. It reports false when that run is over.
func (c *Controller) publish(obs Observation, done chan struct{}) bool {
	c.mu.Lock()
	if !c.running || c.done != done {
		c.mu.Unlock()
		return false
	}
	c.latest = &obs
	c.mu.Unlock()

	for _, fn := range c.observers {
		fn(obs)
	}
	return true
}

func (c *Controller) finish(state State, done chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running || c.done != done {
		return
	}
	c.running = false
	c.state = state
	observer.IncActivePollers(-1)
	close(done)
}

package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/sourcegraph/conc/iter"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/voice-agent-console/internal/config"
	"gitlab.com/timkado/api/voice-agent-console/internal/model"
	"gitlab.com/timkado/api/voice-agent-console/internal/observer"
	"gitlab.com/timkado/api/voice-agent-console/internal/poller"
	"gitlab.com/timkado/api/voice-agent-console/internal/reqctx"
	"gitlab.com/timkado/api/voice-agent-console/pkg/utils"
)

const defaultRefreshInterval = 15 * time.Second

// ConversationSource is what the watcher reads from the backend.
type ConversationSource interface {
	poller.StatusFetcher
	// ReloadConversations returns a fresh conversation list, bypassing cached results.
	ReloadConversations(ctx context.Context) ([]model.ConversationListItem, error)
}

type watchedConversation struct {
	ctrl *poller.Controller
	last model.ConversationStatus
}

// Watcher discovers open conversations and polls each one until it finishes.
// Status transitions are published and finished conversations are archived.
type Watcher struct {
	source    ConversationSource
	publisher StatusPublisher
	archiver  IArchiveWorker
	cfg       config.WatcherConfig
	interval  time.Duration
	clock     poller.Clock
	logger    *zap.Logger

	mu      sync.Mutex
	tracked map[string]*watchedConversation
	// archived remembers finished conversations so a late list entry is not polled again.
	archived map[string]struct{}
}

// NewWatcher creates a watcher. publisher and archiver are optional.
func NewWatcher(
	source ConversationSource,
	publisher StatusPublisher,
	archiver IArchiveWorker,
	cfg config.WatcherConfig,
	pollInterval time.Duration,
	log *zap.Logger,
) *Watcher {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = defaultRefreshInterval
	}
	return &Watcher{
		source:    source,
		publisher: publisher,
		archiver:  archiver,
		cfg:       cfg,
		interval:  pollInterval,
		clock:     poller.RealClock{},
		logger:    log.Named("watcher"),
		tracked:   make(map[string]*watchedConversation),
		archived:  make(map[string]struct{}),
	}
}

// Run reconciles immediately and then every refresh interval until ctx is done.
// All pollers are stopped before Run returns.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("Conversation watcher started",
		zap.Duration("refresh_interval", w.cfg.RefreshInterval),
		zap.Int("max_tracked", w.cfg.MaxTracked))
	defer w.stopAll()

	ticker := time.NewTicker(w.cfg.RefreshInterval)
	defer ticker.Stop()

	reconcile := utils.WrapWithContextRecovery(w.Reconcile)
	for {
		if err := reconcile(ctx); err != nil {
			w.logger.Warn("Conversation refresh failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			w.logger.Info("Conversation watcher stopping")
			return nil
		case <-ticker.C:
		}
	}
}

// Reconcile lists conversations once and starts pollers for newly seen open ones.
func (w *Watcher) Reconcile(ctx context.Context) error {
	items, err := w.source.ReloadConversations(ctx)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	for id, wc := range w.tracked {
		if st := wc.ctrl.State(); st == poller.StateFinished || st == poller.StateStopped {
			delete(w.tracked, id)
		}
	}

	started := 0
	for _, item := range items {
		if item.Status.IsTerminal() {
			continue
		}
		if _, ok := w.tracked[item.ID]; ok {
			continue
		}
		if _, ok := w.archived[item.ID]; ok {
			continue
		}
		if w.cfg.MaxTracked > 0 && len(w.tracked) >= w.cfg.MaxTracked {
			w.logger.Warn("Watcher at capacity, deferring conversations", zap.Int("max_tracked", w.cfg.MaxTracked))
			break
		}

		id := item.ID
		wc := &watchedConversation{last: item.Status}
		wc.ctrl = poller.New(w.source,
			poller.WithInterval(w.interval),
			poller.WithClock(w.clock),
			poller.WithLogger(w.logger),
			poller.WithObserver(func(obs poller.Observation) { w.observe(ctx, id, obs) }),
		)
		if err := wc.ctrl.Enable(ctx, id); err != nil {
			w.logger.Warn("Failed to start poller", zap.String("conversation_id", id), zap.Error(err))
			continue
		}
		w.tracked[id] = wc
		started++
	}

	observer.SetWatchedConversations(len(w.tracked))
	if started > 0 {
		w.logger.Info("Watching new conversations", zap.Int("started", started), zap.Int("tracked", len(w.tracked)))
	}
	return nil
}

// Tracked returns the number of conversations being polled.
func (w *Watcher) Tracked() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.tracked)
}

func (w *Watcher) observe(ctx context.Context, id string, obs poller.Observation) {
	if obs.Err != nil {
		return
	}

	w.mu.Lock()
	wc, ok := w.tracked[id]
	if !ok {
		w.mu.Unlock()
		return
	}
	previous := wc.last
	if previous == obs.Status {
		w.mu.Unlock()
		return
	}
	wc.last = obs.Status
	if obs.Terminal() {
		w.archived[id] = struct{}{}
	}
	w.mu.Unlock()

	ctx = reqctx.WithConversationID(context.WithoutCancel(ctx), id)
	event := model.StatusEvent{
		ConversationID: id,
		PreviousStatus: previous,
		Status:         obs.Status,
		CompletedAt:    obs.CompletedAt,
		ObservedAt:     obs.ObservedAt,
	}
	w.logger.Info("Conversation status changed",
		zap.String("conversation_id", id),
		zap.String("from", string(previous)),
		zap.String("to", string(obs.Status)))

	if w.publisher != nil {
		if err := w.publisher.PublishStatus(ctx, event); err != nil {
			w.logger.Warn("Status event not published", zap.String("conversation_id", id), zap.Error(err))
		}
	}

	if obs.Terminal() && w.archiver != nil {
		if err := w.archiver.SubmitTask(ArchiveTaskData{Ctx: ctx, ConversationID: id}); err != nil {
			w.logger.Warn("Archive task not submitted", zap.String("conversation_id", id), zap.Error(err))
		}
	}
}

func (w *Watcher) stopAll() {
	w.mu.Lock()
	ctrls := make([]*poller.Controller, 0, len(w.tracked))
	for _, wc := range w.tracked {
		ctrls = append(ctrls, wc.ctrl)
	}
	w.tracked = make(map[string]*watchedConversation)
	w.mu.Unlock()

	iter.ForEach(ctrls, func(c **poller.Controller) {
		(*c).Disable()
		<-(*c).Done()
	})
	observer.SetWatchedConversations(0)
	w.logger.Info("Conversation watcher stopped", zap.Int("pollers", len(ctrls)))
}

// Start runs the watcher in a recovered goroutine. The returned channel is
// closed once Run has returned.
func (w *Watcher) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	utils.SafeGo(func() {
		defer close(done)
		_ = w.Run(ctx)
	}, func(r interface{}, stack []byte) {
		w.logger.Error("[panic] Recovered from panic in watcher", zap.Any("panic", r), zap.ByteString("stack", stack))
	})
	return done
}

package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"gitlab.com/timkado/api/voice-agent-console/internal/config"
	"gitlab.com/timkado/api/voice-agent-console/internal/model"
)

const testPollInterval = 10 * time.Millisecond

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.StatusEvent
	err    error
}

func (p *recordingPublisher) PublishStatus(ctx context.Context, event model.StatusEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) get() []model.StatusEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.StatusEvent(nil), p.events...)
}

type recordingArchiver struct {
	mu    sync.Mutex
	tasks []string
}

func (a *recordingArchiver) SubmitTask(taskData ArchiveTaskData) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tasks = append(a.tasks, taskData.ConversationID)
	return nil
}

func (a *recordingArchiver) Stop() {}

func (a *recordingArchiver) get() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.tasks...)
}

func TestWatcher_PublishesTransitionsAndArchives(t *testing.T) {
	svc, backend := newTestService(t)
	backend.addConversation(model.NewConversation(&model.Conversation{ID: "C1", Status: model.StatusPending}))
	backend.addConversation(model.NewConversation(&model.Conversation{ID: "C2", Status: model.StatusCompleted}))
	backend.scriptStatuses("C1", model.StatusInProgress, model.StatusCompleted)

	pub := &recordingPublisher{}
	arch := &recordingArchiver{}
	w := NewWatcher(svc, pub, arch, config.WatcherConfig{RefreshInterval: time.Hour}, testPollInterval, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Reconcile(ctx))
	assert.Equal(t, 1, w.Tracked())

	require.Eventually(t, func() bool { return len(arch.get()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"C1"}, arch.get())

	events := pub.get()
	require.Len(t, events, 2)
	assert.Equal(t, model.StatusPending, events[0].PreviousStatus)
	assert.Equal(t, model.StatusInProgress, events[0].Status)
	assert.Equal(t, model.StatusInProgress, events[1].PreviousStatus)
	assert.Equal(t, model.StatusCompleted, events[1].Status)
	assert.True(t, events[1].Terminal())
	assert.NotNil(t, events[1].CompletedAt)

	// The finished poller is pruned and the conversation is not picked up again.
	require.NoError(t, w.Reconcile(ctx))
	assert.Equal(t, 0, w.Tracked())
	assert.Equal(t, 0, backend.hitCount("GET /api/conversations/{id}"))
}

func TestWatcher_PublishFailureStillArchives(t *testing.T) {
	svc, backend := newTestService(t)
	backend.addConversation(model.NewConversation(&model.Conversation{ID: "C1", Status: model.StatusInProgress}))
	backend.scriptStatuses("C1", model.StatusFailed)

	pub := &recordingPublisher{err: errors.New("nats: no responders")}
	arch := &recordingArchiver{}
	w := NewWatcher(svc, pub, arch, config.WatcherConfig{}, testPollInterval, zaptest.NewLogger(t))

	require.NoError(t, w.Reconcile(context.Background()))
	require.Eventually(t, func() bool { return len(arch.get()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Len(t, pub.get(), 1)
}

func TestWatcher_RespectsMaxTracked(t *testing.T) {
	svc, backend := newTestService(t)
	for _, id := range []string{"C1", "C2", "C3"} {
		backend.addConversation(model.NewConversation(&model.Conversation{ID: id, Status: model.StatusInProgress}))
	}

	w := NewWatcher(svc, nil, nil, config.WatcherConfig{MaxTracked: 2}, testPollInterval, zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Reconcile(ctx))
	assert.Equal(t, 2, w.Tracked())

	// Unchanged statuses never produce events, and a nil publisher is tolerated.
	time.Sleep(5 * testPollInterval)
	assert.Equal(t, 2, w.Tracked())

	cancel()
	w.stopAll()
	assert.Equal(t, 0, w.Tracked())
}

func TestWatcher_RunStopsPollersOnCancel(t *testing.T) {
	svc, backend := newTestService(t)
	backend.addConversation(model.NewConversation(&model.Conversation{ID: "C1", Status: model.StatusPending}))

	w := NewWatcher(svc, nil, nil, config.WatcherConfig{RefreshInterval: 20 * time.Millisecond}, testPollInterval, zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	done := w.Start(ctx)

	require.Eventually(t, func() bool { return w.Tracked() == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return backend.hitCount("GET /api/conversations") >= 2 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
	assert.Equal(t, 0, w.Tracked())
}

func TestWatcher_ReconcileError(t *testing.T) {
	svc, _ := newTestService(t)
	w := NewWatcher(svc, nil, nil, config.WatcherConfig{}, testPollInterval, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, w.Reconcile(ctx))
}

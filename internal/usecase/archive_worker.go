package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/voice-agent-console/internal/apperrors"
	"gitlab.com/timkado/api/voice-agent-console/internal/config"
	"gitlab.com/timkado/api/voice-agent-console/internal/model"
	"gitlab.com/timkado/api/voice-agent-console/internal/observer"
	"gitlab.com/timkado/api/voice-agent-console/internal/storage"
	"gitlab.com/timkado/api/voice-agent-console/pkg/logger"
	"gitlab.com/timkado/api/voice-agent-console/pkg/utils"
)

// ArchiveTaskData identifies a finished conversation to archive.
type ArchiveTaskData struct {
	Ctx            context.Context // Context derived for the task, NOT the original request context
	ConversationID string
}

// IArchiveWorker defines the interface for the archive worker pool.
type IArchiveWorker interface {
	SubmitTask(taskData ArchiveTaskData) error
	Stop()
}

// ConversationReader loads everything an archived outcome is built from.
type ConversationReader interface {
	GetConversation(ctx context.Context, id string) (*model.Conversation, error)
	GetMessages(ctx context.Context, id string) ([]model.Message, error)
	GetStructuredData(ctx context.Context, id string) (*model.StructuredDataResponse, error)
}

// ArchiveWorker manages the worker pool that stores call outcomes.
type ArchiveWorker struct {
	pool       *ants.PoolWithFunc
	reader     ConversationReader
	repo       storage.OutcomeRepo
	cfg        config.ArchiveWorkerPoolConfig
	baseLogger *zap.Logger
}

// Ensure ArchiveWorker implements IArchiveWorker
var _ IArchiveWorker = (*ArchiveWorker)(nil)

// NewArchiveWorker creates and initializes a new archive worker pool.
func NewArchiveWorker(
	cfg config.ArchiveWorkerPoolConfig,
	reader ConversationReader,
	repo storage.OutcomeRepo,
	baseLogger *zap.Logger,
) (*ArchiveWorker, error) {
	worker := &ArchiveWorker{
		reader:     reader,
		repo:       repo,
		cfg:        cfg,
		baseLogger: baseLogger.Named("archive_worker"),
	}

	pool, err := ants.NewPoolWithFunc(cfg.PoolSize, func(i interface{}) {
		taskData, ok := i.(ArchiveTaskData)
		if !ok {
			worker.baseLogger.Error("Invalid task data type received", zap.Any("data", i))
			return
		}
		worker.processArchiveTask(taskData)
	},
		ants.WithExpiryDuration(cfg.ExpiryTime),
		ants.WithNonblocking(false), // Block when all workers are busy, up to QueueSize waiting submitters
		ants.WithMaxBlockingTasks(cfg.QueueSize),
		ants.WithPanicHandler(func(err interface{}) {
			worker.baseLogger.Error("Panic recovered in archive worker", zap.Any("panic_error", err), zap.Stack("stack"))
			observer.IncArchiveTasksProcessed("panic")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive worker pool: %w", err)
	}
	worker.pool = pool
	worker.baseLogger.Info("Archive worker pool initialized",
		zap.Int("pool_size", cfg.PoolSize),
		zap.Int("queue_size", cfg.QueueSize),
		zap.Duration("expiry_time", cfg.ExpiryTime),
	)
	return worker, nil
}

// SubmitTask queues a conversation for archiving.
func (w *ArchiveWorker) SubmitTask(taskData ArchiveTaskData) error {
	if taskData.ConversationID == "" {
		return fmt.Errorf("%w: archive task without conversation id", apperrors.ErrBadRequest)
	}
	if taskData.Ctx == nil {
		taskData.Ctx = context.Background()
	}

	start := time.Now()
	observer.IncArchiveTasksSubmitted()
	observer.SetArchiveQueueLength(w.pool.Waiting())

	err := w.pool.Invoke(taskData)
	duration := time.Since(start)

	if err != nil {
		w.baseLogger.Warn("Failed to submit archive task to pool",
			zap.String("conversation_id", taskData.ConversationID),
			zap.Duration("submit_duration", duration),
			zap.Error(err),
		)
		observer.IncArchiveTasksProcessed("submit_error")
		if errors.Is(err, ants.ErrPoolOverload) {
			return fmt.Errorf("archive pool overload: %w", err)
		}
		return fmt.Errorf("failed to invoke archive task: %w", err)
	}

	w.baseLogger.Debug("Submitted archive task",
		zap.String("conversation_id", taskData.ConversationID),
		zap.Duration("submit_duration", duration),
	)
	return nil
}

// processArchiveTask loads the final conversation state and upserts its outcome.
func (w *ArchiveWorker) processArchiveTask(taskData ArchiveTaskData) {
	log := logger.FromContextOr(taskData.Ctx, w.baseLogger).With(
		zap.String("task_conversation_id", taskData.ConversationID),
	)
	ctx := taskData.Ctx
	id := taskData.ConversationID

	start := time.Now()
	status := "success"
	defer func() {
		duration := time.Since(start)
		observer.ObserveArchiveProcessingDuration(duration)
		observer.IncArchiveTasksProcessed(status)
		log.Debug("Finished processing archive task", zap.Duration("duration", duration), zap.String("final_status", status))
	}()

	// Terminal outcomes never change, so one archived row is final.
	existing, err := w.repo.FindByConversationID(ctx, id)
	switch {
	case err == nil && existing != nil && existing.Status.IsTerminal():
		log.Debug("Skipping archive task: outcome already archived", zap.String("status", string(existing.Status)))
		status = "skipped_archived"
		return
	case err != nil && !errors.Is(err, apperrors.ErrNotFound):
		log.Warn("Failed to look up archived outcome", zap.Error(err))
	}

	var (
		conv       *model.Conversation
		convErr    error
		messages   []model.Message
		msgErr     error
		structured *model.StructuredDataResponse
		sdErr      error
	)

	var wg conc.WaitGroup
	wg.Go(func() { conv, convErr = w.reader.GetConversation(ctx, id) })
	wg.Go(func() { messages, msgErr = w.reader.GetMessages(ctx, id) })
	wg.Go(func() { structured, sdErr = w.reader.GetStructuredData(ctx, id) })
	wg.Wait()

	if convErr != nil {
		log.Error("Failed to load conversation for archiving", zap.Error(convErr))
		status = "failure_fetch"
		return
	}
	if !conv.Status.IsTerminal() {
		log.Debug("Skipping archive task: conversation is not finished", zap.String("status", string(conv.Status)))
		status = "skipped_not_terminal"
		return
	}
	if msgErr != nil {
		// Archive without a message count rather than dropping the outcome.
		log.Warn("Failed to load messages for archiving", zap.Error(msgErr))
		messages = nil
	}
	// conv may be shared with the query cache; merge into a copy.
	merged := *conv
	if sdErr != nil {
		if !errors.Is(sdErr, apperrors.ErrNotFound) {
			log.Warn("Failed to load structured data for archiving", zap.Error(sdErr))
		}
	} else if structured != nil {
		merged = conv.WithStructuredData(*structured)
	}

	outcome, err := model.NewCallOutcome(merged, messages, utils.Now())
	if err != nil {
		log.Error("Failed to build call outcome", zap.Error(err))
		status = "failure_build"
		return
	}

	if err := w.repo.Save(ctx, outcome); err != nil {
		log.Error("Failed to save call outcome", zap.Error(err))
		status = "failure_save"
		return
	}

	log.Info("Archived call outcome",
		zap.String("status", string(outcome.Status)),
		zap.Int("message_count", outcome.MessageCount))
}

// Stop gracefully shuts down the worker pool.
func (w *ArchiveWorker) Stop() {
	if w.pool != nil {
		w.baseLogger.Info("Releasing archive worker pool")
		start := time.Now()
		if err := w.pool.ReleaseTimeout(w.releaseTimeout()); err != nil {
			w.baseLogger.Warn("Archive worker pool did not drain in time", zap.Error(err))
		}
		w.baseLogger.Info("Archive worker pool released", zap.Duration("duration", time.Since(start)))
	}
}

func (w *ArchiveWorker) releaseTimeout() time.Duration {
	if w.cfg.MaxBlock > 0 {
		return 5 * w.cfg.MaxBlock
	}
	return 5 * time.Second
}

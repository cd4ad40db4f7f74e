package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gitlab.com/timkado/api/voice-agent-console/internal/apperrors"
	"gitlab.com/timkado/api/voice-agent-console/internal/model"
	"gitlab.com/timkado/api/voice-agent-console/internal/observer"
	"gitlab.com/timkado/api/voice-agent-console/pkg/logger"
	"gitlab.com/timkado/api/voice-agent-console/pkg/utils"
)

// SaveOutcome upserts the archive record of a finished conversation.
// Archiving the same conversation again refreshes the mutable columns.
func (r *PostgresRepo) SaveOutcome(ctx context.Context, outcome model.CallOutcome) error {
	if outcome.ConversationID == "" {
		return fmt.Errorf("%w: outcome without conversation id", apperrors.ErrBadRequest)
	}
	if outcome.ArchivedAt.IsZero() {
		outcome.ArchivedAt = utils.Now()
	}

	operation := func() error {
		result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "conversation_id"}},
			DoUpdates: clause.AssignmentColumns(model.CallOutcomeUpdateColumns()),
		}).Create(&outcome)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "SaveOutcome", operation)
	observer.ObserveDbOperationDuration("upsert", "call_outcome", time.Since(startTime), commitErr)

	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to save call outcome after retries",
			zap.String("conversation_id", outcome.ConversationID),
			zap.Error(commitErr))
		return commitErr
	}
	return nil
}

// FindOutcomeByConversationID returns the archived outcome or apperrors.ErrNotFound.
func (r *PostgresRepo) FindOutcomeByConversationID(ctx context.Context, conversationID string) (*model.CallOutcome, error) {
	var outcome model.CallOutcome
	operation := func() error {
		result := r.db.WithContext(ctx).Where("conversation_id = ?", conversationID).First(&outcome)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return result.Error
			}
			return checkConstraintViolation(result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, readPolicy, "FindOutcomeByConversationID", operation)
	observer.ObserveDbOperationDuration("find", "call_outcome", time.Since(startTime), err)

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: call outcome for conversation %s", apperrors.ErrNotFound, conversationID)
		}
		logger.FromContext(ctx).Error("Failed to find call outcome", zap.String("conversation_id", conversationID), zap.Error(err))
		return nil, err
	}
	return &outcome, nil
}

// CountOutcomesByStatus aggregates the archive per terminal status.
func (r *PostgresRepo) CountOutcomesByStatus(ctx context.Context) ([]model.StatusCount, error) {
	var counts []model.StatusCount
	operation := func() error {
		result := r.db.WithContext(ctx).
			Model(&model.CallOutcome{}).
			Select("status, count(*) AS count").
			Group("status").
			Order("status").
			Scan(&counts)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, readPolicy, "CountOutcomesByStatus", operation)
	observer.ObserveDbOperationDuration("count", "call_outcome", time.Since(startTime), err)

	if err != nil {
		return nil, err
	}
	return counts, nil
}

package storage

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/timkado/api/voice-agent-console/internal/apperrors"
	"gitlab.com/timkado/api/voice-agent-console/internal/model"
)

const upsertOutcomePattern = `INSERT INTO "call_outcomes" .* ON CONFLICT \("conversation_id"\) DO UPDATE SET "status"="excluded"."status"`

func completedOutcome(t *testing.T) model.CallOutcome {
	t.Helper()
	conv := model.NewConversation(&model.Conversation{Status: model.StatusCompleted})
	conv.StructuredData = model.NewStructuredData()
	outcome, err := model.NewCallOutcome(*conv, nil, time.Now().UTC())
	require.NoError(t, err)
	return outcome
}

func TestPostgresRepo_SaveOutcome_Upsert(t *testing.T) {
	repo, mock := newTestRepo(t)
	outcome := completedOutcome(t)

	mock.ExpectExec(upsertOutcomePattern).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.SaveOutcome(context.Background(), outcome))
}

func TestPostgresRepo_SaveOutcome_RetriesTransientFailure(t *testing.T) {
	repo, mock := newTestRepo(t)
	outcome := completedOutcome(t)

	mock.ExpectExec(upsertOutcomePattern).
		WillReturnError(&pgconn.PgError{Code: "08006", Message: "connection failure"})
	mock.ExpectExec(upsertOutcomePattern).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.SaveOutcome(context.Background(), outcome))
}

func TestPostgresRepo_SaveOutcome_PermanentFailure(t *testing.T) {
	repo, mock := newTestRepo(t)
	outcome := completedOutcome(t)

	mock.ExpectExec(upsertOutcomePattern).
		WillReturnError(&pgconn.PgError{Code: "23502", ColumnName: "agent_id"})

	err := repo.SaveOutcome(context.Background(), outcome)
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)
}

func TestPostgresRepo_SaveOutcome_RequiresConversationID(t *testing.T) {
	repo, _ := newTestRepo(t)
	err := repo.SaveOutcome(context.Background(), model.CallOutcome{})
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)
}

func TestPostgresRepo_FindOutcomeByConversationID(t *testing.T) {
	query := regexp.QuoteMeta(`SELECT * FROM "call_outcomes" WHERE conversation_id = $1 ORDER BY "call_outcomes"."conversation_id" LIMIT $2`)

	t.Run("Found", func(t *testing.T) {
		repo, mock := newTestRepo(t)
		now := time.Now().UTC()
		rows := sqlmock.NewRows([]string{"conversation_id", "agent_id", "driver_id", "load_number", "status", "started_at", "completed_at", "message_count", "archived_at"}).
			AddRow("conv-1", "agent-1", "driver-1", "L100", "completed", now.Add(-time.Minute), now, 12, now)
		mock.ExpectQuery(query).WithArgs("conv-1", 1).WillReturnRows(rows)

		outcome, err := repo.FindOutcomeByConversationID(context.Background(), "conv-1")
		require.NoError(t, err)
		assert.Equal(t, "agent-1", outcome.AgentID)
		assert.Equal(t, model.StatusCompleted, outcome.Status)
		assert.Equal(t, 12, outcome.MessageCount)
		require.NotNil(t, outcome.CompletedAt)
	})

	t.Run("Not Found", func(t *testing.T) {
		repo, mock := newTestRepo(t)
		mock.ExpectQuery(query).WithArgs("missing", 1).WillReturnRows(sqlmock.NewRows([]string{"conversation_id"}))

		outcome, err := repo.FindOutcomeByConversationID(context.Background(), "missing")
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		assert.Nil(t, outcome)
	})
}

func TestPostgresRepo_CountOutcomesByStatus(t *testing.T) {
	repo, mock := newTestRepo(t)

	rows := sqlmock.NewRows([]string{"status", "count"}).
		AddRow("completed", 7).
		AddRow("failed", 2)
	mock.ExpectQuery(`SELECT status, count\(\*\) AS count FROM "call_outcomes" GROUP BY .*status`).
		WillReturnRows(rows)

	counts, err := repo.CountOutcomesByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.StatusCount{
		{Status: model.StatusCompleted, Count: 7},
		{Status: model.StatusFailed, Count: 2},
	}, counts)
}

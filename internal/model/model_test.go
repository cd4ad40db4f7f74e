package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationStatus_Transitions(t *testing.T) {
	tests := []struct {
		from, to ConversationStatus
		allowed  bool
	}{
		{StatusPending, StatusPending, true},
		{StatusPending, StatusInProgress, true},
		{StatusPending, StatusCompleted, true},
		{StatusInProgress, StatusFailed, true},
		{StatusInProgress, StatusPending, false},
		{StatusCompleted, StatusFailed, false},
		{StatusFailed, StatusInProgress, false},
		{StatusCompleted, StatusCompleted, true},
		{StatusPending, ConversationStatus("bogus"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestConversationStatus_IsTerminal(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusInProgress.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
	assert.Equal(t, "In Progress", StatusInProgress.Label())
}

func TestConversation_CheckInvariants(t *testing.T) {
	now := time.Now()

	for _, status := range AllStatuses {
		c := NewConversation(&Conversation{Status: status})
		require.NoError(t, c.CheckInvariants(), "factory output for %s must be consistent", status)
		assert.Equal(t, status.IsTerminal(), c.CompletedAt != nil)
	}

	missing := Conversation{ID: "c1", Status: StatusCompleted}
	assert.Error(t, missing.CheckInvariants())

	early := Conversation{ID: "c2", Status: StatusInProgress, CompletedAt: &now}
	assert.Error(t, early.CheckInvariants())

	unknown := Conversation{ID: "c3", Status: "queued"}
	assert.Error(t, unknown.CheckInvariants())
}

func TestConversation_WithStatus(t *testing.T) {
	done := time.Date(2026, 3, 1, 10, 5, 0, 0, time.UTC)
	base := *NewLiveConversation(&Conversation{ID: "conv-1"})

	progressed := base.WithStatus(ConversationStatusResponse{ID: "conv-1", Status: StatusInProgress})
	assert.Equal(t, StatusInProgress, progressed.Status)
	assert.Nil(t, progressed.CompletedAt)
	assert.Equal(t, base.AccessToken(), progressed.AccessToken(), "overlay keeps the rest of the snapshot")

	completed := progressed.WithStatus(ConversationStatusResponse{ID: "conv-1", Status: StatusCompleted, CompletedAt: &done})
	assert.Equal(t, StatusCompleted, completed.Status)
	require.NotNil(t, completed.CompletedAt)
	assert.Equal(t, done, *completed.CompletedAt)
	assert.NoError(t, completed.CheckInvariants())

	backwards := completed.WithStatus(ConversationStatusResponse{ID: "conv-1", Status: StatusPending})
	assert.Equal(t, StatusCompleted, backwards.Status)

	other := base.WithStatus(ConversationStatusResponse{ID: "conv-2", Status: StatusFailed, CompletedAt: &done})
	assert.Equal(t, StatusPending, other.Status)
}

func TestConversation_WithStatus_TerminalWithoutCompletedAt(t *testing.T) {
	done := time.Date(2026, 3, 1, 10, 5, 0, 0, time.UTC)
	base := *NewLiveConversation(&Conversation{ID: "conv-1", Status: StatusInProgress})

	before := time.Now().UTC()
	completed := base.WithStatus(ConversationStatusResponse{ID: "conv-1", Status: StatusCompleted})
	assert.Equal(t, StatusCompleted, completed.Status)
	require.NotNil(t, completed.CompletedAt)
	assert.False(t, completed.CompletedAt.Before(before))
	assert.NoError(t, completed.CheckInvariants())

	known := base.WithStatus(ConversationStatusResponse{ID: "conv-1", Status: StatusFailed, CompletedAt: &done})
	repeated := known.WithStatus(ConversationStatusResponse{ID: "conv-1", Status: StatusFailed})
	require.NotNil(t, repeated.CompletedAt)
	assert.Equal(t, done, *repeated.CompletedAt, "a known completion time is kept")
	assert.NoError(t, repeated.CheckInvariants())
}

func TestConversation_HasLiveSession(t *testing.T) {
	assert.False(t, NewConversation().HasLiveSession())
	assert.True(t, NewLiveConversation().HasLiveSession())

	empty := ""
	assert.False(t, Conversation{RetellAccessToken: &empty}.HasLiveSession())
}

func TestConversation_WithStructuredData(t *testing.T) {
	c := *NewConversation(&Conversation{ID: "conv-1", Status: StatusCompleted})
	url := "https://recordings.example.com/conv-1.wav"
	dur := int64(95000)

	merged := c.WithStructuredData(StructuredDataResponse{
		ConversationID: "conv-1",
		StructuredData: map[string]interface{}{"load_confirmed": true},
		RecordingURL:   &url,
		DurationMs:     &dur,
	})
	assert.Equal(t, true, merged.StructuredData["load_confirmed"])
	assert.Equal(t, &url, merged.RecordingURL)
	assert.Equal(t, int64(95000), *merged.DurationMs)
}

func TestStartTestCallRequest_Mode(t *testing.T) {
	assert.Equal(t, DriverModeExisting, StartTestCallRequest{DriverID: "D1"}.Mode())
	assert.Equal(t, DriverModeNew, StartTestCallRequest{DriverName: "Sam", DriverPhone: "+15550100"}.Mode())
}

func TestSortMessages(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	msgs := []Message{
		NewMessage("c", RoleHuman, t0.Add(2*time.Second)),
		NewMessage("c", RoleAgent, t0),
		NewMessage("c", RoleAgent, t0.Add(time.Second)),
	}
	SortMessages(msgs)
	assert.Equal(t, RoleAgent, msgs[0].Role)
	assert.True(t, msgs[1].CreatedAt.Before(msgs[2].CreatedAt))
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "Load Confirmed", FormatKey("load_confirmed"))
	assert.Equal(t, "Eta", FormatKey("eta"))

	assert.Equal(t, "N/A", FormatValue(nil))
	assert.Equal(t, "Yes", FormatValue(true))
	assert.Equal(t, "No", FormatValue(false))
	assert.Equal(t, "42", FormatValue(float64(42)))
	assert.Equal(t, "4.5", FormatValue(4.5))
	assert.Equal(t, "Dallas", FormatValue("Dallas"))
	assert.Equal(t, "{\n  \"end\": \"12:00\"\n}", FormatValue(map[string]interface{}{"end": "12:00"}))

	assert.Equal(t, "0:00", FormatDuration(0))
	assert.Equal(t, "1:05", FormatDuration(65_400))
	assert.Equal(t, "12:00", FormatDuration(720_000))
}

func TestStructuredFields_StableOrder(t *testing.T) {
	fields := StructuredFields(map[string]interface{}{
		"zeta":          "z",
		"alpha":         true,
		"delivery_eta":  float64(30),
		"missing_value": nil,
	})
	require.Len(t, fields, 4)
	assert.Equal(t, "alpha", fields[0].Key)
	require.NotNil(t, fields[0].Bool)
	assert.True(t, *fields[0].Bool)
	assert.Equal(t, "Delivery Eta", fields[1].Label)
	assert.Equal(t, "N/A", fields[2].Value)
	assert.Nil(t, fields[3].Bool)
}

func TestNewCallOutcome(t *testing.T) {
	c := *NewConversation(&Conversation{Status: StatusCompleted, StructuredData: map[string]interface{}{"eta_minutes": float64(20)}})
	msgs := []Message{NewMessage(c.ID, RoleAgent, c.StartedAt), NewMessage(c.ID, RoleHuman, c.StartedAt)}

	archivedAt := time.Now().UTC()
	outcome, err := NewCallOutcome(c, msgs, archivedAt)
	require.NoError(t, err)
	assert.Equal(t, c.ID, outcome.ConversationID)
	assert.Equal(t, 2, outcome.MessageCount)
	assert.JSONEq(t, `{"eta_minutes":20}`, string(outcome.StructuredData))
	assert.Equal(t, "call_outcomes", outcome.TableName())
}

func TestAgentListItem_LastUsedLabel(t *testing.T) {
	item := NewAgentListItem(0)
	assert.Equal(t, "Never", item.LastUsedLabel())

	used := time.Date(2026, 2, 3, 4, 5, 0, 0, time.UTC)
	item.LastUsedAt = &used
	assert.Equal(t, "2026-02-03 04:05", item.LastUsedLabel())
}

package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"gitlab.com/timkado/api/voice-agent-console/internal/reqctx"
)

func TestInitialize_FallsBackToInfo(t *testing.T) {
	original := Log
	defer func() { Log = original }()

	require.NoError(t, Initialize("not-a-level"))
	assert.True(t, Log.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, Log.Core().Enabled(zapcore.DebugLevel))
}

func TestInitializeWithOptions_Console(t *testing.T) {
	original := Log
	defer func() { Log = original }()

	require.NoError(t, InitializeWithOptions("debug", Options{Encoding: "console", OutputPaths: []string{"stderr"}}))
	assert.True(t, Log.Core().Enabled(zapcore.DebugLevel))
}

func TestFromContext_AddsScopedFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ctx := WithLogger(context.Background(), zap.New(core))
	ctx = reqctx.WithRequestID(ctx, "req-42")
	ctx = reqctx.WithConversationID(ctx, "conv-7")

	FromContext(ctx).Info("hello")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-42", fields["request_id"])
	assert.Equal(t, "conv-7", fields["conversation_id"])
}

func TestFromContextOr(t *testing.T) {
	fallback := zap.NewNop().Named("fallback")
	assert.Same(t, fallback, FromContextOr(context.Background(), fallback))

	scoped := zap.NewNop().Named("scoped")
	ctx := WithLogger(context.Background(), scoped)
	assert.Same(t, scoped, FromContextOr(ctx, fallback))

	assert.Same(t, Log, FromContextOr(context.Background(), nil))
}

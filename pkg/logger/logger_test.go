package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_Levels(t *testing.T) {
	assert.True(t, New("debug", "json").Core().Enabled(zapcore.DebugLevel))
	assert.False(t, New("warn", "console").Core().Enabled(zapcore.InfoLevel))
	assert.True(t, New("bogus", "json").Core().Enabled(zapcore.InfoLevel))
	assert.False(t, New("bogus", "json").Core().Enabled(zapcore.DebugLevel))
}

func TestContextLogger_For(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	cl := NewContextLogger(zap.New(core).Sugar())

	ctx := WithConnectionID(context.Background(), "conn-1")
	ctx = WithUserID(ctx, "user-1")
	cl.For(ctx).Info("hello")
	cl.For(context.Background()).Info("bare")

	entries := logs.All()
	assert.Len(t, entries, 2)
	assert.Equal(t, "conn-1", entries[0].ContextMap()["connection_id"])
	assert.Equal(t, "user-1", entries[0].ContextMap()["user_id"])
	assert.NotContains(t, entries[0].ContextMap(), "request_id")
	assert.Empty(t, entries[1].ContextMap())
	assert.Equal(t, "conn-1", ConnectionIDFrom(ctx))
}

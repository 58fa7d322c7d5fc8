package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestGet_FallsBackToGlobalLogger(t *testing.T) {
	global := zap.NewExample()
	restore := zap.ReplaceGlobals(global)
	defer restore()

	tests := []struct {
		name string
		ctx  context.Context
	}{
		{name: "nil context", ctx: nil},
		{name: "empty context", ctx: context.Background()},
		{name: "nil logger in context", ctx: context.WithValue(context.Background(), loggerCtxKey, (*zap.Logger)(nil))},
		{name: "wrong type in context", ctx: context.WithValue(context.Background(), loggerCtxKey, "not a logger")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Same(t, global, Get(tt.ctx))
		})
	}
}

func TestWith_StoresLogger(t *testing.T) {
	// Given: a logger attached to a context
	log := zap.NewNop().Named("publisher")
	ctx := With(context.Background(), log)

	// Then: Get returns it and the parent is unchanged
	assert.Same(t, log, Get(ctx))
	assert.Nil(t, context.Background().Value(loggerCtxKey))
}

func TestWith_NilContext(t *testing.T) {
	log := zap.NewNop()

	ctx := With(nil, log) //nolint:staticcheck // nil context is part of the contract

	assert.NotNil(t, ctx)
	assert.Same(t, log, Get(ctx))
}

func TestWith_ReplacesLogger(t *testing.T) {
	first := zap.NewNop().Named("first")
	second := zap.NewNop().Named("second")

	parent := With(context.Background(), first)
	child := With(parent, second)

	assert.Same(t, first, Get(parent))
	assert.Same(t, second, Get(child))
}

func TestFromContext(t *testing.T) {
	log := zap.NewNop().Named("attached")

	got, ok := FromContext(With(context.Background(), log))
	assert.True(t, ok)
	assert.Same(t, log, got)

	_, ok = FromContext(context.Background())
	assert.False(t, ok)

	_, ok = FromContext(nil) //nolint:staticcheck // nil context is part of the contract
	assert.False(t, ok)

	_, ok = FromContext(context.WithValue(context.Background(), loggerCtxKey, (*zap.Logger)(nil)))
	assert.False(t, ok)
}

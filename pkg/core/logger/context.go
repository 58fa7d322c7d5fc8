package logger

import (
	"context"

	"go.uber.org/zap"
)

type contextKey struct{}

var loggerCtxKey = contextKey{}

// Get returns the logger stored in ctx, or the global zap logger.
// A nil ctx is allowed.
func Get(ctx context.Context) *zap.Logger {
	if ctxLogger, ok := FromContext(ctx); ok {
		return ctxLogger
	}
	return zap.L()
}

// FromContext returns the logger attached with With, if any.
func FromContext(ctx context.Context) (*zap.Logger, bool) {
	if ctx == nil {
		return nil, false
	}
	ctxLogger, ok := ctx.Value(loggerCtxKey).(*zap.Logger)
	return ctxLogger, ok && ctxLogger != nil
}

// With returns a copy of ctx carrying logger.
func With(ctx context.Context, logger *zap.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, loggerCtxKey, logger)
}

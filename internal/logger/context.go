package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey struct{}

var nop = zap.NewNop()

// ContextWithLogger returns a child context carrying the logger.
func ContextWithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext extracts the request logger from the context. Callers get a
// nop logger when none was attached, so it is always safe to use.
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok {
		return l
	}
	return nop
}

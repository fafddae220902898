// Package logging provides structured logging for the Newton minimization service.
package logging

import (
	"context"

	"go.uber.org/zap"
)

type ctxLoggerKey struct{}

// WithContext returns a new context carrying logger.
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxLoggerKey{}, logger)
}

// FromContext returns the logger stored in ctx, or the global zap logger if
// none exists.
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(ctxLoggerKey{}).(*zap.Logger); ok && logger != nil {
		return logger
	}
	return zap.L()
}

package retry

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// EventHandler handles retry events
type EventHandler interface {
	OnRetry(ctx context.Context, name string, attempt int, err error, delay time.Duration)
	OnSuccess(ctx context.Context, name string, attempt int, duration time.Duration)
	OnGiveUp(ctx context.Context, name string, attempt int, err *Error)
}

// LogEventHandler logs retry events through zap
type LogEventHandler struct {
	logger *zap.Logger
}

// NewLogEventHandler creates a zap-backed event handler
func NewLogEventHandler(logger *zap.Logger) *LogEventHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogEventHandler{logger: logger}
}

// OnRetry handles retry events
func (h *LogEventHandler) OnRetry(ctx context.Context, name string, attempt int, err error, delay time.Duration) {
	h.logger.Debug("attempt failed, retrying",
		zap.String("node", name),
		zap.Int("attempt", attempt),
		zap.Duration("wait", delay),
		zap.Error(err),
	)
}

// OnSuccess handles success events
func (h *LogEventHandler) OnSuccess(ctx context.Context, name string, attempt int, duration time.Duration) {
	if attempt > 1 {
		h.logger.Info("attempt succeeded after retry",
			zap.String("node", name),
			zap.Int("attempt", attempt),
			zap.Duration("duration", duration),
		)
	}
}

// OnGiveUp handles final failure events
func (h *LogEventHandler) OnGiveUp(ctx context.Context, name string, attempt int, err *Error) {
	h.logger.Warn("node giving up",
		zap.String("node", name),
		zap.Int("attempts", attempt),
		zap.Int("max_attempts", err.MaxAttempts),
		zap.Stringer("class", err.Class),
		zap.Error(err.Err),
	)
}

// Package usage reports billable work to the billing collaborator.
package usage

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/JakeFAU/prospect-auditor/internal/prospect"
)

// Logger writes usage events to a zap logger. It is the default when no
// usage table is configured.
type Logger struct {
	logger *zap.Logger
}

var _ prospect.UsageLogger = (*Logger)(nil)

// NewLogger builds a Logger. A nil logger discards events.
func NewLogger(logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{logger: logger.Named("usage")}
}

// LogUsage emits one structured line per event.
func (l *Logger) LogUsage(_ context.Context, event prospect.UsageEvent) error {
	l.logger.Info("usage recorded",
		zap.String("user_id", event.UserID),
		zap.String("operation_type", event.OperationType),
		zap.Float64("cost_usd", event.CostUSD),
		zap.Int("tokens_used", event.TokensUsed),
		zap.Any("metadata", event.Metadata),
	)
	return nil
}

// Fanout forwards every event to each sink and joins their errors.
type Fanout []prospect.UsageLogger

var _ prospect.UsageLogger = Fanout(nil)

// LogUsage calls every sink even when an earlier one fails.
func (f Fanout) LogUsage(ctx context.Context, event prospect.UsageEvent) error {
	var errs []error
	for _, sink := range f {
		if sink == nil {
			continue
		}
		if err := sink.LogUsage(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

package usage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/prospect-auditor/internal/prospect"
	"github.com/JakeFAU/prospect-auditor/internal/storage/memory"
)

type failingSink struct{ err error }

func (f failingSink) LogUsage(context.Context, prospect.UsageEvent) error { return f.err }

func TestLoggerWritesStructuredFields(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	l := NewLogger(zap.New(core))

	err := l.LogUsage(context.Background(), prospect.UsageEvent{
		UserID:        "u1",
		OperationType: prospect.OperationDiscovery,
		CostUSD:       0.75,
		Metadata:      map[string]any{"leads": 15},
	})
	require.NoError(t, err)

	entries := logs.FilterMessage("usage recorded").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, "u1", fields["user_id"])
	require.Equal(t, prospect.OperationDiscovery, fields["operation_type"])
	require.InDelta(t, 0.75, fields["cost_usd"], 1e-9)
	require.Equal(t, "usage", entries[0].LoggerName)
}

func TestNewLoggerNil(t *testing.T) {
	t.Parallel()

	require.NoError(t, NewLogger(nil).LogUsage(context.Background(), prospect.UsageEvent{}))
}

func TestFanoutCallsEverySink(t *testing.T) {
	t.Parallel()

	store := memory.NewAuditStore()
	boom := errors.New("billing down")
	fan := Fanout{failingSink{err: boom}, nil, store}

	err := fan.LogUsage(context.Background(), prospect.UsageEvent{UserID: "u1", OperationType: prospect.OperationAudit})
	require.ErrorIs(t, err, boom)
	require.Len(t, store.Usage(), 1)
}

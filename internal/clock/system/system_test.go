package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClockNowUTC(t *testing.T) {
	t.Parallel()

	clk := New()
	before := time.Now().UTC().Add(-time.Second)
	got := clk.Now()
	after := time.Now().UTC().Add(time.Second)

	require.Equal(t, time.UTC, got.Location())
	require.True(t, got.After(before) && got.Before(after))
	require.False(t, clk.Now().Before(got))
}

func TestFixed(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	clk := Fixed{At: at}
	require.Equal(t, at, clk.Now())
	require.Equal(t, at, clk.Now())
}

package app_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/prospect-auditor/internal/app"
	"github.com/JakeFAU/prospect-auditor/internal/config"
)

func baseConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func TestNewWithInMemoryBackends(t *testing.T) {
	t.Parallel()

	a, err := app.New(context.Background(), baseConfig(t), zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Store)
	require.NotNil(t, a.Auditor)
	require.NotNil(t, a.Discoverer)
	require.NotNil(t, a.Reports)
	require.NoError(t, a.Ready(context.Background()))
}

func TestNewWithLocalStorageAndRedis(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	cfg := baseConfig(t)
	cfg.Storage.Backend = config.StorageLocal
	cfg.Storage.LocalDir = t.TempDir()
	cfg.Redis.Addr = mr.Addr()

	a, err := app.New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, a.Ready(context.Background()))

	mr.Close()
	require.Error(t, a.Ready(context.Background()))

	a.Close()
	a.Close()
}

func TestNewFailsWhenRedisUnreachable(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := baseConfig(t)
	cfg.Redis.Addr = addr
	_, err := app.New(context.Background(), cfg, zap.NewNop())
	require.ErrorContains(t, err, "init redis")
}

func TestNewRejectsUnknownStorageBackend(t *testing.T) {
	t.Parallel()

	cfg := baseConfig(t)
	cfg.Storage.Backend = "s3"
	_, err := app.New(context.Background(), cfg, nil)
	require.ErrorContains(t, err, "unknown storage backend")
}

func TestNewFailsOnMissingAxeScript(t *testing.T) {
	t.Parallel()

	cfg := baseConfig(t)
	cfg.Accessibility.Enabled = true
	cfg.Accessibility.ScriptPath = "/nonexistent/axe.min.js"
	_, err := app.New(context.Background(), cfg, zap.NewNop())
	require.ErrorContains(t, err, "read axe script")
}

func TestCloseOnNilApp(t *testing.T) {
	t.Parallel()

	var a *app.App
	a.Close()
}

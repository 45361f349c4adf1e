// Package cmd defines and implements the CLI commands for the auditor executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/prospect-auditor/internal/api"
	"github.com/JakeFAU/prospect-auditor/internal/app"
	"github.com/JakeFAU/prospect-auditor/internal/config"
	"github.com/JakeFAU/prospect-auditor/internal/logging"
	"github.com/JakeFAU/prospect-auditor/internal/prospect"
)

// runtimeKey is the key for storing the runtime in the command context.
type runtimeKey struct{}

// runtime is what every subcommand works against.
type runtime struct {
	cfg        config.Config
	logger     *zap.Logger
	auditor    api.Auditor
	discoverer api.Discoverer
	store      prospect.AuditStore
	reports    api.ReportGenerator
	ready      func(ctx context.Context) error
	close      func()
}

// newRuntime is the service factory. It's a variable so tests can inject fakes.
var newRuntime = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (*runtime, error) {
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &runtime{
		cfg:        cfg,
		logger:     logger,
		auditor:    a.Auditor,
		discoverer: a.Discoverer,
		store:      a.Store,
		reports:    a.Reports,
		ready:      a.Ready,
		close:      a.Close,
	}, nil
}

func newRootCmd() *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "auditor",
		Short: "Website audits and lead discovery for local businesses.",
		Long: `auditor scores small-business websites for SEO, content quality and
accessibility, renders branded PDF reports, and discovers under-served
businesses in a trade and location worth pitching.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.NewLevel(cfg.Logging.Development, cfg.Logging.Level)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			zap.ReplaceGlobals(logger)

			rt, err := newRuntime(cmd.Context(), cfg, logger)
			if err != nil {
				_ = logger.Sync()
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), runtimeKey{}, rt))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			rt, ok := cmd.Context().Value(runtimeKey{}).(*runtime)
			if !ok || rt == nil {
				return
			}
			if rt.close != nil {
				rt.close()
			}
			_ = rt.logger.Sync()
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML/JSON/TOML); AUDITOR_* env vars override it")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newAuditCmd())
	cmd.AddCommand(newDiscoverCmd())
	return cmd
}

func resolveRuntime(ctx context.Context) (*runtime, error) {
	rt, ok := ctx.Value(runtimeKey{}).(*runtime)
	if !ok || rt == nil {
		return nil, errors.New("application services not initialized")
	}
	return rt, nil
}

// Execute is the main entry point. SIGINT and SIGTERM cancel the command context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "auditor: %v\n", err)
		stop()
		os.Exit(1)
	}
}

package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/prospect-auditor/internal/audit"
)

type auditOptions struct {
	userID     string
	noCache    bool
	maxAge     time.Duration
	reportPath string
}

func newAuditCmd() *cobra.Command {
	opts := &auditOptions{}
	cmd := &cobra.Command{
		Use:   "audit <url>",
		Short: "Audits one website",
		Long: `Runs the full audit pipeline against a single site and prints the
result as JSON. A recent audit of the same domain is reused unless --no-cache
is given. --report also writes the PDF report to a local file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAudit(cmd, args[0], opts)
		},
	}
	cmd.Flags().StringVar(&opts.userID, "user", "cli", "user the audit is recorded for")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "always run a fresh audit")
	cmd.Flags().DurationVar(&opts.maxAge, "max-age", 0, "reuse audits newer than this (default audit.cache_max_age_hours)")
	cmd.Flags().StringVar(&opts.reportPath, "report", "", "write the PDF report to this path")
	return cmd
}

func runAudit(cmd *cobra.Command, url string, opts *auditOptions) error {
	rt, err := resolveRuntime(cmd.Context())
	if err != nil {
		return err
	}
	maxAge := opts.maxAge
	if maxAge <= 0 {
		maxAge = rt.cfg.CacheMaxAge()
	}

	result, err := rt.auditor.Run(cmd.Context(), audit.Request{
		UserID:   opts.userID,
		URL:      url,
		UseCache: !opts.noCache,
		MaxAge:   maxAge,
	})
	if err != nil {
		return fmt.Errorf("audit %s: %w", url, err)
	}
	rt.logger.Info("audit finished",
		zap.String("audit_id", result.Record.ID),
		zap.Bool("cached", result.IsExisting),
	)

	if opts.reportPath != "" {
		_, pdf, err := rt.reports.Generate(result.Record)
		if err != nil {
			return fmt.Errorf("generate report: %w", err)
		}
		if err := os.WriteFile(opts.reportPath, pdf, 0o600); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return nil
}

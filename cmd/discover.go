package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/prospect-auditor/internal/discovery"
)

type discoverOptions struct {
	userID   string
	industry string
	city     string
	state    string
	target   int
}

func newDiscoverCmd() *cobra.Command {
	opts := &discoverOptions{}
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Finds leads for a trade in a city",
		Long: `Searches for businesses of one trade in one location, scores every
candidate site and prints the best leads as JSON, high-opportunity leads first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDiscover(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.userID, "user", "cli", "user the discovery is billed to")
	cmd.Flags().StringVar(&opts.industry, "industry", "", "trade to search for, e.g. dentist")
	cmd.Flags().StringVar(&opts.city, "city", "", "city to search in")
	cmd.Flags().StringVar(&opts.state, "state", "", "optional state or region")
	cmd.Flags().IntVar(&opts.target, "target", 0, "number of leads wanted (default discovery.default_target)")
	return cmd
}

func runDiscover(cmd *cobra.Command, opts *discoverOptions) error {
	if strings.TrimSpace(opts.industry) == "" || strings.TrimSpace(opts.city) == "" {
		return errors.New("--industry and --city are required")
	}
	rt, err := resolveRuntime(cmd.Context())
	if err != nil {
		return err
	}
	target := opts.target
	if target <= 0 {
		target = rt.cfg.Discovery.DefaultTarget
	}

	leads, err := rt.discoverer.Discover(cmd.Context(), discovery.Request{
		UserID:   opts.userID,
		Industry: strings.TrimSpace(opts.industry),
		City:     strings.TrimSpace(opts.city),
		State:    strings.TrimSpace(opts.state),
		Target:   target,
	})
	if err != nil {
		return fmt.Errorf("discover: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(leads); err != nil {
		return fmt.Errorf("encode leads: %w", err)
	}
	return nil
}

package cmd

import (
	"context"
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	amerrors "github.com/Aman-CERP/amanrag/internal/errors"
	"github.com/Aman-CERP/amanrag/internal/output"
	"github.com/Aman-CERP/amanrag/internal/telemetry"
)

func newStatsCmd() *cobra.Command {
	var (
		days       int
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show persisted retrieval statistics",
		Long: `Show routes, failure reasons, categories, source states, latency,
frequent query terms and recent fallbacks accumulated in metrics.store.`,
		Example: `  amanrag stats
  amanrag stats --days 30 --limit 20 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStats(cmd.Context(), cmd, days, limit, jsonOutput)
		},
	}
	cmd.Flags().IntVar(&days, "days", 7, "Number of days to include, counting today")
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum top terms and recent fallbacks to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func runStats(ctx context.Context, cmd *cobra.Command, days, limit int, jsonOutput bool) error {
	if days < 1 {
		return amerrors.ValidationError("--days must be at least 1", nil)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	path := cfg.MetricsStorePath()
	if path == "" {
		return amerrors.ConfigError("metrics.store is not set", nil).
			WithSuggestion("Set metrics.store in your config, e.g. ~/.amanrag/telemetry.db")
	}

	st, err := telemetry.OpenMetricsStore(path)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	now := time.Now()
	from := now.AddDate(0, 0, -(days - 1)).Format(time.DateOnly)
	snap, err := st.Load(ctx, from, now.Format(time.DateOnly), limit)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}

	out := output.New(cmd.OutOrStdout())
	if snap.TotalRequests == 0 {
		out.Dim("No retrievals recorded since " + from)
		return nil
	}
	out.Telemetry(snap)
	return nil
}

package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	amerrors "github.com/Aman-CERP/amanrag/internal/errors"
	"github.com/Aman-CERP/amanrag/internal/output"
	"github.com/Aman-CERP/amanrag/internal/preflight"
)

func newDoctorCmd() *cobra.Command {
	var (
		jsonOutput bool
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that the corpus, embedder and configuration are ready",
		Long: `Run preflight checks: configuration, corpus presence and size, the
import lock, embedder availability and dimensions, free disk space and the
telemetry store. Exits non-zero when a required check fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			results := preflight.New(cfg).RunAll(cmd.Context())

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(struct {
					Status string                  `json:"status"`
					Checks []preflight.CheckResult `json:"checks"`
				}{preflight.SummaryStatus(results), results}); err != nil {
					return err
				}
			} else {
				preflight.PrintResults(output.New(cmd.OutOrStdout()), results, verbose)
			}

			if preflight.HasCriticalFailures(results) {
				return amerrors.New(amerrors.ErrCodeInternal, "preflight checks failed", nil).
					WithSuggestion("Fix the FAIL items above and run 'amanrag doctor' again")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show details for each check")
	return cmd
}

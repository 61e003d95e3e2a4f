package cmd

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	amerrors "github.com/Aman-CERP/amanrag/internal/errors"
	"github.com/Aman-CERP/amanrag/internal/output"
	"github.com/Aman-CERP/amanrag/internal/store"
)

func newCorpusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "corpus",
		Short: "Inspect the chunk corpus",
	}
	cmd.AddCommand(newCorpusStatsCmd())
	return cmd
}

func newCorpusStatsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show chunk counts per source and content type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCorpusStats(cmd.Context(), cmd, jsonOutput)
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func runCorpusStats(ctx context.Context, cmd *cobra.Command, jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	path := cfg.CorpusPath()
	if _, err := os.Stat(path); err != nil {
		return amerrors.New(amerrors.ErrCodeCorpusNotFound, "corpus not found: "+path, err).
			WithSuggestion("Run 'amanrag import <chunks.jsonl>' first")
	}

	cs, err := store.OpenChunkStore(path)
	if err != nil {
		return amerrors.CorpusError("failed to open corpus "+path, err)
	}
	defer func() { _ = cs.Close() }()

	stats, err := cs.Stats(ctx)
	if err != nil {
		return amerrors.New(amerrors.ErrCodeCorpusCorrupt, "failed to read corpus", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Path string `json:"path"`
			*store.CorpusStats
		}{path, stats})
	}
	output.New(cmd.OutOrStdout()).CorpusStats(path, stats)
	return nil
}

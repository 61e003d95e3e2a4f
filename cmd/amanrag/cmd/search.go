package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	amerrors "github.com/Aman-CERP/amanrag/internal/errors"
	"github.com/Aman-CERP/amanrag/internal/output"
	"github.com/Aman-CERP/amanrag/internal/search"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	format       string  // "text", "json"
	explain      bool    // per-source scores and source reports
	threshold    float64 // overrides retrieval.confidence_threshold
	thresholdSet bool
	queriesFile  string // one query per line, "-" for stdin
	metricsFile  string // Prometheus textfile written after the run
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Retrieve passages for a query",
		Long: `Retrieve the passages that best answer a query.

The query is categorized and expanded, scored by the lexical, vector and
fuzzy sources in parallel, fused with category-aware reranking and gated
by confidence. GENERATE prints the passages; FALLBACK prints clarifying
suggestions instead.`,
		Example: `  amanrag search "Android SDK entegrasyonu"
  amanrag search "API auth token" --explain
  amanrag search "kurulum" --format json --threshold 0.5
  amanrag search --queries-file eval.txt --metrics-file retrieval.prom`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.thresholdSet = cmd.Flags().Changed("threshold")
			queries, err := collectQueries(cmd.InOrStdin(), args, opts.queriesFile)
			if err != nil {
				return err
			}
			return runSearch(cmd.Context(), cmd, queries, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVar(&opts.explain, "explain", false, "Show per-source scores, score breakdown and source states")
	cmd.Flags().Float64Var(&opts.threshold, "threshold", 0, "Override the confidence threshold [0,1]")
	cmd.Flags().StringVar(&opts.queriesFile, "queries-file", "", "Read one query per line from a file ('-' for stdin)")
	cmd.Flags().StringVar(&opts.metricsFile, "metrics-file", "", "Write Prometheus metrics for this run to a textfile")

	return cmd
}

// collectQueries returns the joined args as one query, or every non-blank
// line of the queries file.
func collectQueries(stdin io.Reader, args []string, file string) ([]string, error) {
	if file == "" {
		if len(args) == 0 {
			return nil, amerrors.ValidationError("no query given", nil).
				WithSuggestion(`Run 'amanrag search "your question"' or pass --queries-file`)
		}
		return []string{strings.Join(args, " ")}, nil
	}
	if len(args) > 0 {
		return nil, amerrors.ValidationError("pass either a query or --queries-file, not both", nil)
	}

	r := stdin
	if file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("failed to open queries file: %w", err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	var queries []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if q := strings.TrimSpace(sc.Text()); q != "" {
			queries = append(queries, q)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read queries: %w", err)
	}
	return queries, nil
}

// searchResponse is the JSON envelope for one query.
type searchResponse struct {
	Result  *search.RetrievalResult `json:"result"`
	Handoff *search.Handoff         `json:"handoff"`
	Error   json.RawMessage         `json:"error,omitempty"`
}

func runSearch(ctx context.Context, cmd *cobra.Command, queries []string, opts searchOptions) error {
	if opts.format != "text" && opts.format != "json" {
		return amerrors.ValidationError(fmt.Sprintf("unknown format %q", opts.format), nil).
			WithSuggestion("Use --format text or --format json")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sc, err := cfg.SearchConfig()
	if err != nil {
		return err
	}
	if opts.thresholdSet {
		sc.ConfidenceThreshold = opts.threshold
		if err := sc.Validate(); err != nil {
			return err
		}
	}

	eng, err := openEngine(ctx, cfg, sc)
	if err != nil {
		return err
	}
	defer eng.Close()

	slog.Info("search_started",
		slog.Int("queries", len(queries)),
		slog.Int("chunks", eng.searcher.Len()),
		slog.Bool("vector", eng.searcher.VectorEnabled()))

	out := output.New(cmd.OutOrStdout())
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")

	for i, q := range queries {
		if err := ctx.Err(); err != nil {
			return err
		}
		res := eng.searcher.Retrieve(ctx, q)

		if opts.format == "json" {
			resp := searchResponse{Result: res, Handoff: search.NewHandoff(res)}
			if rerr := res.Err(); rerr != nil {
				resp.Error, _ = amerrors.FormatJSON(rerr)
			}
			if err := enc.Encode(resp); err != nil {
				return err
			}
			continue
		}

		if i > 0 {
			out.Newline()
		}
		if len(queries) > 1 {
			out.Dim("> " + q)
		}
		out.Retrieval(res, opts.explain)
	}

	eng.persistTelemetry(ctx)
	if opts.metricsFile != "" {
		if err := prometheus.WriteToTextfile(opts.metricsFile, eng.registry); err != nil {
			return fmt.Errorf("failed to write metrics file: %w", err)
		}
	}
	return nil
}

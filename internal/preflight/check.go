package preflight

import (
	"context"
	"fmt"
	"strings"

	"github.com/Aman-CERP/amanrag/internal/config"
	"github.com/Aman-CERP/amanrag/internal/embed"
	"github.com/Aman-CERP/amanrag/internal/output"
)

// CheckStatus represents the result of a preflight check.
type CheckStatus int

const (
	// StatusPass indicates the check passed successfully.
	StatusPass CheckStatus = iota
	// StatusWarn indicates a non-critical warning.
	StatusWarn
	// StatusFail indicates the check failed.
	StatusFail
)

// String returns the string representation of a CheckStatus.
func (s CheckStatus) String() string {
	switch s {
	case StatusPass:
		return "PASS"
	case StatusWarn:
		return "WARN"
	case StatusFail:
		return "FAIL"
	default:
		return "UNKNOWN"
	}
}

// MarshalText encodes the status by name in JSON output.
func (s CheckStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CheckResult holds the result of a single preflight check.
type CheckResult struct {
	Name     string      `json:"name"`
	Status   CheckStatus `json:"status"`
	Message  string      `json:"message"`
	Details  string      `json:"details,omitempty"`
	Required bool        `json:"required"`
}

// IsCritical returns true if this is a required check that failed.
func (r CheckResult) IsCritical() bool {
	return r.Required && r.Status == StatusFail
}

// EmbedderFactory builds the embedder under test.
type EmbedderFactory func(ctx context.Context) (embed.Embedder, error)

// Checker performs preflight validation checks against one configuration.
type Checker struct {
	cfg          *config.Config
	newEmbedder  EmbedderFactory
	minDiskSpace uint64
}

// Option configures a Checker.
type Option func(*Checker)

// WithEmbedderFactory replaces building the embedder from configuration.
func WithEmbedderFactory(f EmbedderFactory) Option {
	return func(c *Checker) {
		c.newEmbedder = f
	}
}

// WithMinDiskSpace sets the free-space threshold for the corpus directory.
func WithMinDiskSpace(bytes uint64) Option {
	return func(c *Checker) {
		c.minDiskSpace = bytes
	}
}

// New creates a Checker for cfg.
func New(cfg *config.Config, opts ...Option) *Checker {
	c := &Checker{
		cfg:          cfg,
		minDiskSpace: MinDiskSpaceBytes,
	}
	c.newEmbedder = func(ctx context.Context) (embed.Embedder, error) {
		ec, err := c.cfg.EmbedderConfig()
		if err != nil {
			return nil, err
		}
		ec.CacheSize = -1
		return embed.NewEmbedder(ctx, ec)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunAll runs every check in a fixed order.
func (c *Checker) RunAll(ctx context.Context) []CheckResult {
	corpus, dims := c.CheckCorpus(ctx)
	return []CheckResult{
		c.CheckConfig(),
		corpus,
		c.CheckCorpusLock(),
		c.CheckEmbedder(ctx, dims),
		c.CheckDiskSpace(c.cfg.CorpusPath()),
		c.CheckMetricsStore(),
	}
}

// CheckConfig verifies that the file configuration converts into the
// runtime search and embedder configuration.
func (c *Checker) CheckConfig() CheckResult {
	result := CheckResult{Name: "config", Required: true}

	sc, err := c.cfg.SearchConfig()
	if err == nil {
		_, err = c.cfg.EmbedderConfig()
	}
	if err != nil {
		result.Status = StatusFail
		result.Message = err.Error()
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%d categories, threshold %.2f, %s redistribution",
		len(sc.Categories), sc.ConfidenceThreshold, sc.Redistribution)
	return result
}

// HasCriticalFailures returns true if any required check failed.
func HasCriticalFailures(results []CheckResult) bool {
	for _, r := range results {
		if r.IsCritical() {
			return true
		}
	}
	return false
}

// SummaryStatus returns a summary status string for the results.
func SummaryStatus(results []CheckResult) string {
	hasWarnings := false
	hasCriticalFailure := false

	for _, r := range results {
		if r.IsCritical() {
			hasCriticalFailure = true
		}
		if r.Status == StatusWarn || (r.Status == StatusFail && !r.Required) {
			hasWarnings = true
		}
	}

	if hasCriticalFailure {
		return "failed"
	}
	if hasWarnings {
		return "ready_with_warnings"
	}
	return "ready"
}

// PrintResults renders check results for the terminal.
func PrintResults(w *output.Writer, results []CheckResult, verbose bool) {
	w.Header("amanrag system check")
	w.Newline()

	for _, r := range results {
		msg := fmt.Sprintf("%s: %s", r.Name, r.Message)
		switch {
		case r.Status == StatusPass:
			w.Success(msg)
		case r.IsCritical():
			w.Error(msg)
		default:
			w.Warning(msg)
		}
		if verbose && r.Details != "" {
			w.Dim("    " + r.Details)
		}
	}

	w.Newline()
	w.KeyValue("Status", strings.ToUpper(SummaryStatus(results)))
}

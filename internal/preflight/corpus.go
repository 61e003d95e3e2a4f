package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Aman-CERP/amanrag/internal/store"
	"github.com/Aman-CERP/amanrag/internal/telemetry"
)

// CheckCorpus loads the corpus the way search does and returns the result
// together with its embedding dimensions.
func (c *Checker) CheckCorpus(ctx context.Context) (CheckResult, int) {
	result := CheckResult{Name: "corpus", Required: true}
	path := c.cfg.CorpusPath()

	corpus, err := store.LoadCorpus(ctx, path)
	if err != nil {
		result.Status = StatusFail
		if errors.Is(err, os.ErrNotExist) {
			result.Message = "not found: " + path
			result.Details = "Run 'amanrag import <chunks.jsonl>' to create it"
		} else {
			result.Message = fmt.Sprintf("cannot load %s: %v", path, err)
		}
		return result, 0
	}

	if corpus.Len() == 0 {
		result.Status = StatusFail
		result.Message = "corpus is empty: " + path
		return result, 0
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%d chunks", corpus.Len())
	if dims := corpus.Dimensions(); dims > 0 {
		result.Message += fmt.Sprintf(", %d-dim embeddings", dims)
	} else {
		result.Message += ", no embeddings"
	}
	result.Details = fmt.Sprintf("%s (sources: %s)", path, strings.Join(corpus.Sources(), ", "))
	return result, corpus.Dimensions()
}

// CheckCorpusLock warns when an import is writing the corpus right now.
func (c *Checker) CheckCorpusLock() CheckResult {
	result := CheckResult{Name: "corpus_lock", Required: false}
	path := c.cfg.CorpusPath()
	if _, err := os.Stat(path); err != nil {
		result.Status = StatusPass
		result.Message = "no corpus yet"
		return result
	}

	lock := store.NewFileLock(path)
	ok, err := lock.TryLock()
	if err != nil {
		result.Status = StatusWarn
		result.Message = err.Error()
		return result
	}
	if !ok {
		result.Status = StatusWarn
		result.Message = "an import is in progress"
		result.Details = lock.Path()
		return result
	}
	_ = lock.Unlock()

	result.Status = StatusPass
	result.Message = "free"
	return result
}

// CheckMetricsStore opens metrics.store when one is configured.
func (c *Checker) CheckMetricsStore() CheckResult {
	result := CheckResult{Name: "metrics_store", Required: false}
	path := c.cfg.MetricsStorePath()
	if path == "" {
		result.Status = StatusPass
		result.Message = "disabled"
		return result
	}

	st, err := telemetry.OpenMetricsStore(path)
	if err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("cannot open %s: %v", path, err)
		return result
	}
	_ = st.Close()

	result.Status = StatusPass
	result.Message = path
	return result
}

package preflight

import (
	"context"
	"fmt"
)

// CheckEmbedder starts the configured embedder and compares its output
// size with the corpus. Failures only warn: search then runs without the
// vector source.
func (c *Checker) CheckEmbedder(ctx context.Context, corpusDims int) CheckResult {
	result := CheckResult{Name: "embedder", Required: false}
	if corpusDims == 0 {
		result.Status = StatusPass
		result.Message = "not needed (corpus has no embeddings)"
		return result
	}

	emb, err := c.newEmbedder(ctx)
	if err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("unavailable, vector source will be skipped: %v", err)
		return result
	}
	defer func() { _ = emb.Close() }()

	if emb.Dimensions() != corpusDims {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("%s produces %d dimensions, corpus has %d; vector source will be skipped",
			emb.ModelName(), emb.Dimensions(), corpusDims)
		result.Details = "Configure the embedder the corpus was built with"
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%s (%d dims)", emb.ModelName(), emb.Dimensions())
	return result
}

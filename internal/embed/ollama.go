package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	amerrors "github.com/Aman-CERP/amanrag/internal/errors"
)

const (
	DefaultOllamaHost  = "http://localhost:11434"
	DefaultOllamaModel = "embeddinggemma"
	DefaultBatchSize   = 32
	DefaultTimeout     = 30 * time.Second
)

// OllamaConfig configures OllamaEmbedder.
type OllamaConfig struct {
	Host  string
	Model string
	// Dimensions is detected with a probe request when zero.
	Dimensions int
	BatchSize  int
	// Timeout bounds each HTTP request, not the whole batch.
	Timeout time.Duration
	Retry   amerrors.RetryConfig
}

// DefaultOllamaConfig returns a local Ollama setup with three retries.
func DefaultOllamaConfig() OllamaConfig {
	return OllamaConfig{
		Host:      DefaultOllamaHost,
		Model:     DefaultOllamaModel,
		BatchSize: DefaultBatchSize,
		Timeout:   DefaultTimeout,
		Retry:     amerrors.DefaultRetryConfig(),
	}
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`
}

// OllamaEmbedder calls Ollama's /api/embed endpoint. Transient failures
// (network errors, 5xx) are retried with backoff here, at the collaborator
// boundary; the retrieval pipeline itself never retries.
type OllamaEmbedder struct {
	client *http.Client
	config OllamaConfig

	mu     sync.RWMutex
	dims   int
	closed bool
}

// NewOllamaEmbedder creates the client. When cfg.Dimensions is zero a
// probe embedding is requested to learn the vector size.
func NewOllamaEmbedder(ctx context.Context, cfg OllamaConfig) (*OllamaEmbedder, error) {
	def := DefaultOllamaConfig()
	if cfg.Host == "" {
		cfg.Host = def.Host
	}
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.Retry.Multiplier == 0 {
		cfg.Retry = def.Retry
	}
	if cfg.Retry.ShouldRetry == nil {
		cfg.Retry.ShouldRetry = amerrors.IsRetryable
	}

	e := &OllamaEmbedder{
		client: &http.Client{Transport: &http.Transport{
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     10 * time.Second,
		}},
		config: cfg,
		dims:   cfg.Dimensions,
	}

	if e.dims == 0 {
		vecs, err := e.embed(ctx, []string{"dimension probe"})
		if err != nil {
			return nil, fmt.Errorf("failed to detect embedding dimensions: %w", err)
		}
		e.dims = len(vecs[0])
		slog.Debug("ollama_dimensions_detected",
			slog.String("model", cfg.Model),
			slog.Int("dimensions", e.dims))
	}
	return e, nil
}

func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch splits texts into BatchSize requests.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return nil, fmt.Errorf("embedder is closed")
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.config.BatchSize {
		end := min(start+e.config.BatchSize, len(texts))
		vecs, err := e.embed(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		for _, v := range vecs {
			if e.dims != 0 && len(v) != e.dims {
				return nil, amerrors.New(amerrors.ErrCodeDimensionMismatch,
					fmt.Sprintf("ollama returned %d dimensions, want %d", len(v), e.dims), nil)
			}
			out = append(out, normalizeVector(v))
		}
	}
	return out, nil
}

func (e *OllamaEmbedder) embed(ctx context.Context, texts []string) ([][]float32, error) {
	return amerrors.RetryWithResult(ctx, e.config.Retry, func() ([][]float32, error) {
		return e.doRequest(ctx, texts)
	})
}

func (e *OllamaEmbedder) doRequest(ctx context.Context, texts []string) ([][]float32, error) {
	reqCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	body, err := json.Marshal(ollamaEmbedRequest{Model: e.config.Model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, e.config.Host+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, amerrors.New(amerrors.ErrCodeEmbedderFailed, "ollama request failed", err).
			WithSuggestion("Check that Ollama is running: ollama serve")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		err := fmt.Errorf("ollama status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
		if resp.StatusCode >= 500 {
			return nil, amerrors.New(amerrors.ErrCodeEmbedderFailed, "ollama server error", err)
		}
		return nil, amerrors.New(amerrors.ErrCodeInvalidInput, "ollama rejected request", err).
			WithSuggestion("Pull the model first: ollama pull " + e.config.Model)
	}

	var parsed ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(parsed.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama returned %d embeddings for %d inputs", len(parsed.Embeddings), len(texts))
	}
	return parsed.Embeddings, nil
}

func (e *OllamaEmbedder) Dimensions() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dims
}

func (e *OllamaEmbedder) ModelName() string {
	return e.config.Model
}

func (e *OllamaEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.client.CloseIdleConnections()
	return nil
}

var _ Embedder = (*OllamaEmbedder)(nil)

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/amanrag/internal/embed"
	amerrors "github.com/Aman-CERP/amanrag/internal/errors"
	"github.com/Aman-CERP/amanrag/internal/logging"
	"github.com/Aman-CERP/amanrag/internal/search"
	"github.com/Aman-CERP/amanrag/internal/store"
)

// CurrentVersion is the config schema version written by 'config init'.
const CurrentVersion = 1

// Project config file names, in lookup order.
var projectConfigNames = []string{".amanrag.yaml", ".amanrag.yml"}

// Config is the complete amanrag file configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Corpus     CorpusConfig     `yaml:"corpus" json:"corpus"`
	Retrieval  RetrievalConfig  `yaml:"retrieval" json:"retrieval"`
	Breaker    BreakerConfig    `yaml:"breaker" json:"breaker"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics" json:"metrics"`
}

// CorpusConfig locates the SQLite chunk corpus.
type CorpusConfig struct {
	Path string `yaml:"path" json:"path"`
}

// RetrievalConfig is the file form of search.Config.
type RetrievalConfig struct {
	Weights search.ScoringWeights `yaml:"weights" json:"weights"`

	BoostAmount      float64 `yaml:"boost_amount" json:"boost_amount"`
	AvoidAmount      float64 `yaml:"avoid_amount" json:"avoid_amount"`
	ContentTypeBonus float64 `yaml:"content_type_bonus" json:"content_type_bonus"`

	ConfidenceThreshold float64 `yaml:"confidence_threshold" json:"confidence_threshold"`

	// SourceTimeout is a Go duration string, e.g. "2s" or "750ms".
	SourceTimeout  string `yaml:"source_timeout" json:"source_timeout"`
	Redistribution string `yaml:"redistribution" json:"redistribution"`

	DefaultK       int `yaml:"default_k" json:"default_k"`
	MaxK           int `yaml:"max_k" json:"max_k"`
	LongQueryWords int `yaml:"long_query_words" json:"long_query_words"`
	LongQueryBonus int `yaml:"long_query_bonus" json:"long_query_bonus"`
	MaxVariants    int `yaml:"max_variants" json:"max_variants"`
	CandidatePool  int `yaml:"candidate_pool" json:"candidate_pool"`

	FuzzyWindow   int     `yaml:"fuzzy_window" json:"fuzzy_window"`
	FuzzyMinScore float64 `yaml:"fuzzy_min_score" json:"fuzzy_min_score"`

	ProfileCacheSize int `yaml:"profile_cache_size" json:"profile_cache_size"`

	// StopWords replaces the built-in TR/EN list when set.
	StopWords []string `yaml:"stop_words,omitempty" json:"stop_words,omitempty"`

	Categories []search.CategoryProfile `yaml:"categories" json:"categories"`
}

// BreakerConfig configures the per-source circuit breakers.
type BreakerConfig struct {
	// MaxFailures is consecutive failed requests before a source is
	// skipped; 0 disables breakers.
	MaxFailures  int    `yaml:"max_failures" json:"max_failures"`
	ResetTimeout string `yaml:"reset_timeout" json:"reset_timeout"`
}

// EmbeddingsConfig configures the query and import embedder.
type EmbeddingsConfig struct {
	// Provider is "static" (offline, default) or "ollama".
	Provider   string `yaml:"provider" json:"provider"`
	Model      string `yaml:"model" json:"model"`
	Dimensions int    `yaml:"dimensions" json:"dimensions"`
	OllamaHost string `yaml:"ollama_host" json:"ollama_host"`
	BatchSize  int    `yaml:"batch_size" json:"batch_size"`
	Timeout    string `yaml:"timeout" json:"timeout"`
	// CacheSize is the query embedding LRU size; negative disables it.
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// LoggingConfig configures the slog JSON logger.
type LoggingConfig struct {
	Level     string `yaml:"level" json:"level"`
	File      string `yaml:"file" json:"file"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
	Stderr    bool   `yaml:"stderr" json:"stderr"`
}

// MetricsConfig configures retrieval telemetry.
type MetricsConfig struct {
	// Namespace prefixes exported Prometheus metric names.
	Namespace string `yaml:"namespace" json:"namespace"`
	// Store is a SQLite file that accumulates retrieval statistics across
	// runs; empty disables persistence.
	Store string `yaml:"store" json:"store"`
}

// NewConfig returns the built-in defaults.
func NewConfig() *Config {
	sc := search.DefaultConfig()
	oc := embed.DefaultOllamaConfig()
	lc := logging.DefaultConfig()

	return &Config{
		Version: CurrentVersion,
		Corpus:  CorpusConfig{Path: DefaultCorpusPath()},
		Retrieval: RetrievalConfig{
			Weights:             sc.Weights,
			BoostAmount:         sc.BoostAmount,
			AvoidAmount:         sc.AvoidAmount,
			ContentTypeBonus:    sc.ContentTypeBonus,
			ConfidenceThreshold: sc.ConfidenceThreshold,
			SourceTimeout:       sc.SourceTimeout.String(),
			Redistribution:      string(sc.Redistribution),
			DefaultK:            sc.DefaultK,
			MaxK:                sc.MaxK,
			LongQueryWords:      sc.LongQueryWords,
			LongQueryBonus:      sc.LongQueryBonus,
			MaxVariants:         sc.MaxVariants,
			CandidatePool:       sc.CandidatePool,
			FuzzyWindow:         sc.FuzzyWindow,
			FuzzyMinScore:       sc.FuzzyMinScore,
			ProfileCacheSize:    sc.ProfileCacheSize,
			Categories:          sc.Categories,
		},
		Breaker: BreakerConfig{
			MaxFailures:  sc.BreakerMaxFailures,
			ResetTimeout: sc.BreakerResetTimeout.String(),
		},
		Embeddings: EmbeddingsConfig{
			Provider:   string(embed.ProviderStatic),
			Model:      oc.Model,
			OllamaHost: oc.Host,
			BatchSize:  oc.BatchSize,
			Timeout:    oc.Timeout.String(),
			CacheSize:  embed.DefaultCacheSize,
		},
		Logging: LoggingConfig{
			Level:     lc.Level,
			MaxSizeMB: lc.MaxSizeMB,
			MaxFiles:  lc.MaxFiles,
			Stderr:    lc.Stderr,
		},
		Metrics: MetricsConfig{Namespace: "amanrag"},
	}
}

// DefaultCorpusPath returns ~/.amanrag/corpus.db.
func DefaultCorpusPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".amanrag", "corpus.db")
	}
	return filepath.Join(home, ".amanrag", "corpus.db")
}

// GetUserConfigPath returns the user configuration file path:
//   - $XDG_CONFIG_HOME/amanrag/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/amanrag/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "amanrag", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "amanrag", "config.yaml")
	}
	return filepath.Join(home, ".config", "amanrag", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// Load builds the configuration for dir, in increasing precedence:
//  1. Hardcoded defaults
//  2. User config (~/.config/amanrag/config.yaml)
//  3. Project config (.amanrag.yaml or .amanrag.yml in dir)
//  4. Environment variables (AMANRAG_*)
//
// The result is validated; any problem is a ConfigurationError.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if path := GetUserConfigPath(); fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads defaults overlaid with a single explicit file, then env.
func LoadFile(path string) (*Config, error) {
	cfg := NewConfig()
	if !fileExists(path) {
		return nil, amerrors.New(amerrors.ErrCodeConfigNotFound, "config file not found: "+path, nil).
			WithSuggestion("Run 'amanrag config init' to create one")
	}
	if err := cfg.loadYAML(path); err != nil {
		return nil, err
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ProjectConfigPath returns the project config file in dir, or "".
func ProjectConfigPath(dir string) string {
	for _, name := range projectConfigNames {
		if p := filepath.Join(dir, name); fileExists(p) {
			return p
		}
	}
	return ""
}

func (c *Config) loadFromFile(dir string) error {
	if p := ProjectConfigPath(dir); p != "" {
		return c.loadYAML(p)
	}
	return nil
}

// loadYAML overlays the keys present in path onto c. Absent keys keep
// their current value; a present categories list replaces the defaults.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return amerrors.New(amerrors.ErrCodeConfigNotFound, "failed to read config file "+path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return amerrors.New(amerrors.ErrCodeConfigParse, "failed to parse config file "+path, err).
			WithDetail("path", path).
			WithSuggestion("Check the YAML syntax and field names against 'amanrag config show'")
	}
	return nil
}

// applyEnvOverrides applies AMANRAG_* overrides. A value that does not
// parse is a ConfigurationError naming the variable.
func (c *Config) applyEnvOverrides() error {
	envFloat := func(key string, dst *float64) error {
		v := os.Getenv(key)
		if v == "" {
			return nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return envError(key, v, "a number")
		}
		*dst = f
		return nil
	}
	for key, dst := range map[string]*float64{
		"AMANRAG_LEXICAL_WEIGHT":       &c.Retrieval.Weights.Lexical,
		"AMANRAG_VECTOR_WEIGHT":        &c.Retrieval.Weights.Vector,
		"AMANRAG_FUZZY_WEIGHT":         &c.Retrieval.Weights.Fuzzy,
		"AMANRAG_CONFIDENCE_THRESHOLD": &c.Retrieval.ConfidenceThreshold,
	} {
		if err := envFloat(key, dst); err != nil {
			return err
		}
	}

	if v := os.Getenv("AMANRAG_SOURCE_TIMEOUT"); v != "" {
		if _, err := time.ParseDuration(v); err != nil {
			return envError("AMANRAG_SOURCE_TIMEOUT", v, "a duration such as 2s")
		}
		c.Retrieval.SourceTimeout = v
	}
	if v := os.Getenv("AMANRAG_REDISTRIBUTION"); v != "" {
		c.Retrieval.Redistribution = strings.ToLower(v)
	}
	if v := os.Getenv("AMANRAG_CORPUS_PATH"); v != "" {
		c.Corpus.Path = v
	}
	if v := os.Getenv("AMANRAG_EMBEDDER"); v != "" {
		c.Embeddings.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("AMANRAG_OLLAMA_HOST"); v != "" {
		c.Embeddings.OllamaHost = v
	}
	if v := os.Getenv("AMANRAG_LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	return nil
}

func envError(key, value, want string) *amerrors.RetrievalError {
	return amerrors.ConfigError(fmt.Sprintf("%s=%q is not %s", key, value, want), nil).
		WithDetail("env", key).
		WithSuggestion("Fix or unset " + key)
}

// Validate fails fast on the first invalid setting.
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return configError(fmt.Sprintf("unsupported config version %d (expected %d)", c.Version, CurrentVersion), "version")
	}
	if strings.TrimSpace(c.Corpus.Path) == "" {
		return configError("corpus.path is required", "corpus.path")
	}
	if _, err := c.SearchConfig(); err != nil {
		return err
	}
	if _, err := c.EmbedderConfig(); err != nil {
		return err
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return configError(fmt.Sprintf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level), "logging.level")
	}
	if c.Logging.MaxSizeMB < 1 || c.Logging.MaxFiles < 1 {
		return configError("logging.max_size_mb and logging.max_files must be >= 1", "logging")
	}
	return nil
}

// SearchConfig converts the retrieval section into the immutable
// search.Config and validates it.
func (c *Config) SearchConfig() (search.Config, error) {
	r := c.Retrieval

	timeout, err := time.ParseDuration(r.SourceTimeout)
	if err != nil {
		return search.Config{}, configError(fmt.Sprintf("retrieval.source_timeout %q is not a duration", r.SourceTimeout), "retrieval.source_timeout")
	}
	reset, err := time.ParseDuration(c.Breaker.ResetTimeout)
	if err != nil {
		return search.Config{}, configError(fmt.Sprintf("breaker.reset_timeout %q is not a duration", c.Breaker.ResetTimeout), "breaker.reset_timeout")
	}

	sc := search.Config{
		Weights:             r.Weights,
		BoostAmount:         r.BoostAmount,
		AvoidAmount:         r.AvoidAmount,
		ContentTypeBonus:    r.ContentTypeBonus,
		ConfidenceThreshold: r.ConfidenceThreshold,
		SourceTimeout:       timeout,
		Redistribution:      search.RedistributionMode(r.Redistribution),
		DefaultK:            r.DefaultK,
		MaxK:                r.MaxK,
		LongQueryWords:      r.LongQueryWords,
		LongQueryBonus:      r.LongQueryBonus,
		MaxVariants:         r.MaxVariants,
		CandidatePool:       r.CandidatePool,
		FuzzyWindow:         r.FuzzyWindow,
		FuzzyMinScore:       r.FuzzyMinScore,
		BreakerMaxFailures:  c.Breaker.MaxFailures,
		BreakerResetTimeout: reset,
		ProfileCacheSize:    r.ProfileCacheSize,
		Categories:          r.Categories,
	}
	if err := sc.Validate(); err != nil {
		return search.Config{}, err
	}
	return sc, nil
}

// BM25Config returns the lexical index settings.
func (c *Config) BM25Config() store.BM25Config {
	if len(c.Retrieval.StopWords) == 0 {
		return store.DefaultBM25Config()
	}
	return store.BM25Config{StopWords: c.Retrieval.StopWords}
}

// EmbedderConfig converts the embeddings section for embed.NewEmbedder.
func (c *Config) EmbedderConfig() (embed.Config, error) {
	e := c.Embeddings

	provider := embed.Provider(strings.ToLower(e.Provider))
	switch provider {
	case embed.ProviderStatic, embed.ProviderOllama:
	default:
		return embed.Config{}, configError(fmt.Sprintf("embeddings.provider must be static or ollama, got %q", e.Provider), "embeddings.provider")
	}

	timeout, err := time.ParseDuration(e.Timeout)
	if err != nil || timeout <= 0 {
		return embed.Config{}, configError(fmt.Sprintf("embeddings.timeout %q is not a positive duration", e.Timeout), "embeddings.timeout")
	}
	if e.BatchSize < 1 {
		return embed.Config{}, configError("embeddings.batch_size must be >= 1", "embeddings.batch_size")
	}
	if e.Dimensions < 0 {
		return embed.Config{}, configError("embeddings.dimensions must be >= 0", "embeddings.dimensions")
	}

	oc := embed.DefaultOllamaConfig()
	oc.Host = e.OllamaHost
	oc.Model = e.Model
	oc.Dimensions = e.Dimensions
	oc.BatchSize = e.BatchSize
	oc.Timeout = timeout

	return embed.Config{Provider: provider, Ollama: oc, CacheSize: e.CacheSize}, nil
}

// LoggingConfig converts the logging section for logging.Setup.
func (c *Config) LoggingConfig() logging.Config {
	return logging.Config{
		Level:     c.Logging.Level,
		FilePath:  expandHome(c.Logging.File),
		MaxSizeMB: c.Logging.MaxSizeMB,
		MaxFiles:  c.Logging.MaxFiles,
		Stderr:    c.Logging.Stderr,
	}
}

// Marshal renders c as YAML.
func (c *Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func configError(message, field string) *amerrors.RetrievalError {
	return amerrors.ConfigError(message, nil).
		WithDetail("field", field).
		WithSuggestion("Fix the setting in your config file, or run 'amanrag config validate'")
}

// CorpusPath returns corpus.path with a leading ~ expanded.
func (c *Config) CorpusPath() string {
	return expandHome(c.Corpus.Path)
}

// MetricsStorePath returns metrics.store with a leading ~ expanded.
func (c *Config) MetricsStorePath() string {
	return expandHome(c.Metrics.Store)
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

package search

import (
	"fmt"
	"strings"
	"time"

	amerrors "github.com/Aman-CERP/amanrag/internal/errors"
	"github.com/Aman-CERP/amanrag/internal/store"
)

// CategoryProfile describes one query intent. Categories are evaluated in
// slice order; the first whose trigger matches wins.
type CategoryProfile struct {
	Name       string   `yaml:"name" json:"name"`
	Triggers   []string `yaml:"triggers" json:"triggers"`
	Expansions []string `yaml:"expansions" json:"expansions"`
	Boost      []string `yaml:"boost_sources" json:"boost_sources,omitempty"`
	Avoid      []string `yaml:"avoid_sources" json:"avoid_sources,omitempty"`
	DefaultK   int      `yaml:"default_k" json:"default_k"`
	// ContentType earns the content-type bonus; empty disables it.
	ContentType store.ContentType `yaml:"content_type" json:"content_type,omitempty"`
}

// Config is the immutable retrieval configuration, built once at startup
// and passed to the orchestrator.
type Config struct {
	Weights ScoringWeights

	BoostAmount      float64
	AvoidAmount      float64
	ContentTypeBonus float64

	// ConfidenceThreshold is the gate's GENERATE cutoff.
	ConfidenceThreshold float64

	// SourceTimeout bounds each individual scorer call.
	SourceTimeout  time.Duration
	Redistribution RedistributionMode

	// DefaultK is the result count for the general category.
	DefaultK       int
	MaxK           int
	LongQueryWords int
	LongQueryBonus int
	// MaxVariants caps original plus expansion variants per request.
	MaxVariants int
	// CandidatePool is how many hits each scorer returns per variant.
	CandidatePool int

	FuzzyWindow   int
	FuzzyMinScore float64

	// BreakerMaxFailures opens a source's circuit after that many
	// consecutive failed requests; 0 disables breakers.
	BreakerMaxFailures  int
	BreakerResetTimeout time.Duration

	// ProfileCacheSize is the analyzer LRU size; 0 disables it.
	ProfileCacheSize int

	Categories []CategoryProfile
}

// DefaultCategories returns the built-in intents in priority order:
// integration, troubleshooting, platform, api, features.
func DefaultCategories() []CategoryProfile {
	return []CategoryProfile{
		{
			Name:        "integration",
			Triggers:    []string{"entegrasyon", "integration", "integrate", "kurulum", "setup", "install", "implement"},
			Expansions:  []string{"SDK setup", "implementation", "integration steps", "configuration"},
			Boost:       []string{"developer-guide", "getting-started"},
			Avoid:       []string{"api-documentation"},
			DefaultK:    5,
			ContentType: store.ContentTutorial,
		},
		{
			Name:        "troubleshooting",
			Triggers:    []string{"hata", "error", "problem", "sorun", "çözüm", "fix", "solve", "çalışmıyor"},
			Expansions:  []string{"debug", "troubleshoot", "issue", "solution", "resolve"},
			Boost:       []string{"troubleshooting", "faq"},
			DefaultK:    5,
			ContentType: store.ContentFAQ,
		},
		{
			Name:       "platform",
			Triggers:   []string{"platform", "hangi", "destekliyor", "support", "which"},
			Expansions: []string{"iOS", "Android", "React Native", "Flutter", "Unity", "Web"},
			Boost:      []string{"developer-guide"},
			Avoid:      []string{"iys"},
			DefaultK:   6,
		},
		{
			Name:        "api",
			Triggers:    []string{"api", "endpoint", "request", "response", "documentation", "dokümantasyon", "istek"},
			Expansions:  []string{"REST API", "HTTP", "JSON", "authentication", "parameters"},
			Boost:       []string{"api-documentation", "rest-api"},
			Avoid:       []string{"user-guide"},
			DefaultK:    3,
			ContentType: store.ContentAPI,
		},
		{
			Name:       "features",
			Triggers:   []string{"özellik", "feature", "neler", "what", "capabilities", "yetenek"},
			Expansions: []string{"push notification", "analytics", "segmentation", "campaign", "automation"},
			Boost:      []string{"developer-guide", "features"},
			Avoid:      []string{"troubleshooting"},
			DefaultK:   5,
		},
	}
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Weights:             DefaultWeights(),
		BoostAmount:         0.3,
		AvoidAmount:         0.4,
		ContentTypeBonus:    0.3,
		ConfidenceThreshold: 0.4,
		SourceTimeout:       2 * time.Second,
		Redistribution:      RedistributeProportional,
		DefaultK:            3,
		MaxK:                10,
		LongQueryWords:      5,
		LongQueryBonus:      2,
		MaxVariants:         5,
		CandidatePool:       25,
		FuzzyWindow:         1000,
		FuzzyMinScore:       0.6,
		BreakerMaxFailures:  5,
		BreakerResetTimeout: 30 * time.Second,
		ProfileCacheSize:    512,
		Categories:          DefaultCategories(),
	}
}

// Validate checks every field and returns a configuration error naming
// the first offending one.
func (c Config) Validate() error {
	if err := c.validate(); err != nil {
		return amerrors.ConfigError(err.Error(), nil).
			WithSuggestion("Fix the retrieval section of your config, or run 'amanrag config validate'")
	}
	return nil
}

func (c Config) validate() error {
	if err := c.Weights.Validate(); err != nil {
		return err
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"boost_amount", c.BoostAmount},
		{"avoid_amount", c.AvoidAmount},
		{"content_type_bonus", c.ContentTypeBonus},
	} {
		if f.v < 0 || f.v > 1 {
			return fmt.Errorf("%s must be in [0,1], got %g", f.name, f.v)
		}
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold must be in [0,1], got %g", c.ConfidenceThreshold)
	}
	if c.SourceTimeout <= 0 {
		return fmt.Errorf("source_timeout must be > 0")
	}
	if !c.Redistribution.Valid() {
		return fmt.Errorf("redistribution must be %q or %q, got %q", RedistributeProportional, RedistributeDrop, c.Redistribution)
	}
	if c.DefaultK < 1 {
		return fmt.Errorf("default_k must be >= 1, got %d", c.DefaultK)
	}
	if c.MaxK < c.DefaultK {
		return fmt.Errorf("max_k (%d) must be >= default_k (%d)", c.MaxK, c.DefaultK)
	}
	if c.LongQueryWords < 0 || c.LongQueryBonus < 0 {
		return fmt.Errorf("long_query_words and long_query_bonus must be >= 0")
	}
	if c.MaxVariants < 1 {
		return fmt.Errorf("max_variants must be >= 1, got %d", c.MaxVariants)
	}
	if c.CandidatePool < 1 {
		return fmt.Errorf("candidate_pool must be >= 1, got %d", c.CandidatePool)
	}
	if c.FuzzyWindow < 1 {
		return fmt.Errorf("fuzzy_window must be >= 1, got %d", c.FuzzyWindow)
	}
	if c.FuzzyMinScore < 0 || c.FuzzyMinScore > 1 {
		return fmt.Errorf("fuzzy_min_score must be in [0,1], got %g", c.FuzzyMinScore)
	}
	if c.BreakerMaxFailures < 0 {
		return fmt.Errorf("breaker max_failures must be >= 0")
	}
	if c.BreakerMaxFailures > 0 && c.BreakerResetTimeout <= 0 {
		return fmt.Errorf("breaker reset_timeout must be > 0 when breakers are enabled")
	}
	if c.ProfileCacheSize < 0 {
		return fmt.Errorf("profile_cache_size must be >= 0")
	}

	seen := make(map[string]bool, len(c.Categories))
	for i, cat := range c.Categories {
		if err := cat.validate(c.MaxK); err != nil {
			return fmt.Errorf("categories[%d]: %w", i, err)
		}
		name := store.FoldCase(cat.Name)
		if seen[name] {
			return fmt.Errorf("categories[%d]: duplicate category %q", i, cat.Name)
		}
		seen[name] = true
	}
	return nil
}

func (p CategoryProfile) validate(maxK int) error {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return fmt.Errorf("name is required")
	}
	if store.FoldCase(name) == CategoryGeneral {
		return fmt.Errorf("%q is reserved for unmatched queries", CategoryGeneral)
	}
	if len(p.Triggers) == 0 {
		return fmt.Errorf("%s: at least one trigger is required", name)
	}
	for _, t := range p.Triggers {
		if normalizeQuery(t) == "" {
			return fmt.Errorf("%s: blank trigger", name)
		}
	}
	for _, e := range p.Expansions {
		if strings.TrimSpace(e) == "" {
			return fmt.Errorf("%s: blank expansion", name)
		}
	}
	if p.DefaultK < 1 || p.DefaultK > maxK {
		return fmt.Errorf("%s: default_k must be in [1,%d], got %d", name, maxK, p.DefaultK)
	}
	if p.ContentType != "" && !p.ContentType.Valid() {
		return fmt.Errorf("%s: unknown content_type %q", name, p.ContentType)
	}
	for _, b := range p.Boost {
		if containsFold(p.Avoid, b) {
			return fmt.Errorf("%s: source %q is both boosted and avoided", name, b)
		}
	}
	return nil
}

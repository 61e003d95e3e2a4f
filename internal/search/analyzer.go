package search

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Aman-CERP/amanrag/internal/store"
)

// Query languages.
const (
	LanguageTurkish = "tr"
	LanguageEnglish = "en"
)

// turkishRunes are the letters that only occur in Turkish text.
const turkishRunes = "çğıöşü"

// QueryAnalyzer classifies queries into categories. It is a pure function
// of query text and the configuration it was built with; the optional
// cache only memoizes that function.
type QueryAnalyzer struct {
	categories     []CategoryProfile
	defaultK       int
	maxK           int
	longQueryWords int
	longQueryBonus int
	maxVariants    int

	cache *lru.Cache[string, QueryProfile]
}

// NewQueryAnalyzer builds an analyzer from a validated configuration.
func NewQueryAnalyzer(cfg Config) *QueryAnalyzer {
	a := &QueryAnalyzer{
		categories:     cfg.Categories,
		defaultK:       cfg.DefaultK,
		maxK:           cfg.MaxK,
		longQueryWords: cfg.LongQueryWords,
		longQueryBonus: cfg.LongQueryBonus,
		maxVariants:    cfg.MaxVariants,
	}
	if cfg.ProfileCacheSize > 0 {
		// lru.New only fails on a non-positive size.
		a.cache, _ = lru.New[string, QueryProfile](cfg.ProfileCacheSize)
	}
	return a
}

// Analyze derives the profile for query. It always succeeds; an empty
// query yields the general category with no variants.
func (a *QueryAnalyzer) Analyze(query string) *QueryProfile {
	normalized := normalizeQuery(query)

	if a.cache != nil {
		if p, ok := a.cache.Get(normalized); ok {
			return p.clone()
		}
	}

	p := a.analyze(normalized)
	if a.cache != nil {
		a.cache.Add(normalized, p)
	}
	return p.clone()
}

func (a *QueryAnalyzer) analyze(normalized string) QueryProfile {
	p := QueryProfile{
		Query:    normalized,
		Category: CategoryGeneral,
		TargetK:  a.defaultK,
		Language: DetectLanguage(normalized),
	}
	if normalized == "" {
		return p
	}

	tokens := store.Tokenize(normalized)
	if cat, ok := a.match(normalized, tokens); ok {
		p.Category = cat.Name
		p.TargetK = cat.DefaultK
		p.Boosted = cat.Boost
		p.Avoided = cat.Avoid
		p.ContentType = cat.ContentType
		p.Expansions = cat.Expansions
		if limit := a.maxVariants - 1; len(p.Expansions) > limit {
			p.Expansions = p.Expansions[:limit]
		}
	}

	if a.longQueryBonus > 0 && len(strings.Fields(normalized)) > a.longQueryWords {
		p.TargetK += a.longQueryBonus
	}
	if p.TargetK > a.maxK {
		p.TargetK = a.maxK
	}
	return p
}

// match returns the first category, in configured order, with a matching
// trigger.
func (a *QueryAnalyzer) match(normalized string, tokens []string) (CategoryProfile, bool) {
	for _, cat := range a.categories {
		for _, trigger := range cat.Triggers {
			if triggerMatches(normalizeQuery(trigger), normalized, tokens) {
				return cat, true
			}
		}
	}
	return CategoryProfile{}, false
}

// triggerMatches matches a single-word trigger against query tokens,
// exactly or as a prefix so suffixed forms like "entegrasyonu" count.
// Multi-word triggers match as a substring of the normalized query.
func triggerMatches(trigger, normalized string, tokens []string) bool {
	if trigger == "" {
		return false
	}
	if strings.Contains(trigger, " ") {
		return strings.Contains(normalized, trigger)
	}
	for _, tok := range tokens {
		if strings.HasPrefix(tok, trigger) {
			return true
		}
	}
	return false
}

// DetectLanguage reports "tr" if text contains Turkish-only letters and
// "en" otherwise.
func DetectLanguage(text string) string {
	if strings.ContainsAny(store.FoldCase(text), turkishRunes) {
		return LanguageTurkish
	}
	return LanguageEnglish
}

// normalizeQuery case-folds (Turkish dotted İ aware) and collapses
// whitespace.
func normalizeQuery(s string) string {
	return strings.Join(strings.Fields(store.FoldCase(s)), " ")
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(s)) {
			return true
		}
	}
	return false
}

func (p QueryProfile) clone() *QueryProfile {
	out := p
	out.Expansions = append([]string(nil), p.Expansions...)
	out.Boosted = append([]string(nil), p.Boosted...)
	out.Avoided = append([]string(nil), p.Avoided...)
	return &out
}

package search

import (
	"context"
	"errors"

	amerrors "github.com/Aman-CERP/amanrag/internal/errors"
)

// ErrInsufficientEvidence is handed to the answer generator in place of
// context when the gate routes to FALLBACK.
var ErrInsufficientEvidence = errors.New("insufficient evidence to answer")

// Passage is one chunk of answer context.
type Passage struct {
	ChunkID string  `json:"chunk_id"`
	Text    string  `json:"text"`
	Source  string  `json:"source"`
	URL     string  `json:"url,omitempty"`
	Score   float64 `json:"score"`
}

// Handoff is what the answer generator receives. On GENERATE it carries
// ordered passages; on FALLBACK it carries Err and clarifying suggestions
// and never any passages.
type Handoff struct {
	RequestID   string        `json:"request_id"`
	Route       Route         `json:"route"`
	Passages    []Passage     `json:"passages,omitempty"`
	Err         error         `json:"-"`
	Reason      FailureReason `json:"reason,omitempty"`
	Suggestions []string      `json:"suggestions,omitempty"`
	Language    string        `json:"language"`
}

var clarifyingSuggestions = map[string][]string{
	LanguageTurkish: {
		"Hangi SDK/platform? (iOS/Android/Web)",
		"Hangi ekran/hatayı görüyorsun?",
		"Konu başlığını biraz daha açar mısın?",
	},
	LanguageEnglish: {
		"Which SDK/platform? (iOS/Android/Web)",
		"Which screen/error do you see?",
		"Could you expand the topic a bit?",
	},
}

// Suggestions returns the clarifying prompts for a language, English when
// the language is unknown.
func Suggestions(language string) []string {
	s, ok := clarifyingSuggestions[language]
	if !ok {
		s = clarifyingSuggestions[LanguageEnglish]
	}
	return append([]string(nil), s...)
}

// NewHandoff converts a result into answer-generator input.
func NewHandoff(res *RetrievalResult) *Handoff {
	lang := LanguageEnglish
	if res.Profile != nil && res.Profile.Language != "" {
		lang = res.Profile.Language
	}
	h := &Handoff{
		RequestID: res.RequestID,
		Route:     res.Route,
		Reason:    res.Reason,
		Language:  lang,
	}

	if res.Route != RouteGenerate {
		h.Err = ErrInsufficientEvidence
		h.Suggestions = Suggestions(lang)
		return h
	}

	h.Passages = make([]Passage, 0, len(res.Candidates))
	for _, c := range res.Candidates {
		p := Passage{ChunkID: c.ChunkID, Score: c.CombinedScore}
		if c.Chunk != nil {
			p.Text = c.Chunk.Text
			p.Source = c.Chunk.Source
			p.URL = c.Chunk.URL
		}
		h.Passages = append(h.Passages, p)
	}
	return h
}

// Err maps a failure reason to its structured error; nil when the request
// ran to the gate.
func (r *RetrievalResult) Err() error {
	switch r.Reason {
	case ReasonEmptyQuery:
		return amerrors.New(amerrors.ErrCodeQueryEmpty, "query is empty", nil).
			WithSuggestion("Provide a search query")
	case ReasonEmptyCorpus:
		return amerrors.New(amerrors.ErrCodeEmptyCorpus, "corpus has no chunks", nil).
			WithSuggestion("Run 'amanrag import <chunks.jsonl>' first")
	case ReasonAllSourcesFailed:
		return amerrors.New(amerrors.ErrCodeAllSourcesFailed, "every search source failed", nil).
			WithSuggestion("Run with --debug and check the source_failed log events")
	case ReasonCanceled:
		return context.Canceled
	default:
		return nil
	}
}

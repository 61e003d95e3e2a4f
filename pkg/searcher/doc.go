// Package searcher is the public entry point for hybrid retrieval over an
// amanrag chunk corpus.
//
// A Searcher loads the immutable corpus once, builds the lexical, vector
// and fuzzy indexes in memory, and answers queries through the retrieval
// orchestrator:
//
//	┌──────────────────────────────────────────────────────────┐
//	│                         Searcher                         │
//	│  QueryAnalyzer → lexical ┐                               │
//	│                  vector  ├→ ScoreFusion → ConfidenceGate │
//	│                  fuzzy   ┘                               │
//	└──────────────────────────────────────────────────────────┘
//
// # Usage
//
//	s, err := searcher.Open(ctx, "~/.amanrag/corpus.db",
//	    searcher.WithEmbedderConfig(embed.Config{Provider: embed.ProviderStatic}),
//	)
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	h := s.Handoff(ctx, "Android SDK entegrasyonu")
//	if h.Route == search.RouteFallback {
//	    // ask one of h.Suggestions
//	}
//
// Without an embedder, or when the corpus holds no vectors, the vector
// source is skipped and its weight is redistributed.
//
// # Thread Safety
//
// Retrieve and Handoff are safe for concurrent use.
package searcher

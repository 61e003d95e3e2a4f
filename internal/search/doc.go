// Package search is the hybrid retrieval core.
//
// A request flows through five stages: the QueryAnalyzer classifies the
// query and derives expansion variants, the lexical, vector and fuzzy
// Scorers are queried concurrently for every variant, ScoreFusion merges
// their scores under the category's relevance policy, the ConfidenceGate
// routes the top score to GENERATE or FALLBACK, and the Orchestrator
// returns one RetrievalResult. Source failures degrade the result instead
// of failing the request.
package search

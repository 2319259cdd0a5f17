// Package router implements the semantic router: it scores a
// free-text prompt against every known profile using keyword
// regex matching plus optional embedding cosine similarity, and emits
// a thresholded activation decision. It never mutates session state —
// the activator (internal/activator) is what acts on its decision.
package router

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/chainward/chainward/internal/catalog"
)

// ActivationMode is the router's UX directive for its top candidate.
type ActivationMode string

const (
	ModeImmediate  ActivationMode = "immediate"
	ModeSuggestion ActivationMode = "suggestion"
	ModeChat       ActivationMode = "chat"
)

// Default thresholds and weights, overridable via internal/chainconfig's
// CHAIN_IMMEDIATE_THRESHOLD / CHAIN_SUGGESTION_THRESHOLD.
const (
	DefaultImmediateThreshold  = 0.85
	DefaultSuggestionThreshold = 0.70
	DefaultKeywordWeight       = 0.3
	DefaultEmbeddingWeight     = 0.7
)

// ProfileMatch is one profile's score breakdown.
type ProfileMatch struct {
	ProfileID      string
	Score          float64
	KeywordScore   float64
	EmbeddingScore float64
	HasEmbedding   bool
}

// RouteDecision is the router's output.
type RouteDecision struct {
	RequestID       string
	Query           string
	Mode            ActivationMode
	Candidates      []ProfileMatch
	SelectedProfile string
	RoutingTimeMs   int64
}

// Router scores prompts against a catalog.Library's profiles.
type Router struct {
	Lib                 *catalog.Library
	Embedder            Embedder
	VectorStore         *VectorStore
	ImmediateThreshold  float64
	SuggestionThreshold float64
	KeywordWeight       float64
	EmbeddingWeight     float64
}

// New builds a Router with the spec's default thresholds and weights.
// A nil embedder is treated as NullEmbedder.
func New(lib *catalog.Library, embedder Embedder, vs *VectorStore) *Router {
	if embedder == nil {
		embedder = NullEmbedder{}
	}
	return &Router{
		Lib:                 lib,
		Embedder:            embedder,
		VectorStore:         vs,
		ImmediateThreshold:  DefaultImmediateThreshold,
		SuggestionThreshold: DefaultSuggestionThreshold,
		KeywordWeight:       DefaultKeywordWeight,
		EmbeddingWeight:     DefaultEmbeddingWeight,
	}
}

// Route scores query against every profile in r.Lib and returns a
// RouteDecision. An empty query or an empty profile list always routes
// to chat.
func (r *Router) Route(ctx context.Context, requestID, query string) (*RouteDecision, error) {
	start := time.Now()
	profiles := r.Lib.Profiles()

	if strings.TrimSpace(query) == "" || len(profiles) == 0 {
		return &RouteDecision{
			RequestID:     requestID,
			Query:         query,
			Mode:          ModeChat,
			RoutingTimeMs: elapsedMs(start),
		}, nil
	}

	var queryEmbedding []float64
	if r.Embedder != nil {
		vec, err := r.Embedder.Embed(ctx, query)
		if err == nil {
			queryEmbedding = vec
		}
	}

	candidates := make([]ProfileMatch, 0, len(profiles))
	for _, p := range profiles {
		candidates = append(candidates, r.scoreProfile(p, query, queryEmbedding))
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		pi, _ := r.Lib.Profile(candidates[i].ProfileID)
		pj, _ := r.Lib.Profile(candidates[j].ProfileID)
		if pi.Priority != pj.Priority {
			return pi.Priority > pj.Priority
		}
		return candidates[i].ProfileID < candidates[j].ProfileID
	})

	decision := &RouteDecision{
		RequestID:     requestID,
		Query:         query,
		Candidates:    candidates,
		RoutingTimeMs: elapsedMs(start),
	}

	selected := r.firstSelectable(candidates)
	if selected == nil {
		decision.Mode = ModeChat
		return decision, nil
	}

	decision.SelectedProfile = selected.ProfileID
	decision.Mode = activationMode(selected.Score, r.ImmediateThreshold, r.SuggestionThreshold)
	return decision, nil
}

// firstSelectable returns the best-scoring candidate whose profile has
// a non-empty match list; a profile with an empty match list is never
// selectable regardless of score.
func (r *Router) firstSelectable(candidates []ProfileMatch) *ProfileMatch {
	for i := range candidates {
		p, ok := r.Lib.Profile(candidates[i].ProfileID)
		if ok && len(p.Match) > 0 {
			return &candidates[i]
		}
	}
	return nil
}

func activationMode(score, immediate, suggestion float64) ActivationMode {
	switch {
	case score >= immediate:
		return ModeImmediate
	case score >= suggestion:
		return ModeSuggestion
	default:
		return ModeChat
	}
}

func (r *Router) scoreProfile(p catalog.Profile, query string, queryEmbedding []float64) ProfileMatch {
	keyword := keywordScore(p.Match, query)

	match := ProfileMatch{ProfileID: p.Name, KeywordScore: keyword}

	if queryEmbedding != nil {
		if entry, ok := r.VectorStore.EntryFor(p.Name); ok && len(entry.Embedding) > 0 {
			if sim, err := CosineSimilarity(queryEmbedding, entry.Embedding); err == nil {
				match.EmbeddingScore = sim
				match.HasEmbedding = true
			}
		}
	}

	if match.HasEmbedding {
		match.Score = r.KeywordWeight*match.KeywordScore + r.EmbeddingWeight*match.EmbeddingScore
	} else {
		match.Score = match.KeywordScore
	}
	return match
}

// keywordScore scores pattern matches: each pattern
// contributes 1/n_patterns when it matches, capped at 1.0. Single-word
// patterns are word-boundary anchored; multi-word phrases match as a
// case-insensitive literal substring.
func keywordScore(patterns []string, query string) float64 {
	if len(patterns) == 0 {
		return 0
	}

	matches := 0
	for _, p := range patterns {
		if patternMatches(p, query) {
			matches++
		}
	}

	score := float64(matches) / float64(len(patterns))
	if score > 1.0 {
		return 1.0
	}
	return score
}

func patternMatches(pattern, query string) bool {
	trimmed := strings.TrimSpace(pattern)
	if trimmed == "" {
		return false
	}
	if strings.ContainsAny(trimmed, " \t") {
		return strings.Contains(strings.ToLower(query), strings.ToLower(trimmed))
	}

	re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(trimmed) + `\b`)
	if err != nil {
		return strings.Contains(strings.ToLower(query), strings.ToLower(trimmed))
	}
	return re.MatchString(query)
}

func elapsedMs(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}

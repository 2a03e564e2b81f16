package search

import (
	"sort"
	"strings"

	"github.com/engram-ai/engram-go/internal/models"
)

// Keyword boost factors. A direct text hit triples the score; chunk records
// get a further boost over main records because a matching chunk is the
// passage the caller actually wants.
const (
	keywordMatchBoost = 3.0
	chunkBoost        = 1.5
	mainBoost         = 1.2

	// rescueFloor is the minimum vector similarity at which a strong
	// lexical hit can rescue a candidate below the nominal threshold.
	rescueFloor = 0.3
)

// ScoredCandidate pairs a record with its request-scoped scores. Neither
// score is ever persisted.
type ScoredCandidate struct {
	Record       models.SearchableRecord `json:"record"`
	VectorScore  float64                 `json:"vectorScore"`
	KeywordScore float64                 `json:"keywordScore"`
}

// CombinedScore is the final ordering key.
func (c ScoredCandidate) CombinedScore() float64 {
	return c.VectorScore * c.KeywordScore
}

// KeywordScore computes the lexical-relevance boost for a record against the
// query text. Baseline 1.0; x3 on a case-insensitive containment hit; a
// further x1.5 for chunk records or x1.2 for main records.
func KeywordScore(rec models.SearchableRecord, queryText string) float64 {
	score := 1.0
	if queryText != "" && strings.Contains(strings.ToLower(rec.Content.Text), strings.ToLower(queryText)) {
		score *= keywordMatchBoost
	}
	switch {
	case rec.IsChunk:
		score *= chunkBoost
	case rec.IsMain:
		score *= mainBoost
	}
	return score
}

// Accept decides whether a candidate makes the result set: either the vector
// similarity clears the threshold outright, or a lexical hit rescues a
// moderate vector match. NaN vector scores fail both branches.
func Accept(c ScoredCandidate, threshold float64) bool {
	if c.VectorScore >= threshold {
		return true
	}
	return c.KeywordScore > 1.0 && c.VectorScore >= rescueFloor
}

// RankCandidates applies the hybrid scoring shared by the native and
// fallback paths: compute keyword boosts, drop candidates that fail the
// acceptance rule, order by combined score descending, truncate to limit.
func RankCandidates(candidates []ScoredCandidate, queryText string, threshold float64, limit int) []ScoredCandidate {
	accepted := make([]ScoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		c.KeywordScore = KeywordScore(c.Record, queryText)
		if Accept(c, threshold) {
			accepted = append(accepted, c)
		}
	}

	sort.SliceStable(accepted, func(i, j int) bool {
		return accepted[i].CombinedScore() > accepted[j].CombinedScore()
	})

	if limit > 0 && len(accepted) > limit {
		accepted = accepted[:limit]
	}
	return accepted
}

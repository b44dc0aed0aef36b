package scoring

import (
	"fmt"
	"sort"
	"strings"
)

// ScoredCandidate pairs a candidate identifier with its latest score.
type ScoredCandidate struct {
	CandidateID string         `json:"candidate_id"`
	Name        string         `json:"name"`
	Score       CandidateScore `json:"score"`
}

// RankedCandidate is a ScoredCandidate with its position and a short explanation.
type RankedCandidate struct {
	ScoredCandidate
	Rank  int    `json:"rank"`
	Notes string `json:"notes"`
}

// Rank orders candidates by overall score (descending), breaking ties by the
// earlier score, and assigns 1-based ranks.
func Rank(candidates []ScoredCandidate) []RankedCandidate {
	sorted := make([]ScoredCandidate, len(candidates))
	copy(sorted, candidates)

	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Score.OverallScore != sorted[j].Score.OverallScore {
			return sorted[i].Score.OverallScore > sorted[j].Score.OverallScore
		}
		return sorted[i].Score.CreatedAt.Before(sorted[j].Score.CreatedAt)
	})

	ranked := make([]RankedCandidate, len(sorted))
	for i, c := range sorted {
		ranked[i] = RankedCandidate{
			ScoredCandidate: c,
			Rank:            i + 1,
			Notes:           generateNotes(c.Score),
		}
	}
	return ranked
}

// generateNotes creates a brief explanation of the ranking.
func generateNotes(score CandidateScore) string {
	var parts []string

	switch {
	case score.OverallScore >= 85:
		parts = append(parts, "Strong overall match")
	case score.OverallScore >= 70:
		parts = append(parts, "Good overall match")
	case score.OverallScore >= 50:
		parts = append(parts, "Partial match")
	default:
		parts = append(parts, "Weak match")
	}

	name, weakest := weakestDimension(score.Dimensions())
	if weakest.Score < 100 {
		parts = append(parts, fmt.Sprintf("Weakest area: %s (%s)", name, formatNumber(weakest.Score)))
	}

	if n := len(score.Recommendations); n > 0 {
		parts = append(parts, fmt.Sprintf("%d follow-up recommendation(s)", n))
	}

	return strings.Join(parts, ". ")
}

// weakestDimension returns the lowest-scoring deterministic dimension.
func weakestDimension(dims Dimensions) (string, DimensionResult) {
	ordered := []struct {
		name   string
		result DimensionResult
	}{
		{"experience", dims.Experience},
		{"skills", dims.Skills},
		{"education", dims.Education},
		{"location", dims.Location},
		{"salary", dims.Salary},
	}

	lowest := ordered[0]
	for _, d := range ordered[1:] {
		if d.result.Score < lowest.result.Score {
			lowest = d
		}
	}
	return lowest.name, lowest.result
}

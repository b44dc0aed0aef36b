package scoring

import (
	"fmt"
	"math"
	"time"
)

// DefaultAIAnalysisScore is used for the AI dimension when no external score exists.
const DefaultAIAnalysisScore = 50.0

// Recommendation thresholds. A dimension below its threshold adds a fixed message.
const (
	experienceThreshold = 70
	skillsThreshold     = 60
	locationThreshold   = 50
	salaryThreshold     = 60
)

// Recommendation messages paired with the thresholds above.
const (
	experienceRecommendation = "Consider candidates with experience closer to the required range"
	skillsRecommendation     = "Candidate may need training in required skills"
	locationRecommendation   = "Discuss relocation or remote work options"
	salaryRecommendation     = "Salary expectations may need negotiation"
)

// Aggregator combines dimension scores into a CandidateScore.
type Aggregator struct {
	calc *Calculator
	now  func() time.Time
}

// NewAggregator creates an Aggregator. A nil calculator uses the zero Calculator.
func NewAggregator(calc *Calculator) *Aggregator {
	if calc == nil {
		calc = &Calculator{}
	}
	return &Aggregator{calc: calc, now: time.Now}
}

// Aggregate combines the six dimensions with weights. The weighted sum is always
// divided by 100, so weights that do not total 100 scale the result.
func (a *Aggregator) Aggregate(dims Dimensions, weights ScoringWeights) CandidateScore {
	weighted := dims.Experience.Score*weights.Experience +
		dims.Skills.Score*weights.Skills +
		dims.Education.Score*weights.Education +
		dims.Location.Score*weights.Location +
		dims.Salary.Score*weights.Salary +
		dims.AIAnalysis.Score*weights.AIAnalysis

	return CandidateScore{
		Experience:      dims.Experience,
		Skills:          dims.Skills,
		Education:       dims.Education,
		Location:        dims.Location,
		Salary:          dims.Salary,
		AIAnalysis:      dims.AIAnalysis,
		OverallScore:    int(math.Round(weighted / 100)),
		Recommendations: recommendationsFor(dims),
		CreatedAt:       a.now().UTC(),
	}
}

// Score computes all dimensions for the candidate and job and aggregates them.
// aiScore is an externally produced analysis score; nil uses DefaultAIAnalysisScore.
func (a *Aggregator) Score(candidate CandidateProfile, job JobProfile, weights ScoringWeights, aiScore *float64) CandidateScore {
	dims := a.calc.Dimensions(candidate, job)
	dims.AIAnalysis = AIAnalysisResult(aiScore)
	return a.Aggregate(dims, weights)
}

// AIAnalysisResult wraps an external AI score as a dimension result.
func AIAnalysisResult(aiScore *float64) DimensionResult {
	if aiScore == nil {
		return DimensionResult{Score: DefaultAIAnalysisScore, Details: "No AI analysis available"}
	}
	score := clampScore(*aiScore)
	return DimensionResult{Score: score, Details: fmt.Sprintf("AI analysis score %s", formatNumber(score))}
}

// recommendationsFor returns the fixed messages for dimensions below threshold.
func recommendationsFor(dims Dimensions) []string {
	recs := []string{}
	if dims.Experience.Score < experienceThreshold {
		recs = append(recs, experienceRecommendation)
	}
	if dims.Skills.Score < skillsThreshold {
		recs = append(recs, skillsRecommendation)
	}
	if dims.Location.Score < locationThreshold {
		recs = append(recs, locationRecommendation)
	}
	if dims.Salary.Score < salaryThreshold {
		recs = append(recs, salaryRecommendation)
	}
	return recs
}

// clampScore limits a score to [0, 100].
func clampScore(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(100, v))
}

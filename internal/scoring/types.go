// Package scoring computes deterministic candidate-to-job match scores and parses
// free-text model output into structured candidate analyses.
package scoring

import (
	"strings"
	"time"
)

// Education describes a candidate's highest relevant education entry.
type Education struct {
	Degree      string `json:"degree,omitempty"`
	Field       string `json:"field,omitempty"`
	Institution string `json:"institution,omitempty"`
}

// IsZero reports whether no education information is present.
func (e Education) IsZero() bool {
	return e.Degree == "" && e.Field == "" && e.Institution == ""
}

// CandidateProfile holds the candidate attributes used for scoring.
type CandidateProfile struct {
	YearsOfExperience float64   `json:"years_of_experience"`
	Skills            []string  `json:"skills"`
	Location          string    `json:"location"`
	DesiredSalaryMin  *float64  `json:"desired_salary_min,omitempty"`
	DesiredSalaryMax  *float64  `json:"desired_salary_max,omitempty"`
	Education         Education `json:"education"`
}

// JobProfile holds the job attributes used for scoring.
type JobProfile struct {
	MinExperience float64  `json:"min_experience"`
	MaxExperience float64  `json:"max_experience"`
	Requirements  []string `json:"requirements"`
	Location      string   `json:"location"`
	IsRemoteOK    bool     `json:"is_remote_ok"`
	SalaryMin     float64  `json:"salary_min"`
	SalaryMax     float64  `json:"salary_max"`

	// Optional education requirements consumed by rubric-based education scorers.
	MinDegree       string   `json:"min_degree,omitempty"`
	PreferredFields []string `json:"preferred_fields,omitempty"`
}

// ScoringWeights are per-dimension weights, each conceptually 0-100.
// They are not required to sum to 100.
type ScoringWeights struct {
	Experience float64 `json:"experience" mapstructure:"experience"`
	Skills     float64 `json:"skills" mapstructure:"skills"`
	Location   float64 `json:"location" mapstructure:"location"`
	Education  float64 `json:"education" mapstructure:"education"`
	Salary     float64 `json:"salary" mapstructure:"salary"`
	AIAnalysis float64 `json:"ai_analysis" mapstructure:"ai_analysis"`
}

// DefaultWeights returns the weight set used when none has been configured.
func DefaultWeights() ScoringWeights {
	return ScoringWeights{
		Experience: 25,
		Skills:     30,
		Education:  15,
		Location:   10,
		Salary:     10,
		AIAnalysis: 10,
	}
}

// Sum returns the total of all weights.
func (w ScoringWeights) Sum() float64 {
	return w.Experience + w.Skills + w.Location + w.Education + w.Salary + w.AIAnalysis
}

// DimensionResult is the score and rationale for a single dimension.
type DimensionResult struct {
	Score   float64 `json:"score"`
	Details string  `json:"details"`
}

// Dimensions groups the six per-dimension results fed into the aggregator.
type Dimensions struct {
	Experience DimensionResult `json:"experience"`
	Skills     DimensionResult `json:"skills"`
	Education  DimensionResult `json:"education"`
	Location   DimensionResult `json:"location"`
	Salary     DimensionResult `json:"salary"`
	AIAnalysis DimensionResult `json:"ai_analysis"`
}

// CandidateScore is the aggregate result of one scoring request.
type CandidateScore struct {
	Experience      DimensionResult `json:"experience"`
	Skills          DimensionResult `json:"skills"`
	Education       DimensionResult `json:"education"`
	Location        DimensionResult `json:"location"`
	Salary          DimensionResult `json:"salary"`
	AIAnalysis      DimensionResult `json:"ai_analysis"`
	OverallScore    int             `json:"overall_score"`
	Recommendations []string        `json:"recommendations"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Dimensions returns the per-dimension results of the score.
func (s *CandidateScore) Dimensions() Dimensions {
	return Dimensions{
		Experience: s.Experience,
		Skills:     s.Skills,
		Education:  s.Education,
		Location:   s.Location,
		Salary:     s.Salary,
		AIAnalysis: s.AIAnalysis,
	}
}

// SetDimensions copies per-dimension results into the score.
func (s *CandidateScore) SetDimensions(d Dimensions) {
	s.Experience = d.Experience
	s.Skills = d.Skills
	s.Education = d.Education
	s.Location = d.Location
	s.Salary = d.Salary
	s.AIAnalysis = d.AIAnalysis
}

// Recommendation is the model's hiring recommendation for a candidate.
type Recommendation string

// Recommendation values
const (
	StrongMatch    Recommendation = "STRONG_MATCH"
	GoodMatch      Recommendation = "GOOD_MATCH"
	PotentialMatch Recommendation = "POTENTIAL_MATCH"
	PoorMatch      Recommendation = "POOR_MATCH"
	RequiresReview Recommendation = "REQUIRES_REVIEW"
)

// ParseRecommendation maps free text onto a Recommendation.
// Unknown or empty values map to RequiresReview.
func ParseRecommendation(s string) Recommendation {
	normalized := strings.ToUpper(strings.TrimSpace(s))
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)

	switch Recommendation(normalized) {
	case StrongMatch, GoodMatch, PotentialMatch, PoorMatch, RequiresReview:
		return Recommendation(normalized)
	default:
		return RequiresReview
	}
}

// Valid reports whether r is one of the known values.
func (r Recommendation) Valid() bool {
	switch r {
	case StrongMatch, GoodMatch, PotentialMatch, PoorMatch, RequiresReview:
		return true
	}
	return false
}

// ExtractedAnalysis is the structured form of a model's free-text candidate analysis.
type ExtractedAnalysis struct {
	Name           *string        `json:"name,omitempty"`
	Email          *string        `json:"email,omitempty"`
	Phone          *string        `json:"phone,omitempty"`
	Skills         []string       `json:"skills,omitempty"`
	Experience     *string        `json:"experience,omitempty"`
	Summary        *string        `json:"summary,omitempty"`
	OverallScore   float64        `json:"overallScore"`
	Recommendation Recommendation `json:"recommendation"`
	KeyStrengths   []string       `json:"keyStrengths"`
	Concerns       []string       `json:"concerns"`

	// Degraded is set when the text could not be parsed and the fallback shape was returned.
	Degraded bool `json:"degraded,omitempty"`
}

package scoring

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Neutral scores used when an input is missing.
const (
	NeutralScore          = 50.0
	DefaultEducationScore = 75.0
)

// Calculator computes per-dimension match scores. The zero value is ready to use
// and scores education with FixedEducationScorer.
type Calculator struct {
	Education EducationScorer
}

// NewCalculator returns a Calculator using the given education scorer.
// A nil scorer falls back to the fixed neutral score.
func NewCalculator(education EducationScorer) *Calculator {
	return &Calculator{Education: education}
}

// Experience scores candidate years against the job's experience band.
func (c *Calculator) Experience(candidateYears, jobMin, jobMax float64) DimensionResult {
	switch {
	case candidateYears >= jobMin && candidateYears <= jobMax:
		return DimensionResult{
			Score:   100,
			Details: fmt.Sprintf("Perfect experience match (%s years)", formatNumber(candidateYears)),
		}
	case candidateYears > jobMax:
		over := candidateYears - jobMax
		return DimensionResult{
			Score: math.Max(60, 100-over*10),
			Details: fmt.Sprintf("Overqualified by %s years (%s years vs max %s)",
				formatNumber(over), formatNumber(candidateYears), formatNumber(jobMax)),
		}
	default:
		under := jobMin - candidateYears
		return DimensionResult{
			Score: math.Max(20, 100-under*15),
			Details: fmt.Sprintf("Underqualified by %s years (%s years vs min %s)",
				formatNumber(under), formatNumber(candidateYears), formatNumber(jobMin)),
		}
	}
}

// Skills scores candidate skills against job requirements. A requirement is matched
// when any candidate skill contains it or is contained by it, ignoring case.
func (c *Calculator) Skills(candidateSkills, requirements []string) DimensionResult {
	if len(candidateSkills) == 0 {
		return DimensionResult{Score: 0, Details: "No skills listed"}
	}

	if len(requirements) == 0 {
		return DimensionResult{Score: NeutralScore, Details: "No specific requirements listed"}
	}

	skills, reqs := lowerTerms(candidateSkills), lowerTerms(requirements)
	matched := 0
	for _, req := range reqs {
		for _, skill := range skills {
			if strings.Contains(req, skill) || strings.Contains(skill, req) {
				matched++
				break
			}
		}
	}

	score := math.Min(100, float64(matched)/float64(len(reqs))*100)
	return DimensionResult{
		Score:   score,
		Details: fmt.Sprintf("%d/%d skills matched", matched, len(reqs)),
	}
}

// Location scores the candidate's location against the job's. Remote jobs always
// match once both locations are known; otherwise only the city part is compared.
func (c *Calculator) Location(candidateLocation, jobLocation string, isRemoteOK bool) DimensionResult {
	if strings.TrimSpace(candidateLocation) == "" || strings.TrimSpace(jobLocation) == "" {
		return DimensionResult{Score: NeutralScore, Details: "Location information incomplete"}
	}

	if isRemoteOK {
		return DimensionResult{Score: 100, Details: "Remote work available"}
	}

	if cityOf(candidateLocation) == cityOf(jobLocation) {
		return DimensionResult{Score: 100, Details: "Location match"}
	}

	return DimensionResult{
		Score:   30,
		Details: fmt.Sprintf("Different location (%s vs %s)", strings.TrimSpace(candidateLocation), strings.TrimSpace(jobLocation)),
	}
}

// Salary scores the midpoint of the candidate's expectations against the job's band.
func (c *Calculator) Salary(candidateMin, candidateMax, jobMin, jobMax float64) DimensionResult {
	if candidateMin <= 0 || candidateMax <= 0 || jobMin <= 0 || jobMax <= 0 {
		return DimensionResult{Score: NeutralScore, Details: "Salary information incomplete"}
	}

	mid := (candidateMin + candidateMax) / 2

	switch {
	case mid >= jobMin && mid <= jobMax:
		return DimensionResult{Score: 100, Details: "Salary expectations within budget"}
	case mid < jobMin:
		return DimensionResult{Score: 80, Details: "Salary expectations below budget (may accept lower salary)"}
	default:
		overPct := (mid - jobMax) / jobMax * 100
		return DimensionResult{
			Score:   math.Max(20, 100-overPct),
			Details: fmt.Sprintf("Salary expectations %.1f%% over budget", overPct),
		}
	}
}

// EducationResult scores education through the configured EducationScorer.
func (c *Calculator) EducationResult(education Education, job JobProfile) DimensionResult {
	scorer := c.Education
	if scorer == nil {
		scorer = FixedEducationScorer{}
	}
	return scorer.ScoreEducation(education, job)
}

// Dimensions computes the five deterministic dimensions for a candidate and job.
// The AI analysis dimension is left zero for the caller to fill.
func (c *Calculator) Dimensions(candidate CandidateProfile, job JobProfile) Dimensions {
	return Dimensions{
		Experience: c.Experience(candidate.YearsOfExperience, job.MinExperience, job.MaxExperience),
		Skills:     c.Skills(candidate.Skills, job.Requirements),
		Education:  c.EducationResult(candidate.Education, job),
		Location:   c.Location(candidate.Location, job.Location, job.IsRemoteOK),
		Salary: c.Salary(valueOrZero(candidate.DesiredSalaryMin), valueOrZero(candidate.DesiredSalaryMax),
			job.SalaryMin, job.SalaryMax),
	}
}

// lowerTerms lower-cases terms. Blank terms are kept: an empty requirement is a
// substring of every skill. Request boundaries trim blanks before scoring.
func lowerTerms(terms []string) []string {
	out := make([]string, len(terms))
	for i, t := range terms {
		out[i] = strings.ToLower(t)
	}
	return out
}

// cityOf returns the lower-cased text before the first comma.
func cityOf(location string) string {
	city, _, _ := strings.Cut(location, ",")
	return strings.ToLower(strings.TrimSpace(city))
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// formatNumber prints whole numbers without a fractional part.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

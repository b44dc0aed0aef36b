package scoring

import (
	"fmt"
	"math"
	"strings"
)

// EducationScorer scores a candidate's education against a job.
type EducationScorer interface {
	ScoreEducation(education Education, job JobProfile) DimensionResult
}

// FixedEducationScorer returns the same neutral score for every candidate.
type FixedEducationScorer struct{}

// ScoreEducation implements EducationScorer.
func (FixedEducationScorer) ScoreEducation(_ Education, _ JobProfile) DimensionResult {
	return DimensionResult{Score: DefaultEducationScore, Details: "Education assessment"}
}

// degreeRank maps degree types to numeric ranks for comparison
var degreeRank = map[string]int{
	"associate": 1,
	"bachelor":  2,
	"master":    3,
	"phd":       4,
}

// relatedFields lists fields that earn partial credit against a preferred field.
var relatedFields = map[string][]string{
	"computer science":       {"software engineering", "computer engineering", "information technology", "cs"},
	"software engineering":   {"computer science", "computer engineering", "cs"},
	"data science":           {"statistics", "mathematics", "computer science", "machine learning"},
	"statistics":             {"mathematics", "data science", "economics"},
	"mathematics":            {"statistics", "physics", "computer science"},
	"electrical engineering": {"computer engineering", "electronics"},
}

// DegreeRubricScorer scores education by degree level (60%) and field (40%)
// against the job's MinDegree and PreferredFields. Jobs without either requirement
// fall back to the fixed neutral score.
type DegreeRubricScorer struct{}

// ScoreEducation implements EducationScorer.
func (DegreeRubricScorer) ScoreEducation(education Education, job JobProfile) DimensionResult {
	if job.MinDegree == "" && len(job.PreferredFields) == 0 {
		return FixedEducationScorer{}.ScoreEducation(education, job)
	}
	if education.IsZero() {
		return DimensionResult{Score: NeutralScore, Details: "Education information incomplete"}
	}

	score := 0.0
	weights := 0.0
	var notes []string

	if job.MinDegree != "" {
		weights += 0.6
		reqRank := degreeRank[DegreeLevel(job.MinDegree)]
		eduRank := degreeRank[DegreeLevel(education.Degree)]

		switch {
		case eduRank >= reqRank:
			score += 0.6
			notes = append(notes, "meets degree requirement")
		case eduRank == reqRank-1:
			score += 0.3
			notes = append(notes, "one level below required degree")
		default:
			notes = append(notes, "below required degree")
		}
	}

	if len(job.PreferredFields) > 0 {
		weights += 0.4
		fieldScore := fieldMatchScore(education.Field, job.PreferredFields)
		score += 0.4 * fieldScore
		switch fieldScore {
		case 1.0:
			notes = append(notes, "preferred field")
		case 0.7:
			notes = append(notes, "related field")
		default:
			notes = append(notes, "unrelated field")
		}
	}

	return DimensionResult{
		Score:   math.Round(score / weights * 100),
		Details: fmt.Sprintf("Education: %s", strings.Join(notes, ", ")),
	}
}

// DegreeLevel maps degree wording ("Master of Science", "B.S.", "PhD") onto
// associate, bachelor, master or phd. Anything else yields "".
func DegreeLevel(degree string) string {
	d := strings.ToLower(strings.TrimSpace(degree))
	switch {
	case strings.Contains(d, "phd"), strings.Contains(d, "ph.d"), strings.Contains(d, "doctor"):
		return "phd"
	case strings.Contains(d, "master"), strings.HasPrefix(d, "ms"), strings.HasPrefix(d, "ma "), strings.Contains(d, "mba"):
		return "master"
	case strings.Contains(d, "bachelor"), strings.HasPrefix(d, "bs"), strings.HasPrefix(d, "ba "), strings.HasPrefix(d, "b.s"),
		strings.Contains(d, "undergraduate"):
		return "bachelor"
	case strings.Contains(d, "associate"):
		return "associate"
	}
	return ""
}

// fieldMatchScore computes how well the education field matches preferred fields
func fieldMatchScore(field string, preferredFields []string) float64 {
	fieldLower := strings.ToLower(strings.TrimSpace(field))
	if fieldLower == "" {
		return 0.2
	}

	for _, preferred := range preferredFields {
		preferredLower := strings.ToLower(preferred)
		if strings.Contains(fieldLower, preferredLower) || strings.Contains(preferredLower, fieldLower) {
			return 1.0
		}
	}

	for _, preferred := range preferredFields {
		if related, ok := relatedFields[strings.ToLower(preferred)]; ok {
			for _, r := range related {
				if strings.Contains(fieldLower, r) || strings.Contains(r, fieldLower) {
					return 0.7
				}
			}
		}
	}

	return 0.2
}

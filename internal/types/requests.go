package types

import (
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/recruit-scorer/internal/scoring"
)

// ErrExperienceRange is returned when max_experience is set below min_experience.
var ErrExperienceRange = errors.New("profile.max_experience must be greater than or equal to min_experience")

// ErrSalaryRange is returned when a salary upper bound is below its lower bound.
var ErrSalaryRange = errors.New("salary maximum must be greater than or equal to the minimum")

// JobProfileInput is the scoring-relevant part of a job in request bodies.
type JobProfileInput struct {
	MinExperience   float64  `json:"min_experience" validate:"gte=0,lte=60"`
	MaxExperience   float64  `json:"max_experience" validate:"gte=0,lte=60"`
	Requirements    []string `json:"requirements" validate:"max=100,dive,max=100"`
	Location        string   `json:"location" validate:"max=200"`
	IsRemoteOK      bool     `json:"is_remote_ok"`
	SalaryMin       float64  `json:"salary_min" validate:"gte=0"`
	SalaryMax       float64  `json:"salary_max" validate:"gte=0"`
	MinDegree       string   `json:"min_degree,omitempty" validate:"omitempty,oneof=associate bachelor master phd"`
	PreferredFields []string `json:"preferred_fields,omitempty" validate:"max=20,dive,max=100"`
}

// Validate checks field rules and that ranges are ordered.
func (p *JobProfileInput) Validate() error {
	if err := validate.Struct(p); err != nil {
		return err
	}
	return p.checkRanges()
}

func (p *JobProfileInput) checkRanges() error {
	if p.MaxExperience > 0 && p.MaxExperience < p.MinExperience {
		return ErrExperienceRange
	}
	if p.SalaryMax > 0 && p.SalaryMax < p.SalaryMin {
		return ErrSalaryRange
	}
	return nil
}

// ToProfile converts the input into a scoring.JobProfile, trimming blank requirements.
func (p JobProfileInput) ToProfile() scoring.JobProfile {
	return scoring.JobProfile{
		MinExperience:   p.MinExperience,
		MaxExperience:   p.MaxExperience,
		Requirements:    trimAll(p.Requirements),
		Location:        strings.TrimSpace(p.Location),
		IsRemoteOK:      p.IsRemoteOK,
		SalaryMin:       p.SalaryMin,
		SalaryMax:       p.SalaryMax,
		MinDegree:       p.MinDegree,
		PreferredFields: trimAll(p.PreferredFields),
	}
}

// CandidateProfileInput is the scoring-relevant part of a candidate in request bodies.
type CandidateProfileInput struct {
	YearsOfExperience float64           `json:"years_of_experience" validate:"gte=0,lte=80"`
	Skills            []string          `json:"skills" validate:"max=200,dive,max=100"`
	Location          string            `json:"location" validate:"max=200"`
	DesiredSalaryMin  *float64          `json:"desired_salary_min,omitempty" validate:"omitempty,gte=0"`
	DesiredSalaryMax  *float64          `json:"desired_salary_max,omitempty" validate:"omitempty,gte=0"`
	Education         scoring.Education `json:"education"`
}

// Validate checks field rules and that the salary range is ordered.
func (p *CandidateProfileInput) Validate() error {
	if err := validate.Struct(p); err != nil {
		return err
	}
	return p.checkRanges()
}

func (p *CandidateProfileInput) checkRanges() error {
	if p.DesiredSalaryMin != nil && p.DesiredSalaryMax != nil &&
		*p.DesiredSalaryMax > 0 && *p.DesiredSalaryMax < *p.DesiredSalaryMin {
		return ErrSalaryRange
	}
	return nil
}

// ToProfile converts the input into a scoring.CandidateProfile.
func (p CandidateProfileInput) ToProfile() scoring.CandidateProfile {
	return scoring.CandidateProfile{
		YearsOfExperience: p.YearsOfExperience,
		Skills:            trimAll(p.Skills),
		Location:          strings.TrimSpace(p.Location),
		DesiredSalaryMin:  p.DesiredSalaryMin,
		DesiredSalaryMax:  p.DesiredSalaryMax,
		Education:         p.Education,
	}
}

// WeightsInput is a scoring weight set in request bodies.
type WeightsInput struct {
	Experience float64 `json:"experience" validate:"gte=0,lte=100"`
	Skills     float64 `json:"skills" validate:"gte=0,lte=100"`
	Location   float64 `json:"location" validate:"gte=0,lte=100"`
	Education  float64 `json:"education" validate:"gte=0,lte=100"`
	Salary     float64 `json:"salary" validate:"gte=0,lte=100"`
	AIAnalysis float64 `json:"ai_analysis" validate:"gte=0,lte=100"`
}

// Validate validates the WeightsInput.
func (w *WeightsInput) Validate() error {
	return validate.Struct(w)
}

// ToWeights converts the input into scoring weights.
func (w WeightsInput) ToWeights() scoring.ScoringWeights {
	return scoring.ScoringWeights(w)
}

// JobRequest creates or replaces a job.
type JobRequest struct {
	Title       string          `json:"title" validate:"required,min=1,max=200"`
	Company     string          `json:"company" validate:"max=200"`
	Description string          `json:"description" validate:"max=20000"`
	Status      string          `json:"status,omitempty" validate:"omitempty,oneof=draft open closed"`
	SourceURL   string          `json:"source_url,omitempty" validate:"omitempty,url"`
	Profile     JobProfileInput `json:"profile"`
}

// Validate validates the JobRequest.
func (r *JobRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return err
	}
	return r.Profile.checkRanges()
}

// CandidateRequest creates or replaces a candidate.
type CandidateRequest struct {
	JobID      *uuid.UUID            `json:"job_id,omitempty"`
	Name       string                `json:"name" validate:"required,min=1,max=200"`
	Email      string                `json:"email,omitempty" validate:"omitempty,email"`
	Phone      string                `json:"phone,omitempty" validate:"max=50"`
	Profile    CandidateProfileInput `json:"profile"`
	ResumeText string                `json:"resume_text,omitempty" validate:"max=100000"`
}

// Validate validates the CandidateRequest.
func (r *CandidateRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return err
	}
	return r.Profile.checkRanges()
}

// ScoreCandidateRequest scores a stored candidate against a stored job.
type ScoreCandidateRequest struct {
	JobID uuid.UUID `json:"job_id" validate:"required"`
}

// Validate validates the ScoreCandidateRequest.
func (r *ScoreCandidateRequest) Validate() error {
	return validate.Struct(r)
}

// ScoreRequest is a stateless scoring request. Missing weights use the configured set.
type ScoreRequest struct {
	Candidate CandidateProfileInput `json:"candidate"`
	Job       JobProfileInput       `json:"job"`
	Weights   *WeightsInput         `json:"weights,omitempty"`
	AIScore   *float64              `json:"ai_score,omitempty" validate:"omitempty,gte=0,lte=100"`
}

// Validate validates the ScoreRequest.
func (r *ScoreRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return err
	}
	if err := r.Candidate.checkRanges(); err != nil {
		return err
	}
	return r.Job.checkRanges()
}

// AnalyzeRequest asks the model to analyze resume text against a stored job or an inline one.
type AnalyzeRequest struct {
	ResumeText string           `json:"resume_text" validate:"required,max=100000"`
	JobID      *uuid.UUID       `json:"job_id,omitempty" validate:"required_without=Job"`
	JobTitle   string           `json:"job_title,omitempty" validate:"max=200"`
	Job        *JobProfileInput `json:"job,omitempty" validate:"required_without=JobID"`
}

// Validate validates the AnalyzeRequest.
func (r *AnalyzeRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return err
	}
	if r.Job != nil {
		return r.Job.checkRanges()
	}
	return nil
}

// BulkResume is one resume in a bulk upload.
type BulkResume struct {
	Name       string `json:"name" validate:"max=200"`
	Email      string `json:"email,omitempty" validate:"omitempty,email"`
	ResumeText string `json:"resume_text" validate:"required,max=100000"`
}

// BulkUploadRequest analyzes and scores a batch of resumes against one job.
type BulkUploadRequest struct {
	Resumes []BulkResume `json:"resumes" validate:"required,min=1,max=100,dive"`
}

// Validate validates the BulkUploadRequest.
func (r *BulkUploadRequest) Validate() error {
	return validate.Struct(r)
}

// ImportJobRequest imports a job posting from a URL.
type ImportJobRequest struct {
	URL        string `json:"url" validate:"required,url"`
	UseBrowser bool   `json:"use_browser,omitempty"`
	Save       bool   `json:"save,omitempty"`
}

// Validate validates the ImportJobRequest.
func (r *ImportJobRequest) Validate() error {
	return validate.Struct(r)
}

func trimAll(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}

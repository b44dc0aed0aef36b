package db

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/recruit-scorer/internal/scoring"
)

// JobStatus is the lifecycle state of a job opening.
type JobStatus string

// Job statuses
const (
	JobStatusDraft  JobStatus = "draft"
	JobStatusOpen   JobStatus = "open"
	JobStatusClosed JobStatus = "closed"
)

// Valid reports whether s is a known status.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusDraft, JobStatusOpen, JobStatusClosed:
		return true
	}
	return false
}

// Job is a job opening and the attributes candidates are scored against.
type Job struct {
	ID          uuid.UUID          `json:"id"`
	Title       string             `json:"title"`
	Company     string             `json:"company"`
	Description string             `json:"description,omitempty"`
	Status      JobStatus          `json:"status"`
	SourceURL   string             `json:"source_url,omitempty"`
	Profile     scoring.JobProfile `json:"profile"`
	CreatedBy   *uuid.UUID         `json:"created_by,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// Candidate is an applicant, optionally attached to a job.
type Candidate struct {
	ID         uuid.UUID                  `json:"id"`
	JobID      *uuid.UUID                 `json:"job_id,omitempty"`
	Name       string                     `json:"name"`
	Email      string                     `json:"email,omitempty"`
	Phone      string                     `json:"phone,omitempty"`
	Profile    scoring.CandidateProfile   `json:"profile"`
	ResumeText string                     `json:"-"`
	AIScore    *float64                   `json:"ai_score,omitempty"`
	Analysis   *scoring.ExtractedAnalysis `json:"analysis,omitempty"`
	CreatedAt  time.Time                  `json:"created_at"`
	UpdatedAt  time.Time                  `json:"updated_at"`
}

// ScoreRecord is one persisted scoring of a candidate against a job.
// Records are append-only.
type ScoreRecord struct {
	ID            uuid.UUID              `json:"id"`
	CandidateID   uuid.UUID              `json:"candidate_id"`
	CandidateName string                 `json:"candidate_name,omitempty"`
	JobID         uuid.UUID              `json:"job_id"`
	Score         scoring.CandidateScore `json:"score"`
	Weights       scoring.ScoringWeights `json:"weights"`
}

// User is an account allowed to manage jobs and candidates.
type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ListJobsOptions contains filters for listing jobs
type ListJobsOptions struct {
	Status *JobStatus
	Limit  int
	Offset int
}

// ListCandidatesOptions contains filters for listing candidates
type ListCandidatesOptions struct {
	JobID  *uuid.UUID
	Limit  int
	Offset int
}

// StringArray handles JSONB string arrays
type StringArray []string

// Scan implements the Scanner interface for StringArray
func (a *StringArray) Scan(src interface{}) error {
	if src == nil {
		*a = []string{}
		return nil
	}
	switch source := src.(type) {
	case []byte:
		return json.Unmarshal(source, a)
	case string:
		return json.Unmarshal([]byte(source), a)
	default:
		return errors.New("unsupported source type for StringArray")
	}
}

// Value implements the Valuer interface for StringArray
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(a)
}

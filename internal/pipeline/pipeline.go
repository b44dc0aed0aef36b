// Package pipeline orchestrates resume analysis, candidate scoring, bulk uploads and
// job posting imports on top of the store and the model gateway.
package pipeline

import (
	"errors"
)

var (
	// ErrCandidateNotFound is returned when a referenced candidate does not exist
	ErrCandidateNotFound = errors.New("candidate not found")
	// ErrJobNotFound is returned when a referenced job does not exist
	ErrJobNotFound = errors.New("job not found")
)

// Progress steps
const (
	StepStarted   = "started"
	StepAnalyze   = "analyze_resume"
	StepProfile   = "extract_profile"
	StepScore     = "score_candidate"
	StepItemDone  = "item_completed"
	StepItemError = "item_failed"
	StepCompleted = "completed"
	StepFetch     = "fetch_posting"
	StepParse     = "parse_posting"
)

// Progress categories
const (
	CategoryBulk   = "bulk_upload"
	CategoryImport = "job_import"
)

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	Step     string `json:"step"`
	Category string `json:"category"`
	Message  string `json:"message"`
	JobID    string `json:"job_id,omitempty"`
	Index    int    `json:"index,omitempty"`
	Total    int    `json:"total,omitempty"`
	Content  any    `json:"content,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// emit calls the progress callback if configured
func (cb ProgressCallback) emit(event ProgressEvent) {
	if cb != nil {
		cb(event)
	}
}

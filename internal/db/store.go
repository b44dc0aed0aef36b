package db

import (
	"context"

	"github.com/google/uuid"

	"github.com/jonathan/recruit-scorer/internal/scoring"
)

// Store is the persistence boundary used by the pipeline and the HTTP server.
// Get operations return (nil, nil) when the record does not exist.
type Store interface {
	CreateJob(ctx context.Context, job *Job) error
	GetJob(ctx context.Context, id uuid.UUID) (*Job, error)
	UpdateJob(ctx context.Context, job *Job) error
	DeleteJob(ctx context.Context, id uuid.UUID) error
	ListJobs(ctx context.Context, opts ListJobsOptions) ([]Job, int, error)

	CreateCandidate(ctx context.Context, c *Candidate) error
	GetCandidate(ctx context.Context, id uuid.UUID) (*Candidate, error)
	UpdateCandidate(ctx context.Context, c *Candidate) error
	DeleteCandidate(ctx context.Context, id uuid.UUID) error
	ListCandidates(ctx context.Context, opts ListCandidatesOptions) ([]Candidate, int, error)
	SetCandidateAnalysis(ctx context.Context, id uuid.UUID, analysis *scoring.ExtractedAnalysis) error

	SaveCandidateScore(ctx context.Context, rec *ScoreRecord) error
	ListCandidateScores(ctx context.Context, candidateID uuid.UUID) ([]ScoreRecord, error)
	LatestScoresForJob(ctx context.Context, jobID uuid.UUID) ([]ScoreRecord, error)

	GetScoringWeights(ctx context.Context) (*scoring.ScoringWeights, error)
	SaveScoringWeights(ctx context.Context, w scoring.ScoringWeights) error

	CreateUser(ctx context.Context, u *User) error
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
}

var (
	_ Store = (*DB)(nil)
	_ Store = (*MemoryStore)(nil)
)

// WeightsOrDefault returns the stored weights, or the defaults when none are saved.
func WeightsOrDefault(ctx context.Context, s Store) (scoring.ScoringWeights, error) {
	w, err := s.GetScoringWeights(ctx)
	if err != nil {
		return scoring.ScoringWeights{}, err
	}
	if w == nil {
		return scoring.DefaultWeights(), nil
	}
	return *w, nil
}

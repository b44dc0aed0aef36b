package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/recruit-scorer/internal/db"
	"github.com/jonathan/recruit-scorer/internal/logging"
	"github.com/jonathan/recruit-scorer/internal/observability"
	"github.com/jonathan/recruit-scorer/internal/scoring"
)

// Scorer computes and persists stored candidate scores.
type Scorer struct {
	store      db.Store
	aggregator *scoring.Aggregator
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewScorer creates a Scorer. metrics may be nil.
func NewScorer(store db.Store, aggregator *scoring.Aggregator, metrics *observability.Metrics, logger *zap.Logger) *Scorer {
	if aggregator == nil {
		aggregator = scoring.NewAggregator(nil)
	}
	return &Scorer{
		store:      store,
		aggregator: aggregator,
		metrics:    metrics,
		logger:     logging.OrNop(logger),
	}
}

// ScoreCandidate loads the candidate, the job and the configured weights
// concurrently, scores the candidate with its stored AI score and appends the
// result to the candidate's score history.
func (s *Scorer) ScoreCandidate(ctx context.Context, candidateID, jobID uuid.UUID) (*db.ScoreRecord, error) {
	g, gCtx := errgroup.WithContext(ctx)

	var (
		mu        sync.Mutex
		candidate *db.Candidate
		job       *db.Job
		weights   scoring.ScoringWeights
	)

	g.Go(func() error {
		c, err := s.store.GetCandidate(gCtx, candidateID)
		if err != nil {
			return fmt.Errorf("failed to load candidate: %w", err)
		}
		if c == nil {
			return fmt.Errorf("%w: %s", ErrCandidateNotFound, candidateID)
		}
		mu.Lock()
		candidate = c
		mu.Unlock()
		return nil
	})

	g.Go(func() error {
		j, err := s.store.GetJob(gCtx, jobID)
		if err != nil {
			return fmt.Errorf("failed to load job: %w", err)
		}
		if j == nil {
			return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
		}
		mu.Lock()
		job = j
		mu.Unlock()
		return nil
	})

	g.Go(func() error {
		w, err := db.WeightsOrDefault(gCtx, s.store)
		if err != nil {
			return fmt.Errorf("failed to load scoring weights: %w", err)
		}
		mu.Lock()
		weights = w
		mu.Unlock()
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	score := s.aggregator.Score(candidate.Profile, job.Profile, weights, candidate.AIScore)
	rec := &db.ScoreRecord{
		CandidateID:   candidate.ID,
		CandidateName: candidate.Name,
		JobID:         job.ID,
		Score:         score,
		Weights:       weights,
	}
	if err := s.store.SaveCandidateScore(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to save score: %w", err)
	}

	s.metrics.ObserveScore("stored", score)
	s.logger.Info("candidate scored",
		zap.String(logging.FieldCandidateID, candidate.ID.String()),
		zap.String(logging.FieldJobID, job.ID.String()),
		zap.Int("overall_score", score.OverallScore))

	return rec, nil
}

// Ranking returns the job's candidates ranked by their latest score.
func (s *Scorer) Ranking(ctx context.Context, jobID uuid.UUID) ([]scoring.RankedCandidate, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to load job: %w", err)
	}
	if job == nil {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}

	records, err := s.store.LatestScoresForJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to load scores: %w", err)
	}

	scored := make([]scoring.ScoredCandidate, len(records))
	for i, rec := range records {
		scored[i] = scoring.ScoredCandidate{
			CandidateID: rec.CandidateID.String(),
			Name:        rec.CandidateName,
			Score:       rec.Score,
		}
	}
	return scoring.Rank(scored), nil
}

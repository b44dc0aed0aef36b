package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/recruit-scorer/internal/scoring"
)

// SaveCandidateScore appends a score to the candidate's history.
func (db *DB) SaveCandidateScore(ctx context.Context, rec *ScoreRecord) error {
	dimensionsJSON, err := json.Marshal(rec.Score.Dimensions())
	if err != nil {
		return fmt.Errorf("failed to marshal dimensions: %w", err)
	}
	weightsJSON, err := json.Marshal(rec.Weights)
	if err != nil {
		return fmt.Errorf("failed to marshal weights: %w", err)
	}

	err = db.pool.QueryRow(ctx,
		`INSERT INTO candidate_scores (candidate_id, job_id, overall_score, dimensions, recommendations, weights, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, NOW()))
		 RETURNING id, created_at`,
		rec.CandidateID, rec.JobID, rec.Score.OverallScore, dimensionsJSON,
		StringArray(rec.Score.Recommendations), weightsJSON, nullableTime(rec.Score.CreatedAt),
	).Scan(&rec.ID, &rec.Score.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save candidate score: %w", err)
	}
	return nil
}

// ListCandidateScores returns a candidate's score history, newest first.
func (db *DB) ListCandidateScores(ctx context.Context, candidateID uuid.UUID) ([]ScoreRecord, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT s.id, s.candidate_id, c.name, s.job_id, s.overall_score, s.dimensions,
		        s.recommendations, s.weights, s.created_at
		 FROM candidate_scores s
		 JOIN candidates c ON c.id = s.candidate_id
		 WHERE s.candidate_id = $1
		 ORDER BY s.created_at DESC`,
		candidateID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidate scores: %w", err)
	}
	return collectScores(rows)
}

// LatestScoresForJob returns the most recent score of every candidate scored
// against the job.
func (db *DB) LatestScoresForJob(ctx context.Context, jobID uuid.UUID) ([]ScoreRecord, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT DISTINCT ON (s.candidate_id)
		        s.id, s.candidate_id, c.name, s.job_id, s.overall_score, s.dimensions,
		        s.recommendations, s.weights, s.created_at
		 FROM candidate_scores s
		 JOIN candidates c ON c.id = s.candidate_id
		 WHERE s.job_id = $1
		 ORDER BY s.candidate_id, s.created_at DESC`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list latest scores: %w", err)
	}
	return collectScores(rows)
}

func collectScores(rows pgx.Rows) ([]ScoreRecord, error) {
	defer rows.Close()

	records := []ScoreRecord{}
	for rows.Next() {
		var rec ScoreRecord
		var dimensionsJSON, weightsJSON []byte
		var recommendations StringArray
		err := rows.Scan(&rec.ID, &rec.CandidateID, &rec.CandidateName, &rec.JobID,
			&rec.Score.OverallScore, &dimensionsJSON, &recommendations, &weightsJSON, &rec.Score.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate score: %w", err)
		}

		var dims scoring.Dimensions
		if err := json.Unmarshal(dimensionsJSON, &dims); err != nil {
			return nil, fmt.Errorf("failed to parse score dimensions: %w", err)
		}
		rec.Score.SetDimensions(dims)
		rec.Score.Recommendations = recommendations
		if weightsJSON != nil {
			_ = json.Unmarshal(weightsJSON, &rec.Weights)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jonathan/recruit-scorer/internal/scoring"
)

const scoringWeightsKey = "scoring_weights"

// GetScoringWeights returns the saved weight set, or nil if none was saved.
func (db *DB) GetScoringWeights(ctx context.Context) (*scoring.ScoringWeights, error) {
	var raw []byte
	err := db.pool.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, scoringWeightsKey).Scan(&raw)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get scoring weights: %w", err)
	}

	var w scoring.ScoringWeights
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("failed to parse scoring weights: %w", err)
	}
	return &w, nil
}

// SaveScoringWeights upserts the weight set.
func (db *DB) SaveScoringWeights(ctx context.Context, w scoring.ScoringWeights) error {
	raw, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("failed to marshal scoring weights: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO settings (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = $2, updated_at = NOW()`,
		scoringWeightsKey, raw,
	)
	if err != nil {
		return fmt.Errorf("failed to save scoring weights: %w", err)
	}
	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/recruit-scorer/internal/scoring"
)

const candidateColumns = `id, job_id, name, email, phone, years_of_experience, skills, location,
		        desired_salary_min, desired_salary_max, education, resume_text,
		        ai_score, ai_analysis, created_at, updated_at`

// CreateCandidate inserts a candidate and fills in its ID and timestamps.
func (db *DB) CreateCandidate(ctx context.Context, c *Candidate) error {
	educationJSON, err := json.Marshal(c.Profile.Education)
	if err != nil {
		return fmt.Errorf("failed to marshal education: %w", err)
	}

	p := c.Profile
	err = db.pool.QueryRow(ctx,
		`INSERT INTO candidates (job_id, name, email, phone, years_of_experience, skills, location,
		                         desired_salary_min, desired_salary_max, education, resume_text)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id, created_at, updated_at`,
		c.JobID, c.Name, c.Email, c.Phone, p.YearsOfExperience, StringArray(p.Skills), p.Location,
		p.DesiredSalaryMin, p.DesiredSalaryMax, educationJSON, c.ResumeText,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create candidate: %w", err)
	}
	return nil
}

// GetCandidate retrieves a candidate by ID
func (db *DB) GetCandidate(ctx context.Context, id uuid.UUID) (*Candidate, error) {
	row := db.pool.QueryRow(ctx, `SELECT `+candidateColumns+` FROM candidates WHERE id = $1`, id)
	c, err := scanCandidate(row)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get candidate: %w", err)
	}
	return c, nil
}

// UpdateCandidate overwrites the profile fields of a candidate. The stored
// analysis and AI score are left untouched.
func (db *DB) UpdateCandidate(ctx context.Context, c *Candidate) error {
	educationJSON, err := json.Marshal(c.Profile.Education)
	if err != nil {
		return fmt.Errorf("failed to marshal education: %w", err)
	}

	p := c.Profile
	err = db.pool.QueryRow(ctx,
		`UPDATE candidates SET job_id = $2, name = $3, email = $4, phone = $5,
		                       years_of_experience = $6, skills = $7, location = $8,
		                       desired_salary_min = $9, desired_salary_max = $10, education = $11,
		                       resume_text = $12, updated_at = NOW()
		 WHERE id = $1
		 RETURNING created_at, updated_at`,
		c.ID, c.JobID, c.Name, c.Email, c.Phone, p.YearsOfExperience, StringArray(p.Skills),
		p.Location, p.DesiredSalaryMin, p.DesiredSalaryMax, educationJSON, c.ResumeText,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to update candidate: %w", err)
	}
	return nil
}

// DeleteCandidate removes a candidate and its score history.
func (db *DB) DeleteCandidate(ctx context.Context, id uuid.UUID) error {
	tag, err := db.pool.Exec(ctx, `DELETE FROM candidates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete candidate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListCandidates lists candidates newest first with an optional job filter.
func (db *DB) ListCandidates(ctx context.Context, opts ListCandidatesOptions) ([]Candidate, int, error) {
	var conditions []string
	var args []interface{}
	argIndex := 1

	if opts.JobID != nil {
		conditions = append(conditions, fmt.Sprintf("job_id = $%d", argIndex))
		args = append(args, *opts.JobID)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := db.pool.QueryRow(ctx, "SELECT COUNT(*) FROM candidates "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count candidates: %w", err)
	}

	limit, offset := clampPage(opts.Limit, opts.Offset)
	args = append(args, limit, offset)
	query := fmt.Sprintf(
		`SELECT %s FROM candidates %s
		 ORDER BY created_at DESC
		 LIMIT $%d OFFSET $%d`,
		candidateColumns, whereClause, argIndex, argIndex+1,
	)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list candidates: %w", err)
	}
	defer rows.Close()

	candidates := []Candidate{}
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan candidate: %w", err)
		}
		candidates = append(candidates, *c)
	}
	return candidates, total, rows.Err()
}

// SetCandidateAnalysis stores a parsed model analysis and its overall score as
// the candidate's AI score.
func (db *DB) SetCandidateAnalysis(ctx context.Context, id uuid.UUID, analysis *scoring.ExtractedAnalysis) error {
	if analysis == nil {
		return fmt.Errorf("analysis is required")
	}
	analysisJSON, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis: %w", err)
	}

	tag, err := db.pool.Exec(ctx,
		`UPDATE candidates SET ai_score = $2, ai_analysis = $3, updated_at = NOW() WHERE id = $1`,
		id, analysis.OverallScore, analysisJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to set candidate analysis: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanCandidate(row pgx.Row) (*Candidate, error) {
	var c Candidate
	var skills StringArray
	var educationJSON, analysisJSON []byte
	err := row.Scan(
		&c.ID, &c.JobID, &c.Name, &c.Email, &c.Phone, &c.Profile.YearsOfExperience, &skills,
		&c.Profile.Location, &c.Profile.DesiredSalaryMin, &c.Profile.DesiredSalaryMax,
		&educationJSON, &c.ResumeText, &c.AIScore, &analysisJSON, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Profile.Skills = skills

	if educationJSON != nil {
		_ = json.Unmarshal(educationJSON, &c.Profile.Education)
	}
	if analysisJSON != nil {
		var analysis scoring.ExtractedAnalysis
		if err := json.Unmarshal(analysisJSON, &analysis); err == nil {
			c.Analysis = &analysis
		}
	}
	return &c, nil
}

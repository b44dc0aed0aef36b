package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const jobColumns = `id, title, company, description, status, source_url,
		        min_experience, max_experience, requirements, location, is_remote_ok,
		        salary_min, salary_max, min_degree, preferred_fields, created_by,
		        created_at, updated_at`

// CreateJob inserts a job and fills in its ID and timestamps.
func (db *DB) CreateJob(ctx context.Context, job *Job) error {
	if job.Status == "" {
		job.Status = JobStatusOpen
	}
	p := job.Profile
	err := db.pool.QueryRow(ctx,
		`INSERT INTO jobs (title, company, description, status, source_url,
		                   min_experience, max_experience, requirements, location, is_remote_ok,
		                   salary_min, salary_max, min_degree, preferred_fields, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 RETURNING id, created_at, updated_at`,
		job.Title, job.Company, job.Description, job.Status, job.SourceURL,
		p.MinExperience, p.MaxExperience, StringArray(p.Requirements), p.Location, p.IsRemoteOK,
		p.SalaryMin, p.SalaryMax, p.MinDegree, StringArray(p.PreferredFields), job.CreatedBy,
	).Scan(&job.ID, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// GetJob retrieves a job by ID
func (db *DB) GetJob(ctx context.Context, id uuid.UUID) (*Job, error) {
	row := db.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

// UpdateJob overwrites the mutable fields of a job.
func (db *DB) UpdateJob(ctx context.Context, job *Job) error {
	p := job.Profile
	err := db.pool.QueryRow(ctx,
		`UPDATE jobs SET title = $2, company = $3, description = $4, status = $5, source_url = $6,
		                 min_experience = $7, max_experience = $8, requirements = $9, location = $10,
		                 is_remote_ok = $11, salary_min = $12, salary_max = $13, min_degree = $14,
		                 preferred_fields = $15, updated_at = NOW()
		 WHERE id = $1
		 RETURNING created_at, updated_at`,
		job.ID, job.Title, job.Company, job.Description, job.Status, job.SourceURL,
		p.MinExperience, p.MaxExperience, StringArray(p.Requirements), p.Location,
		p.IsRemoteOK, p.SalaryMin, p.SalaryMax, p.MinDegree, StringArray(p.PreferredFields),
	).Scan(&job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to update job: %w", err)
	}
	return nil
}

// DeleteJob removes a job. Candidates are detached; score history is removed.
func (db *DB) DeleteJob(ctx context.Context, id uuid.UUID) error {
	tag, err := db.pool.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListJobs lists jobs newest first with an optional status filter.
func (db *DB) ListJobs(ctx context.Context, opts ListJobsOptions) ([]Job, int, error) {
	var conditions []string
	var args []interface{}
	argIndex := 1

	if opts.Status != nil && *opts.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *opts.Status)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := db.pool.QueryRow(ctx, "SELECT COUNT(*) FROM jobs "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count jobs: %w", err)
	}

	limit, offset := clampPage(opts.Limit, opts.Offset)
	args = append(args, limit, offset)
	query := fmt.Sprintf(
		`SELECT %s FROM jobs %s
		 ORDER BY created_at DESC
		 LIMIT $%d OFFSET $%d`,
		jobColumns, whereClause, argIndex, argIndex+1,
	)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	jobs := []Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	return jobs, total, rows.Err()
}

func scanJob(row pgx.Row) (*Job, error) {
	var j Job
	var requirements, preferred StringArray
	err := row.Scan(
		&j.ID, &j.Title, &j.Company, &j.Description, &j.Status, &j.SourceURL,
		&j.Profile.MinExperience, &j.Profile.MaxExperience, &requirements, &j.Profile.Location,
		&j.Profile.IsRemoteOK, &j.Profile.SalaryMin, &j.Profile.SalaryMax, &j.Profile.MinDegree,
		&preferred, &j.CreatedBy, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	j.Profile.Requirements = requirements
	j.Profile.PreferredFields = preferred
	return &j, nil
}

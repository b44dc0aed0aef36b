package db

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/recruit-scorer/internal/scoring"
)

// MemoryStore is a Store backed by maps. It is used by tests and by the CLI
// when no database is configured. Values are copied on the way in and out.
type MemoryStore struct {
	mu         sync.RWMutex
	jobs       map[uuid.UUID]*Job
	candidates map[uuid.UUID]*Candidate
	scores     []ScoreRecord
	weights    *scoring.ScoringWeights
	users      map[uuid.UUID]*User
	order      map[uuid.UUID]int
	seq        int
	now        func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:       make(map[uuid.UUID]*Job),
		candidates: make(map[uuid.UUID]*Candidate),
		users:      make(map[uuid.UUID]*User),
		order:      make(map[uuid.UUID]int),
		now:        time.Now,
	}
}

func (m *MemoryStore) track(id uuid.UUID) {
	m.seq++
	m.order[id] = m.seq
}

// newer orders by creation time, then insertion order, newest first.
func (m *MemoryStore) newer(a, b uuid.UUID, ta, tb time.Time) bool {
	if !ta.Equal(tb) {
		return ta.After(tb)
	}
	return m.order[a] > m.order[b]
}

func copyJob(j *Job) *Job {
	c := *j
	c.Profile.Requirements = slices.Clone(j.Profile.Requirements)
	c.Profile.PreferredFields = slices.Clone(j.Profile.PreferredFields)
	return &c
}

func copyCandidate(c *Candidate) *Candidate {
	out := *c
	out.Profile.Skills = slices.Clone(c.Profile.Skills)
	if c.Analysis != nil {
		a := *c.Analysis
		a.KeyStrengths = slices.Clone(c.Analysis.KeyStrengths)
		a.Concerns = slices.Clone(c.Analysis.Concerns)
		a.Skills = slices.Clone(c.Analysis.Skills)
		out.Analysis = &a
	}
	return &out
}

func page[T any](items []T, limit, offset int) []T {
	limit, offset = clampPage(limit, offset)
	if offset >= len(items) {
		return []T{}
	}
	end := min(offset+limit, len(items))
	return items[offset:end]
}

// CreateJob implements Store.
func (m *MemoryStore) CreateJob(_ context.Context, job *Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if job.Status == "" {
		job.Status = JobStatusOpen
	}
	job.ID = uuid.New()
	job.CreatedAt = m.now().UTC()
	job.UpdatedAt = job.CreatedAt
	m.jobs[job.ID] = copyJob(job)
	m.track(job.ID)
	return nil
}

// GetJob implements Store.
func (m *MemoryStore) GetJob(_ context.Context, id uuid.UUID) (*Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	j, ok := m.jobs[id]
	if !ok {
		return nil, nil
	}
	return copyJob(j), nil
}

// UpdateJob implements Store.
func (m *MemoryStore) UpdateJob(_ context.Context, job *Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.jobs[job.ID]
	if !ok {
		return ErrNotFound
	}
	job.CreatedAt = existing.CreatedAt
	job.CreatedBy = existing.CreatedBy
	job.UpdatedAt = m.now().UTC()
	m.jobs[job.ID] = copyJob(job)
	return nil
}

// DeleteJob implements Store.
func (m *MemoryStore) DeleteJob(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.jobs[id]; !ok {
		return ErrNotFound
	}
	delete(m.jobs, id)
	for _, c := range m.candidates {
		if c.JobID != nil && *c.JobID == id {
			c.JobID = nil
		}
	}
	m.scores = slices.DeleteFunc(m.scores, func(r ScoreRecord) bool { return r.JobID == id })
	return nil
}

// ListJobs implements Store.
func (m *MemoryStore) ListJobs(_ context.Context, opts ListJobsOptions) ([]Job, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var all []Job
	for _, j := range m.jobs {
		if opts.Status != nil && *opts.Status != "" && j.Status != *opts.Status {
			continue
		}
		all = append(all, *copyJob(j))
	}
	sort.Slice(all, func(i, k int) bool {
		return m.newer(all[i].ID, all[k].ID, all[i].CreatedAt, all[k].CreatedAt)
	})
	return page(all, opts.Limit, opts.Offset), len(all), nil
}

// CreateCandidate implements Store.
func (m *MemoryStore) CreateCandidate(_ context.Context, c *Candidate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c.ID = uuid.New()
	c.CreatedAt = m.now().UTC()
	c.UpdatedAt = c.CreatedAt
	c.AIScore = nil
	c.Analysis = nil
	m.candidates[c.ID] = copyCandidate(c)
	m.track(c.ID)
	return nil
}

// GetCandidate implements Store.
func (m *MemoryStore) GetCandidate(_ context.Context, id uuid.UUID) (*Candidate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.candidates[id]
	if !ok {
		return nil, nil
	}
	return copyCandidate(c), nil
}

// UpdateCandidate implements Store. The stored analysis and AI score are kept.
func (m *MemoryStore) UpdateCandidate(_ context.Context, c *Candidate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.candidates[c.ID]
	if !ok {
		return ErrNotFound
	}
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = m.now().UTC()
	kept := copyCandidate(existing)
	c.AIScore = kept.AIScore
	c.Analysis = kept.Analysis
	m.candidates[c.ID] = copyCandidate(c)
	return nil
}

// DeleteCandidate implements Store.
func (m *MemoryStore) DeleteCandidate(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.candidates[id]; !ok {
		return ErrNotFound
	}
	delete(m.candidates, id)
	m.scores = slices.DeleteFunc(m.scores, func(r ScoreRecord) bool { return r.CandidateID == id })
	return nil
}

// ListCandidates implements Store.
func (m *MemoryStore) ListCandidates(_ context.Context, opts ListCandidatesOptions) ([]Candidate, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var all []Candidate
	for _, c := range m.candidates {
		if opts.JobID != nil && (c.JobID == nil || *c.JobID != *opts.JobID) {
			continue
		}
		all = append(all, *copyCandidate(c))
	}
	sort.Slice(all, func(i, k int) bool {
		return m.newer(all[i].ID, all[k].ID, all[i].CreatedAt, all[k].CreatedAt)
	})
	return page(all, opts.Limit, opts.Offset), len(all), nil
}

// SetCandidateAnalysis implements Store.
func (m *MemoryStore) SetCandidateAnalysis(_ context.Context, id uuid.UUID, analysis *scoring.ExtractedAnalysis) error {
	if analysis == nil {
		return fmt.Errorf("analysis is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.candidates[id]
	if !ok {
		return ErrNotFound
	}
	score := analysis.OverallScore
	c.AIScore = &score
	c.Analysis = analysis
	c.UpdatedAt = m.now().UTC()
	m.candidates[id] = copyCandidate(c)
	return nil
}

// SaveCandidateScore implements Store.
func (m *MemoryStore) SaveCandidateScore(_ context.Context, rec *ScoreRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec.ID = uuid.New()
	if rec.Score.CreatedAt.IsZero() {
		rec.Score.CreatedAt = m.now().UTC()
	}
	stored := *rec
	stored.Score.Recommendations = slices.Clone(rec.Score.Recommendations)
	m.scores = append(m.scores, stored)
	m.track(rec.ID)
	return nil
}

func (m *MemoryStore) withName(r ScoreRecord) ScoreRecord {
	if c, ok := m.candidates[r.CandidateID]; ok {
		r.CandidateName = c.Name
	}
	r.Score.Recommendations = slices.Clone(r.Score.Recommendations)
	return r
}

// ListCandidateScores implements Store.
func (m *MemoryStore) ListCandidateScores(_ context.Context, candidateID uuid.UUID) ([]ScoreRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := []ScoreRecord{}
	for _, r := range m.scores {
		if r.CandidateID == candidateID {
			records = append(records, m.withName(r))
		}
	}
	sort.Slice(records, func(i, k int) bool {
		return m.newer(records[i].ID, records[k].ID, records[i].Score.CreatedAt, records[k].Score.CreatedAt)
	})
	return records, nil
}

// LatestScoresForJob implements Store.
func (m *MemoryStore) LatestScoresForJob(_ context.Context, jobID uuid.UUID) ([]ScoreRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	latest := make(map[uuid.UUID]ScoreRecord)
	for _, r := range m.scores {
		if r.JobID != jobID {
			continue
		}
		prev, ok := latest[r.CandidateID]
		if !ok || m.newer(r.ID, prev.ID, r.Score.CreatedAt, prev.Score.CreatedAt) {
			latest[r.CandidateID] = r
		}
	}

	records := make([]ScoreRecord, 0, len(latest))
	for _, r := range latest {
		records = append(records, m.withName(r))
	}
	sort.Slice(records, func(i, k int) bool {
		return records[i].CandidateID.String() < records[k].CandidateID.String()
	})
	return records, nil
}

// GetScoringWeights implements Store.
func (m *MemoryStore) GetScoringWeights(_ context.Context) (*scoring.ScoringWeights, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.weights == nil {
		return nil, nil
	}
	w := *m.weights
	return &w, nil
}

// SaveScoringWeights implements Store.
func (m *MemoryStore) SaveScoringWeights(_ context.Context, w scoring.ScoringWeights) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.weights = &w
	return nil
}

// CreateUser implements Store.
func (m *MemoryStore) CreateUser(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u.Email = normalizeEmail(u.Email)
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return ErrDuplicateEmail
		}
	}
	u.ID = uuid.New()
	u.CreatedAt = m.now().UTC()
	u.UpdatedAt = u.CreatedAt
	stored := *u
	m.users[u.ID] = &stored
	return nil
}

// GetUserByEmail implements Store.
func (m *MemoryStore) GetUserByEmail(_ context.Context, email string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	email = normalizeEmail(email)
	for _, u := range m.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, nil
}

// GetUserByID implements Store.
func (m *MemoryStore) GetUserByID(_ context.Context, id uuid.UUID) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	out := *u
	return &out, nil
}

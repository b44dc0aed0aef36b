package db

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/recruit-scorer/internal/scoring"
)

func newTestJob() *Job {
	return &Job{
		Title:   "Backend Engineer",
		Company: "Acme",
		Profile: scoring.JobProfile{
			MinExperience: 3,
			MaxExperience: 7,
			Requirements:  []string{"Python", "AWS"},
			Location:      "NYC",
			SalaryMin:     80000,
			SalaryMax:     120000,
		},
	}
}

func TestMemoryStore_JobCRUD(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	job := newTestJob()
	require.NoError(t, s.CreateJob(ctx, job))
	assert.NotEqual(t, uuid.Nil, job.ID)
	assert.Equal(t, JobStatusOpen, job.Status)

	got, err := s.GetJob(ctx, job.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Backend Engineer", got.Title)
	assert.Equal(t, []string{"Python", "AWS"}, got.Profile.Requirements)

	// Returned values do not alias stored state
	got.Profile.Requirements[0] = "Go"
	again, _ := s.GetJob(ctx, job.ID)
	assert.Equal(t, "Python", again.Profile.Requirements[0])

	got.Title = "Staff Engineer"
	got.Status = JobStatusClosed
	require.NoError(t, s.UpdateJob(ctx, got))
	updated, _ := s.GetJob(ctx, job.ID)
	assert.Equal(t, "Staff Engineer", updated.Title)
	assert.Equal(t, job.CreatedAt, updated.CreatedAt)

	require.NoError(t, s.DeleteJob(ctx, job.ID))
	missing, err := s.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Nil(t, missing)

	assert.ErrorIs(t, s.DeleteJob(ctx, job.ID), ErrNotFound)
	assert.ErrorIs(t, s.UpdateJob(ctx, got), ErrNotFound)
}

func TestMemoryStore_ListJobs(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	for i := 0; i < 3; i++ {
		j := newTestJob()
		if i == 2 {
			j.Status = JobStatusDraft
		}
		require.NoError(t, s.CreateJob(ctx, j))
	}

	all, total, err := s.ListJobs(ctx, ListJobsOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, all, 3)
	assert.Equal(t, JobStatusDraft, all[0].Status, "newest first")

	draft := JobStatusDraft
	drafts, total, err := s.ListJobs(ctx, ListJobsOptions{Status: &draft})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, drafts, 1)

	paged, total, err := s.ListJobs(ctx, ListJobsOptions{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, paged, 1)

	empty, _, err := s.ListJobs(ctx, ListJobsOptions{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMemoryStore_CandidatesAndAnalysis(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	job := newTestJob()
	require.NoError(t, s.CreateJob(ctx, job))

	c := &Candidate{
		JobID: &job.ID,
		Name:  "Jane Doe",
		Profile: scoring.CandidateProfile{
			YearsOfExperience: 5,
			Skills:            []string{"Python", "SQL"},
			Location:          "NYC",
		},
	}
	require.NoError(t, s.CreateCandidate(ctx, c))

	summary := "Solid backend engineer"
	analysis := &scoring.ExtractedAnalysis{
		Summary:        &summary,
		OverallScore:   82,
		Recommendation: scoring.GoodMatch,
		KeyStrengths:   []string{"Python"},
		Concerns:       []string{},
	}
	require.NoError(t, s.SetCandidateAnalysis(ctx, c.ID, analysis))

	got, err := s.GetCandidate(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got.AIScore)
	assert.Equal(t, 82.0, *got.AIScore)
	require.NotNil(t, got.Analysis)
	assert.Equal(t, scoring.GoodMatch, got.Analysis.Recommendation)

	// Profile updates keep the stored analysis
	got.Profile.YearsOfExperience = 6
	got.AIScore = nil
	got.Analysis = nil
	require.NoError(t, s.UpdateCandidate(ctx, got))
	updated, _ := s.GetCandidate(ctx, c.ID)
	assert.Equal(t, 6.0, updated.Profile.YearsOfExperience)
	require.NotNil(t, updated.AIScore)
	assert.Equal(t, 82.0, *updated.AIScore)

	other := &Candidate{Name: "Unattached"}
	require.NoError(t, s.CreateCandidate(ctx, other))

	forJob, total, err := s.ListCandidates(ctx, ListCandidatesOptions{JobID: &job.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Jane Doe", forJob[0].Name)

	_, total, err = s.ListCandidates(ctx, ListCandidatesOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	assert.ErrorIs(t, s.SetCandidateAnalysis(ctx, uuid.New(), analysis), ErrNotFound)
	assert.Error(t, s.SetCandidateAnalysis(ctx, c.ID, nil))

	// Deleting the job detaches its candidates
	require.NoError(t, s.DeleteJob(ctx, job.ID))
	detached, _ := s.GetCandidate(ctx, c.ID)
	assert.Nil(t, detached.JobID)
}

func TestMemoryStore_ScoreHistory(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	job := newTestJob()
	require.NoError(t, s.CreateJob(ctx, job))
	alice := &Candidate{Name: "Alice", JobID: &job.ID}
	bob := &Candidate{Name: "Bob", JobID: &job.ID}
	require.NoError(t, s.CreateCandidate(ctx, alice))
	require.NoError(t, s.CreateCandidate(ctx, bob))

	save := func(c *Candidate, overall int, at time.Time) {
		rec := &ScoreRecord{
			CandidateID: c.ID,
			JobID:       job.ID,
			Score:       scoring.CandidateScore{OverallScore: overall, CreatedAt: at, Recommendations: []string{}},
			Weights:     scoring.DefaultWeights(),
		}
		require.NoError(t, s.SaveCandidateScore(ctx, rec))
		assert.NotEqual(t, uuid.Nil, rec.ID)
	}
	save(alice, 60, base)
	save(alice, 75, base.Add(time.Hour))
	save(bob, 80, base.Add(30*time.Minute))

	history, err := s.ListCandidateScores(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 75, history[0].Score.OverallScore)
	assert.Equal(t, "Alice", history[0].CandidateName)

	latest, err := s.LatestScoresForJob(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	byName := map[string]int{}
	for _, r := range latest {
		byName[r.CandidateName] = r.Score.OverallScore
	}
	assert.Equal(t, map[string]int{"Alice": 75, "Bob": 80}, byName)

	require.NoError(t, s.DeleteCandidate(ctx, alice.ID))
	history, err = s.ListCandidateScores(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestMemoryStore_ScoringWeights(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	w, err := s.GetScoringWeights(ctx)
	require.NoError(t, err)
	assert.Nil(t, w)

	def, err := WeightsOrDefault(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, scoring.DefaultWeights(), def)

	custom := scoring.ScoringWeights{Experience: 50, Skills: 50}
	require.NoError(t, s.SaveScoringWeights(ctx, custom))

	got, err := WeightsOrDefault(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, custom, got)
}

func TestMemoryStore_Users(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	u := &User{Name: "Recruiter", Email: " Recruiter@Example.com ", PasswordHash: "hash"}
	require.NoError(t, s.CreateUser(ctx, u))
	assert.Equal(t, "recruiter@example.com", u.Email)

	dup := &User{Name: "Other", Email: "RECRUITER@example.com", PasswordHash: "hash"}
	assert.ErrorIs(t, s.CreateUser(ctx, dup), ErrDuplicateEmail)

	byEmail, err := s.GetUserByEmail(ctx, "recruiter@EXAMPLE.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, u.ID, byEmail.ID)

	byID, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Recruiter", byID.Name)

	none, err := s.GetUserByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, none)
}

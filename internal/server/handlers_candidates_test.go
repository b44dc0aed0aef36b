package server

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/recruit-scorer/internal/db"
	"github.com/jonathan/recruit-scorer/internal/scoring"
	"github.com/jonathan/recruit-scorer/internal/types"
)

func candidateRequest(jobID *uuid.UUID, name string) types.CandidateRequest {
	salaryMax := 150000.0
	return types.CandidateRequest{
		JobID: jobID,
		Name:  name,
		Email: "Ada@Example.com",
		Profile: types.CandidateProfileInput{
			YearsOfExperience: 5,
			Skills:            []string{"Go", "PostgreSQL"},
			Location:          "Austin, TX",
			DesiredSalaryMax:  &salaryMax,
		},
		ResumeText: "Ada Lovelace\nGo engineer",
	}
}

func TestCandidates_CRUD(t *testing.T) {
	ts := newTestServer(t, nil)
	job := seedJob(t, ts.store)

	rec := ts.do(t, http.MethodPost, "/candidates", candidateRequest(&job.ID, " Ada Lovelace "), ts.token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	created := decodeBody[db.Candidate](t, rec)
	assert.Equal(t, "Ada Lovelace", created.Name)
	assert.Equal(t, "ada@example.com", created.Email)
	require.NotNil(t, created.JobID)
	assert.Equal(t, job.ID, *created.JobID)
	assert.NotContains(t, rec.Body.String(), "Go engineer", "resume text is not echoed")

	stored, err := ts.store.GetCandidate(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace\nGo engineer", stored.ResumeText)

	path := "/candidates/" + created.ID.String()

	rec = ts.do(t, http.MethodGet, path, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.ID, decodeBody[db.Candidate](t, rec).ID)

	update := candidateRequest(&job.ID, "Ada King")
	update.ResumeText = ""
	update.Profile.YearsOfExperience = 9
	rec = ts.do(t, http.MethodPut, path, update, ts.token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeBody[db.Candidate](t, rec)
	assert.Equal(t, "Ada King", updated.Name)
	assert.Equal(t, 9.0, updated.Profile.YearsOfExperience)

	stored, err = ts.store.GetCandidate(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace\nGo engineer", stored.ResumeText, "an empty resume keeps the stored text")

	rec = ts.do(t, http.MethodDelete, path, nil, ts.token)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodGet, path, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCandidates_UnknownJob(t *testing.T) {
	ts := newTestServer(t, nil)
	missing := uuid.New()

	rec := ts.do(t, http.MethodPost, "/candidates", candidateRequest(&missing, "Ada"), ts.token)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decodeBody[errorBody](t, rec).Error, "job not found")

	_, total, err := ts.store.ListCandidates(context.Background(), db.ListCandidatesOptions{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestCandidates_WithoutJob(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/candidates", candidateRequest(nil, "Ada"), ts.token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Nil(t, decodeBody[db.Candidate](t, rec).JobID)
}

func TestCandidates_Validation(t *testing.T) {
	ts := newTestServer(t, nil)

	req := candidateRequest(nil, "")
	rec := ts.do(t, http.MethodPost, "/candidates", req, ts.token)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody[errorBody](t, rec).Details, "name: failed required")

	req = candidateRequest(nil, "Ada")
	low, high := 200000.0, 100000.0
	req.Profile.DesiredSalaryMin, req.Profile.DesiredSalaryMax = &low, &high
	rec = ts.do(t, http.MethodPost, "/candidates", req, ts.token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCandidates_ListByJob(t *testing.T) {
	ts := newTestServer(t, nil)
	jobA := seedJob(t, ts.store)
	jobB := seedJob(t, ts.store)
	seedCandidate(t, ts.store, jobA, "Ada", 5)
	seedCandidate(t, ts.store, jobA, "Grace", 2)
	seedCandidate(t, ts.store, jobB, "Linus", 9)

	rec := ts.do(t, http.MethodGet, "/candidates", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, decodeBody[ListCandidatesResponse](t, rec).Count)

	rec = ts.do(t, http.MethodGet, "/candidates?job_id="+jobA.ID.String(), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[ListCandidatesResponse](t, rec)
	assert.Equal(t, 2, list.Count)
	for _, c := range list.Candidates {
		require.NotNil(t, c.JobID)
		assert.Equal(t, jobA.ID, *c.JobID)
	}

	rec = ts.do(t, http.MethodGet, "/candidates?job_id=abc", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid job_id", decodeBody[errorBody](t, rec).Error)
}

func TestCandidates_ScoreAndHistory(t *testing.T) {
	ts := newTestServer(t, nil)
	job := seedJob(t, ts.store)
	cand := seedCandidate(t, ts.store, job, "Ada", 5)
	path := "/candidates/" + cand.ID.String()

	rec := ts.do(t, http.MethodPost, path+"/score", types.ScoreCandidateRequest{JobID: job.ID}, ts.token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	first := decodeBody[db.ScoreRecord](t, rec)
	assert.Equal(t, cand.ID, first.CandidateID)
	assert.Equal(t, job.ID, first.JobID)
	// 100*25 + 100*30 + 75*15 + 100*10 + 50*10 (no salary) + 50*10 (no analysis)
	assert.Equal(t, 86, first.Score.OverallScore)
	assert.Equal(t, 50.0, first.Score.AIAnalysis.Score)

	// Re-scoring after an analysis uses its score and appends to the history.
	require.NoError(t, ts.store.SetCandidateAnalysis(context.Background(), cand.ID,
		&scoring.ExtractedAnalysis{OverallScore: 90, Recommendation: scoring.GoodMatch}))

	rec = ts.do(t, http.MethodPost, path+"/score", types.ScoreCandidateRequest{JobID: job.ID}, ts.token)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 90, decodeBody[db.ScoreRecord](t, rec).Score.OverallScore)

	rec = ts.do(t, http.MethodGet, path+"/scores", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	history := decodeBody[struct {
		Scores []db.ScoreRecord `json:"scores"`
		Count  int              `json:"count"`
	}](t, rec)
	assert.Equal(t, 2, history.Count)
	require.Len(t, history.Scores, 2)
	assert.Equal(t, 90, history.Scores[0].Score.OverallScore, "newest first")
	assert.Equal(t, first.ID, history.Scores[1].ID)
}

func TestCandidates_ScoreErrors(t *testing.T) {
	ts := newTestServer(t, nil)
	job := seedJob(t, ts.store)
	cand := seedCandidate(t, ts.store, job, "Ada", 5)

	rec := ts.do(t, http.MethodPost, "/candidates/"+cand.ID.String()+"/score",
		types.ScoreCandidateRequest{JobID: uuid.New()}, ts.token)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPost, "/candidates/"+uuid.NewString()+"/score",
		types.ScoreCandidateRequest{JobID: job.ID}, ts.token)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPost, "/candidates/"+cand.ID.String()+"/score", "{}", ts.token)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "job_id is required")

	rec = ts.do(t, http.MethodGet, "/candidates/"+uuid.NewString()+"/scores", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

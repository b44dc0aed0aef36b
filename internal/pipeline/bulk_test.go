package pipeline

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/recruit-scorer/internal/db"
	"github.com/jonathan/recruit-scorer/internal/observability"
	"github.com/jonathan/recruit-scorer/internal/types"
)

func newBulkProcessor(store db.Store, gw *routedGateway, metrics *observability.Metrics) *BulkProcessor {
	return NewBulkProcessor(store,
		NewAnalyzer(gw, nil, nil, nil),
		NewScorer(store, nil, metrics, nil),
		metrics, nil)
}

func TestBulkUpload_ProcessesBatch(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	job := testJob(t, store)

	gw := newRoutedGateway().
		on(analysisMarker, func(prompt string) string {
			if strings.Contains(prompt, "FAILME") {
				return "error:model unavailable"
			}
			return analysisResponse
		}).
		on(profileMarker, fixed(profileResponse))
	metrics := observability.NewMetrics()
	processor := newBulkProcessor(store, gw, metrics)

	var events []ProgressEvent
	resumes := []types.BulkResume{
		{Name: "Ada Upload", ResumeText: "Ada Lovelace\nGo, PostgreSQL"},
		{ResumeText: "Ada Lovelace\r\nGo,   PostgreSQL  "},
		{Name: "Broken", ResumeText: "FAILME resume"},
		{ResumeText: "   "},
		{Email: "GRACE@Example.com", ResumeText: "Grace Hopper\nCOBOL"},
	}

	result, err := processor.BulkUpload(ctx, job, resumes, BulkOptions{
		Delay:      -1,
		OnProgress: func(e ProgressEvent) { events = append(events, e) },
	})
	require.NoError(t, err)

	assert.Equal(t, job.ID, result.JobID)
	assert.Equal(t, 5, result.Total)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 2, result.Failed)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, result.Items, 5)

	first := result.Items[0]
	assert.Equal(t, ItemSucceeded, first.Status)
	assert.Equal(t, "Ada Upload", first.Name, "explicit name wins over extracted name")
	require.NotNil(t, first.CandidateID)
	require.NotNil(t, first.OverallScore)

	assert.Equal(t, ItemDuplicate, result.Items[1].Status)
	assert.Equal(t, ItemFailed, result.Items[2].Status)
	assert.Contains(t, result.Items[2].Error, "model unavailable")
	assert.Equal(t, ItemFailed, result.Items[3].Status)

	stored, err := store.GetCandidate(ctx, *first.CandidateID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 6.0, stored.Profile.YearsOfExperience)
	require.NotNil(t, stored.AIScore)
	assert.Equal(t, 82.0, *stored.AIScore)

	last := result.Items[4]
	require.NotNil(t, last.CandidateID)
	grace, err := store.GetCandidate(ctx, *last.CandidateID)
	require.NoError(t, err)
	assert.Equal(t, "grace@example.com", grace.Email)

	scores, err := store.LatestScoresForJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Len(t, scores, 2)

	require.NotEmpty(t, events)
	assert.Equal(t, StepStarted, events[0].Step)
	assert.Equal(t, StepCompleted, events[len(events)-1].Step)
	for _, e := range events {
		assert.Equal(t, CategoryBulk, e.Category)
	}

	expected := `
# HELP recruit_scorer_bulk_upload_items_total Bulk upload resumes by outcome.
# TYPE recruit_scorer_bulk_upload_items_total counter
recruit_scorer_bulk_upload_items_total{outcome="duplicate"} 1
recruit_scorer_bulk_upload_items_total{outcome="failed"} 2
recruit_scorer_bulk_upload_items_total{outcome="succeeded"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(metrics.Registry(), strings.NewReader(expected),
		"recruit_scorer_bulk_upload_items_total"))
}

func TestBulkUpload_SkipProfileExtraction(t *testing.T) {
	store := db.NewMemoryStore()
	job := testJob(t, store)
	gw := newRoutedGateway().on(analysisMarker, fixed(analysisResponse))

	result, err := newBulkProcessor(store, gw, nil).BulkUpload(context.Background(), job,
		[]types.BulkResume{{ResumeText: "Ada resume"}},
		BulkOptions{Delay: -1, SkipProfileExtraction: true})
	require.NoError(t, err)
	require.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 1, gw.calls())

	c, err := store.GetCandidate(context.Background(), *result.Items[0].CandidateID)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", c.Name)
	assert.Equal(t, []string{"Go", "PostgreSQL"}, c.Profile.Skills)
}

func TestBulkUpload_ProfileFailureFallsBackToAnalysis(t *testing.T) {
	store := db.NewMemoryStore()
	job := testJob(t, store)
	gw := newRoutedGateway().
		on(analysisMarker, fixed(`{"overallScore": 40, "recommendation": "POOR_MATCH", "skills": ["Rust"]}`)).
		on(profileMarker, fixed("not json"))

	result, err := newBulkProcessor(store, gw, nil).BulkUpload(context.Background(), job,
		[]types.BulkResume{{ResumeText: "Anonymous resume"}}, BulkOptions{Delay: -1})
	require.NoError(t, err)
	require.Equal(t, 1, result.Succeeded)

	item := result.Items[0]
	assert.Equal(t, "Candidate 1", item.Name)
	c, err := store.GetCandidate(context.Background(), *item.CandidateID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Rust"}, c.Profile.Skills)
}

func TestBulkUpload_StopsOnCancel(t *testing.T) {
	store := db.NewMemoryStore()
	job := testJob(t, store)
	gw := newRoutedGateway().on(analysisMarker, fixed(analysisResponse))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resumes := []types.BulkResume{{ResumeText: "one"}, {ResumeText: "two"}, {ResumeText: "three"}}
	result, err := newBulkProcessor(store, gw, nil).BulkUpload(ctx, job, resumes, BulkOptions{
		Delay:                 time.Hour,
		SkipProfileExtraction: true,
		OnProgress: func(e ProgressEvent) {
			if e.Step == StepItemDone {
				cancel()
			}
		},
	})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.Equal(t, 1, result.Succeeded)
	assert.Len(t, result.Items, 1)
	assert.Equal(t, 1, gw.calls())
}

func TestBulkUpload_NilJob(t *testing.T) {
	_, err := newBulkProcessor(db.NewMemoryStore(), newRoutedGateway(), nil).
		BulkUpload(context.Background(), nil, nil, BulkOptions{})
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestPacer(t *testing.T) {
	p := &pacer{delay: time.Hour}
	require.NoError(t, p.wait(context.Background()), "first call does not wait")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.wait(ctx), context.Canceled)
}

package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jonathan/recruit-scorer/internal/db"
	"github.com/jonathan/recruit-scorer/internal/llm"
	"github.com/jonathan/recruit-scorer/internal/scoring"
)

const (
	analysisMarker = "screening applicants"
	profileMarker  = "about the applicant"
	postingMarker  = "from the job posting"
)

// routedGateway answers by matching a marker in the prompt. Responses starting
// with "error:" are returned as gateway errors.
type routedGateway struct {
	mu      sync.Mutex
	routes  map[string]func(prompt string) string
	prompts []string
}

func newRoutedGateway() *routedGateway {
	return &routedGateway{routes: map[string]func(string) string{}}
}

func (g *routedGateway) on(marker string, respond func(prompt string) string) *routedGateway {
	g.routes[marker] = respond
	return g
}

func (g *routedGateway) Generate(_ context.Context, prompt string, _ llm.GenerateConfig) (*llm.Generation, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()

	for marker, respond := range g.routes {
		if strings.Contains(prompt, marker) {
			text := respond(prompt)
			if msg, ok := strings.CutPrefix(text, "error:"); ok {
				return nil, errors.New(msg)
			}
			return &llm.Generation{Text: text}, nil
		}
	}
	return nil, errors.New("unexpected prompt")
}

func (g *routedGateway) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

func fixed(text string) func(string) string {
	return func(string) string { return text }
}

func testJob(t *testing.T, store db.Store) *db.Job {
	t.Helper()
	job := &db.Job{
		Title:   "Backend Engineer",
		Company: "Acme",
		Status:  db.JobStatusOpen,
		Profile: scoring.JobProfile{
			MinExperience: 3,
			MaxExperience: 8,
			Requirements:  []string{"Go", "PostgreSQL", "Kubernetes"},
			Location:      "Austin, TX",
			SalaryMin:     120000,
			SalaryMax:     160000,
		},
	}
	require.NoError(t, store.CreateJob(context.Background(), job))
	return job
}

func ptr[T any](v T) *T {
	return &v
}

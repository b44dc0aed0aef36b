package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/recruit-scorer/internal/db"
	"github.com/jonathan/recruit-scorer/internal/export"
	"github.com/jonathan/recruit-scorer/internal/ingestion"
	"github.com/jonathan/recruit-scorer/internal/pipeline"
	"github.com/jonathan/recruit-scorer/internal/schemas"
	"github.com/jonathan/recruit-scorer/internal/scoring"
	"github.com/jonathan/recruit-scorer/internal/types"
)

// RankingResponse is a job's candidates ordered by their latest score.
type RankingResponse struct {
	JobID      string                    `json:"job_id"`
	JobTitle   string                    `json:"job_title"`
	Candidates []scoring.RankedCandidate `json:"candidates"`
	Count      int                       `json:"count"`
}

// WeightsResponse reports the weights in effect.
type WeightsResponse struct {
	Weights scoring.ScoringWeights `json:"weights"`
	// IsDefault is true when no weights have been saved.
	IsDefault bool    `json:"is_default"`
	Total     float64 `json:"total"`
}

// handleScore scores an inline candidate against an inline job without storing anything
func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	var req types.ScoreRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.failResponse(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.failResponse(w, err)
		return
	}

	var weights scoring.ScoringWeights
	if req.Weights != nil {
		weights = req.Weights.ToWeights()
	} else {
		w2, err := db.WeightsOrDefault(r.Context(), s.store)
		if err != nil {
			s.failResponse(w, err)
			return
		}
		weights = w2
	}

	score := s.aggregator.Score(req.Candidate.ToProfile(), req.Job.ToProfile(), weights, req.AIScore)
	s.metrics.ObserveScore("stateless", score)
	s.jsonResponse(w, http.StatusOK, score)
}

// handleAnalyze asks the model to analyze resume text against a stored or inline job
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req types.AnalyzeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.failResponse(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.failResponse(w, err)
		return
	}
	if s.analyzer == nil {
		s.failResponse(w, &ErrProviderUnavailable{})
		return
	}

	jobCtx := pipeline.JobContext{Title: req.JobTitle}
	if req.JobID != nil {
		job := s.loadJob(w, r, *req.JobID)
		if job == nil {
			return
		}
		jobCtx = pipeline.JobContext{Title: job.Title, Profile: job.Profile}
	} else {
		jobCtx.Profile = req.Job.ToProfile()
	}

	doc, err := ingestion.IngestText(req.ResumeText, ingestion.SourcePaste)
	if err != nil {
		s.failResponse(w, err)
		return
	}

	analysis, err := s.analyzer.AnalyzeResume(r.Context(), doc.Text, jobCtx)
	if err != nil {
		s.failResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, analysis)
}

// handleGetWeights returns the scoring weights in effect
func (s *Server) handleGetWeights(w http.ResponseWriter, r *http.Request) {
	stored, err := s.store.GetScoringWeights(r.Context())
	if err != nil {
		s.failResponse(w, err)
		return
	}

	resp := WeightsResponse{Weights: scoring.DefaultWeights(), IsDefault: true}
	if stored != nil {
		resp = WeightsResponse{Weights: *stored}
	}
	resp.Total = resp.Weights.Sum()
	s.jsonResponse(w, http.StatusOK, resp)
}

// handleUpdateWeights replaces the scoring weights. The body must list every
// dimension; weights need not sum to 100.
func (s *Server) handleUpdateWeights(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !json.Valid(body) {
		s.failResponse(w, &ErrValidation{Field: "body", Message: "invalid JSON"})
		return
	}
	if err := schemas.Validate(schemas.ScoringWeights, body); err != nil {
		s.failResponse(w, err)
		return
	}

	var req types.WeightsInput
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&req); err != nil {
		s.failResponse(w, &ErrValidation{Field: "body", Message: err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		s.failResponse(w, err)
		return
	}

	weights := req.ToWeights()
	if err := s.store.SaveScoringWeights(r.Context(), weights); err != nil {
		s.failResponse(w, err)
		return
	}

	s.logger.Info("scoring weights updated", zap.Float64("total", weights.Sum()))
	s.jsonResponse(w, http.StatusOK, WeightsResponse{Weights: weights, Total: weights.Sum()})
}

// handleJobRanking ranks the job's candidates by their latest score
func (s *Server) handleJobRanking(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "job")
	if !ok {
		return
	}
	job := s.loadJob(w, r, id)
	if job == nil {
		return
	}

	ranked, err := s.scorer.Ranking(r.Context(), id)
	if err != nil {
		s.failResponse(w, err)
		return
	}
	if ranked == nil {
		ranked = []scoring.RankedCandidate{}
	}

	s.jsonResponse(w, http.StatusOK, RankingResponse{
		JobID:      id.String(),
		JobTitle:   job.Title,
		Candidates: ranked,
		Count:      len(ranked),
	})
}

// handleJobReport downloads the job's ranking as an xlsx workbook
func (s *Server) handleJobReport(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "job")
	if !ok {
		return
	}
	job := s.loadJob(w, r, id)
	if job == nil {
		return
	}

	ranked, err := s.scorer.Ranking(r.Context(), id)
	if err != nil {
		s.failResponse(w, err)
		return
	}

	// Build the whole workbook first so a failure can still produce a JSON error.
	var buf bytes.Buffer
	if err := export.WriteCandidateReport(&buf, job, ranked); err != nil {
		s.failResponse(w, fmt.Errorf("failed to build report: %w", err))
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, reportFilename(job)))
	w.Header().Set("Content-Length", fmt.Sprint(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.Warn("failed to write report", zap.Error(err))
	}
}

var unsafeFilename = regexp.MustCompile(`[^a-z0-9]+`)

// reportFilename derives a download name such as "backend-engineer-candidates.xlsx".
func reportFilename(job *db.Job) string {
	slug := strings.Trim(unsafeFilename.ReplaceAllString(strings.ToLower(job.Title), "-"), "-")
	if slug == "" {
		slug = "job"
	}
	return slug + "-candidates.xlsx"
}

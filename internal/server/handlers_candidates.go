package server

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/recruit-scorer/internal/db"
	"github.com/jonathan/recruit-scorer/internal/ingestion"
	"github.com/jonathan/recruit-scorer/internal/logging"
	"github.com/jonathan/recruit-scorer/internal/types"
)

// ListCandidatesResponse represents the response for listing candidates
type ListCandidatesResponse struct {
	Candidates []db.Candidate `json:"candidates"`
	Count      int            `json:"count"`
	Limit      int            `json:"limit"`
	Offset     int            `json:"offset"`
}

// loadCandidate returns the candidate or writes a 404/500 and returns nil.
func (s *Server) loadCandidate(w http.ResponseWriter, r *http.Request, id uuid.UUID) *db.Candidate {
	c, err := s.store.GetCandidate(r.Context(), id)
	if err != nil {
		s.failResponse(w, err)
		return nil
	}
	if c == nil {
		s.failResponse(w, &ErrNotFound{Resource: "candidate", ID: id.String()})
		return nil
	}
	return c
}

// checkJobRef verifies that an optional job reference exists.
func (s *Server) checkJobRef(w http.ResponseWriter, r *http.Request, jobID *uuid.UUID) bool {
	if jobID == nil {
		return true
	}
	return s.loadJob(w, r, *jobID) != nil
}

// handleListCandidates lists candidates, optionally for one job
func (s *Server) handleListCandidates(w http.ResponseWriter, r *http.Request) {
	limit := parseQueryInt(r, "limit", 50, 100)
	offset := parseQueryInt(r, "offset", 0, 0)

	opts := db.ListCandidatesOptions{Limit: limit, Offset: offset}
	if raw := r.URL.Query().Get("job_id"); raw != "" {
		jobID, err := uuid.Parse(raw)
		if err != nil {
			s.errorResponse(w, http.StatusBadRequest, "Invalid job_id")
			return
		}
		opts.JobID = &jobID
	}

	candidates, total, err := s.store.ListCandidates(r.Context(), opts)
	if err != nil {
		s.failResponse(w, err)
		return
	}
	if candidates == nil {
		candidates = []db.Candidate{}
	}

	s.jsonResponse(w, http.StatusOK, ListCandidatesResponse{
		Candidates: candidates,
		Count:      total,
		Limit:      limit,
		Offset:     offset,
	})
}

// handleCreateCandidate creates a candidate
func (s *Server) handleCreateCandidate(w http.ResponseWriter, r *http.Request) {
	var req types.CandidateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.failResponse(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.failResponse(w, err)
		return
	}
	if !s.checkJobRef(w, r, req.JobID) {
		return
	}

	candidate := &db.Candidate{}
	applyCandidateRequest(candidate, &req)

	if err := s.store.CreateCandidate(r.Context(), candidate); err != nil {
		s.failResponse(w, err)
		return
	}

	s.logger.Info("candidate created", zap.String(logging.FieldCandidateID, candidate.ID.String()))
	s.jsonResponse(w, http.StatusCreated, candidate)
}

// handleGetCandidate retrieves a candidate by its ID
func (s *Server) handleGetCandidate(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "candidate")
	if !ok {
		return
	}
	if c := s.loadCandidate(w, r, id); c != nil {
		s.jsonResponse(w, http.StatusOK, c)
	}
}

// handleUpdateCandidate replaces a candidate's attributes. The stored analysis is kept.
func (s *Server) handleUpdateCandidate(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "candidate")
	if !ok {
		return
	}

	var req types.CandidateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.failResponse(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.failResponse(w, err)
		return
	}

	candidate := s.loadCandidate(w, r, id)
	if candidate == nil || !s.checkJobRef(w, r, req.JobID) {
		return
	}
	applyCandidateRequest(candidate, &req)

	if err := s.store.UpdateCandidate(r.Context(), candidate); err != nil {
		s.failResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, candidate)
}

// handleDeleteCandidate deletes a candidate and its score history
func (s *Server) handleDeleteCandidate(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "candidate")
	if !ok {
		return
	}

	if err := s.store.DeleteCandidate(r.Context(), id); err != nil {
		s.failResponse(w, err)
		return
	}

	s.logger.Info("candidate deleted", zap.String(logging.FieldCandidateID, id.String()))
	w.WriteHeader(http.StatusNoContent)
}

// handleScoreCandidate scores a stored candidate against the job in the body and
// appends the result to the candidate's history
func (s *Server) handleScoreCandidate(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "candidate")
	if !ok {
		return
	}

	var req types.ScoreCandidateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.failResponse(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.failResponse(w, err)
		return
	}

	rec, err := s.scorer.ScoreCandidate(r.Context(), id, req.JobID)
	if err != nil {
		s.failResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, rec)
}

// handleListCandidateScores returns a candidate's score history, newest first
func (s *Server) handleListCandidateScores(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "candidate")
	if !ok {
		return
	}
	if s.loadCandidate(w, r, id) == nil {
		return
	}

	records, err := s.store.ListCandidateScores(r.Context(), id)
	if err != nil {
		s.failResponse(w, err)
		return
	}
	if records == nil {
		records = []db.ScoreRecord{}
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"scores": records,
		"count":  len(records),
	})
}

func applyCandidateRequest(c *db.Candidate, req *types.CandidateRequest) {
	c.JobID = req.JobID
	c.Name = strings.TrimSpace(req.Name)
	c.Email = strings.ToLower(strings.TrimSpace(req.Email))
	c.Phone = strings.TrimSpace(req.Phone)
	c.Profile = req.Profile.ToProfile()
	if text := ingestion.CleanText(req.ResumeText); text != "" {
		c.ResumeText = text
	}
}

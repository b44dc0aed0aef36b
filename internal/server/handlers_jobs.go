package server

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/recruit-scorer/internal/db"
	"github.com/jonathan/recruit-scorer/internal/logging"
	"github.com/jonathan/recruit-scorer/internal/pipeline"
	"github.com/jonathan/recruit-scorer/internal/server/middleware"
	"github.com/jonathan/recruit-scorer/internal/types"
)

// ListJobsResponse represents the response for listing jobs
type ListJobsResponse struct {
	Jobs   []db.Job `json:"jobs"`
	Count  int      `json:"count"`
	Limit  int      `json:"limit"`
	Offset int      `json:"offset"`
}

// pathID parses the {id} path value. On failure it writes a 400 and returns false.
func (s *Server) pathID(w http.ResponseWriter, r *http.Request, resource string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid "+resource+" ID")
		return uuid.Nil, false
	}
	return id, true
}

// loadJob returns the job or writes a 404/500 and returns nil.
func (s *Server) loadJob(w http.ResponseWriter, r *http.Request, id uuid.UUID) *db.Job {
	job, err := s.store.GetJob(r.Context(), id)
	if err != nil {
		s.failResponse(w, err)
		return nil
	}
	if job == nil {
		s.failResponse(w, &ErrNotFound{Resource: "job", ID: id.String()})
		return nil
	}
	return job
}

// currentUser returns the authenticated user ID when there is one.
func currentUser(r *http.Request) *uuid.UUID {
	id, ok := middleware.RecruiterID(r.Context())
	if !ok {
		return nil
	}
	return &id
}

// handleListJobs lists jobs with an optional status filter and pagination
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	limit := parseQueryInt(r, "limit", 50, 100)
	offset := parseQueryInt(r, "offset", 0, 0)

	opts := db.ListJobsOptions{Limit: limit, Offset: offset}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := db.JobStatus(strings.ToLower(raw))
		if !status.Valid() {
			s.errorResponse(w, http.StatusBadRequest, "Invalid status")
			return
		}
		opts.Status = &status
	}

	jobs, total, err := s.store.ListJobs(r.Context(), opts)
	if err != nil {
		s.failResponse(w, err)
		return
	}
	if jobs == nil {
		jobs = []db.Job{}
	}

	s.jsonResponse(w, http.StatusOK, ListJobsResponse{
		Jobs:   jobs,
		Count:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// handleCreateJob creates a job opening
func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req types.JobRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.failResponse(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.failResponse(w, err)
		return
	}

	job := &db.Job{CreatedBy: currentUser(r)}
	applyJobRequest(job, &req)

	if err := s.store.CreateJob(r.Context(), job); err != nil {
		s.failResponse(w, err)
		return
	}

	s.logger.Info("job created", zap.String(logging.FieldJobID, job.ID.String()))
	s.jsonResponse(w, http.StatusCreated, job)
}

// handleGetJob retrieves a job by its ID
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "job")
	if !ok {
		return
	}
	if job := s.loadJob(w, r, id); job != nil {
		s.jsonResponse(w, http.StatusOK, job)
	}
}

// handleUpdateJob replaces a job's attributes. An empty status keeps the current one.
func (s *Server) handleUpdateJob(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "job")
	if !ok {
		return
	}

	var req types.JobRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.failResponse(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.failResponse(w, err)
		return
	}

	job := s.loadJob(w, r, id)
	if job == nil {
		return
	}
	applyJobRequest(job, &req)

	if err := s.store.UpdateJob(r.Context(), job); err != nil {
		s.failResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, job)
}

// handleDeleteJob deletes a job
func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "job")
	if !ok {
		return
	}

	if err := s.store.DeleteJob(r.Context(), id); err != nil {
		s.failResponse(w, err)
		return
	}

	s.logger.Info("job deleted", zap.String(logging.FieldJobID, id.String()))
	w.WriteHeader(http.StatusNoContent)
}

// handleImportJob fetches a posting URL and parses it into a job profile, saving
// it as a draft job when requested.
func (s *Server) handleImportJob(w http.ResponseWriter, r *http.Request) {
	var req types.ImportJobRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.failResponse(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.failResponse(w, err)
		return
	}
	if s.importer == nil {
		s.failResponse(w, &ErrProviderUnavailable{})
		return
	}

	result, err := s.importer.ImportJob(r.Context(), req.URL, pipeline.ImportOptions{
		UseBrowser: req.UseBrowser,
		Save:       req.Save,
		CreatedBy:  currentUser(r),
	})
	if err != nil {
		s.failResponse(w, err)
		return
	}

	status := http.StatusOK
	if result.Job != nil {
		status = http.StatusCreated
	}
	s.jsonResponse(w, status, result)
}

func applyJobRequest(job *db.Job, req *types.JobRequest) {
	job.Title = strings.TrimSpace(req.Title)
	job.Company = strings.TrimSpace(req.Company)
	job.Description = req.Description
	job.SourceURL = req.SourceURL
	job.Profile = req.Profile.ToProfile()
	if req.Status != "" {
		job.Status = db.JobStatus(req.Status)
	}
}

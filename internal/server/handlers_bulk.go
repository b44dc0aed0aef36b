package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/recruit-scorer/internal/db"
	"github.com/jonathan/recruit-scorer/internal/logging"
	"github.com/jonathan/recruit-scorer/internal/pipeline"
	"github.com/jonathan/recruit-scorer/internal/types"
)

// prepareBulk decodes and validates a bulk upload and loads its job. It writes
// the error response itself and returns nil on failure.
func (s *Server) prepareBulk(w http.ResponseWriter, r *http.Request) (*db.Job, *types.BulkUploadRequest) {
	id, ok := s.pathID(w, r, "job")
	if !ok {
		return nil, nil
	}

	var req types.BulkUploadRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.failResponse(w, err)
		return nil, nil
	}
	if err := req.Validate(); err != nil {
		s.failResponse(w, err)
		return nil, nil
	}
	if s.bulk == nil {
		s.failResponse(w, &ErrProviderUnavailable{})
		return nil, nil
	}

	job := s.loadJob(w, r, id)
	if job == nil {
		return nil, nil
	}
	s.liftWriteDeadline(w)
	return job, &req
}

// liftWriteDeadline clears the server-wide write timeout for this response. A
// batch paces its model calls and can outlast the timeout, after which every
// write to the client would fail while the batch kept running.
func (s *Server) liftWriteDeadline(w http.ResponseWriter) {
	err := http.NewResponseController(w).SetWriteDeadline(time.Time{})
	if err != nil && !errors.Is(err, http.ErrNotSupported) {
		s.logger.Warn("failed to clear write deadline", zap.Error(err))
	}
}

// bulkOptions reads the skip_profile query flag.
func (s *Server) bulkOptions(r *http.Request) pipeline.BulkOptions {
	skip, _ := strconv.ParseBool(r.URL.Query().Get("skip_profile"))
	return pipeline.BulkOptions{
		Delay:                 s.bulkDelay,
		SkipProfileExtraction: skip,
	}
}

// handleBulkUpload analyzes, stores and scores a batch of resumes for a job. Per
// resume failures are reported in the result, not as an error status.
func (s *Server) handleBulkUpload(w http.ResponseWriter, r *http.Request) {
	job, req := s.prepareBulk(w, r)
	if job == nil {
		return
	}

	result, err := s.bulk.BulkUpload(r.Context(), job, req.Resumes, s.bulkOptions(r))
	if err != nil {
		s.failResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

// handleBulkUploadStream runs a bulk upload, streaming progress as server-sent
// events and finishing with the result.
func (s *Server) handleBulkUploadStream(w http.ResponseWriter, r *http.Request) {
	job, req := s.prepareBulk(w, r)
	if job == nil {
		return
	}

	stream, err := openBulkStream(w, job.ID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	logger := s.logger.With(zap.String(logging.FieldJobID, job.ID.String()))
	logger.Info("starting streaming bulk upload", zap.Int("resumes", len(req.Resumes)))

	opts := s.bulkOptions(r)
	opts.OnProgress = func(event pipeline.ProgressEvent) {
		if err := stream.send(eventProgress, event); err != nil {
			logger.Debug("progress event dropped", zap.Error(err))
		}
	}

	result, err := s.bulk.BulkUpload(r.Context(), job, req.Resumes, opts)
	if result != nil {
		_ = stream.send(eventResult, result)
	}
	if err != nil {
		logger.Warn("bulk upload stopped", zap.Error(err))
	}
	stream.finish(err)
}

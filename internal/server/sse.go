package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// Event names on a bulk upload stream.
const (
	eventProgress = "progress"
	eventResult   = "result"
	eventError    = "error"
	eventComplete = "complete"
)

// Final stream statuses carried by the complete event.
const (
	streamCompleted = "completed"
	streamFailed    = "failed"
)

var errStreamingUnsupported = errors.New("response writer cannot stream events")

// bulkStream writes the server-sent events of one bulk upload. Every stream
// ends with exactly one complete event naming the job and its final status.
type bulkStream struct {
	w     http.ResponseWriter
	flush http.Flusher
	jobID uuid.UUID
}

// openBulkStream commits the event-stream headers for job.
func openBulkStream(w http.ResponseWriter, jobID uuid.UUID) (*bulkStream, error) {
	flush, ok := w.(http.Flusher)
	if !ok {
		return nil, errStreamingUnsupported
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	// nginx buffers proxied responses unless told otherwise
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flush.Flush()

	return &bulkStream{w: w, flush: flush, jobID: jobID}, nil
}

func (b *bulkStream) send(name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", name, err)
	}
	if _, err := fmt.Fprintf(b.w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return fmt.Errorf("write %s event: %w", name, err)
	}
	b.flush.Flush()
	return nil
}

// finish reports cause, if any, and closes the stream with its final status.
func (b *bulkStream) finish(cause error) {
	status := streamCompleted
	if cause != nil {
		status = streamFailed
		_ = b.send(eventError, errorBody{Error: cause.Error()})
	}
	_ = b.send(eventComplete, map[string]string{
		"job_id": b.jobID.String(),
		"status": status,
	})
}

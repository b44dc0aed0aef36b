package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/recruit-scorer/internal/db"
	"github.com/jonathan/recruit-scorer/internal/ingestion"
	"github.com/jonathan/recruit-scorer/internal/llm"
	"github.com/jonathan/recruit-scorer/internal/logging"
	"github.com/jonathan/recruit-scorer/internal/observability"
	"github.com/jonathan/recruit-scorer/internal/scoring"
	"github.com/jonathan/recruit-scorer/internal/types"
)

// DefaultBulkDelay is the pause between consecutive model calls in a bulk upload.
const DefaultBulkDelay = 1200 * time.Millisecond

// Bulk item outcomes
const (
	ItemSucceeded = "succeeded"
	ItemFailed    = "failed"
	ItemDuplicate = "duplicate"
)

// BulkOptions configures a bulk upload.
type BulkOptions struct {
	// Delay between model calls. Zero uses DefaultBulkDelay; negative disables it.
	Delay time.Duration
	// SkipProfileExtraction builds the candidate profile from the analysis alone,
	// saving one model call per resume.
	SkipProfileExtraction bool
	OnProgress            ProgressCallback
}

func (o BulkOptions) delay() time.Duration {
	switch {
	case o.Delay == 0:
		return DefaultBulkDelay
	case o.Delay < 0:
		return 0
	default:
		return o.Delay
	}
}

// BulkItemResult is the outcome for one resume of a bulk upload.
type BulkItemResult struct {
	Index          int                    `json:"index"`
	Name           string                 `json:"name"`
	Status         string                 `json:"status"`
	CandidateID    *uuid.UUID             `json:"candidate_id,omitempty"`
	OverallScore   *int                   `json:"overall_score,omitempty"`
	Recommendation scoring.Recommendation `json:"recommendation,omitempty"`
	Degraded       bool                   `json:"degraded,omitempty"`
	Error          string                 `json:"error,omitempty"`
}

// BulkResult summarizes a bulk upload.
type BulkResult struct {
	JobID     uuid.UUID        `json:"job_id"`
	Total     int              `json:"total"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
	Skipped   int              `json:"skipped"`
	Items     []BulkItemResult `json:"items"`
}

// BulkProcessor analyzes, stores and scores batches of resumes for a job.
type BulkProcessor struct {
	store    db.Store
	analyzer *Analyzer
	scorer   *Scorer
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewBulkProcessor creates a BulkProcessor. metrics may be nil.
func NewBulkProcessor(store db.Store, analyzer *Analyzer, scorer *Scorer, metrics *observability.Metrics, logger *zap.Logger) *BulkProcessor {
	return &BulkProcessor{
		store:    store,
		analyzer: analyzer,
		scorer:   scorer,
		metrics:  metrics,
		logger:   logging.OrNop(logger),
	}
}

// BulkUpload processes resumes one at a time, pausing between model calls. A failed
// resume is recorded in the result and does not stop the batch; only context
// cancellation does, in which case the partial result is returned with the error.
// Resumes whose cleaned text duplicates an earlier one in the batch are skipped.
func (p *BulkProcessor) BulkUpload(ctx context.Context, job *db.Job, resumes []types.BulkResume, opts BulkOptions) (*BulkResult, error) {
	if job == nil {
		return nil, ErrJobNotFound
	}

	result := &BulkResult{JobID: job.ID, Total: len(resumes), Items: make([]BulkItemResult, 0, len(resumes))}
	progress := opts.OnProgress
	jobID := job.ID.String()
	logger := p.logger.With(zap.String(logging.FieldJobID, jobID))

	progress.emit(ProgressEvent{
		Step:     StepStarted,
		Category: CategoryBulk,
		Message:  fmt.Sprintf("Processing %d resumes for %s", len(resumes), job.Title),
		JobID:    jobID,
		Total:    len(resumes),
	})

	pacer := &pacer{delay: opts.delay()}
	seen := make(map[string]int, len(resumes))

	for i, resume := range resumes {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		item := BulkItemResult{Index: i, Name: strings.TrimSpace(resume.Name)}

		doc, err := ingestion.IngestText(resume.ResumeText, ingestion.SourceBulk)
		if err == nil {
			if first, dup := seen[doc.Metadata.Hash]; dup {
				item.Status = ItemDuplicate
				item.Error = fmt.Sprintf("duplicate of resume %d", first)
				result.Skipped++
				result.Items = append(result.Items, item)
				p.metrics.ObserveBulkItem(ItemDuplicate)
				continue
			}
			seen[doc.Metadata.Hash] = i
			err = p.processOne(ctx, job, resume, doc, &item, pacer, opts, progress, len(resumes))
		}

		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				return result, ctxErr
			}
			item.Status = ItemFailed
			item.Error = err.Error()
			result.Failed++
			logger.Warn("bulk item failed", zap.Int("index", i), zap.Error(err))
			progress.emit(ProgressEvent{
				Step:     StepItemError,
				Category: CategoryBulk,
				Message:  fmt.Sprintf("Resume %d failed: %v", i+1, err),
				JobID:    jobID,
				Index:    i,
				Total:    len(resumes),
				Content:  item,
			})
		} else {
			item.Status = ItemSucceeded
			result.Succeeded++
			progress.emit(ProgressEvent{
				Step:     StepItemDone,
				Category: CategoryBulk,
				Message:  fmt.Sprintf("Scored %s: %d", item.Name, *item.OverallScore),
				JobID:    jobID,
				Index:    i,
				Total:    len(resumes),
				Content:  item,
			})
		}
		p.metrics.ObserveBulkItem(item.Status)
		result.Items = append(result.Items, item)
	}

	progress.emit(ProgressEvent{
		Step:     StepCompleted,
		Category: CategoryBulk,
		Message: fmt.Sprintf("Completed: %d succeeded, %d failed, %d skipped",
			result.Succeeded, result.Failed, result.Skipped),
		JobID:   jobID,
		Total:   len(resumes),
		Content: result,
	})
	logger.Info("bulk upload completed",
		zap.Int("total", result.Total),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed))

	return result, nil
}

// processOne analyzes one resume, stores the candidate and scores it, filling item.
func (p *BulkProcessor) processOne(ctx context.Context, job *db.Job, resume types.BulkResume, doc *ingestion.Document,
	item *BulkItemResult, pacer *pacer, opts BulkOptions, progress ProgressCallback, total int) error {

	jobCtx := JobContext{Title: job.Title, Profile: job.Profile}

	if err := pacer.wait(ctx); err != nil {
		return err
	}
	progress.emit(ProgressEvent{
		Step:     StepAnalyze,
		Category: CategoryBulk,
		Message:  fmt.Sprintf("Analyzing resume %d of %d", item.Index+1, total),
		JobID:    job.ID.String(),
		Index:    item.Index,
		Total:    total,
	})
	analysis, err := p.analyzer.AnalyzeResume(ctx, doc.Text, jobCtx)
	if err != nil {
		return err
	}

	var draft *CandidateDraft
	if !opts.SkipProfileExtraction {
		if err := pacer.wait(ctx); err != nil {
			return err
		}
		progress.emit(ProgressEvent{
			Step:     StepProfile,
			Category: CategoryBulk,
			Message:  fmt.Sprintf("Extracting profile for resume %d", item.Index+1),
			JobID:    job.ID.String(),
			Index:    item.Index,
			Total:    total,
		})
		draft, err = p.analyzer.ExtractCandidateProfile(ctx, doc.Text)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			p.logger.Warn("profile extraction failed, using analysis skills",
				zap.Int("index", item.Index), zap.Error(err))
			draft = nil
		}
	}

	candidate := buildCandidate(job.ID, resume, doc.Text, analysis, draft, item.Index)
	if err := p.store.CreateCandidate(ctx, candidate); err != nil {
		return fmt.Errorf("failed to save candidate: %w", err)
	}
	if err := p.store.SetCandidateAnalysis(ctx, candidate.ID, analysis); err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}

	id := candidate.ID
	item.CandidateID = &id
	item.Name = candidate.Name
	item.Recommendation = analysis.Recommendation
	item.Degraded = analysis.Degraded

	rec, err := p.scorer.ScoreCandidate(ctx, candidate.ID, job.ID)
	if err != nil {
		return err
	}
	overall := rec.Score.OverallScore
	item.OverallScore = &overall
	return nil
}

// buildCandidate merges the upload fields, the extracted profile and the analysis.
// Explicit upload fields win over extracted ones.
func buildCandidate(jobID uuid.UUID, resume types.BulkResume, text string, analysis *scoring.ExtractedAnalysis,
	draft *CandidateDraft, index int) *db.Candidate {

	c := &db.Candidate{
		JobID:      &jobID,
		Name:       strings.TrimSpace(resume.Name),
		Email:      strings.ToLower(strings.TrimSpace(resume.Email)),
		ResumeText: text,
	}

	if draft != nil {
		c.Profile = draft.Profile
		c.Name = firstNonEmpty(c.Name, draft.Name)
		c.Email = firstNonEmpty(c.Email, strings.ToLower(draft.Email))
		c.Phone = draft.Phone
	} else {
		c.Profile.Skills = append([]string{}, analysis.Skills...)
	}

	if analysis.Name != nil {
		c.Name = firstNonEmpty(c.Name, *analysis.Name)
	}
	if analysis.Email != nil {
		c.Email = firstNonEmpty(c.Email, strings.ToLower(*analysis.Email))
	}
	if analysis.Phone != nil {
		c.Phone = firstNonEmpty(c.Phone, *analysis.Phone)
	}
	if len(c.Profile.Skills) == 0 {
		c.Profile.Skills = append([]string{}, analysis.Skills...)
	}
	c.Name = firstNonEmpty(c.Name, fmt.Sprintf("Candidate %d", index+1))
	return c
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// pacer spaces out model calls: the first call runs immediately and each later
// call waits delay.
type pacer struct {
	delay   time.Duration
	started bool
}

func (p *pacer) wait(ctx context.Context) error {
	if !p.started {
		p.started = true
		return ctx.Err()
	}
	return llm.WaitFor(ctx, p.delay)
}

package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/recruit-scorer/internal/db"
	"github.com/jonathan/recruit-scorer/internal/fetch"
	"github.com/jonathan/recruit-scorer/internal/logging"
	"github.com/jonathan/recruit-scorer/internal/parsing"
)

// PostingFetcher retrieves the text of a job posting page.
type PostingFetcher interface {
	Posting(ctx context.Context, url string, useBrowser bool) (*fetch.Posting, error)
}

// ImportOptions configures a job import.
type ImportOptions struct {
	UseBrowser bool
	// Save stores the parsed job as a draft.
	Save       bool
	CreatedBy  *uuid.UUID
	OnProgress ProgressCallback
}

// ImportResult is the outcome of a job import. Job is set only when saved.
type ImportResult struct {
	Draft     *parsing.JobDraft `json:"draft"`
	Job       *db.Job           `json:"job,omitempty"`
	Platform  fetch.Platform    `json:"platform"`
	PageTitle string            `json:"page_title,omitempty"`
	Rendered  bool              `json:"rendered"`
}

// Importer turns job posting URLs into job profiles.
type Importer struct {
	fetcher PostingFetcher
	parser  *parsing.Parser
	store   db.Store
	logger  *zap.Logger
}

// NewImporter creates an Importer. store may be nil when imports are never saved.
func NewImporter(fetcher PostingFetcher, parser *parsing.Parser, store db.Store, logger *zap.Logger) *Importer {
	return &Importer{
		fetcher: fetcher,
		parser:  parser,
		store:   store,
		logger:  logging.OrNop(logger),
	}
}

// ImportJob fetches a posting, parses it into a job profile and optionally saves
// it as a draft job.
func (im *Importer) ImportJob(ctx context.Context, url string, opts ImportOptions) (*ImportResult, error) {
	progress := opts.OnProgress

	progress.emit(ProgressEvent{Step: StepFetch, Category: CategoryImport, Message: "Fetching job posting..."})
	posting, err := im.fetcher.Posting(ctx, url, opts.UseBrowser)
	if err != nil {
		return nil, err
	}

	progress.emit(ProgressEvent{
		Step:     StepParse,
		Category: CategoryImport,
		Message:  fmt.Sprintf("Parsing %d characters from %s posting...", len(posting.Text), posting.Platform),
	})
	draft, err := im.parser.ParseJobPosting(ctx, posting.Text)
	if err != nil {
		return nil, err
	}
	draft.SourceURL = url

	result := &ImportResult{
		Draft:     draft,
		Platform:  posting.Platform,
		PageTitle: posting.Title,
		Rendered:  posting.Rendered,
	}

	if opts.Save {
		if im.store == nil {
			return nil, fmt.Errorf("no store configured to save imported job")
		}
		job := &db.Job{
			Title:       draft.Title,
			Company:     draft.Company,
			Description: draft.Description,
			Status:      db.JobStatusDraft,
			SourceURL:   url,
			Profile:     draft.Profile,
			CreatedBy:   opts.CreatedBy,
		}
		if err := im.store.CreateJob(ctx, job); err != nil {
			return nil, fmt.Errorf("failed to save imported job: %w", err)
		}
		result.Job = job
		im.logger.Info("imported job saved",
			zap.String(logging.FieldJobID, job.ID.String()),
			zap.String("url", url),
			zap.String("platform", string(posting.Platform)))
	}

	progress.emit(ProgressEvent{
		Step:     StepCompleted,
		Category: CategoryImport,
		Message:  fmt.Sprintf("Imported %q", draft.Title),
		Content:  result,
	})
	return result, nil
}

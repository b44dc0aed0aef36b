// Package parsing turns job posting text into a structured job profile draft using
// schema-guided model extraction.
package parsing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/recruit-scorer/internal/llm"
	"github.com/jonathan/recruit-scorer/internal/logging"
	"github.com/jonathan/recruit-scorer/internal/prompts"
	"github.com/jonathan/recruit-scorer/internal/schemas"
	"github.com/jonathan/recruit-scorer/internal/scoring"
)

// DefaultMaxAttempts is the number of model calls made before giving up on a
// response that does not match the schema.
const DefaultMaxAttempts = 2

// OpenEndedExperienceSpan is added to the minimum when a posting states no upper
// bound ("5+ years" becomes 5-15), so experienced candidates are not scored as
// overqualified against a zero maximum.
const OpenEndedExperienceSpan = 10

// maxPostingRunes bounds the posting text placed in the prompt.
const maxPostingRunes = 20000

// JobDraft is a parsed job posting, ready to be reviewed and saved as a job.
type JobDraft struct {
	Title       string             `json:"title"`
	Company     string             `json:"company,omitempty"`
	Description string             `json:"description,omitempty"`
	Profile     scoring.JobProfile `json:"profile"`
	SourceURL   string             `json:"source_url,omitempty"`
}

// rawJobProfile mirrors the extraction schema; numbers may be null.
type rawJobProfile struct {
	Title           string   `json:"title"`
	Company         *string  `json:"company"`
	Description     *string  `json:"description"`
	Location        *string  `json:"location"`
	IsRemoteOK      bool     `json:"is_remote_ok"`
	MinExperience   *float64 `json:"min_experience"`
	MaxExperience   *float64 `json:"max_experience"`
	Requirements    []string `json:"requirements"`
	SalaryMin       *float64 `json:"salary_min"`
	SalaryMax       *float64 `json:"salary_max"`
	MinDegree       *string  `json:"min_degree"`
	PreferredFields []string `json:"preferred_fields"`
}

// Parser extracts job profiles through a model gateway.
type Parser struct {
	gateway     llm.Gateway
	genConfig   llm.GenerateConfig
	maxAttempts int
	logger      *zap.Logger
}

// NewParser creates a parser that uses the advanced model tier of cfg.
func NewParser(gateway llm.Gateway, cfg *llm.Config, logger *zap.Logger) *Parser {
	if cfg == nil {
		cfg = llm.DefaultConfig()
	}
	genConfig := cfg.GenerateConfig(llm.TierAdvanced)
	return &Parser{
		gateway:     gateway,
		genConfig:   genConfig,
		maxAttempts: DefaultMaxAttempts,
		logger:      logging.WithAI(logger, string(cfg.Provider), genConfig.Model),
	}
}

// ParseJobPosting extracts a JobDraft from cleaned job posting text. A response that
// fails JSON parsing or schema validation is retried with the error fed back to the
// model, up to the parser's attempt limit.
func (p *Parser) ParseJobPosting(ctx context.Context, postingText string) (*JobDraft, error) {
	postingText = strings.TrimSpace(postingText)
	if postingText == "" {
		return nil, ErrEmptyPosting
	}

	extraction := llm.JobPostingSpec.Prompt(llm.TruncateText(postingText, maxPostingRunes))
	prompt, err := prompts.Render("parsing.json", "extract-job-profile", map[string]string{"Schema": extraction})
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		gen, err := p.gateway.Generate(ctx, prompt, p.genConfig)
		if err != nil {
			return nil, &GatewayError{Attempt: attempt, Err: err}
		}

		draft, err := decodeJobProfile(gen.Text)
		if err == nil {
			return draft, nil
		}

		lastErr = err
		p.logger.Warn("job profile response rejected",
			zap.Int("attempt", attempt),
			zap.String("response", logging.TruncateForLog(gen.Text, 200)),
			zap.Error(err))

		prompt, err = prompts.Render("parsing.json", "extract-job-profile-retry", map[string]string{
			"Error":  lastErr.Error(),
			"Schema": extraction,
		})
		if err != nil {
			return nil, err
		}
	}

	var parseErr *ParseError
	if errors.As(lastErr, &parseErr) {
		return nil, lastErr
	}
	return nil, &SchemaError{Attempts: p.maxAttempts, Err: lastErr}
}

// decodeJobProfile cleans, validates and normalizes one model response.
func decodeJobProfile(responseText string) (*JobDraft, error) {
	cleaned, err := llm.ResponseObject(responseText)
	if err != nil {
		return nil, &ParseError{Err: err}
	}

	var raw rawJobProfile
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, &ParseError{Err: err}
	}

	if err := schemas.Validate(schemas.JobProfile, []byte(cleaned)); err != nil {
		return nil, err
	}

	return raw.toDraft()
}

func (r *rawJobProfile) toDraft() (*JobDraft, error) {
	title := strings.TrimSpace(r.Title)
	if title == "" {
		return nil, &DraftError{Field: "title", Message: "is required"}
	}

	minExp, maxExp := orderedRange(deref(r.MinExperience), deref(r.MaxExperience))
	if maxExp == 0 {
		maxExp = minExp + OpenEndedExperienceSpan
	}
	salaryMin, salaryMax := orderedRange(deref(r.SalaryMin), deref(r.SalaryMax))

	fields := make([]string, 0, len(r.PreferredFields))
	for _, f := range r.PreferredFields {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, strings.ToLower(f))
		}
	}

	return &JobDraft{
		Title:       title,
		Company:     strings.TrimSpace(derefString(r.Company)),
		Description: strings.TrimSpace(derefString(r.Description)),
		Profile: scoring.JobProfile{
			MinExperience:   minExp,
			MaxExperience:   maxExp,
			Requirements:    canonicalSkills(r.Requirements),
			Location:        strings.TrimSpace(derefString(r.Location)),
			IsRemoteOK:      r.IsRemoteOK,
			SalaryMin:       salaryMin,
			SalaryMax:       salaryMax,
			MinDegree:       scoring.DegreeLevel(derefString(r.MinDegree)),
			PreferredFields: fields,
		},
	}, nil
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// String summarizes the draft for CLI output.
func (d *JobDraft) String() string {
	p := d.Profile
	return fmt.Sprintf("%s (%s) | %s remote=%t | exp %g-%g | salary %g-%g | %d requirements",
		d.Title, d.Company, p.Location, p.IsRemoteOK, p.MinExperience, p.MaxExperience,
		p.SalaryMin, p.SalaryMax, len(p.Requirements))
}

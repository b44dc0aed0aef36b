package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/recruit-scorer/internal/llm"
	"github.com/jonathan/recruit-scorer/internal/logging"
	"github.com/jonathan/recruit-scorer/internal/prompts"
	"github.com/jonathan/recruit-scorer/internal/schemas"
	"github.com/jonathan/recruit-scorer/internal/scoring"
)

// maxResumeRunes bounds the resume text placed in a prompt.
const maxResumeRunes = 30000

// JobContext is the part of a job shown to the model when analyzing a resume.
type JobContext struct {
	Title   string
	Profile scoring.JobProfile
}

// CandidateDraft is the scoring profile extracted from a resume.
type CandidateDraft struct {
	Name    string                   `json:"name"`
	Email   string                   `json:"email,omitempty"`
	Phone   string                   `json:"phone,omitempty"`
	Profile scoring.CandidateProfile `json:"profile"`
}

// Analyzer sends resumes to the model gateway and parses the answers.
type Analyzer struct {
	gateway     llm.Gateway
	analysisCfg llm.GenerateConfig
	profileCfg  llm.GenerateConfig
	extractor   *scoring.Extractor
	logger      *zap.Logger
}

// NewAnalyzer creates an Analyzer. Analyses use the standard model tier and
// profile extraction the lite tier.
func NewAnalyzer(gateway llm.Gateway, cfg *llm.Config, extractor *scoring.Extractor, logger *zap.Logger) *Analyzer {
	if cfg == nil {
		cfg = llm.DefaultConfig()
	}
	if extractor == nil {
		extractor = scoring.NewExtractor(scoring.DefaultTruncateLimit)
	}
	return &Analyzer{
		gateway:     gateway,
		analysisCfg: cfg.GenerateConfig(llm.TierStandard),
		profileCfg:  cfg.GenerateConfig(llm.TierLite),
		extractor:   extractor,
		logger:      logging.WithAI(logger, string(cfg.Provider), ""),
	}
}

// AnalyzeResume asks the model to evaluate a resume against a job. Gateway failures
// are returned; an unparseable answer yields the degraded fallback analysis.
func (a *Analyzer) AnalyzeResume(ctx context.Context, resumeText string, job JobContext) (*scoring.ExtractedAnalysis, error) {
	resumeText = strings.TrimSpace(resumeText)
	if resumeText == "" {
		return nil, fmt.Errorf("resume text is empty")
	}

	prompt, err := prompts.Render("analysis.json", "analyze-resume", analysisPromptData(resumeText, job))
	if err != nil {
		return nil, err
	}

	gen, err := a.gateway.Generate(ctx, prompt, a.analysisCfg)
	if err != nil {
		return nil, fmt.Errorf("resume analysis failed: %w", err)
	}

	analysis := a.extractor.Extract(gen.Text)
	if analysis.Degraded {
		a.logger.Warn("analysis response could not be parsed",
			zap.String(logging.FieldModel, a.analysisCfg.Model),
			zap.String("response", logging.TruncateForLog(gen.Text, 200)))
	}
	return &analysis, nil
}

// ExtractCandidateProfile asks the model for the structured scoring profile of a
// resume. The answer must match the candidate profile schema.
func (a *Analyzer) ExtractCandidateProfile(ctx context.Context, resumeText string) (*CandidateDraft, error) {
	prompt, err := prompts.Render("analysis.json", "extract-candidate-profile", map[string]string{
		"ResumeText": llm.TruncateText(strings.TrimSpace(resumeText), maxResumeRunes),
	})
	if err != nil {
		return nil, err
	}

	gen, err := a.gateway.Generate(ctx, prompt, a.profileCfg)
	if err != nil {
		return nil, fmt.Errorf("profile extraction failed: %w", err)
	}

	cleaned, err := llm.ResponseObject(gen.Text)
	if err != nil {
		return nil, fmt.Errorf("profile extraction returned invalid profile: %w", err)
	}
	if err := schemas.Validate(schemas.CandidateProfile, []byte(cleaned)); err != nil {
		return nil, fmt.Errorf("profile extraction returned invalid profile: %w", err)
	}

	var raw struct {
		Name  *string `json:"name"`
		Email *string `json:"email"`
		Phone *string `json:"phone"`
		scoring.CandidateProfile
	}
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}

	profile := raw.CandidateProfile
	profile.Skills = compact(profile.Skills)
	if profile.DesiredSalaryMin != nil && *profile.DesiredSalaryMin <= 0 {
		profile.DesiredSalaryMin = nil
	}
	if profile.DesiredSalaryMax != nil && *profile.DesiredSalaryMax <= 0 {
		profile.DesiredSalaryMax = nil
	}

	return &CandidateDraft{
		Name:    strings.TrimSpace(deref(raw.Name)),
		Email:   strings.TrimSpace(deref(raw.Email)),
		Phone:   strings.TrimSpace(deref(raw.Phone)),
		Profile: profile,
	}, nil
}

func analysisPromptData(resumeText string, job JobContext) map[string]string {
	p := job.Profile

	location := p.Location
	if location == "" {
		location = "not specified"
	}
	requirements := "not specified"
	if len(p.Requirements) > 0 {
		requirements = strings.Join(p.Requirements, ", ")
	}
	salary := "not specified"
	if p.SalaryMin > 0 || p.SalaryMax > 0 {
		salary = fmt.Sprintf("%s-%s", formatAmount(p.SalaryMin), formatAmount(p.SalaryMax))
	}

	return map[string]string{
		"JobTitle":        job.Title,
		"JobLocation":     location,
		"RemoteOK":        strconv.FormatBool(p.IsRemoteOK),
		"ExperienceRange": fmt.Sprintf("%s-%s", formatAmount(p.MinExperience), formatAmount(p.MaxExperience)),
		"Requirements":    requirements,
		"SalaryBand":      salary,
		"ResumeText":      llm.TruncateText(resumeText, maxResumeRunes),
	}
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/recruit-scorer/internal/ingestion"
	"github.com/jonathan/recruit-scorer/internal/observability"
	"github.com/jonathan/recruit-scorer/internal/pipeline"
	"github.com/jonathan/recruit-scorer/internal/scoring"
	"github.com/jonathan/recruit-scorer/internal/types"
)

var (
	analyzeResumeFile string
	analyzeJobFile    string
	analyzeJobTitle   string
	analyzeScore      bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a resume with the language model",
	Long: `Send a plain-text resume to the model and print the extracted analysis.

With --job the resume is evaluated against that job profile. --score also
extracts the candidate profile from the resume and prints the full weighted score.`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeResumeFile, "resume", "r", "", "Plain-text resume file (required)")
	analyzeCmd.Flags().StringVarP(&analyzeJobFile, "job", "j", "", "Job profile JSON file")
	analyzeCmd.Flags().StringVarP(&analyzeJobTitle, "title", "t", "", "Job title shown to the model")
	analyzeCmd.Flags().BoolVar(&analyzeScore, "score", false, "Extract the candidate profile and compute the overall score (requires --job)")

	if err := analyzeCmd.MarkFlagRequired("resume"); err != nil {
		panic(fmt.Sprintf("failed to mark resume flag as required: %v", err))
	}

	rootCmd.AddCommand(analyzeCmd)
}

// AnalyzeOutput is printed by the analyze command.
type AnalyzeOutput struct {
	Analysis  *scoring.ExtractedAnalysis `json:"analysis"`
	Candidate *pipeline.CandidateDraft   `json:"candidate,omitempty"`
	Score     *scoring.CandidateScore    `json:"score,omitempty"`
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	if analyzeScore && analyzeJobFile == "" {
		return fmt.Errorf("--score requires --job")
	}

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	doc, err := ingestion.IngestFromFile(analyzeResumeFile)
	if err != nil {
		return fmt.Errorf("failed to read resume: %w", err)
	}

	job := pipeline.JobContext{Title: analyzeJobTitle}
	if analyzeJobFile != "" {
		var input types.JobProfileInput
		if err := readJSONFile(analyzeJobFile, &input); err != nil {
			return err
		}
		if err := input.Validate(); err != nil {
			return fmt.Errorf("invalid job profile: %w", err)
		}
		job.Profile = input.ToProfile()
	}

	ctx := cmd.Context()
	gateway, closeGW, err := newGateway(ctx, cfg, nil, logger)
	if err != nil {
		return err
	}
	defer closeGW()

	analyzer := pipeline.NewAnalyzer(gateway, &cfg.LLM.Config, scoring.NewExtractor(cfg.Scoring.TruncateLimit), logger)

	analysis, err := analyzer.AnalyzeResume(ctx, doc.Text, job)
	if err != nil {
		return fmt.Errorf("failed to analyze resume: %w", err)
	}
	if analysis.Degraded {
		logger.Warn("model response could not be parsed; fallback analysis returned",
			zap.String("file", doc.Metadata.Filename))
	}

	out := AnalyzeOutput{Analysis: analysis}
	if analyzeScore {
		draft, err := analyzer.ExtractCandidateProfile(ctx, doc.Text)
		if err != nil {
			return fmt.Errorf("failed to extract candidate profile: %w", err)
		}
		aiScore := analysis.OverallScore
		score := cfg.Scoring.Aggregator().Score(draft.Profile, job.Profile, cfg.Scoring.Weights, &aiScore)
		out.Candidate = draft
		out.Score = &score
	}

	if textOutput() {
		printer := observability.NewPrinter(cmd.OutOrStdout())
		printer.PrintAnalysis(out.Analysis)
		printer.PrintScore(out.Score)
		return nil
	}
	return writeJSON(cmd.OutOrStdout(), out)
}

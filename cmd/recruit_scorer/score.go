package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/recruit-scorer/internal/observability"
	"github.com/jonathan/recruit-scorer/internal/types"
)

var (
	scoreCandidateFile string
	scoreJobFile       string
	scoreWeightsFile   string
	scoreAIScore       float64
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score a candidate profile against a job profile",
	Long: `Score a candidate against a job without a database or model.

The candidate and job files hold the "candidate" and "job" objects accepted by
POST /score. Weights default to the configured set; --ai-score supplies an
analysis score, otherwise the neutral score is used.`,
	RunE: runScore,
}

func init() {
	scoreCmd.Flags().StringVarP(&scoreCandidateFile, "candidate", "c", "", "Candidate profile JSON file (required)")
	scoreCmd.Flags().StringVarP(&scoreJobFile, "job", "j", "", "Job profile JSON file (required)")
	scoreCmd.Flags().StringVarP(&scoreWeightsFile, "weights", "w", "", "Scoring weights JSON file")
	scoreCmd.Flags().Float64Var(&scoreAIScore, "ai-score", 0, "AI analysis score (0-100)")

	if err := scoreCmd.MarkFlagRequired("candidate"); err != nil {
		panic(fmt.Sprintf("failed to mark candidate flag as required: %v", err))
	}
	if err := scoreCmd.MarkFlagRequired("job"); err != nil {
		panic(fmt.Sprintf("failed to mark job flag as required: %v", err))
	}

	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	var candidate types.CandidateProfileInput
	if err := readJSONFile(scoreCandidateFile, &candidate); err != nil {
		return err
	}
	if err := candidate.Validate(); err != nil {
		return fmt.Errorf("invalid candidate profile: %w", err)
	}

	var job types.JobProfileInput
	if err := readJSONFile(scoreJobFile, &job); err != nil {
		return err
	}
	if err := job.Validate(); err != nil {
		return fmt.Errorf("invalid job profile: %w", err)
	}

	weights := cfg.Scoring.Weights
	if scoreWeightsFile != "" {
		// Omitted fields weigh 0, as in POST /score.
		var input types.WeightsInput
		if err := readJSONFile(scoreWeightsFile, &input); err != nil {
			return err
		}
		if err := input.Validate(); err != nil {
			return fmt.Errorf("invalid weights: %w", err)
		}
		weights = input.ToWeights()
	}

	var aiScore *float64
	if cmd.Flags().Changed("ai-score") {
		if scoreAIScore < 0 || scoreAIScore > 100 {
			return fmt.Errorf("--ai-score must be between 0 and 100, got %v", scoreAIScore)
		}
		aiScore = &scoreAIScore
	}

	result := cfg.Scoring.Aggregator().Score(candidate.ToProfile(), job.ToProfile(), weights, aiScore)
	if textOutput() {
		observability.NewPrinter(cmd.OutOrStdout()).PrintScore(&result)
		return nil
	}
	return writeJSON(cmd.OutOrStdout(), result)
}

package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/recruit-scorer/internal/export"
	"github.com/jonathan/recruit-scorer/internal/observability"
	"github.com/jonathan/recruit-scorer/internal/pipeline"
)

var (
	reportJobID   string
	reportOutFile string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Export a job's candidate ranking as an Excel workbook",
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportJobID, "job-id", "", "Job ID (required)")
	reportCmd.Flags().StringVarP(&reportOutFile, "out", "o", "candidates.xlsx", "Output .xlsx path")

	if err := reportCmd.MarkFlagRequired("job-id"); err != nil {
		panic(fmt.Sprintf("failed to mark job-id flag as required: %v", err))
	}

	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, _ []string) error {
	jobID, err := uuid.Parse(reportJobID)
	if err != nil {
		return fmt.Errorf("invalid job ID %q: %w", reportJobID, err)
	}

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()
	database, closeDB, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	job, err := database.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to load job: %w", err)
	}
	if job == nil {
		return fmt.Errorf("%w: %s", pipeline.ErrJobNotFound, jobID)
	}

	ranked, err := pipeline.NewScorer(database, cfg.Scoring.Aggregator(), nil, logger).Ranking(ctx, jobID)
	if err != nil {
		return err
	}

	path, err := export.SaveCandidateReport(reportOutFile, job, ranked)
	if err != nil {
		return err
	}
	logger.Info("report written", zap.String("path", path), zap.Int("candidates", len(ranked)))
	if textOutput() {
		observability.NewPrinter(cmd.OutOrStdout()).PrintRanking(ranked)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), path)
	return err
}

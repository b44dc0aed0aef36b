package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/recruit-scorer/internal/db"
	"github.com/jonathan/recruit-scorer/internal/fetch"
	"github.com/jonathan/recruit-scorer/internal/observability"
	"github.com/jonathan/recruit-scorer/internal/parsing"
	"github.com/jonathan/recruit-scorer/internal/pipeline"
)

var (
	importURL     string
	importBrowser bool
	importSave    bool
)

var importJobCmd = &cobra.Command{
	Use:   "import-job",
	Short: "Import a job profile from a posting URL",
	Long: `Fetch a job posting, extract its text and parse it into a job profile.

Use --browser for pages that render their content with JavaScript (requires
Chrome). --save stores the result as a draft job in the database.`,
	RunE: runImportJob,
}

func init() {
	importJobCmd.Flags().StringVarP(&importURL, "url", "u", "", "Job posting URL (required)")
	importJobCmd.Flags().BoolVar(&importBrowser, "browser", false, "Render the page in headless Chrome")
	importJobCmd.Flags().BoolVar(&importSave, "save", false, "Save the job as a draft")

	if err := importJobCmd.MarkFlagRequired("url"); err != nil {
		panic(fmt.Sprintf("failed to mark url flag as required: %v", err))
	}

	rootCmd.AddCommand(importJobCmd)
}

func runImportJob(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()

	var store db.Store
	if importSave {
		database, closeDB, err := openDatabase(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeDB()
		store = database
	}

	gateway, closeGW, err := newGateway(ctx, cfg, nil, logger)
	if err != nil {
		return err
	}
	defer closeGW()

	importer := pipeline.NewImporter(
		fetch.NewClient(fetch.NewChromeRenderer(logger), logger),
		parsing.NewParser(gateway, &cfg.LLM.Config, logger),
		store,
		logger,
	)

	stderr := cmd.ErrOrStderr()
	result, err := importer.ImportJob(ctx, importURL, pipeline.ImportOptions{
		UseBrowser: importBrowser,
		Save:       importSave,
		OnProgress: func(event pipeline.ProgressEvent) {
			if event.Step != pipeline.StepCompleted {
				_, _ = fmt.Fprintln(stderr, event.Message)
			}
		},
	})
	if err != nil {
		return fmt.Errorf("failed to import job: %w", err)
	}

	if textOutput() {
		observability.NewPrinter(cmd.OutOrStdout()).PrintJobDraft(result.Draft)
		if result.Job != nil {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Saved as draft job %s\n", result.Job.ID)
		}
		return nil
	}
	return writeJSON(cmd.OutOrStdout(), result)
}

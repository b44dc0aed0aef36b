package main

import (
	"github.com/spf13/cobra"

	"github.com/jonathan/recruit-scorer/internal/observability"
	"github.com/jonathan/recruit-scorer/internal/scoring"
)

var (
	extractInputFile string
	extractTruncate  int
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract a structured analysis from raw model output",
	Long: `Parse a model response into the analysis shape used for scoring.

The JSON object spanning the first '{' to the last '}' is decoded. Unparseable
text yields the fallback analysis (score 70, REQUIRES_REVIEW) with the text
truncated into the summary.`,
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVarP(&extractInputFile, "in", "i", "-", "Response text file, or - for stdin")
	extractCmd.Flags().IntVar(&extractTruncate, "truncate", scoring.DefaultTruncateLimit, "Summary length for unparseable text")

	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, _ []string) error {
	data, err := readInput(extractInputFile)
	if err != nil {
		return err
	}
	analysis := scoring.NewExtractor(extractTruncate).Extract(string(data))
	if textOutput() {
		observability.NewPrinter(cmd.OutOrStdout()).PrintAnalysis(&analysis)
		return nil
	}
	return writeJSON(cmd.OutOrStdout(), analysis)
}

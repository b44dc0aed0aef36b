// Package main provides the recruit_scorer command: the HTTP API server and
// offline scoring, analysis, import and report tools.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configFile   string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "recruit_scorer",
	Short: "Recruitment scoring API server and tools",
	Long: "recruit_scorer scores candidates against job openings across experience, skills, " +
		"education, location, salary and model-based resume analysis, and serves the results over a REST API.",
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		if outputFormat != "json" && outputFormat != "text" {
			return fmt.Errorf("--output must be json or text, got %q", outputFormat)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a config file (default ./config.yaml when present)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", "json", "Output format: json or text")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

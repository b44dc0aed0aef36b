package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/recruit-scorer/internal/db"
)

var migratePrint bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database tables",
	RunE:  runMigrate,
}

func init() {
	migrateCmd.Flags().BoolVar(&migratePrint, "print", false, "Print the schema instead of applying it")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	if migratePrint {
		_, err := fmt.Fprint(cmd.OutOrStdout(), db.Schema())
		return err
	}

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	database, closeDB, err := openDatabase(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	if err := database.Migrate(cmd.Context()); err != nil {
		return err
	}
	logger.Info("database schema applied")
	return nil
}

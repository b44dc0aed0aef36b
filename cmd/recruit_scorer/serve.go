package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/recruit-scorer/internal/config"
	"github.com/jonathan/recruit-scorer/internal/db"
	"github.com/jonathan/recruit-scorer/internal/fetch"
	"github.com/jonathan/recruit-scorer/internal/llm"
	"github.com/jonathan/recruit-scorer/internal/observability"
	"github.com/jonathan/recruit-scorer/internal/scoring"
	"github.com/jonathan/recruit-scorer/internal/server"
)

var (
	servePort     int
	serveInMemory bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start an HTTP server exposing jobs, candidates, scoring, resume analysis and reports.

Requires JWT_SECRET. Without an LLM API key the server runs with /analyze,
bulk uploads and job imports disabled.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides server.port)")
	serveCmd.Flags().BoolVar(&serveInMemory, "in-memory", false, "Keep data in memory instead of PostgreSQL")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if cmd.Flags().Changed("port") {
		cfg.Server.Port = servePort
	}

	jwtCfg, err := config.NewJWTConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store db.Store
	if serveInMemory {
		logger.Warn("using in-memory store; data is lost on exit")
		store = db.NewMemoryStore()
	} else {
		database, closeDB, err := openDatabase(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeDB()
		store = database
	}

	if err := seedWeights(ctx, store, cfg.Scoring.Weights, logger); err != nil {
		return err
	}

	metrics := observability.NewMetrics()

	var gateway llm.Gateway
	if cfg.LLM.APIKey == "" {
		logger.Warn("no LLM API key configured; analysis, bulk upload and job import are disabled")
	} else {
		gw, closeGW, err := newGateway(ctx, cfg, metrics, logger)
		if err != nil {
			return err
		}
		defer closeGW()
		gateway = gw
	}

	srv, err := server.New(cfg, server.Deps{
		Store:   store,
		Gateway: gateway,
		LLM:     &cfg.LLM.Config,
		Fetcher: fetch.NewClient(fetch.NewChromeRenderer(logger), logger),
		Metrics: metrics,
		Logger:  logger,
		JWT:     jwtCfg,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start(ctx)
}

// seedWeights stores the configured weights when none have been saved and they
// differ from the defaults, so stored scoring and the API agree.
func seedWeights(ctx context.Context, store db.Store, configured scoring.ScoringWeights, logger *zap.Logger) error {
	if configured == scoring.DefaultWeights() {
		return nil
	}
	existing, err := store.GetScoringWeights(ctx)
	if err != nil {
		return fmt.Errorf("failed to load scoring weights: %w", err)
	}
	if existing != nil {
		return nil
	}
	if err := store.SaveScoringWeights(ctx, configured); err != nil {
		return fmt.Errorf("failed to save scoring weights: %w", err)
	}
	logger.Info("seeded scoring weights from configuration", zap.Float64("total", configured.Sum()))
	return nil
}

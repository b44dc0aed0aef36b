package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/jonathan/recruit-scorer/internal/config"
	"github.com/jonathan/recruit-scorer/internal/db"
	"github.com/jonathan/recruit-scorer/internal/llm"
	"github.com/jonathan/recruit-scorer/internal/logging"
	"github.com/jonathan/recruit-scorer/internal/observability"
)

// loadConfig reads the configuration and builds the logger it describes.
func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Log.JSON, cfg.Log.Debug)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, logger, nil
}

// openDatabase connects to PostgreSQL. The returned func closes the pool.
func openDatabase(ctx context.Context, cfg *config.Config) (*db.DB, func(), error) {
	if err := cfg.RequireDatabase(); err != nil {
		return nil, nil, err
	}
	database, err := db.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return nil, nil, err
	}
	return database, database.Close, nil
}

// newGateway builds the Gemini gateway behind retries, throttling and the
// circuit breaker. metrics may be nil.
func newGateway(ctx context.Context, cfg *config.Config, metrics *observability.Metrics, logger *zap.Logger) (llm.Gateway, func(), error) {
	if err := cfg.RequireAPIKey(); err != nil {
		return nil, nil, err
	}

	gemini, err := llm.NewGeminiGateway(ctx, cfg.LLM.APIKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	resilient := llm.NewResilientGateway(gemini, &cfg.LLM.Config, logger)
	metrics.RegisterBreakerState(resilient.BreakerState)

	closeFn := func() {
		if err := gemini.Close(); err != nil {
			logger.Warn("failed to close LLM client", zap.Error(err))
		}
	}
	return metrics.InstrumentGateway(resilient), closeFn, nil
}

func textOutput() bool {
	return outputFormat == "text"
}

// readJSONFile decodes a JSON file, or stdin when path is "-".
func readJSONFile(path string, v any) error {
	data, err := readInput(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// writeJSON prints v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"filing_analytics/pkg/core/config"
	"filing_analytics/pkg/core/extract"
	"filing_analytics/pkg/core/ingest"
	"filing_analytics/pkg/core/llm"
	"filing_analytics/pkg/core/logger"
	"filing_analytics/pkg/core/pipeline"
	"filing_analytics/pkg/core/store"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	inputDir := flag.String("input", "", "override the input directory")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, assuming environment variables are set.")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *inputDir != "" {
		cfg.Input.Dir = *inputDir
	}

	appLog := logger.New(cfg.Logging.Level)

	if err := run(cfg, appLog); err != nil {
		appLog.Error("pipeline failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, appLog *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := buildProvider(cfg.LLM)
	if err != nil {
		return err
	}

	rel, err := store.OpenRelational(cfg.Storage.SQLitePath)
	if err != nil {
		return err
	}
	defer rel.Close()

	mirror, err := store.OpenDuckDBMirror(cfg.Storage.DuckDBPath)
	if err != nil {
		return err
	}
	defer mirror.Close()

	persister := store.NewPersister(rel, mirror, appLog)
	extractor := extract.NewExtractor(provider, cfg.LLM, appLog)

	orch := pipeline.New(cfg, appLog, ingest.NewFileTextExtractor(), extractor, persister)
	orch.SetMirror(mirror)

	if cfg.Storage.PostgresDSN != "" {
		snapshots, err := store.NewSnapshotRepo(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return err
		}
		defer snapshots.Close()
		orch.SetSnapshots(snapshots)
	}

	return orch.Run(ctx)
}

func buildProvider(cfg config.LLMConfig) (llm.Provider, error) {
	switch cfg.Provider {
	case "gemini":
		apiKey := os.Getenv("GEMINI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is not set")
		}
		return &llm.GeminiProvider{Model: cfg.Model, APIKey: apiKey}, nil
	case "deepseek":
		apiKey := os.Getenv("DEEPSEEK_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("DEEPSEEK_API_KEY is not set")
		}
		return &llm.DeepSeekProvider{APIKey: apiKey}, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

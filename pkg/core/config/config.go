// Package config holds the explicit configuration object for the pipeline.
// All stores and the orchestrator receive it at construction; nothing in the
// pipeline reads process-wide state after startup.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Configuration validation errors.
var (
	ErrMissingInputDir   = errors.New("input.dir is required")
	ErrMissingReportPath = errors.New("output.report_path is required")
	ErrMissingDBPath     = errors.New("storage.sqlite_path is required")
	ErrInvalidProvider   = errors.New("llm.provider must be 'gemini' or 'deepseek'")
	ErrInvalidTimeout    = errors.New("llm.timeout_sec must be at least 1")
	ErrInvalidRetries    = errors.New("llm.retry.max_attempts must be at least 1")
	ErrInvalidBackoff    = errors.New("llm.retry.backoff_multiplier must be >= 1.0")
	ErrInvalidWorkers    = errors.New("pipeline.workers must be at least 1")
)

// Config is the complete pipeline configuration.
type Config struct {
	Input    InputConfig    `yaml:"input"`
	LLM      LLMConfig      `yaml:"llm"`
	Storage  StorageConfig  `yaml:"storage"`
	Output   OutputConfig   `yaml:"output"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// InputConfig locates the filing documents to ingest.
type InputConfig struct {
	Dir string `yaml:"dir"`
}

// LLMConfig selects and bounds the inference provider.
type LLMConfig struct {
	Provider   string      `yaml:"provider"` // "gemini" or "deepseek"
	Model      string      `yaml:"model"`    // optional override
	TimeoutSec int         `yaml:"timeout_sec"`
	Retry      RetryPolicy `yaml:"retry"`
}

// RetryPolicy bounds retries of the inference call. Only transport failures
// are retried; a decodable-but-wrong response is never re-requested.
type RetryPolicy struct {
	MaxAttempts       int     `yaml:"max_attempts"`
	InitialDelayMs    int     `yaml:"initial_delay_ms"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
}

// StorageConfig locates the two physical stores.
type StorageConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
	DuckDBPath string `yaml:"duckdb_path"`
	ParquetDir string `yaml:"parquet_dir"`
	// PostgresDSN enables the optional analytics snapshot upsert. Empty
	// disables it. May also come from DATABASE_URL via the environment.
	PostgresDSN string `yaml:"postgres_dsn"`
}

// OutputConfig locates the report sink and the debug results dump.
type OutputConfig struct {
	ReportPath  string `yaml:"report_path"`
	ResultsJSON string `yaml:"results_json"`
}

// PipelineConfig tunes batch execution.
type PipelineConfig struct {
	Workers int `yaml:"workers"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Timeout returns the inference call timeout as a duration.
func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// Delay returns the backoff delay before retry attempt n (0-based).
func (r RetryPolicy) Delay(attempt int) time.Duration {
	d := float64(r.InitialDelayMs)
	for i := 0; i < attempt; i++ {
		d *= r.BackoffMultiplier
	}
	return time.Duration(d) * time.Millisecond
}

// Default returns a configuration with working defaults for everything that
// has a sensible one. Input and output paths still need to be set.
func Default() Config {
	return Config{
		LLM: LLMConfig{
			Provider:   "gemini",
			TimeoutSec: 120,
			Retry: RetryPolicy{
				MaxAttempts:       3,
				InitialDelayMs:    500,
				BackoffMultiplier: 2.0,
			},
		},
		Storage: StorageConfig{
			SQLitePath: "gold/financial_data.db",
			DuckDBPath: "gold/financial_data.duckdb",
			ParquetDir: "gold",
		},
		Output: OutputConfig{
			ReportPath:  "output.txt",
			ResultsJSON: "gold/financial_data_results.json",
		},
		Pipeline: PipelineConfig{Workers: 1},
		Logging:  LoggingConfig{Level: "info"},
	}
}

// Load reads a YAML configuration file over the defaults and validates it.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	// Environment overlay for the secretful bit.
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" && cfg.Storage.PostgresDSN == "" {
		cfg.Storage.PostgresDSN = dsn
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the configuration for internal consistency.
func (c Config) Validate() error {
	if c.Input.Dir == "" {
		return ErrMissingInputDir
	}
	if c.Output.ReportPath == "" {
		return ErrMissingReportPath
	}
	if c.Storage.SQLitePath == "" {
		return ErrMissingDBPath
	}
	switch c.LLM.Provider {
	case "gemini", "deepseek":
	default:
		return ErrInvalidProvider
	}
	if c.LLM.TimeoutSec < 1 {
		return ErrInvalidTimeout
	}
	if c.LLM.Retry.MaxAttempts < 1 {
		return ErrInvalidRetries
	}
	if c.LLM.Retry.BackoffMultiplier < 1.0 {
		return ErrInvalidBackoff
	}
	if c.Pipeline.Workers < 1 {
		return ErrInvalidWorkers
	}
	return nil
}

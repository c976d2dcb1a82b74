package config

import (
	"math"
	"os"
	"strconv"

	"github.com/RyanBlaney/rdstat/analysis"
	"github.com/RyanBlaney/rdstat/cohort"
	"github.com/RyanBlaney/rdstat/internal/errors"
	"github.com/RyanBlaney/rdstat/logging"
	"github.com/RyanBlaney/rdstat/record"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig
	Analysis AnalysisConfig
	Parser   record.ParserConfig
	Logging  LoggingConfig
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port        string
	MaxUploadMB int
	UploadDir   string // empty means the system temp directory
}

// AnalysisConfig holds the statistical pipeline settings
type AnalysisConfig struct {
	Permutations      int
	ClusterPThreshold float64
	RandomSeed        int64
	MaxDisplaySeconds float64
	PSDSegmentLength  int
	Workers           int // 0 means GOMAXPROCS
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	parser := record.DefaultParserConfig()
	config := &Config{
		Server: ServerConfig{
			Port:        getEnvOrDefault("PORT", "5000"),
			MaxUploadMB: getEnvIntOrDefault("MAX_UPLOAD_MB", 50),
			UploadDir:   getEnvOrDefault("UPLOAD_DIR", ""),
		},
		Analysis: AnalysisConfig{
			Permutations:      getEnvIntOrDefault("PERMUTATIONS", 1000),
			ClusterPThreshold: getEnvFloatOrDefault("CLUSTER_P_THRESHOLD", 0.05),
			RandomSeed:        int64(getEnvIntOrDefault("RANDOM_SEED", 1)),
			MaxDisplaySeconds: getEnvFloatOrDefault("MAX_DISPLAY_SECONDS", cohort.DefaultMaxDisplaySeconds),
			PSDSegmentLength:  getEnvIntOrDefault("PSD_NPERSEG", analysis.DefaultSegmentLength),
			Workers:           getEnvIntOrDefault("WORKERS", 0),
		},
		Parser: record.ParserConfig{
			DefaultChannels:   getEnvIntOrDefault("DEFAULT_CHANNELS", parser.DefaultChannels),
			DefaultSamples:    getEnvIntOrDefault("DEFAULT_SAMPLES", parser.DefaultSamples),
			DefaultIntervalMs: getEnvFloatOrDefault("DEFAULT_INTERVAL_MS", parser.DefaultIntervalMs),
			MaxCells:          getEnvIntOrDefault("MAX_CELLS", parser.MaxCells),
		},
		Logging: LoggingConfig{
			Level: getEnvOrDefault("LOG_LEVEL", "info"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

// Validate checks ranges that would otherwise fail deep inside the pipeline.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.ConfigInvalid("PORT is required")
	}
	if c.Server.MaxUploadMB <= 0 {
		return errors.ConfigInvalid("MAX_UPLOAD_MB must be positive")
	}
	if c.Analysis.Permutations < 0 {
		return errors.ConfigInvalid("PERMUTATIONS must not be negative")
	}
	if p := c.Analysis.ClusterPThreshold; !(p > 0 && p < 1) {
		return errors.ConfigInvalid("CLUSTER_P_THRESHOLD must be in (0, 1)")
	}
	if math.IsNaN(c.Analysis.MaxDisplaySeconds) {
		return errors.ConfigInvalid("MAX_DISPLAY_SECONDS must be a number")
	}
	if c.Analysis.PSDSegmentLength < 0 {
		return errors.ConfigInvalid("PSD_NPERSEG must not be negative")
	}
	if c.Analysis.Workers < 0 {
		return errors.ConfigInvalid("WORKERS must not be negative")
	}
	if c.Parser.DefaultChannels <= 0 || c.Parser.DefaultSamples <= 0 {
		return errors.ConfigInvalid("DEFAULT_CHANNELS and DEFAULT_SAMPLES must be positive")
	}
	if !record.ValidIntervalMs(c.Parser.DefaultIntervalMs) {
		return errors.ConfigInvalid("DEFAULT_INTERVAL_MS must give a sampling rate of at least 1 Hz")
	}
	if c.Parser.MaxCells <= 0 {
		return errors.ConfigInvalid("MAX_CELLS must be positive")
	}
	if c.Parser.DefaultChannels > c.Parser.MaxCells/c.Parser.DefaultSamples {
		return errors.ConfigInvalid("DEFAULT_CHANNELS x DEFAULT_SAMPLES exceeds MAX_CELLS")
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		appErr := errors.ConfigInvalid("LOG_LEVEL is not a level")
		appErr.Cause = err
		return appErr
	}
	return nil
}

// LogLevel returns the parsed logging level, InfoLevel if unparseable.
func (c *Config) LogLevel() logging.Level {
	level, _ := logging.ParseLevel(c.Logging.Level)
	return level
}

// MaxUploadBytes is the request body limit for uploads.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Server.MaxUploadMB) << 20
}

// LoadOptions maps the configuration onto cohort loading.
func (c *Config) LoadOptions() cohort.LoadOptions {
	return cohort.LoadOptions{
		Parser:            c.Parser,
		MaxDisplaySeconds: c.Analysis.MaxDisplaySeconds,
		Workers:           c.Analysis.Workers,
	}
}

// CompareOptions maps the configuration onto a comparison run.
func (c *Config) CompareOptions() analysis.CompareOptions {
	opts := analysis.DefaultCompareOptions()
	opts.Cluster.Permutations = c.Analysis.Permutations
	opts.Cluster.PThreshold = c.Analysis.ClusterPThreshold
	opts.Cluster.Seed = c.Analysis.RandomSeed
	opts.Cluster.Workers = c.Analysis.Workers
	opts.SegmentLength = c.Analysis.PSDSegmentLength
	return opts
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

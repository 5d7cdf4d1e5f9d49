package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment" validate:"omitempty,oneof=development production"`
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	Runs        RunsConfig      `toml:"runs"`
	Anthropic   AnthropicConfig `toml:"anthropic"`
	Verify      VerifyConfig    `toml:"verify"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"gt=0,lte=65535"`
	Host string `toml:"host" validate:"required"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"`
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level  string   `toml:"level" validate:"omitempty,oneof=debug info warn error"`
	Output []string `toml:"output" validate:"dive,oneof=stdout console file"`
}

// RunsConfig governs batch run execution defaults
type RunsConfig struct {
	DefaultBatchSize int    `toml:"default_batch_size" validate:"gt=0"`
	MaxBatchSize     int    `toml:"max_batch_size" validate:"gt=0"`
	BatchDelay       string `toml:"batch_delay" validate:"required"` // Fixed sleep between pages, e.g. "500ms"
}

// BatchDelayDuration parses the inter-batch delay
func (c *RunsConfig) BatchDelayDuration() time.Duration {
	d, err := time.ParseDuration(c.BatchDelay)
	if err != nil {
		return 500 * time.Millisecond
	}
	return d
}

// AnthropicConfig holds Claude API settings for the discovery enricher
type AnthropicConfig struct {
	APIKey    string `toml:"api_key"`
	Model     string `toml:"model"`
	Timeout   string `toml:"timeout"`
	MaxTokens int    `toml:"max_tokens"`
}

// VerifyConfig holds settings for the link verification enricher
type VerifyConfig struct {
	RequestTimeout    string  `toml:"request_timeout"`
	UserAgent         string  `toml:"user_agent"`
	RequestsPerSecond float64 `toml:"requests_per_second" validate:"gt=0"`
}

// SchedulerConfig controls the cron re-invocation of verification runs
type SchedulerConfig struct {
	Enabled    bool   `toml:"enabled"`
	Schedule   string `toml:"schedule"` // Cron expression, e.g. "@every 10m"
	BatchSize  int    `toml:"batch_size" validate:"gt=0"`
	MaxBatches int    `toml:"max_batches" validate:"gte=0"` // Page budget per invocation, 0 = unlimited
}

// DefaultConfig returns a config with sane defaults
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8085,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/prospector",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
		Runs: RunsConfig{
			DefaultBatchSize: 10,
			MaxBatchSize:     500,
			BatchDelay:       "500ms",
		},
		Anthropic: AnthropicConfig{
			Model:     "claude-sonnet-4-20250514",
			Timeout:   "60s",
			MaxTokens: 1024,
		},
		Verify: VerifyConfig{
			RequestTimeout:    "15s",
			UserAgent:         "prospector-linkcheck/1.0",
			RequestsPerSecond: 2,
		},
		Scheduler: SchedulerConfig{
			Enabled:    false,
			Schedule:   "@every 10m",
			BatchSize:  25,
			MaxBatches: 4,
		},
	}
}

// LoadConfig loads configuration with priority: default -> file -> env
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("PROSPECTOR_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("PROSPECTOR_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("PROSPECTOR_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if badgerPath := os.Getenv("PROSPECTOR_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	if level := os.Getenv("PROSPECTOR_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("PROSPECTOR_LOG_OUTPUT"); output != "" {
		parts := strings.Split(output, ",")
		outputs := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	if batchSize := os.Getenv("PROSPECTOR_RUNS_DEFAULT_BATCH_SIZE"); batchSize != "" {
		if b, err := strconv.Atoi(batchSize); err == nil && b > 0 {
			config.Runs.DefaultBatchSize = b
		}
	}
	if delay := os.Getenv("PROSPECTOR_RUNS_BATCH_DELAY"); delay != "" {
		config.Runs.BatchDelay = delay
	}

	// API key resolution order: ANTHROPIC_API_KEY -> PROSPECTOR_ANTHROPIC_API_KEY -> config file
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		config.Anthropic.APIKey = apiKey
	} else if apiKey := os.Getenv("PROSPECTOR_ANTHROPIC_API_KEY"); apiKey != "" {
		config.Anthropic.APIKey = apiKey
	}

	if schedule := os.Getenv("PROSPECTOR_SCHEDULER_SCHEDULE"); schedule != "" {
		config.Scheduler.Schedule = schedule
	}
	if enabled := os.Getenv("PROSPECTOR_SCHEDULER_ENABLED"); enabled != "" {
		config.Scheduler.Enabled = enabled == "true" || enabled == "1"
	}
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if _, err := time.ParseDuration(c.Runs.BatchDelay); err != nil {
		return fmt.Errorf("invalid runs.batch_delay %q: %w", c.Runs.BatchDelay, err)
	}
	if _, err := time.ParseDuration(c.Verify.RequestTimeout); err != nil {
		return fmt.Errorf("invalid verify.request_timeout %q: %w", c.Verify.RequestTimeout, err)
	}
	if c.Anthropic.Timeout != "" {
		if _, err := time.ParseDuration(c.Anthropic.Timeout); err != nil {
			return fmt.Errorf("invalid anthropic.timeout %q: %w", c.Anthropic.Timeout, err)
		}
	}

	return nil
}

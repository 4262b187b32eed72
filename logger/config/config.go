package config

import (
	"fmt"
	"io"

	"github.com/caarlos0/env"
)

// LogConfig defines all configuration options for loggers
type LogConfig struct {
	// Level is the minimum log level (debug, info, warn, error, none)
	Level string `env:"LOG_LEVEL" envDefault:"info"`

	// Format determines the output format (json, pretty)
	Format string `env:"LOG_FORMAT" envDefault:"json"`

	// Output determines where logs are written (stdout, file, both)
	Output string `env:"LOG_OUTPUT" envDefault:"stdout"`

	// Environment affects logging behavior (dev, test, prod)
	Environment string `env:"APP_ENV" envDefault:"dev"`

	FileOptions FileOptions

	// Fields are added to every log message
	Fields map[string]interface{}

	// Writer overrides Output entirely when set. Tests point it at a buffer.
	Writer io.Writer
}

// FileOptions configures file-based logging
type FileOptions struct {
	Directory string `env:"LOG_DIR" envDefault:"./logs"`
	Filename  string `env:"LOG_FILE" envDefault:"media.log"`
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() LogConfig {
	return LogConfig{
		Level:       "info",
		Format:      "json",
		Output:      "stdout",
		Environment: "dev",
		FileOptions: FileOptions{
			Directory: "./logs",
			Filename:  "media.log",
		},
		Fields: map[string]interface{}{},
	}
}

// DevelopmentConfig returns a configuration optimized for development
func DevelopmentConfig() LogConfig {
	config := DefaultConfig()
	config.Level = "debug"
	config.Format = "pretty"
	return config
}

// Load reads LOG_* variables on top of DefaultConfig.
func Load() (LogConfig, error) {
	cfg := DefaultConfig()
	if err := env.Parse(&cfg); err != nil {
		return LogConfig{}, fmt.Errorf("failed to parse log config: %w", err)
	}
	if err := env.Parse(&cfg.FileOptions); err != nil {
		return LogConfig{}, fmt.Errorf("failed to parse log file options: %w", err)
	}
	return cfg, nil
}

package telemetry

import (
	"fmt"
	"io"
	"time"

	"github.com/caarlos0/env"
)

// ExporterType selects where spans and metrics go.
type ExporterType string

const (
	ExporterConsole ExporterType = "console"
	ExporterOTLP    ExporterType = "otlp"
)

// Config drives the process-wide OpenTelemetry providers.
type Config struct {
	ServiceName    string `env:"OTEL_SERVICE_NAME" envDefault:"mediastore"`
	ServiceVersion string `env:"OTEL_SERVICE_VERSION" envDefault:"1.0.0"`
	Environment    string `env:"OTEL_SERVICE_ENVIRONMENT" envDefault:"dev"`

	EnableTraces  bool `env:"OTEL_ENABLE_TRACES" envDefault:"false"`
	EnableMetrics bool `env:"OTEL_ENABLE_METRICS" envDefault:"false"`

	Exporter ExporterType `env:"OTEL_EXPORTER" envDefault:"console"`
	// Endpoint is host:port or a URL; used by the otlp exporter only.
	Endpoint string `env:"OTEL_EXPORTER_ENDPOINT" envDefault:"localhost:4318"`
	Insecure bool   `env:"OTEL_EXPORTER_INSECURE" envDefault:"false"`

	// SamplingRatio of 1 samples everything.
	SamplingRatio  float64       `env:"OTEL_SAMPLING_RATIO" envDefault:"1"`
	MetricInterval time.Duration `env:"OTEL_METRIC_INTERVAL" envDefault:"10s"`

	// Writer receives console output. Defaults to stdout.
	Writer io.Writer
}

func DefaultConfig() Config {
	return Config{
		ServiceName:    "mediastore",
		ServiceVersion: "1.0.0",
		Environment:    "dev",
		Exporter:       ExporterConsole,
		Endpoint:       "localhost:4318",
		SamplingRatio:  1,
		MetricInterval: 10 * time.Second,
	}
}

// LoadConfig reads OTEL_* variables.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse telemetry config: %w", err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service name is required")
	}
	switch c.Exporter {
	case ExporterConsole, ExporterOTLP:
	default:
		return fmt.Errorf("unsupported exporter type: %s (supported: console, otlp)", c.Exporter)
	}
	if c.SamplingRatio < 0 || c.SamplingRatio > 1 {
		return fmt.Errorf("sampling ratio must be between 0 and 1, got %v", c.SamplingRatio)
	}
	if c.EnableMetrics && c.MetricInterval <= 0 {
		return fmt.Errorf("metric interval must be positive, got %s", c.MetricInterval)
	}
	return nil
}

package telemetry_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/storefront/mediastore/media"
	"github.com/storefront/mediastore/storage/adapters/local"
	storageconfig "github.com/storefront/mediastore/storage/config"
	"github.com/storefront/mediastore/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

func TestSetup_Disabled(t *testing.T) {
	p, err := telemetry.Setup(context.Background(), telemetry.DefaultConfig())
	require.NoError(t, err)
	assert.NoError(t, p.Shutdown(context.Background()))

	var nilProvider *telemetry.Provider
	assert.NoError(t, nilProvider.Shutdown(context.Background()))
}

func TestSetup_InvalidConfig(t *testing.T) {
	cfg := telemetry.DefaultConfig()
	cfg.Exporter = "zipkin"
	_, err := telemetry.Setup(context.Background(), cfg)
	assert.Error(t, err)

	cfg = telemetry.DefaultConfig()
	cfg.SamplingRatio = 1.5
	_, err = telemetry.Setup(context.Background(), cfg)
	assert.Error(t, err)
}

func TestSetup_ConsoleExportsStoreTelemetry(t *testing.T) {
	t.Cleanup(func() {
		otel.SetTracerProvider(tracenoop.NewTracerProvider())
		otel.SetMeterProvider(metricnoop.NewMeterProvider())
	})

	var buf bytes.Buffer
	cfg := telemetry.DefaultConfig()
	cfg.EnableTraces = true
	cfg.EnableMetrics = true
	cfg.Writer = &buf

	p, err := telemetry.Setup(context.Background(), cfg)
	require.NoError(t, err)

	backend, err := local.NewLocalBackend(storageconfig.LocalConfig{Root: t.TempDir()})
	require.NoError(t, err)
	store := media.NewStore(backend)

	target := media.StoragePath{Directory: []string{"suppliers", "42", "logo"}, FileName: "logo.png"}
	_, err = store.Put(context.Background(), media.UploadRequest{
		Content: strings.NewReader("logo"),
		Size:    4,
	}, media.Image, target, media.Replace)
	require.NoError(t, err)

	require.NoError(t, p.Shutdown(context.Background()))

	out := buf.String()
	assert.Contains(t, out, "media.Store.Put")
	assert.Contains(t, out, "suppliers/42/logo/logo.png")
	assert.Contains(t, out, "media.store.writes")
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("OTEL_ENABLE_TRACES", "true")
	t.Setenv("OTEL_EXPORTER", "otlp")
	t.Setenv("OTEL_EXPORTER_ENDPOINT", "https://collector:4318")
	t.Setenv("OTEL_SAMPLING_RATIO", "0.25")

	cfg, err := telemetry.LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.EnableTraces)
	assert.False(t, cfg.EnableMetrics)
	assert.Equal(t, telemetry.ExporterOTLP, cfg.Exporter)
	assert.Equal(t, "https://collector:4318", cfg.Endpoint)
	assert.InDelta(t, 0.25, cfg.SamplingRatio, 1e-9)
	assert.Equal(t, "mediastore", cfg.ServiceName)
	assert.NoError(t, cfg.Validate())
}

package runtime

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/YusenFan/Ollama-Transcriber/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestStartTelemetryDefaults(t *testing.T) {
	tel, err := startTelemetry(context.Background(), config.Default(), discardLogger())
	if err != nil {
		t.Fatalf("start telemetry: %v", err)
	}
	if tel.metricsHandler == nil {
		t.Fatal("expected a prometheus metrics handler")
	}
	if err := tel.shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestNewSpanExporterSelection(t *testing.T) {
	exp, name, err := newSpanExporter(context.Background(), config.TelemetryConfig{})
	if err != nil {
		t.Fatalf("stdout exporter: %v", err)
	}
	if exp == nil || name != "stdout" {
		t.Fatalf("expected stdout exporter, got %q", name)
	}

	exp, name, err = newSpanExporter(context.Background(), config.TelemetryConfig{
		OTLPEndpoint: "localhost:4317",
		OTLPInsecure: true,
	})
	if err != nil {
		t.Fatalf("otlp exporter: %v", err)
	}
	if exp == nil || !strings.HasPrefix(name, "otlp:") {
		t.Fatalf("expected otlp exporter, got %q", name)
	}
}

package pipeline

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the pipeline's OpenTelemetry instruments.
type Metrics struct {
	runs           metric.Int64Counter
	windows        metric.Int64Counter
	windowFailures metric.Int64Counter
	stageDuration  metric.Float64Histogram
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	runs, err := meter.Int64Counter("transcriber.runs",
		metric.WithDescription("Audio files processed"))
	if err != nil {
		return nil, err
	}
	windows, err := meter.Int64Counter("transcriber.windows",
		metric.WithDescription("Recognition windows submitted"))
	if err != nil {
		return nil, err
	}
	failures, err := meter.Int64Counter("transcriber.window_failures",
		metric.WithDescription("Recognition windows skipped after failure"))
	if err != nil {
		return nil, err
	}
	stage, err := meter.Float64Histogram("transcriber.stage_duration_seconds",
		metric.WithDescription("Wall time per pipeline stage"))
	if err != nil {
		return nil, err
	}
	return &Metrics{runs: runs, windows: windows, windowFailures: failures, stageDuration: stage}, nil
}

func (m *Metrics) recordRun(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.runs.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

func (m *Metrics) recordWindows(ctx context.Context, total, failed int) {
	if m == nil {
		return
	}
	m.windows.Add(ctx, int64(total))
	if failed > 0 {
		m.windowFailures.Add(ctx, int64(failed))
	}
}

func (m *Metrics) recordStage(ctx context.Context, stage string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.Record(ctx, elapsed.Seconds(),
		metric.WithAttributes(attribute.String("stage", stage)))
}

package pipeline

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/YusenFan/Ollama-Transcriber/internal/audio"
	"github.com/YusenFan/Ollama-Transcriber/internal/bus"
	"github.com/YusenFan/Ollama-Transcriber/internal/protocol"
	"github.com/YusenFan/Ollama-Transcriber/internal/stt"
)

// Config collects the tunables of one pipeline instance. The divergent
// historical variants (with and without denoising, differing chunk
// geometry) are all expressible through this configuration.
type Config struct {
	Condition        audio.ConditionConfig
	NoiseSuppression bool
	NoiseStrength    float64
	ChunkSeconds     float64
	OverlapSeconds   float64
	Language         string
	Workers          int
	WindowTimeout    time.Duration
}

// Result is the outcome of processing one recording.
type Result struct {
	File          string
	Transcript    string
	AudioDuration time.Duration
	Windows       int
	FailedWindows int
}

// Pipeline runs the fixed stage chain: decode -> condition -> optional
// denoise -> windowing -> per-window recognition -> aggregation. Stages
// never feed back into earlier ones.
type Pipeline struct {
	cfg        Config
	recognizer stt.Recognizer
	logger     *slog.Logger
	metrics    *Metrics
	events     *bus.Client
	tracer     trace.Tracer
}

// New builds a pipeline around an injected recognizer handle. metrics and
// events may be nil.
func New(cfg Config, recognizer stt.Recognizer, logger *slog.Logger, metrics *Metrics, events *bus.Client) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		recognizer: recognizer,
		logger:     logger.With(slog.String("component", "pipeline")),
		metrics:    metrics,
		events:     events,
		tracer:     otel.Tracer("github.com/YusenFan/Ollama-Transcriber/internal/pipeline"),
	}
}

// Process transcribes a single WAV recording. Errors are tagged with the
// failing stage; a nil error guarantees a fully assembled transcript
// (possibly empty, if the recording was silent).
func (p *Pipeline) Process(ctx context.Context, path string) (Result, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.process",
		trace.WithAttributes(attribute.String("audio.file", path)))
	defer span.End()

	p.events.PublishJSON(protocol.SubjectRunStarted, protocol.RunEvent{
		File:      path,
		Timestamp: time.Now().UTC(),
	})

	start := time.Now()
	sig, err := audio.ReadWAV(path)
	if err != nil {
		return Result{}, p.fail(ctx, path, StageDecode, err)
	}
	p.metrics.recordStage(ctx, StageDecode, time.Since(start))

	result := Result{File: path, AudioDuration: sig.Duration()}
	p.logger.Info("decoded audio",
		slog.String("file", path),
		slog.Int("sample_rate", sig.SampleRate),
		slog.Int("channels", sig.Channels),
		slog.Duration("duration", sig.Duration()))

	start = time.Now()
	conditioned, err := audio.Condition(sig, p.cfg.Condition)
	if err != nil {
		return Result{}, p.fail(ctx, path, StageCondition, err)
	}
	p.metrics.recordStage(ctx, StageCondition, time.Since(start))

	if p.cfg.NoiseSuppression {
		start = time.Now()
		conditioned, err = audio.SuppressNoise(conditioned, p.cfg.NoiseStrength)
		if err != nil {
			return Result{}, p.fail(ctx, path, StageDenoise, err)
		}
		p.metrics.recordStage(ctx, StageDenoise, time.Since(start))
	}

	windows := audio.Windows(conditioned.Frames(), conditioned.SampleRate,
		p.cfg.ChunkSeconds, p.cfg.OverlapSeconds)

	start = time.Now()
	transcript, err := stt.Aggregate(ctx, conditioned, windows, p.recognizer, stt.AggregateOptions{
		Language:      p.cfg.Language,
		Workers:       p.cfg.Workers,
		WindowTimeout: p.cfg.WindowTimeout,
		Logger:        p.logger,
		OnWindow: func(w audio.Window, failed bool) {
			p.events.PublishJSON(protocol.SubjectWindowDone, protocol.WindowEvent{
				File:      path,
				Window:    w.Index,
				Failed:    failed,
				Timestamp: time.Now().UTC(),
			})
		},
	})
	if err != nil {
		return Result{}, p.fail(ctx, path, StageTranscribe, err)
	}
	p.metrics.recordStage(ctx, StageTranscribe, time.Since(start))
	p.metrics.recordWindows(ctx, transcript.Windows, transcript.FailedWindows)
	p.metrics.recordRun(ctx, "completed")

	result.Transcript = transcript.Text
	result.Windows = transcript.Windows
	result.FailedWindows = transcript.FailedWindows
	span.SetAttributes(
		attribute.Int("transcriber.windows", transcript.Windows),
		attribute.Int("transcriber.failed_windows", transcript.FailedWindows),
	)

	p.events.PublishJSON(protocol.SubjectTranscriptFinal, protocol.TranscriptEvent{
		File:          path,
		Text:          transcript.Text,
		Windows:       transcript.Windows,
		FailedWindows: transcript.FailedWindows,
		Timestamp:     time.Now().UTC(),
	})

	p.logger.Info("transcription complete",
		slog.String("file", path),
		slog.Int("windows", transcript.Windows),
		slog.Int("failed_windows", transcript.FailedWindows))
	return result, nil
}

func (p *Pipeline) fail(ctx context.Context, path, stage string, err error) error {
	p.metrics.recordRun(ctx, "failed")
	p.events.PublishJSON(protocol.SubjectRunFailed, protocol.RunEvent{
		File:      path,
		Stage:     stage,
		Error:     err.Error(),
		Timestamp: time.Now().UTC(),
	})
	p.logger.Error("pipeline stage failed",
		slog.String("file", path),
		slog.String("stage", stage),
		slog.String("error", err.Error()))
	return stageErr(stage, err)
}

package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/YusenFan/Ollama-Transcriber/internal/audio"
	"github.com/YusenFan/Ollama-Transcriber/internal/bus"
	"github.com/YusenFan/Ollama-Transcriber/internal/config"
	"github.com/YusenFan/Ollama-Transcriber/internal/natsserver"
	"github.com/YusenFan/Ollama-Transcriber/internal/pipeline"
	"github.com/YusenFan/Ollama-Transcriber/internal/store"
	"github.com/YusenFan/Ollama-Transcriber/internal/stt"
	"github.com/YusenFan/Ollama-Transcriber/internal/summary"
)

// Runtime wires configuration into a working transcription run: telemetry,
// optional event bus, the run ledger, the recognition handle and the
// pipeline itself.
type Runtime struct {
	cfg    config.Config
	logger *slog.Logger
}

func New(cfg config.Config, logger *slog.Logger) *Runtime {
	return &Runtime{cfg: cfg, logger: logger}
}

// Run processes every input recording and returns once the batch is done
// or the context is cancelled. The first fatal per-file error does not
// stop the batch; it is recorded and the next file is attempted.
func (r *Runtime) Run(ctx context.Context) error {
	tel, err := startTelemetry(ctx, r.cfg, r.logger)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := tel.shutdown(shutdownCtx); err != nil {
			r.logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
		}
	}()

	metricsServer := r.startMetricsServer(tel.metricsHandler)
	if metricsServer != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}()
	}

	var events *bus.Client
	if r.cfg.Bus.Enabled {
		embedded, err := natsserver.Start(r.cfg.Bus, r.logger)
		if err != nil {
			return fmt.Errorf("start embedded bus: %w", err)
		}
		defer embedded.Shutdown()

		events, err = bus.Connect(r.cfg.Bus, r.logger)
		if err != nil {
			return fmt.Errorf("connect to bus: %w", err)
		}
		defer events.Close()
	}

	runStore, err := store.Open(ctx, r.cfg.Store, r.logger)
	if err != nil {
		return fmt.Errorf("open run store: %w", err)
	}
	defer runStore.Close()

	recognizer, err := r.buildRecognizer()
	if err != nil {
		return err
	}

	metrics, err := pipeline.NewMetrics(otel.Meter("github.com/YusenFan/Ollama-Transcriber"))
	if err != nil {
		r.logger.Warn("failed to create pipeline metrics", slog.String("error", err.Error()))
		metrics = nil
	}

	pipe := pipeline.New(r.pipelineConfig(), recognizer, r.logger, metrics, events)

	var summarizer summary.Summarizer
	if r.cfg.Summary.Enabled {
		summarizer = r.buildSummarizer()
	}

	inputs, err := collectInputs(r.cfg.Paths.Input)
	if err != nil {
		return err
	}
	r.logger.Info("starting batch", slog.Int("files", len(inputs)))

	for _, input := range inputs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.processFile(ctx, pipe, summarizer, runStore, input)
	}

	r.logger.Info("batch complete", slog.Int("files", len(inputs)))
	return nil
}

func (r *Runtime) processFile(ctx context.Context, pipe *pipeline.Pipeline, summarizer summary.Summarizer, runStore *store.Store, input string) {
	started := time.Now().UTC()

	result, err := pipe.Process(ctx, input)
	if err != nil {
		if _, recordErr := runStore.RecordRun(ctx, store.Run{
			File:      input,
			Status:    "failed",
			Error:     err.Error(),
			StartedAt: started,
		}); recordErr != nil {
			r.logger.Warn("failed to record run", slog.String("error", recordErr.Error()))
		}
		return
	}

	run := store.Run{
		File:          input,
		AudioSeconds:  result.AudioDuration.Seconds(),
		Windows:       result.Windows,
		FailedWindows: result.FailedWindows,
		Transcript:    result.Transcript,
		Status:        "completed",
		StartedAt:     started,
	}

	transcriptPath, err := writeArtifact(r.cfg.Paths.TranscriptDir, transcriptName(input), result.Transcript)
	if err != nil {
		perr := &pipeline.StageError{Stage: pipeline.StagePersist, Err: err}
		r.logger.Error("failed to persist transcript", slog.String("error", perr.Error()))
	} else {
		run.TranscriptPath = transcriptPath
		r.logger.Info("transcript saved",
			slog.String("path", transcriptPath),
			slog.String("duration", summary.FormatRecordingDuration(result.AudioDuration)))
	}

	if summarizer != nil && strings.TrimSpace(result.Transcript) != "" {
		text, err := summarizer.Summarize(ctx, result.Transcript)
		if err != nil {
			serr := &pipeline.StageError{Stage: pipeline.StageSummarize, Err: err}
			r.logger.Error("summarization failed",
				slog.String("file", input),
				slog.String("error", serr.Error()))
		} else {
			summaryPath, err := writeArtifact(r.cfg.Paths.SummaryDir, summaryName(input), text)
			if err != nil {
				perr := &pipeline.StageError{Stage: pipeline.StagePersist, Err: err}
				r.logger.Error("failed to persist summary", slog.String("error", perr.Error()))
			} else {
				run.SummaryPath = summaryPath
				r.logger.Info("summary saved", slog.String("path", summaryPath))
			}
		}
	}

	if _, err := runStore.RecordRun(ctx, run); err != nil {
		r.logger.Warn("failed to record run", slog.String("error", err.Error()))
	}
}

func (r *Runtime) startMetricsServer(handler http.Handler) *http.Server {
	if handler == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	srv := &http.Server{
		Addr:              r.cfg.Telemetry.PrometheusBind,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.logger.Warn("metrics server failed", slog.String("error", err.Error()))
		}
	}()
	return srv
}

func (r *Runtime) buildRecognizer() (stt.Recognizer, error) {
	switch r.cfg.Transcription.Mode {
	case "exec":
		return stt.NewExecRecognizer(r.cfg.Transcription.Command, r.cfg.Transcription.ModelPath)
	default:
		return stt.NewMockRecognizer(), nil
	}
}

func (r *Runtime) buildSummarizer() summary.Summarizer {
	if r.cfg.Summary.Mode == "mock" {
		return summary.NewMockSummarizer()
	}
	return summary.NewOllamaSummarizer(summary.OllamaConfig{
		Endpoint:    r.cfg.Summary.Endpoint,
		Model:       r.cfg.Summary.Model,
		Prompt:      r.cfg.Summary.Prompt,
		MaxRetries:  r.cfg.Summary.MaxRetries,
		RetryDelay:  time.Duration(r.cfg.Summary.RetryDelayMS) * time.Millisecond,
		Temperature: r.cfg.Summary.Temperature,
		MaxTokens:   r.cfg.Summary.MaxTokens,
	}, r.logger)
}

func (r *Runtime) pipelineConfig() pipeline.Config {
	return pipeline.Config{
		Condition:        conditionConfig(r.cfg.Audio),
		NoiseSuppression: r.cfg.Audio.NoiseSuppression,
		NoiseStrength:    r.cfg.Audio.NoiseStrength,
		ChunkSeconds:     r.cfg.Transcription.ChunkSeconds,
		OverlapSeconds:   r.cfg.Transcription.OverlapSeconds,
		Language:         r.cfg.Transcription.Language,
		Workers:          r.cfg.Transcription.Workers,
		WindowTimeout:    time.Duration(r.cfg.Transcription.WindowTimeoutMS) * time.Millisecond,
	}
}

// collectInputs resolves a file or directory into a sorted list of WAV
// recordings. Container conversion is out of scope, so only .wav is
// accepted.
func collectInputs(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("resolve input %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("read input directory: %w", err)
	}
	var inputs []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".wav") {
			inputs = append(inputs, filepath.Join(path, entry.Name()))
		}
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no wav files found in %s", path)
	}
	sort.Strings(inputs)
	return inputs, nil
}

func transcriptName(input string) string {
	stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return stem + ".txt"
}

func summaryName(input string) string {
	stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return fmt.Sprintf("%s_summary_%s.txt", stem, time.Now().Format("20060102_150405"))
}

func writeArtifact(dir, name, content string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

func conditionConfig(cfg config.AudioConfig) audio.ConditionConfig {
	return audio.ConditionConfig{
		TargetSampleRate: cfg.TargetSampleRate,
		HeadroomDB:       cfg.HeadroomDB,
		SilenceThreshDB:  cfg.SilenceThreshDB,
		MinSilence:       time.Duration(cfg.MinSilenceMS) * time.Millisecond,
		KeepSilence:      time.Duration(cfg.KeepSilenceMS) * time.Millisecond,
	}
}

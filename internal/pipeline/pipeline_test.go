package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/YusenFan/Ollama-Transcriber/internal/audio"
	"github.com/YusenFan/Ollama-Transcriber/internal/stt"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeTone(t *testing.T, seconds float64, rate, channels int) string {
	t.Helper()
	frames := int(seconds * float64(rate))
	samples := make([]float64, frames*channels)
	for f := 0; f < frames; f++ {
		v := 0.5 * math.Sin(2*math.Pi*440*float64(f)/float64(rate))
		for c := 0; c < channels; c++ {
			samples[f*channels+c] = v
		}
	}
	path := filepath.Join(t.TempDir(), "tone.wav")
	sig := audio.Signal{Samples: samples, SampleRate: rate, Channels: channels}
	if err := audio.WriteWAV(path, sig); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	return path
}

func testConfig() Config {
	return Config{
		Condition:      audio.DefaultConditionConfig(),
		ChunkSeconds:   30,
		OverlapSeconds: 4,
		WindowTimeout:  5 * time.Second,
	}
}

func TestProcessEndToEnd(t *testing.T) {
	path := writeTone(t, 2, 44100, 2)

	p := New(testConfig(), stt.NewMockRecognizer(), testLogger(), nil, nil)
	res, err := p.Process(context.Background(), path)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if res.Windows != 1 {
		t.Fatalf("a 2s recording should yield one window, got %d", res.Windows)
	}
	if res.FailedWindows != 0 {
		t.Fatalf("unexpected failures: %d", res.FailedWindows)
	}
	if res.Transcript == "" {
		t.Fatal("expected a transcript")
	}
	if res.AudioDuration < time.Second {
		t.Fatalf("unexpected duration %v", res.AudioDuration)
	}
}

func TestProcessWithNoiseSuppression(t *testing.T) {
	path := writeTone(t, 2, 16000, 1)

	cfg := testConfig()
	cfg.NoiseSuppression = true
	cfg.NoiseStrength = 0.75

	p := New(cfg, stt.NewMockRecognizer(), testLogger(), nil, nil)
	res, err := p.Process(context.Background(), path)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if res.Transcript == "" {
		t.Fatal("expected a transcript")
	}
}

func TestProcessDecodeFailure(t *testing.T) {
	p := New(testConfig(), stt.NewMockRecognizer(), testLogger(), nil, nil)
	_, err := p.Process(context.Background(), filepath.Join(t.TempDir(), "missing.wav"))
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
	var se *StageError
	if !errors.As(err, &se) {
		t.Fatalf("expected a stage error, got %T: %v", err, err)
	}
	if se.Stage != StageDecode {
		t.Fatalf("expected decode stage, got %q", se.Stage)
	}
}

func TestProcessAllWindowsFailed(t *testing.T) {
	path := writeTone(t, 2, 16000, 1)

	rec := failingRecognizer{}
	p := New(testConfig(), rec, testLogger(), nil, nil)
	_, err := p.Process(context.Background(), path)
	if !errors.Is(err, stt.ErrAllWindowsFailed) {
		t.Fatalf("expected ErrAllWindowsFailed, got %v", err)
	}
	var se *StageError
	if !errors.As(err, &se) || se.Stage != StageTranscribe {
		t.Fatalf("expected transcribe stage error, got %v", err)
	}
}

type failingRecognizer struct{}

func (failingRecognizer) Transcribe(context.Context, audio.Signal, string) (stt.Fragment, error) {
	return stt.Fragment{}, errors.New("backend down")
}

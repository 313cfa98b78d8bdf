package store

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/YusenFan/Ollama-Transcriber/internal/config"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestOpenEphemeral(t *testing.T) {
	cfg := config.StoreConfig{RetentionMode: "ephemeral"}
	s, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	if _, err := s.RecordRun(context.Background(), Run{File: "a.wav", Status: "completed"}); err != nil {
		t.Fatalf("ephemeral record should be a no-op: %v", err)
	}
	runs, err := s.ListRuns(context.Background(), 10)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if runs != nil {
		t.Fatalf("ephemeral store should hold nothing, got %d runs", len(runs))
	}
}

func TestRecordAndList(t *testing.T) {
	cfg := config.StoreConfig{Path: filepath.Join(t.TempDir(), "runs.db"), RetentionMode: "persistent"}
	s, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	id, err := s.RecordRun(context.Background(), Run{
		File:          "meeting.wav",
		AudioSeconds:  45,
		Windows:       3,
		FailedWindows: 1,
		Transcript:    "hello world",
		Status:        "completed",
	})
	if err != nil {
		t.Fatalf("record run: %v", err)
	}
	if id == 0 {
		t.Fatal("expected a run id")
	}

	runs, err := s.ListRuns(context.Background(), 10)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	if runs[0].Transcript != "hello world" || runs[0].Windows != 3 {
		t.Fatalf("unexpected run: %+v", runs[0])
	}
}

func TestPruneByDaysAndMaxRuns(t *testing.T) {
	cfg := config.StoreConfig{
		Path:          filepath.Join(t.TempDir(), "runs.db"),
		RetentionMode: "persistent",
		RetentionDays: 1,
		MaxRuns:       1,
	}
	s, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	s.clock = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }
	if _, err := s.RecordRun(context.Background(), Run{File: "old.wav", Status: "completed"}); err != nil {
		t.Fatalf("record old run: %v", err)
	}

	s.clock = func() time.Time { return time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC) }
	if _, err := s.RecordRun(context.Background(), Run{File: "new.wav", Status: "completed"}); err != nil {
		t.Fatalf("record new run: %v", err)
	}
	if err := s.Prune(context.Background()); err != nil {
		t.Fatalf("prune: %v", err)
	}

	runs, err := s.ListRuns(context.Background(), 10)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 || runs[0].File != "new.wav" {
		t.Fatalf("expected only the recent run to survive, got %+v", runs)
	}
}

package runtime

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCollectInputsSingleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meeting.wav")
	if err := os.WriteFile(path, []byte("stub"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	inputs, err := collectInputs(path)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(inputs) != 1 || inputs[0] != path {
		t.Fatalf("unexpected inputs: %v", inputs)
	}
}

func TestCollectInputsDirectory(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.wav", "a.WAV", "notes.txt", "c.mp3"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("stub"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	inputs, err := collectInputs(dir)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(inputs) != 2 {
		t.Fatalf("expected 2 wav files, got %v", inputs)
	}
	if filepath.Base(inputs[0]) != "a.WAV" || filepath.Base(inputs[1]) != "b.wav" {
		t.Fatalf("expected sorted wav files, got %v", inputs)
	}
}

func TestCollectInputsEmptyDirectory(t *testing.T) {
	if _, err := collectInputs(t.TempDir()); err == nil {
		t.Fatal("expected error for a directory without recordings")
	}
}

func TestCollectInputsMissingPath(t *testing.T) {
	if _, err := collectInputs(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for a missing path")
	}
}

func TestArtifactNames(t *testing.T) {
	if got := transcriptName("/data/in/standup.wav"); got != "standup.txt" {
		t.Fatalf("transcriptName = %q", got)
	}
	got := summaryName("/data/in/standup.wav")
	if !strings.HasPrefix(got, "standup_summary_") || !strings.HasSuffix(got, ".txt") {
		t.Fatalf("summaryName = %q", got)
	}
}

func TestWriteArtifactCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "transcripts")
	path, err := writeArtifact(dir, "standup.txt", "hello world")
	if err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "hello world" {
		t.Fatalf("unexpected content %q", data)
	}
}

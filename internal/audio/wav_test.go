package audio

import (
	"math"
	"path/filepath"
	"testing"
)

func TestWAVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	sig := Signal{Samples: sine(440, 1, 16000, 0.5), SampleRate: 16000, Channels: 1}

	if err := WriteWAV(path, sig); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	got, err := ReadWAV(path)
	if err != nil {
		t.Fatalf("read wav: %v", err)
	}

	if got.SampleRate != sig.SampleRate || got.Channels != sig.Channels {
		t.Fatalf("metadata mismatch: got %d/%d", got.SampleRate, got.Channels)
	}
	if len(got.Samples) != len(sig.Samples) {
		t.Fatalf("expected %d samples, got %d", len(sig.Samples), len(got.Samples))
	}
	for i := range sig.Samples {
		if math.Abs(got.Samples[i]-sig.Samples[i]) > 1e-3 {
			t.Fatalf("sample %d: expected %v, got %v", i, sig.Samples[i], got.Samples[i])
		}
	}
}

func TestReadWAVMissingFile(t *testing.T) {
	if _, err := ReadWAV(filepath.Join(t.TempDir(), "missing.wav")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestWriteWAVEmptySignal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.wav")
	if err := WriteWAV(path, Signal{SampleRate: 16000, Channels: 1}); err == nil {
		t.Fatal("expected error for empty signal")
	}
}

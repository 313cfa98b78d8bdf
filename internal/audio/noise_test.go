package audio

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func noisySignal(rate int, seconds float64) Signal {
	rng := rand.New(rand.NewSource(42))
	n := int(seconds * float64(rate))
	samples := make([]float64, n)
	for i := range samples {
		// Stationary background hiss with a speech-band tone on top.
		samples[i] = 0.05*(2*rng.Float64()-1) +
			0.6*math.Sin(2*math.Pi*220*float64(i)/float64(rate))
	}
	return Signal{Samples: samples, SampleRate: rate, Channels: 1}
}

func rms(samples []float64) float64 {
	var sum float64
	for _, v := range samples {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

func TestSuppressNoiseKeepsShape(t *testing.T) {
	sig := noisySignal(16000, 2)
	out, err := SuppressNoise(sig, 0.75)
	if err != nil {
		t.Fatalf("suppress: %v", err)
	}
	if len(out.Samples) != len(sig.Samples) {
		t.Fatalf("length changed: %d -> %d", len(sig.Samples), len(out.Samples))
	}
	if out.SampleRate != sig.SampleRate || out.Channels != sig.Channels {
		t.Fatalf("metadata changed: %d/%d -> %d/%d",
			sig.SampleRate, sig.Channels, out.SampleRate, out.Channels)
	}
	for i, v := range out.Samples {
		if v < -1 || v > 1 {
			t.Fatalf("sample %d out of range after quantization: %v", i, v)
		}
	}
}

func TestSuppressNoiseReducesNoiseFloor(t *testing.T) {
	const rate = 16000
	rng := rand.New(rand.NewSource(7))
	n := 2 * rate
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = 0.1 * (2*rng.Float64() - 1)
	}
	// Run through normalization first, as the conditioner would, so the
	// suppressor's internal peak scaling is close to identity.
	sig := Normalize(Signal{Samples: samples, SampleRate: rate, Channels: 1}, 0.1)

	out, err := SuppressNoise(sig, 0.75)
	if err != nil {
		t.Fatalf("suppress: %v", err)
	}

	// Skip the overlap-add ramp at both edges.
	before := rms(sig.Samples[noiseFrameSize : n-noiseFrameSize])
	after := rms(out.Samples[noiseFrameSize : n-noiseFrameSize])
	if after >= before*0.8 {
		t.Fatalf("expected noise floor reduction, rms %v -> %v", before, after)
	}
}

func TestSuppressNoiseStrengthBounds(t *testing.T) {
	sig := noisySignal(16000, 1)
	if _, err := SuppressNoise(sig, -0.1); err == nil {
		t.Fatal("expected error for negative strength")
	}
	if _, err := SuppressNoise(sig, 1.1); err == nil {
		t.Fatal("expected error for strength above 1")
	}
}

func TestSuppressNoiseEmptySignal(t *testing.T) {
	_, err := SuppressNoise(Signal{SampleRate: 16000, Channels: 1}, 0.75)
	if !errors.Is(err, ErrEmptySignal) {
		t.Fatalf("expected ErrEmptySignal, got %v", err)
	}
}

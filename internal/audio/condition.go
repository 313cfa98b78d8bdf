package audio

import (
	"fmt"
	"math"
	"time"
)

// ConditionConfig controls the conditioning stages. Zero values are not
// usable; start from DefaultConditionConfig.
type ConditionConfig struct {
	TargetSampleRate int
	HeadroomDB       float64       // peak normalization ceiling below full scale
	SilenceThreshDB  float64       // frames quieter than this are silence candidates
	MinSilence       time.Duration // shorter quiet runs are left alone
	KeepSilence      time.Duration // guard band retained on both sides of a removed span
}

func DefaultConditionConfig() ConditionConfig {
	return ConditionConfig{
		TargetSampleRate: 16000,
		HeadroomDB:       0.1,
		SilenceThreshDB:  -40,
		MinSilence:       700 * time.Millisecond,
		KeepSilence:      500 * time.Millisecond,
	}
}

// Condition prepares a raw signal for speech recognition: peak
// normalization, long-silence removal, resampling to the target rate and
// mono downmix, in that order. Conditioning an already conditioned signal
// is a no-op within floating point tolerance. The input is never mutated.
func Condition(sig Signal, cfg ConditionConfig) (Signal, error) {
	if err := sig.validate(); err != nil {
		return Signal{}, err
	}
	if cfg.TargetSampleRate <= 0 {
		return Signal{}, fmt.Errorf("invalid target sample rate %d", cfg.TargetSampleRate)
	}

	out := Normalize(sig, cfg.HeadroomDB)
	out = TrimSilence(out, cfg.SilenceThreshDB, cfg.MinSilence, cfg.KeepSilence)

	if out.SampleRate != cfg.TargetSampleRate {
		resampled, err := Resample(out, cfg.TargetSampleRate)
		if err != nil {
			return Signal{}, fmt.Errorf("resample to %d Hz: %w", cfg.TargetSampleRate, err)
		}
		out = resampled
	}
	if out.Channels > 1 {
		out = Downmix(out)
	}
	return out, nil
}

// Normalize rescales the signal so its peak magnitude sits headroomDB
// below full scale. An all-zero signal is returned unchanged.
func Normalize(sig Signal, headroomDB float64) Signal {
	var peak float64
	for _, v := range sig.Samples {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	if peak == 0 {
		return sig
	}
	target := dbToAmplitude(-headroomDB)
	scale := target / peak
	out := make([]float64, len(sig.Samples))
	for i, v := range sig.Samples {
		out[i] = v * scale
	}
	return Signal{Samples: out, SampleRate: sig.SampleRate, Channels: sig.Channels}
}

const silenceFrameMS = 10

// DetectSilence returns runs of frames whose RMS level stays below
// threshDB for at least minSilence. Levels are measured over 10 ms
// analysis frames.
func DetectSilence(sig Signal, threshDB float64, minSilence time.Duration) []SilenceSpan {
	frames := sig.Frames()
	if frames == 0 || sig.SampleRate <= 0 {
		return nil
	}
	step := sig.SampleRate * silenceFrameMS / 1000
	if step <= 0 {
		step = 1
	}
	minFrames := int(minSilence.Seconds() * float64(sig.SampleRate))
	thresh := dbToAmplitude(threshDB)

	var spans []SilenceSpan
	runStart := -1
	for pos := 0; pos < frames; pos += step {
		end := pos + step
		if end > frames {
			end = frames
		}
		if frameRMS(sig, pos, end) < thresh {
			if runStart < 0 {
				runStart = pos
			}
			continue
		}
		if runStart >= 0 {
			if pos-runStart >= minFrames {
				spans = append(spans, SilenceSpan{Start: runStart, End: pos})
			}
			runStart = -1
		}
	}
	if runStart >= 0 && frames-runStart >= minFrames {
		spans = append(spans, SilenceSpan{Start: runStart, End: frames})
	}
	return spans
}

func frameRMS(sig Signal, startFrame, endFrame int) float64 {
	lo := startFrame * sig.Channels
	hi := endFrame * sig.Channels
	if hi <= lo {
		return 0
	}
	var sum float64
	for _, v := range sig.Samples[lo:hi] {
		sum += v * v
	}
	return math.Sqrt(sum / float64(hi-lo))
}

// TrimSilence removes silence runs longer than minSilence while keeping a
// keepSilence guard band adjacent to retained audio, so quiet speech
// onsets are not clipped. A signal without qualifying spans passes
// through unchanged.
func TrimSilence(sig Signal, threshDB float64, minSilence, keepSilence time.Duration) Signal {
	spans := DetectSilence(sig, threshDB, minSilence)
	if len(spans) == 0 {
		return sig
	}
	guard := int(keepSilence.Seconds() * float64(sig.SampleRate))
	frames := sig.Frames()

	out := make([]float64, 0, len(sig.Samples))
	cursor := 0
	for _, span := range spans {
		cut := SilenceSpan{Start: span.Start + guard, End: span.End - guard}
		if cut.End <= cut.Start {
			continue
		}
		if cut.Start > cursor {
			out = append(out, sig.Samples[cursor*sig.Channels:cut.Start*sig.Channels]...)
		}
		cursor = cut.End
	}
	if cursor < frames {
		out = append(out, sig.Samples[cursor*sig.Channels:]...)
	}
	if len(out) == len(sig.Samples) {
		return sig
	}
	return Signal{Samples: out, SampleRate: sig.SampleRate, Channels: sig.Channels}
}

// Downmix folds a multi-channel signal to mono by averaging channels.
func Downmix(sig Signal) Signal {
	if sig.Channels <= 1 {
		return sig
	}
	frames := sig.Frames()
	out := make([]float64, frames)
	for f := 0; f < frames; f++ {
		var sum float64
		for c := 0; c < sig.Channels; c++ {
			sum += sig.Samples[f*sig.Channels+c]
		}
		out[f] = sum / float64(sig.Channels)
	}
	return Signal{Samples: out, SampleRate: sig.SampleRate, Channels: 1}
}

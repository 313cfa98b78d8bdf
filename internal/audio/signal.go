package audio

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrEmptySignal indicates a zero-length or malformed input signal.
var ErrEmptySignal = errors.New("audio signal is empty")

// Signal is an in-memory PCM signal. Samples are interleaved when
// Channels > 1 and hold amplitudes in [-1, 1] once conditioned.
type Signal struct {
	Samples    []float64
	SampleRate int
	Channels   int
}

// Frames returns the number of per-channel sample frames.
func (s Signal) Frames() int {
	if s.Channels <= 0 {
		return 0
	}
	return len(s.Samples) / s.Channels
}

// Duration returns the playback length of the signal.
func (s Signal) Duration() time.Duration {
	if s.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(s.Frames()) / float64(s.SampleRate) * float64(time.Second))
}

func (s Signal) validate() error {
	if len(s.Samples) == 0 {
		return ErrEmptySignal
	}
	if s.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", s.SampleRate)
	}
	if s.Channels <= 0 {
		return fmt.Errorf("invalid channel count %d", s.Channels)
	}
	if len(s.Samples)%s.Channels != 0 {
		return fmt.Errorf("sample count %d not aligned to %d channels", len(s.Samples), s.Channels)
	}
	return nil
}

// SilenceSpan marks a run of frames classified as silence.
type SilenceSpan struct {
	Start int // frame index, inclusive
	End   int // frame index, exclusive
}

func dbToAmplitude(db float64) float64 {
	return math.Pow(10, db/20)
}

func amplitudeToDB(amp float64) float64 {
	if amp <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(amp)
}

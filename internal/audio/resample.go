package audio

import (
	"fmt"
	"math"
)

// resampleTaps is the one-sided width of the sinc kernel.
const resampleTaps = 16

// Resample converts the signal to the target rate with a Hann-windowed
// sinc interpolator. Returns the input unchanged when already at the
// target rate.
func Resample(sig Signal, targetRate int) (Signal, error) {
	if err := sig.validate(); err != nil {
		return Signal{}, err
	}
	if targetRate <= 0 {
		return Signal{}, fmt.Errorf("invalid target rate %d", targetRate)
	}
	if sig.SampleRate == targetRate {
		return sig, nil
	}

	frames := sig.Frames()
	ratio := float64(targetRate) / float64(sig.SampleRate)
	outFrames := int(math.Ceil(float64(frames) * ratio))
	if outFrames == 0 {
		return Signal{}, ErrEmptySignal
	}

	out := make([]float64, outFrames*sig.Channels)
	for c := 0; c < sig.Channels; c++ {
		channel := make([]float64, frames)
		for f := 0; f < frames; f++ {
			channel[f] = sig.Samples[f*sig.Channels+c]
		}
		resampled := resampleChannel(channel, ratio)
		for f := 0; f < outFrames && f < len(resampled); f++ {
			out[f*sig.Channels+c] = resampled[f]
		}
	}
	return Signal{Samples: out, SampleRate: targetRate, Channels: sig.Channels}, nil
}

func resampleChannel(in []float64, ratio float64) []float64 {
	outLen := int(math.Ceil(float64(len(in)) * ratio))
	out := make([]float64, outLen)

	// When downsampling the kernel cutoff drops to the output Nyquist.
	cutoff := math.Min(1, ratio)

	for i := range out {
		center := float64(i) / ratio
		left := int(math.Floor(center)) - resampleTaps + 1

		var acc, norm float64
		for j := left; j < left+2*resampleTaps; j++ {
			if j < 0 || j >= len(in) {
				continue
			}
			x := float64(j) - center
			w := windowedSinc(x, cutoff)
			acc += in[j] * w
			norm += w
		}
		if norm != 0 {
			out[i] = acc / norm
		}
	}
	return out
}

func windowedSinc(x, cutoff float64) float64 {
	// Hann window over the kernel support.
	window := 0.5 + 0.5*math.Cos(math.Pi*x/float64(resampleTaps))
	if window <= 0 {
		return 0
	}
	return cutoff * sinc(cutoff*x) * window
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	px := math.Pi * x
	return math.Sin(px) / px
}

package audio

import (
	"fmt"
	"math"
	"math/cmplx"
	"sort"

	"gonum.org/v1/gonum/dsp/fourier"
)

const (
	noiseFrameSize = 512
	noiseHopSize   = noiseFrameSize / 2
	// Fraction of the quietest frames used for the stationary noise profile.
	noiseProfileFraction = 0.1
	// Residual floor applied after subtraction to avoid musical artifacts.
	noiseSpectralFloor = 0.05
)

// SuppressNoise applies stationary spectral subtraction to the signal.
// Strength in [0, 1] scales how much of the estimated noise magnitude is
// removed per frequency bin. The result is requantized through 16-bit
// with hard clipping at format bounds, matching the working sample
// format, and is interchangeable with the conditioner output.
func SuppressNoise(sig Signal, strength float64) (Signal, error) {
	if err := sig.validate(); err != nil {
		return Signal{}, err
	}
	if strength < 0 || strength > 1 {
		return Signal{}, fmt.Errorf("noise suppression strength %v outside [0, 1]", strength)
	}

	// Work on a peak-normalized copy in [-1, 1].
	var peak float64
	for _, v := range sig.Samples {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	samples := make([]float64, len(sig.Samples))
	if peak > 0 {
		for i, v := range sig.Samples {
			samples[i] = v / peak
		}
	}

	n := len(samples)
	frameCount := 1 + (max(n-noiseFrameSize, 0)+noiseHopSize-1)/noiseHopSize
	padded := make([]float64, (frameCount-1)*noiseHopSize+noiseFrameSize)
	copy(padded, samples)

	fft := fourier.NewFFT(noiseFrameSize)
	window := hannWindow(noiseFrameSize)

	spectra := make([][]complex128, frameCount)
	magnitudes := make([][]float64, frameCount)
	energies := make([]float64, frameCount)
	frame := make([]float64, noiseFrameSize)
	for f := 0; f < frameCount; f++ {
		off := f * noiseHopSize
		var energy float64
		for i := 0; i < noiseFrameSize; i++ {
			frame[i] = padded[off+i] * window[i]
			energy += frame[i] * frame[i]
		}
		coeffs := fft.Coefficients(nil, frame)
		mags := make([]float64, len(coeffs))
		for i, c := range coeffs {
			mags[i] = cmplx.Abs(c)
		}
		spectra[f] = coeffs
		magnitudes[f] = mags
		energies[f] = energy
	}

	profile := noiseProfile(magnitudes, energies)

	out := make([]float64, len(padded))
	for f := 0; f < frameCount; f++ {
		coeffs := spectra[f]
		for i, c := range coeffs {
			mag := magnitudes[f][i]
			reduced := mag - strength*profile[i]
			if floor := noiseSpectralFloor * mag; reduced < floor {
				reduced = floor
			}
			if mag > 0 {
				coeffs[i] = c * complex(reduced/mag, 0)
			}
		}
		seq := fft.Sequence(nil, coeffs)
		off := f * noiseHopSize
		for i := 0; i < noiseFrameSize; i++ {
			// Hann analysis windows at 50% overlap sum to unity, so plain
			// overlap-add reconstructs the frame chain. Sequence output is
			// unnormalized, hence the division by the frame size.
			out[off+i] += seq[i] / noiseFrameSize
		}
	}

	result := make([]float64, n)
	for i := 0; i < n; i++ {
		result[i] = quantize16(out[i])
	}
	return Signal{Samples: result, SampleRate: sig.SampleRate, Channels: sig.Channels}, nil
}

// noiseProfile averages per-bin magnitudes over the quietest frames,
// which approximate noise-only audio when the noise is stationary.
func noiseProfile(magnitudes [][]float64, energies []float64) []float64 {
	order := make([]int, len(energies))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return energies[order[a]] < energies[order[b]] })

	take := int(float64(len(order)) * noiseProfileFraction)
	if take < 1 {
		take = 1
	}

	bins := len(magnitudes[0])
	profile := make([]float64, bins)
	for _, f := range order[:take] {
		for i, m := range magnitudes[f] {
			profile[i] += m
		}
	}
	for i := range profile {
		profile[i] /= float64(take)
	}
	return profile
}

func hannWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n)))
	}
	return w
}

// quantize16 rounds through the signed 16-bit range with hard clipping so
// overflow can never wrap around.
func quantize16(v float64) float64 {
	scaled := math.Round(v * 32767)
	if scaled > 32767 {
		scaled = 32767
	}
	if scaled < -32768 {
		scaled = -32768
	}
	return scaled / 32768
}

package audio

import (
	"fmt"
	"math"
	"os"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ReadWAV decodes a PCM WAV file into a Signal with amplitudes scaled to
// [-1, 1].
func ReadWAV(path string) (Signal, error) {
	f, err := os.Open(path)
	if err != nil {
		return Signal{}, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return Signal{}, fmt.Errorf("%s is not a valid wav file", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return Signal{}, fmt.Errorf("decode wav: %w", err)
	}
	if buf == nil || len(buf.Data) == 0 {
		return Signal{}, ErrEmptySignal
	}

	bitDepth := int(dec.BitDepth)
	if bitDepth == 0 {
		bitDepth = 16
	}
	scale := float64(int64(1) << (bitDepth - 1))

	samples := make([]float64, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float64(v) / scale
	}
	sig := Signal{
		Samples:    samples,
		SampleRate: buf.Format.SampleRate,
		Channels:   buf.Format.NumChannels,
	}
	if err := sig.validate(); err != nil {
		return Signal{}, fmt.Errorf("decoded wav malformed: %w", err)
	}
	return sig, nil
}

// WriteWAV encodes the signal as 16-bit PCM WAV at path. Amplitudes are
// clipped at the format bounds.
func WriteWAV(path string, sig Signal) error {
	if err := sig.validate(); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}
	defer f.Close()
	return writeWAV(f, sig)
}

func writeWAV(f *os.File, sig Signal) error {
	data := make([]int, len(sig.Samples))
	for i, v := range sig.Samples {
		s := math.Round(v * 32767)
		if s > 32767 {
			s = 32767
		}
		if s < -32768 {
			s = -32768
		}
		data[i] = int(s)
	}
	buf := &gaudio.IntBuffer{
		Format: &gaudio.Format{NumChannels: sig.Channels, SampleRate: sig.SampleRate},
		Data:   data,
	}
	enc := wav.NewEncoder(f, sig.SampleRate, 16, sig.Channels, 1)
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close wav encoder: %w", err)
	}
	return nil
}

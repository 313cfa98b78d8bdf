package audio

import "iter"

// Window is a half-open [Start, End) frame range of a conditioned signal.
// Windows carry no audio themselves; they index into the signal they were
// planned for.
type Window struct {
	Index int
	Start int
	End   int
}

// Len returns the window length in frames.
func (w Window) Len() int { return w.End - w.Start }

// Windows plans fixed-length recognition windows over frames at the given
// rate. Every window after the first starts overlapSeconds early so the
// recognizer sees trailing context across chunk edges; the duplicated
// audio intentionally yields duplicated text downstream. The sequence is
// lazy and restartable, and never yields a zero-length window.
func Windows(frames, sampleRate int, chunkSeconds, overlapSeconds float64) iter.Seq[Window] {
	return func(yield func(Window) bool) {
		if frames <= 0 || sampleRate <= 0 || chunkSeconds <= 0 {
			return
		}
		chunk := int(chunkSeconds * float64(sampleRate))
		overlap := int(overlapSeconds * float64(sampleRate))
		if chunk <= 0 {
			return
		}
		for i := 0; ; i++ {
			nominal := i * chunk
			if nominal >= frames {
				return
			}
			start := nominal - overlap
			if start < 0 {
				start = 0
			}
			end := nominal + chunk
			if end > frames {
				end = frames
			}
			if end <= start {
				continue
			}
			if !yield(Window{Index: i, Start: start, End: end}) {
				return
			}
		}
	}
}

// Slice extracts the window's samples as a standalone mono signal. The
// returned signal aliases the source buffer; callers must not mutate it.
func (w Window) Slice(sig Signal) Signal {
	return Signal{
		Samples:    sig.Samples[w.Start*sig.Channels : w.End*sig.Channels],
		SampleRate: sig.SampleRate,
		Channels:   sig.Channels,
	}
}

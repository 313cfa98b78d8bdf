package stt

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/YusenFan/Ollama-Transcriber/internal/audio"
)

// ErrAllWindowsFailed reports that recognition failed for every planned
// window. Distinct from an empty transcript, which means the recording
// carried no recognizable speech.
var ErrAllWindowsFailed = errors.New("recognition failed for every window")

// AggregateOptions tune the per-window recognition loop.
type AggregateOptions struct {
	Language      string
	Workers       int           // bounded worker pool; <=1 runs sequentially
	WindowTimeout time.Duration // per-window deadline, timeout counts as window failure
	Logger        *slog.Logger
	// OnWindow, if set, is invoked once per window after recognition.
	// With Workers > 1 it runs on worker goroutines.
	OnWindow func(w audio.Window, failed bool)
}

// Transcript is the ordered concatenation of non-empty window fragments.
type Transcript struct {
	Text          string
	Windows       int
	FailedWindows int
}

// Aggregate runs the recognizer over every window and joins the resulting
// fragments with single spaces, in window order regardless of completion
// order. A failed or timed-out window is logged and skipped; only the
// degenerate case of every window failing is surfaced as an error.
// Duplicated text at overlap boundaries is preserved as-is.
func Aggregate(ctx context.Context, sig audio.Signal, windows iter.Seq[audio.Window], rec Recognizer, opts AggregateOptions) (Transcript, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var plan []audio.Window
	for w := range windows {
		plan = append(plan, w)
	}
	if len(plan) == 0 {
		return Transcript{}, nil
	}

	fragments := make([]string, len(plan))
	failed := make([]bool, len(plan))

	recognizeOne := func(slot int, w audio.Window) {
		wctx := ctx
		if opts.WindowTimeout > 0 {
			var cancel context.CancelFunc
			wctx, cancel = context.WithTimeout(ctx, opts.WindowTimeout)
			defer cancel()
		}
		frag, err := rec.Transcribe(wctx, w.Slice(sig), opts.Language)
		if err != nil {
			failed[slot] = true
			logger.Warn("window recognition failed",
				slog.Int("window", w.Index),
				slog.String("error", err.Error()))
		} else {
			fragments[slot] = strings.TrimSpace(frag.Text)
		}
		if opts.OnWindow != nil {
			opts.OnWindow(w, failed[slot])
		}
	}

	if opts.Workers <= 1 {
		for slot, w := range plan {
			if ctx.Err() != nil {
				return Transcript{}, ctx.Err()
			}
			recognizeOne(slot, w)
		}
	} else {
		sem := make(chan struct{}, opts.Workers)
		var wg sync.WaitGroup
		for slot, w := range plan {
			sem <- struct{}{}
			wg.Add(1)
			go func(slot int, w audio.Window) {
				defer wg.Done()
				defer func() { <-sem }()
				recognizeOne(slot, w)
			}(slot, w)
		}
		wg.Wait()
		if ctx.Err() != nil {
			return Transcript{}, ctx.Err()
		}
	}

	var failures int
	parts := make([]string, 0, len(plan))
	for slot := range plan {
		if failed[slot] {
			failures++
			continue
		}
		if fragments[slot] != "" {
			parts = append(parts, fragments[slot])
		}
	}
	if failures == len(plan) {
		return Transcript{Windows: len(plan), FailedWindows: failures}, ErrAllWindowsFailed
	}
	return Transcript{
		Text:          strings.Join(parts, " "),
		Windows:       len(plan),
		FailedWindows: failures,
	}, nil
}

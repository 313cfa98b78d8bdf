package stt

import (
	"context"

	"github.com/YusenFan/Ollama-Transcriber/internal/audio"
)

// Fragment captures recognizer output for one window.
type Fragment struct {
	Text       string
	Confidence float64
}

// Recognizer abstracts the loaded speech recognition model. The handle is
// constructed once by the caller and injected; implementations either
// tolerate concurrent calls or serialize them internally.
type Recognizer interface {
	Transcribe(ctx context.Context, window audio.Signal, language string) (Fragment, error)
}

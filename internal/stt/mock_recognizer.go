package stt

import (
	"context"
	"fmt"

	"github.com/YusenFan/Ollama-Transcriber/internal/audio"
)

type mockRecognizer struct{}

// NewMockRecognizer returns a recognizer that reports window geometry
// instead of text. Useful for pipeline dry runs.
func NewMockRecognizer() Recognizer {
	return &mockRecognizer{}
}

func (m *mockRecognizer) Transcribe(_ context.Context, window audio.Signal, _ string) (Fragment, error) {
	return Fragment{
		Text: fmt.Sprintf("[transcript frames=%d rate=%d]", window.Frames(), window.SampleRate),
	}, nil
}

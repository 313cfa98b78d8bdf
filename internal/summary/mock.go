package summary

import (
	"context"
	"fmt"
	"time"
)

type mockSummarizer struct{}

func NewMockSummarizer() Summarizer { return &mockSummarizer{} }

func (m *mockSummarizer) Summarize(ctx context.Context, transcript string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(20 * time.Millisecond):
	}
	return fmt.Sprintf("[mock summary of %d characters]", len(transcript)), nil
}

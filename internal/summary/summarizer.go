package summary

import (
	"context"
	"fmt"
	"time"
)

// Summarizer turns a meeting transcript into summary text.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (string, error)
}

// FormatRecordingDuration renders a duration the way run logs and
// summary headers expect it, e.g. "1h 2m 3s".
func FormatRecordingDuration(d time.Duration) string {
	total := int(d.Seconds())
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

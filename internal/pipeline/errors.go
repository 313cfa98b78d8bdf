package pipeline

import "fmt"

// Pipeline stages, used to tag failures so an empty transcript can be
// traced to the stage that produced it.
const (
	StageDecode     = "decode"
	StageCondition  = "condition"
	StageDenoise    = "denoise"
	StageTranscribe = "transcribe"
	StageSummarize  = "summarize"
	StagePersist    = "persist"
)

// StageError wraps a fatal pipeline failure with the stage it occurred in.
// Per-window recognition errors are handled inside the aggregator and
// never surface as StageError; only signal-level and total failures do.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage string, err error) error {
	return &StageError{Stage: stage, Err: err}
}

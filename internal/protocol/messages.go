package protocol

import "time"

// RunEvent marks lifecycle transitions of one audio file run.
type RunEvent struct {
	File      string    `json:"file"`
	Stage     string    `json:"stage,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// WindowEvent reports completion of a single recognition window.
type WindowEvent struct {
	File      string    `json:"file"`
	Window    int       `json:"window"`
	Failed    bool      `json:"failed"`
	Timestamp time.Time `json:"timestamp"`
}

// TranscriptEvent carries the assembled transcript for a run.
type TranscriptEvent struct {
	File          string    `json:"file"`
	Text          string    `json:"text"`
	Windows       int       `json:"windows"`
	FailedWindows int       `json:"failed_windows"`
	Timestamp     time.Time `json:"timestamp"`
}

const (
	SubjectRunStarted      = "transcriber.run.started"
	SubjectRunFailed       = "transcriber.run.failed"
	SubjectWindowDone      = "transcriber.window.done"
	SubjectTranscriptFinal = "transcriber.transcript.final"
)

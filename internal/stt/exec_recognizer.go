package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/mattn/go-shellwords"

	"github.com/YusenFan/Ollama-Transcriber/internal/audio"
)

// execRecognizer shells out to a recognition command (typically a whisper
// wrapper) per window. The mutex serializes calls: the model process owns
// accelerated hardware and is not assumed to tolerate concurrent
// inference.
type execRecognizer struct {
	cmd       []string
	modelPath string
	mu        sync.Mutex
}

type execResult struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

func NewExecRecognizer(command, modelPath string) (Recognizer, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse stt command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("stt command is empty")
	}
	return &execRecognizer{cmd: args, modelPath: modelPath}, nil
}

func (r *execRecognizer) Transcribe(ctx context.Context, window audio.Signal, language string) (Fragment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := os.CreateTemp(os.TempDir(), "transcriber_window_*.wav")
	if err != nil {
		return Fragment{}, fmt.Errorf("temp file: %w", err)
	}
	name := file.Name()
	file.Close()
	defer os.Remove(name)

	if err := audio.WriteWAV(name, window); err != nil {
		return Fragment{}, fmt.Errorf("write window wav: %w", err)
	}

	base := r.cmd[0]
	cmdArgs := append([]string{}, r.cmd[1:]...)
	cmdArgs = append(cmdArgs, "--audio", name)
	if r.modelPath != "" {
		cmdArgs = append(cmdArgs, "--model", r.modelPath)
	}
	if language != "" {
		cmdArgs = append(cmdArgs, "--language", language)
	}

	command := exec.CommandContext(ctx, base, cmdArgs...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return Fragment{}, fmt.Errorf("stt command failed: %w: %s", err, stderr.String())
	}

	var resp execResult
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return Fragment{}, fmt.Errorf("decode stt response: %w", err)
	}
	return Fragment{Text: resp.Text, Confidence: resp.Confidence}, nil
}

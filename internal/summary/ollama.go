package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// OllamaConfig parameterizes the Ollama-backed summarizer.
type OllamaConfig struct {
	Endpoint    string
	Model       string
	Prompt      string
	MaxRetries  int
	RetryDelay  time.Duration
	Temperature float64
	MaxTokens   int
}

type ollamaSummarizer struct {
	cfg    OllamaConfig
	client *http.Client
	logger *slog.Logger
}

// NewOllamaSummarizer builds a summarizer that calls Ollama's
// /api/generate endpoint without streaming. Requests are retried with a
// fixed delay; an empty completion counts as a failed attempt.
func NewOllamaSummarizer(cfg OllamaConfig, logger *slog.Logger) Summarizer {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 1
	}
	return &ollamaSummarizer{
		cfg:    cfg,
		client: &http.Client{Timeout: 120 * time.Second},
		logger: logger.With(slog.String("component", "summarizer")),
	}
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func (s *ollamaSummarizer) Summarize(ctx context.Context, transcript string) (string, error) {
	payload := ollamaRequest{
		Model:  s.cfg.Model,
		Prompt: fmt.Sprintf("%s\n\nText: %s", s.cfg.Prompt, transcript),
		Stream: false,
		Options: ollamaOptions{
			Temperature: s.cfg.Temperature,
			NumPredict:  s.cfg.MaxTokens,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxRetries; attempt++ {
		text, err := s.generate(ctx, body)
		if err == nil {
			return text, nil
		}
		lastErr = err
		s.logger.Warn("summary attempt failed",
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()))
		if attempt == s.cfg.MaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(s.cfg.RetryDelay):
		}
	}
	return "", fmt.Errorf("summary generation failed after %d attempts: %w", s.cfg.MaxRetries, lastErr)
}

func (s *ollamaSummarizer) generate(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("ollama returned status %s", resp.Status)
	}

	var out ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode ollama response: %w", err)
	}
	if strings.TrimSpace(out.Response) == "" {
		return "", fmt.Errorf("ollama returned an empty completion")
	}
	return out.Response, nil
}

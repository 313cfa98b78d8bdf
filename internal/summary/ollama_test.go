package summary

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestOllamaSummarizeRetriesThenSucceeds(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if stream, ok := req["stream"].(bool); !ok || stream {
			t.Error("requests must disable streaming")
		}
		if calls < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"response": "the meeting covered roadmap items", "done": true})
	}))
	defer srv.Close()

	s := NewOllamaSummarizer(OllamaConfig{
		Endpoint:   srv.URL,
		Model:      "llama3.2",
		Prompt:     "Summarize the following meeting transcript",
		MaxRetries: 3,
		RetryDelay: 5 * time.Millisecond,
	}, testLogger())

	text, err := s.Summarize(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if text != "the meeting covered roadmap items" {
		t.Fatalf("unexpected summary: %q", text)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestOllamaEmptyCompletionIsFailure(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		json.NewEncoder(w).Encode(map[string]any{"response": "   ", "done": true})
	}))
	defer srv.Close()

	s := NewOllamaSummarizer(OllamaConfig{
		Endpoint:   srv.URL,
		Model:      "llama3.2",
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
	}, testLogger())

	_, err := s.Summarize(context.Background(), "hello world")
	if err == nil {
		t.Fatal("blank completions must not be accepted")
	}
	if !strings.Contains(err.Error(), "after 2 attempts") {
		t.Fatalf("expected exhaustion error, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls)
	}
}

func TestOllamaPromptIncludesTranscript(t *testing.T) {
	var prompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Prompt string `json:"prompt"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		prompt = req.Prompt
		json.NewEncoder(w).Encode(map[string]any{"response": "ok", "done": true})
	}))
	defer srv.Close()

	s := NewOllamaSummarizer(OllamaConfig{
		Endpoint:   srv.URL,
		Model:      "llama3.2",
		Prompt:     "Summarize this",
		MaxRetries: 1,
	}, testLogger())

	if _, err := s.Summarize(context.Background(), "alpha beta gamma"); err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if !strings.HasPrefix(prompt, "Summarize this") || !strings.Contains(prompt, "Text: alpha beta gamma") {
		t.Fatalf("unexpected prompt: %q", prompt)
	}
}

func TestFormatRecordingDuration(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{45 * time.Second, "45s"},
		{2*time.Minute + 3*time.Second, "2m 3s"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1h 2m 3s"},
		{0, "0s"},
	}
	for _, tc := range cases {
		if got := FormatRecordingDuration(tc.in); got != tc.want {
			t.Fatalf("FormatRecordingDuration(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMockSummarizer(t *testing.T) {
	s := NewMockSummarizer()
	out, err := s.Summarize(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if !strings.Contains(out, "11 characters") {
		t.Fatalf("unexpected mock output: %q", out)
	}
}

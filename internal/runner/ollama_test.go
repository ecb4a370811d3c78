package runner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOllamaComplete(t *testing.T) {
	var gotReq ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %s, want /api/chat", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(ollamaChatResponse{
			Message: ollamaMessage{Role: "assistant", Content: "hello from ollama"},
		})
	}))
	defer srv.Close()

	b := NewOllamaBackend(BackendConfig{Host: srv.URL, Model: "llama3.1"})
	defer b.Close()

	out, err := b.Complete(context.Background(), "be helpful", "say hello")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if out != "hello from ollama" {
		t.Errorf("Complete() = %q", out)
	}

	if gotReq.Stream {
		t.Error("request should be non-streaming")
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" || gotReq.Messages[1].Role != "user" {
		t.Errorf("messages = %+v, want [system, user]", gotReq.Messages)
	}
	if gotReq.Messages[1].Content != "say hello" {
		t.Errorf("user content = %q", gotReq.Messages[1].Content)
	}
}

func TestOllamaCompleteServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	b := NewOllamaBackend(BackendConfig{Host: srv.URL})
	defer b.Close()

	_, err := b.Complete(context.Background(), "s", "p")
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("Complete() error = %v, want status 404", err)
	}
}

func TestOllamaCompleteAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollamaChatResponse{Error: "model is loading"})
	}))
	defer srv.Close()

	b := NewOllamaBackend(BackendConfig{Host: srv.URL})
	defer b.Close()

	_, err := b.Complete(context.Background(), "s", "p")
	if err == nil || !strings.Contains(err.Error(), "model is loading") {
		t.Errorf("Complete() error = %v, want API error passthrough", err)
	}
}

func TestNewBackendUnknownType(t *testing.T) {
	if _, err := NewBackend(BackendConfig{Type: "gpt-om-9000"}); err == nil {
		t.Error("NewBackend(unknown) should fail")
	}
}

func TestOllamaDefaults(t *testing.T) {
	b := NewOllamaBackend(BackendConfig{})
	if b.host != defaultOllamaHost {
		t.Errorf("host = %q, want %q", b.host, defaultOllamaHost)
	}
	if b.model != "llama3.1" {
		t.Errorf("model = %q, want llama3.1", b.model)
	}
}

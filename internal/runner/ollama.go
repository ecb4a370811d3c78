package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const defaultOllamaHost = "http://localhost:11434"

// OllamaBackend talks to a local Ollama server over its /api/chat endpoint.
type OllamaBackend struct {
	host   string
	model  string
	client *http.Client
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Error   string        `json:"error,omitempty"`
}

// NewOllamaBackend creates an Ollama adapter. Host and model fall back to
// the local default server and llama3.1.
func NewOllamaBackend(cfg BackendConfig) *OllamaBackend {
	host := strings.TrimRight(cfg.Host, "/")
	if host == "" {
		host = defaultOllamaHost
	}
	model := cfg.Model
	if model == "" {
		model = "llama3.1"
	}
	return &OllamaBackend{
		host:   host,
		model:  model,
		client: &http.Client{},
	}
}

// Complete sends a non-streaming chat request and returns the response text.
func (b *OllamaBackend) Complete(ctx context.Context, system, prompt string) (string, error) {
	reqBody := ollamaChatRequest{
		Model: b.model,
		Messages: []ollamaMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		Stream: false,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("encoding chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.host+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("building chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading ollama response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var chat ollamaChatResponse
	if err := json.Unmarshal(body, &chat); err != nil {
		return "", fmt.Errorf("decoding ollama response: %w", err)
	}
	if chat.Error != "" {
		return "", fmt.Errorf("ollama error: %s", chat.Error)
	}

	return chat.Message.Content, nil
}

// Name implements Backend.
func (b *OllamaBackend) Name() string { return "ollama" }

// Close implements Backend. The shared HTTP client holds no resources that
// outlive idle connections.
func (b *OllamaBackend) Close() error {
	b.client.CloseIdleConnections()
	return nil
}

// Package runner implements the task-runner boundary: it renders
// dependency outputs into agent prompts, invokes an LLM backend with
// retry, circuit breaking, and a per-task timeout, and optionally recurses
// into sub-plans for delegate-capable roles.
package runner

import (
	"context"
	"fmt"
)

// Backend is the LLM transport that performs one completion.
type Backend interface {
	// Complete sends a system prompt and a user prompt, returning the
	// model's text response.
	Complete(ctx context.Context, system, prompt string) (string, error)

	// Name identifies the backend type for circuit-breaker bookkeeping.
	Name() string

	// Close releases any held resources.
	Close() error
}

// BackendConfig selects and configures a backend adapter.
type BackendConfig struct {
	Type      string // "ollama" or "anthropic"
	Model     string
	Host      string // Ollama server address
	APIKey    string // Anthropic key; falls back to ANTHROPIC_API_KEY
	MaxTokens int
}

// NewBackend creates a backend adapter from configuration.
func NewBackend(cfg BackendConfig) (Backend, error) {
	switch cfg.Type {
	case "ollama":
		return NewOllamaBackend(cfg), nil
	case "anthropic":
		return NewAnthropicBackend(cfg)
	default:
		return nil, fmt.Errorf("unknown backend type: %s", cfg.Type)
	}
}

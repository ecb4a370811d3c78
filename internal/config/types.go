package config

// BackendConfig selects and tunes the LLM transport shared by the planner
// and the task runner.
type BackendConfig struct {
	Type      string `json:"type"`                 // "ollama" or "anthropic"
	Model     string `json:"model,omitempty"`      // model override
	Host      string `json:"host,omitempty"`       // Ollama server address
	APIKey    string `json:"api_key,omitempty"`    // Anthropic key; env var wins when empty
	MaxTokens int    `json:"max_tokens,omitempty"` // response token cap
}

// Config is the top-level configuration. It is threaded explicitly through
// the planner, builder, and engine; nothing reads ambient process state at
// call sites.
type Config struct {
	Concurrency        int           `json:"concurrency"`          // max concurrent tasks per layer
	MaxAgents          int           `json:"max_agents"`           // plan size cap
	MaxDepth           int           `json:"max_depth"`            // nesting ceiling for sub-plans
	TaskTimeoutSeconds int           `json:"task_timeout_seconds"` // per-task runner timeout
	TerminalRoles      []string      `json:"terminal_roles"`       // roles that get dependency auto-injection
	Backend            BackendConfig `json:"backend"`
	HistoryPath        string        `json:"history_path,omitempty"` // SQLite run-history location; empty disables persistence
}

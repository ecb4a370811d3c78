package config

// DefaultConfig returns the built-in configuration: a local Ollama backend
// and the guardrails the planner is prompted around.
func DefaultConfig() *Config {
	return &Config{
		Concurrency:        3,
		MaxAgents:          12,
		MaxDepth:           5,
		TaskTimeoutSeconds: 300,
		TerminalRoles:      []string{"synthesizer", "writer"},
		Backend: BackendConfig{
			Type:      "ollama",
			Model:     "llama3.1",
			Host:      "http://localhost:11434",
			MaxTokens: 4096,
		},
	}
}

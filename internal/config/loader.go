package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Load reads and merges configuration from global and project paths.
// Order of precedence (highest to lowest): project config, global config,
// defaults. Missing files are not errors; malformed JSON is.
func Load(globalPath, projectPath string) (*Config, error) {
	cfg := DefaultConfig()

	if globalPath != "" {
		if err := mergeConfigFile(cfg, globalPath); err != nil {
			return nil, fmt.Errorf("loading global config: %w", err)
		}
	}

	if projectPath != "" {
		if err := mergeConfigFile(cfg, projectPath); err != nil {
			return nil, fmt.Errorf("loading project config: %w", err)
		}
	}

	return cfg, nil
}

// LoadDefault loads configuration from conventional paths.
// Global: ~/.magentic/config.json
// Project: .magentic/config.json (relative to cwd)
func LoadDefault() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting home directory: %w", err)
	}

	globalPath := filepath.Join(homeDir, ".magentic", "config.json")
	projectPath := filepath.Join(".magentic", "config.json")

	return Load(globalPath, projectPath)
}

// mergeConfigFile reads a JSON config file and overlays its non-zero
// fields onto the base config. Missing files are silently skipped.
func mergeConfigFile(base *Config, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	var loaded Config
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	if loaded.Concurrency > 0 {
		base.Concurrency = loaded.Concurrency
	}
	if loaded.MaxAgents > 0 {
		base.MaxAgents = loaded.MaxAgents
	}
	if loaded.MaxDepth > 0 {
		base.MaxDepth = loaded.MaxDepth
	}
	if loaded.TaskTimeoutSeconds > 0 {
		base.TaskTimeoutSeconds = loaded.TaskTimeoutSeconds
	}
	if len(loaded.TerminalRoles) > 0 {
		base.TerminalRoles = loaded.TerminalRoles
	}
	if loaded.HistoryPath != "" {
		base.HistoryPath = loaded.HistoryPath
	}

	if loaded.Backend.Type != "" {
		base.Backend.Type = loaded.Backend.Type
	}
	if loaded.Backend.Model != "" {
		base.Backend.Model = loaded.Backend.Model
	}
	if loaded.Backend.Host != "" {
		base.Backend.Host = loaded.Backend.Host
	}
	if loaded.Backend.APIKey != "" {
		base.Backend.APIKey = loaded.Backend.APIKey
	}
	if loaded.Backend.MaxTokens > 0 {
		base.Backend.MaxTokens = loaded.Backend.MaxTokens
	}

	return nil
}

package orchestrator

import (
	"fmt"
	"strings"
	"sync"
)

const (
	// recentMessages is how many messages are rendered into planning and
	// agent context: the last 2 exchanges.
	recentMessages = 4

	// messagePreviewLen truncates long messages in rendered context.
	messagePreviewLen = 150
)

// Turn is one conversation message.
type Turn struct {
	Role    string // "user" or "assistant"
	Content string
}

// ConversationMemory keeps a session's recent exchanges so follow-up
// queries plan with context.
type ConversationMemory struct {
	mu    sync.Mutex
	turns []Turn
}

// NewConversationMemory creates an empty memory.
func NewConversationMemory() *ConversationMemory {
	return &ConversationMemory{}
}

// Seed replaces the memory with previously persisted turns.
func (m *ConversationMemory) Seed(turns []Turn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append([]Turn(nil), turns...)
}

// Add appends one turn.
func (m *ConversationMemory) Add(role, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, Turn{Role: role, Content: content})
}

// Context renders the most recent messages for inclusion in prompts.
// Returns "" when the memory is empty.
func (m *ConversationMemory) Context() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.turns) == 0 {
		return ""
	}

	recent := m.turns
	if len(recent) > recentMessages {
		recent = recent[len(recent)-recentMessages:]
	}

	lines := make([]string, 0, len(recent))
	for _, turn := range recent {
		label := "User"
		if turn.Role == "assistant" {
			label = "Assistant"
		}
		content := turn.Content
		if len(content) > messagePreviewLen {
			content = content[:messagePreviewLen] + "..."
		}
		lines = append(lines, fmt.Sprintf("%s: %s", label, content))
	}

	return strings.Join(lines, "\n")
}

// Clear drops all turns.
func (m *ConversationMemory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = nil
}

// Len returns the number of stored messages.
func (m *ConversationMemory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.turns)
}

package orchestrator

import (
	"sync"
)

// SessionLockManager serializes queries per conversation session while
// letting independent sessions run concurrently. Uses a keyed mutex
// pattern: each session ID gets its own mutex, created on first use.
type SessionLockManager struct {
	mu    sync.Mutex             // Guards the locks map itself
	locks map[string]*sync.Mutex // Per-session mutexes
}

// NewSessionLockManager creates a new SessionLockManager.
func NewSessionLockManager() *SessionLockManager {
	return &SessionLockManager{
		locks: make(map[string]*sync.Mutex),
	}
}

// Lock acquires the per-session mutex for the given session ID.
func (m *SessionLockManager) Lock(sessionID string) {
	m.mu.Lock()
	sessionLock, exists := m.locks[sessionID]
	if !exists {
		sessionLock = &sync.Mutex{}
		m.locks[sessionID] = sessionLock
	}
	m.mu.Unlock()

	// Acquire outside the manager lock to avoid contention.
	sessionLock.Lock()
}

// Unlock releases the per-session mutex for the given session ID.
func (m *SessionLockManager) Unlock(sessionID string) {
	m.mu.Lock()
	sessionLock, exists := m.locks[sessionID]
	m.mu.Unlock()

	if exists {
		sessionLock.Unlock()
	}
}

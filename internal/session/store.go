// Package session provides the in-memory, size-bounded conversation
// store. Each session is an ordered message window keyed by an opaque,
// caller-chosen identifier; the oldest messages are evicted first once
// the window is full. State lives for the process lifetime only.
package session

import (
	"sync"

	"github.com/voifodas/voifodas/internal/types"
)

// DefaultWindow is the number of messages retained per session.
const DefaultWindow = 10

// Store maps session keys to bounded message histories.
type Store struct {
	mu       sync.RWMutex
	window   int
	sessions map[string][]types.Message
}

// NewStore creates a Store retaining at most window messages per session.
func NewStore(window int) *Store {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Store{
		window:   window,
		sessions: make(map[string][]types.Message),
	}
}

// History returns a copy of the session's messages, oldest first. An
// unknown key yields an empty history; the session itself is created
// lazily on the first Append.
func (s *Store) History(key string) []types.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.sessions[key]
	history := make([]types.Message, len(stored))
	copy(history, stored)
	return history
}

// Append adds one message to the session, creating it if needed, then
// trims from the front until the window bound holds.
func (s *Store) Append(key string, msg types.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := append(s.sessions[key], msg)
	if len(history) > s.window {
		history = history[len(history)-s.window:]
	}
	s.sessions[key] = history
}

// Clear resets the session's history. No-op on an unknown key.
func (s *Store) Clear(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[key]; exists {
		s.sessions[key] = nil
	}
}

// ClearAll removes every session and returns how many existed.
func (s *Store) ClearAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := len(s.sessions)
	s.sessions = make(map[string][]types.Message)
	return count
}

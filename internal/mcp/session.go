// Package mcp exposes the graph over the Model Context Protocol: a
// fixed tool set served on an SSE transport, with per-connection
// repository context.
package mcp

import (
	"sync"

	"github.com/repograph/repograph-go/internal/config"
	"github.com/repograph/repograph-go/internal/errors"
)

// Session holds the active repository context for one client
// connection. It is a small façade so tests can substitute state
// without a transport.
type Session struct {
	mu           sync.RWMutex
	repositoryID string
}

// NewSession starts with no repository selected.
func NewSession(defaultRepository string) *Session {
	return &Session{repositoryID: defaultRepository}
}

// SetRepository activates a repository for subsequent tool calls.
// Idempotent.
func (s *Session) SetRepository(id string) error {
	if !config.ValidRepositoryID(id) {
		return errors.UserInputf(
			"invalid repository id %q: must match [A-Za-z0-9_-]+", id)
	}
	s.mu.Lock()
	s.repositoryID = id
	s.mu.Unlock()
	return nil
}

// Repository returns the active repository id, empty when none is set.
func (s *Session) Repository() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.repositoryID
}

// Clear drops the active repository context.
func (s *Session) Clear() {
	s.mu.Lock()
	s.repositoryID = ""
	s.mu.Unlock()
}

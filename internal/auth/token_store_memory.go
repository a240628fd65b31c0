package auth

import (
	"context"
	"sync"
)

// NewInMemoryTokenStore returns a TokenStore backed by an in-memory map.
func NewInMemoryTokenStore() *InMemoryTokenStore {
	return &InMemoryTokenStore{sessions: make(map[string]Session)}
}

// InMemoryTokenStore implements TokenStore for tests and local development.
type InMemoryTokenStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// Save persists the provided session record.
func (s *InMemoryTokenStore) Save(_ context.Context, session Session) error {
	s.mu.Lock()
	s.sessions[session.Token] = session
	s.mu.Unlock()
	return nil
}

// Find retrieves a session by token.
func (s *InMemoryTokenStore) Find(_ context.Context, token string) (Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[token]
	s.mu.RUnlock()
	if !ok {
		return Session{}, ErrTokenNotFound
	}
	return session, nil
}

// Delete removes the session associated with the token.
func (s *InMemoryTokenStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
	return nil
}

// Has reports whether a token exists. Useful for tests.
func (s *InMemoryTokenStore) Has(token string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sessions[token]
	return ok
}

package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"
)

var (
	// ErrTokenNotFound indicates the provided token does not map to an active session.
	ErrTokenNotFound = errors.New("token not found")
	// ErrTokenExpired indicates the token's TTL has elapsed.
	ErrTokenExpired = errors.New("token expired")
)

// TokenStore persists issued tokens so they can survive process restarts.
type TokenStore interface {
	Save(ctx context.Context, session Session) error
	Find(ctx context.Context, token string) (Session, error)
	Delete(ctx context.Context, token string) error
}

// Session maps an opaque bearer token to a user, with expiry.
type Session struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
}

// Manager manages the lifecycle of issued session tokens backed by a persistent store.
type Manager struct {
	ttl   time.Duration
	store TokenStore

	nowFunc func() time.Time
}

// NewManager constructs a Manager that issues tokens with the provided TTL.
func NewManager(ttl time.Duration, store TokenStore) *Manager {
	if store == nil {
		panic("auth: token store must not be nil")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{ttl: ttl, store: store}
}

// Issue creates a new session token for the provided user identifier.
func (m *Manager) Issue(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", errors.New("user id must be provided")
	}

	token, err := randomToken()
	if err != nil {
		return "", err
	}

	session := Session{
		Token:     token,
		UserID:    userID,
		ExpiresAt: m.now().Add(m.ttl),
	}

	if err := m.store.Save(ctx, session); err != nil {
		return "", err
	}

	return token, nil
}

// Resolve maps a token back to its user id. Absent and expired tokens
// both fail softly with a sentinel error; expired entries are removed
// as a side effect.
func (m *Manager) Resolve(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrTokenNotFound
	}

	session, err := m.store.Find(ctx, token)
	if err != nil {
		return "", err
	}

	if m.now().After(session.ExpiresAt) {
		_ = m.store.Delete(ctx, token)
		return "", ErrTokenExpired
	}

	return session.UserID, nil
}

// Revoke removes the provided token from the active session store.
// Revoking an unknown token is not an error.
func (m *Manager) Revoke(ctx context.Context, token string) {
	if token == "" {
		return
	}
	_ = m.store.Delete(ctx, token)
}

func (m *Manager) now() time.Time {
	if m.nowFunc != nil {
		return m.nowFunc()
	}
	return time.Now().UTC()
}

// tokens carry 128 bits of entropy
func randomToken() (string, error) {
	const size = 16
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

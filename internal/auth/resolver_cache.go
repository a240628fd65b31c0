package auth

import (
	"context"
	"sync"
	"time"
)

// SessionManager is the full token lifecycle surface consumed by callers.
type SessionManager interface {
	Issue(ctx context.Context, userID string) (string, error)
	Resolve(ctx context.Context, token string) (string, error)
	Revoke(ctx context.Context, token string)
}

type cacheEntry struct {
	userID  string
	expires time.Time
}

// CachingResolver wraps a SessionManager with a short-lived in-memory
// cache so hot tokens do not hit the backing store on every request.
// Revoking a token drops its cache entry immediately.
type CachingResolver struct {
	base SessionManager
	ttl  time.Duration

	mu    sync.RWMutex
	items map[string]cacheEntry
}

// NewCachingResolver returns a SessionManager that caches resolutions
// for the provided TTL.
func NewCachingResolver(base SessionManager, ttl time.Duration) *CachingResolver {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachingResolver{
		base:  base,
		ttl:   ttl,
		items: make(map[string]cacheEntry),
	}
}

// Issue delegates token creation to the underlying manager.
func (c *CachingResolver) Issue(ctx context.Context, userID string) (string, error) {
	return c.base.Issue(ctx, userID)
}

// Resolve returns the cached user id when available, otherwise it
// delegates to the underlying manager and stores the result.
func (c *CachingResolver) Resolve(ctx context.Context, token string) (string, error) {
	now := time.Now()

	c.mu.RLock()
	entry, ok := c.items[token]
	c.mu.RUnlock()
	if ok && now.Before(entry.expires) {
		return entry.userID, nil
	}

	userID, err := c.base.Resolve(ctx, token)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.items[token] = cacheEntry{userID: userID, expires: now.Add(c.ttl)}
	c.mu.Unlock()

	return userID, nil
}

// Revoke invalidates the cache entry and revokes the token downstream.
func (c *CachingResolver) Revoke(ctx context.Context, token string) {
	c.mu.Lock()
	delete(c.items, token)
	c.mu.Unlock()

	c.base.Revoke(ctx, token)
}

var _ SessionManager = (*CachingResolver)(nil)
var _ SessionManager = (*Manager)(nil)

package service

import (
	"sync"
	"time"
)

// RevocationRegistry remembers tokens that must be rejected before their
// natural expiry. An entry is only kept while its token could still pass
// validation on its own.
type RevocationRegistry struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
	now     func() time.Time
}

func NewRevocationRegistry() *RevocationRegistry {
	return &RevocationRegistry{
		revoked: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Revoke is idempotent. A later expiry for the same token wins.
func (r *RevocationRegistry) Revoke(token string, expiresAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.revoked[token]; ok && current.After(expiresAt) {
		return
	}
	r.revoked[token] = expiresAt
}

func (r *RevocationRegistry) IsRevoked(token string) bool {
	r.mu.RLock()
	expiresAt, ok := r.revoked[token]
	r.mu.RUnlock()
	if !ok {
		return false
	}

	// past its expiry the codec already rejects the token
	if !r.now().Before(expiresAt) {
		r.mu.Lock()
		if current, ok := r.revoked[token]; ok && !r.now().Before(current) {
			delete(r.revoked, token)
		}
		r.mu.Unlock()
	}
	return true
}

// Prune drops every entry whose token has expired and reports how many were removed.
func (r *RevocationRegistry) Prune(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for token, expiresAt := range r.revoked {
		if !now.Before(expiresAt) {
			delete(r.revoked, token)
			removed++
		}
	}
	return removed
}

func (r *RevocationRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.revoked)
}

package service

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"
	"time"
)

type pendingReset struct {
	identity  string
	expiresAt time.Time
}

// PasswordResetSession tracks identities that cleared the OTP challenge.
// Each authorization is bound to its own reset token, so concurrent resets
// for different users never see each other.
type PasswordResetSession struct {
	mu      sync.Mutex
	pending map[string]pendingReset
	ttl     time.Duration
	now     func() time.Time
}

func NewPasswordResetSession(ttl time.Duration) *PasswordResetSession {
	return &PasswordResetSession{
		pending: make(map[string]pendingReset),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *PasswordResetSession) Authorize(identity string) (string, time.Time, error) {
	token, err := newResetToken()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate reset token: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt := s.now().Add(s.ttl)
	s.pending[token] = pendingReset{identity: identity, expiresAt: expiresAt}
	return token, expiresAt, nil
}

// Consume returns the authorized identity and forgets the token.
func (s *PasswordResetSession) Consume(token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reset, ok := s.pending[token]
	if !ok {
		return "", ErrResetNotAuthorized
	}
	delete(s.pending, token)
	if s.now().After(reset.expiresAt) {
		return "", ErrResetNotAuthorized
	}
	return reset.identity, nil
}

// Pending reports whether token would currently be accepted by Consume.
func (s *PasswordResetSession) Pending(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	reset, ok := s.pending[token]
	return ok && !s.now().After(reset.expiresAt)
}

func (s *PasswordResetSession) Prune(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for token, reset := range s.pending {
		if now.After(reset.expiresAt) {
			delete(s.pending, token)
			removed++
		}
	}
	return removed
}

func newResetToken() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

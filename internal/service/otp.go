package service

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"
)

const (
	otpDigits       = 6
	otpIssueRetries = 8
)

var otpUpperBound = big.NewInt(1_000_000)

type otpChallenge struct {
	identity  string
	expiresAt time.Time
}

// OtpChallengeStore holds pending one-time passcodes keyed by code. Codes
// retired by Prune leave a tombstone so they keep reading as expired until
// the same code is issued again; the code space bounds the tombstone set.
type OtpChallengeStore struct {
	mu         sync.Mutex
	challenges map[string]otpChallenge
	retired    map[string]struct{}
	ttl        time.Duration
	now        func() time.Time
	generate   func() (string, error)
}

func NewOtpChallengeStore(ttl time.Duration) *OtpChallengeStore {
	return &OtpChallengeStore{
		challenges: make(map[string]otpChallenge),
		retired:    make(map[string]struct{}),
		ttl:        ttl,
		now:        time.Now,
		generate:   generateOtp,
	}
}

// Issue stores a new code for identity. A code still pending for someone else
// is never handed out twice.
func (s *OtpChallengeStore) Issue(identity string) (string, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for attempt := 0; attempt < otpIssueRetries; attempt++ {
		code, err := s.generate()
		if err != nil {
			return "", time.Time{}, fmt.Errorf("generate otp: %w", err)
		}
		if existing, ok := s.challenges[code]; ok && now.Before(existing.expiresAt) {
			continue
		}
		expiresAt := now.Add(s.ttl)
		s.challenges[code] = otpChallenge{identity: identity, expiresAt: expiresAt}
		delete(s.retired, code)
		return code, expiresAt, nil
	}
	return "", time.Time{}, errors.New("generate otp: no free code")
}

// Redeem consumes code. An expired code keeps reporting ErrOtpExpired on
// every later attempt.
func (s *OtpChallengeStore) Redeem(code string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	challenge, ok := s.challenges[code]
	if !ok {
		if _, retired := s.retired[code]; retired {
			return "", ErrOtpExpired
		}
		return "", ErrOtpInvalid
	}
	if s.now().After(challenge.expiresAt) {
		return "", ErrOtpExpired
	}
	delete(s.challenges, code)
	return challenge.identity, nil
}

// Prune drops challenges that expired more than one TTL ago, keeping only
// their code as a tombstone.
func (s *OtpChallengeStore) Prune(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for code, challenge := range s.challenges {
		if now.After(challenge.expiresAt.Add(s.ttl)) {
			delete(s.challenges, code)
			s.retired[code] = struct{}{}
			removed++
		}
	}
	return removed
}

func (s *OtpChallengeStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.challenges)
}

func generateOtp() (string, error) {
	n, err := rand.Int(rand.Reader, otpUpperBound)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", otpDigits, n.Int64()), nil
}

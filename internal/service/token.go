package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/p1m/productivity-suite/internal/model"
)

// TokenPair is what login and registration mint for a user.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresIn  time.Duration
	RefreshExpiresIn time.Duration
}

// TokenService is the single authorization gate for bearer credentials.
type TokenService struct {
	codec      *TokenCodec
	revoked    *RevocationRegistry
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenService(codec *TokenCodec, revoked *RevocationRegistry, accessTTL, refreshTTL time.Duration) (*TokenService, error) {
	if codec == nil || revoked == nil {
		return nil, fmt.Errorf("%w: token codec and revocation registry are required", ErrMisconfigured)
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, fmt.Errorf("%w: token ttl must be positive", ErrMisconfigured)
	}
	return &TokenService{
		codec:      codec,
		revoked:    revoked,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}, nil
}

func (s *TokenService) Issue(claims Claims, subject string, ttl time.Duration) (string, error) {
	return s.codec.Issue(claims, subject, ttl)
}

func (s *TokenService) IssuePair(user *model.User) (TokenPair, error) {
	base := Claims{ID: user.ID, Email: user.Email}

	access := base
	access.TokenType = TokenTypeAccess
	accessToken, err := s.codec.Issue(access, user.Email, s.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}

	refresh := base
	refresh.TokenType = TokenTypeRefresh
	refreshToken, err := s.codec.Issue(refresh, user.Email, s.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessExpiresIn:  s.accessTTL,
		RefreshExpiresIn: s.refreshTTL,
	}, nil
}

// Validate returns the claims of an acceptable token.
// Malformed tokens are reported as ErrTokenInvalid.
func (s *TokenService) Validate(token string) (*Claims, error) {
	claims, err := s.codec.Decode(token)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		if errors.Is(err, ErrMalformedToken) {
			return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
		}
		return nil, err
	}
	if s.revoked.IsRevoked(token) {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// ValidateAccess is Validate restricted to access tokens.
// Tokens minted without a type are treated as access tokens.
func (s *TokenService) ValidateAccess(token string) (*Claims, error) {
	claims, err := s.Validate(token)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != "" && claims.TokenType != TokenTypeAccess {
		return nil, fmt.Errorf("%w: not an access token", ErrTokenInvalid)
	}
	return claims, nil
}

func (s *TokenService) ValidateRefresh(token string) (*Claims, error) {
	claims, err := s.Validate(token)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeRefresh {
		return nil, fmt.Errorf("%w: not a refresh token", ErrTokenInvalid)
	}
	return claims, nil
}

// Revoke blocks token for the rest of its lifetime. Already expired tokens are
// accepted and not stored.
func (s *TokenService) Revoke(token string) error {
	claims, err := s.codec.DecodeIgnoringExpiry(token)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	if claims.ExpiresAt == nil {
		return fmt.Errorf("%w: missing expiry", ErrTokenInvalid)
	}

	expiresAt := claims.ExpiresAt.Time
	if !s.codec.now().Before(expiresAt) {
		return nil
	}
	s.revoked.Revoke(token, expiresAt)
	return nil
}

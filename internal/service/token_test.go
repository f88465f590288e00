package service

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p1m/productivity-suite/internal/model"
)

func newTestCodec(t *testing.T) *TokenCodec {
	t.Helper()
	codec, err := NewTokenCodec("super-secret", "1P1M")
	require.NoError(t, err)
	return codec
}

func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	svc, err := NewTokenService(newTestCodec(t), NewRevocationRegistry(), 15*time.Minute, 7*24*time.Hour)
	require.NoError(t, err)
	return svc
}

func TestNewTokenCodecRequiresSecret(t *testing.T) {
	_, err := NewTokenCodec("  ", "1P1M")
	require.ErrorIs(t, err, ErrMisconfigured)
}

func TestCodecRoundTrip(t *testing.T) {
	codec := newTestCodec(t)

	tests := []struct {
		name    string
		claims  Claims
		subject string
		ttl     time.Duration
	}{
		{name: "access", claims: Claims{ID: 1, Email: "alice@x.com", TokenType: TokenTypeAccess}, subject: "alice@x.com", ttl: 15 * time.Minute},
		{name: "refresh", claims: Claims{ID: 42, Email: "bob@x.com", TokenType: TokenTypeRefresh}, subject: "bob@x.com", ttl: 7 * 24 * time.Hour},
		{name: "untyped", claims: Claims{ID: 3, Email: "carol@x.com"}, subject: "carol@x.com", ttl: time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := codec.Issue(tt.claims, tt.subject, tt.ttl)
			require.NoError(t, err)

			got, err := codec.Decode(token)
			require.NoError(t, err)
			assert.Equal(t, tt.subject, got.Subject)
			assert.Equal(t, "1P1M", got.Issuer)
			assert.Equal(t, tt.claims.ID, got.ID)
			assert.Equal(t, tt.claims.Email, got.Email)
			assert.Equal(t, tt.claims.TokenType, got.TokenType)
			assert.NotEmpty(t, got.RegisteredClaims.ID)
			require.NotNil(t, got.ExpiresAt)
			assert.True(t, got.ExpiresAt.After(time.Now()))
		})
	}
}

func TestCodecIssuesDistinctTokens(t *testing.T) {
	codec := newTestCodec(t)
	claims := Claims{ID: 1, Email: "alice@x.com"}

	a, err := codec.Issue(claims, "alice@x.com", time.Minute)
	require.NoError(t, err)
	b, err := codec.Issue(claims, "alice@x.com", time.Minute)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestCodecDecodeFailures(t *testing.T) {
	codec := newTestCodec(t)

	other, err := NewTokenCodec("other-secret", "1P1M")
	require.NoError(t, err)
	foreignIssuer, err := NewTokenCodec("super-secret", "someone-else")
	require.NoError(t, err)

	wrongKey, err := other.Issue(Claims{ID: 1}, "alice@x.com", time.Minute)
	require.NoError(t, err)
	wrongIssuer, err := foreignIssuer.Issue(Claims{ID: 1}, "alice@x.com", time.Minute)
	require.NoError(t, err)
	emptySubject, err := codec.Issue(Claims{ID: 1}, "", time.Minute)
	require.NoError(t, err)
	expired, err := codec.Issue(Claims{ID: 1}, "alice@x.com", -time.Minute)
	require.NoError(t, err)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "alice@x.com", "iss": "1P1M"})
	none, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{name: "garbage", token: "not.a.jwt", want: ErrMalformedToken},
		{name: "empty", token: "", want: ErrMalformedToken},
		{name: "wrong-secret", token: wrongKey, want: ErrMalformedToken},
		{name: "alg-none", token: none, want: ErrMalformedToken},
		{name: "wrong-issuer", token: wrongIssuer, want: ErrTokenInvalid},
		{name: "empty-subject", token: emptySubject, want: ErrTokenInvalid},
		{name: "expired", token: expired, want: ErrTokenExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Decode(tt.token)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCodecTamperedPayload(t *testing.T) {
	codec := newTestCodec(t)
	token, err := codec.Issue(Claims{ID: 1, Email: "alice@x.com"}, "alice@x.com", time.Minute)
	require.NoError(t, err)

	forged, err := codec.Issue(Claims{ID: 2, Email: "mallory@x.com"}, "mallory@x.com", time.Minute)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	forgedParts := strings.Split(forged, ".")
	tampered := parts[0] + "." + forgedParts[1] + "." + parts[2]

	_, err = codec.Decode(tampered)
	require.ErrorIs(t, err, ErrMalformedToken)
}

func TestTokenServiceValidate(t *testing.T) {
	svc := newTestTokenService(t)
	user := &model.User{ID: 5, Email: "alice@x.com"}

	pair, err := svc.IssuePair(user)
	require.NoError(t, err)

	claims, err := svc.Validate(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice@x.com", claims.Subject)
	assert.Equal(t, int64(5), claims.ID)

	_, err = svc.ValidateAccess(pair.AccessToken)
	require.NoError(t, err)

	_, err = svc.ValidateAccess(pair.RefreshToken)
	require.ErrorIs(t, err, ErrTokenInvalid)

	_, err = svc.ValidateRefresh(pair.RefreshToken)
	require.NoError(t, err)

	_, err = svc.ValidateRefresh(pair.AccessToken)
	require.ErrorIs(t, err, ErrTokenInvalid)

	_, err = svc.Validate("garbage")
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenServiceValidateExpired(t *testing.T) {
	svc := newTestTokenService(t)
	token, err := svc.Issue(Claims{ID: 1, Email: "alice@x.com"}, "alice@x.com", -time.Second)
	require.NoError(t, err)

	_, err = svc.Validate(token)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenServiceRevokedAlwaysRejected(t *testing.T) {
	svc := newTestTokenService(t)
	pair, err := svc.IssuePair(&model.User{ID: 1, Email: "alice@x.com"})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, svc.Revoke(pair.AccessToken))
	}
	assert.Equal(t, 1, svc.revoked.Len())

	for i := 0; i < 3; i++ {
		_, err := svc.Validate(pair.AccessToken)
		require.ErrorIs(t, err, ErrTokenRevoked)
	}

	// the refresh token from the same login stays usable
	_, err = svc.ValidateRefresh(pair.RefreshToken)
	require.NoError(t, err)
}

func TestTokenServiceRevokeRejectsForeignToken(t *testing.T) {
	svc := newTestTokenService(t)
	require.ErrorIs(t, svc.Revoke("not.a.jwt"), ErrTokenInvalid)
	assert.Equal(t, 0, svc.revoked.Len())
}

func TestTokenServiceRevokeExpiredIsNoop(t *testing.T) {
	svc := newTestTokenService(t)
	token, err := svc.Issue(Claims{ID: 1}, "alice@x.com", -time.Minute)
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(token))
	assert.Equal(t, 0, svc.revoked.Len())
}

func TestRevocationRegistryEvictsAfterExpiry(t *testing.T) {
	reg := NewRevocationRegistry()
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return now }

	reg.Revoke("a", now.Add(time.Minute))
	reg.Revoke("b", now.Add(time.Hour))
	require.True(t, reg.IsRevoked("a"))
	require.Equal(t, 2, reg.Len())

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, reg.Prune(now))
	assert.False(t, reg.IsRevoked("a"))
	assert.True(t, reg.IsRevoked("b"))

	now = now.Add(2 * time.Hour)
	reg.IsRevoked("b")
	assert.Equal(t, 0, reg.Len())
}

func TestRevocationRegistryKeepsLatestExpiry(t *testing.T) {
	reg := NewRevocationRegistry()
	now := time.Now()

	reg.Revoke("a", now.Add(time.Hour))
	reg.Revoke("a", now.Add(time.Minute))

	assert.Equal(t, 0, reg.Prune(now.Add(10*time.Minute)))
	assert.True(t, reg.IsRevoked("a"))
}

func TestRevocationRegistryConcurrent(t *testing.T) {
	reg := NewRevocationRegistry()
	expiry := time.Now().Add(time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			reg.Revoke("shared", expiry)
		}()
		go func() {
			defer wg.Done()
			reg.IsRevoked("shared")
		}()
	}
	wg.Wait()

	assert.True(t, reg.IsRevoked("shared"))
	assert.Equal(t, 1, reg.Len())
}

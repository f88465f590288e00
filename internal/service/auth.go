package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/p1m/productivity-suite/internal/config"
	"github.com/p1m/productivity-suite/internal/model"
)

const (
	refreshCookieName = "productivity_suite_refresh"
	bearerPrefix      = "Bearer "
	mailTimeout       = 30 * time.Second
	usernameAttempts  = 10
)

// UserDirectory is the user store the auth flows read and write.
// Lookups return model.ErrUserNotFound. Saves return model.ErrUserExists for a
// taken email and model.ErrUsernameTaken for a taken username.
type UserDirectory interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	Save(ctx context.Context, user *model.User) error
	// ClearFirstLogin turns the first-login flag off and reports true only
	// to the caller that changed it.
	ClearFirstLogin(ctx context.Context, id int64) (bool, error)
}

type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Matches(plaintext, hash string) (bool, error)
}

// Mailer delivers account notifications. Delivery failures are the mailer's
// concern; the auth flows only log them.
type Mailer interface {
	SendVerifyEmail(ctx context.Context, user *model.User, verificationToken string) error
	SendPasswordOtp(ctx context.Context, user *model.User, otp string, expiresAt time.Time) error
}

type CookieConfig struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
	MaxAge   int
}

// Session is what a successful login or registration hands back.
type Session struct {
	User   model.UserDto
	Tokens TokenPair
}

// AuthService sequences the credential flows. It owns the revocation, OTP
// and pending-reset state for the lifetime of the process.
type AuthService struct {
	users         UserDirectory
	hasher        PasswordHasher
	mailer        Mailer
	tokens        *TokenService
	revoked       *RevocationRegistry
	otps          *OtpChallengeStore
	resets        *PasswordResetSession
	otpInResponse bool
	cookieCfg     CookieConfig
	log           zerolog.Logger
	mail          sync.WaitGroup
}

func NewAuthService(users UserDirectory, hasher PasswordHasher, mailer Mailer, cfg config.AuthConfig, log zerolog.Logger) (*AuthService, error) {
	if users == nil || hasher == nil || mailer == nil {
		return nil, fmt.Errorf("%w: user directory, hasher and mailer are required", ErrMisconfigured)
	}

	codec, err := NewTokenCodec(cfg.JWTSecret, cfg.Issuer)
	if err != nil {
		return nil, err
	}

	revoked := NewRevocationRegistry()
	tokens, err := NewTokenService(codec, revoked, cfg.AccessTTL, cfg.RefreshTTL)
	if err != nil {
		return nil, err
	}

	if cfg.OTPTTL <= 0 || cfg.ResetTTL <= 0 {
		return nil, fmt.Errorf("%w: otp and reset ttl must be positive", ErrMisconfigured)
	}

	cookieSecure, err := parseBool(cfg.CookieSecure, true)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid AUTH_COOKIE_SECURE", ErrMisconfigured)
	}

	cookieSameSite, err := parseSameSite(cfg.CookieSameSite)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid AUTH_COOKIE_SAMESITE", ErrMisconfigured)
	}

	if cookieSameSite == http.SameSiteNoneMode && !cookieSecure {
		return nil, fmt.Errorf("%w: SameSite=None requires Secure cookie", ErrMisconfigured)
	}

	cookiePath := cfg.CookiePath
	if strings.TrimSpace(cookiePath) == "" {
		cookiePath = "/"
	}

	return &AuthService{
		users:         users,
		hasher:        hasher,
		mailer:        mailer,
		tokens:        tokens,
		revoked:       revoked,
		otps:          NewOtpChallengeStore(cfg.OTPTTL),
		resets:        NewPasswordResetSession(cfg.ResetTTL),
		otpInResponse: cfg.OTPInResponse,
		cookieCfg: CookieConfig{
			Name:     refreshCookieName,
			Path:     cookiePath,
			Domain:   cfg.CookieDomain,
			Secure:   cookieSecure,
			SameSite: cookieSameSite,
			MaxAge:   int(cfg.RefreshTTL.Seconds()),
		},
		log: log,
	}, nil
}

func (s *AuthService) Tokens() *TokenService {
	return s.tokens
}

func (s *AuthService) CookieConfig() CookieConfig {
	return s.cookieCfg
}

func (s *AuthService) Login(ctx context.Context, identifier, password string) (Outcome[Session], error) {
	identifier = strings.TrimSpace(identifier)
	s.log.Info().Str("identifier", identifier).Msg("authenticating user")

	user, err := s.findByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			s.log.Warn().Str("identifier", identifier).Msg("user not found")
			return failed[Session](ErrInvalidCredentials, "Invalid email/username or password"), nil
		}
		return Outcome[Session]{}, err
	}

	ok, err := s.hasher.Matches(password, user.PasswordHash)
	if err != nil {
		return Outcome[Session]{}, err
	}
	if !ok {
		s.log.Warn().Str("identifier", identifier).Msg("invalid password")
		return failed[Session](ErrInvalidCredentials, "Invalid email/username or password"), nil
	}

	if !user.Status {
		s.log.Warn().Str("identifier", identifier).Msg("user is inactive")
		return failed[Session](ErrAccountLocked, "Your account has been locked. Please contact your administrator."), nil
	}

	firstTime := false
	if user.LoginFirstTime {
		firstTime, err = s.users.ClearFirstLogin(ctx, user.ID)
		if err != nil {
			return Outcome[Session]{}, fmt.Errorf("persist first login: %w", err)
		}
		user.LoginFirstTime = false
		if firstTime {
			s.log.Info().Str("email", user.Email).Msg("user logged in for the first time")
		}
	}

	tokens, err := s.tokens.IssuePair(user)
	if err != nil {
		return Outcome[Session]{}, err
	}

	dto := user.ToDto()
	dto.LoginFirstTime = firstTime

	s.log.Info().Str("email", user.Email).Msg("user authenticated")
	return succeeded(http.StatusOK, "You are successfully logged in!", Session{User: dto, Tokens: tokens}), nil
}

// Logout revokes the bearer token and, when it belongs to the same user, the refresh token.
func (s *AuthService) Logout(ctx context.Context, authHeader, refreshToken string) error {
	token, err := BearerToken(authHeader)
	if err != nil {
		return err
	}

	claims, err := s.tokens.ValidateAccess(token)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	user, err := s.users.FindByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return fmt.Errorf("%w: user not found, cannot proceed with logout", ErrUnauthorized)
		}
		return err
	}

	if err := s.tokens.Revoke(token); err != nil {
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	if refreshToken = strings.TrimSpace(refreshToken); refreshToken != "" {
		if refreshClaims, err := s.tokens.ValidateRefresh(refreshToken); err == nil && refreshClaims.Subject == user.Email {
			_ = s.tokens.Revoke(refreshToken)
		}
	}

	s.log.Info().Str("email", user.Email).Msg("user logged out")
	return nil
}

func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (Outcome[Session], error) {
	email := normalizeEmail(req.Email)
	s.log.Info().Str("email", email).Msg("registering user")

	_, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		s.log.Warn().Str("email", email).Msg("email already exists")
		return failed[Session](ErrDuplicateIdentity, "Email is already in use"), nil
	case !errors.Is(err, model.ErrUserNotFound):
		return Outcome[Session]{}, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return Outcome[Session]{}, err
	}

	user := &model.User{
		Name:           strings.TrimSpace(req.Name),
		Email:          email,
		PasswordHash:   hash,
		EmailVerified:  false,
		Status:         true,
		Gender:         model.GenderFromInt(req.Gender),
		LoginFirstTime: true,
	}
	if err := s.insertWithUsername(ctx, user, usernameFromEmail(email)); err != nil {
		if errors.Is(err, model.ErrUserExists) {
			return failed[Session](ErrDuplicateIdentity, "Email is already in use"), nil
		}
		return Outcome[Session]{}, err
	}

	tokens, err := s.tokens.IssuePair(user)
	if err != nil {
		return Outcome[Session]{}, err
	}

	verificationToken := uuid.NewString()
	s.dispatch(ctx, "verify_email", user.Email, func(ctx context.Context) error {
		return s.mailer.SendVerifyEmail(ctx, user, verificationToken)
	})

	s.log.Info().Str("email", email).Int64("user_id", user.ID).Msg("user registered")
	return succeeded(http.StatusCreated, "You have registered successfully.", Session{User: user.ToDto(), Tokens: tokens}), nil
}

func (s *AuthService) CurrentUser(ctx context.Context, claims *Claims) (Outcome[model.CurrentUserData], error) {
	if claims == nil {
		return Outcome[model.CurrentUserData]{}, ErrUnauthorized
	}
	user, err := s.users.FindByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return Outcome[model.CurrentUserData]{}, fmt.Errorf("%w: user not found", ErrUnauthorized)
		}
		return Outcome[model.CurrentUserData]{}, err
	}
	return succeeded(http.StatusOK, "User retrieved successfully", model.CurrentUserData{User: user.ToDto()}), nil
}

func (s *AuthService) RequestPasswordChange(ctx context.Context, email string) (Outcome[model.OtpData], error) {
	email = normalizeEmail(email)
	s.log.Info().Str("email", email).Msg("initiating password reset")

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			s.log.Warn().Str("email", email).Msg("no user found for password reset")
			return Outcome[model.OtpData]{}, fmt.Errorf("%w: no user found with this email", ErrUnauthorized)
		}
		return Outcome[model.OtpData]{}, err
	}

	code, expiresAt, err := s.otps.Issue(user.Email)
	if err != nil {
		return Outcome[model.OtpData]{}, err
	}

	s.dispatch(ctx, "password_otp", user.Email, func(ctx context.Context) error {
		return s.mailer.SendPasswordOtp(ctx, user, code, expiresAt)
	})

	data := model.OtpData{ExpiresAt: expiresAt}
	if s.otpInResponse {
		data.Otp = code
	}
	return succeeded(http.StatusOK, "OTP has been sent to your email", data), nil
}

func (s *AuthService) VerifyOtp(ctx context.Context, code string) (Outcome[model.VerifyOtpData], error) {
	identity, err := s.otps.Redeem(strings.TrimSpace(code))
	if err != nil {
		s.log.Warn().Err(err).Msg("invalid or expired otp")
		return Outcome[model.VerifyOtpData]{}, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	resetToken, expiresAt, err := s.resets.Authorize(identity)
	if err != nil {
		return Outcome[model.VerifyOtpData]{}, err
	}

	s.log.Info().Str("email", identity).Msg("otp verified")
	return succeeded(http.StatusOK, "OTP verified successfully", model.VerifyOtpData{
		ResetToken: resetToken,
		ExpiresAt:  expiresAt,
	}), nil
}

// ResetPassword sets a new password for the identity bound to resetToken.
// A confirmation mismatch is rejected before the authorization is consumed.
func (s *AuthService) ResetPassword(ctx context.Context, req model.ResetPasswordRequest) (Outcome[bool], error) {
	if !s.resets.Pending(req.ResetToken) {
		return Outcome[bool]{}, fmt.Errorf("%w: %w", ErrUnauthorized, ErrResetNotAuthorized)
	}
	if req.NewPassword != req.ConfirmPassword {
		return Outcome[bool]{}, fmt.Errorf("%w: passwords do not match", ErrUnauthorized)
	}

	identity, err := s.resets.Consume(req.ResetToken)
	if err != nil {
		return Outcome[bool]{}, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	user, err := s.users.FindByEmail(ctx, identity)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return Outcome[bool]{}, fmt.Errorf("%w: user not found", ErrUnauthorized)
		}
		return Outcome[bool]{}, err
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return Outcome[bool]{}, err
	}
	user.PasswordHash = hash
	if err := s.users.Save(ctx, user); err != nil {
		return Outcome[bool]{}, err
	}

	s.log.Info().Str("email", identity).Msg("password reset")
	return succeeded(http.StatusOK, "Password reset successfully", true), nil
}

// Refresh rotates a refresh token into a new token pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (Outcome[Session], error) {
	if strings.TrimSpace(refreshToken) == "" {
		return Outcome[Session]{}, ErrUnauthorized
	}

	claims, err := s.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		return Outcome[Session]{}, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	user, err := s.users.FindByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return Outcome[Session]{}, fmt.Errorf("%w: user not found", ErrUnauthorized)
		}
		return Outcome[Session]{}, err
	}
	if !user.Status {
		return failed[Session](ErrAccountLocked, "Your account has been locked. Please contact your administrator."), nil
	}

	if err := s.tokens.Revoke(refreshToken); err != nil {
		return Outcome[Session]{}, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	tokens, err := s.tokens.IssuePair(user)
	if err != nil {
		return Outcome[Session]{}, err
	}
	return succeeded(http.StatusOK, "Token refreshed", Session{User: user.ToDto(), Tokens: tokens}), nil
}

// RunJanitor prunes expired revocations, OTP challenges and reset
// authorizations until ctx is done.
func (s *AuthService) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.prune(now)
		}
	}
}

func (s *AuthService) prune(now time.Time) {
	revoked := s.revoked.Prune(now)
	otps := s.otps.Prune(now)
	resets := s.resets.Prune(now)
	if revoked+otps+resets > 0 {
		s.log.Debug().
			Int("revoked", revoked).
			Int("otps", otps).
			Int("resets", resets).
			Msg("pruned expired auth state")
	}
}

// Drain waits for in-flight notification mails.
func (s *AuthService) Drain() {
	s.mail.Wait()
}

func (s *AuthService) dispatch(ctx context.Context, kind, email string, send func(context.Context) error) {
	s.mail.Add(1)
	go func() {
		defer s.mail.Done()

		mailCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), mailTimeout)
		defer cancel()

		if err := send(mailCtx); err != nil {
			s.log.Error().Err(err).Str("kind", kind).Str("email", email).Msg("failed to send mail")
		}
	}()
}

func (s *AuthService) findByIdentifier(ctx context.Context, identifier string) (*model.User, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(identifier))
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, model.ErrUserNotFound) {
		return nil, err
	}
	return s.users.FindByUsername(ctx, identifier)
}

// insertWithUsername saves a new user under the first free username derived
// from base: base, base2 ... base9, then base with a random suffix.
func (s *AuthService) insertWithUsername(ctx context.Context, user *model.User, base string) error {
	for attempt := 0; attempt < usernameAttempts; attempt++ {
		candidate := usernameCandidate(base, attempt)
		_, err := s.users.FindByUsername(ctx, candidate)
		if err == nil {
			continue
		}
		if !errors.Is(err, model.ErrUserNotFound) {
			return err
		}

		user.Username = candidate
		err = s.users.Save(ctx, user)
		if errors.Is(err, model.ErrUsernameTaken) {
			continue
		}
		return err
	}
	return fmt.Errorf("register %s: no free username for %q", user.Email, base)
}

func usernameCandidate(base string, attempt int) string {
	switch {
	case attempt == 0:
		return base
	case attempt < usernameAttempts-1:
		return base + strconv.Itoa(attempt+1)
	default:
		return base + "-" + uuid.NewString()[:8]
	}
}

// BearerToken extracts the token of an "Authorization: Bearer <token>" header.
func BearerToken(header string) (string, error) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", fmt.Errorf("%w: invalid or missing authorization tokens", ErrUnauthorized)
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	if token == "" {
		return "", fmt.Errorf("%w: invalid or missing authorization tokens", ErrUnauthorized)
	}
	return token, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func usernameFromEmail(email string) string {
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return email
}

func parseBool(value string, fallback bool) (bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, err
	}
	return parsed, nil
}

func parseSameSite(value string) (http.SameSite, error) {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return http.SameSiteLaxMode, nil
	}
	switch value {
	case "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, errors.New("invalid same-site mode")
	}
}

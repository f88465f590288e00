package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/p1m/productivity-suite/internal/logger"
	"github.com/p1m/productivity-suite/internal/model"
	"github.com/p1m/productivity-suite/internal/service"
)

type AuthHandler struct {
	svc *service.AuthService
	log zerolog.Logger
}

func NewAuthHandler(svc *service.AuthService, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, log: logger.Component(log, "auth_handler")}
}

// Login godoc
// @Summary Login
// @Description Accepts an email or a username in the email field.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.LoginRequest true "Credentials"
// @Success 200 {object} model.ApiResponse{data=model.LoginData}
// @Failure 401 {object} model.ApiResponse
// @Failure 422 {object} model.ApiResponse
// @Failure 500 {object} model.ApiResponse
// @Router /productivity-suite/api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if !h.bind(c, &req) {
		return
	}

	out, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.writeAuthError(c, err)
		return
	}
	if !out.OK() {
		writeFailure(c, out.Status, out.Message, nil)
		return
	}

	h.setRefreshCookie(c, out.Data.Tokens.RefreshToken)
	writeSuccess(c, out.Status, out.Message, model.LoginData{
		CurrentUser: out.Data.User,
		AccessToken: out.Data.Tokens.AccessToken,
	})
}

// Logout godoc
// @Summary Logout
// @Description Revokes the bearer token and the refresh cookie, then clears the cookie.
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.ApiResponse{data=bool}
// @Failure 401 {object} model.ApiResponse
// @Router /productivity-suite/api/v1/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	refreshToken, _ := c.Cookie(h.svc.CookieConfig().Name)
	if err := h.svc.Logout(c.Request.Context(), c.GetHeader("Authorization"), refreshToken); err != nil {
		h.writeAuthError(c, err)
		return
	}

	h.clearRefreshCookie(c)
	writeSuccess(c, http.StatusOK, "Logout successful", true)
}

// Register godoc
// @Summary Register a new user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.RegisterRequest true "New account"
// @Success 201 {object} model.ApiResponse{data=model.RegisterData}
// @Failure 409 {object} model.ApiResponse
// @Failure 422 {object} model.ApiResponse{data=[]model.FieldError}
// @Failure 500 {object} model.ApiResponse
// @Router /productivity-suite/api/v1/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if !h.bind(c, &req) {
		return
	}

	out, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		h.writeAuthError(c, err)
		return
	}
	if !out.OK() {
		writeFailure(c, out.Status, out.Message, nil)
		return
	}

	h.setRefreshCookie(c, out.Data.Tokens.RefreshToken)
	writeSuccess(c, out.Status, out.Message, model.RegisterData{
		User:        out.Data.User,
		AccessToken: out.Data.Tokens.AccessToken,
	})
}

// Me godoc
// @Summary Get current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.ApiResponse{data=model.CurrentUserData}
// @Failure 401 {object} model.ApiResponse
// @Router /productivity-suite/api/v1/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims := GetAuthClaims(c)
	if claims == nil {
		writeFailure(c, http.StatusUnauthorized, "Unauthorized", "You are not authorized to access this resource.")
		return
	}

	out, err := h.svc.CurrentUser(c.Request.Context(), claims)
	if err != nil {
		h.writeAuthError(c, err)
		return
	}
	writeSuccess(c, out.Status, out.Message, out.Data)
}

// ChangePassword godoc
// @Summary Start a password change
// @Description Issues a 6-digit OTP for the account and mails it.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.ChangePasswordRequest true "Account email"
// @Success 200 {object} model.ApiResponse{data=model.OtpData}
// @Failure 401 {object} model.ApiResponse
// @Failure 422 {object} model.ApiResponse
// @Router /productivity-suite/api/v1/auth/change-password [post]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req model.ChangePasswordRequest
	if !h.bind(c, &req) {
		return
	}

	out, err := h.svc.RequestPasswordChange(c.Request.Context(), req.Email)
	if err != nil {
		h.writeAuthError(c, err)
		return
	}
	writeSuccess(c, out.Status, out.Message, out.Data)
}

// VerifyOtp godoc
// @Summary Verify a password change OTP
// @Description Redeems the OTP and returns a short-lived reset token.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.VerifyOtpRequest true "OTP"
// @Success 200 {object} model.ApiResponse{data=model.VerifyOtpData}
// @Failure 401 {object} model.ApiResponse
// @Failure 422 {object} model.ApiResponse
// @Router /productivity-suite/api/v1/auth/verify-otp [post]
func (h *AuthHandler) VerifyOtp(c *gin.Context) {
	var req model.VerifyOtpRequest
	if !h.bind(c, &req) {
		return
	}

	out, err := h.svc.VerifyOtp(c.Request.Context(), req.Otp)
	if err != nil {
		h.writeAuthError(c, err)
		return
	}
	writeSuccess(c, out.Status, out.Message, out.Data)
}

// ResetPassword godoc
// @Summary Reset the password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.ResetPasswordRequest true "Reset token and new password"
// @Success 200 {object} model.ApiResponse{data=bool}
// @Failure 401 {object} model.ApiResponse
// @Failure 422 {object} model.ApiResponse
// @Router /productivity-suite/api/v1/auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req model.ResetPasswordRequest
	if !h.bind(c, &req) {
		return
	}

	out, err := h.svc.ResetPassword(c.Request.Context(), req)
	if err != nil {
		h.writeAuthError(c, err)
		return
	}
	writeSuccess(c, out.Status, out.Message, out.Data)
}

// Refresh godoc
// @Summary Refresh access token
// @Description Uses the refresh token cookie (productivity_suite_refresh) and rotates it.
// @Tags auth
// @Produce json
// @Success 200 {object} model.ApiResponse{data=model.RefreshData}
// @Failure 401 {object} model.ApiResponse
// @Router /productivity-suite/api/v1/auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	refreshToken, _ := c.Cookie(h.svc.CookieConfig().Name)
	out, err := h.svc.Refresh(c.Request.Context(), refreshToken)
	if err != nil {
		h.clearRefreshCookie(c)
		h.writeAuthError(c, err)
		return
	}
	if !out.OK() {
		h.clearRefreshCookie(c)
		writeFailure(c, out.Status, out.Message, nil)
		return
	}

	h.setRefreshCookie(c, out.Data.Tokens.RefreshToken)
	writeSuccess(c, out.Status, out.Message, model.RefreshData{
		AccessToken: out.Data.Tokens.AccessToken,
		ExpiresIn:   int64(out.Data.Tokens.AccessExpiresIn.Seconds()),
	})
}

func (h *AuthHandler) bind(c *gin.Context, req any) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}
	if fields, ok := fieldErrors(err); ok {
		writeFailure(c, http.StatusUnprocessableEntity, "Validation failed", fields)
		return false
	}
	writeFailure(c, http.StatusBadRequest, "Malformed request body", nil)
	return false
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, token string) {
	cfg := h.svc.CookieConfig()
	c.SetSameSite(cfg.SameSite)
	c.SetCookie(cfg.Name, token, cfg.MaxAge, cfg.Path, cfg.Domain, cfg.Secure, true)
}

func (h *AuthHandler) clearRefreshCookie(c *gin.Context) {
	cfg := h.svc.CookieConfig()
	c.SetSameSite(cfg.SameSite)
	c.SetCookie(cfg.Name, "", -1, cfg.Path, cfg.Domain, cfg.Secure, true)
}

func (h *AuthHandler) writeAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTokenExpired):
		writeFailure(c, http.StatusGone, "Token has expired", "Token Expired")
	case errors.Is(err, service.ErrTokenRevoked):
		writeFailure(c, http.StatusUnauthorized, "Token has been revoked", "Unauthorized")
	case errors.Is(err, service.ErrTokenInvalid), errors.Is(err, service.ErrMalformedToken):
		writeFailure(c, http.StatusUnauthorized, "Invalid token", "Unauthorized")
	case errors.Is(err, service.ErrOtpExpired):
		writeFailure(c, http.StatusUnauthorized, "OTP has expired", "Unauthorized")
	case errors.Is(err, service.ErrOtpInvalid):
		writeFailure(c, http.StatusUnauthorized, "Invalid OTP", "Unauthorized")
	case errors.Is(err, service.ErrResetNotAuthorized):
		writeFailure(c, http.StatusUnauthorized, "OTP verification is required before resetting the password", "Unauthorized")
	case errors.Is(err, service.ErrUnauthorized):
		writeFailure(c, http.StatusUnauthorized, unauthorizedDetail(err), "Unauthorized")
	default:
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		writeFailure(c, http.StatusInternalServerError, "An unexpected error occurred.", nil)
	}
}

// unauthorizedDetail turns "unauthorized: passwords do not match" into "Passwords do not match".
func unauthorizedDetail(err error) string {
	msg := strings.TrimPrefix(err.Error(), service.ErrUnauthorized.Error())
	msg = strings.TrimSpace(strings.TrimPrefix(msg, ":"))
	if msg == "" {
		return "Unauthorized"
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}

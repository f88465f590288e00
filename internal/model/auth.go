package model

import "time"

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,name"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,password"`
	Gender   int    `json:"gender" binding:"required,gender"`
}

type ChangePasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type VerifyOtpRequest struct {
	Otp string `json:"otp" binding:"required,otp"`
}

type ResetPasswordRequest struct {
	ResetToken      string `json:"resetToken" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,password"`
	ConfirmPassword string `json:"confirmPassword" binding:"required,password"`
}

type LoginData struct {
	CurrentUser UserDto `json:"currentUser"`
	AccessToken string  `json:"accessToken"`
}

type RegisterData struct {
	User        UserDto `json:"user"`
	AccessToken string  `json:"accessToken"`
}

type CurrentUserData struct {
	User UserDto `json:"user"`
}

type OtpData struct {
	Otp       string    `json:"otp,omitempty"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type VerifyOtpData struct {
	ResetToken string    `json:"resetToken"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

type RefreshData struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int64  `json:"expiresIn"`
}

// AuthUser is the identity recovered from a validated bearer token.
type AuthUser struct {
	ID    int64
	Email string
}

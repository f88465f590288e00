package service

import (
	"errors"
	"net/http"
)

var (
	ErrTokenInvalid       = errors.New("token invalid")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenRevoked       = errors.New("token revoked")
	ErrMalformedToken     = errors.New("malformed token")
	ErrOtpInvalid         = errors.New("otp invalid")
	ErrOtpExpired         = errors.New("otp expired")
	ErrResetNotAuthorized = errors.New("password reset not authorized")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account locked")
	ErrDuplicateIdentity  = errors.New("duplicate identity")
	ErrMisconfigured      = errors.New("auth config invalid")
)

// Outcome carries the result of a flow whose failures are expected business
// outcomes. Failure is nil on success.
type Outcome[T any] struct {
	Data    T
	Status  int
	Message string
	Failure error
}

func (o Outcome[T]) OK() bool {
	return o.Failure == nil
}

func succeeded[T any](status int, message string, data T) Outcome[T] {
	return Outcome[T]{Data: data, Status: status, Message: message}
}

func failed[T any](failure error, message string) Outcome[T] {
	return Outcome[T]{Status: failureStatus(failure), Message: message, Failure: failure}
}

func failureStatus(err error) int {
	switch {
	case errors.Is(err, ErrDuplicateIdentity):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrAccountLocked):
		return http.StatusUnauthorized
	default:
		return http.StatusBadRequest
	}
}

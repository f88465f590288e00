package handler

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/p1m/productivity-suite/internal/model"
)

const passwordSpecials = "@$!%*?&"

var (
	otpPattern   = regexp.MustCompile(`^\d{6}$`)
	registerOnce sync.Once
	registerErr  error
)

// RegisterValidators installs the custom binding tags on gin's validator.
// Safe to call more than once.
func RegisterValidators() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = errors.New("gin validator engine is not go-playground/validator")
			return
		}

		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})

		for tag, fn := range map[string]validator.Func{
			"name":     validateName,
			"password": validatePassword,
			"gender":   validateGender,
			"otp":      validateOtp,
		} {
			if err := v.RegisterValidation(tag, fn); err != nil {
				registerErr = err
				return
			}
		}
	})
	return registerErr
}

func validateName(fl validator.FieldLevel) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(fl.Field().String()))
	return n >= 3 && n <= 50
}

func validatePassword(fl validator.FieldLevel) bool {
	return passwordStrong(fl.Field().String())
}

func validateGender(fl validator.FieldLevel) bool {
	return model.GenderFromInt(int(fl.Field().Int())).Valid()
}

func validateOtp(fl validator.FieldLevel) bool {
	return otpPattern.MatchString(fl.Field().String())
}

func passwordStrong(password string) bool {
	if utf8.RuneCountInString(password) < 8 {
		return false
	}
	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}
	return upper && lower && digit && special
}

// fieldErrors flattens binding failures into the 422 payload.
// ok is false when err is not a validation error (for example malformed JSON).
func fieldErrors(err error) ([]model.FieldError, bool) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, false
	}
	out := make([]model.FieldError, 0, len(verrs))
	for _, e := range verrs {
		out = append(out, model.FieldError{Field: e.Field(), Message: validationMessage(e)})
	}
	return out, true
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		if e.Field() == "otp" {
			return "OTP is required."
		}
		return e.Field() + " is required"
	case "email":
		return "Email should be valid."
	case "name":
		return "Name must be between 3 and 50 characters."
	case "password":
		if s, ok := e.Value().(string); ok && utf8.RuneCountInString(s) < 8 {
			return e.Field() + " must be at least 8 characters long"
		}
		return e.Field() + " must include uppercase, lowercase, number, and special character"
	case "gender":
		return "Gender must be a number between 1 (Male), 2 (Female), or 3 (Other)."
	case "otp":
		return "OTP must be exactly 6 digits."
	default:
		return e.Field() + " is invalid"
	}
}

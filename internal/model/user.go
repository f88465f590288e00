package model

import (
	"errors"
	"time"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrUserExists    = errors.New("user already exists")
	ErrUsernameTaken = errors.New("username already taken")
)

type User struct {
	ID             int64
	Name           string
	Username       string
	Email          string
	PasswordHash   string
	EmailVerified  bool
	Status         bool
	Gender         Gender
	LoginFirstTime bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      *time.Time
}

type UserDto struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	Status         bool   `json:"status"`
	GenderID       int    `json:"genderId"`
	GenderName     string `json:"genderName"`
	LoginFirstTime bool   `json:"loginFirstTime"`
	CreatedAt      string `json:"createdAt"`
	UpdatedAt      string `json:"updatedAt"`
}

// ToDto projects a user record for API responses. Password material never leaves the service.
func (u *User) ToDto() UserDto {
	dto := UserDto{
		ID:             u.ID,
		Name:           u.Name,
		Username:       u.Username,
		Email:          u.Email,
		Status:         u.Status,
		GenderID:       u.Gender.Value(),
		GenderName:     u.Gender.Name(),
		LoginFirstTime: u.LoginFirstTime,
	}
	if !u.CreatedAt.IsZero() {
		dto.CreatedAt = u.CreatedAt.Format(time.RFC3339)
	}
	if !u.UpdatedAt.IsZero() {
		dto.UpdatedAt = u.UpdatedAt.Format(time.RFC3339)
	}
	return dto
}

type Gender int

const (
	GenderInvalid Gender = 0
	GenderMale    Gender = 1
	GenderFemale  Gender = 2
	GenderOther   Gender = 3
)

// GenderFromInt maps unknown codes to GenderInvalid.
func GenderFromInt(v int) Gender {
	switch g := Gender(v); g {
	case GenderMale, GenderFemale, GenderOther:
		return g
	default:
		return GenderInvalid
	}
}

func (g Gender) Value() int {
	return int(GenderFromInt(int(g)))
}

func (g Gender) Name() string {
	switch GenderFromInt(int(g)) {
	case GenderMale:
		return "Male"
	case GenderFemale:
		return "Female"
	case GenderOther:
		return "Other"
	default:
		return "Invalid"
	}
}

func (g Gender) Valid() bool {
	return GenderFromInt(int(g)) != GenderInvalid
}

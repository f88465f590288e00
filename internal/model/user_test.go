package model

import (
	"testing"
	"time"
)

func TestGenderFromInt(t *testing.T) {
	tests := []struct {
		in   int
		want Gender
		name string
	}{
		{in: 1, want: GenderMale, name: "Male"},
		{in: 2, want: GenderFemale, name: "Female"},
		{in: 3, want: GenderOther, name: "Other"},
		{in: 0, want: GenderInvalid, name: "Invalid"},
		{in: 9, want: GenderInvalid, name: "Invalid"},
		{in: -1, want: GenderInvalid, name: "Invalid"},
	}

	for _, tt := range tests {
		got := GenderFromInt(tt.in)
		if got != tt.want {
			t.Fatalf("GenderFromInt(%d) = %v, want %v", tt.in, got, tt.want)
		}
		if got.Name() != tt.name {
			t.Fatalf("GenderFromInt(%d).Name() = %q, want %q", tt.in, got.Name(), tt.name)
		}
	}
}

func TestUserToDto(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	u := &User{
		ID:             7,
		Name:           "Alice",
		Username:       "alice",
		Email:          "alice@x.com",
		PasswordHash:   "hash",
		Status:         true,
		Gender:         GenderFemale,
		LoginFirstTime: true,
		CreatedAt:      created,
	}

	dto := u.ToDto()
	if dto.ID != 7 || dto.Email != "alice@x.com" || dto.GenderID != 2 || dto.GenderName != "Female" || dto.Username != "alice" {
		t.Fatalf("unexpected dto: %+v", dto)
	}
	if dto.CreatedAt != "2026-01-02T03:04:05Z" {
		t.Fatalf("createdAt = %q", dto.CreatedAt)
	}
	if dto.UpdatedAt != "" {
		t.Fatalf("expected empty updatedAt, got %q", dto.UpdatedAt)
	}
}

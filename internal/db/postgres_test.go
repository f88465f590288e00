package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p1m/productivity-suite/internal/config"
	"github.com/p1m/productivity-suite/internal/model"
)

func TestBuildPostgresURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.PostgresConfig
		want string
	}{
		{
			name: "database url wins",
			cfg:  config.PostgresConfig{DatabaseURL: "postgres://u:p@db:5432/app", User: "ignored", Database: "ignored"},
			want: "postgres://u:p@db:5432/app",
		},
		{
			name: "parts with password",
			cfg:  config.PostgresConfig{Host: "db", Port: "6543", User: "suite", Password: "s3cret", Database: "auth", SSLMode: "require"},
			want: "postgres://suite:s3cret@db:6543/auth?sslmode=require",
		},
		{
			name: "defaults",
			cfg:  config.PostgresConfig{User: "suite", Database: "auth"},
			want: "postgres://suite@localhost:5432/auth?sslmode=disable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildPostgresURL(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildPostgresURLMissing(t *testing.T) {
	_, err := buildPostgresURL(config.PostgresConfig{Host: "db"})
	require.ErrorIs(t, err, ErrMissingDSN)
}

func TestErrorClassifiers(t *testing.T) {
	assert.True(t, IsNoRows(pgx.ErrNoRows))
	assert.True(t, IsNoRows(fmt.Errorf("scan: %w", pgx.ErrNoRows)))
	assert.False(t, IsNoRows(errors.New("boom")))

	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
}

func TestUniqueViolationError(t *testing.T) {
	username := &pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"}
	email := &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}

	assert.ErrorIs(t, uniqueViolationError(username), model.ErrUsernameTaken)
	assert.ErrorIs(t, uniqueViolationError(fmt.Errorf("insert: %w", username)), model.ErrUsernameTaken)
	assert.ErrorIs(t, uniqueViolationError(email), model.ErrUserExists)
}

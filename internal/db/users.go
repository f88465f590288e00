package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/p1m/productivity-suite/internal/model"
)

const usernameConstraint = "users_username_key"

const userColumns = `
	id, name, username, email, password_hash, email_verified, status,
	gender, login_first_time, created_at, updated_at, deleted_at
`

func (db *Postgres) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT` + userColumns + `FROM users WHERE email = $1 AND deleted_at IS NULL`
	return scanUser(db.Pool.QueryRow(ctx, query, email))
}

func (db *Postgres) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	query := `SELECT` + userColumns + `FROM users WHERE username = $1 AND deleted_at IS NULL`
	return scanUser(db.Pool.QueryRow(ctx, query, username))
}

// ClearFirstLogin flips login_first_time off and reports whether this call did it.
func (db *Postgres) ClearFirstLogin(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE users
		SET login_first_time = FALSE, updated_at = NOW()
		WHERE id = $1 AND login_first_time AND deleted_at IS NULL
		RETURNING TRUE
	`
	var cleared bool
	if err := db.Pool.QueryRow(ctx, query, id).Scan(&cleared); err != nil {
		if IsNoRows(err) {
			return false, nil
		}
		return false, fmt.Errorf("clear first login %d: %w", id, err)
	}
	return cleared, nil
}

// Save inserts users without an ID and updates the rest. The user's ID and
// timestamps are refreshed from the row written.
func (db *Postgres) Save(ctx context.Context, user *model.User) error {
	if user.ID == 0 {
		return db.insertUser(ctx, user)
	}
	return db.updateUser(ctx, user)
}

func (db *Postgres) insertUser(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (
			name, username, email, password_hash, email_verified, status,
			gender, login_first_time, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	err := db.Pool.QueryRow(ctx, query,
		user.Name,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.EmailVerified,
		user.Status,
		user.Gender.Value(),
		user.LoginFirstTime,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return uniqueViolationError(err)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (db *Postgres) updateUser(ctx context.Context, user *model.User) error {
	query := `
		UPDATE users
		SET name = $2,
			username = $3,
			email = $4,
			password_hash = $5,
			email_verified = $6,
			status = $7,
			gender = $8,
			login_first_time = $9,
			updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING updated_at
	`
	err := db.Pool.QueryRow(ctx, query,
		user.ID,
		user.Name,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.EmailVerified,
		user.Status,
		user.Gender.Value(),
		user.LoginFirstTime,
	).Scan(&user.UpdatedAt)
	if err != nil {
		if IsNoRows(err) {
			return model.ErrUserNotFound
		}
		if IsUniqueViolation(err) {
			return uniqueViolationError(err)
		}
		return fmt.Errorf("update user %d: %w", user.ID, err)
	}
	return nil
}

func scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	var gender int16
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.EmailVerified,
		&user.Status,
		&gender,
		&user.LoginFirstTime,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.DeletedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}
	user.Gender = model.GenderFromInt(int(gender))
	return &user, nil
}

func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// uniqueViolationError tells a taken username apart from a taken email.
func uniqueViolationError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.ConstraintName == usernameConstraint {
		return model.ErrUsernameTaken
	}
	return model.ErrUserExists
}

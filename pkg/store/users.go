package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/benchtop-io/benchtop/pkg/auth"
)

// CreateUser inserts a new user and fills in its id and creation
// timestamp. The password must already be hashed by the caller.
func (s *Session) CreateUser(ctx context.Context, user *auth.User) error {
	user.CreatedAt = nowUTC()

	err := s.tx.QueryRowContext(ctx, `
		INSERT INTO users (username, email, password_hash, is_admin, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, user.Username, user.Email, user.PasswordHash, user.IsAdmin, user.CreatedAt).Scan(&user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateUsername
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindUserByUsername returns the user with the given username, or
// ErrNotFound.
func (s *Session) FindUserByUsername(ctx context.Context, username string) (*auth.User, error) {
	return s.findUser(ctx, `
		SELECT id, username, email, password_hash, is_admin, created_at
		FROM users WHERE username = $1
	`, username)
}

// FindUserByID returns the user with the given id, or ErrNotFound.
func (s *Session) FindUserByID(ctx context.Context, id int64) (*auth.User, error) {
	return s.findUser(ctx, `
		SELECT id, username, email, password_hash, is_admin, created_at
		FROM users WHERE id = $1
	`, id)
}

func (s *Session) findUser(ctx context.Context, query string, arg interface{}) (*auth.User, error) {
	user := &auth.User{}
	err := s.tx.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.IsAdmin, &user.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return user, nil
}

// ListUsers returns a page of users ordered by creation time.
func (s *Session) ListUsers(ctx context.Context, limit, offset int) ([]*auth.User, error) {
	rows, err := s.tx.QueryContext(ctx, `
		SELECT id, username, email, password_hash, is_admin, created_at
		FROM users
		ORDER BY created_at, id
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*auth.User
	for rows.Next() {
		user := &auth.User{}
		if err := rows.Scan(&user.ID, &user.Username, &user.Email,
			&user.PasswordHash, &user.IsAdmin, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// DeleteUser removes a user row. Token and project rows cascade with
// the account.
func (s *Session) DeleteUser(ctx context.Context, id int64) error {
	res, err := s.tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

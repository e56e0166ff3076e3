package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/benchtop-io/benchtop/pkg/auth"
)

// CreateToken persists a token hash bound to its owner and fills in the
// row id and creation timestamp. The caller keeps the raw value; it
// never reaches this package.
func (s *Session) CreateToken(ctx context.Context, token *auth.Token) error {
	token.CreatedAt = nowUTC()

	err := s.tx.QueryRowContext(ctx, `
		INSERT INTO tokens (token_hash, user_id, created_at, expiration_date)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, token.TokenHash, token.UserID, token.CreatedAt, token.ExpirationDate).Scan(&token.ID)
	if err != nil {
		return fmt.Errorf("failed to create token: %w", err)
	}
	return nil
}

// FindTokenByHash returns the token with the given digest, or
// ErrNotFound. Expired tokens are returned too; validity is the
// caller's decision.
func (s *Session) FindTokenByHash(ctx context.Context, hash string) (*auth.Token, error) {
	token := &auth.Token{}
	err := s.tx.QueryRowContext(ctx, `
		SELECT id, token_hash, user_id, created_at, expiration_date
		FROM tokens WHERE token_hash = $1
	`, hash).Scan(&token.ID, &token.TokenHash, &token.UserID,
		&token.CreatedAt, &token.ExpirationDate)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query token: %w", err)
	}
	return token, nil
}

// CurrentToken returns the most recently created token for a user,
// active or not, or ErrNotFound when the user never held one.
func (s *Session) CurrentToken(ctx context.Context, userID int64) (*auth.Token, error) {
	token := &auth.Token{}
	err := s.tx.QueryRowContext(ctx, `
		SELECT id, token_hash, user_id, created_at, expiration_date
		FROM tokens
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, userID).Scan(&token.ID, &token.TokenHash, &token.UserID,
		&token.CreatedAt, &token.ExpirationDate)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query current token: %w", err)
	}
	return token, nil
}

// RevokeToken expires a token as of the given instant. Tokens are never
// deleted; the expired row remains as login history. Revoking an
// already-expired token rewrites its expiration date, which is harmless
// and keeps the operation idempotent.
func (s *Session) RevokeToken(ctx context.Context, tokenID int64, now time.Time) error {
	_, err := s.tx.ExecContext(ctx, `
		UPDATE tokens SET expiration_date = $1 WHERE id = $2
	`, now.UTC().Truncate(time.Microsecond), tokenID)
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// CountTokensForUser returns the number of token rows a user has
// accumulated, active or not.
func (s *Session) CountTokensForUser(ctx context.Context, userID int64) (int, error) {
	var count int
	err := s.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tokens WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count tokens: %w", err)
	}
	return count, nil
}

// CountActiveTokens returns the number of tokens still valid at the
// given instant, across all users. Used by the metrics collector.
func (s *Store) CountActiveTokens(ctx context.Context, now time.Time) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tokens WHERE expiration_date >= $1`,
		now.UTC().Truncate(time.Microsecond)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active tokens: %w", err)
	}
	return count, nil
}

package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/filevault/backend/internal/auth"
	"github.com/filevault/backend/internal/db"
)

// PostgresTokenStore persists session tokens to PostgreSQL. It is the
// key-value-with-TTL collaborator behind auth.Manager: expiry lives in
// the expires_at column and the manager enforces it on resolve.
type PostgresTokenStore struct {
	pool db.Pool
}

// NewPostgresTokenStore constructs a token store backed by PostgreSQL.
func NewPostgresTokenStore(pool db.Pool) *PostgresTokenStore {
	return &PostgresTokenStore{pool: pool}
}

// Save stores or refreshes a session record.
func (s *PostgresTokenStore) Save(ctx context.Context, session auth.Session) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO auth_tokens (token, user_id, expires_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (token)
        DO UPDATE SET user_id = EXCLUDED.user_id, expires_at = EXCLUDED.expires_at
    `, session.Token, session.UserID, session.ExpiresAt.UTC())
	if err != nil {
		return fmt.Errorf("upsert token: %w", err)
	}

	return nil
}

// Find loads a session by its token.
func (s *PostgresTokenStore) Find(ctx context.Context, token string) (auth.Session, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return auth.Session{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT token, user_id, expires_at
        FROM auth_tokens
        WHERE token = $1
    `, token)

	var session auth.Session
	var expiresAt time.Time
	if err := row.Scan(&session.Token, &session.UserID, &expiresAt); err != nil {
		if err == pgx.ErrNoRows {
			return auth.Session{}, auth.ErrTokenNotFound
		}
		return auth.Session{}, fmt.Errorf("select token: %w", err)
	}

	session.ExpiresAt = expiresAt.UTC()
	return session, nil
}

// Delete removes a session by its token. Deleting an absent token is
// not an error; revocation is idempotent.
func (s *PostgresTokenStore) Delete(ctx context.Context, token string) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `
        DELETE FROM auth_tokens
        WHERE token = $1
    `, token); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}

	return nil
}

var _ auth.TokenStore = (*PostgresTokenStore)(nil)

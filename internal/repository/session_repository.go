package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Session repository errors
var (
	ErrSessionNotFound       = errors.New("session not found")
	ErrRememberTokenNotFound = errors.New("remember token not found")
)

// SessionRepository defines the interface for session and remember-token
// data access. Every read filters on expiry: an expired row is logically
// invalid even if the sweep has not removed it yet.
type SessionRepository interface {
	Create(ctx context.Context, session *Session) error
	GetActive(ctx context.Context, id string, now time.Time) (*Session, error)
	Touch(ctx context.Context, id string, lastActivity, expiresAt time.Time) error
	Delete(ctx context.Context, id string) error

	CreateRememberToken(ctx context.Context, token *RememberToken) error
	GetActiveRememberToken(ctx context.Context, token string, now time.Time) (*RememberToken, error)
	DeleteRememberToken(ctx context.Context, token string) error

	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// sessionRepository implements SessionRepository using PostgreSQL
type sessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository instance
func NewSessionRepository(pool *pgxpool.Pool) SessionRepository {
	return &sessionRepository{pool: pool}
}

// Create inserts a new session row
func (r *sessionRepository) Create(ctx context.Context, session *Session) error {
	query := `
		INSERT INTO sessions (id, user_id, ip_address, user_agent, last_activity, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	return r.pool.QueryRow(ctx, query,
		session.ID,
		session.UserID,
		session.IPAddress,
		session.UserAgent,
		session.LastActivity,
		session.ExpiresAt,
	).Scan(&session.CreatedAt)
}

// GetActive retrieves a session by ID, excluding expired rows
func (r *sessionRepository) GetActive(ctx context.Context, id string, now time.Time) (*Session, error) {
	query := `
		SELECT id, user_id, ip_address, user_agent, last_activity, expires_at, created_at
		FROM sessions
		WHERE id = $1 AND expires_at > $2
	`

	session := &Session{}
	err := r.pool.QueryRow(ctx, query, id, now).Scan(
		&session.ID,
		&session.UserID,
		&session.IPAddress,
		&session.UserAgent,
		&session.LastActivity,
		&session.ExpiresAt,
		&session.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	return session, nil
}

// Touch slides a session's expiry forward and records the activity time
func (r *sessionRepository) Touch(ctx context.Context, id string, lastActivity, expiresAt time.Time) error {
	query := `
		UPDATE sessions
		SET last_activity = $2, expires_at = $3
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id, lastActivity, expiresAt)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrSessionNotFound
	}

	return nil
}

// Delete removes a session by its ID
func (r *sessionRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM sessions WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrSessionNotFound
	}

	return nil
}

// CreateRememberToken inserts a new remember-token row
func (r *sessionRepository) CreateRememberToken(ctx context.Context, token *RememberToken) error {
	query := `
		INSERT INTO remember_tokens (token, user_id, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	return r.pool.QueryRow(ctx, query,
		token.Token,
		token.UserID,
		token.ExpiresAt,
	).Scan(&token.ID, &token.CreatedAt)
}

// GetActiveRememberToken retrieves a remember token, excluding expired rows
func (r *sessionRepository) GetActiveRememberToken(ctx context.Context, token string, now time.Time) (*RememberToken, error) {
	query := `
		SELECT id, token, user_id, created_at, expires_at
		FROM remember_tokens
		WHERE token = $1 AND expires_at > $2
	`

	rt := &RememberToken{}
	err := r.pool.QueryRow(ctx, query, token, now).Scan(
		&rt.ID,
		&rt.Token,
		&rt.UserID,
		&rt.CreatedAt,
		&rt.ExpiresAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRememberTokenNotFound
		}
		return nil, err
	}

	return rt, nil
}

// DeleteRememberToken removes a remember token by its token value
func (r *sessionRepository) DeleteRememberToken(ctx context.Context, token string) error {
	query := `DELETE FROM remember_tokens WHERE token = $1`

	result, err := r.pool.Exec(ctx, query, token)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrRememberTokenNotFound
	}

	return nil
}

// DeleteExpired removes all session and remember-token rows whose expiry
// has passed. Invoked opportunistically from the request gate, not on a
// timer.
func (r *sessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	removed := result.RowsAffected()

	result, err = r.pool.Exec(ctx, `DELETE FROM remember_tokens WHERE expires_at <= $1`, now)
	if err != nil {
		return removed, err
	}

	return removed + result.RowsAffected(), nil
}

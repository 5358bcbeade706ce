package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/castellanosdev/taller-ordenes/backend/internal/metrics"
	"github.com/castellanosdev/taller-ordenes/backend/internal/repository"
)

// Auth service errors
var (
	ErrInvalidCredentials   = errors.New("invalid username or password")
	ErrSessionInvalid       = errors.New("session missing or expired")
	ErrRememberTokenInvalid = errors.New("remember token missing or expired")
)

// Error codes for API responses
const (
	CodeValidationError    = "VALIDATION_ERROR"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeNotAuthenticated   = "NOT_AUTHENTICATED"
	CodeTooManyAttempts    = "TOO_MANY_ATTEMPTS"
)

// User is the resolved identity of an authenticated caller
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Service implements the session manager: credential verification,
// session and remember-token lifecycle, and the expired-row sweep.
type Service struct {
	users            repository.UserRepository
	sessions         repository.SessionRepository
	sessionDuration  time.Duration
	rememberDuration time.Duration
	logger           *slog.Logger
}

// Config holds service configuration
type Config struct {
	SessionDuration       time.Duration
	RememberTokenDuration time.Duration
}

// NewService creates a new Service instance
func NewService(users repository.UserRepository, sessions repository.SessionRepository, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		users:            users,
		sessions:         sessions,
		sessionDuration:  cfg.SessionDuration,
		rememberDuration: cfg.RememberTokenDuration,
		logger:           logger,
	}
}

// SessionDuration returns the configured rolling-window length
func (s *Service) SessionDuration() time.Duration {
	return s.sessionDuration
}

// RememberTokenDuration returns the configured remember-token lifetime
func (s *Service) RememberTokenDuration() time.Duration {
	return s.rememberDuration
}

// VerifyCredentials checks a username/password pair against the users
// table. Absent users and wrong passwords both map to
// ErrInvalidCredentials so callers cannot tell them apart.
func (s *Service) VerifyCredentials(ctx context.Context, username, password string) (*User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := VerifyPassword(password, user.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}

	return &User{ID: user.ID, Username: user.Username}, nil
}

// CreateSession mints a new session for a user and persists it with a
// rolling expiry window starting now
func (s *Service) CreateSession(ctx context.Context, user *User, ip, userAgent string) (string, error) {
	token, err := GenerateToken(TokenBytes)
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	session := &repository.Session{
		ID:           token,
		UserID:       user.ID,
		IPAddress:    ip,
		UserAgent:    userAgent,
		LastActivity: now,
		ExpiresAt:    now.Add(s.sessionDuration),
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return "", err
	}

	return token, nil
}

// VerifySession resolves a session ID to its user. Absent and expired
// rows fail alike. A successful verification slides the expiry forward
// by the full session duration and records the activity time.
func (s *Service) VerifySession(ctx context.Context, sessionID string) (*User, error) {
	now := time.Now().UTC()

	session, err := s.sessions.GetActive(ctx, sessionID, now)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrSessionInvalid
		}
		return nil, err
	}

	if err := s.sessions.Touch(ctx, session.ID, now, now.Add(s.sessionDuration)); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}

	return &User{ID: user.ID, Username: user.Username}, nil
}

// CreateRememberToken mints a long-lived token for a user. Its expiry
// is fixed at creation; verification never extends it.
func (s *Service) CreateRememberToken(ctx context.Context, userID int64) (string, error) {
	token, err := GenerateToken(TokenBytes)
	if err != nil {
		return "", err
	}

	rt := &repository.RememberToken{
		Token:     token,
		UserID:    userID,
		ExpiresAt: time.Now().UTC().Add(s.rememberDuration),
	}

	if err := s.sessions.CreateRememberToken(ctx, rt); err != nil {
		return "", err
	}

	return token, nil
}

// VerifyRememberToken resolves a remember token to its user without
// touching the token's expiry. The caller is expected to mint a fresh
// session on success.
func (s *Service) VerifyRememberToken(ctx context.Context, token string) (*User, error) {
	rt, err := s.sessions.GetActiveRememberToken(ctx, token, time.Now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrRememberTokenNotFound) {
			return nil, ErrRememberTokenInvalid
		}
		return nil, err
	}

	user, err := s.users.GetByID(ctx, rt.UserID)
	if err != nil {
		return nil, err
	}

	return &User{ID: user.ID, Username: user.Username}, nil
}

// Logout deletes the given session and remember token. It is
// best-effort: failures are logged and swallowed so a half-broken
// logout still clears whatever it can.
func (s *Service) Logout(ctx context.Context, sessionID, rememberToken string) {
	if sessionID != "" {
		if err := s.sessions.Delete(ctx, sessionID); err != nil &&
			!errors.Is(err, repository.ErrSessionNotFound) {
			s.logger.Warn("failed to delete session on logout", slog.String("error", err.Error()))
		}
	}

	if rememberToken != "" {
		if err := s.sessions.DeleteRememberToken(ctx, rememberToken); err != nil &&
			!errors.Is(err, repository.ErrRememberTokenNotFound) {
			s.logger.Warn("failed to delete remember token on logout", slog.String("error", err.Error()))
		}
	}
}

// CleanExpiredSessions sweeps expired session and remember-token rows.
// Invoked from the request gate rather than a background timer, so the
// tables shrink as a side effect of normal traffic.
func (s *Service) CleanExpiredSessions(ctx context.Context) {
	removed, err := s.sessions.DeleteExpired(ctx, time.Now().UTC())
	if err != nil {
		s.logger.Warn("failed to clean expired sessions", slog.String("error", err.Error()))
		return
	}
	if removed > 0 {
		metrics.SessionsSwept.Add(float64(removed))
		s.logger.Debug("swept expired auth rows", slog.Int64("removed", removed))
	}
}

package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/castellanosdev/taller-ordenes/backend/internal/auth"
	appctx "github.com/castellanosdev/taller-ordenes/backend/internal/context"
	"github.com/castellanosdev/taller-ordenes/backend/internal/repository"
)

// Mock repositories for testing

type mockUserRepo struct {
	users map[int64]*repository.User
}

func (m *mockUserRepo) Create(ctx context.Context, user *repository.User) error {
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*repository.User, error) {
	if user, ok := m.users[id]; ok {
		return user, nil
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepo) GetByUsername(ctx context.Context, username string) (*repository.User, error) {
	for _, user := range m.users {
		if user.Username == username {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

type mockSessionRepo struct {
	sessions map[string]*repository.Session
	tokens   map[string]*repository.RememberToken
}

func (m *mockSessionRepo) Create(ctx context.Context, session *repository.Session) error {
	copied := *session
	m.sessions[session.ID] = &copied
	return nil
}

func (m *mockSessionRepo) GetActive(ctx context.Context, id string, now time.Time) (*repository.Session, error) {
	session, ok := m.sessions[id]
	if !ok || !session.ExpiresAt.After(now) {
		return nil, repository.ErrSessionNotFound
	}
	copied := *session
	return &copied, nil
}

func (m *mockSessionRepo) Touch(ctx context.Context, id string, lastActivity, expiresAt time.Time) error {
	session, ok := m.sessions[id]
	if !ok {
		return repository.ErrSessionNotFound
	}
	session.LastActivity = lastActivity
	session.ExpiresAt = expiresAt
	return nil
}

func (m *mockSessionRepo) Delete(ctx context.Context, id string) error {
	delete(m.sessions, id)
	return nil
}

func (m *mockSessionRepo) CreateRememberToken(ctx context.Context, token *repository.RememberToken) error {
	copied := *token
	m.tokens[token.Token] = &copied
	return nil
}

func (m *mockSessionRepo) GetActiveRememberToken(ctx context.Context, token string, now time.Time) (*repository.RememberToken, error) {
	rt, ok := m.tokens[token]
	if !ok || !rt.ExpiresAt.After(now) {
		return nil, repository.ErrRememberTokenNotFound
	}
	copied := *rt
	return &copied, nil
}

func (m *mockSessionRepo) DeleteRememberToken(ctx context.Context, token string) error {
	delete(m.tokens, token)
	return nil
}

func (m *mockSessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var removed int64
	for id, session := range m.sessions {
		if !session.ExpiresAt.After(now) {
			delete(m.sessions, id)
			removed++
		}
	}
	for token, rt := range m.tokens {
		if !rt.ExpiresAt.After(now) {
			delete(m.tokens, token)
			removed++
		}
	}
	return removed, nil
}

func newTestGate(t *testing.T) (*Gate, *mockUserRepo, *mockSessionRepo) {
	t.Helper()
	users := &mockUserRepo{users: map[int64]*repository.User{
		1: {ID: 1, Username: "staff", PasswordHash: "irrelevant"},
	}}
	sessions := &mockSessionRepo{
		sessions: make(map[string]*repository.Session),
		tokens:   make(map[string]*repository.RememberToken),
	}
	svc := auth.NewService(users, sessions, auth.Config{
		SessionDuration:       time.Hour,
		RememberTokenDuration: 30 * 24 * time.Hour,
	}, nil)
	cookies := auth.NewCookieWriter(false, time.Hour, 30*24*time.Hour)
	return NewGate(svc, cookies, "/", "/dashboard/add-order"), users, sessions
}

func addSession(sessions *mockSessionRepo, id string, expiresAt time.Time) {
	sessions.sessions[id] = &repository.Session{
		ID:        id,
		UserID:    1,
		ExpiresAt: expiresAt,
	}
}

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestPageRedirectsAnonymousToLogin(t *testing.T) {
	gate, _, _ := newTestGate(t)

	var called bool
	handler := gate.Page(false)(okHandler(&called))

	req := httptest.NewRequest("GET", "/dashboard/add-order", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if called {
		t.Error("Expected handler not to be called")
	}
	if rec.Code != http.StatusSeeOther {
		t.Errorf("Expected status 303, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/" {
		t.Errorf("Expected redirect to /, got %q", loc)
	}
}

func TestLoginPageRedirectsAuthenticatedHome(t *testing.T) {
	gate, _, sessions := newTestGate(t)
	addSession(sessions, "live-session", time.Now().UTC().Add(time.Hour))

	var called bool
	handler := gate.Page(true)(okHandler(&called))

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: "live-session"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if called {
		t.Error("Expected handler not to be called")
	}
	if rec.Code != http.StatusSeeOther {
		t.Errorf("Expected status 303, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/dashboard/add-order" {
		t.Errorf("Expected redirect to /dashboard/add-order, got %q", loc)
	}
}

func TestLoginPagePassesAnonymous(t *testing.T) {
	gate, _, _ := newTestGate(t)

	var called bool
	handler := gate.Page(true)(okHandler(&called))

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !called {
		t.Error("Expected handler to be called")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}
}

func TestPagePassesAuthenticatedWithIdentity(t *testing.T) {
	gate, _, sessions := newTestGate(t)
	addSession(sessions, "live-session", time.Now().UTC().Add(time.Hour))

	var gotUserID int64
	handler := gate.Page(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := appctx.ExtractUserID(r.Context())
		gotUserID = id
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/dashboard/add-order", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: "live-session"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}
	if gotUserID != 1 {
		t.Errorf("Expected user ID 1 in context, got %d", gotUserID)
	}
}

func TestAPIReturns401ForAnonymous(t *testing.T) {
	gate, _, _ := newTestGate(t)

	var called bool
	handler := gate.API()(okHandler(&called))

	req := httptest.NewRequest("GET", "/api/v1/orders", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if called {
		t.Error("Expected handler not to be called")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rec.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Error.Code != auth.CodeNotAuthenticated {
		t.Errorf("Expected code %s, got %s", auth.CodeNotAuthenticated, resp.Error.Code)
	}
}

func TestRememberTokenFallbackMintsSession(t *testing.T) {
	gate, _, sessions := newTestGate(t)
	sessions.tokens["remember-me"] = &repository.RememberToken{
		Token:     "remember-me",
		UserID:    1,
		ExpiresAt: time.Now().UTC().Add(24 * time.Hour),
	}

	var called bool
	handler := gate.API()(okHandler(&called))

	req := httptest.NewRequest("GET", "/api/v1/orders", nil)
	req.AddCookie(&http.Cookie{Name: auth.RememberCookieName, Value: "remember-me"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !called {
		t.Fatal("Expected handler to be called after silent re-auth")
	}
	if len(sessions.sessions) != 1 {
		t.Errorf("Expected one freshly minted session, got %d", len(sessions.sessions))
	}

	var sessionCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookieName {
			sessionCookie = c
		}
	}
	if sessionCookie == nil {
		t.Fatal("Expected session cookie to be set")
	}
	if _, ok := sessions.sessions[sessionCookie.Value]; !ok {
		t.Error("Expected session cookie to name the minted session")
	}
}

func TestGateSweepsExpiredRows(t *testing.T) {
	gate, _, sessions := newTestGate(t)
	addSession(sessions, "stale-session", time.Now().UTC().Add(-time.Minute))

	handler := gate.Page(true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if _, ok := sessions.sessions["stale-session"]; ok {
		t.Error("Expected expired session to be swept by the request")
	}
}

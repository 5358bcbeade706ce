package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/castellanosdev/taller-ordenes/backend/internal/auth"
	appctx "github.com/castellanosdev/taller-ordenes/backend/internal/context"
)

// ErrorResponse represents the standard error response format
type ErrorResponse struct {
	Success   bool        `json:"success"`
	Error     ErrorDetail `json:"error"`
	Timestamp time.Time   `json:"timestamp"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Gate is the per-request authorization check. It resolves the caller's
// identity from the session cookie, falling back to the remember-token
// cookie, and decides between proceeding and redirecting.
//
// As a deliberate side effect it sweeps expired session rows before
// looking at the cookies, so housekeeping rides on the hot path instead
// of a timer.
type Gate struct {
	service   *auth.Service
	cookies   *auth.CookieWriter
	loginPath string
	homePath  string
}

// NewGate creates a new Gate instance
func NewGate(service *auth.Service, cookies *auth.CookieWriter, loginPath, homePath string) *Gate {
	return &Gate{
		service:   service,
		cookies:   cookies,
		loginPath: loginPath,
		homePath:  homePath,
	}
}

// resolve works out who is calling. On a successful remember-token
// fallback it mints a fresh session and sets the cookie, so the
// escalation is invisible to the client.
func (g *Gate) resolve(w http.ResponseWriter, r *http.Request) *auth.User {
	g.service.CleanExpiredSessions(r.Context())

	if sessionID := auth.ReadSessionID(r); sessionID != "" {
		if user, err := g.service.VerifySession(r.Context(), sessionID); err == nil {
			return user
		}
	}

	if token := auth.ReadRememberToken(r); token != "" {
		user, err := g.service.VerifyRememberToken(r.Context(), token)
		if err != nil {
			return nil
		}

		sessionID, err := g.service.CreateSession(r.Context(), user, auth.GetClientIP(r), r.UserAgent())
		if err != nil {
			return nil
		}
		g.cookies.SetSession(w, sessionID)
		return user
	}

	return nil
}

// Page returns a middleware enforcing the redirect policy for
// server-rendered pages. With loginPage false, unauthenticated callers
// are sent to the login route; with loginPage true, authenticated
// callers are sent to the default post-login route.
func (g *Gate) Page(loginPage bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := g.resolve(w, r)

			if user != nil && loginPage {
				http.Redirect(w, r, g.homePath, http.StatusSeeOther)
				return
			}
			if user == nil && !loginPage {
				http.Redirect(w, r, g.loginPath, http.StatusSeeOther)
				return
			}

			if user != nil {
				r = r.WithContext(appctx.WithUser(r.Context(), user.ID, user.Username))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// API returns a middleware for JSON endpoints: same identity
// resolution, but unauthenticated callers get a 401 envelope instead
// of a redirect.
func (g *Gate) API() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := g.resolve(w, r)
			if user == nil {
				writeError(w, http.StatusUnauthorized, auth.CodeNotAuthenticated, "Authentication required")
				return
			}

			r = r.WithContext(appctx.WithUser(r.Context(), user.ID, user.Username))
			next.ServeHTTP(w, r)
		})
	}
}

// writeError writes a JSON error response
func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	json.NewEncoder(w).Encode(ErrorResponse{
		Success: false,
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
		Timestamp: time.Now().UTC(),
	})
}

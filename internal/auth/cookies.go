package auth

import (
	"net/http"
	"time"
)

// Cookie names shared with the frontend
const (
	SessionCookieName  = "session_id"
	RememberCookieName = "remember_token"
)

// CookieWriter sets and clears the auth cookies with consistent flags:
// HttpOnly, Path=/, SameSite=Lax, Secure per deployment config.
type CookieWriter struct {
	secure           bool
	sessionMaxAge    time.Duration
	rememberMaxAge   time.Duration
}

// NewCookieWriter creates a CookieWriter
func NewCookieWriter(secure bool, sessionMaxAge, rememberMaxAge time.Duration) *CookieWriter {
	return &CookieWriter{
		secure:         secure,
		sessionMaxAge:  sessionMaxAge,
		rememberMaxAge: rememberMaxAge,
	}
}

// SetSession writes the session cookie
func (c *CookieWriter) SetSession(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   int(c.sessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SetRemember writes the remember-token cookie
func (c *CookieWriter) SetRemember(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     RememberCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(c.rememberMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear expires both auth cookies
func (c *CookieWriter) Clear(w http.ResponseWriter) {
	for _, name := range []string{SessionCookieName, RememberCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			Expires:  time.Unix(0, 0),
			HttpOnly: true,
			Secure:   c.secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

// ReadSessionID returns the session cookie value, or "" if absent
func ReadSessionID(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// ReadRememberToken returns the remember-token cookie value, or "" if absent
func ReadRememberToken(r *http.Request) string {
	cookie, err := r.Cookie(RememberCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

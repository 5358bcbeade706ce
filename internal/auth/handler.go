package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	appctx "github.com/castellanosdev/taller-ordenes/backend/internal/context"
	"github.com/castellanosdev/taller-ordenes/backend/internal/metrics"
)

// APIResponse represents the standard API response format
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// APIError represents the error detail in API response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	User User `json:"user"`
}

// Handler handles HTTP requests for authentication endpoints
type Handler struct {
	service *Service
	cookies *CookieWriter
}

// NewHandler creates a new Handler instance
func NewHandler(service *Service, cookies *CookieWriter) *Handler {
	return &Handler{
		service: service,
		cookies: cookies,
	}
}

// Login handles staff authentication
// POST /api/v1/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "Invalid request body")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		h.writeError(w, http.StatusBadRequest, CodeValidationError, "username and password are required")
		return
	}

	user, err := h.service.VerifyCredentials(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			metrics.LoginsTotal.WithLabelValues("failure").Inc()
			h.writeError(w, http.StatusUnauthorized, CodeInvalidCredentials, "Invalid username or password")
			return
		}
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred")
		return
	}

	sessionID, err := h.service.CreateSession(r.Context(), user, GetClientIP(r), r.UserAgent())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create session")
		return
	}
	h.cookies.SetSession(w, sessionID)
	metrics.LoginsTotal.WithLabelValues("success").Inc()

	if req.Remember {
		token, err := h.service.CreateRememberToken(r.Context(), user.ID)
		if err != nil {
			// The session is already established; a missing remember
			// token only costs the user a later re-login.
			h.writeSuccess(w, http.StatusOK, LoginResponse{User: *user})
			return
		}
		h.cookies.SetRemember(w, token)
	}

	h.writeSuccess(w, http.StatusOK, LoginResponse{User: *user})
}

// Logout handles staff logout
// POST /api/v1/auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.service.Logout(r.Context(), ReadSessionID(r), ReadRememberToken(r))
	h.cookies.Clear(w)

	h.writeSuccess(w, http.StatusOK, map[string]string{
		"message": "Sesión cerrada",
	})
}

// GetMe returns the authenticated caller's identity
// GET /api/v1/auth/me
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := appctx.ExtractUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, CodeNotAuthenticated, "Not authenticated")
		return
	}
	username, _ := appctx.ExtractUsername(r.Context())

	h.writeSuccess(w, http.StatusOK, User{ID: userID, Username: username})
}

// writeSuccess writes a success JSON response
func (h *Handler) writeSuccess(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	json.NewEncoder(w).Encode(APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

// writeError writes an error JSON response
func (h *Handler) writeError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	json.NewEncoder(w).Encode(APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
		},
		Timestamp: time.Now().UTC(),
	})
}

// GetClientIP extracts the client IP address from the request,
// preferring proxy headers over the socket address
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// X-Forwarded-For can contain multiple IPs, take the first one
		parts := strings.Split(xff, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	return r.RemoteAddr
}

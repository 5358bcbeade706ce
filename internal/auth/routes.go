package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Middleware is a function that wraps an http.Handler
type Middleware func(http.Handler) http.Handler

// RegisterRoutes registers all authentication routes with the Chi router.
// Login carries the rate limiter; /me sits behind the request gate.
func RegisterRoutes(r chi.Router, handler *Handler, gate Middleware, loginLimiter Middleware) {
	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if loginLimiter != nil {
				r.Use(loginLimiter)
			}
			r.Post("/login", handler.Login)
		})

		r.Post("/logout", handler.Logout)

		r.Group(func(r chi.Router) {
			r.Use(gate)
			r.Get("/me", handler.GetMe)
		})
	})
}

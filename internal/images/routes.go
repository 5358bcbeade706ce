package images

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Middleware is a function that wraps an http.Handler
type Middleware func(http.Handler) http.Handler

// RegisterRoutes registers the gated image management endpoints
func RegisterRoutes(r chi.Router, handler *Handler, gate Middleware) {
	r.Group(func(r chi.Router) {
		r.Use(gate)
		r.Post("/api/v1/orders/{id}/images", handler.Upload)
		r.Get("/api/v1/orders/{id}/images", handler.List)
		r.Delete("/api/v1/images/{id}", handler.Delete)
		r.Post("/api/v1/images/sweep", handler.Sweep)
	})
}

// RegisterPublicRoutes registers the unauthenticated serving and
// filesystem endpoints
func RegisterPublicRoutes(r chi.Router, handler *Handler) {
	r.Get("/api/images/*", handler.Serve)

	r.Group(func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type"},
		}))
		r.Delete("/api/filesystem", handler.Filesystem)
	})
}

package orders

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Middleware is a function that wraps an http.Handler
type Middleware func(http.Handler) http.Handler

// RegisterRoutes registers the gated work-order endpoints
func RegisterRoutes(r chi.Router, handler *Handler, gate Middleware) {
	r.Group(func(r chi.Router) {
		r.Use(gate)

		r.Post("/api/v1/orders", handler.Create)
		r.Get("/api/v1/orders", handler.List)
		r.Get("/api/v1/orders/{id}", handler.Get)
		r.Put("/api/v1/orders/{id}", handler.Update)
		r.Delete("/api/v1/orders/{id}", handler.Delete)

		r.Get("/api/v1/brands", handler.ListBrands)
		r.Post("/api/v1/brands", handler.AddBrand)
		r.Get("/api/v1/equipment-types", handler.ListEquipmentTypes)
		r.Post("/api/v1/equipment-types", handler.AddEquipmentType)
	})
}

package orders

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/castellanosdev/taller-ordenes/backend/internal/images"
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

// NameRequest is the payload for the reference-table endpoints
type NameRequest struct {
	Name string `json:"name"`
}

// Handler handles HTTP requests for work-order endpoints
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler creates a new Handler instance
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Create registers a new work order
// POST /api/v1/orders (multipart: fields + images)
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	input, uploads, closers, err := h.parseOrderForm(r)
	defer closeAll(closers)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	id, err := h.service.Save(r.Context(), input, uploads)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			h.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid work order data")
			return
		}
		if id > 0 {
			// Order exists but some images did not make it.
			h.writeError(w, http.StatusInternalServerError, "IMAGE_SAVE_FAILED",
				"Orden creada pero no se pudieron guardar todas las imágenes")
			return
		}
		h.writeError(w, http.StatusInternalServerError, "ORDER_SAVE_FAILED", "No se pudo guardar la orden")
		return
	}

	h.writeSuccess(w, http.StatusCreated, map[string]int64{"id": id})
}

// Get returns a single work order with images
// GET /api/v1/orders/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid order ID")
		return
	}

	view, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			h.writeError(w, http.StatusNotFound, "ORDER_NOT_FOUND", "Orden no encontrada")
			return
		}
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred")
		return
	}

	h.writeSuccess(w, http.StatusOK, view)
}

// List returns all work orders, newest first
// GET /api/v1/orders
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.List(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred")
		return
	}

	h.writeSuccess(w, http.StatusOK, views)
}

// Update replaces a work order's fields
// PUT /api/v1/orders/{id} (multipart: fields + images)
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid order ID")
		return
	}

	input, uploads, closers, err := h.parseOrderForm(r)
	defer closeAll(closers)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	ok := h.service.Update(r.Context(), id, input, uploads)
	h.writeSuccess(w, http.StatusOK, map[string]bool{"updated": ok})
}

// Delete removes a work order and its images
// DELETE /api/v1/orders/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid order ID")
		return
	}

	ok := h.service.Delete(r.Context(), id)
	h.writeSuccess(w, http.StatusOK, map[string]bool{"deleted": ok})
}

// ListBrands returns the brand reference table
// GET /api/v1/brands
func (h *Handler) ListBrands(w http.ResponseWriter, r *http.Request) {
	brands, err := h.service.ListBrands(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred")
		return
	}
	h.writeSuccess(w, http.StatusOK, brands)
}

// AddBrand appends a brand
// POST /api/v1/brands
func (h *Handler) AddBrand(w http.ResponseWriter, r *http.Request) {
	var req NameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	id, err := h.service.AddBrand(r.Context(), req.Name)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			h.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Brand name is required")
			return
		}
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred")
		return
	}

	h.writeSuccess(w, http.StatusCreated, map[string]int64{"id": id})
}

// ListEquipmentTypes returns the equipment-type reference table
// GET /api/v1/equipment-types
func (h *Handler) ListEquipmentTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.service.ListEquipmentTypes(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred")
		return
	}
	h.writeSuccess(w, http.StatusOK, types)
}

// AddEquipmentType appends an equipment type
// POST /api/v1/equipment-types
func (h *Handler) AddEquipmentType(w http.ResponseWriter, r *http.Request) {
	var req NameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	id, err := h.service.AddEquipmentType(r.Context(), req.Name)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			h.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Equipment type name is required")
			return
		}
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred")
		return
	}

	h.writeSuccess(w, http.StatusCreated, map[string]int64{"id": id})
}

// parseOrderForm reads the multipart order form: scalar fields plus an
// "images" file list
func (h *Handler) parseOrderForm(r *http.Request) (OrderInput, []images.Upload, []io.Closer, error) {
	var input OrderInput

	if err := r.ParseMultipartForm(images.MaxUploadBytes); err != nil {
		return input, nil, nil, errors.New("invalid multipart form")
	}

	input.ClientName = r.FormValue("client_name")
	input.Identity = r.FormValue("identity")
	input.PhonePrimary = optionalField(r, "phone_primary")
	input.PhoneSecondary = optionalField(r, "phone_secondary")
	input.Model = optionalField(r, "model")
	input.Brand = optionalField(r, "brand")
	input.EquipmentType = optionalField(r, "equipment_type")
	input.SerialNumber = optionalField(r, "serial_number")
	input.Diagnosis = optionalField(r, "diagnosis")
	input.Repair = optionalField(r, "repair")

	var err error
	if input.BrandID, err = optionalID(r, "brand_id"); err != nil {
		return input, nil, nil, err
	}
	if input.EquipmentTypeID, err = optionalID(r, "equipment_type_id"); err != nil {
		return input, nil, nil, err
	}
	if raw := r.FormValue("entry_date"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			// Date-only form inputs come through without a time part.
			t, err = time.Parse("2006-01-02", raw)
		}
		if err != nil {
			return input, nil, nil, errors.New("invalid entry_date")
		}
		input.EntryDate = &t
	}

	uploads, closers, err := images.UploadsFromForm(r)
	return input, uploads, closers, err
}

func optionalField(r *http.Request, name string) *string {
	if v := r.FormValue(name); v != "" {
		return &v
	}
	return nil
}

func optionalID(r *http.Request, name string) (*int64, error) {
	raw := r.FormValue(name)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, errors.New("invalid " + name)
	}
	return &id, nil
}

func closeAll(closers []io.Closer) {
	for _, c := range closers {
		c.Close()
	}
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

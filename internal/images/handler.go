package images

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/castellanosdev/taller-ordenes/backend/internal/storage"
)

// MaxUploadBytes bounds the multipart form kept in memory per request
const MaxUploadBytes = 32 << 20

// mimeTypes maps file extensions to content types for the serving
// endpoint. Unknown extensions fall back to octet-stream.
var mimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
	".svg":  "image/svg+xml",
}

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

// FilesystemResponse is the envelope of the filesystem endpoint,
// kept separate because its shape predates the API envelope
type FilesystemResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Handler handles HTTP requests for image endpoints
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

// Upload attaches files to an existing order
// POST /api/v1/orders/{id}/images
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || orderID <= 0 {
		h.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid order ID")
		return
	}

	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		h.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid multipart form")
		return
	}

	uploads, closers, err := UploadsFromForm(r)
	defer func() {
		for _, c := range closers {
			c.Close()
		}
	}()
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	if len(uploads) == 0 {
		h.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "No images in request")
		return
	}

	ids, err := h.service.SaveOrderImages(r.Context(), orderID, uploads)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "IMAGE_SAVE_FAILED", "No se pudieron guardar todas las imágenes")
		return
	}

	h.writeSuccess(w, http.StatusCreated, map[string]interface{}{"image_ids": ids})
}

// List returns all images attached to an order
// GET /api/v1/orders/{id}/images
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || orderID <= 0 {
		h.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid order ID")
		return
	}

	views, err := h.service.GetOrderImages(r.Context(), orderID)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred")
		return
	}

	h.writeSuccess(w, http.StatusOK, views)
}

// Delete removes a single image
// DELETE /api/v1/images/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	imageID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || imageID <= 0 {
		h.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid image ID")
		return
	}

	ok := h.service.DeleteOrderImage(r.Context(), imageID)
	h.writeSuccess(w, http.StatusOK, map[string]bool{"deleted": ok})
}

// Sweep removes stored files that no image row references
// POST /api/v1/images/sweep
func (h *Handler) Sweep(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.CleanOrphanFiles(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "SWEEP_FAILED", "Orphan sweep failed")
		return
	}

	h.writeSuccess(w, http.StatusOK, report)
}

// Serve streams a stored image
// GET /api/images/*
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	rel := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if rel == "" {
		http.NotFound(w, r)
		return
	}
	storagePath := UploadsPrefix + "/" + rel

	// Stores that can presign hand the client a direct URL instead of
	// proxying the bytes.
	if presigner, ok := h.service.store.(storage.URLPresigner); ok {
		url, err := presigner.PresignURL(r.Context(), storagePath)
		if err != nil {
			http.Error(w, "Error al procesar la imagen", http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, url, http.StatusTemporaryRedirect)
		return
	}

	f, err := h.service.store.Open(r.Context(), storagePath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidPath) {
			http.Error(w, "Imagen no encontrada", http.StatusNotFound)
			return
		}
		http.Error(w, "Error al procesar la imagen", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	contentType := "application/octet-stream"
	if ct, ok := mimeTypes[strings.ToLower(path.Ext(rel))]; ok {
		contentType = ct
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=31536000")
	io.Copy(w, f)
}

// Filesystem deletes a file or directory under the uploads root
// DELETE /api/filesystem?path=<relative>&isFile=<bool>
func (h *Handler) Filesystem(w http.ResponseWriter, r *http.Request) {
	rawPath := r.URL.Query().Get("path")
	if rawPath == "" {
		h.writeFilesystem(w, http.StatusBadRequest, FilesystemResponse{
			Success: false,
			Error:   "Path parameter is required",
		})
		return
	}
	isFile := r.URL.Query().Get("isFile") == "true"

	normalized := path.Clean(strings.TrimPrefix(strings.ReplaceAll(rawPath, "\\", "/"), "/"))
	if normalized != UploadsPrefix && !strings.HasPrefix(normalized, UploadsPrefix+"/") {
		h.writeFilesystem(w, http.StatusForbidden, FilesystemResponse{
			Success: false,
			Error:   "Invalid path. Must be within uploads directory",
		})
		return
	}

	if isFile {
		err := h.service.store.Delete(r.Context(), normalized)
		if errors.Is(err, storage.ErrNotFound) {
			h.writeFilesystem(w, http.StatusNotFound, FilesystemResponse{
				Success: false,
				Error:   "Path does not exist",
			})
			return
		}
		if err != nil {
			h.logger.Error("filesystem delete failed", slog.String("path", normalized), slog.String("error", err.Error()))
			h.writeFilesystem(w, http.StatusInternalServerError, FilesystemResponse{
				Success: false,
				Error:   "Failed to process request",
			})
			return
		}
	} else {
		entries, err := h.service.store.List(r.Context(), normalized)
		if err == nil && len(entries) == 0 {
			h.writeFilesystem(w, http.StatusNotFound, FilesystemResponse{
				Success: false,
				Error:   "Path does not exist",
			})
			return
		}
		if err == nil {
			err = h.service.store.DeleteDir(r.Context(), normalized)
		}
		if err != nil {
			h.logger.Error("filesystem delete failed", slog.String("path", normalized), slog.String("error", err.Error()))
			h.writeFilesystem(w, http.StatusInternalServerError, FilesystemResponse{
				Success: false,
				Error:   "Failed to process request",
			})
			return
		}
	}

	kind := "directory"
	if isFile {
		kind = "file"
	}
	h.writeFilesystem(w, http.StatusOK, FilesystemResponse{
		Success: true,
		Message: "Successfully deleted " + kind + ": " + normalized,
	})
}

// UploadsFromForm extracts the uploaded files from a parsed multipart
// form. The returned closers must be closed by the caller.
func UploadsFromForm(r *http.Request) ([]Upload, []io.Closer, error) {
	var uploads []Upload
	var closers []io.Closer

	if r.MultipartForm == nil {
		return nil, nil, nil
	}

	for _, header := range r.MultipartForm.File["images"] {
		f, err := header.Open()
		if err != nil {
			return uploads, closers, errors.New("failed to read uploaded file")
		}
		closers = append(closers, f)
		uploads = append(uploads, Upload{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Content:     f,
		})
	}

	return uploads, closers, nil
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

// writeFilesystem writes the filesystem endpoint's envelope
func (h *Handler) writeFilesystem(w http.ResponseWriter, statusCode int, resp FilesystemResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(resp)
}

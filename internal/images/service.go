// Package images associates uploaded files with work orders: binaries
// go to the storage backend, pointer rows to the database. The two
// writes are not transactional; a crash between them leaves an orphaned
// file or a dangling row, which the orphan sweep picks up later.
package images

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/castellanosdev/taller-ordenes/backend/internal/metrics"
	"github.com/castellanosdev/taller-ordenes/backend/internal/repository"
	"github.com/castellanosdev/taller-ordenes/backend/internal/storage"
)

// UploadsPrefix is the path prefix every stored image lives under
const UploadsPrefix = "uploads"

var whitespaceRun = regexp.MustCompile(`\s+`)

// Upload is one incoming file to attach to an order
type Upload struct {
	Filename    string
	ContentType string
	Content     io.Reader
}

// ImageView is an order image with its resolved serving URL
type ImageView struct {
	ID          int64     `json:"id"`
	OrderID     int64     `json:"order_id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	URL         string    `json:"url"`
	CreatedAt   time.Time `json:"created_at"`
}

// OrphanReport summarizes an orphan-file sweep
type OrphanReport struct {
	FilesScanned   int      `json:"files_scanned"`
	OrphansFound   int      `json:"orphans_found"`
	OrphansDeleted int      `json:"orphans_deleted"`
	Errors         []string `json:"errors,omitempty"`
}

// Service implements the image store
type Service struct {
	images  repository.ImageRepositoryInterface
	store   storage.Store
	baseURL string
	logger  *slog.Logger
}

// NewService creates a new Service instance
func NewService(images repository.ImageRepositoryInterface, store storage.Store, baseURL string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		images:  images,
		store:   store,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
	}
}

// sanitizeFilename collapses whitespace runs to dashes and drops any
// directory components an uploader smuggled into the name
func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = whitespaceRun.ReplaceAllString(name, "-")
	if name == "" || name == "." || name == ".." {
		name = "imagen"
	}
	return name
}

// storagePathFor builds the relative path an upload is stored under.
// The millisecond timestamp prefix keeps two uploads of the same
// filename from colliding.
func storagePathFor(orderID int64, filename string) string {
	stamp := strconv.FormatInt(time.Now().UnixMilli(), 10)
	return UploadsPrefix + "/" + strconv.FormatInt(orderID, 10) + "/" + stamp + "-" + sanitizeFilename(filename)
}

// SaveImageFile writes an upload's binary content under the per-order
// directory and returns the relative path it was stored at
func (s *Service) SaveImageFile(ctx context.Context, orderID int64, upload Upload) (string, error) {
	relPath := storagePathFor(orderID, upload.Filename)

	if err := s.store.Save(ctx, relPath, upload.Content); err != nil {
		return "", fmt.Errorf("failed to store image for order %d: %w", orderID, err)
	}

	return relPath, nil
}

// SaveOrderImage persists one upload: file first, pointer row second.
// If the row insert fails the file stays behind for the orphan sweep.
func (s *Service) SaveOrderImage(ctx context.Context, orderID int64, upload Upload) (int64, error) {
	relPath, err := s.SaveImageFile(ctx, orderID, upload)
	if err != nil {
		return 0, err
	}

	image := &repository.OrderImage{
		OrderID:     orderID,
		Filename:    upload.Filename,
		ContentType: upload.ContentType,
		StoragePath: relPath,
	}
	if err := s.images.Create(ctx, image); err != nil {
		return 0, err
	}

	metrics.ImagesUploaded.Inc()
	return image.ID, nil
}

// SaveOrderImages persists uploads sequentially. A failure partway
// through leaves the earlier file/row pairs committed and reports the
// first error.
func (s *Service) SaveOrderImages(ctx context.Context, orderID int64, uploads []Upload) ([]int64, error) {
	if len(uploads) == 0 {
		return nil, nil
	}

	batchID := uuid.New().String()
	ids := make([]int64, 0, len(uploads))

	for _, upload := range uploads {
		id, err := s.SaveOrderImage(ctx, orderID, upload)
		if err != nil {
			s.logger.Error("image batch aborted",
				slog.String("batch_id", batchID),
				slog.Int64("order_id", orderID),
				slog.Int("saved", len(ids)),
				slog.String("error", err.Error()))
			return ids, err
		}
		ids = append(ids, id)
	}

	s.logger.Info("image batch saved",
		slog.String("batch_id", batchID),
		slog.Int64("order_id", orderID),
		slog.Int("count", len(ids)))

	return ids, nil
}

// GetOrderImages returns all images for an order with serving URLs
func (s *Service) GetOrderImages(ctx context.Context, orderID int64) ([]ImageView, error) {
	rows, err := s.images.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	views := make([]ImageView, len(rows))
	for i, row := range rows {
		views[i] = ImageView{
			ID:          row.ID,
			OrderID:     row.OrderID,
			Filename:    row.Filename,
			ContentType: row.ContentType,
			URL:         s.ImageURL(row.StoragePath),
			CreatedAt:   row.CreatedAt,
		}
	}

	return views, nil
}

// ImageURL resolves a stored path to its serving URL. One rule, taken
// from configuration, for every environment.
func (s *Service) ImageURL(storagePath string) string {
	rel := strings.TrimPrefix(storagePath, UploadsPrefix+"/")
	return s.baseURL + "/api/images/" + rel
}

// DeleteOrderImage removes one image, file then row. Any failure is
// logged and reported as false rather than an error.
func (s *Service) DeleteOrderImage(ctx context.Context, imageID int64) bool {
	image, err := s.images.GetByID(ctx, imageID)
	if err != nil {
		s.logger.Warn("failed to look up image for deletion",
			slog.Int64("image_id", imageID),
			slog.String("error", err.Error()))
		return false
	}

	if err := s.store.Delete(ctx, image.StoragePath); err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logger.Warn("failed to delete image file",
			slog.Int64("image_id", imageID),
			slog.String("path", image.StoragePath),
			slog.String("error", err.Error()))
		return false
	}

	if err := s.images.Delete(ctx, imageID); err != nil {
		s.logger.Warn("failed to delete image row",
			slog.Int64("image_id", imageID),
			slog.String("error", err.Error()))
		return false
	}

	metrics.ImagesDeleted.Inc()
	return true
}

// DeleteOrderImagesForOrder removes every image of an order. File
// deletions are best-effort: one unremovable file is logged and the
// loop moves on, so the remaining files and the row cleanup still get
// their chance. A failed bulk row delete is the only hard error.
func (s *Service) DeleteOrderImagesForOrder(ctx context.Context, orderID int64) error {
	rows, err := s.images.ListByOrder(ctx, orderID)
	if err != nil {
		return err
	}

	for _, row := range rows {
		if err := s.store.Delete(ctx, row.StoragePath); err != nil && !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("failed to delete image file, continuing",
				slog.Int64("image_id", row.ID),
				slog.String("path", row.StoragePath),
				slog.String("error", err.Error()))
		}
	}

	orderDir := UploadsPrefix + "/" + strconv.FormatInt(orderID, 10)
	if err := s.store.RemoveDirIfEmpty(ctx, orderDir); err != nil {
		s.logger.Warn("failed to remove order upload directory",
			slog.Int64("order_id", orderID),
			slog.String("error", err.Error()))
	}

	if _, err := s.images.DeleteByOrder(ctx, orderID); err != nil {
		return fmt.Errorf("failed to delete image rows for order %d: %w", orderID, err)
	}

	return nil
}

// CleanOrphanFiles deletes stored files no image row points at.
// Run manually through the admin endpoint, not on a schedule.
func (s *Service) CleanOrphanFiles(ctx context.Context) (*OrphanReport, error) {
	files, err := s.store.List(ctx, UploadsPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list stored files: %w", err)
	}

	referenced, err := s.images.ListStoragePaths(ctx)
	if err != nil {
		return nil, err
	}

	live := make(map[string]bool, len(referenced))
	for _, p := range referenced {
		live[p] = true
	}

	report := &OrphanReport{FilesScanned: len(files)}
	for _, file := range files {
		if live[file] {
			continue
		}
		report.OrphansFound++
		if err := s.store.Delete(ctx, file); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", file, err))
			continue
		}
		report.OrphansDeleted++
		metrics.OrphanFilesRemoved.Inc()
	}

	s.logger.Info("orphan sweep finished",
		slog.Int("scanned", report.FilesScanned),
		slog.Int("found", report.OrphansFound),
		slog.Int("deleted", report.OrphansDeleted))

	return report, nil
}

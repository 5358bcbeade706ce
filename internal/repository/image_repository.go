package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Image repository errors
var (
	ErrImageNotFound = errors.New("order image not found")
)

// ImageRepositoryInterface defines the interface for order-image metadata access
type ImageRepositoryInterface interface {
	Create(ctx context.Context, image *OrderImage) error
	GetByID(ctx context.Context, id int64) (*OrderImage, error)
	ListByOrder(ctx context.Context, orderID int64) ([]OrderImage, error)
	Delete(ctx context.Context, id int64) error
	DeleteByOrder(ctx context.Context, orderID int64) (int64, error)
	ListStoragePaths(ctx context.Context) ([]string, error)
}

// ImageRepo implements ImageRepositoryInterface using PostgreSQL
type ImageRepo struct {
	db *sqlx.DB
}

// NewImageRepo creates a new ImageRepo instance
func NewImageRepo(db *sqlx.DB) *ImageRepo {
	return &ImageRepo{db: db}
}

// Create inserts a new order-image row
func (r *ImageRepo) Create(ctx context.Context, image *OrderImage) error {
	query := `
		INSERT INTO order_images (order_id, filename, content_type, storage_path)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		image.OrderID,
		image.Filename,
		image.ContentType,
		image.StoragePath,
	).Scan(&image.ID, &image.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create order image: %w", err)
	}

	return nil
}

// GetByID retrieves a single order image
func (r *ImageRepo) GetByID(ctx context.Context, id int64) (*OrderImage, error) {
	query := `
		SELECT id, order_id, filename, content_type, storage_path, created_at
		FROM order_images
		WHERE id = $1
	`

	image := &OrderImage{}
	if err := r.db.GetContext(ctx, image, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrImageNotFound
		}
		return nil, fmt.Errorf("failed to get order image %d: %w", id, err)
	}

	return image, nil
}

// ListByOrder returns all images attached to a work order
func (r *ImageRepo) ListByOrder(ctx context.Context, orderID int64) ([]OrderImage, error) {
	query := `
		SELECT id, order_id, filename, content_type, storage_path, created_at
		FROM order_images
		WHERE order_id = $1
		ORDER BY id ASC
	`

	images := []OrderImage{}
	if err := r.db.SelectContext(ctx, &images, query, orderID); err != nil {
		return nil, fmt.Errorf("failed to list images for order %d: %w", orderID, err)
	}

	return images, nil
}

// Delete removes a single order-image row
func (r *ImageRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM order_images WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete order image %d: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrImageNotFound
	}

	return nil
}

// DeleteByOrder bulk-deletes all image rows for a work order and returns
// the number of rows removed
func (r *ImageRepo) DeleteByOrder(ctx context.Context, orderID int64) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM order_images WHERE order_id = $1`, orderID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete images for order %d: %w", orderID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	return rows, nil
}

// ListStoragePaths returns every stored path currently referenced by an
// image row. Used by the orphan-file sweep to tell live files apart from
// leftovers of interrupted writes.
func (r *ImageRepo) ListStoragePaths(ctx context.Context) ([]string, error) {
	paths := []string{}
	if err := r.db.SelectContext(ctx, &paths, `SELECT storage_path FROM order_images`); err != nil {
		return nil, fmt.Errorf("failed to list storage paths: %w", err)
	}
	return paths, nil
}

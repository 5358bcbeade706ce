package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Order repository errors
var (
	ErrOrderNotFound = errors.New("work order not found")
)

// OrderRepositoryInterface defines the interface for work-order data access
type OrderRepositoryInterface interface {
	Create(ctx context.Context, order *WorkOrder) error
	GetByID(ctx context.Context, id int64) (*WorkOrder, error)
	List(ctx context.Context) ([]WorkOrder, error)
	Update(ctx context.Context, order *WorkOrder) error
	Delete(ctx context.Context, id int64) error

	ListBrands(ctx context.Context) ([]Brand, error)
	AddBrand(ctx context.Context, name string) (int64, error)
	ListEquipmentTypes(ctx context.Context) ([]EquipmentType, error)
	AddEquipmentType(ctx context.Context, name string) (int64, error)
}

// OrderRepo implements OrderRepositoryInterface using PostgreSQL
type OrderRepo struct {
	db *sqlx.DB
}

// NewOrderRepo creates a new OrderRepo instance
func NewOrderRepo(db *sqlx.DB) *OrderRepo {
	return &OrderRepo{db: db}
}

// Create inserts a new work-order row
func (r *OrderRepo) Create(ctx context.Context, order *WorkOrder) error {
	query := `
		INSERT INTO work_orders (
			client_name, identity, phone_primary, phone_secondary,
			model, brand, brand_id, equipment_type, equipment_type_id,
			serial_number, diagnosis, repair, entry_date
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query,
		order.ClientName,
		order.Identity,
		order.PhonePrimary,
		order.PhoneSecondary,
		order.Model,
		order.Brand,
		order.BrandID,
		order.EquipmentType,
		order.EquipmentTypeID,
		order.SerialNumber,
		order.Diagnosis,
		order.Repair,
		order.EntryDate,
	).Scan(&order.ID)
	if err != nil {
		return fmt.Errorf("failed to create work order: %w", err)
	}

	return nil
}

// GetByID retrieves a single work order
func (r *OrderRepo) GetByID(ctx context.Context, id int64) (*WorkOrder, error) {
	query := `
		SELECT id, client_name, identity, phone_primary, phone_secondary,
		       model, brand, brand_id, equipment_type, equipment_type_id,
		       serial_number, diagnosis, repair, entry_date
		FROM work_orders
		WHERE id = $1
	`

	order := &WorkOrder{}
	if err := r.db.GetContext(ctx, order, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get work order %d: %w", id, err)
	}

	return order, nil
}

// List returns all work orders, newest first
func (r *OrderRepo) List(ctx context.Context) ([]WorkOrder, error) {
	query := `
		SELECT id, client_name, identity, phone_primary, phone_secondary,
		       model, brand, brand_id, equipment_type, equipment_type_id,
		       serial_number, diagnosis, repair, entry_date
		FROM work_orders
		ORDER BY id DESC
	`

	orders := []WorkOrder{}
	if err := r.db.SelectContext(ctx, &orders, query); err != nil {
		return nil, fmt.Errorf("failed to list work orders: %w", err)
	}

	return orders, nil
}

// Update replaces the mutable fields of a work-order row
func (r *OrderRepo) Update(ctx context.Context, order *WorkOrder) error {
	query := `
		UPDATE work_orders
		SET client_name = $2, identity = $3, phone_primary = $4,
		    phone_secondary = $5, model = $6, brand = $7, brand_id = $8,
		    equipment_type = $9, equipment_type_id = $10, serial_number = $11,
		    diagnosis = $12, repair = $13, entry_date = $14
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		order.ID,
		order.ClientName,
		order.Identity,
		order.PhonePrimary,
		order.PhoneSecondary,
		order.Model,
		order.Brand,
		order.BrandID,
		order.EquipmentType,
		order.EquipmentTypeID,
		order.SerialNumber,
		order.Diagnosis,
		order.Repair,
		order.EntryDate,
	)
	if err != nil {
		return fmt.Errorf("failed to update work order %d: %w", order.ID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrOrderNotFound
	}

	return nil
}

// Delete removes a work-order row. Callers are expected to have removed
// the order's images first.
func (r *OrderRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM work_orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete work order %d: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrOrderNotFound
	}

	return nil
}

// ListBrands returns all brands ordered by name
func (r *OrderRepo) ListBrands(ctx context.Context) ([]Brand, error) {
	brands := []Brand{}
	err := r.db.SelectContext(ctx, &brands, `SELECT id, name FROM brands ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list brands: %w", err)
	}
	return brands, nil
}

// AddBrand appends a brand row. Duplicates and casing are deliberately
// not checked; the reference tables are append-only from the UI.
func (r *OrderRepo) AddBrand(ctx context.Context, name string) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO brands (name) VALUES ($1) RETURNING id`, name,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to add brand: %w", err)
	}
	return id, nil
}

// ListEquipmentTypes returns all equipment types ordered by name
func (r *OrderRepo) ListEquipmentTypes(ctx context.Context) ([]EquipmentType, error) {
	types := []EquipmentType{}
	err := r.db.SelectContext(ctx, &types, `SELECT id, name FROM equipment_types ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list equipment types: %w", err)
	}
	return types, nil
}

// AddEquipmentType appends an equipment-type row
func (r *OrderRepo) AddEquipmentType(ctx context.Context, name string) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO equipment_types (name) VALUES ($1) RETURNING id`, name,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to add equipment type: %w", err)
	}
	return id, nil
}

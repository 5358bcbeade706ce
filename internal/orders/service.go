package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"

	"github.com/castellanosdev/taller-ordenes/backend/internal/format"
	"github.com/castellanosdev/taller-ordenes/backend/internal/images"
	"github.com/castellanosdev/taller-ordenes/backend/internal/metrics"
	"github.com/castellanosdev/taller-ordenes/backend/internal/repository"
)

// Service errors
var (
	ErrInvalidInput  = errors.New("invalid work order input")
	ErrOrderNotFound = errors.New("work order not found")
)

// OrderInput carries the client-supplied fields of a work order.
// Optional fields arrive as nil pointers so empty and absent stay
// distinguishable in the database.
type OrderInput struct {
	ClientName      string  `json:"client_name" validate:"required,max=200"`
	Identity        string  `json:"identity" validate:"required,max=20"`
	PhonePrimary    *string `json:"phone_primary" validate:"omitempty,max=20"`
	PhoneSecondary  *string `json:"phone_secondary" validate:"omitempty,max=20"`
	Model           *string `json:"model" validate:"omitempty,max=120"`
	Brand           *string `json:"brand" validate:"omitempty,max=120"`
	BrandID         *int64  `json:"brand_id" validate:"omitempty,gt=0"`
	EquipmentType   *string `json:"equipment_type" validate:"omitempty,max=120"`
	EquipmentTypeID *int64  `json:"equipment_type_id" validate:"omitempty,gt=0"`
	SerialNumber    *string `json:"serial_number" validate:"omitempty,max=120"`
	Diagnosis       *string `json:"diagnosis"`
	Repair          *string `json:"repair"`
	EntryDate       *time.Time
}

// OrderView is the read model of a work order. Identity and phone
// numbers carry display formatting, which survives re-formatting of
// already stored formatted values.
type OrderView struct {
	ID              int64              `json:"id"`
	ClientName      string             `json:"client_name"`
	Identity        string             `json:"identity"`
	PhonePrimary    *string            `json:"phone_primary"`
	PhoneSecondary  *string            `json:"phone_secondary"`
	Model           *string            `json:"model"`
	Brand           *string            `json:"brand"`
	BrandID         *int64             `json:"brand_id"`
	EquipmentType   *string            `json:"equipment_type"`
	EquipmentTypeID *int64             `json:"equipment_type_id"`
	SerialNumber    *string            `json:"serial_number"`
	Diagnosis       *string            `json:"diagnosis"`
	Repair          *string            `json:"repair"`
	EntryDate       time.Time          `json:"entry_date"`
	Images          []images.ImageView `json:"images,omitempty"`
}

// Service implements the work-order business logic
type Service struct {
	orders   repository.OrderRepositoryInterface
	images   *images.Service
	validate *validator.Validate
	policy   *bluemonday.Policy
	logger   *slog.Logger
}

// NewService creates a new Service instance
func NewService(orders repository.OrderRepositoryInterface, imageService *images.Service, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		orders:   orders,
		images:   imageService,
		validate: validator.New(),
		// Diagnosis and repair notes are free text typed by staff;
		// strip all markup before it reaches the database.
		policy: bluemonday.StrictPolicy(),
		logger: logger,
	}
}

// sanitize strips markup from an optional free-text field
func (s *Service) sanitize(text *string) *string {
	if text == nil {
		return nil
	}
	clean := s.policy.Sanitize(*text)
	return &clean
}

func (s *Service) toRecord(input OrderInput) *repository.WorkOrder {
	entryDate := time.Now().UTC()
	if input.EntryDate != nil {
		entryDate = *input.EntryDate
	}
	return &repository.WorkOrder{
		ClientName:      input.ClientName,
		Identity:        input.Identity,
		PhonePrimary:    input.PhonePrimary,
		PhoneSecondary:  input.PhoneSecondary,
		Model:           input.Model,
		Brand:           input.Brand,
		BrandID:         input.BrandID,
		EquipmentType:   input.EquipmentType,
		EquipmentTypeID: input.EquipmentTypeID,
		SerialNumber:    input.SerialNumber,
		Diagnosis:       s.sanitize(input.Diagnosis),
		Repair:          s.sanitize(input.Repair),
		EntryDate:       entryDate,
	}
}

// Save validates and persists a new work order, then attaches the
// uploaded images. The order row is kept even when attaching images
// fails; the error tells the caller the attachment is incomplete.
func (s *Service) Save(ctx context.Context, input OrderInput, files []images.Upload) (int64, error) {
	if err := s.validate.Struct(input); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	order := s.toRecord(input)
	if err := s.orders.Create(ctx, order); err != nil {
		return 0, err
	}

	metrics.OrdersCreated.Inc()
	s.logger.Info("work order created",
		slog.Int64("order_id", order.ID),
		slog.Int("image_count", len(files)),
	)

	if len(files) > 0 {
		if _, err := s.images.SaveOrderImages(ctx, order.ID, files); err != nil {
			return order.ID, fmt.Errorf("order %d created but image attachment failed: %w", order.ID, err)
		}
	}

	return order.ID, nil
}

// Update replaces an order's fields and attaches any additional
// images. Failures are logged and reported as a boolean so callers can
// surface a yes/no outcome to the UI.
func (s *Service) Update(ctx context.Context, id int64, input OrderInput, files []images.Upload) bool {
	if id <= 0 {
		return false
	}
	if err := s.validate.Struct(input); err != nil {
		s.logger.Warn("work order update rejected",
			slog.Int64("order_id", id),
			slog.String("error", err.Error()),
		)
		return false
	}

	order := s.toRecord(input)
	order.ID = id
	if err := s.orders.Update(ctx, order); err != nil {
		s.logger.Error("work order update failed",
			slog.Int64("order_id", id),
			slog.String("error", err.Error()),
		)
		return false
	}

	if len(files) > 0 {
		if _, err := s.images.SaveOrderImages(ctx, id, files); err != nil {
			s.logger.Error("image attachment failed on update",
				slog.Int64("order_id", id),
				slog.String("error", err.Error()),
			)
			return false
		}
	}

	return true
}

// Delete removes an order and everything attached to it. Images go
// first: if their removal errors out the order row is left in place so
// no files are ever stranded without a reachable owner.
func (s *Service) Delete(ctx context.Context, id int64) bool {
	if id <= 0 {
		return false
	}

	if err := s.images.DeleteOrderImagesForOrder(ctx, id); err != nil {
		s.logger.Error("order delete aborted, image cleanup failed",
			slog.Int64("order_id", id),
			slog.String("error", err.Error()),
		)
		return false
	}

	if err := s.orders.Delete(ctx, id); err != nil {
		if !errors.Is(err, repository.ErrOrderNotFound) {
			s.logger.Error("work order delete failed",
				slog.Int64("order_id", id),
				slog.String("error", err.Error()),
			)
		}
		return false
	}

	metrics.OrdersDeleted.Inc()
	s.logger.Info("work order deleted", slog.Int64("order_id", id))
	return true
}

// Get returns a single order with its images and display formatting
func (s *Service) Get(ctx context.Context, id int64) (*OrderView, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	view := s.toView(order)
	imgs, err := s.images.GetOrderImages(ctx, id)
	if err != nil {
		return nil, err
	}
	view.Images = imgs

	return view, nil
}

// List returns all orders, newest first, without their images
func (s *Service) List(ctx context.Context) ([]OrderView, error) {
	records, err := s.orders.List(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]OrderView, 0, len(records))
	for i := range records {
		views = append(views, *s.toView(&records[i]))
	}
	return views, nil
}

func (s *Service) toView(order *repository.WorkOrder) *OrderView {
	return &OrderView{
		ID:              order.ID,
		ClientName:      order.ClientName,
		Identity:        format.FormatIdentity(order.Identity),
		PhonePrimary:    formatPhonePtr(order.PhonePrimary),
		PhoneSecondary:  formatPhonePtr(order.PhoneSecondary),
		Model:           order.Model,
		Brand:           order.Brand,
		BrandID:         order.BrandID,
		EquipmentType:   order.EquipmentType,
		EquipmentTypeID: order.EquipmentTypeID,
		SerialNumber:    order.SerialNumber,
		Diagnosis:       order.Diagnosis,
		Repair:          order.Repair,
		EntryDate:       order.EntryDate,
	}
}

func formatPhonePtr(phone *string) *string {
	if phone == nil {
		return nil
	}
	formatted := format.FormatPhoneNumber(*phone)
	return &formatted
}

// ListBrands returns the brand reference table
func (s *Service) ListBrands(ctx context.Context) ([]repository.Brand, error) {
	return s.orders.ListBrands(ctx)
}

// AddBrand appends a brand. The table is append-only; duplicates are
// accepted as typed.
func (s *Service) AddBrand(ctx context.Context, name string) (int64, error) {
	if name == "" {
		return 0, fmt.Errorf("%w: brand name is required", ErrInvalidInput)
	}
	return s.orders.AddBrand(ctx, name)
}

// ListEquipmentTypes returns the equipment-type reference table
func (s *Service) ListEquipmentTypes(ctx context.Context) ([]repository.EquipmentType, error) {
	return s.orders.ListEquipmentTypes(ctx)
}

// AddEquipmentType appends an equipment type
func (s *Service) AddEquipmentType(ctx context.Context, name string) (int64, error) {
	if name == "" {
		return 0, fmt.Errorf("%w: equipment type name is required", ErrInvalidInput)
	}
	return s.orders.AddEquipmentType(ctx, name)
}

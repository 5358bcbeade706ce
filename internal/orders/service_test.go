package orders

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/castellanosdev/taller-ordenes/backend/internal/images"
	"github.com/castellanosdev/taller-ordenes/backend/internal/repository"
	"github.com/castellanosdev/taller-ordenes/backend/internal/storage"
)

// Mock implementations for testing

type mockOrderRepo struct {
	orders map[int64]*repository.WorkOrder
	nextID int64
	brands []repository.Brand
	types  []repository.EquipmentType
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{
		orders: make(map[int64]*repository.WorkOrder),
		nextID: 1,
	}
}

func (m *mockOrderRepo) Create(ctx context.Context, order *repository.WorkOrder) error {
	order.ID = m.nextID
	m.nextID++
	copied := *order
	m.orders[order.ID] = &copied
	return nil
}

func (m *mockOrderRepo) GetByID(ctx context.Context, id int64) (*repository.WorkOrder, error) {
	if order, ok := m.orders[id]; ok {
		copied := *order
		return &copied, nil
	}
	return nil, repository.ErrOrderNotFound
}

func (m *mockOrderRepo) List(ctx context.Context) ([]repository.WorkOrder, error) {
	var out []repository.WorkOrder
	for id := m.nextID - 1; id >= 1; id-- {
		if order, ok := m.orders[id]; ok {
			out = append(out, *order)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) Update(ctx context.Context, order *repository.WorkOrder) error {
	if _, ok := m.orders[order.ID]; !ok {
		return repository.ErrOrderNotFound
	}
	copied := *order
	m.orders[order.ID] = &copied
	return nil
}

func (m *mockOrderRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := m.orders[id]; !ok {
		return repository.ErrOrderNotFound
	}
	delete(m.orders, id)
	return nil
}

func (m *mockOrderRepo) ListBrands(ctx context.Context) ([]repository.Brand, error) {
	return m.brands, nil
}

func (m *mockOrderRepo) AddBrand(ctx context.Context, name string) (int64, error) {
	id := int64(len(m.brands) + 1)
	m.brands = append(m.brands, repository.Brand{ID: id, Name: name})
	return id, nil
}

func (m *mockOrderRepo) ListEquipmentTypes(ctx context.Context) ([]repository.EquipmentType, error) {
	return m.types, nil
}

func (m *mockOrderRepo) AddEquipmentType(ctx context.Context, name string) (int64, error) {
	id := int64(len(m.types) + 1)
	m.types = append(m.types, repository.EquipmentType{ID: id, Name: name})
	return id, nil
}

type mockImageRepo struct {
	images  map[int64]*repository.OrderImage
	nextID  int64
	listErr error
}

func newMockImageRepo() *mockImageRepo {
	return &mockImageRepo{
		images: make(map[int64]*repository.OrderImage),
		nextID: 1,
	}
}

func (m *mockImageRepo) Create(ctx context.Context, image *repository.OrderImage) error {
	image.ID = m.nextID
	m.nextID++
	copied := *image
	m.images[image.ID] = &copied
	return nil
}

func (m *mockImageRepo) GetByID(ctx context.Context, id int64) (*repository.OrderImage, error) {
	if image, ok := m.images[id]; ok {
		copied := *image
		return &copied, nil
	}
	return nil, repository.ErrImageNotFound
}

func (m *mockImageRepo) ListByOrder(ctx context.Context, orderID int64) ([]repository.OrderImage, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []repository.OrderImage
	for _, image := range m.images {
		if image.OrderID == orderID {
			out = append(out, *image)
		}
	}
	return out, nil
}

func (m *mockImageRepo) Delete(ctx context.Context, id int64) error {
	delete(m.images, id)
	return nil
}

func (m *mockImageRepo) DeleteByOrder(ctx context.Context, orderID int64) (int64, error) {
	var removed int64
	for id, image := range m.images {
		if image.OrderID == orderID {
			delete(m.images, id)
			removed++
		}
	}
	return removed, nil
}

func (m *mockImageRepo) ListStoragePaths(ctx context.Context) ([]string, error) {
	var paths []string
	for _, image := range m.images {
		paths = append(paths, image.StoragePath)
	}
	return paths, nil
}

type memStore struct {
	files map[string][]byte
}

func (m *memStore) Save(ctx context.Context, relPath string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.files[relPath] = data
	return nil
}

func (m *memStore) Open(ctx context.Context, relPath string) (io.ReadCloser, error) {
	data, ok := m.files[relPath]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memStore) Delete(ctx context.Context, relPath string) error {
	if _, ok := m.files[relPath]; !ok {
		return storage.ErrNotFound
	}
	delete(m.files, relPath)
	return nil
}

func (m *memStore) DeleteDir(ctx context.Context, relPath string) error {
	for p := range m.files {
		if strings.HasPrefix(p, relPath+"/") {
			delete(m.files, p)
		}
	}
	return nil
}

func (m *memStore) RemoveDirIfEmpty(ctx context.Context, relPath string) error { return nil }

func (m *memStore) List(ctx context.Context, prefix string) ([]string, error) {
	var paths []string
	for p := range m.files {
		if strings.HasPrefix(p, prefix+"/") {
			paths = append(paths, p)
		}
	}
	return paths, nil
}

func newTestService(t *testing.T) (*Service, *mockOrderRepo, *mockImageRepo, *memStore) {
	t.Helper()
	orderRepo := newMockOrderRepo()
	imageRepo := newMockImageRepo()
	store := &memStore{files: make(map[string][]byte)}
	imageService := images.NewService(imageRepo, store, "https://taller.example.com", nil)
	return NewService(orderRepo, imageService, nil), orderRepo, imageRepo, store
}

func strPtr(s string) *string { return &s }

func validInput() OrderInput {
	return OrderInput{
		ClientName:   "Juan Pérez",
		Identity:     "0801199012345",
		PhonePrimary: strPtr("98765432"),
		Model:        strPtr("ThinkPad T14"),
	}
}

func TestSaveCreatesOrder(t *testing.T) {
	svc, orderRepo, _, _ := newTestService(t)

	id, err := svc.Save(context.Background(), validInput(), nil)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if id != 1 {
		t.Errorf("Expected id 1, got %d", id)
	}
	if _, ok := orderRepo.orders[id]; !ok {
		t.Error("Expected order row to exist")
	}
}

func TestSaveRejectsInvalidInput(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	input := validInput()
	input.ClientName = ""

	if _, err := svc.Save(context.Background(), input, nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestSaveStripsMarkupFromFreeText(t *testing.T) {
	svc, orderRepo, _, _ := newTestService(t)

	input := validInput()
	input.Diagnosis = strPtr("<b>pantalla</b> rota")
	input.Repair = strPtr("<script>alert(1)</script>cambio de panel")

	id, err := svc.Save(context.Background(), input, nil)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	order := orderRepo.orders[id]
	if got := *order.Diagnosis; strings.Contains(got, "<") {
		t.Errorf("Expected markup stripped from diagnosis, got %q", got)
	}
	if got := *order.Repair; strings.Contains(got, "script") || strings.Contains(got, "alert") {
		t.Errorf("Expected script stripped from repair, got %q", got)
	}
}

func TestSaveAttachesImages(t *testing.T) {
	svc, _, imageRepo, _ := newTestService(t)

	files := []images.Upload{
		{Filename: "frente.jpg", ContentType: "image/jpeg", Content: strings.NewReader("a")},
		{Filename: "dorso.jpg", ContentType: "image/jpeg", Content: strings.NewReader("b")},
	}

	id, err := svc.Save(context.Background(), validInput(), files)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if len(imageRepo.images) != 2 {
		t.Errorf("Expected 2 image rows, got %d", len(imageRepo.images))
	}
	for _, image := range imageRepo.images {
		if image.OrderID != id {
			t.Errorf("Expected image bound to order %d, got %d", id, image.OrderID)
		}
	}
}

func TestUpdate(t *testing.T) {
	svc, orderRepo, _, _ := newTestService(t)

	id, err := svc.Save(context.Background(), validInput(), nil)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	input := validInput()
	input.ClientName = "María López"

	if ok := svc.Update(context.Background(), id, input, nil); !ok {
		t.Fatal("Expected update to succeed")
	}
	if got := orderRepo.orders[id].ClientName; got != "María López" {
		t.Errorf("Expected updated name, got %q", got)
	}

	if ok := svc.Update(context.Background(), 0, input, nil); ok {
		t.Error("Expected update with id 0 to report false")
	}
	if ok := svc.Update(context.Background(), 999, input, nil); ok {
		t.Error("Expected update of unknown order to report false")
	}
}

func TestDeleteRemovesImagesFirst(t *testing.T) {
	svc, orderRepo, imageRepo, store := newTestService(t)

	id, err := svc.Save(context.Background(), validInput(), []images.Upload{
		{Filename: "x.jpg", ContentType: "image/jpeg", Content: strings.NewReader("x")},
	})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if ok := svc.Delete(context.Background(), id); !ok {
		t.Fatal("Expected delete to succeed")
	}
	if len(orderRepo.orders) != 0 {
		t.Error("Expected order row removed")
	}
	if len(imageRepo.images) != 0 {
		t.Error("Expected image rows removed")
	}
	if len(store.files) != 0 {
		t.Error("Expected image files removed")
	}
}

func TestDeleteAbortsWhenImageCleanupFails(t *testing.T) {
	svc, orderRepo, imageRepo, _ := newTestService(t)

	id, err := svc.Save(context.Background(), validInput(), nil)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	imageRepo.listErr = errors.New("db down")

	if ok := svc.Delete(context.Background(), id); ok {
		t.Fatal("Expected delete to abort when image cleanup fails")
	}
	if _, ok := orderRepo.orders[id]; !ok {
		t.Error("Expected order row to survive an aborted delete")
	}
}

func TestDeleteUnknownOrder(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	if ok := svc.Delete(context.Background(), 42); ok {
		t.Error("Expected delete of unknown order to report false")
	}
	if ok := svc.Delete(context.Background(), -1); ok {
		t.Error("Expected delete with negative id to report false")
	}
}

func TestGetFormatsIdentityAndPhones(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	id, err := svc.Save(context.Background(), validInput(), nil)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	view, err := svc.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if view.Identity != "0801-1990-12345" {
		t.Errorf("Expected formatted identity, got %q", view.Identity)
	}
	if got := *view.PhonePrimary; got != "9876-5432" {
		t.Errorf("Expected formatted phone, got %q", got)
	}
}

func TestGetUnknownOrder(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	if _, err := svc.Get(context.Background(), 404); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("Expected ErrOrderNotFound, got %v", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	for i := 0; i < 3; i++ {
		input := validInput()
		now := time.Now().UTC()
		input.EntryDate = &now
		if _, err := svc.Save(context.Background(), input, nil); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	views, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(views) != 3 {
		t.Fatalf("Expected 3 orders, got %d", len(views))
	}
	if views[0].ID != 3 || views[2].ID != 1 {
		t.Errorf("Expected newest first ordering, got ids %d,%d,%d", views[0].ID, views[1].ID, views[2].ID)
	}
}

func TestReferenceTablesAppendOnly(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.AddBrand(ctx, "Samsung"); err != nil {
		t.Fatalf("AddBrand failed: %v", err)
	}
	// Duplicates are accepted as typed.
	if _, err := svc.AddBrand(ctx, "Samsung"); err != nil {
		t.Fatalf("AddBrand duplicate failed: %v", err)
	}
	if _, err := svc.AddBrand(ctx, ""); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for empty brand, got %v", err)
	}

	brands, err := svc.ListBrands(ctx)
	if err != nil {
		t.Fatalf("ListBrands failed: %v", err)
	}
	if len(brands) != 2 {
		t.Errorf("Expected 2 brand rows, got %d", len(brands))
	}

	if _, err := svc.AddEquipmentType(ctx, "Laptop"); err != nil {
		t.Fatalf("AddEquipmentType failed: %v", err)
	}
	types, err := svc.ListEquipmentTypes(ctx)
	if err != nil {
		t.Fatalf("ListEquipmentTypes failed: %v", err)
	}
	if len(types) != 1 {
		t.Errorf("Expected 1 equipment type, got %d", len(types))
	}
}

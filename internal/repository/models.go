package repository

import (
	"time"
)

// User represents a staff account in the database.
// Accounts are created by seeding, not through the application.
type User struct {
	ID           int64     `db:"id"`
	Username     string    `db:"username"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}

// Session represents an authentication session in the database.
// The ID is the opaque token handed to the client; expiry is a rolling
// window that slides forward on every verified request.
type Session struct {
	ID           string    `db:"id"`
	UserID       int64     `db:"user_id"`
	IPAddress    string    `db:"ip_address"`
	UserAgent    string    `db:"user_agent"`
	LastActivity time.Time `db:"last_activity"`
	ExpiresAt    time.Time `db:"expires_at"`
	CreatedAt    time.Time `db:"created_at"`
}

// RememberToken represents a long-lived credential used to silently
// mint a fresh session. Its expiry is fixed at creation, never slid.
type RememberToken struct {
	ID        int64     `db:"id"`
	Token     string    `db:"token"`
	UserID    int64     `db:"user_id"`
	CreatedAt time.Time `db:"created_at"`
	ExpiresAt time.Time `db:"expires_at"`
}

// WorkOrder is the core business record describing a customer's
// equipment repair request.
type WorkOrder struct {
	ID              int64     `db:"id"`
	ClientName      string    `db:"client_name"`
	Identity        string    `db:"identity"`
	PhonePrimary    *string   `db:"phone_primary"`
	PhoneSecondary  *string   `db:"phone_secondary"`
	Model           *string   `db:"model"`
	Brand           *string   `db:"brand"`
	BrandID         *int64    `db:"brand_id"`
	EquipmentType   *string   `db:"equipment_type"`
	EquipmentTypeID *int64    `db:"equipment_type_id"`
	SerialNumber    *string   `db:"serial_number"`
	Diagnosis       *string   `db:"diagnosis"`
	Repair          *string   `db:"repair"`
	EntryDate       time.Time `db:"entry_date"`
}

// OrderImage is an evidence photo attached to a work order: a row
// pointing at a file held by the storage backend.
type OrderImage struct {
	ID          int64     `db:"id"`
	OrderID     int64     `db:"order_id"`
	Filename    string    `db:"filename"`
	ContentType string    `db:"content_type"`
	StoragePath string    `db:"storage_path"`
	CreatedAt   time.Time `db:"created_at"`
}

// Brand is a reference lookup row for the brand dropdown.
type Brand struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

// EquipmentType is a reference lookup row for the equipment-type dropdown.
type EquipmentType struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

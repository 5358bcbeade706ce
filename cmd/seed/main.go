// Package main seeds the database with the staff account and the
// reference tables backing the brand and equipment-type dropdowns.
// Reference rows are only inserted into empty tables so re-running the
// tool never duplicates them.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/castellanosdev/taller-ordenes/backend/internal/auth"
	"github.com/castellanosdev/taller-ordenes/backend/internal/config"
)

var brands = []string{
	"ADATA", "Acer", "AMD", "Apple", "Asus", "Beats", "Bose", "Brother",
	"Canon", "Corsair", "DJI", "Dell", "Epson", "Fitbit", "Fujifilm",
	"Garmin", "Gigabyte", "HP", "Huawei", "Intel", "JBL", "Kingston",
	"LG", "Lenovo", "Logitech", "Microsoft", "Motorola", "MSI", "Nikon",
	"Nokia", "NVIDIA", "OnePlus", "Olympus", "Oppo", "Panasonic",
	"Philips", "Razer", "Realme", "Samsung", "SanDisk", "Seagate",
	"Sennheiser", "Sony", "TP-Link", "Toshiba", "Ubiquiti", "Vivo",
	"Western Digital", "Xiaomi", "Marvo",
}

var equipmentTypes = []string{
	"Adaptador Wi-Fi", "Altavoces", "Auriculares", "Cámara digital",
	"Consola de videojuegos", "Control remoto", "Desktop",
	"Disco duro externo", "Drone", "Escáner", "Impresora", "Laptop",
	"Memoria USB", "Micrófono", "Monitor", "Mouse", "Proyector",
	"Reproductor Blu-ray", "Reproductor multimedia", "Router", "SSD",
	"Sistema de sonido", "Smartphone", "Smartwatch", "Tablet",
	"Tarjeta gráfica", "Teclado", "Televisión", "UPS", "Videocámara",
}

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := sqlx.ConnectContext(ctx, "pgx", cfg.Database.DSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := seedReferenceTable(ctx, db, "brands", brands); err != nil {
		log.Fatalf("Failed to seed brands: %v", err)
	}
	if err := seedReferenceTable(ctx, db, "equipment_types", equipmentTypes); err != nil {
		log.Fatalf("Failed to seed equipment types: %v", err)
	}
	if err := seedStaffUser(ctx, db); err != nil {
		log.Fatalf("Failed to seed staff user: %v", err)
	}

	log.Println("Seed completed")
}

// seedReferenceTable fills a name-only lookup table if it is empty
func seedReferenceTable(ctx context.Context, db *sqlx.DB, table string, names []string) error {
	var count int
	if err := db.GetContext(ctx, &count, "SELECT COUNT(*) FROM "+table); err != nil {
		return err
	}
	if count > 0 {
		log.Printf("Table %s already has %d rows, skipping", table, count)
		return nil
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, name := range names {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO "+table+" (name) VALUES ($1)", name); err != nil {
			return fmt.Errorf("insert %q: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	log.Printf("Seeded %d rows into %s", len(names), table)
	return nil
}

// seedStaffUser creates the staff account from SEED_USERNAME and
// SEED_PASSWORD. Skipped when the username already exists.
func seedStaffUser(ctx context.Context, db *sqlx.DB) error {
	username := os.Getenv("SEED_USERNAME")
	password := os.Getenv("SEED_PASSWORD")
	if username == "" || password == "" {
		log.Println("SEED_USERNAME/SEED_PASSWORD not set, skipping staff user")
		return nil
	}

	var count int
	if err := db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM users WHERE username = $1", username); err != nil {
		return err
	}
	if count > 0 {
		log.Printf("User %q already exists, skipping", username)
		return nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	if _, err := db.ExecContext(ctx,
		"INSERT INTO users (username, password_hash) VALUES ($1, $2)",
		username, hash); err != nil {
		return err
	}

	log.Printf("Created staff user %q", username)
	return nil
}

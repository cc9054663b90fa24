// ABOUTME: SQLite-backed pharmacy catalog using modernc.org/sqlite
// ABOUTME: Serves lookups locally and persists completed registrations

package pharmacy

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLiteCatalog implements Catalog against a local SQLite database.
// It also accepts new pharmacy records collected by the registration flow.
type SQLiteCatalog struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteCatalog opens (or creates) a catalog database at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteCatalog(path string) (*SQLiteCatalog, error) {
	logger := slog.Default().With("component", "catalog")

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	c := &SQLiteCatalog{
		db:     db,
		logger: logger,
	}

	if err := c.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return c, nil
}

// createSchema creates the catalog tables if they don't exist.
// Prescriptions are stored as a JSON column; the catalog is read far more
// often than it is written and is always loaded whole.
func (c *SQLiteCatalog) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS pharmacies (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		phone TEXT NOT NULL,
		email TEXT,
		city TEXT NOT NULL,
		state TEXT NOT NULL,
		prescriptions TEXT NOT NULL DEFAULT '[]'
	);
	CREATE INDEX IF NOT EXISTS idx_pharmacies_phone ON pharmacies(phone);
	`
	if _, err := c.db.Exec(schema); err != nil {
		return err
	}
	return nil
}

// Pharmacies returns all catalog records.
func (c *SQLiteCatalog) Pharmacies(ctx context.Context) ([]Pharmacy, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, name, phone, COALESCE(email, ''), city, state, prescriptions FROM pharmacies ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: querying pharmacies: %w", ErrUnavailable, err)
	}
	defer rows.Close()

	var pharmacies []Pharmacy
	for rows.Next() {
		var p Pharmacy
		var prescriptionsJSON string
		if err := rows.Scan(&p.ID, &p.Name, &p.Phone, &p.Email, &p.City, &p.State, &prescriptionsJSON); err != nil {
			return nil, fmt.Errorf("scanning pharmacy row: %w", err)
		}
		if err := json.Unmarshal([]byte(prescriptionsJSON), &p.Prescriptions); err != nil {
			c.logger.Warn("skipping malformed prescriptions column", "pharmacy_id", p.ID, "error", err)
			p.Prescriptions = nil
		}
		pharmacies = append(pharmacies, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating pharmacies: %w", ErrUnavailable, err)
	}

	return pharmacies, nil
}

// Insert stores a new pharmacy record and returns it with its assigned ID.
func (c *SQLiteCatalog) Insert(ctx context.Context, p Pharmacy) (Pharmacy, error) {
	prescriptionsJSON, err := json.Marshal(p.Prescriptions)
	if err != nil {
		return Pharmacy{}, fmt.Errorf("encoding prescriptions: %w", err)
	}

	result, err := c.db.ExecContext(ctx,
		`INSERT INTO pharmacies (name, phone, email, city, state, prescriptions) VALUES (?, ?, ?, ?, ?, ?)`,
		p.Name, p.Phone, p.Email, p.City, p.State, string(prescriptionsJSON))
	if err != nil {
		return Pharmacy{}, fmt.Errorf("inserting pharmacy: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return Pharmacy{}, fmt.Errorf("reading inserted id: %w", err)
	}
	p.ID = int(id)

	c.logger.Info("pharmacy registered", "pharmacy_id", p.ID, "name", p.Name)
	return p, nil
}

// Close closes the underlying database.
func (c *SQLiteCatalog) Close() error {
	return c.db.Close()
}

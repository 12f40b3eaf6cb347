package source

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrUnknown is returned when a dataset name has no row in the sources table.
var ErrUnknown = errors.New("unknown dataset")

// Record is one row of the sources table.
type Record struct {
	Name        string  `json:"name"`
	Location    string  `json:"location"`
	Encoding    string  `json:"encoding"`
	Description string  `json:"description"`
	LastFetch   *int64  `json:"last_fetch,omitempty"`
	FetchStatus *int    `json:"fetch_status,omitempty"`
	FetchError  *string `json:"fetch_error,omitempty"`
	LastCheck   *int64  `json:"last_check,omitempty"`
	CheckStatus *int    `json:"check_status,omitempty"`
	CheckError  *string `json:"check_error,omitempty"`
	UpdatedAt   int64   `json:"updated_at"`
}

// Spec returns the acquisition spec described by the record.
func (r Record) Spec() Spec {
	return Spec{Name: r.Name, Location: r.Location, Encoding: r.Encoding, Description: r.Description}
}

// DB persists dataset locations and the outcome of fetches and checks.
type DB struct {
	db *sql.DB
}

// OpenDB opens (or creates) the SQLite database at path and ensures the
// sources table exists.
func OpenDB(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create source db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open source db: %w", err)
	}

	const ddl = `CREATE TABLE IF NOT EXISTS sources (
		name          TEXT PRIMARY KEY,
		location      TEXT NOT NULL,
		encoding      TEXT NOT NULL DEFAULT '',
		description   TEXT NOT NULL DEFAULT '',
		last_fetch    INTEGER,
		fetch_status  INTEGER,
		fetch_error   TEXT,
		last_check    INTEGER,
		check_status  INTEGER,
		check_error   TEXT,
		updated_at    INTEGER NOT NULL
	)`
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("create sources table: %w", err)
	}
	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

// Seed inserts a row per spec. Existing rows are left untouched so that
// locations changed with Set survive restarts.
func (d *DB) Seed(specs ...Spec) error {
	const q = `INSERT OR IGNORE INTO sources
		(name, location, encoding, description, updated_at)
		VALUES (?, ?, ?, ?, ?)`

	now := time.Now().Unix()
	for _, s := range specs {
		if _, err := d.db.Exec(q, s.Name, s.Location, s.Encoding, s.Description, now); err != nil {
			return fmt.Errorf("seed %s: %w", s.Name, err)
		}
	}
	return nil
}

// Get returns the acquisition spec stored for name.
func (d *DB) Get(name string) (Spec, error) {
	var s Spec
	err := d.db.QueryRow(`SELECT name, location, encoding, description FROM sources WHERE name = ?`, name).
		Scan(&s.Name, &s.Location, &s.Encoding, &s.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return Spec{}, fmt.Errorf("get %s: %w", name, ErrUnknown)
	}
	if err != nil {
		return Spec{}, fmt.Errorf("get %s: %w", name, err)
	}
	return s, nil
}

// Set changes the location of an existing dataset.
func (d *DB) Set(name, location string) error {
	res, err := d.db.Exec(
		`UPDATE sources SET location = ?, updated_at = ? WHERE name = ?`,
		location, time.Now().Unix(), name,
	)
	if err != nil {
		return fmt.Errorf("set location for %s: %w", name, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("set location for %s: %w", name, ErrUnknown)
	}
	return nil
}

// RecordFetch persists the outcome of a fetch.
func (d *DB) RecordFetch(name string, status int, fetchErr string) error {
	_, err := d.db.Exec(
		`UPDATE sources SET last_fetch = ?, fetch_status = ?, fetch_error = ? WHERE name = ?`,
		time.Now().Unix(), status, nullable(fetchErr), name,
	)
	if err != nil {
		return fmt.Errorf("record fetch for %s: %w", name, err)
	}
	return nil
}

// UpdateCheck persists the result of an availability check.
func (d *DB) UpdateCheck(name string, status int, checkErr string) error {
	_, err := d.db.Exec(
		`UPDATE sources SET last_check = ?, check_status = ?, check_error = ? WHERE name = ?`,
		time.Now().Unix(), status, nullable(checkErr), name,
	)
	if err != nil {
		return fmt.Errorf("update check for %s: %w", name, err)
	}
	return nil
}

// List returns all rows ordered by name.
func (d *DB) List() ([]Record, error) {
	rows, err := d.db.Query(`SELECT name, location, encoding, description,
		last_fetch, fetch_status, fetch_error, last_check, check_status, check_error, updated_at
		FROM sources ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Name, &r.Location, &r.Encoding, &r.Description,
			&r.LastFetch, &r.FetchStatus, &r.FetchError,
			&r.LastCheck, &r.CheckStatus, &r.CheckError, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

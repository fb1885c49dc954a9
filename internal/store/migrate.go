package store

import "database/sql"

// Migrate brings the schema up to date. Sqlite tracks the version through
// PRAGMA user_version; postgres relies on CREATE TABLE IF NOT EXISTS since
// the schema has a single version so far.
func (d *DB) Migrate() error {
	if d.driver == DriverPostgres {
		return migratePostgres(d.Pool)
	}
	return migrateSQLite(d.Pool)
}

func migrateSQLite(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return err
	}

	if v >= 1 {
		return tx.Commit()
	}

	// ---- Schema v1: tables ----

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS listings (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  title TEXT NOT NULL,
  address TEXT NOT NULL,
  neighborhood TEXT NOT NULL,
  price INTEGER NOT NULL,
  first_published_at TEXT NOT NULL,
  last_seen_at TEXT NOT NULL,
  removed_at TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  repost_count INTEGER NOT NULL DEFAULT 0
);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS publication_periods (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  listing_id INTEGER NOT NULL REFERENCES listings(id),
  published_at TEXT NOT NULL,
  removed_at TEXT,
  days_online INTEGER
);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS import_logs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  imported_at TEXT NOT NULL,
  ads_found INTEGER NOT NULL DEFAULT 0,
  new_count INTEGER NOT NULL DEFAULT 0,
  updated_count INTEGER NOT NULL DEFAULT 0,
  capture TEXT NOT NULL DEFAULT ''
);
`); err != nil {
		return err
	}

	// ---- Schema v1: indexes ----

	if _, err := tx.Exec(`
CREATE INDEX IF NOT EXISTS idx_listings_identity
ON listings(title, address, price);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE INDEX IF NOT EXISTS idx_listings_active_seen
ON listings(is_active, last_seen_at);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE INDEX IF NOT EXISTS idx_periods_listing
ON publication_periods(listing_id);
`); err != nil {
		return err
	}

	// Mark schema v1
	if _, err := tx.Exec(`PRAGMA user_version = 1;`); err != nil {
		return err
	}

	return tx.Commit()
}

func migratePostgres(db *sql.DB) error {
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS listings (
  id SERIAL PRIMARY KEY,
  title TEXT NOT NULL,
  address TEXT NOT NULL,
  neighborhood TEXT NOT NULL,
  price INTEGER NOT NULL,
  first_published_at TEXT NOT NULL,
  last_seen_at TEXT NOT NULL,
  removed_at TEXT,
  is_active BOOLEAN NOT NULL DEFAULT TRUE,
  repost_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS publication_periods (
  id SERIAL PRIMARY KEY,
  listing_id INTEGER NOT NULL REFERENCES listings(id),
  published_at TEXT NOT NULL,
  removed_at TEXT,
  days_online INTEGER
);

CREATE TABLE IF NOT EXISTS import_logs (
  id SERIAL PRIMARY KEY,
  imported_at TEXT NOT NULL,
  ads_found INTEGER NOT NULL DEFAULT 0,
  new_count INTEGER NOT NULL DEFAULT 0,
  updated_count INTEGER NOT NULL DEFAULT 0,
  capture TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_listings_identity ON listings(title, address, price);
CREATE INDEX IF NOT EXISTS idx_listings_active_seen ON listings(is_active, last_seen_at);
CREATE INDEX IF NOT EXISTS idx_periods_listing ON publication_periods(listing_id);
`)
	return err
}

// Package store persists listings, publication periods and import logs.
// It speaks two dialects: embedded sqlite for local runs and postgres for a
// shared deployment. Queries are written once with ? placeholders and
// rebound for postgres.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type DB struct {
	Pool   *sql.DB
	driver string
}

// Open opens (or creates) the embedded sqlite database at path.
func Open(path string) (*DB, error) {
	// modernc sqlite uses DSN like: file:foo.db?_pragma=busy_timeout(5000)
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)

	pool, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// sqlite typically wants 1 writer
	pool.SetMaxOpenConns(1)
	pool.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := pool.PingContext(ctx); err != nil {
		_ = pool.Close()
		return nil, err
	}

	return &DB{Pool: pool, driver: DriverSQLite}, nil
}

// OpenPostgres connects to a shared postgres instance. The ping is retried
// because the database container often comes up after the engine does.
func OpenPostgres(ctx context.Context, dsn string) (*DB, error) {
	pool, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	err = retry.Do(
		func() error { return pool.PingContext(ctx) },
		retry.Attempts(10),
		retry.Delay(time.Second),
		retry.MaxDelay(30*time.Second),
		retry.Context(ctx),
	)
	if err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	return &DB{Pool: pool, driver: DriverPostgres}, nil
}

func (d *DB) Driver() string { return d.driver }

func (d *DB) Close() error {
	if d == nil || d.Pool == nil {
		return nil
	}
	return d.Pool.Close()
}

// Checkpoint flushes the sqlite WAL. A no-op on postgres.
func (d *DB) Checkpoint() error {
	if d.driver != DriverSQLite {
		return nil
	}
	_, err := d.Pool.Exec(`PRAGMA wal_checkpoint(FULL);`)
	return err
}

// q rewrites ? placeholders to $1..$n for postgres. Queries in this package
// are written once, in the sqlite form.
func (d *DB) q(query string) string {
	if d.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Timestamps are stored as RFC3339 UTC TEXT in both dialects, so string
// comparison orders them correctly.

func fmtTime(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

func nullTimeStr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: fmtTime(*t), Valid: true}
}

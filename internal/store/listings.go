package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"parkwatch-engine/internal/domain"
)

const listingCols = `id, title, address, neighborhood, price, first_published_at, last_seen_at, removed_at, is_active, repost_count`

// ListOpts filters the presentation query. Zero value means everything,
// newest first.
type ListOpts struct {
	Neighborhood string
	ActiveOnly   bool
	Limit        int
}

// Stats is the aggregate view over the current listing set.
type Stats struct {
	Total          int            `json:"total"`
	Active         int            `json:"active"`
	MeanPrice      float64        `json:"mean_price"`
	ByNeighborhood map[string]int `json:"by_neighborhood"`
}

func scanListing(row interface{ Scan(...any) error }) (domain.Listing, error) {
	var l domain.Listing
	var first, seen string
	var removed sql.NullString
	if err := row.Scan(&l.ID, &l.Title, &l.Address, &l.Neighborhood, &l.Price,
		&first, &seen, &removed, &l.IsActive, &l.RepostCount); err != nil {
		return domain.Listing{}, err
	}

	var err error
	if l.FirstPublishedAt, err = parseTime(first); err != nil {
		return domain.Listing{}, fmt.Errorf("listing %d: bad first_published_at %q: %w", l.ID, first, err)
	}
	if l.LastSeenAt, err = parseTime(seen); err != nil {
		return domain.Listing{}, fmt.Errorf("listing %d: bad last_seen_at %q: %w", l.ID, seen, err)
	}
	if removed.Valid {
		t, err := parseTime(removed.String)
		if err != nil {
			return domain.Listing{}, fmt.Errorf("listing %d: bad removed_at %q: %w", l.ID, removed.String, err)
		}
		l.RemovedAt = &t
	}
	return l, nil
}

// FindListing looks a listing up by its exact identity. Returns (nil, nil)
// when nothing matches. When duplicates exist the oldest row wins.
func (d *DB) FindListing(ctx context.Context, title, address string, price int) (*domain.Listing, error) {
	row := d.Pool.QueryRowContext(ctx, d.q(`
SELECT `+listingCols+`
FROM listings
WHERE title = ? AND address = ? AND price = ?
ORDER BY first_published_at ASC, id ASC
LIMIT 1;
`), title, address, price)

	l, err := scanListing(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (d *DB) InsertListing(ctx context.Context, l domain.Listing) (int64, error) {
	args := []any{l.Title, l.Address, string(l.Neighborhood), l.Price,
		fmtTime(l.FirstPublishedAt), fmtTime(l.LastSeenAt), nullTimeStr(l.RemovedAt),
		l.IsActive, l.RepostCount}

	const insert = `
INSERT INTO listings(title, address, neighborhood, price, first_published_at, last_seen_at, removed_at, is_active, repost_count)
VALUES(?,?,?,?,?,?,?,?,?)`

	if d.driver == DriverPostgres {
		var id int64
		err := d.Pool.QueryRowContext(ctx, d.q(insert+` RETURNING id;`), args...).Scan(&id)
		return id, err
	}

	res, err := d.Pool.ExecContext(ctx, insert+`;`, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// UpdateListing applies a partial update. Nil patch fields leave the column
// alone; ClearRemovedAt nulls removed_at.
func (d *DB) UpdateListing(ctx context.Context, id int64, p domain.ListingPatch) error {
	var sets []string
	var args []any

	if p.LastSeenAt != nil {
		sets = append(sets, "last_seen_at = ?")
		args = append(args, fmtTime(*p.LastSeenAt))
	}
	if p.IsActive != nil {
		sets = append(sets, "is_active = ?")
		args = append(args, *p.IsActive)
	}
	if p.RepostCount != nil {
		sets = append(sets, "repost_count = ?")
		args = append(args, *p.RepostCount)
	}
	if p.ClearRemovedAt {
		sets = append(sets, "removed_at = NULL")
	} else if p.RemovedAt != nil {
		sets = append(sets, "removed_at = ?")
		args = append(args, fmtTime(*p.RemovedAt))
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	query := d.q(`UPDATE listings SET ` + strings.Join(sets, ", ") + ` WHERE id = ?;`)

	res, err := d.Pool.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update listing %d: no such row", id)
	}
	return nil
}

// FindActiveListingsOlderThan returns the active listings last seen strictly
// before cutoff. RFC3339 text compares in time order.
func (d *DB) FindActiveListingsOlderThan(ctx context.Context, cutoff time.Time) ([]domain.Listing, error) {
	rows, err := d.Pool.QueryContext(ctx, d.q(`
SELECT `+listingCols+`
FROM listings
WHERE is_active = ? AND last_seen_at < ?
ORDER BY id ASC;
`), true, fmtTime(cutoff))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectListings(rows)
}

// ListListings is the presentation query: newest first, optionally filtered
// to one neighborhood or to active listings only.
func (d *DB) ListListings(ctx context.Context, opts ListOpts) ([]domain.Listing, error) {
	var where []string
	var args []any
	if opts.Neighborhood != "" {
		where = append(where, "neighborhood = ?")
		args = append(args, opts.Neighborhood)
	}
	if opts.ActiveOnly {
		where = append(where, "is_active = ?")
		args = append(args, true)
	}
	if opts.Limit <= 0 || opts.Limit > 5000 {
		opts.Limit = 1000
	}
	args = append(args, opts.Limit)

	query := `
SELECT ` + listingCols + `
FROM listings
`
	if len(where) > 0 {
		query += "WHERE " + strings.Join(where, " AND ") + "\n"
	}
	query += `ORDER BY first_published_at DESC, id DESC
LIMIT ?;`

	rows, err := d.Pool.QueryContext(ctx, d.q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectListings(rows)
}

func collectListings(rows *sql.Rows) ([]domain.Listing, error) {
	var out []domain.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// ListingStats aggregates the whole listing set: mean price and the
// per-neighborhood breakdown include removed listings; only Active is
// restricted to live ones.
func (d *DB) ListingStats(ctx context.Context) (Stats, error) {
	st := Stats{ByNeighborhood: make(map[string]int)}

	row := d.Pool.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(AVG(price), 0) FROM listings;`)
	if err := row.Scan(&st.Total, &st.MeanPrice); err != nil {
		return st, err
	}

	row = d.Pool.QueryRowContext(ctx, d.q(`
SELECT COUNT(*)
FROM listings
WHERE is_active = ?;
`), true)
	if err := row.Scan(&st.Active); err != nil {
		return st, err
	}

	rows, err := d.Pool.QueryContext(ctx, `
SELECT neighborhood, COUNT(*)
FROM listings
GROUP BY neighborhood;
`)
	if err != nil {
		return st, err
	}
	defer rows.Close()
	for rows.Next() {
		var hood string
		var n int
		if err := rows.Scan(&hood, &n); err != nil {
			return st, err
		}
		st.ByNeighborhood[hood] = n
	}
	return st, rows.Err()
}

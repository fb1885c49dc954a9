package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"parkwatch-engine/internal/domain"
)

// OpenPeriod starts a new publication interval for a listing. Called at
// creation and at every repost.
func (d *DB) OpenPeriod(ctx context.Context, listingID int64, publishedAt time.Time) error {
	_, err := d.Pool.ExecContext(ctx, d.q(`
INSERT INTO publication_periods(listing_id, published_at)
VALUES(?,?);
`), listingID, fmtTime(publishedAt))
	return err
}

// FindOpenPeriod returns the most recent still-open period for a listing, or
// (nil, nil) when every period is closed.
func (d *DB) FindOpenPeriod(ctx context.Context, listingID int64) (*domain.PublicationPeriod, error) {
	row := d.Pool.QueryRowContext(ctx, d.q(`
SELECT id, listing_id, published_at, removed_at, days_online
FROM publication_periods
WHERE listing_id = ? AND removed_at IS NULL
ORDER BY published_at DESC, id DESC
LIMIT 1;
`), listingID)

	p, err := scanPeriod(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ClosePeriod freezes a period: sets removed_at and days_online. The guard
// on removed_at makes closing idempotent.
func (d *DB) ClosePeriod(ctx context.Context, periodID int64, removedAt time.Time, daysOnline int) error {
	_, err := d.Pool.ExecContext(ctx, d.q(`
UPDATE publication_periods
SET removed_at = ?, days_online = ?
WHERE id = ? AND removed_at IS NULL;
`), fmtTime(removedAt), daysOnline, periodID)
	return err
}

// ListPeriods returns a listing's publication history, oldest first.
func (d *DB) ListPeriods(ctx context.Context, listingID int64) ([]domain.PublicationPeriod, error) {
	rows, err := d.Pool.QueryContext(ctx, d.q(`
SELECT id, listing_id, published_at, removed_at, days_online
FROM publication_periods
WHERE listing_id = ?
ORDER BY published_at ASC, id ASC;
`), listingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PublicationPeriod
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPeriod(row interface{ Scan(...any) error }) (domain.PublicationPeriod, error) {
	var p domain.PublicationPeriod
	var published string
	var removed sql.NullString
	var days sql.NullInt64
	if err := row.Scan(&p.ID, &p.ListingID, &published, &removed, &days); err != nil {
		return domain.PublicationPeriod{}, err
	}

	var err error
	if p.PublishedAt, err = parseTime(published); err != nil {
		return domain.PublicationPeriod{}, fmt.Errorf("period %d: bad published_at %q: %w", p.ID, published, err)
	}
	if removed.Valid {
		t, err := parseTime(removed.String)
		if err != nil {
			return domain.PublicationPeriod{}, fmt.Errorf("period %d: bad removed_at %q: %w", p.ID, removed.String, err)
		}
		p.RemovedAt = &t
	}
	if days.Valid {
		n := int(days.Int64)
		p.DaysOnline = &n
	}
	return p, nil
}

package store

import (
	"context"
	"fmt"

	"parkwatch-engine/internal/domain"
)

func (d *DB) InsertImportLog(ctx context.Context, lg domain.ImportLog) error {
	_, err := d.Pool.ExecContext(ctx, d.q(`
INSERT INTO import_logs(imported_at, ads_found, new_count, updated_count, capture)
VALUES(?,?,?,?,?);
`), fmtTime(lg.ImportedAt), lg.AdsFound, lg.NewCount, lg.Updated, lg.Capture)
	return err
}

// ListImportLogs returns the most recent imports, newest first. The raw
// capture stays out of the listing; fetch it per log when needed.
func (d *DB) ListImportLogs(ctx context.Context, limit int) ([]domain.ImportLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := d.Pool.QueryContext(ctx, d.q(`
SELECT id, imported_at, ads_found, new_count, updated_count
FROM import_logs
ORDER BY imported_at DESC, id DESC
LIMIT ?;
`), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ImportLog
	for rows.Next() {
		var lg domain.ImportLog
		var imported string
		if err := rows.Scan(&lg.ID, &imported, &lg.AdsFound, &lg.NewCount, &lg.Updated); err != nil {
			return nil, err
		}
		if lg.ImportedAt, err = parseTime(imported); err != nil {
			return nil, fmt.Errorf("import log %d: bad imported_at %q: %w", lg.ID, imported, err)
		}
		out = append(out, lg)
	}
	return out, rows.Err()
}

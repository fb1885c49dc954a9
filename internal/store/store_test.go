package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"parkwatch-engine/internal/domain"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	d, err := Open(filepath.Join(t.TempDir(), "parkwatch.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	if err := d.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return d
}

var base = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func seedListing(t *testing.T, d *DB, l domain.Listing) int64 {
	t.Helper()
	id, err := d.InsertListing(context.Background(), l)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	return id
}

func TestMigrateIsIdempotent(t *testing.T) {
	d := testDB(t)
	if err := d.Migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestListingRoundTrip(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()

	in := domain.Listing{
		Title: "Place de parking", Address: "10 rue X, Angers",
		Neighborhood: domain.CentreVille, Price: 80,
		FirstPublishedAt: base, LastSeenAt: base, IsActive: true,
	}
	id := seedListing(t, d, in)
	if id == 0 {
		t.Fatal("insert returned id 0")
	}

	got, err := d.FindListing(ctx, in.Title, in.Address, in.Price)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got == nil {
		t.Fatal("find returned nil for existing listing")
	}
	if got.ID != id || got.Neighborhood != domain.CentreVille || !got.IsActive ||
		!got.FirstPublishedAt.Equal(base) || !got.LastSeenAt.Equal(base) || got.RemovedAt != nil {
		t.Errorf("round trip mismatch: %+v", got)
	}

	// Different price is a different identity.
	miss, err := d.FindListing(ctx, in.Title, in.Address, 90)
	if err != nil {
		t.Fatalf("find miss: %v", err)
	}
	if miss != nil {
		t.Errorf("price mismatch should not match: %+v", miss)
	}
}

func TestFindListingNoMatchIsNil(t *testing.T) {
	d := testDB(t)
	got, err := d.FindListing(context.Background(), "rien", "nulle part", 1)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got != nil {
		t.Errorf("want nil, got %+v", got)
	}
}

func TestUpdateListingPatch(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()

	removed := base.Add(-48 * time.Hour)
	id := seedListing(t, d, domain.Listing{
		Title: "Garage box", Address: "Doutre, Angers", Neighborhood: domain.Doutre, Price: 120,
		FirstPublishedAt: base.Add(-100 * time.Hour), LastSeenAt: removed,
		RemovedAt: &removed, IsActive: false, RepostCount: 1,
	})

	// Repost patch: reactivate, bump count, null removed_at.
	seen := base
	active := true
	count := 2
	err := d.UpdateListing(ctx, id, domain.ListingPatch{
		LastSeenAt: &seen, IsActive: &active, RepostCount: &count, ClearRemovedAt: true,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := d.FindListing(ctx, "Garage box", "Doutre, Angers", 120)
	if err != nil || got == nil {
		t.Fatalf("find after update: %v %v", got, err)
	}
	if !got.IsActive || got.RepostCount != 2 || got.RemovedAt != nil || !got.LastSeenAt.Equal(base) {
		t.Errorf("patch not applied: %+v", got)
	}
	if !got.FirstPublishedAt.Equal(base.Add(-100 * time.Hour)) {
		t.Errorf("untouched column changed: %+v", got)
	}

	// Expiration patch.
	inactive := false
	rm := base.Add(time.Hour)
	if err := d.UpdateListing(ctx, id, domain.ListingPatch{IsActive: &inactive, RemovedAt: &rm}); err != nil {
		t.Fatalf("expire: %v", err)
	}
	got, _ = d.FindListing(ctx, "Garage box", "Doutre, Angers", 120)
	if got.IsActive || got.RemovedAt == nil || !got.RemovedAt.Equal(rm) {
		t.Errorf("expiration patch not applied: %+v", got)
	}
}

func TestUpdateListingMissingRow(t *testing.T) {
	d := testDB(t)
	active := true
	if err := d.UpdateListing(context.Background(), 999, domain.ListingPatch{IsActive: &active}); err == nil {
		t.Error("want error for missing row")
	}
}

func TestFindActiveListingsOlderThan(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()

	staleID := seedListing(t, d, domain.Listing{
		Title: "Vieille place", Address: "Justices, Angers", Neighborhood: domain.Justices, Price: 50,
		FirstPublishedAt: base.Add(-73 * time.Hour), LastSeenAt: base.Add(-25 * time.Hour), IsActive: true,
	})
	seedListing(t, d, domain.Listing{
		Title: "Place récente", Address: "Justices, Angers", Neighborhood: domain.Justices, Price: 55,
		FirstPublishedAt: base.Add(-23 * time.Hour), LastSeenAt: base.Add(-23 * time.Hour), IsActive: true,
	})
	rm := base.Add(-80 * time.Hour)
	seedListing(t, d, domain.Listing{
		Title: "Déjà retirée", Address: "Justices, Angers", Neighborhood: domain.Justices, Price: 60,
		FirstPublishedAt: base.Add(-200 * time.Hour), LastSeenAt: rm, RemovedAt: &rm, IsActive: false,
	})

	got, err := d.FindActiveListingsOlderThan(ctx, base.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 || got[0].ID != staleID {
		t.Errorf("stale = %+v, want only the 25h-old active listing", got)
	}
}

func TestListListingsFilterAndOrder(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()

	seedListing(t, d, domain.Listing{
		Title: "A", Address: "Centre, Angers", Neighborhood: domain.CentreVille, Price: 80,
		FirstPublishedAt: base.Add(-48 * time.Hour), LastSeenAt: base, IsActive: true,
	})
	newest := seedListing(t, d, domain.Listing{
		Title: "B", Address: "Centre, Angers", Neighborhood: domain.CentreVille, Price: 85,
		FirstPublishedAt: base, LastSeenAt: base, IsActive: true,
	})
	rm := base
	seedListing(t, d, domain.Listing{
		Title: "C", Address: "Roseraie, Angers", Neighborhood: domain.Roseraie, Price: 45,
		FirstPublishedAt: base.Add(-24 * time.Hour), LastSeenAt: base, RemovedAt: &rm, IsActive: false,
	})

	all, err := d.ListListings(ctx, ListOpts{})
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 || all[0].ID != newest {
		t.Errorf("want 3 listings newest first, got %+v", all)
	}

	centre, err := d.ListListings(ctx, ListOpts{Neighborhood: string(domain.CentreVille)})
	if err != nil {
		t.Fatalf("list filtered: %v", err)
	}
	if len(centre) != 2 {
		t.Errorf("neighborhood filter: want 2, got %+v", centre)
	}

	active, err := d.ListListings(ctx, ListOpts{ActiveOnly: true})
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 2 {
		t.Errorf("active filter: want 2, got %+v", active)
	}
}

func TestPeriodLifecycle(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()

	id := seedListing(t, d, domain.Listing{
		Title: "Place", Address: "Monplaisir, Angers", Neighborhood: domain.Monplaisir, Price: 60,
		FirstPublishedAt: base, LastSeenAt: base, IsActive: true,
	})

	if err := d.OpenPeriod(ctx, id, base); err != nil {
		t.Fatalf("open: %v", err)
	}
	p, err := d.FindOpenPeriod(ctx, id)
	if err != nil {
		t.Fatalf("find open: %v", err)
	}
	if p == nil || !p.PublishedAt.Equal(base) || p.RemovedAt != nil || p.DaysOnline != nil {
		t.Fatalf("open period = %+v", p)
	}

	if err := d.ClosePeriod(ctx, p.ID, base.Add(73*time.Hour), 3); err != nil {
		t.Fatalf("close: %v", err)
	}
	if again, _ := d.FindOpenPeriod(ctx, id); again != nil {
		t.Errorf("period still open after close: %+v", again)
	}

	// Closing twice must not overwrite the frozen row.
	if err := d.ClosePeriod(ctx, p.ID, base.Add(200*time.Hour), 8); err != nil {
		t.Fatalf("second close: %v", err)
	}
	hist, err := d.ListPeriods(ctx, id)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 1 || hist[0].DaysOnline == nil || *hist[0].DaysOnline != 3 {
		t.Errorf("history = %+v, want one closed period with days_online=3", hist)
	}

	// A repost opens a second period; only it is open.
	if err := d.OpenPeriod(ctx, id, base.Add(100*time.Hour)); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	p2, _ := d.FindOpenPeriod(ctx, id)
	if p2 == nil || !p2.PublishedAt.Equal(base.Add(100*time.Hour)) {
		t.Errorf("open period after repost = %+v", p2)
	}
}

func TestImportLogs(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := d.InsertImportLog(ctx, domain.ImportLog{
			ImportedAt: base.Add(time.Duration(i) * time.Hour),
			AdsFound:   5 + i, NewCount: i, Updated: 5 - i,
			Capture: "<html>snapshot</html>",
		})
		if err != nil {
			t.Fatalf("insert log %d: %v", i, err)
		}
	}

	logs, err := d.ListImportLogs(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("limit ignored: %+v", logs)
	}
	if !logs[0].ImportedAt.Equal(base.Add(2 * time.Hour)) {
		t.Errorf("not newest first: %+v", logs)
	}
	if logs[0].AdsFound != 7 || logs[0].NewCount != 2 || logs[0].Updated != 3 {
		t.Errorf("counts wrong: %+v", logs[0])
	}
}

func TestListingStats(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()

	seedListing(t, d, domain.Listing{
		Title: "A", Address: "x", Neighborhood: domain.CentreVille, Price: 80,
		FirstPublishedAt: base, LastSeenAt: base, IsActive: true,
	})
	seedListing(t, d, domain.Listing{
		Title: "B", Address: "y", Neighborhood: domain.CentreVille, Price: 120,
		FirstPublishedAt: base, LastSeenAt: base, IsActive: true,
	})
	rm := base
	seedListing(t, d, domain.Listing{
		Title: "C", Address: "z", Neighborhood: domain.Roseraie, Price: 40,
		FirstPublishedAt: base, LastSeenAt: base, RemovedAt: &rm, IsActive: false,
	})

	st, err := d.ListingStats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Total != 3 || st.Active != 2 {
		t.Errorf("counts = %+v", st)
	}
	// Mean and neighborhood counts cover removed listings too; only the
	// active count is restricted.
	if st.MeanPrice != 80 {
		t.Errorf("mean price = %v, want 80 over all listings", st.MeanPrice)
	}
	if st.ByNeighborhood[string(domain.CentreVille)] != 2 || st.ByNeighborhood[string(domain.Roseraie)] != 1 {
		t.Errorf("by neighborhood = %+v", st.ByNeighborhood)
	}
}

func TestPlaceholderRebind(t *testing.T) {
	pg := &DB{driver: DriverPostgres}
	got := pg.q(`UPDATE l SET a = ?, b = ? WHERE id = ?;`)
	want := `UPDATE l SET a = $1, b = $2 WHERE id = $3;`
	if got != want {
		t.Errorf("q() = %q, want %q", got, want)
	}

	lite := &DB{driver: DriverSQLite}
	if got := lite.q(`SELECT ?;`); got != `SELECT ?;` {
		t.Errorf("sqlite query rewritten: %q", got)
	}
}

package reconcile

import (
	"testing"
	"time"

	"parkwatch-engine/internal/domain"
)

var now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func ad(title, address string, price int) domain.ParsedAd {
	return domain.ParsedAd{Title: title, Address: address, Neighborhood: domain.Autres, Price: price}
}

func listing(id int64, title, address string, price int, active bool, lastSeen time.Time) domain.Listing {
	l := domain.Listing{
		ID: id, Title: title, Address: address, Neighborhood: domain.Autres, Price: price,
		FirstPublishedAt: lastSeen.Add(-72 * time.Hour),
		LastSeenAt:       lastSeen,
		IsActive:         active,
	}
	if !active {
		rm := lastSeen
		l.RemovedAt = &rm
	}
	return l
}

func TestReconcileCreates(t *testing.T) {
	ads := []domain.ParsedAd{ad("Place de parking", "10 rue X, Angers", 80)}

	res := Reconcile(ads, nil, now, DefaultStalenessWindow)

	if res.NewCount != 1 || res.UpdatedCount != 0 {
		t.Fatalf("counts = (%d,%d), want (1,0)", res.NewCount, res.UpdatedCount)
	}
	if len(res.Creates) != 1 {
		t.Fatalf("creates = %d, want 1", len(res.Creates))
	}
	c := res.Creates[0]
	if !c.FirstPublishedAt.Equal(now) || !c.LastSeenAt.Equal(now) {
		t.Errorf("timestamps not pinned to now: %+v", c)
	}
	if !c.IsActive || c.RepostCount != 0 || c.RemovedAt != nil {
		t.Errorf("new listing state wrong: %+v", c)
	}
}

func TestReconcileUpdatesActiveMatch(t *testing.T) {
	ads := []domain.ParsedAd{ad("Garage box", "Doutre, Angers", 120)}
	existing := []domain.Listing{listing(7, "Garage box", "Doutre, Angers", 120, true, now.Add(-time.Hour))}

	res := Reconcile(ads, existing, now, DefaultStalenessWindow)

	if res.NewCount != 0 || res.UpdatedCount != 1 {
		t.Fatalf("counts = (%d,%d), want (0,1)", res.NewCount, res.UpdatedCount)
	}
	if len(res.Updates) != 1 || res.Updates[0].ID != 7 || !res.Updates[0].LastSeenAt.Equal(now) {
		t.Errorf("updates = %+v", res.Updates)
	}
	if len(res.Reposts) != 0 || len(res.Creates) != 0 {
		t.Errorf("unexpected mutations: %+v", res)
	}
}

func TestReconcileRepost(t *testing.T) {
	existing := []domain.Listing{listing(3, "Garage box", "Doutre, Angers", 120, false, now.Add(-48*time.Hour))}
	existing[0].RepostCount = 2
	ads := []domain.ParsedAd{ad("Garage box", "Doutre, Angers", 120)}

	res := Reconcile(ads, existing, now, DefaultStalenessWindow)

	if len(res.Reposts) != 1 {
		t.Fatalf("reposts = %+v", res.Reposts)
	}
	r := res.Reposts[0]
	if r.ID != 3 || r.RepostCount != 3 || !r.LastSeenAt.Equal(now) {
		t.Errorf("repost = %+v, want id=3 count=3 seen=now", r)
	}
	if res.UpdatedCount != 1 || res.NewCount != 0 {
		t.Errorf("counts = (%d,%d), want (0,1)", res.NewCount, res.UpdatedCount)
	}
}

// A price change on a live listing is a brand-new listing, not an update:
// the identity key includes the price.
func TestReconcilePriceChangeCreatesNewListing(t *testing.T) {
	existing := []domain.Listing{listing(1, "Garage box", "Doutre, Angers", 120, true, now.Add(-time.Hour))}
	ads := []domain.ParsedAd{ad("Garage box", "Doutre, Angers", 140)}

	res := Reconcile(ads, existing, now, DefaultStalenessWindow)

	if res.NewCount != 1 || len(res.Creates) != 1 {
		t.Fatalf("want a create, got %+v", res)
	}
	if len(res.Updates) != 0 {
		t.Errorf("old listing must not be updated: %+v", res.Updates)
	}
}

func TestReconcileExpiration(t *testing.T) {
	existing := []domain.Listing{
		listing(1, "Vieille place", "Justices, Angers", 50, true, now.Add(-25*time.Hour)),
		listing(2, "Place récente", "Justices, Angers", 55, true, now.Add(-23*time.Hour)),
		listing(3, "Déjà retirée", "Justices, Angers", 60, false, now.Add(-80*time.Hour)),
	}

	res := Reconcile(nil, existing, now, 24*time.Hour)

	if len(res.Expirations) != 1 {
		t.Fatalf("expirations = %+v, want only the 25h-old active listing", res.Expirations)
	}
	e := res.Expirations[0]
	if e.ID != 1 || !e.RemovedAt.Equal(now) {
		t.Errorf("expiration = %+v", e)
	}
}

// A stale listing matched this cycle (here: a repost) must not be expired in
// the same cycle.
func TestReconcileTouchedListingsAreNotExpired(t *testing.T) {
	stale := listing(9, "Garage box", "Doutre, Angers", 120, true, now.Add(-30*time.Hour))
	ads := []domain.ParsedAd{ad("Garage box", "Doutre, Angers", 120)}

	res := Reconcile(ads, []domain.Listing{stale}, now, 24*time.Hour)

	if len(res.Expirations) != 0 {
		t.Errorf("matched listing expired in the same cycle: %+v", res.Expirations)
	}
	if len(res.Updates) != 1 {
		t.Errorf("expected an update, got %+v", res)
	}
}

func TestReconcileOrderIndependent(t *testing.T) {
	existing := []domain.Listing{
		listing(1, "Garage box", "Doutre, Angers", 120, true, now.Add(-time.Hour)),
		listing(2, "Place couverte", "Roseraie, Angers", 70, false, now.Add(-50*time.Hour)),
	}
	ads := []domain.ParsedAd{
		ad("Garage box", "Doutre, Angers", 120),
		ad("Place couverte", "Roseraie, Angers", 70),
		ad("Box neuf", "Monplaisir, Angers", 90),
	}
	perm := []domain.ParsedAd{ads[2], ads[0], ads[1]}

	a := Reconcile(ads, existing, now, DefaultStalenessWindow)
	b := Reconcile(perm, existing, now, DefaultStalenessWindow)

	if a.NewCount != b.NewCount || a.UpdatedCount != b.UpdatedCount {
		t.Fatalf("counts differ: %+v vs %+v", a, b)
	}
	if len(a.Creates) != len(b.Creates) || len(a.Updates) != len(b.Updates) ||
		len(a.Reposts) != len(b.Reposts) || len(a.Expirations) != len(b.Expirations) {
		t.Errorf("mutation sets differ:\n%+v\n%+v", a, b)
	}
}

func TestPeriodDays(t *testing.T) {
	tests := []struct {
		published time.Time
		removed   time.Time
		want      int
	}{
		{now.Add(-73 * time.Hour), now, 3},
		{now.Add(-23 * time.Hour), now, 0},
		{now, now, 0},
		{now.Add(time.Hour), now, 0}, // clock skew: never negative
	}
	for _, tt := range tests {
		if got := PeriodDays(tt.published, tt.removed); got != tt.want {
			t.Errorf("PeriodDays(%v, %v) = %d; want %d", tt.published, tt.removed, got, tt.want)
		}
	}
}

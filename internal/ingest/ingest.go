// Package ingest drives one snapshot ingestion cycle end to end:
// extract, reconcile, apply mutations through the store, log the import.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"parkwatch-engine/internal/domain"
	"parkwatch-engine/internal/parse"
	"parkwatch-engine/internal/reconcile"
)

// DefaultCaptureMax caps the raw snapshot copy stored on each import log.
const DefaultCaptureMax = 10000

// ErrNothingFound reports a snapshot with zero extractable parking ads.
// Storage is untouched when this is returned; it is an outcome, not a crash.
var ErrNothingFound = errors.New("no parking ads found in snapshot")

// Store is the storage collaborator contract the orchestrator consumes.
type Store interface {
	FindListing(ctx context.Context, title, address string, price int) (*domain.Listing, error)
	InsertListing(ctx context.Context, l domain.Listing) (int64, error)
	UpdateListing(ctx context.Context, id int64, p domain.ListingPatch) error
	OpenPeriod(ctx context.Context, listingID int64, publishedAt time.Time) error
	FindOpenPeriod(ctx context.Context, listingID int64) (*domain.PublicationPeriod, error)
	ClosePeriod(ctx context.Context, periodID int64, removedAt time.Time, daysOnline int) error
	FindActiveListingsOlderThan(ctx context.Context, cutoff time.Time) ([]domain.Listing, error)
	InsertImportLog(ctx context.Context, lg domain.ImportLog) error
}

// Summary is what one cycle reports back to the caller.
type Summary struct {
	Found        int  `json:"found"`
	New          int  `json:"new_count"`
	Updated      int  `json:"updated_count"`
	Expired      int  `json:"expired_count"`
	Skipped      int  `json:"skipped_count"`
	UsedFallback bool `json:"used_fallback"`
}

// Ingestor runs ingestion cycles against a store. Cycles are serialized:
// at most one runs at a time.
type Ingestor struct {
	store      Store
	window     time.Duration
	captureMax int

	mu  sync.Mutex
	now func() time.Time // test hook
}

func New(store Store, window time.Duration, captureMax int) *Ingestor {
	if window <= 0 {
		window = reconcile.DefaultStalenessWindow
	}
	if captureMax <= 0 {
		captureMax = DefaultCaptureMax
	}
	return &Ingestor{store: store, window: window, captureMax: captureMax, now: time.Now}
}

// Run ingests one markup snapshot. Storage errors abort the cycle and
// propagate; mutations already applied are not rolled back (the store owns
// any transactional guarantee).
func (ing *Ingestor) Run(ctx context.Context, markup string) (Summary, error) {
	ing.mu.Lock()
	defer ing.mu.Unlock()

	rep := parse.Extract(markup)
	sum := Summary{Found: len(rep.Ads), Skipped: len(rep.Skips), UsedFallback: rep.UsedFallback}

	if len(rep.Skips) > 0 {
		for _, s := range rep.Skips {
			log.Printf("[ingest] skipped element tier=%s reason=%s detail=%q", s.Tier, s.Reason, s.Detail)
		}
	}
	if len(rep.Ads) == 0 {
		log.Printf("[ingest] nothing found, storage untouched fallback=%v skips=%d", rep.UsedFallback, len(rep.Skips))
		return sum, ErrNothingFound
	}

	now := ing.now().UTC()

	// Read phase: every lookup happens before any write, so all of them
	// observe the same pre-cycle listing set.
	existing, err := ing.snapshot(ctx, rep.Ads, now)
	if err != nil {
		return sum, err
	}

	res := reconcile.Reconcile(rep.Ads, existing, now, ing.window)
	sum.New = res.NewCount
	sum.Updated = res.UpdatedCount
	sum.Expired = len(res.Expirations)

	if err := ing.apply(ctx, res, now); err != nil {
		return sum, err
	}

	lg := domain.ImportLog{
		ImportedAt: now,
		AdsFound:   len(rep.Ads),
		NewCount:   res.NewCount,
		Updated:    res.UpdatedCount,
		Capture:    truncateRunes(markup, ing.captureMax),
	}
	if err := ing.store.InsertImportLog(ctx, lg); err != nil {
		return sum, fmt.Errorf("insert import log: %w", err)
	}

	log.Printf("[ingest] cycle done found=%d new=%d updated=%d expired=%d skipped=%d fallback=%v",
		sum.Found, sum.New, sum.Updated, sum.Expired, sum.Skipped, sum.UsedFallback)
	return sum, nil
}

// snapshot gathers the pre-cycle listing set: one identity lookup per
// candidate plus the stale actives the expiration pass will consider.
func (ing *Ingestor) snapshot(ctx context.Context, ads []domain.ParsedAd, now time.Time) ([]domain.Listing, error) {
	var out []domain.Listing
	seen := make(map[int64]struct{})

	for _, ad := range ads {
		l, err := ing.store.FindListing(ctx, ad.Title, ad.Address, ad.Price)
		if err != nil {
			return nil, fmt.Errorf("find listing %q: %w", ad.Title, err)
		}
		if l == nil {
			continue
		}
		if _, dup := seen[l.ID]; !dup {
			seen[l.ID] = struct{}{}
			out = append(out, *l)
		}
	}

	stale, err := ing.store.FindActiveListingsOlderThan(ctx, now.Add(-ing.window))
	if err != nil {
		return nil, fmt.Errorf("find stale listings: %w", err)
	}
	for _, l := range stale {
		if _, dup := seen[l.ID]; !dup {
			seen[l.ID] = struct{}{}
			out = append(out, l)
		}
	}
	return out, nil
}

// apply writes the mutation set. Per-candidate mutations touch disjoint
// listings and may run concurrently; the expiration sweep runs strictly
// after every one of them has landed.
func (ing *Ingestor) apply(ctx context.Context, res reconcile.Result, now time.Time) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, c := range res.Creates {
		c := c
		g.Go(func() error {
			id, err := ing.store.InsertListing(gctx, c)
			if err != nil {
				return fmt.Errorf("insert listing %q: %w", c.Title, err)
			}
			if err := ing.store.OpenPeriod(gctx, id, now); err != nil {
				return fmt.Errorf("open period for %d: %w", id, err)
			}
			return nil
		})
	}

	for _, u := range res.Updates {
		u := u
		g.Go(func() error {
			seen := u.LastSeenAt
			if err := ing.store.UpdateListing(gctx, u.ID, domain.ListingPatch{LastSeenAt: &seen}); err != nil {
				return fmt.Errorf("update listing %d: %w", u.ID, err)
			}
			return nil
		})
	}

	for _, r := range res.Reposts {
		r := r
		g.Go(func() error {
			seen := r.LastSeenAt
			active := true
			count := r.RepostCount
			patch := domain.ListingPatch{LastSeenAt: &seen, IsActive: &active, RepostCount: &count, ClearRemovedAt: true}
			if err := ing.store.UpdateListing(gctx, r.ID, patch); err != nil {
				return fmt.Errorf("repost listing %d: %w", r.ID, err)
			}
			if err := ing.store.OpenPeriod(gctx, r.ID, r.LastSeenAt); err != nil {
				return fmt.Errorf("open repost period for %d: %w", r.ID, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	for _, e := range res.Expirations {
		removed := e.RemovedAt
		inactive := false
		if err := ing.store.UpdateListing(ctx, e.ID, domain.ListingPatch{IsActive: &inactive, RemovedAt: &removed}); err != nil {
			return fmt.Errorf("expire listing %d: %w", e.ID, err)
		}
		p, err := ing.store.FindOpenPeriod(ctx, e.ID)
		if err != nil {
			return fmt.Errorf("find open period for %d: %w", e.ID, err)
		}
		if p == nil {
			log.Printf("[ingest] no open period to close listing_id=%d", e.ID)
			continue
		}
		days := reconcile.PeriodDays(p.PublishedAt, e.RemovedAt)
		if err := ing.store.ClosePeriod(ctx, p.ID, e.RemovedAt, days); err != nil {
			return fmt.Errorf("close period %d: %w", p.ID, err)
		}
	}

	return nil
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

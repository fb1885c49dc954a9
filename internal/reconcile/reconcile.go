// Package reconcile decides, for one ingestion cycle, how extracted ads
// change the known listing set. It is a pure function over a pre-cycle
// snapshot: nothing here touches storage.
package reconcile

import (
	"strconv"
	"time"

	"parkwatch-engine/internal/domain"
)

// DefaultStalenessWindow is how long an active listing may go unseen before
// it is presumed removed.
const DefaultStalenessWindow = 24 * time.Hour

// Update bumps last_seen_at on a still-active matched listing. Nothing else
// changes: stored title/address/price are frozen at first observation.
type Update struct {
	ID         int64
	LastSeenAt time.Time
}

// Repost reactivates an inactive listing that was matched again.
// RepostCount carries the new, already incremented value.
type Repost struct {
	ID          int64
	LastSeenAt  time.Time
	RepostCount int
}

// Expiration deactivates an active listing that went unseen past the
// staleness window. Its open publication period closes at RemovedAt.
type Expiration struct {
	ID        int64
	RemovedAt time.Time
}

// Result is the full mutation set for one cycle. Creates also need a new
// open publication period; so do reposts.
type Result struct {
	Creates      []domain.Listing
	Updates      []Update
	Reposts      []Repost
	Expirations  []Expiration
	NewCount     int
	UpdatedCount int
}

// identityKey matches candidates to listings on exact (title, address,
// price). Distinct from candidate dedup, which folds case.
func identityKey(title, address string, price int) string {
	return title + "\x1f" + address + "\x1f" + strconv.Itoa(price)
}

// Reconcile computes the cycle's mutations. existing must be the pre-cycle
// snapshot: candidates never match listings created within the same cycle,
// and the expiration pass skips every listing touched by a candidate.
func Reconcile(ads []domain.ParsedAd, existing []domain.Listing, now time.Time, window time.Duration) Result {
	if window <= 0 {
		window = DefaultStalenessWindow
	}

	byKey := make(map[string]*domain.Listing, len(existing))
	for i := range existing {
		l := &existing[i]
		if _, dup := byKey[identityKey(l.Title, l.Address, l.Price)]; dup {
			continue // oldest wins, as a deterministic tie-break
		}
		byKey[identityKey(l.Title, l.Address, l.Price)] = l
	}

	var res Result
	touched := make(map[int64]struct{})

	for _, ad := range ads {
		match, ok := byKey[identityKey(ad.Title, ad.Address, ad.Price)]
		if !ok {
			res.Creates = append(res.Creates, domain.Listing{
				Title:            ad.Title,
				Address:          ad.Address,
				Neighborhood:     ad.Neighborhood,
				Price:            ad.Price,
				FirstPublishedAt: now,
				LastSeenAt:       now,
				IsActive:         true,
			})
			res.NewCount++
			continue
		}

		touched[match.ID] = struct{}{}
		if match.IsActive {
			res.Updates = append(res.Updates, Update{ID: match.ID, LastSeenAt: now})
		} else {
			res.Reposts = append(res.Reposts, Repost{
				ID:          match.ID,
				LastSeenAt:  now,
				RepostCount: match.RepostCount + 1,
			})
		}
		res.UpdatedCount++
	}

	cutoff := now.Add(-window)
	for i := range existing {
		l := &existing[i]
		if !l.IsActive {
			continue
		}
		if _, hit := touched[l.ID]; hit {
			continue
		}
		if l.LastSeenAt.Before(cutoff) {
			res.Expirations = append(res.Expirations, Expiration{ID: l.ID, RemovedAt: now})
		}
	}

	return res
}

// PeriodDays computes the stored days_online for a period closing at
// removedAt: whole days since publishedAt, floored at 0.
func PeriodDays(publishedAt, removedAt time.Time) int {
	days := int(removedAt.Sub(publishedAt).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

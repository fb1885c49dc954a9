package domain

import "time"

// Listing is one distinct parking ad, identified for its whole lifetime by
// the exact (title, address, price) it was first observed with. Listings are
// never deleted; disappearance and reposting are state transitions.
type Listing struct {
	ID               int64        `json:"id"`
	Title            string       `json:"title"`
	Address          string       `json:"address"`
	Neighborhood     Neighborhood `json:"neighborhood"`
	Price            int          `json:"price"`
	FirstPublishedAt time.Time    `json:"first_published_at"`
	LastSeenAt       time.Time    `json:"last_seen_at"`
	RemovedAt        *time.Time   `json:"removed_at"`
	IsActive         bool         `json:"is_active"`
	RepostCount      int          `json:"repost_count"`
}

// DaysOnline is the display-side day count: first publication until the last
// sighting while active, or until removal once inactive. Never negative.
func (l Listing) DaysOnline() int {
	end := l.LastSeenAt
	if l.RemovedAt != nil {
		end = *l.RemovedAt
	}
	days := int(end.Sub(l.FirstPublishedAt).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// ListingPatch is a partial listing update. Nil fields stay untouched;
// ClearRemovedAt nulls removed_at (a reposted listing coming back online).
type ListingPatch struct {
	LastSeenAt     *time.Time
	IsActive       *bool
	RepostCount    *int
	RemovedAt      *time.Time
	ClearRemovedAt bool
}

// PublicationPeriod is one contiguous interval during which a listing was
// visible. A new period opens at creation and at every repost; closing a
// period sets removed_at and days_online and freezes the row.
type PublicationPeriod struct {
	ID          int64      `json:"id"`
	ListingID   int64      `json:"listing_id"`
	PublishedAt time.Time  `json:"published_at"`
	RemovedAt   *time.Time `json:"removed_at"`
	DaysOnline  *int       `json:"days_online"`
}

// ImportLog records one ingestion cycle. Capture holds the raw snapshot,
// truncated for audit.
type ImportLog struct {
	ID         int64     `json:"id"`
	ImportedAt time.Time `json:"imported_at"`
	AdsFound   int       `json:"ads_found"`
	NewCount   int       `json:"new_listings"`
	Updated    int       `json:"updated_listings"`
	Capture    string    `json:"-"`
}

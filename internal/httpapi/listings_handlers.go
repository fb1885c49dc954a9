package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"parkwatch-engine/internal/domain"
	"parkwatch-engine/internal/store"
)

// ListingReader is the read-only slice of the store the listing endpoints
// need. *store.DB satisfies it.
type ListingReader interface {
	ListListings(ctx context.Context, opts store.ListOpts) ([]domain.Listing, error)
	ListPeriods(ctx context.Context, listingID int64) ([]domain.PublicationPeriod, error)
	ListingStats(ctx context.Context) (store.Stats, error)
}

type ListingsHandler struct {
	Store ListingReader
}

// listingView adds the computed display fields to the stored row.
type listingView struct {
	domain.Listing
	DaysOnline int `json:"days_online"`
}

func (h ListingsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	opts := store.ListOpts{Neighborhood: q.Get("neighborhood")}
	if q.Get("active") == "1" || q.Get("active") == "true" {
		opts.ActiveOnly = true
	}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil {
		opts.Limit = n
	}

	listings, err := h.Store.ListListings(r.Context(), opts)
	if err != nil {
		WriteError(w, r, 500, "storage_error", err.Error())
		return
	}

	out := make([]listingView, 0, len(listings))
	for _, l := range listings {
		out = append(out, listingView{Listing: l, DaysOnline: l.DaysOnline()})
	}
	writeJSON(w, out)
}

func (h ListingsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.Store.ListingStats(r.Context())
	if err != nil {
		WriteError(w, r, 500, "storage_error", err.Error())
		return
	}
	writeJSON(w, st)
}

// PeriodsByPath serves /listings/{id}/periods.
func (h ListingsHandler) PeriodsByPath(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/listings/")
	idStr, ok := strings.CutSuffix(rest, "/periods")
	if !ok {
		http.NotFound(w, r)
		return
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		WriteError(w, r, 400, "bad_request", "invalid listing id")
		return
	}

	periods, err := h.Store.ListPeriods(r.Context(), id)
	if err != nil {
		WriteError(w, r, 500, "storage_error", err.Error())
		return
	}
	if periods == nil {
		periods = []domain.PublicationPeriod{}
	}
	writeJSON(w, periods)
}

package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"parkwatch-engine/internal/domain"
	"parkwatch-engine/internal/events"
	"parkwatch-engine/internal/ingest"
)

// Snapshots are pasted page source; anything bigger than this is not a page.
const maxSnapshotBytes = 10 << 20

type ImportLogReader interface {
	ListImportLogs(ctx context.Context, limit int) ([]domain.ImportLog, error)
}

type ImportHandler struct {
	Logs      ImportLogReader
	Hub       *events.Hub
	Status    *atomic.Value // httpapi.ImportStatus
	Limiter   *rate.Limiter
	RunImport func(ctx context.Context, markup string) (ingest.Summary, error)
}

type importRequest struct {
	Markup string `json:"markup"`
}

// Run ingests one pasted snapshot synchronously and answers with the cycle
// summary. "nothing found" is an outcome, not an error status.
func (h ImportHandler) Run(w http.ResponseWriter, r *http.Request) {
	if h.Limiter != nil && !h.Limiter.Allow() {
		WriteError(w, r, http.StatusTooManyRequests, "rate_limited", "too many imports, slow down")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxSnapshotBytes)
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, 400, "bad_request", "invalid JSON: "+err.Error())
		return
	}
	if req.Markup == "" {
		WriteError(w, r, 400, "bad_request", "markup is required")
		return
	}

	st, _ := h.Status.Load().(ImportStatus)
	h.Status.Store(ImportStatus{
		LastRunAt: time.Now().Format(time.RFC3339),
		Running:   true,
		LastOkAt:  st.LastOkAt,
	})

	sum, err := h.RunImport(r.Context(), req.Markup)

	now := time.Now().Format(time.RFC3339)
	next, _ := h.Status.Load().(ImportStatus)
	next.Running = false
	next.LastRunAt = now
	next.LastFound = sum.Found
	next.LastNew = sum.New
	next.LastUpdated = sum.Updated

	reqID := RequestIDFrom(r.Context())

	switch {
	case errors.Is(err, ingest.ErrNothingFound):
		next.LastError = ""
		h.Status.Store(next)
		writeJSON(w, map[string]any{"ok": false, "outcome": "nothing_found", "summary": sum})
	case err != nil:
		next.LastError = err.Error()
		h.Status.Store(next)
		h.Hub.Publish(events.MakeEvent(reqID, events.TypeImportFailed, 1, map[string]any{"error": err.Error()}))
		WriteError(w, r, 500, "import_failed", err.Error())
	default:
		next.LastError = ""
		next.LastOkAt = now
		h.Status.Store(next)
		h.Hub.Publish(events.MakeEvent(reqID, events.TypeImportCompleted, 1, sum))
		writeJSON(w, map[string]any{"ok": true, "summary": sum})
	}
}

func (h ImportHandler) StatusGet(w http.ResponseWriter, r *http.Request) {
	st, _ := h.Status.Load().(ImportStatus)
	writeJSON(w, st)
}

func (h ImportHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	logs, err := h.Logs.ListImportLogs(r.Context(), limit)
	if err != nil {
		WriteError(w, r, 500, "storage_error", err.Error())
		return
	}
	if logs == nil {
		logs = []domain.ImportLog{}
	}
	writeJSON(w, logs)
}

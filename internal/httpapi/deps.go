package httpapi

import (
	"context"
	"sync/atomic"

	"golang.org/x/time/rate"

	"parkwatch-engine/internal/config"
	"parkwatch-engine/internal/events"
	"parkwatch-engine/internal/ingest"
	"parkwatch-engine/internal/store"
)

type Deps struct {
	Store *store.DB

	Hub *events.Hub

	// Atomic stores
	CfgVal       *atomic.Value // stores config.Config
	ImportStatus *atomic.Value // stores httpapi.ImportStatus

	// Config persistence
	UserCfgPath string
	LoadCfg     func() (config.Config, error)

	// Import entrypoint (inject for testability)
	RunImport func(ctx context.Context, markup string) (ingest.Summary, error)

	// Throttles manual snapshot imports
	ImportLimiter *rate.Limiter
}

package httpapi

import "net/http"

// NewMux returns the raw mux so main() can still attach /shutdown (needs srv+token).
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	// Listings
	lh := ListingsHandler{Store: d.Store}
	mux.HandleFunc("/listings", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: lh.List,
	}))
	mux.HandleFunc("/listings/stats", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: lh.Stats,
	}))
	mux.HandleFunc("/listings/", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: lh.PeriodsByPath, // expects /listings/{id}/periods
	}))

	// Imports
	ih := ImportHandler{
		Logs:      d.Store,
		Hub:       d.Hub,
		Status:    d.ImportStatus,
		Limiter:   d.ImportLimiter,
		RunImport: d.RunImport,
	}
	mux.HandleFunc("/import", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: ih.Run,
	}))
	mux.HandleFunc("/import/status", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ih.StatusGet,
	}))
	mux.HandleFunc("/imports", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ih.List,
	}))

	// Config
	ch := ConfigHandler{
		CfgVal:      d.CfgVal,
		UserCfgPath: d.UserCfgPath,
		LoadCfg:     d.LoadCfg,
	}
	mux.HandleFunc("/config", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Get,
		http.MethodPut: ch.Put,
	}))
	mux.HandleFunc("/config/path", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Path,
	}))
	mux.HandleFunc("/config/validate", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Validate,
	}))

	// SSE events
	eh := EventsHandler{Hub: d.Hub}
	mux.HandleFunc("/events", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: eh.ServeSSE,
	}))

	// Health + maintenance
	hh := HealthHandler{}
	mux.HandleFunc("/health", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: hh.Health,
	}))
	dh := DBHandler{DB: d.Store}
	mux.HandleFunc("/db/checkpoint", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: dh.Checkpoint,
	}))

	return mux
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	"parkwatch-engine/internal/config"
	"parkwatch-engine/internal/events"
	"parkwatch-engine/internal/httpapi"
	"parkwatch-engine/internal/ingest"
	"parkwatch-engine/internal/store"
)

func main() {
	// .env is optional; real environment variables win either way.
	_ = godotenv.Load()

	// Engine data dir: use env if provided, else local folder.
	dataDir := os.Getenv("PARKWATCH_DATA_DIR")
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatal(err)
	}

	// One engine per data dir; a second instance would fight over sqlite.
	lock := flock.New(filepath.Join(dataDir, "engine.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		log.Fatalf("[main] lock failed: %v", err)
	}
	if !locked {
		log.Fatalf("[main] another engine is already running in %s", dataDir)
	}
	defer func() { _ = lock.Unlock() }()

	defaultCfgPath := filepath.Join("config", "config.yml")
	userCfgPath, err := config.EnsureUserConfig(dataDir, defaultCfgPath)
	if err != nil {
		log.Fatalf("[main] config bootstrap failed: %v", err)
	}

	// Load config and keep it reloadable
	var cfgVal atomic.Value // stores config.Config
	loadCfg := func() (config.Config, error) {
		cfg, err := config.Load(userCfgPath)
		if err != nil {
			return cfg, err
		}
		config.ApplyEnv(&cfg)
		cfg, vr := config.NormalizeAndValidate(cfg)
		if !vr.OK() {
			return cfg, fmt.Errorf("config invalid:\n- %v", vr.Errors)
		}
		for _, warn := range vr.Warnings {
			log.Printf("[config] warning: %s", warn)
		}
		return cfg, nil
	}
	cfg, err := loadCfg()
	if err != nil {
		log.Fatalf("[main] config load failed (%s): %v", userCfgPath, err)
	}
	cfgVal.Store(cfg)

	db, err := openStore(cfg, dataDir)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatalf("[main] migrate failed: %v", err)
	}

	hub := events.NewHub()

	ingestor := ingest.New(db,
		time.Duration(cfg.Ingest.StalenessHours)*time.Hour,
		cfg.Ingest.CaptureMaxChars,
	)

	var importStatus atomic.Value
	importStatus.Store(httpapi.ImportStatus{})

	var limiter *rate.Limiter
	if n := cfg.Ingest.ImportsPerMinute; n > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), n)
	}

	mux := httpapi.NewMux(httpapi.Deps{
		Store:         db,
		Hub:           hub,
		CfgVal:        &cfgVal,
		ImportStatus:  &importStatus,
		UserCfgPath:   userCfgPath,
		LoadCfg:       loadCfg,
		RunImport:     ingestor.Run,
		ImportLimiter: limiter,
	})

	handler := httpapi.Chain(mux,
		httpapi.RequestID,
		httpapi.Recover,
		httpapi.AccessLog,
		httpapi.Cors,
	)

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.App.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatal(err)
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	token, err := randomToken(16)
	if err != nil {
		log.Fatalf("[main] token: %v", err)
	}
	mux.HandleFunc("/shutdown", shutdownHandler(&token, srv))
	log.Printf("[main] shutdown token: %s", token)

	log.Printf("[main] engine listening on http://%s (driver=%s)", addr, db.Driver())

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[main] serve: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Printf("[main] shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}

func openStore(cfg config.Config, dataDir string) (*store.DB, error) {
	if cfg.Storage.Driver == store.DriverPostgres {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		return store.OpenPostgres(ctx, cfg.Storage.DSN)
	}
	dbPath := filepath.Join(dataDir, "parkwatch.db")
	return store.Open(dbPath)
}

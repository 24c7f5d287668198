// Package main wires the tracker process: configuration, the local record
// store, the remote store client, and the sync engine, exposed over a
// localhost HTTP surface with a periodic sync trigger.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/drillvoice/recipe-tracker-sub001/internal/config"
	"github.com/drillvoice/recipe-tracker-sub001/internal/logging"
	"github.com/drillvoice/recipe-tracker-sub001/internal/remote"
	"github.com/drillvoice/recipe-tracker-sub001/internal/store"
	syncpkg "github.com/drillvoice/recipe-tracker-sub001/internal/sync"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Error("failed to load configuration", err, nil)
		os.Exit(1)
	}

	logging.Init(os.Stdout, logging.LogLevel(cfg.LogLevel))

	db, err := store.Open(cfg.DataDir)
	if err != nil {
		logging.Error("failed to open local store", err, nil)
		os.Exit(1)
	}
	defer db.Close()

	if err := store.Migrate(db.DB); err != nil {
		logging.Error("failed to migrate local store", err, nil)
		os.Exit(1)
	}

	mealStore := store.NewStore(db.DB)

	var remoteStore syncpkg.RemoteStore
	var auth syncpkg.AuthProvider
	if cfg.RemoteConfigured() {
		remoteCfg := &remote.Config{
			BaseURL: cfg.RemoteBaseURL,
			APIKey:  cfg.RemoteAPIKey,
			Timeout: 30 * time.Second,
		}
		remoteStore = syncpkg.NewRemoteStore(remote.NewClient(remoteCfg))
		auth = remote.NewAuthClient(remoteCfg)
	} else {
		logging.Warn("no remote store configured, running local-only", nil)
	}

	engine := syncpkg.NewEngine(mealStore, remoteStore, auth)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go periodicSync(ctx, engine, cfg.SyncInterval)

	handlers := NewHandlers(engine, mealStore)
	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: handlers.Routes(),
	}

	go func() {
		logging.Info("tracker listening", map[string]interface{}{"addr": cfg.HTTPAddr})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error("http server failed", err, nil)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	_ = engine.SignOutAndStopSync(shutdownCtx)
	logging.Info("tracker stopped", nil)
}

// periodicSync triggers a sync cycle on an interval. The engine's own
// guards reject the trigger when no authenticated session exists or a pass
// is already running.
func periodicSync(ctx context.Context, engine *syncpkg.Engine, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			syncCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
			result := engine.SyncNow(syncCtx)
			cancel()
			if len(result.Errors) > 0 {
				logging.Debug("periodic sync skipped or partial", map[string]interface{}{
					"errors": result.Errors,
				})
			}
		}
	}
}

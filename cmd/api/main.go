package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xelth-com/berrycheck/internal/app"
	"github.com/xelth-com/berrycheck/internal/buildinfo"
	"github.com/xelth-com/berrycheck/internal/config"
	"github.com/xelth-com/berrycheck/internal/handlers"
	"github.com/xelth-com/berrycheck/internal/logger"
	"github.com/xelth-com/berrycheck/internal/websocket"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLog, err := logger.New(cfg.AppEnv)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer appLog.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Database, schema, seed data and services
	a, err := app.New(ctx, cfg, appLog)
	if err != nil {
		appLog.Fatal("startup failed", "error", err)
	}
	if _, err := a.Seed(ctx); err != nil {
		appLog.Fatal("failed to seed commodities", "error", err)
	}

	// 3. Realtime events
	hub := websocket.NewHub(appLog)
	go hub.Run(ctx)
	a.SetNotifier(hub)

	// 4. Set up HTTP router
	router := handlers.NewRouter(a.DB, cfg, handlers.Services{
		Commodities: a.Commodities,
		Templates:   a.Templates,
		Inspections: a.Inspections,
		Assignments: a.Assignments,
		Reports:     a.Reports,
		Sync:        a.Sync,
		SyncConfig:  a.SyncConfig,
		Hub:         hub,
	}, appLog, buildinfo.String())

	// 5. Start server with graceful shutdown
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	go func() {
		appLog.Info("server starting", "port", cfg.Port, "version", buildinfo.String(), "env", cfg.AppEnv)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal("failed to start server", "error", err)
		}
	}()

	sig := <-shutdown
	appLog.Info("shutting down", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLog.Error("http server shutdown error", "error", err)
	}
	cancel()

	// Close database (this also stops embedded PostgreSQL)
	if err := a.Close(); err != nil {
		appLog.Error("database close error", "error", err)
	}
	appLog.Info("shutdown complete")
}

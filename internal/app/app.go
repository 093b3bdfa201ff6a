// Package app wires configuration, storage and services shared by the binaries.
package app

import (
	"context"
	"fmt"

	"github.com/xelth-com/berrycheck/internal/config"
	"github.com/xelth-com/berrycheck/internal/database"
	"github.com/xelth-com/berrycheck/internal/logger"
	"github.com/xelth-com/berrycheck/internal/models"
	"github.com/xelth-com/berrycheck/internal/queue"
	"github.com/xelth-com/berrycheck/internal/services/assignments"
	"github.com/xelth-com/berrycheck/internal/services/commodities"
	"github.com/xelth-com/berrycheck/internal/services/inspections"
	"github.com/xelth-com/berrycheck/internal/services/report"
	"github.com/xelth-com/berrycheck/internal/services/sheets"
	"github.com/xelth-com/berrycheck/internal/services/templates"
	"github.com/xelth-com/berrycheck/internal/sheetsync"
	"github.com/xelth-com/berrycheck/internal/storage"
)

// App holds the connected database and every domain service
type App struct {
	Config *config.Config
	Log    *logger.Logger
	DB     *database.DB

	Commodities *commodities.Service
	Templates   *templates.Service
	Inspections *inspections.Service
	Assignments *assignments.Service
	Reports     *report.Service
	Sync        *sheetsync.Engine
	SyncConfig  *config.SheetSyncStore

	enqueuer *queue.Enqueuer
	inline   *inlineQueue
}

// New connects and migrates the database, then builds the services.
// Sheets, object storage and the render queue are optional and only logged when unavailable.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	db, err := database.Connect(cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Info("synchronizing database schema")
	if err := db.AutoMigrate(models.All()...); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	a := &App{Config: cfg, Log: log, DB: db}

	a.Commodities = commodities.NewService(db, cfg.Commodities.ExcludedCodes, log)
	a.Templates = templates.NewService(db, cfg.Commodities.ExcludedCodes, log)
	a.Assignments = assignments.NewService(db, a.Commodities, log)
	a.Inspections = inspections.NewService(db, a.Commodities, a.Assignments, log)

	var store report.ObjectStore
	if cfg.Storage.Endpoint == "" {
		log.Warn("object storage not configured, reports cannot be published")
	} else if s, err := storage.New(cfg.Storage); err != nil {
		log.Warn("failed to init object storage", "error", err)
	} else if err := s.EnsureBucket(ctx); err != nil {
		log.Warn("failed to ensure report bucket", "bucket", cfg.Storage.Bucket, "error", err)
	} else {
		store = s
	}
	a.Reports = report.NewService(db, a.Inspections, a.Templates, store, cfg.PublicBaseURL, log)

	if cfg.Queue.RedisAddr != "" {
		a.enqueuer = queue.NewEnqueuer(cfg.Queue.RedisAddr)
		a.Inspections.SetRenderQueue(a.enqueuer)
	} else {
		log.Warn("REDIS_ADDR not set, rendering reports in-process")
		a.inline = newInlineQueue(a.Reports, log)
		a.Inspections.SetRenderQueue(a.inline)
	}

	var sheetClient sheetsync.Spreadsheet
	if c, err := sheets.NewClient(ctx, cfg.Sheets.CredentialsFile, log); err != nil {
		log.Warn("google sheets client unavailable", "error", err)
	} else {
		sheetClient = c
	}
	a.SyncConfig = config.LoadSheetSyncConfig(cfg.Sheets)
	a.Sync = sheetsync.NewEngine(sheetClient, a.Assignments, a.SyncConfig, log)

	return a, nil
}

// Seed inserts the default commodities and returns how many were new
func (a *App) Seed(ctx context.Context) (int, error) {
	return a.Commodities.Seed(ctx)
}

// SetNotifier routes sync and report events to n
func (a *App) SetNotifier(n sheetsync.Notifier) {
	a.Sync.SetNotifier(n)
	a.Reports.SetNotifier(n)
}

// Close releases the queue client, waits for in-process renders, then closes the database
func (a *App) Close() error {
	if a.inline != nil {
		a.inline.Stop()
	}
	if a.enqueuer != nil {
		if err := a.enqueuer.Close(); err != nil {
			a.Log.Warn("failed to close render queue", "error", err)
		}
	}
	return a.DB.Close()
}

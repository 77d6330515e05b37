// Package app builds the scheduler's collaborators from configuration.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/arnavshah/oh-scheduler-go/internal/runner"
	"github.com/arnavshah/oh-scheduler-go/pkg/auth"
	"github.com/arnavshah/oh-scheduler-go/pkg/blobstore"
	"github.com/arnavshah/oh-scheduler-go/pkg/config"
	"github.com/arnavshah/oh-scheduler-go/pkg/database"
	"github.com/arnavshah/oh-scheduler-go/pkg/handlers"
	"github.com/arnavshah/oh-scheduler-go/pkg/ingest"
	"github.com/arnavshah/oh-scheduler-go/pkg/lease"
	"github.com/arnavshah/oh-scheduler-go/pkg/logger"
	"github.com/arnavshah/oh-scheduler-go/pkg/metrics"
	"github.com/arnavshah/oh-scheduler-go/pkg/notify"
	"github.com/arnavshah/oh-scheduler-go/pkg/observability"
)

// App holds every long-lived dependency of a process.
type App struct {
	Config  *config.Config
	Log     *logger.Logger
	DB      *gorm.DB
	Auth    *auth.Authenticator
	Metrics *metrics.Prometheus
	// Runner is nil when no section is configured.
	Runner *runner.Runner

	registry *prometheus.Registry
	closers  []func() error
	shutdown func(context.Context) error
}

// New opens the database and, when cfg names a section, the blob store,
// lease, sources and notification sink of that section.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	a := &App{
		Config:   cfg,
		Log:      log,
		Auth:     auth.New(cfg.Auth),
		registry: prometheus.NewRegistry(),
	}
	a.Metrics = metrics.NewPrometheus(a.registry, "")
	a.shutdown = observability.Init(ctx, log, cfg.Tracing)

	db, err := database.Open(database.Config{URL: cfg.Database.URL, Path: cfg.Database.Path, Debug: cfg.Database.Debug})
	if err != nil {
		return nil, err
	}
	a.DB = db
	if sqlDB, err := db.DB(); err == nil {
		a.closers = append(a.closers, sqlDB.Close)
	}

	if cfg.Section == "" {
		log.Warn("no section configured, run endpoints are disabled")
		return a, nil
	}
	if err := a.buildRunner(ctx); err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	return a, nil
}

func (a *App) buildRunner(ctx context.Context) error {
	cfg := a.Config
	deps := runner.Deps{
		DB:      a.DB,
		Metrics: a.Metrics,
		Log:     a.Log,
		Tracer:  observability.Tracer(),
	}

	switch cfg.Storage.Backend {
	case "gcs":
		g, err := blobstore.NewGCS(ctx, cfg.Storage.Bucket, blobstore.ClientOptionsFromEnv()...)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, g.Close)
		deps.Store = g
	case "memory":
		deps.Store = blobstore.NewMemory()
	default:
		deps.Store = blobstore.NewDB(a.DB)
	}

	switch cfg.Lease.Backend {
	case "redis":
		r, err := lease.NewRedis(ctx, cfg.Lease.RedisAddr, cfg.Lease.RedisPassword)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, r.Close)
		deps.Locker = r
	case "memory":
		deps.Locker = lease.NewMemory()
	default:
		deps.Locker = lease.NewDB(a.DB)
	}

	if cfg.Sources.UsesSheets() {
		src, err := ingest.NewSheetsSource(ctx, cfg.Sources.AvailabilitySheet, cfg.Sources.DemandSheet, blobstore.ClientOptionsFromEnv()...)
		if err != nil {
			return err
		}
		deps.Source = src
	} else {
		deps.Source = ingest.CSVSource{AvailabilityPath: cfg.Sources.AvailabilityCSV, DemandPath: cfg.Sources.DemandCSV}
	}

	if cfg.Calendar.Enabled {
		sink, err := notify.NewCalendarSink(ctx, cfg.Calendar.CalendarID, notify.EventTemplate{
			Summary:     cfg.Calendar.Summary,
			Location:    cfg.Calendar.Location,
			Description: cfg.Calendar.Description,
			TimeZone:    cfg.Calendar.TimeZone,
		}, blobstore.ClientOptionsFromEnv()...)
		if err != nil {
			return err
		}
		deps.Sink = sink
	} else {
		deps.Sink = notify.LogSink{Log: a.Log}
	}

	a.Runner = runner.New(runner.SettingsFrom(cfg), deps)
	return nil
}

// Handler returns the HTTP handlers bound to this app.
func (a *App) Handler() *handlers.Handler {
	return &handlers.Handler{
		DB:     a.DB,
		Auth:   a.Auth,
		Log:    a.Log,
		Solver: a.Config.Optimizer,
		Runner: a.Runner,
	}
}

// Router ensures the admin user exists and returns the HTTP router.
func (a *App) Router() (*gin.Engine, error) {
	if err := auth.EnsureAdminExists(a.DB, a.Config.Auth, a.Log); err != nil {
		return nil, fmt.Errorf("ensure admin: %w", err)
	}
	return handlers.NewRouter(a.Handler(), a.registry), nil
}

// Close releases connections in reverse order of opening.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	if a.shutdown != nil {
		errs = append(errs, a.shutdown(ctx))
	}
	return errors.Join(errs...)
}

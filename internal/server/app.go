package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lewisedginton/attendance_bot/internal/attendance"
	"github.com/lewisedginton/attendance_bot/internal/classifier"
	appconfig "github.com/lewisedginton/attendance_bot/internal/config"
	"github.com/lewisedginton/attendance_bot/internal/export"
	"github.com/lewisedginton/attendance_bot/internal/extractor"
	"github.com/lewisedginton/attendance_bot/internal/llm"
	"github.com/lewisedginton/attendance_bot/internal/persistence"
	"github.com/lewisedginton/attendance_bot/internal/prompts"
	"github.com/lewisedginton/attendance_bot/internal/query"
	"github.com/lewisedginton/attendance_bot/internal/storage"
	"github.com/lewisedginton/attendance_bot/pkg/logger"
	"github.com/lewisedginton/attendance_bot/pkg/metrics"
)

// App holds the components shared by the server and the one-shot CLI commands.
type App struct {
	Config     *appconfig.AppConfig
	Log        logger.Logger
	Metrics    *metrics.Metrics
	Location   *time.Location
	Store      attendance.TxStore
	Files      storage.FileProvider
	Prompts    *prompts.Manager
	Completer  llm.Completer
	Classifier *classifier.Classifier
	Extractor  *extractor.Extractor
	Queries    *query.Service
	Exporter   *export.Exporter
	Reconciler *attendance.Reconciler
}

// AppOptions tweaks NewApp.
type AppOptions struct {
	// Migrate applies pending migrations when the store is opened.
	Migrate bool
	Metrics *metrics.Metrics
}

// NewApp opens the store and builds the pipeline components from cfg.
func NewApp(ctx context.Context, cfg *appconfig.AppConfig, log logger.Logger, opts AppOptions) (*App, error) {
	loc, err := cfg.Attendance.Location()
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone: %w", err)
	}

	m := opts.Metrics
	if m == nil {
		m = metrics.NewMetrics(false, false, log)
	}

	a := &App{Config: cfg, Log: log, Metrics: m, Location: loc}

	a.Files, err = storage.New(ctx, cfg.Export.StorageConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create storage backend: %w", err)
	}

	var overrides storage.FileProvider
	if cfg.Attendance.PromptOverrides {
		overrides = a.Files
	}
	a.Prompts, err = prompts.Load(ctx, overrides, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load prompts: %w", err)
	}

	a.Completer, err = llm.New(ctx, cfg.LLM, log)
	switch {
	case errors.Is(err, llm.ErrNoProvider):
		log.Warn("No LLM provider configured, using rule-based fallbacks only")
	case err != nil:
		return nil, fmt.Errorf("failed to create LLM completer: %w", err)
	}

	a.Store, err = persistence.Open(ctx, cfg.Database, log, opts.Migrate)
	if err != nil {
		return nil, fmt.Errorf("failed to open attendance store: %w", err)
	}

	timeout := cfg.LLM.Timeout
	a.Classifier = classifier.New(llm.Instrument(a.Completer, "classify", timeout, log, m), a.Prompts, log, m)
	a.Extractor = extractor.New(llm.Instrument(a.Completer, "extract", timeout, log, m), a.Prompts, log, m,
		extractor.WithLocation(loc))
	a.Queries = query.NewService(llm.Instrument(a.Completer, "query", timeout, log, m), a.Prompts, a.Store, log, m,
		query.WithLocation(loc))
	a.Exporter = export.New(a.Store, a.Files, log)
	a.Reconciler = attendance.NewReconciler(a.Store, log, m)
	return a, nil
}

// Close releases the store.
func (a *App) Close() error {
	if a.Store == nil {
		return nil
	}
	return a.Store.Close()
}

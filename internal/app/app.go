package app

import (
	"context"
	"log/slog"

	"RefScreener/internal/backoff"
	"RefScreener/internal/config"
	"RefScreener/internal/index"
	"RefScreener/internal/infrastructure/crossref"
	"RefScreener/internal/infrastructure/landing"
	"RefScreener/internal/infrastructure/openalex"
	"RefScreener/internal/infrastructure/pubmed"
	"RefScreener/internal/infrastructure/storage"
	"RefScreener/internal/logging"
	"RefScreener/internal/resolver"
	"RefScreener/internal/runner"
	"RefScreener/internal/source"
)

// Application wires configuration to the screening engine and job store.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	store    *storage.SQLiteStore
	index    *index.Index
	screener *resolver.Resolver
	runner   *runner.Runner
}

// New builds a runnable application instance. The job store is opened and
// migrated; the bulk index is not loaded until EnsureIndex.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	store, err := storage.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, err
	}

	idx := index.New(cfg.Providers.Index.URL, nil, baseLogger.With("component", "index"))

	registry := source.NewRegistry()
	registry.Register(crossref.NewClient(
		cfg.Providers.Crossref.BaseURL,
		cfg.Providers.Crossref.Mailto,
		nil,
		baseLogger.With("component", "source.crossref"),
	))
	registry.Register(pubmed.NewClient(
		cfg.Providers.PubMed.BaseURL,
		nil,
		baseLogger.With("component", "source.pubmed"),
	))
	if cfg.Providers.Landing.Enabled {
		registry.Register(landing.NewScanner(
			cfg.Providers.Landing.ResolverURL,
			nil,
			baseLogger.With("component", "source.landing"),
		))
	}

	works := openalex.NewClient(
		cfg.Providers.OpenAlex.BaseURL,
		cfg.Providers.OpenAlex.Mailto,
		nil,
		baseLogger.With("component", "works"),
	)

	screener := resolver.New(works, idx, registry.All(), resolver.Options{
		BatchSize:             cfg.Screening.BatchSize,
		ShortCircuitRetracted: cfg.Screening.ShortCircuit(),
		Retry: backoff.Policy{
			BaseDelay:   cfg.Retry.BaseDelay(),
			MaxAttempts: cfg.Retry.MaxAttempts,
			Multiplier:  cfg.Retry.Multiplier,
		},
	}, baseLogger.With("component", "resolver"))

	run := runner.New(store, screener, runner.Config{
		Limit:        cfg.Batch.Limit,
		Pause:        cfg.Batch.Pause(),
		TimeBudget:   cfg.Batch.TimeBudget(),
		SafetyMargin: cfg.Batch.SafetyMargin(),
		AllBudget:    cfg.Batch.AllBudget(),
	}, baseLogger.With("component", "runner"))

	return &Application{
		cfg:      cfg,
		logger:   baseLogger,
		store:    store,
		index:    idx,
		screener: screener,
		runner:   run,
	}, nil
}

// EnsureIndex loads the bulk retraction dataset. Load is fail-soft, so a
// download failure degrades index checks instead of aborting.
func (a *Application) EnsureIndex(ctx context.Context) {
	a.index.Load(ctx)
}

// Config exposes the effective configuration.
func (a *Application) Config() config.Config { return a.cfg }

// Store exposes the job row store.
func (a *Application) Store() *storage.SQLiteStore { return a.store }

// Screener exposes the per-DOI screening engine.
func (a *Application) Screener() *resolver.Resolver { return a.screener }

// Runner exposes the batch runner.
func (a *Application) Runner() *runner.Runner { return a.runner }

// Logger exposes the base logger for command-level logging.
func (a *Application) Logger() *slog.Logger { return a.logger }

// Close releases held resources.
func (a *Application) Close() error {
	return a.store.Close()
}

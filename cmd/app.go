package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"files-kraken/core/backup"
	"files-kraken/core/blueprint"
	"files-kraken/core/config"
	"files-kraken/core/docstore"
	"files-kraken/core/logger"
	"files-kraken/core/metrics"
	"files-kraken/core/monitor"
	"files-kraken/core/reconcile"
	"files-kraken/core/schemafile"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// app holds what every command needs: configuration, logger, schemas and the document store.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *blueprint.Registry
	store    docstore.Store
	metrics  *metrics.Metrics
}

// setup loads configuration and creates the logger.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logg, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logg, nil
}

// bootstrap runs setup, registers schemas and opens the document store.
func bootstrap() (*app, error) {
	cfg, logg, err := setup()
	if err != nil {
		return nil, err
	}

	registry := blueprint.NewRegistry()
	schemas, err := schemafile.Load(afero.NewOsFs(), cfg.Schemas, registry)
	if err != nil {
		return nil, err
	}
	logg.Info("Schemas loaded", zap.String("file", cfg.Schemas), zap.Int("count", len(schemas)))

	store, err := docstore.Open(cfg.Docstore, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open docstore: %w", err)
	}
	logg.Info("Docstore opened", zap.String("backend", cfg.Docstore.Backend))

	return &app{
		cfg:      cfg,
		logger:   logg,
		registry: registry,
		store:    store,
		metrics:  metrics.New(),
	}, nil
}

// engine returns a reconcile engine resolving relative paths against the watch root.
func (a *app) engine() (*reconcile.Engine, error) {
	root, err := filepath.Abs(a.cfg.Watch.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve watch root: %w", err)
	}
	e := reconcile.NewEngine(a.store, a.registry, a.logger)
	e.BaseDir = root
	e.Metrics = a.metrics
	return e, nil
}

// monitor builds the watcher manager from the watch and backup sections.
func (a *app) monitor(ctx context.Context, handler monitor.Handler) (*monitor.Manager, error) {
	primary, coworker, err := monitor.Build(a.cfg.Watch, afero.NewOsFs(), a.logger)
	if err != nil {
		return nil, err
	}

	var backups *backup.Manager
	store, err := backup.Open(ctx, a.cfg.Backup, a.cfg.Storage, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open backup store: %w", err)
	}
	if store != nil {
		backups = backup.NewManager(store, a.logger)
	}

	mgr := monitor.NewManager(backups, handler, a.logger)
	mgr.Metrics = a.metrics
	mgr.ExitFile = a.cfg.Watch.ExitFile
	if err := mgr.Add(ctx, primary, a.cfg.Watch.Options()); err != nil {
		return nil, err
	}
	if coworker != nil {
		if err := mgr.AddCoworker(primary, coworker); err != nil {
			return nil, err
		}
	}
	a.logger.Info("Watching directory",
		zap.String("root", a.cfg.Watch.Root),
		zap.Duration("interval", a.cfg.Watch.Interval),
		zap.Bool("coworker", coworker != nil))
	return mgr, nil
}

// close releases the store and flushes the logger.
func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("Failed to close docstore", zap.Error(err))
	}
	_ = a.logger.Sync()
}

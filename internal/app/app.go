package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/chameleon/internal/common"
	"github.com/ternarybob/chameleon/internal/interfaces"
	"github.com/ternarybob/chameleon/internal/services/advisor"
	"github.com/ternarybob/chameleon/internal/services/dna"
	"github.com/ternarybob/chameleon/internal/services/engine"
	"github.com/ternarybob/chameleon/internal/services/greenlight"
	"github.com/ternarybob/chameleon/internal/services/scheduler"
	badgerstorage "github.com/ternarybob/chameleon/internal/storage/badger"
)

// App owns the wired service graph and the storage connection. Shutdown
// order is the reverse of initialization.
type App struct {
	Config    *common.Config
	Logger    arbor.ILogger
	Store     interfaces.StorageManager
	Mutator   *dna.Mutator
	Scorer    *greenlight.Calculator
	Advisor   *advisor.Service
	Engine    *engine.Service
	Scheduler *scheduler.Service
	browsers  *engine.BrowserPool
}

// New builds the application: storage, advisor model, browser pool (when
// enabled), the crawl engine and the maintenance scheduler, then seeds
// targets from the configured directory.
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	store, err := badgerstorage.NewManager(logger, &cfg.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	mutator := dna.NewMutator(store.DnaStorage(), store.EventStorage(), logger)
	scorer := greenlight.NewCalculator(logger)

	ctx := context.Background()
	model, err := advisor.NewAdvisorModel(ctx, &cfg.Advisor)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize advisor: %w", err)
	}
	advisorService := advisor.NewService(model, cfg, logger)
	if advisorService.Offline() {
		logger.Info().Msg("Advisor running in offline mode")
	} else {
		logger.Info().
			Str("provider", cfg.Advisor.Provider).
			Str("model", cfg.Advisor.Model).
			Msg("Advisor configured")
	}

	var browsers *engine.BrowserPool
	if cfg.Engine.EnableBrowser {
		browsers, err = engine.NewBrowserPool(engine.BrowserPoolConfig{
			Size:          cfg.Engine.BrowserPoolSize,
			RenderTimeout: cfg.RequestTimeout(),
		}, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("Browser pool unavailable, continuing without rendered exploration")
			browsers = nil
		}
	}

	engineService := engine.NewService(store, mutator, scorer, advisorService, browsers, cfg, logger)

	schedulerService := scheduler.NewService(store, advisorService, engineService, logger)
	if cfg.Scheduler.Enabled {
		if err := schedulerService.Start(cfg.Scheduler.GCSchedule); err != nil {
			logger.Warn().Err(err).Msg("Maintenance scheduler failed to start")
		}
	}

	if cfg.Targets.Dir != "" {
		if err := badgerstorage.LoadTargetsFromFiles(ctx, store.TargetStorage(), cfg.Targets.Dir, logger); err != nil {
			logger.Warn().Err(err).Str("dir", cfg.Targets.Dir).Msg("Target seeding incomplete")
		}
	}

	return &App{
		Config:    cfg,
		Logger:    logger,
		Store:     store,
		Mutator:   mutator,
		Scorer:    scorer,
		Advisor:   advisorService,
		Engine:    engineService,
		Scheduler: schedulerService,
		browsers:  browsers,
	}, nil
}

// Close shuts everything down: sessions first so nothing writes to a
// closing store, then the scheduler, browser pool, advisor and storage.
func (a *App) Close() error {
	a.Engine.StopAll()
	a.Scheduler.Stop()
	a.browsers.Shutdown()
	if err := a.Advisor.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Advisor close failed")
	}
	if err := a.Store.Close(); err != nil {
		return fmt.Errorf("failed to close storage: %w", err)
	}
	a.Logger.Info().Msg("Application stopped")
	return nil
}

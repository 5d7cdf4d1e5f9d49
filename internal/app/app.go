package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/10thony/prospector/internal/common"
	"github.com/10thony/prospector/internal/handlers"
	"github.com/10thony/prospector/internal/interfaces"
	"github.com/10thony/prospector/internal/runs"
	"github.com/10thony/prospector/internal/services/enrich"
	"github.com/10thony/prospector/internal/services/events"
	"github.com/10thony/prospector/internal/services/review"
	"github.com/10thony/prospector/internal/services/scheduler"
	"github.com/10thony/prospector/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	// Event-driven services
	EventService interfaces.EventService

	// Run execution
	SignalRegistry *runs.SignalRegistry
	Orchestrator   *runs.Orchestrator

	// Domain services
	ReviewService    *review.Service
	SchedulerService *scheduler.Service

	// HTTP handlers
	RunHandler    *handlers.RunHandler
	LeadHandler   *handlers.LeadHandler
	ReviewHandler *handlers.ReviewHandler
	StatusHandler *handlers.StatusHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := app.initHandlers(); err != nil {
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	logger.Info().
		Bool("scheduler_enabled", cfg.Scheduler.Enabled).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase initializes the storage layer (Badger)
func (a *App) initDatabase() error {
	storageManager, err := badger.NewManager(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}

	a.StorageManager = storageManager
	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Msg("Storage layer initialized")

	return nil
}

// initServices initializes all business services in dependency order
func (a *App) initServices() error {
	a.EventService = events.NewService(a.Logger)
	a.subscribeRunEvents()

	a.SignalRegistry = runs.NewSignalRegistry(a.Logger)

	a.Orchestrator = runs.NewOrchestrator(
		a.StorageManager.RunStorage(),
		a.StorageManager.LeadStorage(),
		a.SignalRegistry,
		a.EventService,
		a.Config.Runs.BatchDelayDuration(),
		a.Logger,
	)

	// Discovery enrichment needs a Claude API key. Without one the run kind
	// is simply unavailable; verification still works.
	discovery, err := enrich.NewDiscoveryEnricher(
		&a.Config.Anthropic,
		a.StorageManager.LeadStorage(),
		a.StorageManager.ReviewStorage(),
		a.Logger,
	)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("Discovery enrichment unavailable - set ANTHROPIC_API_KEY to enable")
	} else {
		a.Orchestrator.RegisterEnricher(discovery)
		a.Logger.Debug().Msg("Discovery enricher registered")
	}

	linkcheck, err := enrich.NewLinkCheckEnricher(
		&a.Config.Verify,
		a.StorageManager.LeadStorage(),
		a.StorageManager.ResultStorage(),
		a.Logger,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize link check enricher: %w", err)
	}
	a.Orchestrator.RegisterEnricher(linkcheck)
	a.Logger.Debug().Msg("Link check enricher registered")

	a.ReviewService = review.NewService(
		a.StorageManager.ReviewStorage(),
		a.StorageManager.LeadStorage(),
		a.StorageManager.RunStorage(),
		a.SignalRegistry,
		a.Logger,
	)
	a.Logger.Debug().Msg("Review service initialized")

	a.SchedulerService = scheduler.NewService(
		&a.Config.Scheduler,
		a.Orchestrator,
		a.StorageManager.RunStorage(),
		a.Logger,
	)

	if a.Config.Scheduler.Enabled {
		if err := a.SchedulerService.Start(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to start scheduler service")
		} else {
			a.Logger.Debug().Str("schedule", a.Config.Scheduler.Schedule).Msg("Scheduler service started")
		}
	}

	return nil
}

// subscribeRunEvents logs terminal run transitions through the event bus
func (a *App) subscribeRunEvents() {
	logTerminal := func(ctx context.Context, event interfaces.Event) error {
		a.Logger.Info().
			Str("event", string(event.Type)).
			Str("run_id", fmt.Sprintf("%v", event.Payload["run_id"])).
			Msg("Run lifecycle event")
		return nil
	}

	for _, eventType := range []interfaces.EventType{
		interfaces.EventRunCompleted,
		interfaces.EventRunCanceled,
		interfaces.EventRunFailed,
	} {
		if err := a.EventService.Subscribe(eventType, logTerminal); err != nil {
			a.Logger.Warn().Err(err).Str("event", string(eventType)).Msg("Failed to subscribe run event handler")
		}
	}
}

// initHandlers initializes all HTTP handlers
func (a *App) initHandlers() error {
	a.RunHandler = handlers.NewRunHandler(
		a.Orchestrator,
		a.StorageManager.RunStorage(),
		a.StorageManager.ResultStorage(),
		&a.Config.Runs,
		a.Logger,
	)

	a.LeadHandler = handlers.NewLeadHandler(a.StorageManager.LeadStorage(), a.Logger)

	a.ReviewHandler = handlers.NewReviewHandler(a.ReviewService, a.Logger)

	a.StatusHandler = handlers.NewStatusHandler(
		a.StorageManager.RunStorage(),
		a.StorageManager.LeadStorage(),
		a.Logger,
	)

	return nil
}

// Close closes all application resources
func (a *App) Close() error {
	if a.SchedulerService != nil {
		a.SchedulerService.Stop()
	}

	if a.EventService != nil {
		if err := a.EventService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close event service")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}

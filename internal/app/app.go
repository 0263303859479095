// Package app wires configuration, services, and handlers into one
// runnable application.
package app

import (
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/askdoc/askdoc/internal/common"
	"github.com/askdoc/askdoc/internal/handlers"
	"github.com/askdoc/askdoc/internal/interfaces"
	"github.com/askdoc/askdoc/internal/services/generation"
	"github.com/askdoc/askdoc/internal/services/preprocess"
	"github.com/askdoc/askdoc/internal/services/query"
	"github.com/askdoc/askdoc/internal/services/ratelimit"
	"github.com/askdoc/askdoc/internal/services/retrieval"
	"github.com/askdoc/askdoc/internal/services/status"
	"github.com/askdoc/askdoc/internal/slack"
	badgerstore "github.com/askdoc/askdoc/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Storage
	AuditDB      *badgerstore.BadgerDB
	AuditStorage interfaces.AuditStorage

	// Pipeline services
	RateLimiter       interfaces.RateLimiter
	RetrievalService  interfaces.RetrievalService
	GenerationService interfaces.GenerationService
	QueryService      interfaces.QueryService
	StatusService     *status.Service

	// Front-ends
	SlackConnector *slack.Connector
	ChatHandler    *handlers.ChatHandler
	StatusHandler  *handlers.StatusHandler
}

// New creates the application with all services wired
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := a.initStorage(); err != nil {
		return nil, err
	}
	if err := a.initServices(); err != nil {
		return nil, err
	}
	a.initHandlers()

	logger.Info().
		Str("environment", cfg.Environment).
		Str("llm_provider", a.GenerationService.Provider()).
		Str("slack_enabled", fmt.Sprintf("%v", cfg.Slack.Enabled)).
		Msg("Application initialized")

	return a, nil
}

func (a *App) initStorage() error {
	if !a.Config.Audit.Enabled {
		a.Logger.Debug().Msg("Audit storage disabled")
		return nil
	}

	db, err := badgerstore.NewBadgerDB(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return fmt.Errorf("failed to initialize audit database: %w", err)
	}
	a.AuditDB = db
	a.AuditStorage = badgerstore.NewAuditStorage(db, a.Logger)
	return nil
}

func (a *App) initServices() error {
	window, err := time.ParseDuration(a.Config.RateLimit.Window)
	if err != nil {
		return fmt.Errorf("invalid ratelimit window: %w", err)
	}
	limiter, err := ratelimit.NewFixedWindowLimiter(a.Config.RateLimit.MaxPerWindow, window, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create rate limiter: %w", err)
	}
	a.RateLimiter = limiter

	retrievalClient, err := retrieval.NewClient(&a.Config.Retrieval, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create retrieval client: %w", err)
	}
	a.RetrievalService = retrievalClient

	generationService, err := generation.NewGenerationService(&a.Config.LLM, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create generation service: %w", err)
	}
	a.GenerationService = generationService

	a.QueryService = query.NewService(
		a.RateLimiter,
		preprocess.NewCleaner(a.Config.Preprocess.MaxQueryLength),
		a.RetrievalService,
		a.GenerationService,
		a.AuditStorage,
		a.Config,
		a.Logger,
	)

	probeTimeout, _ := time.ParseDuration(a.Config.Status.ProbeTimeout)
	a.StatusService = status.NewService(a.RetrievalService, a.GenerationService, probeTimeout, a.Logger)

	if a.Config.Slack.Enabled {
		webClient := slack.NewWebClient(a.Config.Slack.BotToken, a.Config.Slack.AppToken, a.Logger)
		a.SlackConnector = slack.NewConnector(&a.Config.Slack, webClient, a.QueryService, a.Logger)
	}

	return nil
}

func (a *App) initHandlers() {
	a.ChatHandler = handlers.NewChatHandler(a.QueryService, a.Logger)
	a.StatusHandler = handlers.NewStatusHandler(a.StatusService, a.Logger)
}

// Start launches the background components: the status refresher and,
// when enabled, the Slack connector.
func (a *App) Start() error {
	if err := a.StatusService.Start(a.Config.Status.RefreshSchedule); err != nil {
		return fmt.Errorf("failed to start status refresher: %w", err)
	}
	if a.SlackConnector != nil {
		a.SlackConnector.Start()
	}
	return nil
}

// Close shuts down background components and releases resources.
func (a *App) Close() error {
	if a.SlackConnector != nil {
		a.SlackConnector.Stop()
	}
	if a.StatusService != nil {
		a.StatusService.Stop()
	}
	if a.GenerationService != nil {
		if err := a.GenerationService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close generation service")
		}
	}
	if a.AuditStorage != nil {
		if err := a.AuditStorage.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close audit storage")
			return err
		}
	}
	a.Logger.Info().Msg("Application closed")
	return nil
}

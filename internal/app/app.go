package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/dupremover/internal/common"
	"github.com/ternarybob/dupremover/internal/handlers"
	"github.com/ternarybob/dupremover/internal/services/portal"
	"github.com/ternarybob/dupremover/internal/services/records"
	"github.com/ternarybob/dupremover/internal/services/runs"
	"github.com/ternarybob/dupremover/internal/storage/badger"
	"github.com/ternarybob/dupremover/internal/storage/files"
)

// runDrainTimeout bounds how long Close waits for in-flight runs
const runDrainTimeout = 30 * time.Second

// App holds all application components and dependencies
type App struct {
	Config    *common.Config
	Logger    arbor.ILogger
	ctx       context.Context
	cancelCtx context.CancelFunc

	// Storage
	DB             *badger.BadgerDB
	RunStorage     *badger.RunStorage
	SessionStorage *files.SessionStorage
	AuditStorage   *files.AuditStorage

	// Services
	Loader       *records.CSVLoader
	Launcher     *portal.ChromeLauncher
	Automator    *portal.Automator
	LoginService *portal.LoginService
	RunService   *runs.Service

	// HTTP handlers
	APIHandler     *handlers.APIHandler
	RunHandler     *handlers.RunHandler
	LoginHandler   *handlers.LoginHandler
	LogHandler     *handlers.LogHandler
	SessionHandler *handlers.SessionHandler
	WSHandler      *handlers.WebSocketHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		Config:    cfg,
		Logger:    logger,
		ctx:       ctx,
		cancelCtx: cancel,
	}

	if err := app.initStorage(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	if err := app.initServices(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initHandlers()

	logger.Info().
		Str("source_file", cfg.Data.SourceFile).
		Bool("headless", cfg.Browser.Headless).
		Msg("Application initialization complete")

	return app, nil
}

// initStorage opens the run store and the file-backed session and audit stores
func (a *App) initStorage() error {
	db, err := badger.NewBadgerDB(a.Logger)
	if err != nil {
		return err
	}
	a.DB = db
	a.RunStorage = badger.NewRunStorage(db, a.Logger)

	sessions, err := files.NewSessionStorage(a.Config.Storage.SessionsDir, a.Logger)
	if err != nil {
		return err
	}
	a.SessionStorage = sessions

	audit, err := files.NewAuditStorage(a.Config.Storage.LogsDir, a.Logger)
	if err != nil {
		return err
	}
	a.AuditStorage = audit

	a.Logger.Debug().
		Str("sessions_dir", a.Config.Storage.SessionsDir).
		Str("logs_dir", a.Config.Storage.LogsDir).
		Msg("Storage layer initialized")
	return nil
}

func (a *App) initServices() error {
	a.Loader = records.NewCSVLoader(a.Config.Data.SourceFile, a.Logger)
	a.Launcher = portal.NewChromeLauncher(a.Config.Browser, a.Config.Portal, a.Logger)
	a.Automator = portal.NewAutomator(a.Config.Portal, a.Config.Browser, a.Logger)

	a.LoginService = portal.NewLoginService(a.ctx, a.Config.Browser, a.Config.Portal, a.Config.Login, a.Logger)
	if err := a.LoginService.Start(); err != nil {
		return fmt.Errorf("failed to start login sweeper: %w", err)
	}

	a.RunService = runs.NewService(a.ctx, runs.Dependencies{
		Runs:      a.RunStorage,
		Sessions:  a.SessionStorage,
		Audit:     a.AuditStorage,
		Source:    a.Loader,
		Launcher:  a.Launcher,
		Login:     a.LoginService,
		Automator: a.Automator,
	}, a.Logger)

	a.Logger.Debug().Msg("Services initialized")
	return nil
}

func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler(a.Logger)
	a.RunHandler = handlers.NewRunHandler(a.RunService, a.Logger)
	a.LoginHandler = handlers.NewLoginHandler(a.LoginService, a.Logger)
	a.LogHandler = handlers.NewLogHandler(a.AuditStorage, a.Logger)
	a.SessionHandler = handlers.NewSessionHandler(a.SessionStorage, a.Logger)
	a.WSHandler = handlers.NewWebSocketHandler(a.RunService, a.Logger, &a.Config.WebSocket)
}

// Close stops background work and releases storage. In-flight runs get
// runDrainTimeout to finish before their browsers are cancelled.
func (a *App) Close() error {
	if a.RunService != nil {
		ctx, cancel := context.WithTimeout(context.Background(), runDrainTimeout)
		if err := a.RunService.Shutdown(ctx); err != nil {
			a.Logger.Warn().Err(err).Msg("Runs still in flight at shutdown, cancelling")
		}
		cancel()
	}

	if a.cancelCtx != nil {
		a.cancelCtx()
	}

	if a.LoginService != nil {
		a.LoginService.Stop()
		a.Logger.Info().Msg("Login browsers closed")
	}

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}

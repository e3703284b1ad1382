// internal/app.go
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jmoiron/sqlx"

	router "bankgen/internal/api"
	"bankgen/internal/api/handler"
	"bankgen/internal/auth"
	"bankgen/internal/config"
	"bankgen/internal/repository"
	"bankgen/internal/repository/jsonfile"
	"bankgen/internal/repository/memory"
	"bankgen/internal/repository/postgres"
	"bankgen/internal/sim"
	"bankgen/internal/util"
	"bankgen/pkg/db"
)

// Application holds all the initialized components of the application.
type Application struct {
	Config *config.AppConfig
	Logger *slog.Logger
	DB     *sqlx.DB

	Repository repository.Repository
	Auth       *auth.Service
	Engine     *sim.Engine

	// HTTP API
	HTTPHandler http.Handler
}

// NewApplication creates a new Application instance.
func NewApplication() *Application {
	return &Application{}
}

// Initialize initializes all application components.
func (app *Application) Initialize(ctx context.Context) error {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	app.Config = cfg

	// 2. Initialize Logger
	util.InitLogger(slog.LevelInfo)
	app.Logger = util.GetLogger()
	app.Logger.Info("Application configuration loaded successfully.", "backend", cfg.StorageBackend)

	// 3. Initialize Repository
	switch cfg.StorageBackend {
	case config.BackendPostgres:
		database, err := db.NewPostgresDB(cfg.DB)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		app.DB = database
		store := postgres.New(database)
		if err := store.InitSchema(ctx); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
		app.Repository = store
		app.Logger.Info("Database connection established.")
	case config.BackendJSON:
		store, err := jsonfile.New(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("failed to open data directory: %w", err)
		}
		app.Repository = store
		app.Logger.Info("JSON file store opened.", "data_dir", cfg.DataDir)
	case config.BackendMemory:
		app.Repository = memory.New()
		app.Logger.Info("In-memory store initialized.")
	}

	// 4. Initialize Simulation Engine
	opts := []sim.Option{sim.WithLogger(app.Logger)}
	if cfg.SimBatchSize > 0 {
		opts = append(opts, sim.WithBatchSize(cfg.SimBatchSize))
	}
	engine, err := sim.New(ctx, app.Repository, opts...)
	if err != nil {
		return fmt.Errorf("failed to build simulation engine: %w", err)
	}
	if err := engine.LoadWorld(ctx); err != nil {
		return fmt.Errorf("failed to load world state: %w", err)
	}
	app.Engine = engine
	app.Logger.Info("Simulation engine initialized.", "current_date", engine.CurrentDate())

	// 5. Initialize Auth Service
	app.Auth = auth.NewService(app.Repository, cfg.JWTSecret, auth.DefaultTokenTTL, app.Logger)

	// 6. Initialize HTTP Handlers and Router
	bankHandler := handler.NewBankHandler(app.Repository, app.Engine, app.Logger)
	authHandler := handler.NewAuthHandler(app.Auth, app.Logger)
	app.HTTPHandler = router.NewRouter(bankHandler, authHandler, app.Auth, app.Logger)
	app.Logger.Info("HTTP router and handlers initialized.")

	return nil
}

// Shutdown gracefully shuts down application resources.
func (app *Application) Shutdown(ctx context.Context) error {
	app.Logger.Info("Shutting down application...")

	if app.Engine != nil {
		if err := app.Engine.Flush(ctx); err != nil {
			app.Logger.Error("Failed to flush pending transactions", "error", err)
		}
	}
	if app.DB != nil {
		if err := app.DB.Close(); err != nil {
			app.Logger.Error("Failed to close database connection", "error", err)
			return fmt.Errorf("failed to close database connection: %w", err)
		}
		app.Logger.Info("Database connection closed.")
	}
	app.Logger.Info("Application shut down gracefully.")
	return nil
}

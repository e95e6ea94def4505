// Package app provides the application initialization and lifecycle management
package app

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/tildaslashalef/docsync/internal/config"
	"github.com/tildaslashalef/docsync/internal/engine"
	"github.com/tildaslashalef/docsync/internal/loggy"
	"github.com/tildaslashalef/docsync/internal/store"
	"github.com/tildaslashalef/docsync/internal/utils"
)

// App represents the application instance with its dependencies
type App struct {
	Config *config.Config
	Store  *store.Client
	Logger *loggy.Logger

	engines []*engine.Engine
}

// New initializes a new application instance with all its dependencies
func New(configDir, envFile string) (*App, error) {
	cfg, err := initConfig(configDir, envFile)
	if err != nil {
		return nil, err
	}

	if err := initLogger(cfg); err != nil {
		return nil, err
	}

	loggy.Info("Application initializing",
		"version", os.Getenv("VERSION"),
		"config_dir", cfg.ConfigDir(),
		"log_level", cfg.Logging.Level,
		"store_url", cfg.Store.URL,
		"authenticated", cfg.Store.Token != "",
	)

	logger := loggy.GetGlobalLogger()
	client := store.NewClient(cfg.Store, logger)

	loggy.Info("Application initialized successfully")
	return &App{
		Config: cfg,
		Store:  client,
		Logger: logger,
	}, nil
}

// initConfig loads and sets up the application configuration
func initConfig(configDir, envFile string) (*config.Config, error) {
	cfg, err := config.LoadFromEnv(configDir, envFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// initLogger initializes the logging system
func initLogger(cfg *config.Config) error {
	if err := loggy.Init(LoggerConfig(cfg.Logging)); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// LoggerConfig overlays the logging settings on the logger defaults
func LoggerConfig(cfg config.LoggingConfig) loggy.Config {
	lc := loggy.DefaultConfig()
	lc.Level = config.ParseLogLevel(cfg.Level)
	lc.AddSource = cfg.AddSource
	if cfg.Format != "" {
		lc.Format = cfg.Format
	}
	if cfg.Output != "" {
		lc.Output = cfg.Output
	}
	if cfg.TimeFormat != "" {
		lc.TimeFormat = cfg.TimeFormat
	}
	return lc
}

// NewEngine builds a synchronization engine on the application's store.
// Engines created here are deactivated on Shutdown.
func (app *App) NewEngine(notifier engine.Notifier, hooks engine.Hooks) *engine.Engine {
	e := engine.New(app.Store, EngineOptions(app.Config, notifier, hooks, app.Logger))
	app.engines = append(app.engines, e)
	return e
}

// EngineOptions maps configuration onto engine options
func EngineOptions(cfg *config.Config, notifier engine.Notifier, hooks engine.Hooks, logger *loggy.Logger) engine.Options {
	return engine.Options{
		PollInterval:      cfg.Engine.PollInterval,
		PollConcurrency:   cfg.Engine.PollConcurrency,
		DeleteConcurrency: cfg.Engine.DeleteConcurrency,
		UseColpali:        cfg.Upload.UseColpali,
		Notifier:          notifier,
		Hooks:             hooks,
		Logger:            logger,
		FilenameGenerator: utils.GenerateDocumentName,
	}
}

// Shutdown gracefully shuts down the application
func (app *App) Shutdown() error {
	loggy.Info("Shutting down application")

	for _, e := range app.engines {
		e.Deactivate()
	}
	app.engines = nil

	return nil
}

// FromContext retrieves the App instance from the CLI context
func FromContext(c *cli.Context) (*App, error) {
	if c.App.Metadata == nil {
		return nil, fmt.Errorf("app metadata not found in context")
	}

	app, ok := c.App.Metadata["app"].(*App)
	if !ok {
		return nil, fmt.Errorf("app instance not found in context")
	}

	return app, nil
}

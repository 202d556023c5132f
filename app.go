package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm/logger"

	"discussdraft/internal/config"
	"discussdraft/internal/database"
	"discussdraft/internal/events"
	"discussdraft/internal/llm/client"
	"discussdraft/internal/orchestrator"
	"discussdraft/internal/server"
	"discussdraft/internal/services"
)

// App holds the long-lived resources shared by every command.
type App struct {
	cfg      *config.Config
	logger   *slog.Logger
	services *services.Services
	dbClose  func() error
}

func NewApp(cfg *config.Config, log *slog.Logger) (*App, error) {
	events.EnableLogEmitter(log)

	level := logger.Warn
	if cfg.Log.Level == "debug" {
		level = logger.Info
	}
	db, err := database.Init(database.Config{Path: cfg.DatabasePath, LogLevel: level})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	app := &App{cfg: cfg, logger: log}
	if sqlDB, err := db.DB(); err == nil {
		app.dbClose = sqlDB.Close
	}

	keys, err := services.NewKeyringService(services.KeyringConfig{
		Backend:  cfg.Keyring.Backend,
		Dir:      keyringDir(cfg.Keyring.Dir),
		Password: cfg.Keyring.Password,
	})
	if err != nil {
		app.Close()
		return nil, err
	}

	svc, err := services.NewServices(db, keys, client.Endpoints{
		ClaudeURL:  cfg.Providers.ClaudeURL,
		GeminiURL:  cfg.Providers.GeminiURL,
		HTTPClient: &http.Client{Timeout: cfg.Providers.Timeout},
	})
	if err != nil {
		app.Close()
		return nil, err
	}
	app.services = svc
	return app, nil
}

// Close releases the database connection pool.
func (a *App) Close() {
	if a.dbClose == nil {
		return
	}
	if err := a.dbClose(); err != nil {
		a.logger.Error("failed to close database", slog.Any("error", err))
	}
	a.dbClose = nil
}

func (a *App) Router() *gin.Engine {
	return server.NewRouter(server.Deps{
		Settings:     a.services.Settings,
		History:      a.services.History,
		Catalog:      a.services.Catalog,
		Generator:    a.services.Generation,
		RateLimitQPS: a.cfg.RateLimitQPS,
	})
}

// Orchestrator builds a draft orchestrator over pages. A non-empty remote
// address sends generations to a running server instead of calling the
// providers in process.
func (a *App) Orchestrator(pages orchestrator.PageSource, presenter orchestrator.Presenter, remote string) *orchestrator.Orchestrator {
	var gen orchestrator.Generator = a.services.Generation
	if remote != "" {
		gen = server.NewRemoteGenerator(remote, &http.Client{Timeout: a.cfg.Providers.Timeout})
	}
	return orchestrator.New(orchestrator.Config{
		Generator: gen,
		Settings:  a.services.Settings,
		History:   a.services.History,
		Pages:     pages,
		Presenter: presenter,
	})
}

func keyringDir(dir string) string {
	if dir != "" {
		return dir
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", ".discussdraft-keys")
	}
	return filepath.Join(configDir, "discussdraft", "keys")
}

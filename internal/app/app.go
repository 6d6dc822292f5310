package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lecternfm/lectern-backend/internal/db"
	"github.com/lecternfm/lectern-backend/internal/observability"
	"github.com/lecternfm/lectern-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	DB       *db.Service
	Router   *gin.Engine
	Repos    Repos
	Services Services
	Clients  Clients

	middleware Middleware
	httpServer *http.Server
	otelStop   func(context.Context) error
}

func New() (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	otelStop := observability.InitTracing(context.Background(), log, cfg.OTel)

	dbService, err := db.NewService(cfg.DB, log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := dbService.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	theDB := dbService.DB()

	clients, err := wireClients(log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}

	reposet := wireRepos(theDB, log)
	serviceset := wireServices(theDB, log, cfg, reposet, clients)
	middlewareset := wireMiddleware(log, cfg, serviceset)
	handlerset := wireHandlers(log, dbService, serviceset)
	router := wireRouter(log, cfg, handlerset, middlewareset)

	return &App{
		Log:        log,
		Cfg:        cfg,
		DB:         dbService,
		Router:     router,
		Repos:      reposet,
		Services:   serviceset,
		Clients:    clients,
		middleware: middlewareset,
		otelStop:   otelStop,
	}, nil
}

// Start launches background work: currently just the rate-limiter janitor.
func (a *App) Start() {
	if a == nil {
		return
	}
	a.middleware.RateLimiter.Start()
}

// Run serves HTTP until Shutdown is called.
func (a *App) Run() error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	a.httpServer = &http.Server{
		Addr:    ":" + a.Cfg.HTTPPort,
		Handler: a.Router,
	}
	a.Log.Info("http server listening", "port", a.Cfg.HTTPPort)
	if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http serve: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within the given context.
func (a *App) Shutdown(ctx context.Context) error {
	if a == nil || a.httpServer == nil {
		return nil
	}
	return a.httpServer.Shutdown(ctx)
}

// Close releases everything Run does not own. Call after Shutdown.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.middleware.RateLimiter != nil {
		a.middleware.RateLimiter.Stop()
	}
	if a.Clients.URLCache != nil {
		if err := a.Clients.URLCache.Close(); err != nil {
			a.Log.Warn("redis close failed", "error", err)
		}
	}
	if a.otelStop != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.otelStop(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Log.Warn("db close failed", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}

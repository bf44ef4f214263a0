package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"rehearsal-hub/core/cache"
	"rehearsal-hub/core/config"
	"rehearsal-hub/core/crypto"
	"rehearsal-hub/core/database"
	"rehearsal-hub/core/logger"
	"rehearsal-hub/core/middleware"
	"rehearsal-hub/core/storage"
	availabilityService "rehearsal-hub/modules/availability/service"
	"rehearsal-hub/modules/devicecal"
	"rehearsal-hub/modules/sync"
	syncWorker "rehearsal-hub/modules/sync/worker"
)

// Run starts the API server and the background worker, blocking until an
// interrupt arrives and shutdown completes.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.App.LogLevel, cfg.App.LogFormat)
	logger.Info("Server:Run:Starting", "env", cfg.App.Env)

	db, err := database.InitDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer db.Close()

	redisCache, err := cache.NewRedisCache(cfg.Redis)
	if err != nil {
		return fmt.Errorf("init redis: %w", err)
	}

	encryptor, err := crypto.NewEncryptor(cfg.App.EncryptionKey)
	if err != nil {
		return fmt.Errorf("init encryptor: %w", err)
	}

	var objects storage.ObjectStore
	if cfg.S3.Enabled {
		objects, err = storage.NewS3Store(cfg.S3)
		if err != nil {
			return fmt.Errorf("init object store: %w", err)
		}
	}

	e := echo.New()
	e.HideBanner = true
	mw := middleware.NewMiddleware()
	e.Use(mw.RequestLogger())
	e.Use(mw.Recover())
	e.Use(mw.CORS())

	e.GET("/healthz", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	backend := availabilityService.NewHTTPClient(cfg.Backend)
	provider, calendars := devicecal.Init(e, &db, encryptor, cfg)
	syncModule := sync.Init(e, &db, redisCache, provider, calendars, backend, objects)

	worker := syncWorker.New(cfg, syncModule.Orchestrator, syncModule.Store)
	if err := worker.Start(cfg.Sync.AutoImportTick); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		worker.Shutdown()
		return fmt.Errorf("server: %w", err)
	case sig := <-quit:
		logger.Info("Server:Run:Shutdown", "signal", sig.String())
	}

	worker.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

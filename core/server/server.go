package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"presence-sync/core/cache"
	"presence-sync/core/config"
	"presence-sync/core/database"
	"presence-sync/core/logger"
	"presence-sync/core/middleware"
	"presence-sync/core/scheduler"
	"presence-sync/core/storage"
	"presence-sync/modules/calendarsync"
	"presence-sync/modules/link"
	"presence-sync/modules/presence"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/robfig/cron/v3"
)

// Run assembles the whole service: stores, scheduler, HTTP surface, the
// transition worker, and the cron tick driving reconciliation. It blocks
// until SIGINT/SIGTERM, then drains everything.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.InitDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer db.Close()

	redisCache, err := cache.InitCache(cfg.Redis)
	if err != nil {
		return fmt.Errorf("init cache: %w", err)
	}

	var uploader storage.Uploader
	if cfg.Storage.Bucket != "" {
		uploader, err = storage.NewUploader(cfg.Storage)
		if err != nil {
			return fmt.Errorf("init storage: %w", err)
		}
	} else {
		logger.Warn("Server:Storage:Disabled", "reason", "S3_BUCKET not set")
	}

	redisOpt := scheduler.RedisOpt(cfg.Redis)
	sched := scheduler.NewScheduler(redisOpt)
	worker, mux := scheduler.NewWorker(redisOpt)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())

	mw := middleware.NewMiddleware(cfg)

	presenceService := presence.Init(e, redisCache, uploader, mw)
	syncService := calendarsync.Init(e, db, sched, mux, presenceService, cfg, mw)
	link.Init(e, db, syncService, mw)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	ticker := cron.New()
	if _, err := ticker.AddFunc(cfg.Sync.Cron, func() {
		if err := syncService.Reconcile(context.Background()); err != nil {
			logger.Error("Server:SyncTick:Error", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("register sync cron %q: %w", cfg.Sync.Cron, err)
	}
	ticker.Start()

	go func() {
		if err := worker.Run(mux); err != nil {
			logger.Error("Server:Worker:Error", "error", err)
		}
	}()

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		logger.Info("Server:Start", "addr", addr, "env", cfg.Server.Env)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Error("Server:Start:Error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Server:Shutdown:Begin")
	<-ticker.Stop().Done()
	worker.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	logger.Info("Server:Shutdown:Done")
	return nil
}

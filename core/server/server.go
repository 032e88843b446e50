package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"calsync-api/core/cache"
	"calsync-api/core/config"
	"calsync-api/core/constants"
	"calsync-api/core/database"
	"calsync-api/core/logger"
	"calsync-api/core/tasks"
	"calsync-api/modules/auth"
	"calsync-api/modules/calendar"
	"calsync-api/modules/event"
	"calsync-api/modules/provider"
	"calsync-api/modules/provider/google"
	"calsync-api/modules/provider/tracker"
	"calsync-api/modules/sync"

	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// Run boots the whole service: config, storage, the workflow worker and the
// HTTP API share one binary.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger.Init(cfg.LogLevel)

	db, err := database.InitDB(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	redisCache, err := cache.NewRedisCache(cfg.Redis)
	if err != nil {
		return err
	}

	asynqClient := asynq.NewClient(tasks.RedisOpt(cfg.Redis))
	defer asynqClient.Close()
	distributor := tasks.NewDistributor(asynqClient)
	worker := tasks.NewWorker(tasks.RedisOpt(cfg.Redis))

	providers := provider.NewRegistry(map[string]provider.Client{
		provider.Google:  google.NewClient(cfg.GoogleAPI),
		provider.Tracker: tracker.NewClient(cfg.Tracker),
	})

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())

	// Module wiring
	auth.Init(e, db, redisCache, providers, distributor)
	calendar.Init(e, db)
	event.Init(e, db, distributor)
	sync.Init(e, db, providers, distributor, worker.Mux())

	if err := worker.RegisterPeriodic(); err != nil {
		return err
	}
	worker.Start()
	defer worker.Shutdown()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit

		logger.Info("Server:Shutdown:Start")
		ctx, cancel := context.WithTimeout(context.Background(), constants.DefaultTimeout)
		defer cancel()
		if err := e.Shutdown(ctx); err != nil {
			logger.Error("Server:Shutdown:Error", "error", err)
		}
	}()

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("Server:Start", "addr", addr)
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

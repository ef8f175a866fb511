package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"coaching_portal_backend/internal/events"
	"coaching_portal_backend/internal/notification"
	"coaching_portal_backend/internal/pipeline/repository"
	"coaching_portal_backend/internal/pipeline/tuning"
	"coaching_portal_backend/internal/scheduler"
	"coaching_portal_backend/platform/config"
	"coaching_portal_backend/platform/db"
	"coaching_portal_backend/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg, log)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	tun, err := tuning.Load(cfg.GetPipelineTuningPath())
	if err != nil {
		log.Error("failed to load pipeline tuning", "error", err)
		panic("failed to load pipeline tuning: " + err.Error())
	}
	model, err := tun.Model()
	if err != nil {
		log.Error("failed to build scoring model", "error", err)
		panic("failed to build scoring model: " + err.Error())
	}

	eventBus := events.NewInMemoryBus(log)

	publisher, err := notification.NewPublisher(cfg, log)
	if err != nil {
		log.Error("failed to initialize notification publisher", "error", err)
		panic("failed to initialize notification publisher: " + err.Error())
	}
	notificationModule := notification.New(publisher, log)
	notificationModule.RegisterHandlers(eventBus)
	defer func() { _ = notificationModule.Close() }()

	repo := repository.New(pool)

	scoreRefresh := scheduler.NewScoreRefresh(repo, model, log, cfg.GetScoreRefreshInterval())
	go scoreRefresh.Run(ctx)

	marker := initAlertMarker(cfg, log)
	stallSweep := scheduler.NewStallSweep(repo, marker, eventBus, log, cfg.GetStallSweepInterval(), tun.StallThresholdDays)
	go stallSweep.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, repo, eventBus, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
	eventBus.Wait()
}

func initAlertMarker(cfg config.SchedulerConfig, log *logger.Logger) scheduler.AlertMarker {
	client, err := scheduler.NewRedisClient(cfg)
	if err != nil {
		log.Warn("stall alerts deduplicated in memory only", "error", err)
		return scheduler.NewMemoryAlertMarker()
	}
	return scheduler.NewRedisAlertMarker(client)
}

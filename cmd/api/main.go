package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coaching_portal_backend/internal/events"
	apphttp "coaching_portal_backend/internal/http"
	"coaching_portal_backend/internal/http/router"
	"coaching_portal_backend/internal/notification"
	"coaching_portal_backend/internal/pipeline"
	"coaching_portal_backend/internal/pipeline/repository"
	"coaching_portal_backend/internal/pipeline/scheduling"
	"coaching_portal_backend/internal/pipeline/tuning"
	"coaching_portal_backend/internal/scheduler"
	"coaching_portal_backend/migrations"
	"coaching_portal_backend/platform/config"
	"coaching_portal_backend/platform/db"
	"coaching_portal_backend/platform/logger"
	"coaching_portal_backend/platform/validator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure
	// ========================================================================

	pool, err := db.Connect(ctx, cfg, log)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	if cfg.MigrationsEnabled {
		if err := db.Retry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
			return db.RunMigrations(ctx, pool, migrations.FS, log)
		}); err != nil {
			log.Error("failed to run database migrations", "error", err)
			panic("failed to run database migrations: " + err.Error())
		}
		log.Info("database migrations complete")
	}

	tun, err := tuning.Load(cfg.GetPipelineTuningPath())
	if err != nil {
		log.Error("failed to load pipeline tuning", "error", err)
		panic("failed to load pipeline tuning: " + err.Error())
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

	reminderScheduler, closeScheduler := initReminderScheduler(cfg, log)
	if closeScheduler != nil {
		defer closeScheduler()
	}

	// ========================================================================
	// Domain Modules
	// ========================================================================

	pipelineModule, err := pipeline.NewModule(repository.New(pool), tun, reminderScheduler, eventBus, validator.New(), log)
	if err != nil {
		log.Error("failed to initialize pipeline module", "error", err)
		panic("failed to initialize pipeline module: " + err.Error())
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config: cfg,
		Logger: log,
		Health: db.NewPoolAdapter(pool),
		Modules: []apphttp.Module{
			pipelineModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
		eventBus.Wait()
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initReminderScheduler(cfg config.SchedulerConfig, log *logger.Logger) (scheduling.ReminderScheduler, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; follow-up reminders disabled")
		return nil, nil
	}

	reminderClient, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize reminder scheduler client", "error", err)
		return nil, nil
	}

	return reminderClient, func() {
		_ = reminderClient.Close()
	}
}

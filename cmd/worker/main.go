package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/noah-isme/backend-voucher/internal/app"
	"github.com/noah-isme/backend-voucher/internal/config"
	"github.com/noah-isme/backend-voucher/internal/jobs"
	"github.com/noah-isme/backend-voucher/internal/lock"
	"github.com/noah-isme/backend-voucher/internal/obs"
	"github.com/noah-isme/backend-voucher/internal/resilience"
	"github.com/noah-isme/backend-voucher/internal/voucher"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("component", "worker").Logger()
	if cfg.EnablePrometheus {
		obs.MustRegisterDomainMetrics(cfg.MetricsNamespace, nil)
		resilience.MustRegisterMetrics(cfg.MetricsNamespace, nil)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	deps, err := app.Build(initCtx, cfg, logger, app.Options{ApplicationName: "voucher-worker", RequireRedis: true, RequireDatabase: true})
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise dependencies")
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Error().Err(err).Msg("close dependencies")
		}
	}()

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url for asynq")
	}
	asynqLogger := jobs.Logger{L: logger.With().Str("subsystem", "asynq").Logger()}

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.WorkerConcurrency,
		Logger:      asynqLogger,
		ErrorHandler: asynq.ErrorHandlerFunc(func(_ context.Context, task *asynq.Task, err error) {
			logger.Error().Err(err).Str("task", task.Type()).Msg("task failed")
		}),
	})
	mux := asynq.NewServeMux()
	jobs.Register(mux, &jobs.SweepHandler{
		Sweeper: deps.Service,
		Clock:   voucher.SystemClock{Location: cfg.SweepLocation},
		Locker:  &lock.Locker{R: deps.Redis},
		LockTTL: cfg.SweepLockTTL,
		Logger:  &logger,
	})

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
		Location: cfg.SweepLocation,
		Logger:   asynqLogger,
	})
	entryID, err := jobs.RegisterSchedule(scheduler, cfg.SweepCron)
	if err != nil {
		logger.Fatal().Err(err).Msg("register sweep schedule")
	}

	if err := srv.Start(mux); err != nil {
		logger.Fatal().Err(err).Msg("start task server")
	}
	if err := scheduler.Start(); err != nil {
		logger.Fatal().Err(err).Msg("start scheduler")
	}

	// A sweep missed while no worker was running is caught up on boot.
	client := asynq.NewClient(redisOpt)
	if _, err := client.EnqueueContext(ctx, jobs.NewSweepTask()); err != nil {
		logger.Warn().Err(err).Msg("enqueue startup sweep")
	}
	_ = client.Close()

	logger.Info().
		Str("cron", cfg.SweepCron).
		Str("timezone", cfg.SweepLocation.String()).
		Str("entry_id", entryID).
		Msg("worker started")

	<-ctx.Done()
	scheduler.Shutdown()
	srv.Shutdown()
	logger.Info().Msg("worker shutdown complete")
}

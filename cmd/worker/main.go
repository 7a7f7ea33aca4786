package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/wayfarer-app/wayfarer/internal/app"
	jobmetrics "github.com/wayfarer-app/wayfarer/internal/jobs"
	"github.com/wayfarer-app/wayfarer/internal/participants"
	"github.com/wayfarer-app/wayfarer/internal/platform/db"
	"github.com/wayfarer-app/wayfarer/internal/policy"
	"github.com/wayfarer-app/wayfarer/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	policyClient := policy.NewClient(cfg.PolicyURL, cfg.PolicyAPIKey, cfg.PolicyTimeout, policy.WithLogger(logger))

	participantRepo := participants.NewRepository(pool)
	reconcileJob := jobs.NewReconcileJob(participantRepo, policyClient, logger, jobmetrics.NewMetrics(nil))

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskAuthzReconcile, Handler: reconcileJob.HandleSweep},
			{Type: jobs.TaskAuthzResync, Handler: reconcileJob.HandleResync},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.ReconcileCron, Task: jobs.NewReconcileTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("starting worker", slog.String("reconcile_cron", cfg.ReconcileCron))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker shut down")
}

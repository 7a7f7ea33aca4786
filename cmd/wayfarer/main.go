package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/wayfarer-app/wayfarer/internal/app"
	"github.com/wayfarer-app/wayfarer/internal/auth"
	"github.com/wayfarer-app/wayfarer/internal/authz"
	"github.com/wayfarer-app/wayfarer/internal/expenses"
	"github.com/wayfarer-app/wayfarer/internal/observability"
	"github.com/wayfarer-app/wayfarer/internal/participants"
	"github.com/wayfarer-app/wayfarer/internal/platform/cache"
	"github.com/wayfarer-app/wayfarer/internal/platform/db"
	"github.com/wayfarer-app/wayfarer/internal/policy"
	"github.com/wayfarer-app/wayfarer/internal/roles"
	"github.com/wayfarer-app/wayfarer/internal/shared"
	"github.com/wayfarer-app/wayfarer/internal/trips"
	"github.com/wayfarer-app/wayfarer/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "wayfarer_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	metrics := observability.NewMetrics()

	policyClient := policy.NewClient(cfg.PolicyURL, cfg.PolicyAPIKey, cfg.PolicyTimeout, policy.WithLogger(logger))

	rolesRepo := roles.NewRepository(pool)
	directory := authz.NewDirectory(rolesRepo)

	tripRepo := trips.NewRepository(pool)
	participantRepo := participants.NewRepository(pool)
	expenseRepo := expenses.NewRepository(pool)

	var evaluator authz.Evaluator
	switch cfg.AuthzStrategy {
	case "policy":
		evaluator = authz.NewPolicyEvaluator(policyClient, logger, metrics)
	default:
		evaluator = authz.NewLocalEvaluator(participantRepo, expenseRepo, directory, logger, metrics)
	}
	logger.Info("authorization strategy selected", slog.String("strategy", cfg.AuthzStrategy))

	jobsClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	syncer := authz.NewSynchronizer(policyClient, jobsClient, logger, metrics)
	gateway := authz.NewGateway(evaluator, authz.NewResolverRegistry(cfg.DefaultOrgID), logger, metrics)

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo, syncer, cfg.DefaultOrgID)
	authHandler := auth.NewHandler(logger, authService, sessionManager)

	tripService := trips.NewService(tripRepo, directory, syncer, cfg.DefaultOrgID)
	tripHandler := trips.NewHandler(logger, tripService, gateway)

	participantService := participants.NewService(participantRepo, directory, syncer)
	participantHandler := participants.NewHandler(logger, participantService, gateway)

	expenseService := expenses.NewService(expenseRepo, syncer)
	expenseHandler := expenses.NewHandler(logger, expenseService, gateway)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		AuthHandler:        authHandler,
		TripHandler:        tripHandler,
		ParticipantHandler: participantHandler,
		ExpenseHandler:     expenseHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

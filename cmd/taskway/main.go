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

	"github.com/taskway/taskway/internal/accounts"
	"github.com/taskway/taskway/internal/app"
	"github.com/taskway/taskway/internal/auth"
	"github.com/taskway/taskway/internal/boards"
	"github.com/taskway/taskway/internal/guard"
	"github.com/taskway/taskway/internal/notifications"
	"github.com/taskway/taskway/internal/observability"
	"github.com/taskway/taskway/internal/platform/cache"
	"github.com/taskway/taskway/internal/platform/db"
	"github.com/taskway/taskway/internal/shared"
	"github.com/taskway/taskway/internal/tasks"
	"github.com/taskway/taskway/jobs"
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

	pool, err := db.New(ctx, db.Config{DSN: cfg.PGDSN, MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	tokens := auth.NewTokens(cfg.TokenSecret, cfg.TokenTTL)
	denylist := auth.NewDenylist(redisClient)

	auditLogger := shared.NewAuditLogger(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)

	accountsRepo := accounts.NewRepository(pool)
	accountsService := accounts.NewService(accountsRepo)

	resolver := guard.NewResolver(accountsService)
	visibility := guard.NewVisibility(accountsService)

	authService := auth.NewService(accountsService, tokens, denylist)
	authHandler := auth.NewHandler(logger, authService)
	authMiddleware := &auth.Middleware{Tokens: tokens, Denylist: denylist, Logger: logger}

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
	queueClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := queueClient.Close(); err != nil {
			logger.Warn("queue client close", slog.Any("error", err))
		}
	}()

	boardsRepo := boards.NewRepository(pool)
	boardsService := boards.NewService(boardsRepo, visibility)

	tasksRepo := tasks.NewRepository(pool)
	tasksService := tasks.NewService(logger, tasksRepo, visibility, boardsService,
		idempotencyStore, jobs.NewNotifier(queueClient), auditLogger)

	notificationsRepo := notifications.NewRepository(pool)
	notificationsService := notifications.NewService(notificationsRepo, visibility)

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:               logger,
		Config:               cfg,
		AuthMiddleware:       authMiddleware,
		AuthHandler:          authHandler,
		AccountsHandler:      accounts.NewHandler(logger, accountsService, resolver, visibility),
		BoardsHandler:        boards.NewHandler(logger, boardsService, resolver),
		TasksHandler:         tasks.NewHandler(logger, tasksService, resolver),
		NotificationsHandler: notifications.NewHandler(logger, notificationsService, resolver),
		JobsHandler:          jobs.NewHandler(inspector, logger),
		Metrics:              metrics,
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

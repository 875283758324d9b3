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

	"github.com/campusledger/campusledger/internal/app"
	"github.com/campusledger/campusledger/internal/audit"
	audithttp "github.com/campusledger/campusledger/internal/audit/http"
	"github.com/campusledger/campusledger/internal/auth"
	"github.com/campusledger/campusledger/internal/budgets"
	"github.com/campusledger/campusledger/internal/departments"
	"github.com/campusledger/campusledger/internal/observability"
	"github.com/campusledger/campusledger/internal/platform/cache"
	"github.com/campusledger/campusledger/internal/platform/db"
	"github.com/campusledger/campusledger/internal/rbac"
	"github.com/campusledger/campusledger/internal/transactions"
	"github.com/campusledger/campusledger/internal/users"
	"github.com/campusledger/campusledger/jobs"
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

	// Redis is an accelerator, not a dependency: when it is unreachable the
	// permission cache degrades to direct recomputation.
	var backend rbac.CacheBackend = rbac.NoopBackend{}
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, permission cache disabled", slog.Any("error", err))
	} else {
		backend = rbac.NewRedisBackend(redisClient)
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	metrics := observability.NewMetrics()

	permCache := rbac.NewPermissionCache(backend, logger).WithTTL(cfg.PermissionCacheTTL).WithOps(metrics)
	guards := rbac.Middleware{
		Cache:   permCache,
		Scopes:  rbac.NewPGScopeSource(pool),
		Logger:  logger,
		Denials: metrics,
	}

	recorder := audit.NewRecorder(pool, logger)

	tokens := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)
	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo, tokens, recorder, permCache, logger)
	authHandler := auth.NewHandler(logger, authService)
	resolver := auth.NewResolver(tokens, authRepo, logger)

	mailQueue, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := mailQueue.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	usersService := users.NewService(users.NewRepository(pool), recorder, permCache, mailQueue, logger)
	usersHandler := users.NewHandler(logger, usersService, guards)

	departmentsService := departments.NewService(departments.NewRepository(pool), recorder)
	departmentsHandler := departments.NewHandler(logger, departmentsService, guards)

	budgetsService := budgets.NewService(budgets.NewRepository(pool), recorder)
	budgetsHandler := budgets.NewHandler(logger, budgetsService, guards)

	transactionsService := transactions.NewService(transactions.NewRepository(pool), recorder)
	transactionsHandler := transactions.NewHandler(logger, transactionsService, guards)

	auditService := audit.NewService(audit.NewRepository(pool))
	auditHandler := audithttp.NewHandler(logger, auditService, recorder, guards, permCache, cfg.AuditRetention)

	permissionsHandler := rbac.NewPermissionsHandler(logger, permCache)

	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		Resolver:            resolver,
		AuthHandler:         authHandler,
		UsersHandler:        usersHandler,
		DepartmentsHandler:  departmentsHandler,
		BudgetsHandler:      budgetsHandler,
		TransactionsHandler: transactionsHandler,
		AuditHandler:        auditHandler,
		PermissionsHandler:  permissionsHandler,
		Metrics:             metrics,
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

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/meridian-erp/meridian-erp/internal/analytics"
	analytichttp "github.com/meridian-erp/meridian-erp/internal/analytics/http"
	"github.com/meridian-erp/meridian-erp/internal/app"
	"github.com/meridian-erp/meridian-erp/internal/coa"
	"github.com/meridian-erp/meridian-erp/internal/credit"
	"github.com/meridian-erp/meridian-erp/internal/documents"
	"github.com/meridian-erp/meridian-erp/internal/inventory"
	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/observability"
	"github.com/meridian-erp/meridian-erp/internal/parties"
	"github.com/meridian-erp/meridian-erp/internal/posting"
	"github.com/meridian-erp/meridian-erp/internal/shared"
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

	dbpool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	validate := validator.New()
	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(dbpool)

	accountsRepo := coa.NewRepository(dbpool)
	accountsService := coa.NewService(accountsRepo)
	accountsHandler := coa.NewHandler(logger, accountsService, validate)

	ledgerRepo := ledger.NewRepository(dbpool)
	ledgerService := ledger.NewService(ledgerRepo, auditLogger)
	ledgerHandler := ledger.NewHandler(logger, ledgerService, validate)

	partiesRepo := parties.NewRepository(dbpool)
	reconciler := parties.NewReconciler(partiesRepo, logger)
	partiesHandler := parties.NewHandler(logger, partiesRepo, reconciler)

	creditService := credit.NewService(partiesRepo)
	creditHandler := credit.NewHandler(logger, creditService)

	inventoryStore := inventory.NewStore(dbpool, cfg.AllowNegativeStock)
	inventoryHandler := inventory.NewHandler(logger, inventoryStore)

	reportCache := analytics.NewCache(redisClient, cfg.ReportCacheTTL)
	reportsService := analytics.NewService(analytics.NewRepository(dbpool), reportCache)
	reportsHandler := analytichttp.NewHandler(logger, reportsService)

	postingEngine := posting.NewEngine(posting.NewAccountResolver(accountsService))
	documentsRepo := documents.NewRepository(dbpool, inventoryStore)
	documentsService := documents.NewService(logger, documentsRepo, ledgerService, postingEngine, creditService, auditLogger, metrics, reportCache)
	documentsHandler := documents.NewHandler(logger, documentsService, documentsRepo, validate)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Pool:             dbpool,
		AccountsHandler:  accountsHandler,
		LedgerHandler:    ledgerHandler,
		DocumentsHandler: documentsHandler,
		PartiesHandler:   partiesHandler,
		CreditHandler:    creditHandler,
		InventoryHandler: inventoryHandler,
		ReportsHandler:   reportsHandler,
		Metrics:          metrics,
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

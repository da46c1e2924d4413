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
	"github.com/hibiken/asynq"

	"github.com/nirmaan-commerce/nirmaan/internal/app"
	"github.com/nirmaan-commerce/nirmaan/internal/billing"
	"github.com/nirmaan-commerce/nirmaan/internal/catalog"
	"github.com/nirmaan-commerce/nirmaan/internal/observability"
	"github.com/nirmaan-commerce/nirmaan/internal/platform/cache"
	"github.com/nirmaan-commerce/nirmaan/internal/platform/db"
	"github.com/nirmaan-commerce/nirmaan/internal/sales/customers"
	"github.com/nirmaan-commerce/nirmaan/internal/sales/orders"
	"github.com/nirmaan-commerce/nirmaan/internal/sales/quotes"
	"github.com/nirmaan-commerce/nirmaan/internal/sequence"
	"github.com/nirmaan-commerce/nirmaan/internal/shared"
	"github.com/nirmaan-commerce/nirmaan/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN, db.Options{})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, report cache disabled", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	validate := validator.New()
	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(pool)
	seq := sequence.NewPGAllocator(pool)
	customerRepo := customers.NewRepository(pool)
	products := catalog.NewStore(pool)

	orderCfg := orders.Config{
		SellerStateCode:  cfg.SellerStateCode,
		DefaultStateCode: cfg.DefaultStateCode,
		DefaultGSTRate:   cfg.DefaultGSTRate,
		FreightFloor:     cfg.FreightFloor,
		FreightPerUnit:   cfg.FreightPerUnit,
	}
	orderRepo := orders.NewRepository(pool)
	orderService := orders.NewService(orderRepo, customerRepo, seq, orderCfg, logger, auditLogger, metrics)
	orderHandler := orders.NewHandler(logger, orderService, validate)

	quoteRepo := quotes.NewRepository(pool)
	quoteService := quotes.NewService(quoteRepo, customerRepo, products, seq, orderService, orderCfg, logger, auditLogger, metrics)
	quoteHandler := quotes.NewHandler(logger, quoteService, validate)

	billingRepo := billing.NewRepository(pool)
	reportCache := billing.NewReportCache(redisClient, cfg.ReportCacheTTL)
	billingCfg := billing.Config{
		SellerName:       cfg.SellerName,
		SellerGSTIN:      cfg.SellerGSTIN,
		SellerStateCode:  cfg.SellerStateCode,
		DefaultStateCode: cfg.DefaultStateCode,
		DefaultGSTRate:   cfg.DefaultGSTRate,
		DueDays:          cfg.InvoiceDueDays,
	}
	billingService := billing.NewService(billingRepo, orderService, quoteService, customerRepo, seq, reportCache, billingCfg, logger, metrics)
	billingHandler := billing.NewHandler(logger, billingService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		Pool:           pool,
		OrdersHandler:  orderHandler,
		QuotesHandler:  quoteHandler,
		BillingHandler: billingHandler,
		JobsHandler:    jobsHandler,
		Metrics:        metrics,
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

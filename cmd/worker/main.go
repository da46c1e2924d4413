package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/nirmaan-commerce/nirmaan/internal/app"
	"github.com/nirmaan-commerce/nirmaan/internal/billing"
	"github.com/nirmaan-commerce/nirmaan/internal/notify"
	"github.com/nirmaan-commerce/nirmaan/internal/observability"
	"github.com/nirmaan-commerce/nirmaan/internal/outbox"
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

	pool, err := db.New(ctx, cfg.PGDSN, db.Options{})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	queue := jobs.NewClient(redisOpts)
	defer func() {
		if err := queue.Close(); err != nil {
			logger.Warn("queue close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)
	seq := sequence.NewPGAllocator(pool)
	customerRepo := customers.NewRepository(pool)

	// The worker rebuilds the billing graph so automatic invoice generation
	// runs through the same workflow as the HTTP surface.
	orderCfg := orders.Config{
		SellerStateCode:  cfg.SellerStateCode,
		DefaultStateCode: cfg.DefaultStateCode,
		DefaultGSTRate:   cfg.DefaultGSTRate,
		FreightFloor:     cfg.FreightFloor,
		FreightPerUnit:   cfg.FreightPerUnit,
	}
	orderRepo := orders.NewRepository(pool)
	orderService := orders.NewService(orderRepo, customerRepo, seq, orderCfg, logger, auditLogger, metrics)

	quoteRepo := quotes.NewRepository(pool)
	quoteService := quotes.NewService(quoteRepo, customerRepo, nil, seq, orderService, orderCfg, logger, auditLogger, metrics)

	billingRepo := billing.NewRepository(pool)
	billingCfg := billing.Config{
		SellerName:       cfg.SellerName,
		SellerGSTIN:      cfg.SellerGSTIN,
		SellerStateCode:  cfg.SellerStateCode,
		DefaultStateCode: cfg.DefaultStateCode,
		DefaultGSTRate:   cfg.DefaultGSTRate,
		DueDays:          cfg.InvoiceDueDays,
	}
	billingService := billing.NewService(billingRepo, orderService, quoteService, customerRepo, seq, nil, billingCfg, logger, metrics)

	sink := notify.NewQueueSink(queue, logger, cfg.OpsEmail)
	processor := jobs.NewProcessor(sink, billingService, idempotencyStore, logger, metrics)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisOpts,
		Logger:    logger,
		Processor: processor,
		Cron: []jobs.CronRegistration{
			{Spec: "30 3 * * *", Task: jobs.NewIdempotencyCleanupTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	dispatcher := outbox.NewDispatcher(outbox.NewStore(pool), queue, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return worker.Run(gctx)
	})
	g.Go(func() error {
		return dispatcher.Run(gctx, cfg.OutboxSweepInterval)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

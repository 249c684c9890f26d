package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"moneycontrol/internal/cache"
	"moneycontrol/internal/cli"
	apphttp "moneycontrol/internal/http"
	"moneycontrol/internal/log"
	"moneycontrol/internal/middleware/ratelimit"
	"moneycontrol/internal/services"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, logger, err := cli.Bootstrap(log.ComponentApp)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	store, err := cli.OpenStore(ctx, cfg, logger)
	if err != nil {
		cli.Fatal(logger, "Failed to open data backend", err)
	}
	defer func() {
		if err := store.Cleanup(); err != nil {
			logger.Error("Failed to close data backend", log.FieldError, err)
		}
	}()

	opts := []services.Option{
		services.WithLogger(logger),
		services.WithSummaryCache(cfg.SummaryCacheSize, cfg.SummaryCacheTTL),
	}
	amqpClient, err := cli.ConnectAMQP(cfg)
	if err != nil {
		logger.Warn("AMQP unavailable, continuing without change events", log.FieldError, err)
	} else if amqpClient != nil {
		defer amqpClient.Close()
		opts = append(opts, services.WithPublisher(amqpClient))
		logger.Info("Publishing ledger events", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	}

	svc := services.NewLedgerService(store.Store, opts...)
	if err := svc.Load(ctx); err != nil {
		cli.Fatal(logger, "Failed to load ledger", err)
	}

	serverOpts := []apphttp.Option{
		apphttp.WithLogger(logger),
		apphttp.WithRateLimiter(ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute})),
	}
	exporter, err := cli.NewExporter(ctx, cfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize exporter", err)
	}
	if exporter != nil {
		serverOpts = append(serverOpts, apphttp.WithExporter(exporter))
	}
	srv := apphttp.NewServer(":"+cfg.Port, svc, serverOpts...)

	cacheLogger := logger.WithComponent(log.ComponentCache)
	caches := cache.NewManager(func(removed int) {
		cacheLogger.Debug("Cache cleanup completed", "entries_removed", removed)
	})
	for _, c := range svc.Caches() {
		caches.Register(c)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting moneycontrol server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server", log.FieldOperation, log.OpShutdown)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return caches.Run(gctx, 5*time.Minute)
	})
	g.Go(func() error {
		return srv.RateLimiter().Run(gctx, 5*time.Minute)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

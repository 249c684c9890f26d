package main

import (
	"context"
	"errors"
	"os"

	"golang.org/x/sync/errgroup"

	"moneycontrol/internal/cli"
	"moneycontrol/internal/config"
	"moneycontrol/internal/log"
	"moneycontrol/internal/worker"
)

func main() {
	cfg, logger, err := cli.Bootstrap(log.ComponentWorker)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	logger.Info("Starting moneycontrol-worker")

	if cfg.AMQPURL == "" {
		cli.Fatal(logger, "Worker needs change events", errors.New("AMQP_URL is not set"))
	}
	if cfg.DataBackend == config.BackendMemory {
		cli.Fatal(logger, "Worker needs a shared data backend", errors.New("DATA_BACKEND=memory is private to the server process"))
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	store, err := cli.OpenStore(ctx, cfg, logger)
	if err != nil {
		cli.Fatal(logger, "Failed to open data backend", err)
	}
	defer store.Cleanup()

	exporter, err := cli.NewExporter(ctx, cfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize exporter", err)
	}
	if exporter == nil {
		cli.Fatal(logger, "Worker needs an export target", errors.New("GOOGLE_SPREADSHEET_ID is not set"))
	}

	amqpClient, err := cli.ConnectAMQP(cfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize AMQP client", err)
	}
	defer amqpClient.Close()

	w := worker.NewSyncWorker(store.Store, exporter, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := amqpClient.ConsumeLedgerEvents(gctx, w.HandleLedgerEvent)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		return w.Run(gctx, cfg.SyncInterval)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}

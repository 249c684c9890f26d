// Package cli provides common CLI initialization utilities shared by
// cmd/moneycontrol and cmd/moneycontrol-worker.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"moneycontrol/internal/amqp"
	"moneycontrol/internal/backend"
	"moneycontrol/internal/config"
	"moneycontrol/internal/log"
	"moneycontrol/internal/sheets"
	"moneycontrol/internal/sheets/google"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// Bootstrap loads .env and the configuration, validates it and installs the
// process logger as the slog default.
func Bootstrap(component string) (*config.Config, *log.Logger, error) {
	LoadEnvFile()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	logger := cfg.Logger(component)
	log.SetDefault(logger)
	return cfg, logger, nil
}

// Fatal logs err and exits. Used only from main functions.
func Fatal(logger *log.Logger, msg string, err error) {
	logger.Error(msg, log.FieldError, err)
	os.Exit(1)
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// OpenStore builds the key-value store selected by DATA_BACKEND.
func OpenStore(ctx context.Context, cfg *config.Config, logger *log.Logger) (*backend.BackendResult, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("create %s backend: %w", bcfg.Type, err)
	}
	return res, nil
}

// NewExporter returns the Google Sheets exporter, or nil when no spreadsheet
// is configured.
func NewExporter(ctx context.Context, cfg *config.Config) (sheets.Exporter, error) {
	if !cfg.ExportEnabled() {
		return nil, nil
	}
	cli, err := google.New(ctx, google.Config{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		SheetName:          cfg.GoogleSheetName,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, fmt.Errorf("google sheets exporter: %w", err)
	}
	return cli, nil
}

// ConnectAMQP returns a connected client, or nil when AMQP_URL is unset.
func ConnectAMQP(cfg *config.Config) (*amqp.Client, error) {
	if cfg.AMQPURL == "" {
		return nil, nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return nil, fmt.Errorf("connect amqp: %w", err)
	}
	return client, nil
}

package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"moneycontrol/internal/amqp"
	"moneycontrol/internal/ledger"
	"moneycontrol/internal/log"
	"moneycontrol/internal/services"
	"moneycontrol/internal/sheets"
	"moneycontrol/internal/storage"
)

// SyncWorker mirrors the persisted ledger to an exporter. Events only mark
// the mirror stale; the export itself runs at most once per tick.
type SyncWorker struct {
	kv       storage.KeyValue
	exporter sheets.Exporter
	logger   *log.Logger

	dirty    atomic.Bool
	lastSync atomic.Int64 // unix nanoseconds of the last successful export
}

func NewSyncWorker(kv storage.KeyValue, exporter sheets.Exporter, logger *log.Logger) *SyncWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &SyncWorker{
		kv:       kv,
		exporter: exporter,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// HandleLedgerEvent processes a single ledger event from AMQP
func (w *SyncWorker) HandleLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	w.logger.DebugContext(ctx, "Ledger event received",
		"event", msg.Operation,
		log.FieldTransactionID, msg.TransactionID,
		log.FieldBalance, msg.Balance.String())
	w.dirty.Store(true)
	return nil
}

// Pending reports whether an event arrived since the last successful export.
func (w *SyncWorker) Pending() bool {
	return w.dirty.Load()
}

// LastSync returns when the last export succeeded, zero if never.
func (w *SyncWorker) LastSync() time.Time {
	ns := w.lastSync.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Sync exports the full persisted ledger now.
func (w *SyncWorker) Sync(ctx context.Context) error {
	// Clear first so events arriving during the export schedule another run.
	w.dirty.Store(false)

	snap, err := services.LoadSnapshot(ctx, w.kv)
	if err != nil {
		w.dirty.Store(true)
		return fmt.Errorf("load snapshot: %w", err)
	}
	store, err := ledger.Restore(snap.Transactions)
	if err != nil {
		w.dirty.Store(true)
		return fmt.Errorf("restore snapshot: %w", err)
	}

	txs := store.Query(ledger.Filter{})
	ref, err := w.exporter.Export(ctx, txs)
	if err != nil {
		w.dirty.Store(true)
		return fmt.Errorf("export: %w", err)
	}

	w.lastSync.Store(time.Now().UnixNano())
	w.logger.InfoContext(ctx, "Ledger mirrored",
		log.FieldOperation, log.OpSync,
		log.FieldExportRef, ref,
		"transactions", len(txs),
		log.FieldBalance, store.Balance().String())
	return nil
}

// Run exports once on startup and then whenever events are pending, checking
// every interval until ctx is done.
func (w *SyncWorker) Run(ctx context.Context, interval time.Duration) error {
	if err := w.Sync(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Startup sync failed", log.FieldError, err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if !w.Pending() {
				continue
			}
			if err := w.Sync(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Periodic sync failed", log.FieldError, err)
			}
		}
	}
}

package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"moneycontrol/internal/amqp"
	"moneycontrol/internal/cache"
	"moneycontrol/internal/core"
	"moneycontrol/internal/ledger"
	"moneycontrol/internal/log"
	"moneycontrol/internal/sheets"
	"moneycontrol/internal/storage"
)

// EventPublisher announces committed ledger mutations.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error
}

const (
	defaultCacheSize = 24
	defaultCacheTTL  = 10 * time.Minute
	allMonthsKey     = "all"
	persistTimeout   = 10 * time.Second
)

// LedgerService serializes access to one ledger.Store and keeps the key-value
// snapshot, the summary caches and the event stream in step with it.
type LedgerService struct {
	mu        sync.Mutex
	store     *ledger.Store
	kv        storage.KeyValue
	publisher EventPublisher
	logger    *log.Logger
	storeOpts []ledger.Option
	version   uint64

	persistMu sync.Mutex
	persisted uint64

	summaries  *cache.LRUCache[core.MonthlySummary]
	breakdowns *cache.LRUCache[[]core.CategoryExpense]
}

type Option func(*LedgerService)

// WithPublisher enables change events. A nil publisher disables them.
func WithPublisher(p EventPublisher) Option {
	return func(s *LedgerService) {
		s.publisher = p
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *LedgerService) {
		s.logger = l.WithComponent(log.ComponentLedger)
	}
}

// WithSummaryCache sizes the per-month aggregate caches.
func WithSummaryCache(size int, ttl time.Duration) Option {
	return func(s *LedgerService) {
		s.summaries = cache.NewLRUCache[core.MonthlySummary](size, ttl)
		s.breakdowns = cache.NewLRUCache[[]core.CategoryExpense](size, ttl)
	}
}

// WithStoreOptions passes options to every store the service builds.
func WithStoreOptions(opts ...ledger.Option) Option {
	return func(s *LedgerService) {
		s.storeOpts = append(s.storeOpts, opts...)
	}
}

// NewLedgerService returns a service over an empty ledger. Call Load to
// restore the persisted snapshot.
func NewLedgerService(kv storage.KeyValue, opts ...Option) *LedgerService {
	s := &LedgerService{
		kv:         kv,
		logger:     log.Discard(),
		summaries:  cache.NewLRUCache[core.MonthlySummary](defaultCacheSize, defaultCacheTTL),
		breakdowns: cache.NewLRUCache[[]core.CategoryExpense](defaultCacheSize, defaultCacheTTL),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.store = ledger.New(s.storeOpts...)
	return s
}

// Caches returns the aggregate caches so a cache.Manager can sweep them.
func (s *LedgerService) Caches() []cache.Cleaner {
	return []cache.Cleaner{s.summaries, s.breakdowns}
}

// Load replaces the in-memory ledger with the persisted snapshot. The balance
// is always recomputed from the transactions; a persisted balance that
// disagrees is reported and overwritten on the next save.
func (s *LedgerService) Load(ctx context.Context) error {
	snap, err := LoadSnapshot(ctx, s.kv)
	if err != nil {
		return err
	}

	opts := slices.Clone(s.storeOpts)
	if snap.Categories != nil {
		opts = append(opts, ledger.WithCategories(ledger.NewCategorySet(snap.Categories)))
	}
	store, err := ledger.Restore(snap.Transactions, opts...)
	if err != nil {
		return fmt.Errorf("restore ledger: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.store = store
	s.clearCaches()

	if snap.Balance != nil && !snap.Balance.Equal(store.Balance()) {
		s.logger.WarnContext(ctx, "Persisted balance drifted from transactions, using recomputed value",
			log.FieldOperation, log.OpLoad,
			"persisted", snap.Balance.String(),
			log.FieldBalance, store.Balance().String())
	}
	s.logger.InfoContext(ctx, "Ledger loaded",
		log.FieldOperation, log.OpLoad,
		"transactions", store.Len(),
		log.FieldBalance, store.Balance().String())
	return nil
}

// Add records a new transaction and returns it with the balance it produced.
func (s *LedgerService) Add(ctx context.Context, f core.Fields) (core.Transaction, decimal.Decimal, error) {
	var t core.Transaction
	balance, err := s.mutate(ctx, func(store *ledger.Store) (string, string, error) {
		var err error
		if t, err = store.Add(f); err != nil {
			return "", "", err
		}
		s.logger.InfoContext(ctx, "Transaction added",
			log.NewFields().WithOperation(log.OpCreate).
				WithTransaction(t.ID, t.Kind.String(), t.Category, t.Amount.String()).ToSlice()...)
		return amqp.EventTransactionAdded, t.ID, nil
	})
	if err != nil {
		return core.Transaction{}, decimal.Zero, err
	}
	return t, balance, nil
}

// Edit replaces every field of the transaction with id.
func (s *LedgerService) Edit(ctx context.Context, id string, f core.Fields) (core.Transaction, decimal.Decimal, error) {
	var t core.Transaction
	balance, err := s.mutate(ctx, func(store *ledger.Store) (string, string, error) {
		var err error
		if t, err = store.Edit(id, f); err != nil {
			return "", "", err
		}
		s.logger.InfoContext(ctx, "Transaction edited",
			log.NewFields().WithOperation(log.OpUpdate).
				WithTransaction(t.ID, t.Kind.String(), t.Category, t.Amount.String()).ToSlice()...)
		return amqp.EventTransactionEdited, t.ID, nil
	})
	if err != nil {
		return core.Transaction{}, decimal.Zero, err
	}
	return t, balance, nil
}

// Remove deletes the transaction with id.
func (s *LedgerService) Remove(ctx context.Context, id string) (decimal.Decimal, error) {
	return s.mutate(ctx, func(store *ledger.Store) (string, string, error) {
		if err := store.Remove(id); err != nil {
			return "", "", err
		}
		s.logger.InfoContext(ctx, "Transaction removed",
			log.FieldOperation, log.OpDelete,
			log.FieldTransactionID, id)
		return amqp.EventTransactionRemoved, id, nil
	})
}

// Recompute refolds the balance from the transaction list.
func (s *LedgerService) Recompute(ctx context.Context) decimal.Decimal {
	balance, _ := s.mutate(ctx, func(store *ledger.Store) (string, string, error) {
		before := store.Balance()
		after := store.RecomputeBalance()
		if !before.Equal(after) {
			s.logger.WarnContext(ctx, "Recompute corrected the cached balance",
				log.FieldOperation, log.OpRecompute,
				"previous", before.String(),
				log.FieldBalance, after.String())
		}
		return amqp.EventBalanceRecomputed, "", nil
	})
	return balance
}

func (s *LedgerService) Balance() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Balance()
}

func (s *LedgerService) Get(id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Get(id)
}

func (s *LedgerService) Query(f ledger.Filter) []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Query(f)
}

// MonthlySummary returns the totals for ym, served from cache when possible.
func (s *LedgerService) MonthlySummary(ym core.YearMonth) core.MonthlySummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ym.String()
	if sum, ok := s.summaries.Get(key); ok {
		return sum
	}
	sum := s.store.MonthlySummary(ym)
	s.summaries.Set(key, sum)
	return sum
}

// ExpenseByCategory returns the expense breakdown for ym, or for every month
// when ym is nil.
func (s *LedgerService) ExpenseByCategory(ym *core.YearMonth) []core.CategoryExpense {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := allMonthsKey
	if ym != nil {
		key = ym.String()
	}
	if rows, ok := s.breakdowns.Get(key); ok {
		return slices.Clone(rows)
	}
	rows := s.store.ExpenseByCategory(ym)
	s.breakdowns.Set(key, rows)
	return slices.Clone(rows)
}

func (s *LedgerService) LoanStatus() core.LoanStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.LoanStatus()
}

func (s *LedgerService) Categories() map[core.Kind][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Categories()
}

// AddCategory adds label to the kind's list. added is false when the label
// was already there.
func (s *LedgerService) AddCategory(ctx context.Context, kind core.Kind, label string) (bool, error) {
	var added bool
	_, err := s.mutate(ctx, func(store *ledger.Store) (string, string, error) {
		var err error
		if added, err = store.AddCategory(kind, label); err != nil || !added {
			return "", "", err
		}
		s.logger.InfoContext(ctx, "Category added",
			log.FieldKind, kind.String(),
			log.FieldCategory, label)
		return amqp.EventCategoriesChanged, "", nil
	})
	return added, err
}

// RemoveCategory drops label from the kind's list. Transactions keep it.
func (s *LedgerService) RemoveCategory(ctx context.Context, kind core.Kind, label string) (bool, error) {
	var removed bool
	_, err := s.mutate(ctx, func(store *ledger.Store) (string, string, error) {
		var err error
		if removed, err = store.RemoveCategory(kind, label); err != nil || !removed {
			return "", "", err
		}
		s.logger.InfoContext(ctx, "Category removed",
			log.FieldKind, kind.String(),
			log.FieldCategory, label)
		return amqp.EventCategoriesChanged, "", nil
	})
	return removed, err
}

// Export hands the transactions matching f to exp. The ledger lock is not
// held while the exporter runs.
func (s *LedgerService) Export(ctx context.Context, f ledger.Filter, exp sheets.Exporter) (string, error) {
	if exp == nil {
		return "", errors.New("no exporter configured")
	}
	txs := s.Query(f)
	ref, err := exp.Export(ctx, txs)
	if err != nil {
		s.logger.ErrorContext(ctx, "Export failed",
			log.FieldOperation, log.OpExport,
			log.FieldError, err)
		return "", fmt.Errorf("export: %w", err)
	}
	s.logger.InfoContext(ctx, "Ledger exported",
		log.FieldOperation, log.OpExport,
		log.FieldExportRef, ref,
		"transactions", len(txs))
	return ref, nil
}

// commit is the state captured under s.mu right after a mutation.
type commit struct {
	version    uint64
	txs        []core.Transaction
	balance    decimal.Decimal
	categories map[core.Kind][]string
	event      *amqp.LedgerEventMessage
}

// mutate applies fn under s.mu. When fn reports an operation, the resulting
// state is persisted and announced after s.mu is released. An empty operation
// means nothing changed.
func (s *LedgerService) mutate(ctx context.Context, fn func(*ledger.Store) (operation, id string, err error)) (decimal.Decimal, error) {
	s.mu.Lock()
	operation, id, err := fn(s.store)
	if err != nil || operation == "" {
		balance := s.store.Balance()
		s.mu.Unlock()
		return balance, err
	}
	s.clearCaches()
	s.version++
	c := commit{
		version:    s.version,
		txs:        s.store.Query(ledger.Filter{}),
		balance:    s.store.Balance(),
		categories: s.store.Categories(),
	}
	c.event = amqp.NewLedgerEventMessage(operation, id, c.balance)
	s.mu.Unlock()

	s.committed(ctx, c)
	return c.balance, nil
}

// committed persists and publishes c, ignoring cancellation of ctx. Both are
// best effort: the in-memory mutation stands either way.
func (s *LedgerService) committed(ctx context.Context, c commit) {
	ctx = context.WithoutCancel(ctx)
	s.persist(ctx, c)

	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishLedgerEvent(ctx, c.event); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish ledger event",
			log.FieldOperation, log.OpPublish,
			"event", c.event.Operation,
			log.FieldError, err)
	}
}

// persist saves c unless a newer snapshot has already been written.
func (s *LedgerService) persist(ctx context.Context, c commit) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	if c.version <= s.persisted {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()
	if err := SaveSnapshot(ctx, s.kv, c.txs, c.balance, c.categories); err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist ledger",
			log.FieldOperation, log.OpPersist,
			log.FieldError, err)
		return
	}
	s.persisted = c.version
}

func (s *LedgerService) clearCaches() {
	s.summaries.Clear()
	s.breakdowns.Clear()
}

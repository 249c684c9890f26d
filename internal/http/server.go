package http

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"moneycontrol/internal/core"
	"moneycontrol/internal/ledger"
	"moneycontrol/internal/log"
	"moneycontrol/internal/middleware/ratelimit"
	"moneycontrol/internal/middleware/security"
	"moneycontrol/internal/middleware/trace"
	"moneycontrol/internal/sheets"
)

// Ledger is the application surface the API exposes.
type Ledger interface {
	Add(ctx context.Context, f core.Fields) (core.Transaction, decimal.Decimal, error)
	Edit(ctx context.Context, id string, f core.Fields) (core.Transaction, decimal.Decimal, error)
	Remove(ctx context.Context, id string) (decimal.Decimal, error)
	Recompute(ctx context.Context) decimal.Decimal
	Balance() decimal.Decimal
	Get(id string) (core.Transaction, error)
	Query(f ledger.Filter) []core.Transaction
	MonthlySummary(ym core.YearMonth) core.MonthlySummary
	ExpenseByCategory(ym *core.YearMonth) []core.CategoryExpense
	LoanStatus() core.LoanStatus
	Categories() map[core.Kind][]string
	AddCategory(ctx context.Context, kind core.Kind, label string) (bool, error)
	RemoveCategory(ctx context.Context, kind core.Kind, label string) (bool, error)
	Export(ctx context.Context, f ledger.Filter, exp sheets.Exporter) (string, error)
}

type Server struct {
	http.Server
	ledger   Ledger
	exporter sheets.Exporter
	limiter  *ratelimit.Limiter
	clientIP *security.ClientIPResolver
	logger   *log.Logger
}

type Option func(*Server)

// WithExporter enables POST /api/export.
func WithExporter(exp sheets.Exporter) Option {
	return func(s *Server) {
		s.exporter = exp
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithRateLimiter limits mutating requests per client IP.
func WithRateLimiter(rl *ratelimit.Limiter) Option {
	return func(s *Server) {
		s.limiter = rl
	}
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, l Ledger, opts ...Option) *Server {
	s := &Server{
		ledger:   l,
		clientIP: security.NewClientIPResolver(),
		logger:   log.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.limiter == nil {
		s.limiter = ratelimit.NewLimiter(ratelimit.DefaultConfig())
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)

	mux.HandleFunc("GET /api/balance", s.handleBalance)
	mux.HandleFunc("POST /api/balance/recompute", s.handleRecompute)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleAddTransaction)
	mux.HandleFunc("GET /api/transactions/{id}", s.handleGetTransaction)
	mux.HandleFunc("PUT /api/transactions/{id}", s.handleEditTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleRemoveTransaction)

	mux.HandleFunc("GET /api/summary/{month}", s.handleMonthlySummary)
	mux.HandleFunc("GET /api/expenses/by-category", s.handleExpenseByCategory)
	mux.HandleFunc("GET /api/loans", s.handleLoanStatus)

	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("POST /api/categories/{kind}", s.handleAddCategory)
	mux.HandleFunc("DELETE /api/categories/{kind}/{label}", s.handleRemoveCategory)

	mux.HandleFunc("POST /api/export", s.handleExport)

	var h http.Handler = mux
	h = s.limiter.Middleware(s.clientIP.ClientIP, s.handleRateLimited,
		http.MethodPost, http.MethodPut, http.MethodDelete)(h)
	h = log.Middleware(s.logger, trace.RequestID, s.clientIP.ClientIP)(h)
	h = security.Headers(security.DefaultHeadersConfig())(h)
	h = trace.Middleware(h)

	s.Server = http.Server{
		Addr:           addr,
		Handler:        h,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16, // 64KB
	}
	return s
}

// RateLimiter exposes the limiter so the caller can run its cleanup loop.
func (s *Server) RateLimiter() *ratelimit.Limiter {
	return s.limiter
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.clientIP.ClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded, try again later"})
}

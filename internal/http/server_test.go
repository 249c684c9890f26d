package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneycontrol/internal/middleware/ratelimit"
	"moneycontrol/internal/services"
	sheetsmem "moneycontrol/internal/sheets/memory"
	kvmem "moneycontrol/internal/storage/memory"
)

type testEnv struct {
	srv      *Server
	exporter *sheetsmem.Exporter
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	exp := sheetsmem.New()
	svc := services.NewLedgerService(kvmem.New())
	opts = append([]Option{WithExporter(exp)}, opts...)
	return &testEnv{srv: NewServer(":0", svc, opts...), exporter: exp}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func (e *testEnv) add(t *testing.T, body string) transactionResponse {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/api/transactions", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return *decode[mutationResponse](t, rr).Transaction
}

func seedScenario(t *testing.T, e *testEnv) []transactionResponse {
	t.Helper()
	return []transactionResponse{
		e.add(t, `{"kind":"income","amount":"5000000","category":"Salario","date":"2025-06-15"}`),
		e.add(t, `{"kind":"expense","amount":150000,"category":"Comida","date":"2025-06-20","note":"Super"}`),
		e.add(t, `{"kind":"loan","amount":"200000","category":"Lent","date":"2025-06-10","note":"Carlos"}`),
		e.add(t, `{"kind":"loan","amount":"50000","category":"Repayment","date":"2025-06-21","note":"Carlos"}`),
	}
}

func TestHealthAndHeaders(t *testing.T) {
	e := newTestEnv(t)
	rr := e.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
}

func TestScenarioOverHTTP(t *testing.T) {
	e := newTestEnv(t)
	txs := seedScenario(t, e)

	rr := e.do(t, http.MethodGet, "/api/balance", "")
	require.Equal(t, http.StatusOK, rr.Code)
	requireDecimal(t, "4700000", decode[balanceResponse](t, rr).Balance)

	rr = e.do(t, http.MethodGet, "/api/summary/2025-06", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var sum struct {
		Month    string          `json:"month"`
		Net      decimal.Decimal `json:"netTotal"`
		LoanTot  decimal.Decimal `json:"loanTotal"`
		Count    int             `json:"count"`
		Expenses decimal.Decimal `json:"expenseTotal"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &sum))
	assert.Equal(t, "2025-06", sum.Month)
	requireDecimal(t, "4600000", sum.Net)
	requireDecimal(t, "250000", sum.LoanTot)
	assert.Equal(t, 4, sum.Count)

	// Edit the expense into an income: 4700000 + 150000 + 150000.
	rr = e.do(t, http.MethodPut, "/api/transactions/"+txs[1].ID,
		`{"kind":"income","amount":"150000","category":"Otros","date":"2025-06-20"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	resp := decode[mutationResponse](t, rr)
	assert.Equal(t, txs[1].ID, resp.Transaction.ID)
	requireDecimal(t, "5000000", resp.Balance)

	rr = e.do(t, http.MethodDelete, "/api/transactions/"+txs[0].ID, "")
	require.Equal(t, http.StatusOK, rr.Code)
	requireDecimal(t, "0", decode[mutationResponse](t, rr).Balance)

	rr = e.do(t, http.MethodPost, "/api/balance/recompute", "")
	require.Equal(t, http.StatusOK, rr.Code)
	requireDecimal(t, "0", decode[balanceResponse](t, rr).Balance)
}

func TestAddAcceptsCommaDecimal(t *testing.T) {
	e := newTestEnv(t)
	tx := e.add(t, `{"kind":"Expense","amount":"12,5","category":" Comida ","date":"2025-06-01"}`)
	requireDecimal(t, "12.5", tx.Amount)
	assert.Equal(t, "Comida", tx.Category)
	assert.Equal(t, "expense", string(tx.Kind))
}

func TestErrorMapping(t *testing.T) {
	e := newTestEnv(t)
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		field  string
	}{
		{"zero amount", http.MethodPost, "/api/transactions", `{"kind":"expense","amount":"0","category":"x","date":"2025-06-01"}`, 422, "amount"},
		{"negative amount", http.MethodPost, "/api/transactions", `{"kind":"expense","amount":-5,"category":"x","date":"2025-06-01"}`, 422, "amount"},
		{"missing amount", http.MethodPost, "/api/transactions", `{"kind":"expense","category":"x","date":"2025-06-01"}`, 422, "amount"},
		{"blank category", http.MethodPost, "/api/transactions", `{"kind":"expense","amount":"1","category":"  ","date":"2025-06-01"}`, 422, "category"},
		{"bad loan category", http.MethodPost, "/api/transactions", `{"kind":"loan","amount":"1","category":"Gift","date":"2025-06-01"}`, 422, "category"},
		{"bad kind", http.MethodPost, "/api/transactions", `{"kind":"transfer","amount":"1","category":"x","date":"2025-06-01"}`, 422, "kind"},
		{"bad date", http.MethodPost, "/api/transactions", `{"kind":"expense","amount":"1","category":"x","date":"01/06/2025"}`, 422, "date"},
		{"malformed json", http.MethodPost, "/api/transactions", `{"kind":`, 400, ""},
		{"unknown field", http.MethodPost, "/api/transactions", `{"kind":"expense","amount":"1","category":"x","date":"2025-06-01","extra":1}`, 400, ""},
		{"edit missing", http.MethodPut, "/api/transactions/nope", `{"kind":"expense","amount":"1","category":"x","date":"2025-06-01"}`, 404, ""},
		{"remove missing", http.MethodDelete, "/api/transactions/nope", "", 404, ""},
		{"get missing", http.MethodGet, "/api/transactions/nope", "", 404, ""},
		{"bad month", http.MethodGet, "/api/summary/2025-13", "", 422, "month"},
		{"bad filter date", http.MethodGet, "/api/transactions?from=yesterday", "", 422, "from"},
		{"bad category kind", http.MethodPost, "/api/categories/savings", `{"label":"x"}`, 422, "kind"},
		{"wrong method", http.MethodPatch, "/api/balance", "", 405, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := e.do(t, tt.method, tt.path, tt.body)
			require.Equal(t, tt.status, rr.Code, rr.Body.String())
			if tt.field != "" {
				assert.Equal(t, tt.field, decode[errorResponse](t, rr).Field)
			}
		})
	}

	rr := e.do(t, http.MethodGet, "/api/balance", "")
	requireDecimal(t, "0", decode[balanceResponse](t, rr).Balance)
}

func TestListTransactionsWithFilters(t *testing.T) {
	e := newTestEnv(t)
	seedScenario(t, e)

	tests := []struct {
		query string
		count int
	}{
		{"", 4},
		{"?kind=loan", 2},
		{"?q=carlos", 2},
		{"?kind=loan&from=2025-06-15", 1},
		{"?from=2025-06-15&to=2025-06-20", 2},
		{"?category=Comida", 1},
	}
	for _, tt := range tests {
		rr := e.do(t, http.MethodGet, "/api/transactions"+tt.query, "")
		require.Equal(t, http.StatusOK, rr.Code)
		resp := decode[listResponse](t, rr)
		assert.Equal(t, tt.count, resp.Count, tt.query)
		assert.Len(t, resp.Transactions, tt.count, tt.query)
	}
}

func TestExpenseBreakdownAndLoans(t *testing.T) {
	e := newTestEnv(t)
	seedScenario(t, e)
	e.add(t, `{"kind":"expense","amount":"300000","category":"Renta","date":"2025-07-01"}`)

	rr := e.do(t, http.MethodGet, "/api/expenses/by-category?month=2025-06", "")
	require.Equal(t, http.StatusOK, rr.Code)
	june := decode[expenseBreakdownResponse](t, rr)
	assert.Equal(t, "2025-06", june.Month)
	require.Len(t, june.Categories, 1)
	requireDecimal(t, "100", june.Categories[0].Percentage)

	rr = e.do(t, http.MethodGet, "/api/expenses/by-category", "")
	all := decode[expenseBreakdownResponse](t, rr)
	require.Len(t, all.Categories, 2)
	assert.Equal(t, "Renta", all.Categories[0].Category)
	requireDecimal(t, "66.7", all.Categories[0].Percentage)
	requireDecimal(t, "33.3", all.Categories[1].Percentage)

	rr = e.do(t, http.MethodGet, "/api/loans", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var loans struct {
		Lent        decimal.Decimal `json:"lent"`
		Returned    decimal.Decimal `json:"returned"`
		Outstanding decimal.Decimal `json:"outstanding"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &loans))
	requireDecimal(t, "200000", loans.Lent)
	requireDecimal(t, "50000", loans.Returned)
	requireDecimal(t, "150000", loans.Outstanding)
}

func TestCategoryEndpoints(t *testing.T) {
	e := newTestEnv(t)

	rr := e.do(t, http.MethodPost, "/api/categories/expense", `{"label":"Mascotas"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	resp := decode[categoryChangeResponse](t, rr)
	require.NotNil(t, resp.Added)
	assert.True(t, *resp.Added)
	assert.Contains(t, resp.Categories["expense"], "Mascotas")

	rr = e.do(t, http.MethodPost, "/api/categories/expense", `{"label":"Mascotas"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, *decode[categoryChangeResponse](t, rr).Added)

	rr = e.do(t, http.MethodPost, "/api/categories/expense", `{"label":"   "}`)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = e.do(t, http.MethodPost, "/api/categories/loan", `{"label":"Gift"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = e.do(t, http.MethodDelete, "/api/categories/expense/Mascotas", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, *decode[categoryChangeResponse](t, rr).Removed)

	rr = e.do(t, http.MethodDelete, "/api/categories/expense/Mascotas", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, *decode[categoryChangeResponse](t, rr).Removed)

	rr = e.do(t, http.MethodGet, "/api/categories", "")
	require.Equal(t, http.StatusOK, rr.Code)
	cats := decode[map[string][]string](t, rr)
	assert.Equal(t, []string{"Lent", "Repayment", "Returned"}, cats["loan"])
}

func TestExportEndpoint(t *testing.T) {
	e := newTestEnv(t)
	seedScenario(t, e)

	rr := e.do(t, http.MethodPost, "/api/export?kind=expense", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "mem:1", decode[exportResponse](t, rr).Ref)
	require.Len(t, e.exporter.Last(), 2)
	assert.Equal(t, "Comida", e.exporter.Last()[1][3])

	disabled := &testEnv{srv: NewServer(":0", services.NewLedgerService(kvmem.New()))}
	rr = disabled.do(t, http.MethodPost, "/api/export", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestMutationsAreRateLimited(t *testing.T) {
	e := newTestEnv(t, WithRateLimiter(ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: 2})))

	for i := 0; i < 2; i++ {
		rr := e.do(t, http.MethodPost, "/api/balance/recompute", "")
		require.Equal(t, http.StatusOK, rr.Code)
	}
	rr := e.do(t, http.MethodPost, "/api/balance/recompute", "")
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))

	rr = e.do(t, http.MethodGet, "/api/balance", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

// interleavedLedger reports a balance moved on by some other writer.
type interleavedLedger struct {
	Ledger
}

func (interleavedLedger) Balance() decimal.Decimal {
	return decimal.NewFromInt(999)
}

func TestMutationResponsesCarryTheirOwnBalance(t *testing.T) {
	svc := services.NewLedgerService(kvmem.New())
	srv := NewServer(":0", interleavedLedger{svc})
	do := func(method, path, body string) mutationResponse {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, req)
		require.Less(t, rr.Code, 300, rr.Body.String())
		return decode[mutationResponse](t, rr)
	}

	added := do(http.MethodPost, "/api/transactions",
		`{"kind":"income","amount":"100","category":"Otros","date":"2025-06-01"}`)
	requireDecimal(t, "100", added.Balance)

	edited := do(http.MethodPut, "/api/transactions/"+added.Transaction.ID,
		`{"kind":"income","amount":"40","category":"Otros","date":"2025-06-01"}`)
	requireDecimal(t, "40", edited.Balance)

	removed := do(http.MethodDelete, "/api/transactions/"+added.Transaction.ID, "")
	requireDecimal(t, "0", removed.Balance)
}

package http

import (
	"errors"
	"net/http"

	"moneycontrol/internal/core"
)

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, balanceResponse{Balance: s.ledger.Balance()})
}

func (s *Server) handleRecompute(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, balanceResponse{Balance: s.ledger.Recompute(r.Context())})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	txs := s.ledger.Query(f)
	resp := listResponse{Transactions: make([]transactionResponse, len(txs)), Count: len(txs)}
	for i, t := range txs {
		resp.Transactions[i] = toTransactionResponse(t)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := s.ledger.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(t))
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	f, err := req.toFields()
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, balance, err := s.ledger.Add(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tr := toTransactionResponse(t)
	writeJSON(w, http.StatusCreated, mutationResponse{Transaction: &tr, Balance: balance})
}

func (s *Server) handleEditTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	id := r.PathValue("id")
	if _, err := s.ledger.Get(id); err != nil {
		writeError(w, r, err)
		return
	}
	f, err := req.toFields()
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, balance, err := s.ledger.Edit(r.Context(), id, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tr := toTransactionResponse(t)
	writeJSON(w, http.StatusOK, mutationResponse{Transaction: &tr, Balance: balance})
}

func (s *Server) handleRemoveTransaction(w http.ResponseWriter, r *http.Request) {
	balance, err := s.ledger.Remove(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mutationResponse{Balance: balance})
}

func (s *Server) handleMonthlySummary(w http.ResponseWriter, r *http.Request) {
	ym, err := parseMonth("month", r.PathValue("month"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ledger.MonthlySummary(ym))
}

func (s *Server) handleExpenseByCategory(w http.ResponseWriter, r *http.Request) {
	var (
		ym   *core.YearMonth
		resp expenseBreakdownResponse
	)
	if v := r.URL.Query().Get("month"); v != "" {
		parsed, err := parseMonth("month", v)
		if err != nil {
			writeError(w, r, err)
			return
		}
		ym = &parsed
		resp.Month = parsed.String()
	}
	resp.Categories = s.ledger.ExpenseByCategory(ym)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLoanStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ledger.LoanStatus())
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ledger.Categories())
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	kind, err := parseKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	label := sanitizeInput(req.Label)
	added, err := s.ledger.AddCategory(r.Context(), kind, label)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	writeJSON(w, status, categoryChangeResponse{
		Kind:       kind,
		Label:      label,
		Added:      &added,
		Categories: s.ledger.Categories(),
	})
}

func (s *Server) handleRemoveCategory(w http.ResponseWriter, r *http.Request) {
	kind, err := parseKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	label := sanitizeInput(r.PathValue("label"))
	removed, err := s.ledger.RemoveCategory(r.Context(), kind, label)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categoryChangeResponse{
		Kind:       kind,
		Label:      label,
		Removed:    &removed,
		Categories: s.ledger.Categories(),
	})
}

var errExportDisabled = errors.New("export is not configured")

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if s.exporter == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: errExportDisabled.Error()})
		return
	}
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ref, err := s.ledger.Export(r.Context(), f, s.exporter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exportResponse{Ref: ref})
}

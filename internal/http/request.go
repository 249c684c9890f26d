package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"moneycontrol/internal/core"
	"moneycontrol/internal/ledger"
)

const maxBodyBytes = 1 << 20

// errMalformedBody marks request bodies that are not the expected JSON.
var errMalformedBody = errors.New("malformed request body")

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data", errMalformedBody)
	}
	return nil
}

// toFields parses the raw request into domain fields. Range checks on the
// parsed values are left to the ledger.
func (req transactionRequest) toFields() (core.Fields, error) {
	kind, err := core.ParseKind(req.Kind)
	if err != nil {
		return core.Fields{}, &ledger.ValidationError{Field: "kind", Err: err}
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return core.Fields{}, &ledger.ValidationError{Field: "amount", Err: err}
	}
	date, err := core.ParseDate(req.Date)
	if err != nil {
		return core.Fields{}, &ledger.ValidationError{Field: "date", Err: err}
	}
	return core.Fields{
		Kind:     kind,
		Amount:   amount,
		Category: sanitizeInput(req.Category),
		Date:     date,
		Note:     sanitizeInput(req.Note),
	}, nil
}

func parseAmount(raw json.RawMessage) (decimal.Decimal, error) {
	s := strings.TrimSpace(string(raw))
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(raw, &s); err != nil {
			return decimal.Zero, core.ErrInvalidAmount
		}
	}
	return core.ParseAmount(s)
}

// parseFilter reads from, to, kind, category and q from the query string.
func parseFilter(r *http.Request) (ledger.Filter, error) {
	q := r.URL.Query()
	var f ledger.Filter

	if v := strings.TrimSpace(q.Get("from")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return ledger.Filter{}, &ledger.ValidationError{Field: "from", Err: err}
		}
		f.DateFrom = d
	}
	if v := strings.TrimSpace(q.Get("to")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return ledger.Filter{}, &ledger.ValidationError{Field: "to", Err: err}
		}
		f.DateTo = d
	}
	if v := strings.TrimSpace(q.Get("kind")); v != "" {
		k, err := core.ParseKind(v)
		if err != nil {
			return ledger.Filter{}, &ledger.ValidationError{Field: "kind", Err: err}
		}
		f.Kind = k
	}
	f.Category = sanitizeInput(q.Get("category"))
	f.Text = sanitizeInput(q.Get("q"))
	return f, nil
}

func parseMonth(field, s string) (core.YearMonth, error) {
	ym, err := core.ParseYearMonth(strings.TrimSpace(s))
	if err != nil {
		return core.YearMonth{}, &ledger.ValidationError{Field: field, Err: err}
	}
	return ym, nil
}

func parseKind(s string) (core.Kind, error) {
	k, err := core.ParseKind(s)
	if err != nil {
		return "", &ledger.ValidationError{Field: "kind", Err: err}
	}
	return k, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"moneycontrol/internal/ledger"
	"moneycontrol/internal/log"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps ledger errors to status codes: validation 422, not found
// 404, malformed input 400, anything else 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		vErr  *ledger.ValidationError
		nfErr *ledger.NotFoundError
	)
	switch {
	case errors.As(err, &vErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: vErr.Error(), Field: vErr.Field})
	case errors.As(err, &nfErr):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: nfErr.Error()})
	case errors.Is(err, errMalformedBody):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldPath, r.URL.Path,
			log.FieldError, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

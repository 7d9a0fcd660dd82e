package httpx

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/ariefcatur/tenant-orders/internal/orders"
)

type errorResp struct {
	StatusCode int    `json:"statusCode"`
	Error      string `json:"error"`
	Message    string `json:"message"`
	Details    any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeStatus(w http.ResponseWriter, code int, msg string, details any) {
	writeJSON(w, code, errorResp{
		StatusCode: code,
		Error:      http.StatusText(code),
		Message:    msg,
		Details:    details,
	})
}

// writeError maps service and validation errors onto HTTP responses.
// Unclassified errors are logged and reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verrs    orders.ValidationErrors
		conflict *orders.ConflictError
	)
	switch {
	case errors.As(err, &verrs):
		writeStatus(w, http.StatusBadRequest, "Validation failed", []orders.FieldError(verrs))
	case errors.Is(err, orders.ErrTenantRequired):
		writeStatus(w, http.StatusUnauthorized, "Missing x-tenant-id", nil)
	case errors.As(err, &conflict):
		writeStatus(w, http.StatusConflict, "Duplicate key", conflict.Key)
	case errors.Is(err, orders.ErrDuplicateKey):
		writeStatus(w, http.StatusConflict, "Duplicate key", nil)
	default:
		log.Printf("%s %s: %v", r.Method, r.URL.Path, err)
		writeStatus(w, http.StatusInternalServerError, "Internal server error", nil)
	}
}

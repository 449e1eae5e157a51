// Package rest holds HTTP plumbing shared by the ledger handlers: pagination
// parsing, response envelopes, and the mapping from the service error
// taxonomy to HTTP status codes.
package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/expentra/expentra/internal/apperr"
	log "github.com/sirupsen/logrus"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

// Pagination is the page/limit pair parsed from a listing request.
type Pagination struct {
	Page  int
	Limit int
}

// ParsePagination reads page and limit query parameters, applying defaults
// and clamping limit to a sane upper bound.
func ParsePagination(r *http.Request) Pagination {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return Pagination{Page: page, Limit: limit}
}

// WriteJSON encodes v as the response body with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("failed to encode response: %v", err)
	}
}

// WriteError maps a service error to its HTTP status code and writes it.
func WriteError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperr.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, apperr.ErrInvariantViolation):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, apperr.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, apperr.ErrConflict):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		log.Errorf("internal error: %v", err)
	}
	http.Error(w, err.Error(), status)
}

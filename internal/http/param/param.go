// Package param reads path and query parameters shared by the API handlers.
package param

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/numrent/internal/ledger"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// UUID parses the named path parameter.
func UUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid %s", ledger.ErrInvalidInput, name)
	}

	return id, nil
}

// UserID parses the named path parameter as an account id.
func UserID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s", ledger.ErrInvalidInput, name)
	}

	return id, nil
}

// Limit reads ?limit=, defaulting to DefaultLimit and capped at MaxLimit.
func Limit(r *http.Request) (int, error) {
	s := r.URL.Query().Get("limit")
	if s == "" {
		return DefaultLimit, nil
	}

	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: invalid limit", ledger.ErrInvalidInput)
	}

	return min(n, MaxLimit), nil
}

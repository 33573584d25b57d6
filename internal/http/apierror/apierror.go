// Package apierror maps domain errors onto HTTP responses.
package apierror

import (
	"errors"
	"net/http"

	"github.com/MrJamesThe3rd/numrent/internal/auth"
	"github.com/MrJamesThe3rd/numrent/internal/funding"
	"github.com/MrJamesThe3rd/numrent/internal/ledger"
)

type Body struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var statuses = map[*ledger.Error]int{
	ledger.ErrInvalidInput:       http.StatusBadRequest,
	ledger.ErrNotFound:           http.StatusNotFound,
	ledger.ErrForbidden:          http.StatusForbidden,
	ledger.ErrInvalidState:       http.StatusConflict,
	ledger.ErrListingUnavailable: http.StatusConflict,
	ledger.ErrDuplicateReview:    http.StatusConflict,
	ledger.ErrInsufficientFunds:  http.StatusPaymentRequired,
}

// From returns the status and body for err. Unknown errors are reported as a
// bare 500 so internals never leak to clients.
func From(err error) (int, Body) {
	var le *ledger.Error
	if errors.As(err, &le) {
		if status, ok := statuses[le]; ok {
			return status, Body{Code: le.Code, Message: err.Error()}
		}
	}

	switch {
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrInvalidLogin):
		return http.StatusUnauthorized, Body{Code: "UNAUTHORIZED", Message: err.Error()}
	case errors.Is(err, funding.ErrGateway):
		return http.StatusBadGateway, Body{Code: "PAYMENT_PROVIDER", Message: funding.ErrGateway.Error()}
	}

	return http.StatusInternalServerError, Body{Code: "INTERNAL", Message: "internal error"}
}

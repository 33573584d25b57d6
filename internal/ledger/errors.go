package ledger

// Error is a recoverable ledger error. Callers match it with errors.Is and may
// report Message to the user verbatim.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var (
	ErrInvalidInput       = &Error{Code: "INVALID_INPUT", Message: "invalid input"}
	ErrNotFound           = &Error{Code: "NOT_FOUND", Message: "not found"}
	ErrInvalidState       = &Error{Code: "INVALID_STATE", Message: "operation not allowed in current state"}
	ErrInsufficientFunds  = &Error{Code: "INSUFFICIENT_FUNDS", Message: "insufficient funds"}
	ErrListingUnavailable = &Error{Code: "LISTING_UNAVAILABLE", Message: "listing is no longer available"}
	ErrDuplicateReview    = &Error{Code: "DUPLICATE_REVIEW", Message: "review already submitted"}
	ErrForbidden          = &Error{Code: "FORBIDDEN", Message: "forbidden"}
)

package ledger

import "slices"

// TransactionStatus represents the lifecycle state of a transaction.
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionDisputed  TransactionStatus = "disputed"
	TransactionCompleted TransactionStatus = "completed"
	TransactionRefunded  TransactionStatus = "refunded"
)

var transactionTransitions = map[TransactionStatus][]TransactionStatus{
	TransactionPending:   {TransactionDisputed, TransactionCompleted, TransactionRefunded},
	TransactionDisputed:  {TransactionCompleted, TransactionRefunded},
	TransactionCompleted: nil,
	TransactionRefunded:  nil,
}

// Valid reports whether s is a known transaction status.
func (s TransactionStatus) Valid() bool {
	_, ok := transactionTransitions[s]
	return ok
}

// Terminal reports whether no further transition is allowed from s.
func (s TransactionStatus) Terminal() bool {
	return s.Valid() && len(transactionTransitions[s]) == 0
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	return slices.Contains(transactionTransitions[s], next)
}

// DisputeStatus represents the lifecycle state of a dispute.
type DisputeStatus string

const (
	DisputeOpen     DisputeStatus = "open"
	DisputeResolved DisputeStatus = "resolved"
	DisputeClosed   DisputeStatus = "closed"
)

var disputeTransitions = map[DisputeStatus][]DisputeStatus{
	DisputeOpen:     {DisputeResolved, DisputeClosed},
	DisputeResolved: nil,
	DisputeClosed:   nil,
}

// Valid reports whether s is a known dispute status.
func (s DisputeStatus) Valid() bool {
	_, ok := disputeTransitions[s]
	return ok
}

// Terminal reports whether no further transition is allowed from s.
func (s DisputeStatus) Terminal() bool {
	return s.Valid() && len(disputeTransitions[s]) == 0
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s DisputeStatus) CanTransitionTo(next DisputeStatus) bool {
	return slices.Contains(disputeTransitions[s], next)
}

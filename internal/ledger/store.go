package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store is the durable record of the marketplace. It owns no policy: every
// invariant is enforced by callers inside a single unit of work obtained from Begin.
//
//go:generate mockgen -source=store.go -destination=store_mock.go -package=ledger
type Store interface {
	Begin(ctx context.Context) (Tx, error)

	GetAccount(ctx context.Context, id int64) (*Account, error)
	GetListing(ctx context.Context, id uuid.UUID) (*Listing, error)
	ListListings(ctx context.Context, filter ListingFilter) ([]*Listing, error)
	GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error)
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]*Transaction, error)
	GetDispute(ctx context.Context, id uuid.UUID) (*Dispute, error)
	ListDisputes(ctx context.Context, filter DisputeFilter) ([]*Dispute, error)
	ListReviews(ctx context.Context, filter ReviewFilter) ([]*Review, error)
	GetDeposit(ctx context.Context, invoiceID string) (*Deposit, error)
}

// Tx is a unit of work. Lock* reads hold the row until Commit or Rollback, so no
// other unit can interleave between the read and the write that follows it.
// Rollback after Commit is a no-op.
type Tx interface {
	CreateAccount(ctx context.Context, a *Account) error
	LockAccount(ctx context.Context, id int64) (*Account, error)
	// AdjustBalance adds delta to the balance and returns the new balance. It fails
	// with ErrInsufficientFunds when the result would be negative.
	AdjustBalance(ctx context.Context, id int64, delta int64) (int64, error)
	UpdateRating(ctx context.Context, id int64, sum, count int64, rating decimal.Decimal) error

	CreateListing(ctx context.Context, l *Listing) error
	LockListing(ctx context.Context, id uuid.UUID) (*Listing, error)
	// MarkListingSold flips an active listing to sold, or fails with ErrListingUnavailable.
	MarkListingSold(ctx context.Context, id uuid.UUID) error

	CreateTransaction(ctx context.Context, t *Transaction) error
	LockTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error)
	// UpdateTransactionStatus moves a transaction from one status to another, or fails
	// with ErrInvalidState if it is no longer in from.
	UpdateTransactionStatus(ctx context.Context, id uuid.UUID, from, to TransactionStatus, completedAt *time.Time) error

	CreateDispute(ctx context.Context, d *Dispute) error
	LockDispute(ctx context.Context, id uuid.UUID) (*Dispute, error)
	// UpdateDispute writes d's status, outcome and resolved_at if the stored status is still from.
	UpdateDispute(ctx context.Context, d *Dispute, from DisputeStatus) error

	CreateReview(ctx context.Context, r *Review) error

	CreateDeposit(ctx context.Context, d *Deposit) error
	LockDeposit(ctx context.Context, invoiceID string) (*Deposit, error)
	MarkDepositPaid(ctx context.Context, invoiceID string, paidAt time.Time) error

	Commit() error
	Rollback() error
}

// ListingOrder selects how active listings are sorted.
type ListingOrder string

const (
	OrderNewest    ListingOrder = "newest"
	OrderPriceAsc  ListingOrder = "price_asc"
	OrderPriceDesc ListingOrder = "price_desc"
)

// Valid reports whether o is a known order.
func (o ListingOrder) Valid() bool {
	switch o {
	case OrderNewest, OrderPriceAsc, OrderPriceDesc:
		return true
	}

	return false
}

type ListingFilter struct {
	Status   *ListingStatus
	Service  *Service
	SellerID *int64
	Order    ListingOrder
	Limit    int
	Offset   int
}

type TransactionFilter struct {
	BuyerID        *int64
	SellerID       *int64
	PartyID        *int64
	Status         *TransactionStatus
	ExpiresBefore  *time.Time
	CompletedAfter *time.Time
	Limit          int
}

type DisputeFilter struct {
	Status        *DisputeStatus
	InitiatorID   *int64
	TransactionID *uuid.UUID
	Limit         int
}

type ReviewFilter struct {
	ReviewedID    *int64
	ReviewerID    *int64
	TransactionID *uuid.UUID
}

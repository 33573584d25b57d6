package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultRating is the rating every account starts with before its first review.
var DefaultRating = decimal.NewFromInt(5)

// Account holds a user's custodial balance and reputation.
type Account struct {
	ID          int64
	Username    string
	Balance     int64 // Amount in cents
	Rating      decimal.Decimal
	RatingSum   int64
	RatingCount int64
	CreatedAt   time.Time
}

// ListingStatus represents the lifecycle state of a listing.
type ListingStatus string

const (
	ListingActive ListingStatus = "active"
	ListingSold   ListingStatus = "sold"
)

// Listing is a seller's offer of access to a phone number for a fixed number of hours.
type Listing struct {
	ID            uuid.UUID
	SellerID      int64
	Service       Service
	DurationHours int
	Price         int64 // Amount in cents
	Status        ListingStatus
	CreatedAt     time.Time
}

// Duration returns the rental period as a time.Duration.
func (l *Listing) Duration() time.Duration {
	return time.Duration(l.DurationHours) * time.Hour
}

// Transaction is a purchase of a listing. Amount is frozen at purchase time.
type Transaction struct {
	ID          uuid.UUID
	BuyerID     int64
	SellerID    int64
	ListingID   uuid.UUID
	Amount      int64 // Amount in cents
	Status      TransactionStatus
	CreatedAt   time.Time
	ExpiresAt   time.Time
	CompletedAt *time.Time
	UpdatedAt   *time.Time
}

// Counterpart returns the other party of the transaction, or false if userID is not a party.
func (t *Transaction) Counterpart(userID int64) (int64, bool) {
	switch userID {
	case t.BuyerID:
		return t.SellerID, true
	case t.SellerID:
		return t.BuyerID, true
	}

	return 0, false
}

// Dispute is a buyer's claim against a pending transaction.
type Dispute struct {
	ID            uuid.UUID
	TransactionID uuid.UUID
	InitiatorID   int64
	Description   string
	Status        DisputeStatus
	Outcome       *Outcome
	CreatedAt     time.Time
	ResolvedAt    *time.Time
}

// Outcome is the decision taken when a dispute is resolved.
type Outcome string

const (
	FavorBuyer  Outcome = "favor_buyer"
	FavorSeller Outcome = "favor_seller"
)

// Valid reports whether o is a known outcome.
func (o Outcome) Valid() bool {
	return o == FavorBuyer || o == FavorSeller
}

// Settlement returns the transaction status an outcome settles into.
func (o Outcome) Settlement() TransactionStatus {
	if o == FavorSeller {
		return TransactionCompleted
	}

	return TransactionRefunded
}

// Review is feedback left by one party of a completed transaction about the other.
type Review struct {
	ID            uuid.UUID
	TransactionID uuid.UUID
	ReviewerID    int64
	ReviewedID    int64
	Rating        int
	Comment       string
	CreatedAt     time.Time
}

// DepositStatus represents the state of a funding invoice.
type DepositStatus string

const (
	DepositPending DepositStatus = "pending"
	DepositPaid    DepositStatus = "paid"
)

// Deposit records an invoice issued by the payment gateway for topping up a balance.
type Deposit struct {
	InvoiceID string
	UserID    int64
	Amount    int64 // Amount in cents
	PayURL    string
	Status    DepositStatus
	CreatedAt time.Time
	PaidAt    *time.Time
}

// MeanRating returns sum/count rounded to one decimal place, or DefaultRating for no reviews.
func MeanRating(sum, count int64) decimal.Decimal {
	if count <= 0 {
		return DefaultRating
	}

	return decimal.NewFromInt(sum).DivRound(decimal.NewFromInt(count), 1)
}

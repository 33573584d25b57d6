package respond

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/numrent/internal/ledger"
	"github.com/MrJamesThe3rd/numrent/internal/money"
)

type AccountResponse struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username,omitempty"`
	Rating      string    `json:"rating"`
	ReviewCount int64     `json:"review_count"`
	Balance     *string   `json:"balance,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Account renders a. The balance is included only when private is set.
func Account(a *ledger.Account, private bool) AccountResponse {
	resp := AccountResponse{
		ID:          a.ID,
		Username:    a.Username,
		Rating:      a.Rating.StringFixed(1),
		ReviewCount: a.RatingCount,
		CreatedAt:   a.CreatedAt,
	}

	if private {
		resp.Balance = new(money.Format(a.Balance))
	}

	return resp
}

// Prices and amounts are rendered as fixed two-decimal USDT strings.
type ListingResponse struct {
	ID            uuid.UUID            `json:"id"`
	SellerID      int64                `json:"seller_id"`
	Service       ledger.Service       `json:"service"`
	DurationHours int                  `json:"duration_hours"`
	Price         string               `json:"price"`
	Status        ledger.ListingStatus `json:"status"`
	CreatedAt     time.Time            `json:"created_at"`
}

func Listing(l *ledger.Listing) ListingResponse {
	return ListingResponse{
		ID:            l.ID,
		SellerID:      l.SellerID,
		Service:       l.Service,
		DurationHours: l.DurationHours,
		Price:         money.Format(l.Price),
		Status:        l.Status,
		CreatedAt:     l.CreatedAt,
	}
}

func Listings(ls []*ledger.Listing) []ListingResponse {
	resp := make([]ListingResponse, len(ls))
	for i, l := range ls {
		resp[i] = Listing(l)
	}

	return resp
}

type TransactionResponse struct {
	ID          uuid.UUID                `json:"id"`
	ListingID   uuid.UUID                `json:"listing_id"`
	BuyerID     int64                    `json:"buyer_id"`
	SellerID    int64                    `json:"seller_id"`
	Amount      string                   `json:"amount"`
	Status      ledger.TransactionStatus `json:"status"`
	CreatedAt   time.Time                `json:"created_at"`
	ExpiresAt   time.Time                `json:"expires_at"`
	CompletedAt *time.Time               `json:"completed_at,omitempty"`
	UpdatedAt   *time.Time               `json:"updated_at,omitempty"`
}

func Transaction(t *ledger.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:          t.ID,
		ListingID:   t.ListingID,
		BuyerID:     t.BuyerID,
		SellerID:    t.SellerID,
		Amount:      money.Format(t.Amount),
		Status:      t.Status,
		CreatedAt:   t.CreatedAt,
		ExpiresAt:   t.ExpiresAt,
		CompletedAt: t.CompletedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func Transactions(ts []*ledger.Transaction) []TransactionResponse {
	resp := make([]TransactionResponse, len(ts))
	for i, t := range ts {
		resp[i] = Transaction(t)
	}

	return resp
}

type DisputeResponse struct {
	ID            uuid.UUID            `json:"id"`
	TransactionID uuid.UUID            `json:"transaction_id"`
	InitiatorID   int64                `json:"initiator_id"`
	Description   string               `json:"description"`
	Status        ledger.DisputeStatus `json:"status"`
	Outcome       *ledger.Outcome      `json:"outcome,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	ResolvedAt    *time.Time           `json:"resolved_at,omitempty"`
}

func Dispute(d *ledger.Dispute) DisputeResponse {
	return DisputeResponse{
		ID:            d.ID,
		TransactionID: d.TransactionID,
		InitiatorID:   d.InitiatorID,
		Description:   d.Description,
		Status:        d.Status,
		Outcome:       d.Outcome,
		CreatedAt:     d.CreatedAt,
		ResolvedAt:    d.ResolvedAt,
	}
}

func Disputes(ds []*ledger.Dispute) []DisputeResponse {
	resp := make([]DisputeResponse, len(ds))
	for i, d := range ds {
		resp[i] = Dispute(d)
	}

	return resp
}

type ReviewResponse struct {
	ID            uuid.UUID `json:"id"`
	TransactionID uuid.UUID `json:"transaction_id"`
	ReviewerID    int64     `json:"reviewer_id"`
	ReviewedID    int64     `json:"reviewed_id"`
	Rating        int       `json:"rating"`
	Comment       string    `json:"comment,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func Review(r *ledger.Review) ReviewResponse {
	return ReviewResponse{
		ID:            r.ID,
		TransactionID: r.TransactionID,
		ReviewerID:    r.ReviewerID,
		ReviewedID:    r.ReviewedID,
		Rating:        r.Rating,
		Comment:       r.Comment,
		CreatedAt:     r.CreatedAt,
	}
}

func Reviews(rs []*ledger.Review) []ReviewResponse {
	resp := make([]ReviewResponse, len(rs))
	for i, r := range rs {
		resp[i] = Review(r)
	}

	return resp
}

type DepositResponse struct {
	InvoiceID string               `json:"invoice_id"`
	Amount    string               `json:"amount"`
	PayURL    string               `json:"pay_url"`
	Status    ledger.DepositStatus `json:"status"`
	CreatedAt time.Time            `json:"created_at"`
	PaidAt    *time.Time           `json:"paid_at,omitempty"`
}

func Deposit(d *ledger.Deposit) DepositResponse {
	return DepositResponse{
		InvoiceID: d.InvoiceID,
		Amount:    money.Format(d.Amount),
		PayURL:    d.PayURL,
		Status:    d.Status,
		CreatedAt: d.CreatedAt,
		PaidAt:    d.PaidAt,
	}
}

type BalanceResponse struct {
	Balance string `json:"balance"`
}

func Balance(cents int64) BalanceResponse {
	return BalanceResponse{Balance: money.Format(cents)}
}

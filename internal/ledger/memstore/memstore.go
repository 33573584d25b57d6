// Package memstore is an in-process ledger.Store. A unit of work holds the
// store's writer lock from Begin until Commit or Rollback, and Rollback replays
// an undo log, so every failed unit leaves the maps exactly as they were.
package memstore

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/numrent/internal/ledger"
)

var errTxDone = errors.New("memstore: transaction has already been committed or rolled back")

type Store struct {
	mu sync.RWMutex

	accounts     map[int64]*ledger.Account
	listings     map[uuid.UUID]*ledger.Listing
	transactions map[uuid.UUID]*ledger.Transaction
	disputes     map[uuid.UUID]*ledger.Dispute
	reviews      map[uuid.UUID]*ledger.Review
	deposits     map[string]*ledger.Deposit

	now func() time.Time
}

var _ ledger.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		accounts:     make(map[int64]*ledger.Account),
		listings:     make(map[uuid.UUID]*ledger.Listing),
		transactions: make(map[uuid.UUID]*ledger.Transaction),
		disputes:     make(map[uuid.UUID]*ledger.Dispute),
		reviews:      make(map[uuid.UUID]*ledger.Review),
		deposits:     make(map[string]*ledger.Deposit),
		now:          time.Now,
	}
}

// WithClock replaces the clock used for created_at/updated_at stamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Begin(ctx context.Context) (ledger.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}

	s.mu.Lock()

	return &tx{s: s}, nil
}

func (s *Store) GetAccount(_ context.Context, id int64) (*ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return getCopy(s.accounts, id, "account")
}

func (s *Store) GetListing(_ context.Context, id uuid.UUID) (*ledger.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return getCopy(s.listings, id, "listing")
}

func (s *Store) ListListings(_ context.Context, filter ledger.ListingFilter) ([]*ledger.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*ledger.Listing

	for _, l := range s.listings {
		if filter.Status != nil && l.Status != *filter.Status {
			continue
		}

		if filter.Service != nil && l.Service != *filter.Service {
			continue
		}

		if filter.SellerID != nil && l.SellerID != *filter.SellerID {
			continue
		}

		c := *l
		out = append(out, &c)
	}

	slices.SortFunc(out, func(a, b *ledger.Listing) int {
		var c int

		switch filter.Order {
		case ledger.OrderPriceAsc:
			c = cmp.Compare(a.Price, b.Price)
		case ledger.OrderPriceDesc:
			c = cmp.Compare(b.Price, a.Price)
		default:
			c = b.CreatedAt.Compare(a.CreatedAt)
		}

		if c != 0 {
			return c
		}

		return cmp.Compare(a.ID.String(), b.ID.String())
	})

	return page(out, filter.Offset, filter.Limit), nil
}

func (s *Store) GetTransaction(_ context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return getCopy(s.transactions, id, "transaction")
}

func (s *Store) ListTransactions(_ context.Context, filter ledger.TransactionFilter) ([]*ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*ledger.Transaction

	for _, t := range s.transactions {
		if filter.BuyerID != nil && t.BuyerID != *filter.BuyerID {
			continue
		}

		if filter.SellerID != nil && t.SellerID != *filter.SellerID {
			continue
		}

		if filter.PartyID != nil && t.BuyerID != *filter.PartyID && t.SellerID != *filter.PartyID {
			continue
		}

		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}

		if filter.ExpiresBefore != nil && t.ExpiresAt.After(*filter.ExpiresBefore) {
			continue
		}

		if filter.CompletedAfter != nil && (t.CompletedAt == nil || t.CompletedAt.Before(*filter.CompletedAfter)) {
			continue
		}

		c := *t
		out = append(out, &c)
	}

	slices.SortFunc(out, func(a, b *ledger.Transaction) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	return page(out, 0, filter.Limit), nil
}

func (s *Store) GetDispute(_ context.Context, id uuid.UUID) (*ledger.Dispute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return getCopy(s.disputes, id, "dispute")
}

func (s *Store) ListDisputes(_ context.Context, filter ledger.DisputeFilter) ([]*ledger.Dispute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*ledger.Dispute

	for _, d := range s.disputes {
		if filter.Status != nil && d.Status != *filter.Status {
			continue
		}

		if filter.InitiatorID != nil && d.InitiatorID != *filter.InitiatorID {
			continue
		}

		if filter.TransactionID != nil && d.TransactionID != *filter.TransactionID {
			continue
		}

		c := *d
		out = append(out, &c)
	}

	slices.SortFunc(out, func(a, b *ledger.Dispute) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	return page(out, 0, filter.Limit), nil
}

func (s *Store) ListReviews(_ context.Context, filter ledger.ReviewFilter) ([]*ledger.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*ledger.Review

	for _, r := range s.reviews {
		if filter.ReviewedID != nil && r.ReviewedID != *filter.ReviewedID {
			continue
		}

		if filter.ReviewerID != nil && r.ReviewerID != *filter.ReviewerID {
			continue
		}

		if filter.TransactionID != nil && r.TransactionID != *filter.TransactionID {
			continue
		}

		c := *r
		out = append(out, &c)
	}

	slices.SortFunc(out, func(a, b *ledger.Review) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	return out, nil
}

func (s *Store) GetDeposit(_ context.Context, invoiceID string) (*ledger.Deposit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return getCopy(s.deposits, invoiceID, "deposit")
}

func getCopy[K comparable, V any](m map[K]*V, k K, what string) (*V, error) {
	v, ok := m[k]
	if !ok {
		return nil, fmt.Errorf("%w: %s %v", ledger.ErrNotFound, what, k)
	}

	c := *v

	return &c, nil
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return nil
	}

	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}

	return items
}

type tx struct {
	s    *Store
	undo []func()
	done bool
}

// put stores v under k and records how to restore the previous state.
func put[K comparable, V any](t *tx, m map[K]*V, k K, v V) {
	if prev, ok := m[k]; ok {
		old := *prev
		t.undo = append(t.undo, func() { m[k] = &old })
	} else {
		t.undo = append(t.undo, func() { delete(m, k) })
	}

	m[k] = &v
}

func (t *tx) Commit() error {
	if t.done {
		return errTxDone
	}

	t.done = true
	t.undo = nil
	t.s.mu.Unlock()

	return nil
}

func (t *tx) Rollback() error {
	if t.done {
		return nil
	}

	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}

	t.done = true
	t.undo = nil
	t.s.mu.Unlock()

	return nil
}

func (t *tx) check() error {
	if t.done {
		return errTxDone
	}

	return nil
}

func (t *tx) CreateAccount(_ context.Context, a *ledger.Account) error {
	if err := t.check(); err != nil {
		return err
	}

	if _, ok := t.s.accounts[a.ID]; ok {
		return fmt.Errorf("%w: account %d is already registered", ledger.ErrInvalidState, a.ID)
	}

	a.CreatedAt = t.s.now()
	put(t, t.s.accounts, a.ID, *a)

	return nil
}

func (t *tx) LockAccount(_ context.Context, id int64) (*ledger.Account, error) {
	if err := t.check(); err != nil {
		return nil, err
	}

	return getCopy(t.s.accounts, id, "account")
}

func (t *tx) AdjustBalance(_ context.Context, id int64, delta int64) (int64, error) {
	if err := t.check(); err != nil {
		return 0, err
	}

	a, ok := t.s.accounts[id]
	if !ok {
		return 0, fmt.Errorf("%w: account %d", ledger.ErrNotFound, id)
	}

	if a.Balance+delta < 0 {
		return 0, ledger.ErrInsufficientFunds
	}

	updated := *a
	updated.Balance += delta
	put(t, t.s.accounts, id, updated)

	return updated.Balance, nil
}

func (t *tx) UpdateRating(_ context.Context, id int64, sum, count int64, rating decimal.Decimal) error {
	if err := t.check(); err != nil {
		return err
	}

	a, ok := t.s.accounts[id]
	if !ok {
		return fmt.Errorf("%w: account %d", ledger.ErrNotFound, id)
	}

	updated := *a
	updated.RatingSum = sum
	updated.RatingCount = count
	updated.Rating = rating
	put(t, t.s.accounts, id, updated)

	return nil
}

func (t *tx) CreateListing(_ context.Context, l *ledger.Listing) error {
	if err := t.check(); err != nil {
		return err
	}

	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}

	l.CreatedAt = t.s.now()
	put(t, t.s.listings, l.ID, *l)

	return nil
}

func (t *tx) LockListing(_ context.Context, id uuid.UUID) (*ledger.Listing, error) {
	if err := t.check(); err != nil {
		return nil, err
	}

	return getCopy(t.s.listings, id, "listing")
}

func (t *tx) MarkListingSold(_ context.Context, id uuid.UUID) error {
	if err := t.check(); err != nil {
		return err
	}

	l, ok := t.s.listings[id]
	if !ok || l.Status != ledger.ListingActive {
		return ledger.ErrListingUnavailable
	}

	updated := *l
	updated.Status = ledger.ListingSold
	put(t, t.s.listings, id, updated)

	return nil
}

func (t *tx) CreateTransaction(_ context.Context, tr *ledger.Transaction) error {
	if err := t.check(); err != nil {
		return err
	}

	for _, existing := range t.s.transactions {
		if existing.ListingID == tr.ListingID {
			return ledger.ErrListingUnavailable
		}
	}

	if tr.ID == uuid.Nil {
		tr.ID = uuid.New()
	}

	tr.CreatedAt = t.s.now()
	put(t, t.s.transactions, tr.ID, *tr)

	return nil
}

func (t *tx) LockTransaction(_ context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	if err := t.check(); err != nil {
		return nil, err
	}

	return getCopy(t.s.transactions, id, "transaction")
}

func (t *tx) UpdateTransactionStatus(_ context.Context, id uuid.UUID, from, to ledger.TransactionStatus, completedAt *time.Time) error {
	if err := t.check(); err != nil {
		return err
	}

	tr, ok := t.s.transactions[id]
	if !ok {
		return fmt.Errorf("%w: transaction %s", ledger.ErrNotFound, id)
	}

	if tr.Status != from {
		return fmt.Errorf("%w: transaction %s is %s", ledger.ErrInvalidState, id, tr.Status)
	}

	now := t.s.now()
	updated := *tr
	updated.Status = to
	updated.UpdatedAt = &now

	if completedAt != nil {
		updated.CompletedAt = new(*completedAt)
	}

	put(t, t.s.transactions, id, updated)

	return nil
}

func (t *tx) CreateDispute(_ context.Context, d *ledger.Dispute) error {
	if err := t.check(); err != nil {
		return err
	}

	for _, existing := range t.s.disputes {
		if existing.TransactionID == d.TransactionID {
			return fmt.Errorf("%w: transaction %s already has a dispute", ledger.ErrInvalidState, d.TransactionID)
		}
	}

	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}

	d.CreatedAt = t.s.now()
	put(t, t.s.disputes, d.ID, *d)

	return nil
}

func (t *tx) LockDispute(_ context.Context, id uuid.UUID) (*ledger.Dispute, error) {
	if err := t.check(); err != nil {
		return nil, err
	}

	return getCopy(t.s.disputes, id, "dispute")
}

func (t *tx) UpdateDispute(_ context.Context, d *ledger.Dispute, from ledger.DisputeStatus) error {
	if err := t.check(); err != nil {
		return err
	}

	stored, ok := t.s.disputes[d.ID]
	if !ok {
		return fmt.Errorf("%w: dispute %s", ledger.ErrNotFound, d.ID)
	}

	if stored.Status != from {
		return fmt.Errorf("%w: dispute %s is %s", ledger.ErrInvalidState, d.ID, stored.Status)
	}

	updated := *stored
	updated.Status = d.Status
	updated.Outcome = d.Outcome
	updated.ResolvedAt = d.ResolvedAt
	put(t, t.s.disputes, d.ID, updated)

	return nil
}

func (t *tx) CreateReview(_ context.Context, r *ledger.Review) error {
	if err := t.check(); err != nil {
		return err
	}

	for _, existing := range t.s.reviews {
		if existing.TransactionID == r.TransactionID && existing.ReviewerID == r.ReviewerID {
			return ledger.ErrDuplicateReview
		}
	}

	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}

	r.CreatedAt = t.s.now()
	put(t, t.s.reviews, r.ID, *r)

	return nil
}

func (t *tx) CreateDeposit(_ context.Context, d *ledger.Deposit) error {
	if err := t.check(); err != nil {
		return err
	}

	if _, ok := t.s.deposits[d.InvoiceID]; ok {
		return fmt.Errorf("%w: invoice %s already recorded", ledger.ErrInvalidState, d.InvoiceID)
	}

	d.CreatedAt = t.s.now()
	put(t, t.s.deposits, d.InvoiceID, *d)

	return nil
}

func (t *tx) LockDeposit(_ context.Context, invoiceID string) (*ledger.Deposit, error) {
	if err := t.check(); err != nil {
		return nil, err
	}

	return getCopy(t.s.deposits, invoiceID, "deposit")
}

func (t *tx) MarkDepositPaid(_ context.Context, invoiceID string, paidAt time.Time) error {
	if err := t.check(); err != nil {
		return err
	}

	d, ok := t.s.deposits[invoiceID]
	if !ok {
		return fmt.Errorf("%w: deposit %s", ledger.ErrNotFound, invoiceID)
	}

	if d.Status != ledger.DepositPending {
		return fmt.Errorf("%w: deposit %s is %s", ledger.ErrInvalidState, invoiceID, d.Status)
	}

	updated := *d
	updated.Status = ledger.DepositPaid
	updated.PaidAt = &paidAt
	put(t, t.s.deposits, invoiceID, updated)

	return nil
}

// Package escrow moves money for purchases. A purchase debits the buyer once and
// every transaction is later settled by exactly one credit: to the seller when it
// completes, or back to the buyer when it is refunded.
package escrow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/numrent/internal/ledger"
	"github.com/MrJamesThe3rd/numrent/internal/money"
	"github.com/MrJamesThe3rd/numrent/internal/notify"
)

type Service struct {
	store    ledger.Store
	notifier notify.Notifier
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(store ledger.Store, notifier notify.Notifier, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock replaces the clock used for expiry and completion timestamps.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Purchase buys a listing. The listing is locked before the buyer's balance is
// touched, so of two concurrent buyers exactly one is debited and the other
// gets ErrListingUnavailable.
func (s *Service) Purchase(ctx context.Context, buyerID int64, listingID uuid.UUID) (*ledger.Transaction, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	l, err := tx.LockListing(ctx, listingID)
	if err != nil {
		return nil, err
	}

	if l.Status != ledger.ListingActive {
		return nil, ledger.ErrListingUnavailable
	}

	if l.SellerID == buyerID {
		return nil, fmt.Errorf("%w: you cannot buy your own listing", ledger.ErrInvalidInput)
	}

	if _, err := tx.AdjustBalance(ctx, buyerID, -l.Price); err != nil {
		return nil, err
	}

	if err := tx.MarkListingSold(ctx, l.ID); err != nil {
		return nil, err
	}

	t := &ledger.Transaction{
		BuyerID:   buyerID,
		SellerID:  l.SellerID,
		ListingID: l.ID,
		Amount:    l.Price,
		Status:    ledger.TransactionPending,
		ExpiresAt: s.now().Add(l.Duration()),
	}

	if err := tx.CreateTransaction(ctx, t); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info("listing purchased",
		"transaction_id", t.ID, "listing_id", l.ID, "buyer_id", buyerID, "seller_id", l.SellerID, "amount", t.Amount)

	notify.Send(ctx, s.notifier, s.logger,
		fmt.Sprintf("Your %s number for %dh was purchased for %s USDT.", l.Service, l.DurationHours, money.Format(t.Amount)),
		l.SellerID)

	return t, nil
}

// MarkCompleted pays the seller for a pending transaction.
func (s *Service) MarkCompleted(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	return s.settlePending(ctx, id, ledger.TransactionCompleted, nil)
}

// Refund returns the escrowed amount of a pending transaction to the buyer.
func (s *Service) Refund(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	return s.settlePending(ctx, id, ledger.TransactionRefunded, nil)
}

// Confirm lets the buyer acknowledge delivery, completing the transaction early.
func (s *Service) Confirm(ctx context.Context, buyerID int64, id uuid.UUID) (*ledger.Transaction, error) {
	return s.settlePending(ctx, id, ledger.TransactionCompleted, func(t *ledger.Transaction) error {
		if t.BuyerID != buyerID {
			return fmt.Errorf("%w: only the buyer can confirm a purchase", ledger.ErrForbidden)
		}

		return nil
	})
}

// Settle finishes a disputed transaction inside the caller's unit of work. It is
// how the dispute resolver moves money, so the dispute and the payout commit together.
func (s *Service) Settle(ctx context.Context, tx ledger.Tx, id uuid.UUID, outcome ledger.Outcome) (*ledger.Transaction, error) {
	if !outcome.Valid() {
		return nil, fmt.Errorf("%w: unknown outcome %q", ledger.ErrInvalidInput, outcome)
	}

	t, err := tx.LockTransaction(ctx, id)
	if err != nil {
		return nil, err
	}

	if t.Status != ledger.TransactionDisputed {
		return nil, fmt.Errorf("%w: transaction is %s, not disputed", ledger.ErrInvalidState, t.Status)
	}

	if err := s.settle(ctx, tx, t, outcome.Settlement()); err != nil {
		return nil, err
	}

	return t, nil
}

func (s *Service) settlePending(ctx context.Context, id uuid.UUID, to ledger.TransactionStatus, check func(*ledger.Transaction) error) (*ledger.Transaction, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	t, err := tx.LockTransaction(ctx, id)
	if err != nil {
		return nil, err
	}

	if check != nil {
		if err := check(t); err != nil {
			return nil, err
		}
	}

	if t.Status != ledger.TransactionPending {
		return nil, fmt.Errorf("%w: transaction is %s", ledger.ErrInvalidState, t.Status)
	}

	if err := s.settle(ctx, tx, t, to); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.Announce(ctx, t)

	return t, nil
}

// settle moves t into a terminal status and pays whoever that status favours.
// t is updated in place.
func (s *Service) settle(ctx context.Context, tx ledger.Tx, t *ledger.Transaction, to ledger.TransactionStatus) error {
	if !t.Status.CanTransitionTo(to) || !to.Terminal() {
		return fmt.Errorf("%w: cannot move transaction from %s to %s", ledger.ErrInvalidState, t.Status, to)
	}

	now := s.now()

	var completedAt *time.Time
	if to == ledger.TransactionCompleted {
		completedAt = &now
	}

	if err := tx.UpdateTransactionStatus(ctx, t.ID, t.Status, to, completedAt); err != nil {
		return err
	}

	payee := t.SellerID
	if to == ledger.TransactionRefunded {
		payee = t.BuyerID
	}

	if _, err := tx.AdjustBalance(ctx, payee, t.Amount); err != nil {
		return fmt.Errorf("crediting account %d: %w", payee, err)
	}

	t.Status = to
	t.CompletedAt = completedAt
	t.UpdatedAt = &now

	return nil
}

// Announce logs a settled transaction and tells both parties about it.
func (s *Service) Announce(ctx context.Context, t *ledger.Transaction) {
	s.logger.Info("transaction settled", "transaction_id", t.ID, "status", t.Status, "amount", t.Amount)

	amount := money.Format(t.Amount)

	switch t.Status {
	case ledger.TransactionCompleted:
		notify.Send(ctx, s.notifier, s.logger, fmt.Sprintf("Deal %s completed: %s USDT was paid to you.", t.ID, amount), t.SellerID)
		notify.Send(ctx, s.notifier, s.logger, fmt.Sprintf("Deal %s completed. You can now leave a review.", t.ID), t.BuyerID)
	case ledger.TransactionRefunded:
		notify.Send(ctx, s.notifier, s.logger, fmt.Sprintf("Deal %s refunded: %s USDT returned to your balance.", t.ID, amount), t.BuyerID)
		notify.Send(ctx, s.notifier, s.logger, fmt.Sprintf("Deal %s was refunded to the buyer.", t.ID), t.SellerID)
	}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	return s.store.GetTransaction(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ledger.TransactionFilter) ([]*ledger.Transaction, error) {
	return s.store.ListTransactions(ctx, filter)
}

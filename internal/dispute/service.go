// Package dispute runs the buyer-initiated dispute process. A dispute freezes a
// pending transaction until an admin resolves it in someone's favour or closes it.
package dispute

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/numrent/internal/ledger"
	"github.com/MrJamesThe3rd/numrent/internal/notify"
)

const MaxDescriptionLength = 1000

// Settler pays out a disputed transaction inside the caller's unit of work.
//
//go:generate mockgen -source=service.go -destination=settler_mock.go -package=dispute
type Settler interface {
	Settle(ctx context.Context, tx ledger.Tx, id uuid.UUID, outcome ledger.Outcome) (*ledger.Transaction, error)
}

type Service struct {
	store    ledger.Store
	escrow   Settler
	notifier notify.Notifier
	admins   []int64
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(store ledger.Store, escrow Settler, notifier notify.Notifier, admins []int64, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		escrow:   escrow,
		notifier: notifier,
		admins:   admins,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Open files a dispute on a pending transaction. Only the buyer may open one and a
// transaction can be disputed at most once.
func (s *Service) Open(ctx context.Context, transactionID uuid.UUID, initiatorID int64, description string) (*ledger.Dispute, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, fmt.Errorf("%w: describe the problem", ledger.ErrInvalidInput)
	}

	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return nil, fmt.Errorf("%w: description is longer than %d characters", ledger.ErrInvalidInput, MaxDescriptionLength)
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	t, err := tx.LockTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	if t.BuyerID != initiatorID {
		return nil, fmt.Errorf("%w: only the buyer can open a dispute", ledger.ErrInvalidInput)
	}

	if t.Status != ledger.TransactionPending {
		return nil, fmt.Errorf("%w: transaction is %s", ledger.ErrInvalidState, t.Status)
	}

	if err := tx.UpdateTransactionStatus(ctx, t.ID, ledger.TransactionPending, ledger.TransactionDisputed, nil); err != nil {
		return nil, err
	}

	d := &ledger.Dispute{
		TransactionID: t.ID,
		InitiatorID:   initiatorID,
		Description:   description,
		Status:        ledger.DisputeOpen,
	}

	if err := tx.CreateDispute(ctx, d); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info("dispute opened", "dispute_id", d.ID, "transaction_id", t.ID, "initiator_id", initiatorID)

	notify.Send(ctx, s.notifier, s.logger,
		fmt.Sprintf("New dispute %s on deal %s:\n%s", d.ID, t.ID, description),
		s.admins...)
	notify.Send(ctx, s.notifier, s.logger,
		fmt.Sprintf("The buyer opened a dispute on deal %s. Funds are frozen until an admin decides.", t.ID),
		t.SellerID)

	return d, nil
}

// Resolve decides an open dispute. The payout and the dispute's new status
// commit together, so a second Resolve on the same dispute fails with
// ErrInvalidState and moves no money.
func (s *Service) Resolve(ctx context.Context, disputeID uuid.UUID, outcome ledger.Outcome) (*ledger.Dispute, error) {
	if !outcome.Valid() {
		return nil, fmt.Errorf("%w: unknown outcome %q", ledger.ErrInvalidInput, outcome)
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	d, err := tx.LockDispute(ctx, disputeID)
	if err != nil {
		return nil, err
	}

	if !d.Status.CanTransitionTo(ledger.DisputeResolved) {
		return nil, fmt.Errorf("%w: dispute is %s", ledger.ErrInvalidState, d.Status)
	}

	t, err := s.escrow.Settle(ctx, tx, d.TransactionID, outcome)
	if err != nil {
		return nil, err
	}

	now := s.now()
	d.Status = ledger.DisputeResolved
	d.Outcome = &outcome
	d.ResolvedAt = &now

	if err := tx.UpdateDispute(ctx, d, ledger.DisputeOpen); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info("dispute resolved", "dispute_id", d.ID, "transaction_id", t.ID, "outcome", outcome)

	text := fmt.Sprintf("Dispute on deal %s resolved in favour of the %s.", t.ID, favoured(outcome))
	notify.Send(ctx, s.notifier, s.logger, text, t.BuyerID, t.SellerID)

	return d, nil
}

// Close ends an open dispute without moving money. The transaction stays disputed.
func (s *Service) Close(ctx context.Context, disputeID uuid.UUID) (*ledger.Dispute, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	d, err := tx.LockDispute(ctx, disputeID)
	if err != nil {
		return nil, err
	}

	if !d.Status.CanTransitionTo(ledger.DisputeClosed) {
		return nil, fmt.Errorf("%w: dispute is %s", ledger.ErrInvalidState, d.Status)
	}

	t, err := tx.LockTransaction(ctx, d.TransactionID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	d.Status = ledger.DisputeClosed
	d.ResolvedAt = &now

	if err := tx.UpdateDispute(ctx, d, ledger.DisputeOpen); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.logger.Warn("dispute closed without settlement", "dispute_id", d.ID, "transaction_id", t.ID, "amount", t.Amount)

	notify.Send(ctx, s.notifier, s.logger, fmt.Sprintf("Dispute on deal %s was closed by an admin.", t.ID), t.BuyerID, t.SellerID)

	return d, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*ledger.Dispute, error) {
	return s.store.GetDispute(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ledger.DisputeFilter) ([]*ledger.Dispute, error) {
	return s.store.ListDisputes(ctx, filter)
}

func favoured(o ledger.Outcome) string {
	if o == ledger.FavorSeller {
		return "seller"
	}

	return "buyer"
}

// Package funding moves money between the payment provider and ledger balances.
// Provider calls are always made outside a unit of work.
package funding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/numrent/internal/ledger"
	"github.com/MrJamesThe3rd/numrent/internal/money"
	"github.com/MrJamesThe3rd/numrent/internal/notify"
)

// ErrGateway reports that the payment provider refused or could not process a request.
var ErrGateway = errors.New("payment provider unavailable")

// ErrDeclined is returned by a Gateway when the provider answered and refused the
// request, so nothing was paid out. Any other Gateway error leaves the outcome unknown.
var ErrDeclined = errors.New("payment provider declined the request")

type Invoice struct {
	ID     string
	PayURL string
}

//go:generate mockgen -source=service.go -destination=service_mock.go -package=funding
type Gateway interface {
	CreateInvoice(ctx context.Context, amount int64) (Invoice, error)
	Transfer(ctx context.Context, userID int64, amount int64, spendID string) error
}

// Accounts is the balance API the funding layer moves money through.
type Accounts interface {
	Credit(ctx context.Context, id int64, amount int64) (int64, error)
	Debit(ctx context.Context, id int64, amount int64) (int64, error)
}

type Limits struct {
	MinDeposit    int64
	MinWithdrawal int64
}

type Service struct {
	store    ledger.Store
	accounts Accounts
	gateway  Gateway
	notifier notify.Notifier
	limits   Limits
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(store ledger.Store, accounts Accounts, gateway Gateway, notifier notify.Notifier, limits Limits, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		accounts: accounts,
		gateway:  gateway,
		notifier: notifier,
		limits:   limits,
		logger:   logger,
		now:      time.Now,
	}
}

// Deposit issues a provider invoice for amount and records it as pending.
// The balance is credited later by ConfirmDeposit.
func (s *Service) Deposit(ctx context.Context, userID int64, amount int64) (*ledger.Deposit, error) {
	if amount < s.limits.MinDeposit || amount <= 0 {
		return nil, fmt.Errorf("%w: minimum deposit is %s USDT", ledger.ErrInvalidInput, money.Format(s.limits.MinDeposit))
	}

	if _, err := s.store.GetAccount(ctx, userID); err != nil {
		return nil, err
	}

	inv, err := s.gateway.CreateInvoice(ctx, amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGateway, err)
	}

	d := &ledger.Deposit{
		InvoiceID: inv.ID,
		UserID:    userID,
		Amount:    amount,
		PayURL:    inv.PayURL,
		Status:    ledger.DepositPending,
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := tx.CreateDeposit(ctx, d); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info("deposit invoice created", "invoice_id", d.InvoiceID, "user_id", userID, "amount", amount)

	return d, nil
}

// ConfirmDeposit credits a paid invoice. Confirming the same invoice twice
// credits it once and returns the already-paid deposit.
func (s *Service) ConfirmDeposit(ctx context.Context, invoiceID string) (*ledger.Deposit, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	d, err := tx.LockDeposit(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	if d.Status == ledger.DepositPaid {
		return d, nil
	}

	now := s.now()
	if err := tx.MarkDepositPaid(ctx, invoiceID, now); err != nil {
		return nil, err
	}

	balance, err := tx.AdjustBalance(ctx, d.UserID, d.Amount)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	d.Status = ledger.DepositPaid
	d.PaidAt = &now

	s.logger.Info("deposit confirmed", "invoice_id", invoiceID, "user_id", d.UserID, "amount", d.Amount)

	notify.Send(ctx, s.notifier, s.logger,
		fmt.Sprintf("Deposit of %s USDT received. Balance: %s USDT.", money.Format(d.Amount), money.Format(balance)),
		d.UserID)

	return d, nil
}

// Withdraw debits the balance and then pays it out through the provider. The debit
// is reversed only when the provider declines the transfer. When the outcome is
// unknown the debit stands and the spend id is logged for reconciliation, since
// the provider may already have paid.
func (s *Service) Withdraw(ctx context.Context, userID int64, amount int64) (int64, error) {
	if amount < s.limits.MinWithdrawal || amount <= 0 {
		return 0, fmt.Errorf("%w: minimum withdrawal is %s USDT", ledger.ErrInvalidInput, money.Format(s.limits.MinWithdrawal))
	}

	balance, err := s.accounts.Debit(ctx, userID, amount)
	if err != nil {
		return 0, err
	}

	spendID := "withdrawal_" + uuid.NewString()

	// The payout runs to completion even if the caller goes away.
	payCtx := context.WithoutCancel(ctx)

	if err := s.gateway.Transfer(payCtx, userID, amount, spendID); err != nil {
		if !errors.Is(err, ErrDeclined) {
			s.logger.Error("withdrawal outcome unknown, debit kept for reconciliation",
				"user_id", userID, "amount", amount, "spend_id", spendID, "error", err)

			return 0, fmt.Errorf("%w: withdrawal %s is being checked: %w", ErrGateway, spendID, err)
		}

		s.logger.Warn("withdrawal declined, reversing debit", "user_id", userID, "amount", amount, "spend_id", spendID, "error", err)

		if _, rerr := s.accounts.Credit(payCtx, userID, amount); rerr != nil {
			s.logger.Error("failed to reverse withdrawal debit", "user_id", userID, "amount", amount, "spend_id", spendID, "error", rerr)
			return 0, errors.Join(fmt.Errorf("%w: %w", ErrGateway, err), rerr)
		}

		return 0, fmt.Errorf("%w: %w", ErrGateway, err)
	}

	s.logger.Info("withdrawal sent", "user_id", userID, "amount", amount, "spend_id", spendID)

	notify.Send(ctx, s.notifier, s.logger,
		fmt.Sprintf("Withdrawal of %s USDT sent. Balance: %s USDT.", money.Format(amount), money.Format(balance)),
		userID)

	return balance, nil
}

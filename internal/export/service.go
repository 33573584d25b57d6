package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/MrJamesThe3rd/numrent/internal/ledger"
	"github.com/MrJamesThe3rd/numrent/internal/money"
)

// Role is the side of a transaction a statement line was seen from.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
)

// Lister reads transactions from the ledger.
type Lister interface {
	List(ctx context.Context, filter ledger.TransactionFilter) ([]*ledger.Transaction, error)
}

// Line is a single transaction as it affects one account.
type Line struct {
	Transaction  *ledger.Transaction
	Role         Role
	Counterparty int64
	// Net is the settled effect on the balance: a buyer's payment, a seller's
	// payout, or zero while funds are held or after a refund.
	Net int64
}

// Held reports whether the line's funds are still in escrow.
func (l Line) Held() bool {
	return !l.Transaction.Status.Terminal()
}

// Period bounds a statement by creation time. From is inclusive, To exclusive, and
// either may be nil.
type Period struct {
	From *time.Time
	To   *time.Time
}

func (p Period) contains(t time.Time) bool {
	if p.From != nil && t.Before(*p.From) {
		return false
	}

	return p.To == nil || t.Before(*p.To)
}

// Totals summarises a statement.
type Totals struct {
	Spent  int64
	Earned int64
	Held   int64
}

// Service builds account statements.
type Service struct {
	transactions Lister
}

func NewService(transactions Lister) *Service {
	return &Service{transactions: transactions}
}

// Statement returns every transaction userID took part in during period, newest first.
func (s *Service) Statement(ctx context.Context, userID int64, period Period) ([]Line, error) {
	if period.From != nil && period.To != nil && !period.From.Before(*period.To) {
		return nil, fmt.Errorf("%w: statement period is empty", ledger.ErrInvalidInput)
	}

	transactions, err := s.transactions.List(ctx, ledger.TransactionFilter{PartyID: &userID})
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}

	// Pre-allocate to avoid reallocations.
	lines := make([]Line, 0, len(transactions))

	for _, t := range transactions {
		if !period.contains(t.CreatedAt) {
			continue
		}

		lines = append(lines, lineFor(t, userID))
	}

	return lines, nil
}

func lineFor(t *ledger.Transaction, userID int64) Line {
	if t.SellerID == userID {
		l := Line{Transaction: t, Role: RoleSeller, Counterparty: t.BuyerID}
		if t.Status == ledger.TransactionCompleted {
			l.Net = t.Amount
		}

		return l
	}

	l := Line{Transaction: t, Role: RoleBuyer, Counterparty: t.SellerID}
	if t.Status != ledger.TransactionRefunded {
		l.Net = -t.Amount
	}

	return l
}

// Sum totals the lines. Held counts buyer payments still in escrow.
func Sum(lines []Line) Totals {
	var totals Totals

	for _, l := range lines {
		switch {
		case l.Role == RoleBuyer && l.Held():
			totals.Held += l.Transaction.Amount
		case l.Role == RoleBuyer:
			totals.Spent -= l.Net
		default:
			totals.Earned += l.Net
		}
	}

	return totals
}

var csvHeader = []string{"date", "transaction", "role", "counterparty", "amount", "status", "net"}

// WriteCSV writes the lines as a spreadsheet-friendly CSV with a header row.
func WriteCSV(w io.Writer, lines []Line) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, l := range lines {
		t := l.Transaction

		err := cw.Write([]string{
			t.CreatedAt.UTC().Format(time.RFC3339),
			t.ID.String(),
			string(l.Role),
			strconv.FormatInt(l.Counterparty, 10),
			money.Format(t.Amount),
			string(t.Status),
			money.Format(l.Net),
		})
		if err != nil {
			return fmt.Errorf("writing transaction %s: %w", t.ID, err)
		}
	}

	cw.Flush()

	return cw.Error()
}

// Summary renders the statement as plain text, one line per transaction followed by totals.
func Summary(lines []Line) string {
	var sb strings.Builder

	for _, l := range lines {
		t := l.Transaction

		fmt.Fprintf(&sb, "* %s | %s | %s USDT | %s | net %s\n",
			t.CreatedAt.UTC().Format("2006-01-02"), l.Role, money.Format(t.Amount), t.Status, money.Format(l.Net))
	}

	totals := Sum(lines)
	fmt.Fprintf(&sb, "\nSpent: %s USDT\nEarned: %s USDT\nIn escrow: %s USDT\n",
		money.Format(totals.Spent), money.Format(totals.Earned), money.Format(totals.Held))

	return sb.String()
}

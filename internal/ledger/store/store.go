// Package store is the PostgreSQL implementation of ledger.Store.
//
// Every mutation runs inside a unit of work begun with Begin. Lock* reads use
// SELECT ... FOR UPDATE, and conditional writes re-check the expected state in
// their WHERE clause, so a lost race surfaces as a ledger error instead of a
// silent overwrite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MrJamesThe3rd/numrent/internal/ledger"
)

const uniqueViolation = "23505"

type Store struct {
	db *sql.DB
}

var _ ledger.Store = (*Store)(nil)

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func notFound(err error, what string, id any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s %v", ledger.ErrNotFound, what, id)
	}

	return fmt.Errorf("getting %s: %w", what, err)
}

func (s *Store) Begin(ctx context.Context) (ledger.Tx, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}

	return &unit{tx: dbTx}, nil
}

func (s *Store) GetAccount(ctx context.Context, id int64) (*ledger.Account, error) {
	return getAccount(ctx, s.db, id, false)
}

func (s *Store) GetListing(ctx context.Context, id uuid.UUID) (*ledger.Listing, error) {
	return getListing(ctx, s.db, id, false)
}

func (s *Store) GetTransaction(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	return getTransaction(ctx, s.db, id, false)
}

func (s *Store) GetDispute(ctx context.Context, id uuid.UUID) (*ledger.Dispute, error) {
	return getDispute(ctx, s.db, id, false)
}

func (s *Store) GetDeposit(ctx context.Context, invoiceID string) (*ledger.Deposit, error) {
	return getDeposit(ctx, s.db, invoiceID, false)
}

// forUpdate appends a row lock to query when lock is set.
func forUpdate(query string, lock bool) string {
	if lock {
		return query + " FOR UPDATE"
	}

	return query
}

// collect drains rows through scan, closing rows when done.
func collect[T any](rows *sql.Rows, scan func(scanner) (*T, error)) ([]*T, error) {
	defer rows.Close()

	var out []*T

	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		out = append(out, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	return out, nil
}

// where accumulates positional predicates in the order their arguments are bound.
type where struct {
	clauses []string
	args    []any
}

func (w *where) add(clause string, arg any) {
	w.args = append(w.args, arg)
	w.clauses = append(w.clauses, fmt.Sprintf(clause, len(w.args)))
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}

	out := " WHERE " + w.clauses[0]
	for _, c := range w.clauses[1:] {
		out += " AND " + c
	}

	return out
}

func (w *where) limit(n int) string {
	if n <= 0 {
		return ""
	}

	w.args = append(w.args, n)

	return fmt.Sprintf(" LIMIT $%d", len(w.args))
}

func (w *where) offset(n int) string {
	if n <= 0 {
		return ""
	}

	w.args = append(w.args, n)

	return fmt.Sprintf(" OFFSET $%d", len(w.args))
}

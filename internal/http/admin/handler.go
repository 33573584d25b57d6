// Package admin serves operator actions: manual credits and settling stuck deals.
package admin

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/numrent/internal/account"
	"github.com/MrJamesThe3rd/numrent/internal/escrow"
	"github.com/MrJamesThe3rd/numrent/internal/http/param"
	"github.com/MrJamesThe3rd/numrent/internal/http/respond"
	"github.com/MrJamesThe3rd/numrent/internal/ledger"
	"github.com/MrJamesThe3rd/numrent/internal/money"
)

type Handler struct {
	accounts *account.Service
	escrow   *escrow.Service
}

func NewHandler(accounts *account.Service, escrow *escrow.Service) *Handler {
	return &Handler{accounts: accounts, escrow: escrow}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/accounts/{id}/credit", h.credit)
	r.Get("/purchases", h.listPurchases)
	r.Post("/purchases/{id}/complete", h.complete)
	r.Post("/purchases/{id}/refund", h.refund)
}

type creditRequest struct {
	Amount string `json:"amount"`
}

func (h *Handler) credit(w http.ResponseWriter, r *http.Request) {
	id, err := param.UserID(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	var req creditRequest
	if !respond.Decode(w, r, &req) {
		return
	}

	amount, err := money.ParsePositive(req.Amount)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	balance, err := h.accounts.Credit(r.Context(), id, amount)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, respond.Balance(balance))
}

func (h *Handler) listPurchases(w http.ResponseWriter, r *http.Request) {
	limit, err := param.Limit(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	filter := ledger.TransactionFilter{Limit: limit}

	if s := r.URL.Query().Get("status"); s != "" {
		status := ledger.TransactionStatus(s)
		if !status.Valid() {
			respond.Error(w, r, fmt.Errorf("%w: unknown status %q", ledger.ErrInvalidInput, s))
			return
		}

		filter.Status = &status
	}

	txs, err := h.escrow.List(r.Context(), filter)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, respond.Transactions(txs))
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	h.settle(w, r, h.escrow.MarkCompleted)
}

func (h *Handler) refund(w http.ResponseWriter, r *http.Request) {
	h.settle(w, r, h.escrow.Refund)
}

func (h *Handler) settle(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error)) {
	id, err := param.UUID(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	t, err := fn(r.Context(), id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, respond.Transaction(t))
}

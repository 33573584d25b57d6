// Package purchase serves a caller's deals and the actions parties take on them.
package purchase

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/numrent/internal/dispute"
	"github.com/MrJamesThe3rd/numrent/internal/escrow"
	"github.com/MrJamesThe3rd/numrent/internal/http/middleware"
	"github.com/MrJamesThe3rd/numrent/internal/http/param"
	"github.com/MrJamesThe3rd/numrent/internal/http/respond"
	"github.com/MrJamesThe3rd/numrent/internal/ledger"
	"github.com/MrJamesThe3rd/numrent/internal/review"
)

type Handler struct {
	escrow   *escrow.Service
	disputes *dispute.Service
	reviews  *review.Service
}

func NewHandler(escrow *escrow.Service, disputes *dispute.Service, reviews *review.Service) *Handler {
	return &Handler{escrow: escrow, disputes: disputes, reviews: reviews}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Post("/{id}/confirm", h.confirm)
	r.Post("/{id}/disputes", h.openDispute)
	r.Post("/{id}/reviews", h.submitReview)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	me := middleware.Principal(r).UserID
	q := r.URL.Query()

	limit, err := param.Limit(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	filter := ledger.TransactionFilter{Limit: limit}

	switch q.Get("role") {
	case "buyer":
		filter.BuyerID = &me
	case "seller":
		filter.SellerID = &me
	case "":
		filter.PartyID = &me
	default:
		respond.BadRequest(w, "role must be buyer or seller")
		return
	}

	if s := q.Get("status"); s != "" {
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

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := param.UUID(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	t, err := h.escrow.Get(r.Context(), id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	p := middleware.Principal(r)
	if _, party := t.Counterpart(p.UserID); !party && !p.Admin() {
		respond.Error(w, r, ledger.ErrForbidden)
		return
	}

	respond.JSON(w, http.StatusOK, respond.Transaction(t))
}

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request) {
	id, err := param.UUID(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	t, err := h.escrow.Confirm(r.Context(), middleware.Principal(r).UserID, id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, respond.Transaction(t))
}

type openDisputeRequest struct {
	Description string `json:"description"`
}

func (h *Handler) openDispute(w http.ResponseWriter, r *http.Request) {
	id, err := param.UUID(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	var req openDisputeRequest
	if !respond.Decode(w, r, &req) {
		return
	}

	d, err := h.disputes.Open(r.Context(), id, middleware.Principal(r).UserID, req.Description)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, respond.Dispute(d))
}

type submitReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (h *Handler) submitReview(w http.ResponseWriter, r *http.Request) {
	id, err := param.UUID(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	var req submitReviewRequest
	if !respond.Decode(w, r, &req) {
		return
	}

	rev, err := h.reviews.Submit(r.Context(), id, middleware.Principal(r).UserID, req.Rating, req.Comment)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, respond.Review(rev))
}

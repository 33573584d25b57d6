package dispute

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
)

type Handler struct {
	svc    *dispute.Service
	escrow *escrow.Service
}

func NewHandler(svc *dispute.Service, escrow *escrow.Service) *Handler {
	return &Handler{svc: svc, escrow: escrow}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{id}", h.get)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin)
		r.Post("/{id}/resolve", h.resolve)
		r.Post("/{id}/close", h.close)
	})
}

// list shows admins every dispute and everyone else the disputes they opened.
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	p := middleware.Principal(r)

	limit, err := param.Limit(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	filter := ledger.DisputeFilter{Limit: limit}
	if !p.Admin() {
		filter.InitiatorID = &p.UserID
	}

	if s := r.URL.Query().Get("status"); s != "" {
		status := ledger.DisputeStatus(s)
		if !status.Valid() {
			respond.Error(w, r, fmt.Errorf("%w: unknown status %q", ledger.ErrInvalidInput, s))
			return
		}

		filter.Status = &status
	}

	disputes, err := h.svc.List(r.Context(), filter)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, respond.Disputes(disputes))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := param.UUID(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	d, err := h.svc.Get(r.Context(), id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	if p := middleware.Principal(r); !p.Admin() {
		t, err := h.escrow.Get(r.Context(), d.TransactionID)
		if err != nil {
			respond.Error(w, r, err)
			return
		}

		if _, party := t.Counterpart(p.UserID); !party {
			respond.Error(w, r, ledger.ErrForbidden)
			return
		}
	}

	respond.JSON(w, http.StatusOK, respond.Dispute(d))
}

type resolveRequest struct {
	Outcome ledger.Outcome `json:"outcome"`
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) {
	id, err := param.UUID(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	var req resolveRequest
	if !respond.Decode(w, r, &req) {
		return
	}

	d, err := h.svc.Resolve(r.Context(), id, req.Outcome)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, respond.Dispute(d))
}

func (h *Handler) close(w http.ResponseWriter, r *http.Request) {
	id, err := param.UUID(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	d, err := h.svc.Close(r.Context(), id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, respond.Dispute(d))
}

package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/numrent/internal/account"
	"github.com/MrJamesThe3rd/numrent/internal/http/middleware"
	"github.com/MrJamesThe3rd/numrent/internal/http/param"
	"github.com/MrJamesThe3rd/numrent/internal/http/respond"
	"github.com/MrJamesThe3rd/numrent/internal/review"
)

type Handler struct {
	svc     *account.Service
	reviews *review.Service
}

func NewHandler(svc *account.Service, reviews *review.Service) *Handler {
	return &Handler{svc: svc, reviews: reviews}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.register)
	r.Get("/me", h.me)
	r.Get("/{id}", h.get)
	r.Get("/{id}/reviews", h.listReviews)
}

type registerRequest struct {
	Username string `json:"username"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !respond.Decode(w, r, &req) {
		return
	}

	acc, err := h.svc.Register(r.Context(), middleware.Principal(r).UserID, req.Username)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, respond.Account(acc, true))
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	acc, err := h.svc.Get(r.Context(), middleware.Principal(r).UserID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, respond.Account(acc, true))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := param.UserID(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	acc, err := h.svc.Get(r.Context(), id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	p := middleware.Principal(r)
	respond.JSON(w, http.StatusOK, respond.Account(acc, p.UserID == id || p.Admin()))
}

func (h *Handler) listReviews(w http.ResponseWriter, r *http.Request) {
	id, err := param.UserID(r, "id")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	reviews, err := h.reviews.ListFor(r.Context(), id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, respond.Reviews(reviews))
}

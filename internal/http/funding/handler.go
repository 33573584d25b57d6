package funding

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/numrent/internal/funding"
	"github.com/MrJamesThe3rd/numrent/internal/http/middleware"
	"github.com/MrJamesThe3rd/numrent/internal/http/respond"
	"github.com/MrJamesThe3rd/numrent/internal/money"
	"github.com/MrJamesThe3rd/numrent/internal/payment/cryptobot"
)

type Handler struct {
	svc           *funding.Service
	providerToken string
}

// NewHandler serves deposits and withdrawals. providerToken authenticates
// payment provider webhooks.
func NewHandler(svc *funding.Service, providerToken string) *Handler {
	return &Handler{svc: svc, providerToken: providerToken}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/deposits", h.deposit)
	r.Post("/withdrawals", h.withdraw)
	r.With(middleware.RequireAdmin).Post("/deposits/{invoice}/confirm", h.confirm)
}

// WebhookRoutes are mounted outside authentication; requests are signed by the provider.
func (h *Handler) WebhookRoutes(r chi.Router) {
	r.Post("/cryptobot", h.cryptobotWebhook)
}

type amountRequest struct {
	Amount string `json:"amount"`
}

func (h *Handler) deposit(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if !respond.Decode(w, r, &req) {
		return
	}

	amount, err := money.ParsePositive(req.Amount)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	d, err := h.svc.Deposit(r.Context(), middleware.Principal(r).UserID, amount)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusCreated, respond.Deposit(d))
}

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.ConfirmDeposit(r.Context(), chi.URLParam(r, "invoice"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, respond.Deposit(d))
}

func (h *Handler) withdraw(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if !respond.Decode(w, r, &req) {
		return
	}

	amount, err := money.ParsePositive(req.Amount)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	balance, err := h.svc.Withdraw(r.Context(), middleware.Principal(r).UserID, amount)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, respond.Balance(balance))
}

func (h *Handler) cryptobotWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<16))
	if err != nil {
		respond.BadRequest(w, "unreadable body")
		return
	}

	update, err := cryptobot.ParseWebhook(h.providerToken, body, r.Header.Get("Crypto-Pay-Api-Signature"))
	if err != nil {
		slog.Warn("rejected payment webhook", "error", err)
		w.WriteHeader(http.StatusUnauthorized)

		return
	}

	invoiceID, ok := update.InvoicePaid()
	if !ok {
		w.WriteHeader(http.StatusOK)
		return
	}

	if _, err := h.svc.ConfirmDeposit(r.Context(), invoiceID); err != nil {
		respond.Error(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

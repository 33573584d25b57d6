// Package session exchanges a Telegram login for an API token.
package session

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/numrent/internal/account"
	"github.com/MrJamesThe3rd/numrent/internal/auth"
	"github.com/MrJamesThe3rd/numrent/internal/http/respond"
)

type Handler struct {
	issuer   *auth.Issuer
	accounts *account.Service
	botToken string
	maxAge   time.Duration
	now      func() time.Time
}

func NewHandler(issuer *auth.Issuer, accounts *account.Service, botToken string, maxAge time.Duration) *Handler {
	return &Handler{
		issuer:   issuer,
		accounts: accounts,
		botToken: botToken,
		maxAge:   maxAge,
		now:      time.Now,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/telegram", h.telegram)
}

type tokenResponse struct {
	Token     string                  `json:"token"`
	ExpiresAt time.Time               `json:"expires_at"`
	Role      auth.Role               `json:"role"`
	Account   respond.AccountResponse `json:"account"`
}

// telegram accepts the fields the Telegram login widget produced, verbatim.
func (h *Handler) telegram(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.UseNumber()

	if err := dec.Decode(&raw); err != nil {
		respond.BadRequest(w, "invalid request body: "+err.Error())
		return
	}

	fields := make(map[string]string, len(raw))
	for k, v := range raw {
		fields[k] = fmt.Sprint(v)
	}

	login, err := auth.VerifyTelegramLogin(h.botToken, fields, h.maxAge, h.now())
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	acc, err := h.accounts.Register(r.Context(), login.UserID, login.Username)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	token, expires, err := h.issuer.Issue(login.UserID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.JSON(w, http.StatusOK, tokenResponse{
		Token:     token,
		ExpiresAt: expires,
		Role:      h.issuer.RoleOf(login.UserID),
		Account:   respond.Account(acc, true),
	})
}

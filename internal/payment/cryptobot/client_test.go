package cryptobot_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/numrent/internal/funding"
	"github.com/MrJamesThe3rd/numrent/internal/payment/cryptobot"
)

func TestClient_CreateInvoice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/createInvoice", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("Crypto-Pay-API-Token"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "USDT", body["asset"])
		assert.Equal(t, "12.50", body["amount"])

		_, _ = w.Write([]byte(`{"ok":true,"result":{"invoice_id":528,"bot_invoice_url":"https://t.me/CryptoBot?start=IV528"}}`))
	}))
	defer srv.Close()

	c := cryptobot.New(cryptobot.Config{BaseURL: srv.URL, Token: "secret"})

	inv, err := c.CreateInvoice(context.Background(), 1250)
	require.NoError(t, err)
	assert.Equal(t, "528", inv.ID)
	assert.Equal(t, "https://t.me/CryptoBot?start=IV528", inv.PayURL)
}

func TestClient_Transfer(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		body         string
		wantErr      string
		wantDeclined bool
	}{
		{name: "Success", status: http.StatusOK, body: `{"ok":true,"result":{"transfer_id":1}}`},
		{name: "APIError", status: http.StatusBadRequest, body: `{"ok":false,"error":{"code":400,"name":"INSUFFICIENT_FUNDS"}}`, wantErr: "INSUFFICIENT_FUNDS", wantDeclined: true},
		{name: "Garbage", status: http.StatusBadGateway, body: `<html>`, wantErr: "status 502"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/transfer", r.URL.Path)

				var body map[string]any
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, float64(77), body["user_id"])
				assert.Equal(t, "10.00", body["amount"])
				assert.Equal(t, "withdrawal_x", body["spend_id"])

				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := cryptobot.New(cryptobot.Config{BaseURL: srv.URL, Token: "t"}).Transfer(context.Background(), 77, 1000, "withdrawal_x")
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				assert.Equal(t, tt.wantDeclined, errors.Is(err, funding.ErrDeclined))

				return
			}

			assert.NoError(t, err)
		})
	}
}

func TestClient_TransferTimeoutIsNotDeclined(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := cryptobot.New(cryptobot.Config{BaseURL: srv.URL, Token: "t"}).Transfer(ctx, 77, 1000, "withdrawal_x")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, funding.ErrDeclined)
}

func TestParseWebhook(t *testing.T) {
	body := []byte(`{"update_id":1,"update_type":"invoice_paid","payload":{"invoice_id":528,"status":"paid"}}`)

	secret := sha256.Sum256([]byte("secret"))
	mac := hmac.New(sha256.New, secret[:])
	mac.Write(body)
	sig := hex.EncodeToString(mac.Sum(nil))

	u, err := cryptobot.ParseWebhook("secret", body, sig)
	require.NoError(t, err)

	id, ok := u.InvoicePaid()
	assert.True(t, ok)
	assert.Equal(t, "528", id)

	_, err = cryptobot.ParseWebhook("other", body, sig)
	assert.ErrorIs(t, err, cryptobot.ErrBadSignature)

	_, err = cryptobot.ParseWebhook("secret", body, "zz")
	assert.ErrorIs(t, err, cryptobot.ErrBadSignature)
}

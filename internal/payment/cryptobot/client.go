// Package cryptobot is a funding.Gateway backed by the Crypto Pay API.
package cryptobot

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/MrJamesThe3rd/numrent/internal/funding"
	"github.com/MrJamesThe3rd/numrent/internal/money"
)

const DefaultBaseURL = "https://pay.crypt.bot/api"

var ErrBadSignature = errors.New("cryptobot: bad webhook signature")

type Config struct {
	BaseURL     string
	Token       string
	Asset       string
	Description string
}

type Client struct {
	cfg    Config
	client *http.Client
}

var _ funding.Gateway = (*Client)(nil)

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	if cfg.Asset == "" {
		cfg.Asset = "USDT"
	}

	return &Client{cfg: cfg, client: &http.Client{Timeout: 15 * time.Second}}
}

type apiError struct {
	Code int    `json:"code"`
	Name string `json:"name"`
}

type envelope struct {
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result"`
	Error  *apiError       `json:"error"`
}

type createInvoiceRequest struct {
	Asset       string `json:"asset"`
	Amount      string `json:"amount"`
	Description string `json:"description,omitempty"`
}

type invoiceResult struct {
	InvoiceID     int64  `json:"invoice_id"`
	PayURL        string `json:"pay_url"`
	BotInvoiceURL string `json:"bot_invoice_url"`
}

func (c *Client) CreateInvoice(ctx context.Context, amount int64) (funding.Invoice, error) {
	var res invoiceResult

	err := c.call(ctx, "createInvoice", createInvoiceRequest{
		Asset:       c.cfg.Asset,
		Amount:      money.Format(amount),
		Description: c.cfg.Description,
	}, &res)
	if err != nil {
		return funding.Invoice{}, err
	}

	url := res.BotInvoiceURL
	if url == "" {
		url = res.PayURL
	}

	return funding.Invoice{ID: strconv.FormatInt(res.InvoiceID, 10), PayURL: url}, nil
}

type transferRequest struct {
	UserID  int64  `json:"user_id"`
	Asset   string `json:"asset"`
	Amount  string `json:"amount"`
	SpendID string `json:"spend_id"`
}

func (c *Client) Transfer(ctx context.Context, userID int64, amount int64, spendID string) error {
	return c.call(ctx, "transfer", transferRequest{
		UserID:  userID,
		Asset:   c.cfg.Asset,
		Amount:  money.Format(amount),
		SpendID: spendID,
	}, nil)
}

func (c *Client) call(ctx context.Context, method string, params, result any) error {
	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encoding %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/"+method, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building %s request: %w", method, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Crypto-Pay-API-Token", c.cfg.Token)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", method, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decoding %s response (status %d): %w", method, resp.StatusCode, err)
	}

	if !env.OK {
		if env.Error != nil {
			return fmt.Errorf("%w: %s failed: %s (%d)", funding.ErrDeclined, method, env.Error.Name, env.Error.Code)
		}

		return fmt.Errorf("%w: %s failed with status %d", funding.ErrDeclined, method, resp.StatusCode)
	}

	if result == nil {
		return nil
	}

	if err := json.Unmarshal(env.Result, result); err != nil {
		return fmt.Errorf("decoding %s result: %w", method, err)
	}

	return nil
}

// Update is a webhook notification from Crypto Pay.
type Update struct {
	UpdateID   int64  `json:"update_id"`
	UpdateType string `json:"update_type"`
	Payload    struct {
		InvoiceID int64  `json:"invoice_id"`
		Status    string `json:"status"`
	} `json:"payload"`
}

// InvoicePaid reports the invoice id of an invoice_paid update.
func (u Update) InvoicePaid() (string, bool) {
	if u.UpdateType != "invoice_paid" || u.Payload.Status != "paid" {
		return "", false
	}

	return strconv.FormatInt(u.Payload.InvoiceID, 10), true
}

// ParseWebhook verifies the crypto-pay-api-signature header against body and
// decodes the update. The signature is HMAC-SHA256 of the raw body keyed by
// SHA256 of the API token.
func ParseWebhook(token string, body []byte, signature string) (Update, error) {
	secret := sha256.Sum256([]byte(token))
	mac := hmac.New(sha256.New, secret[:])
	mac.Write(body)

	want, err := hex.DecodeString(signature)
	if err != nil || !hmac.Equal(mac.Sum(nil), want) {
		return Update{}, ErrBadSignature
	}

	var u Update
	if err := json.Unmarshal(body, &u); err != nil {
		return Update{}, fmt.Errorf("decoding webhook: %w", err)
	}

	return u, nil
}

// Package cryptopay implements the Crypto Pay API as the external payment
// gateway: deposit invoices, outbound transfers and custodial balances.
package cryptopay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"diceduel/service"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const tokenHeader = "Crypto-Pay-API-Token"

// Client talks to the Crypto Pay HTTP API. It implements
// service.PaymentGateway.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a new Crypto Pay client. Requests are retried with
// backoff on transient failures; the transfer endpoint stays safe to retry
// because every call carries a spend id.
func NewClient(baseURL, token string) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.HTTPClient.Timeout = 30 * time.Second
	rc.Logger = nil

	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    rc.StandardClient(),
	}
}

// envelope is the {ok, result} wrapper every API method returns
type envelope struct {
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result"`
	Error  *apiError       `json:"error"`
}

type apiError struct {
	Code int    `json:"code"`
	Name string `json:"name"`
}

type invoicePayload struct {
	InvoiceID     int64  `json:"invoice_id"`
	Status        string `json:"status"`
	PayURL        string `json:"pay_url"`
	BotInvoiceURL string `json:"bot_invoice_url"`
}

type transferPayload struct {
	TransferID int64 `json:"transfer_id"`
}

type balancePayload struct {
	CurrencyCode string          `json:"currency_code"`
	Available    decimal.Decimal `json:"available"`
	Onhold       decimal.Decimal `json:"onhold"`
}

// CreateInvoice requests a new payable invoice
func (c *Client) CreateInvoice(ctx context.Context, amount decimal.Decimal, asset string) (*service.Invoice, error) {
	params := map[string]string{
		"asset":  asset,
		"amount": amount.String(),
	}

	var payload invoicePayload
	if err := c.call(ctx, "createInvoice", params, &payload); err != nil {
		return nil, err
	}
	return toInvoice(payload), nil
}

// GetInvoice polls an invoice's status by id, nil if unknown
func (c *Client) GetInvoice(ctx context.Context, invoiceID int64) (*service.Invoice, error) {
	params := map[string]string{
		"invoice_ids": strconv.FormatInt(invoiceID, 10),
	}

	var payload struct {
		Items []invoicePayload `json:"items"`
	}
	if err := c.call(ctx, "getInvoices", params, &payload); err != nil {
		return nil, err
	}
	if len(payload.Items) == 0 {
		return nil, nil
	}
	return toInvoice(payload.Items[0]), nil
}

// Transfer executes an outbound transfer. The gateway deduplicates on spendID.
func (c *Client) Transfer(ctx context.Context, userID int64, amount decimal.Decimal, asset, spendID string) (*service.Transfer, error) {
	params := map[string]string{
		"user_id":  strconv.FormatInt(userID, 10),
		"asset":    asset,
		"amount":   amount.String(),
		"spend_id": spendID,
	}

	var payload transferPayload
	if err := c.call(ctx, "transfer", params, &payload); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"userID":     userID,
		"amount":     amount,
		"spendID":    spendID,
		"transferID": payload.TransferID,
	}).Info("Gateway transfer completed")

	return &service.Transfer{ID: payload.TransferID}, nil
}

// GetBalance returns the custodial balances per asset
func (c *Client) GetBalance(ctx context.Context) ([]service.AssetBalance, error) {
	var payload []balancePayload
	if err := c.call(ctx, "getBalance", nil, &payload); err != nil {
		return nil, err
	}

	balances := make([]service.AssetBalance, 0, len(payload))
	for _, b := range payload {
		balances = append(balances, service.AssetBalance{
			Currency:  b.CurrencyCode,
			Available: b.Available,
			OnHold:    b.Onhold,
		})
	}
	return balances, nil
}

func (c *Client) call(ctx context.Context, method string, params map[string]string, out any) error {
	var body io.Reader
	if params != nil {
		jsonBytes, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("failed to marshal %s request: %w", method, err)
		}
		body = bytes.NewBuffer(jsonBytes)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, body)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", method, err)
	}
	req.Header.Set(tokenHeader, c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", method, err)
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", method, err)
	}
	if !env.OK {
		if env.Error != nil {
			return fmt.Errorf("%s rejected: %d %s", method, env.Error.Code, env.Error.Name)
		}
		return fmt.Errorf("%s rejected: status %d", method, resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return fmt.Errorf("failed to decode %s result: %w", method, err)
		}
	}
	return nil
}

func toInvoice(p invoicePayload) *service.Invoice {
	payURL := p.PayURL
	if payURL == "" {
		payURL = p.BotInvoiceURL
	}
	return &service.Invoice{
		ID:     p.InvoiceID,
		Status: service.InvoiceStatus(p.Status),
		PayURL: payURL,
	}
}

package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/focusgate/focusgate-server/internal/pkg/env"
)

const defaultRazorpayAPIBaseURL = "https://api.razorpay.com/v1"

// ProviderRazorpay is the provider key stored with ledger rows and
// entitlements that originate from Razorpay webhooks.
const ProviderRazorpay = "razorpay"

// RazorpayClient talks to the Razorpay payment links API using basic auth
// with the key id/secret pair.
type RazorpayClient struct {
	KeyID     string
	KeySecret string

	APIBaseURL string

	HTTPClient *http.Client
}

// PaymentLinkCustomer is the payer contact attached to a payment link.
type PaymentLinkCustomer struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Contact string `json:"contact,omitempty"`
}

// PaymentLink is the subset of the payment link resource the service reads.
type PaymentLink struct {
	ID          string              `json:"id"`
	Amount      int64               `json:"amount"`
	Currency    string              `json:"currency"`
	Description string              `json:"description"`
	ReferenceID string              `json:"reference_id"`
	Status      string              `json:"status"`
	ShortURL    string              `json:"short_url"`
	Customer    PaymentLinkCustomer `json:"customer"`
	CreatedAt   int64               `json:"created_at"`
}

// CreatePaymentLinkInput describes a hosted checkout page to create. Amounts
// are in paise.
type CreatePaymentLinkInput struct {
	Amount      int64
	Currency    string
	Description string
	ReferenceID string
	Customer    PaymentLinkCustomer
	CallbackURL string
	NotifyEmail bool
}

func NewRazorpayClientFromEnv() *RazorpayClient {
	return &RazorpayClient{
		KeyID:      strings.TrimSpace(env.GetEnv("RAZORPAY_KEY_ID", "")),
		KeySecret:  strings.TrimSpace(env.GetEnv("RAZORPAY_KEY_SECRET", "")),
		APIBaseURL: strings.TrimSpace(env.GetEnv("RAZORPAY_API_BASE_URL", defaultRazorpayAPIBaseURL)),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// CreatePaymentLink creates a hosted payment page and returns the created
// link, including the short URL the customer is redirected to.
func (c *RazorpayClient) CreatePaymentLink(ctx context.Context, in CreatePaymentLinkInput) (*PaymentLink, error) {
	if strings.TrimSpace(c.KeyID) == "" || strings.TrimSpace(c.KeySecret) == "" {
		return nil, errors.New("RAZORPAY_KEY_ID/RAZORPAY_KEY_SECRET are not configured")
	}
	if in.Amount <= 0 {
		return nil, errors.New("payment link amount must be positive")
	}
	currency := strings.TrimSpace(in.Currency)
	if currency == "" {
		currency = "INR"
	}

	type notifyOptions struct {
		SMS   bool `json:"sms"`
		Email bool `json:"email"`
	}
	reqBody := struct {
		Amount         int64               `json:"amount"`
		Currency       string              `json:"currency"`
		AcceptPartial  bool                `json:"accept_partial"`
		ReferenceID    string              `json:"reference_id,omitempty"`
		Description    string              `json:"description,omitempty"`
		Customer       PaymentLinkCustomer `json:"customer"`
		Notify         notifyOptions       `json:"notify"`
		ReminderEnable bool                `json:"reminder_enable"`
		CallbackURL    string              `json:"callback_url,omitempty"`
		CallbackMethod string              `json:"callback_method,omitempty"`
	}{
		Amount:      in.Amount,
		Currency:    currency,
		ReferenceID: strings.TrimSpace(in.ReferenceID),
		Description: strings.TrimSpace(in.Description),
		Customer:    in.Customer,
		Notify:      notifyOptions{Email: in.NotifyEmail},
	}
	if cb := strings.TrimSpace(in.CallbackURL); cb != "" {
		reqBody.CallbackURL = cb
		reqBody.CallbackMethod = "get"
	}

	encoded, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL("/payment_links"), bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.KeyID, c.KeySecret)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("razorpay payment link create failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var out PaymentLink
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.ID) == "" || strings.TrimSpace(out.ShortURL) == "" {
		return nil, errors.New("razorpay payment link response missing id or short_url")
	}
	return &out, nil
}

// FetchPaymentLink retrieves a payment link by id. The webhook pipeline uses
// it to recover the customer email when the payload carries only a
// placeholder address.
func (c *RazorpayClient) FetchPaymentLink(ctx context.Context, paymentLinkID string) (*PaymentLink, error) {
	id := strings.TrimSpace(paymentLinkID)
	if id == "" {
		return nil, errors.New("payment link id is required")
	}
	if strings.TrimSpace(c.KeyID) == "" || strings.TrimSpace(c.KeySecret) == "" {
		return nil, errors.New("RAZORPAY_KEY_ID/RAZORPAY_KEY_SECRET are not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL("/payment_links/"+url.PathEscape(id)), nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.KeyID, c.KeySecret)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("razorpay payment link fetch failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var out PaymentLink
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.ID) == "" {
		return nil, errors.New("razorpay payment link response missing id")
	}
	return &out, nil
}

func (c *RazorpayClient) apiURL(path string) string {
	return strings.TrimRight(c.APIBaseURL, "/") + path
}

package billing

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// EventPaymentLinkPaid is the only event type that grants entitlements. Every
// other type is acknowledged and dropped so the provider stops retrying.
const EventPaymentLinkPaid = "payment_link.paid"

// placeholderEmailDomain marks addresses Razorpay synthesizes when the payer
// never typed an email at checkout. They carry no customer identity.
const placeholderEmailDomain = "razorpay.com"

// ErrMalformedPayload reports a webhook body that is not valid JSON.
var ErrMalformedPayload = errors.New("malformed webhook payload")

// PaymentLinkEvent is the decoded shape of a payment link webhook delivery.
// Fields the pipeline never reads are left out; unknown JSON keys are ignored.
type PaymentLinkEvent struct {
	Event     string       `json:"event"`
	AccountID string       `json:"account_id"`
	CreatedAt int64        `json:"created_at"`
	Payload   eventPayload `json:"payload"`
}

type eventPayload struct {
	Payment     *paymentEnvelope     `json:"payment"`
	PaymentLink *paymentLinkEnvelope `json:"payment_link"`
}

type paymentEnvelope struct {
	Entity paymentEntity `json:"entity"`
}

type paymentEntity struct {
	ID      string `json:"id"`
	Amount  *int64 `json:"amount"`
	Email   string `json:"email"`
	Contact string `json:"contact"`
	Status  string `json:"status"`
	Method  string `json:"method"`
}

type paymentLinkEnvelope struct {
	Entity paymentLinkEntity `json:"entity"`
}

type paymentLinkEntity struct {
	ID          string              `json:"id"`
	Amount      int64               `json:"amount"`
	ReferenceID string              `json:"reference_id"`
	Status      string              `json:"status"`
	Email       string              `json:"email"`
	Customer    PaymentLinkCustomer `json:"customer"`
}

// PaymentIdentity carries everything classification needs from one delivery.
// Amount is a pointer because a missing amount and a zero amount are
// different facts: only the payment entity amount counts, never the link
// amount, which can exceed the amount actually captured.
type PaymentIdentity struct {
	Email       string
	Amount      *int64
	PaymentID   string
	LinkID      string
	ReferenceID string
}

// ParseWebhookEvent decodes a raw webhook body. Callers verify the signature
// before parsing; a decode failure here means the provider sent something
// that is not JSON at all.
func ParseWebhookEvent(payload []byte) (*PaymentLinkEvent, error) {
	var evt PaymentLinkEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return &evt, nil
}

// IsPaymentSuccess reports whether this event type grants anything.
func (e *PaymentLinkEvent) IsPaymentSuccess() bool {
	return e.Event == EventPaymentLinkPaid
}

// OccurredAt returns the provider-side event time, falling back to the given
// instant when the payload carries no usable timestamp.
func (e *PaymentLinkEvent) OccurredAt(fallback time.Time) time.Time {
	if e.CreatedAt > 0 {
		return time.Unix(e.CreatedAt, 0).UTC()
	}
	return fallback
}

// ExtractIdentity pulls the customer identity out of the payload. Email
// sources are tried in trust order: the payment entity (what the payer typed
// at checkout), then the link customer, then the legacy top-level link email.
// The first non-empty value wins even if it is a placeholder; trust is
// decided separately so a placeholder hit still triggers the remote resolve.
func (e *PaymentLinkEvent) ExtractIdentity() PaymentIdentity {
	var identity PaymentIdentity
	var candidates []string

	if p := e.Payload.Payment; p != nil {
		identity.PaymentID = strings.TrimSpace(p.Entity.ID)
		identity.Amount = p.Entity.Amount
		candidates = append(candidates, p.Entity.Email)
	}
	if pl := e.Payload.PaymentLink; pl != nil {
		identity.LinkID = strings.TrimSpace(pl.Entity.ID)
		identity.ReferenceID = strings.TrimSpace(pl.Entity.ReferenceID)
		candidates = append(candidates, pl.Entity.Customer.Email, pl.Entity.Email)
	}

	for _, c := range candidates {
		if email := NormalizeEmail(c); email != "" {
			identity.Email = email
			break
		}
	}
	return identity
}

// Trustworthy reports whether the email identifies a real customer. Anything
// under the processor's own domain is a synthesized placeholder.
func (p PaymentIdentity) Trustworthy() bool {
	return p.Email != "" && !strings.Contains(p.Email, placeholderEmailDomain)
}

// NormalizeEmail lowercases and trims an address so storage and lookups hit
// the same row no matter how the customer typed it.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

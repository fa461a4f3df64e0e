package billing

import (
	"errors"

	"github.com/focusgate/focusgate-server/internal/pkg/entitlements"
)

var (
	// ErrUnresolvableIdentity means no trustworthy customer email could be
	// established, locally or through the payment link lookup. Expected with
	// some payload shapes, so callers log it as a warning and acknowledge.
	ErrUnresolvableIdentity = errors.New("no trustworthy customer email")

	// ErrMissingAmount means the payload carried no payment entity amount.
	// The amount is never searched in fallback locations, so without it no
	// tier can be determined.
	ErrMissingAmount = errors.New("payload carries no payment amount")

	// ErrUnknownTier means the amount matches no configured price point.
	// There is no safe default grant, so the event is dropped.
	ErrUnknownTier = errors.New("amount matches no known price point")
)

// ClassifyPayment maps a resolved identity to the tier its amount purchased.
// It refuses rather than guesses: any of the sentinel errors above means the
// delivery is acknowledged without a grant so the provider stops retrying.
func ClassifyPayment(identity PaymentIdentity, pricing entitlements.Pricing) (entitlements.Tier, error) {
	if !identity.Trustworthy() {
		return "", ErrUnresolvableIdentity
	}
	if identity.Amount == nil {
		return "", ErrMissingAmount
	}
	tier, ok := pricing.TierForAmount(*identity.Amount)
	if !ok {
		return "", ErrUnknownTier
	}
	return tier, nil
}

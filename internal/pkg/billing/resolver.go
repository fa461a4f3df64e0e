package billing

import "context"

// PaymentLinkFetcher is the remote lookup used when a webhook arrives without
// a usable customer email. *RazorpayClient satisfies it.
type PaymentLinkFetcher interface {
	FetchPaymentLink(ctx context.Context, paymentLinkID string) (*PaymentLink, error)
}

// IdentityResolver recovers missing customer emails from the payment link
// resource. It is a best-effort step: the webhook was already authenticated,
// so a failed lookup must never fail the delivery.
type IdentityResolver struct {
	links PaymentLinkFetcher
}

func NewIdentityResolver(links PaymentLinkFetcher) *IdentityResolver {
	return &IdentityResolver{links: links}
}

// Resolve returns the identity unchanged when it is already trustworthy or
// when no link id is available to look up. On a successful lookup only the
// email is replaced; amount and payment id always come from the webhook. The
// returned error is informational, the identity is still usable as-is.
func (r *IdentityResolver) Resolve(ctx context.Context, identity PaymentIdentity) (PaymentIdentity, error) {
	if r == nil || r.links == nil {
		return identity, nil
	}
	if identity.Trustworthy() || identity.LinkID == "" {
		return identity, nil
	}

	link, err := r.links.FetchPaymentLink(ctx, identity.LinkID)
	if err != nil {
		return identity, err
	}
	if email := NormalizeEmail(link.Customer.Email); email != "" {
		identity.Email = email
	}
	return identity, nil
}

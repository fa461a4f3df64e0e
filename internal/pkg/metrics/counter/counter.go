package counter

import (
	"context"
	"strconv"

	"github.com/focusgate/focusgate-server/internal/pkg/cache"
)

const (
	webhookOutcomesKey     = "webhook:counters:outcomes"
	paymentLinksCreatedKey = "payment_links:counters:created"
)

// AddWebhookOutcome increments the pending counter for one webhook processing
// outcome in Redis. Counters are operational only; the entitlement tables stay
// the source of truth.
func AddWebhookOutcome(outcome string) error {
	if outcome == "" {
		return nil
	}
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, webhookOutcomesKey, outcome, 1).Err()
}

// AddPaymentLinkCreated increments the created-links counter for a tier.
func AddPaymentLinkCreated(tier string) error {
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, paymentLinksCreatedKey, tier, 1).Err()
}

// WebhookOutcomes returns a snapshot of all webhook outcome counters.
func WebhookOutcomes() (map[string]int64, error) {
	return snapshot(webhookOutcomesKey)
}

// PaymentLinksCreated returns a snapshot of the created-links counters.
func PaymentLinksCreated() (map[string]int64, error) {
	return snapshot(paymentLinksCreatedKey)
}

func snapshot(redisKey string) (map[string]int64, error) {
	ctx := context.Background()
	data, err := cache.GetClient().HGetAll(ctx, redisKey).Result()
	if err != nil {
		return nil, err
	}

	out := make(map[string]int64, len(data))
	for field, raw := range data {
		n, perr := strconv.ParseInt(raw, 10, 64)
		if perr != nil {
			continue
		}
		out[field] = n
	}
	return out, nil
}

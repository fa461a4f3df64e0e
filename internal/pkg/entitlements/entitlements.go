package entitlements

import (
	"time"

	"github.com/focusgate/focusgate-server/internal/pkg/env"
)

// Tier names the entitlement a completed payment grants.
type Tier string

const (
	// TierStandard is the 30-day premium window.
	TierStandard Tier = "standard"
	// TierEmergency is a single-use unlock, consumed on demand.
	TierEmergency Tier = "emergency"
)

// Pricing maps exact payment amounts (in paise) to tiers. Amounts that match
// no price point classify as nothing; there is no range or fuzzy matching.
type Pricing struct {
	StandardPaise  int64
	EmergencyPaise int64
	WindowDays     int
}

// PricingFromEnv reads the configured price points. Defaults match the
// production checkout pages: 9900 paise standard, 2900 paise emergency,
// 30-day window.
func PricingFromEnv() Pricing {
	return Pricing{
		StandardPaise:  env.GetEnvInt64("PREMIUM_PRICE_PAISE", 9900),
		EmergencyPaise: env.GetEnvInt64("EMERGENCY_PRICE_PAISE", 2900),
		WindowDays:     env.GetEnvInt("PREMIUM_DURATION_DAYS", 30),
	}
}

// TierForAmount resolves an amount to its tier. The standard price wins if
// both points are configured to the same value.
func (p Pricing) TierForAmount(amount int64) (Tier, bool) {
	switch amount {
	case p.StandardPaise:
		return TierStandard, true
	case p.EmergencyPaise:
		return TierEmergency, true
	}
	return "", false
}

// Window returns the validity duration of the standard tier.
func (p Pricing) Window() time.Duration {
	return time.Duration(p.WindowDays) * 24 * time.Hour
}

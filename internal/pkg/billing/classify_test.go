package billing

import (
	"errors"
	"testing"

	"github.com/focusgate/focusgate-server/internal/pkg/entitlements"
)

func TestClassifyPayment(t *testing.T) {
	pricing := entitlements.Pricing{StandardPaise: 9900, EmergencyPaise: 2900, WindowDays: 30}
	amount := func(v int64) *int64 { return &v }

	tests := []struct {
		name     string
		identity PaymentIdentity
		wantTier entitlements.Tier
		wantErr  error
	}{
		{
			name:     "standard price point",
			identity: PaymentIdentity{Email: "buyer@example.com", Amount: amount(9900)},
			wantTier: entitlements.TierStandard,
		},
		{
			name:     "emergency price point",
			identity: PaymentIdentity{Email: "buyer@example.com", Amount: amount(2900)},
			wantTier: entitlements.TierEmergency,
		},
		{
			name:     "empty email",
			identity: PaymentIdentity{Email: "", Amount: amount(9900)},
			wantErr:  ErrUnresolvableIdentity,
		},
		{
			name:     "placeholder email",
			identity: PaymentIdentity{Email: "void@razorpay.com", Amount: amount(9900)},
			wantErr:  ErrUnresolvableIdentity,
		},
		{
			name:     "missing amount",
			identity: PaymentIdentity{Email: "buyer@example.com"},
			wantErr:  ErrMissingAmount,
		},
		{
			name:     "unknown amount",
			identity: PaymentIdentity{Email: "buyer@example.com", Amount: amount(12345)},
			wantErr:  ErrUnknownTier,
		},
		{
			name:     "missing email checked before missing amount",
			identity: PaymentIdentity{},
			wantErr:  ErrUnresolvableIdentity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tier, err := ClassifyPayment(tt.identity, pricing)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ClassifyPayment() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ClassifyPayment() error = %v", err)
			}
			if tier != tt.wantTier {
				t.Fatalf("ClassifyPayment() tier = %q, want %q", tier, tt.wantTier)
			}
		})
	}
}

package constants

// Static route constants. Paths the extension and the payment provider have
// baked in; renaming any of them is a breaking change.
const (
	WebhookRoute                    = "/webhook"
	CheckPaymentStatusRoute         = "/check-payment-status"
	CheckEmergencyStatusRoute       = "/check-emergency-status"
	DeleteEmergencyPaymentRoute     = "/delete-emergency-payment"
	CreatePaymentLinkRoute          = "/create-payment-link"
	CreateEmergencyPaymentLinkRoute = "/create-emergency-payment-link"
	PaymentSuccessRoute             = "/payment-success"
	FeedbackRoute                   = "/feedback"
	AuthRequestOTPRoute             = "/auth/request-otp"
	AuthVerifyOTPRoute              = "/auth/verify-otp"
)

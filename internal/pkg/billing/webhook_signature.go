package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// VerifyRazorpayWebhookSignature checks the X-Razorpay-Signature header
// against the raw request body. Razorpay signs the exact byte stream with
// HMAC-SHA256 and sends the digest as lowercase hex, so the body must not be
// re-serialized before verification. Empty signatures or secrets never pass.
func VerifyRazorpayWebhookSignature(payload []byte, signatureHeader, webhookSecret string) bool {
	sig := strings.TrimSpace(signatureHeader)
	secret := strings.TrimSpace(webhookSecret)
	if sig == "" || secret == "" {
		return false
	}

	decodedSig, err := hex.DecodeString(strings.ToLower(sig))
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), decodedSig)
}

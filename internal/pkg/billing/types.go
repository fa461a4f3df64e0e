package billing

// Outcome summarizes what one webhook delivery did. Outcomes feed the logs
// and the per-outcome counters; only a store failure surfaces as an error so
// the provider retries the delivery.
type Outcome string

const (
	OutcomeGrantedStandard  Outcome = "granted_standard"
	OutcomeGrantedEmergency Outcome = "granted_emergency"
	OutcomeDuplicate        Outcome = "duplicate"
	OutcomeIgnoredEvent     Outcome = "ignored_event"
	OutcomeNoIdentity       Outcome = "no_identity"
	OutcomeNoAmount         Outcome = "no_amount"
	OutcomeUnknownAmount    Outcome = "unknown_amount"
)

// WebhookEventInput is the normalized input for ledger persistence.
type WebhookEventInput struct {
	Provider        string
	ProviderEventID string
	EventType       string
	PayloadJSON     string
}

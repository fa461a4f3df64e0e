package billing

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/focusgate/focusgate-server/app/models"
	"github.com/focusgate/focusgate-server/internal/pkg/entitlements"
)

var testPricing = entitlements.Pricing{StandardPaise: 9900, EmergencyPaise: 2900, WindowDays: 30}

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// fakeRepo mirrors the storage semantics the GORM repository relies on:
// email-unique premium passes, payment-id-unique emergency unlocks with soft
// delete, and a (provider, event id)-unique webhook ledger.
type fakeRepo struct {
	passes  map[string]*models.PremiumPass
	unlocks []*models.EmergencyUnlock
	events  map[string]*models.WebhookEvent

	nextID uint

	upsertErr      error
	appendErr      error
	createEventErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		passes: make(map[string]*models.PremiumPass),
		events: make(map[string]*models.WebhookEvent),
	}
}

func (f *fakeRepo) id() uint {
	f.nextID++
	return f.nextID
}

func (f *fakeRepo) UpsertPremiumPass(pass *models.PremiumPass) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	if existing, ok := f.passes[pass.Email]; ok {
		pass.ID = existing.ID
	} else {
		pass.ID = f.id()
	}
	cp := *pass
	f.passes[pass.Email] = &cp
	return nil
}

func (f *fakeRepo) FindPremiumPass(email string) (*models.PremiumPass, error) {
	if p, ok := f.passes[email]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) AppendEmergencyUnlock(unlock *models.EmergencyUnlock) (bool, error) {
	if f.appendErr != nil {
		return false, f.appendErr
	}
	// Consumed rows still occupy their payment id, like the unique index.
	for _, existing := range f.unlocks {
		if existing.PaymentID == unlock.PaymentID {
			return false, nil
		}
	}
	unlock.ID = f.id()
	cp := *unlock
	f.unlocks = append(f.unlocks, &cp)
	return true, nil
}

func (f *fakeRepo) FindEmergencyUnlock(email string) (*models.EmergencyUnlock, error) {
	for _, u := range f.unlocks {
		if u.Email == email && !u.DeletedAt.Valid {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) ConsumeEmergencyUnlock(email string, amount int64) (*models.EmergencyUnlock, error) {
	for _, u := range f.unlocks {
		if u.Email == email && u.Amount == amount && !u.DeletedAt.Valid {
			u.DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	if f.createEventErr != nil {
		return false, nil, f.createEventErr
	}
	key := event.Provider + "|" + event.ProviderEventID
	if stored, ok := f.events[key]; ok {
		cp := *stored
		return false, &cp, nil
	}
	event.ID = f.id()
	cp := *event
	f.events[key] = &cp
	out := cp
	return true, &out, nil
}

func (f *fakeRepo) MarkWebhookProcessed(id uint, processingError string) error {
	for _, e := range f.events {
		if e.ID == id {
			now := time.Now()
			e.ProcessedAt = &now
			e.ProcessingError = processingError
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeRepo) eventByID(id uint) *models.WebhookEvent {
	for _, e := range f.events {
		if e.ID == id {
			return e
		}
	}
	return nil
}

type fakeArchiver struct {
	archived []string
	err      error
}

func (f *fakeArchiver) ArchiveWebhookPayload(_ context.Context, provider, providerEventID string, _ []byte) error {
	f.archived = append(f.archived, provider+"/"+providerEventID)
	return f.err
}

func newTestService(repo Repository, fetcher PaymentLinkFetcher) *Service {
	svc := NewService(repo, NewIdentityResolver(fetcher), nil, testPricing)
	svc.now = func() time.Time { return testNow }
	return svc
}

func mustParse(t *testing.T, body string) *PaymentLinkEvent {
	t.Helper()
	evt, err := ParseWebhookEvent([]byte(body))
	if err != nil {
		t.Fatalf("ParseWebhookEvent() error = %v", err)
	}
	return evt
}

func process(t *testing.T, svc *Service, body, eventID string) Outcome {
	t.Helper()
	outcome, err := svc.ProcessPaymentEvent(context.Background(), mustParse(t, body), []byte(body), eventID)
	if err != nil {
		t.Fatalf("ProcessPaymentEvent() error = %v", err)
	}
	return outcome
}

const standardPaidBody = `{"event":"payment_link.paid","created_at":1748736000,"payload":{
	"payment":{"entity":{"id":"pay_std1","amount":9900,"email":"buyer@example.com"}},
	"payment_link":{"entity":{"id":"plink_1","reference_id":"ref-1"}}}}`

const emergencyPaidBody = `{"event":"payment_link.paid","created_at":1748736000,"payload":{
	"payment":{"entity":{"id":"pay_em1","amount":2900,"email":"buyer@example.com"}},
	"payment_link":{"entity":{"id":"plink_2"}}}}`

func TestProcessPaymentEventGrantsStandard(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, nil)

	outcome := process(t, svc, standardPaidBody, "evt_1")
	if outcome != OutcomeGrantedStandard {
		t.Fatalf("outcome = %q, want %q", outcome, OutcomeGrantedStandard)
	}

	pass, ok := repo.passes["buyer@example.com"]
	if !ok {
		t.Fatalf("expected a premium pass for buyer@example.com")
	}
	paidAt := time.Unix(1748736000, 0).UTC()
	if !pass.PaidAt.Equal(paidAt) {
		t.Fatalf("PaidAt = %v, want %v", pass.PaidAt, paidAt)
	}
	if want := paidAt.Add(30 * 24 * time.Hour); !pass.ExpiresAt.Equal(want) {
		t.Fatalf("ExpiresAt = %v, want %v", pass.ExpiresAt, want)
	}
	if pass.Amount != 9900 || pass.PaymentID != "pay_std1" || pass.LinkID != "plink_1" {
		t.Fatalf("unexpected pass fields: %+v", pass)
	}
	if len(repo.unlocks) != 0 {
		t.Fatalf("standard payment must not touch emergency unlocks")
	}

	stored := repo.events["razorpay|evt_1"]
	if stored == nil {
		t.Fatalf("expected a ledger row for evt_1")
	}
	if stored.ProcessedAt == nil || stored.ProcessingError != "" {
		t.Fatalf("ledger row not marked processed cleanly: %+v", stored)
	}
}

func TestProcessPaymentEventGrantsEmergency(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, nil)

	outcome := process(t, svc, emergencyPaidBody, "evt_2")
	if outcome != OutcomeGrantedEmergency {
		t.Fatalf("outcome = %q, want %q", outcome, OutcomeGrantedEmergency)
	}
	if len(repo.unlocks) != 1 {
		t.Fatalf("unlocks = %d, want 1", len(repo.unlocks))
	}
	if u := repo.unlocks[0]; u.Email != "buyer@example.com" || u.Amount != 2900 || u.PaymentID != "pay_em1" {
		t.Fatalf("unexpected unlock: %+v", u)
	}
	if len(repo.passes) != 0 {
		t.Fatalf("emergency payment must not touch the timed tier")
	}
}

func TestProcessPaymentEventRedeliverySameEventID(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, nil)

	process(t, svc, emergencyPaidBody, "evt_3")
	outcome := process(t, svc, emergencyPaidBody, "evt_3")
	if outcome != OutcomeDuplicate {
		t.Fatalf("outcome = %q, want %q", outcome, OutcomeDuplicate)
	}
	if len(repo.unlocks) != 1 {
		t.Fatalf("redelivery duplicated the unlock: %d rows", len(repo.unlocks))
	}
}

func TestProcessPaymentEventSamePaymentDifferentEventID(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, nil)

	process(t, svc, emergencyPaidBody, "evt_4a")
	outcome := process(t, svc, emergencyPaidBody, "evt_4b")
	if outcome != OutcomeDuplicate {
		t.Fatalf("outcome = %q, want %q", outcome, OutcomeDuplicate)
	}
	if len(repo.unlocks) != 1 {
		t.Fatalf("same payment under a new event id duplicated the unlock")
	}
}

func TestProcessPaymentEventDistinctPaymentsAppend(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, nil)

	second := strings.ReplaceAll(emergencyPaidBody, "pay_em1", "pay_em2")
	process(t, svc, emergencyPaidBody, "evt_5a")
	process(t, svc, second, "evt_5b")
	if len(repo.unlocks) != 2 {
		t.Fatalf("unlocks = %d, want 2 coexisting one-shot records", len(repo.unlocks))
	}
}

func TestProcessPaymentEventRepaymentResetsWindow(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, nil)

	process(t, svc, standardPaidBody, "evt_6a")

	later := strings.ReplaceAll(standardPaidBody, "1748736000", "1751328000")
	later = strings.ReplaceAll(later, "pay_std1", "pay_std2")
	process(t, svc, later, "evt_6b")

	if len(repo.passes) != 1 {
		t.Fatalf("passes = %d, want exactly one per email", len(repo.passes))
	}
	pass := repo.passes["buyer@example.com"]
	paidAt := time.Unix(1751328000, 0).UTC()
	if want := paidAt.Add(30 * 24 * time.Hour); !pass.ExpiresAt.Equal(want) {
		t.Fatalf("ExpiresAt = %v, want window reset to %v, not stacked", pass.ExpiresAt, want)
	}
	if pass.PaymentID != "pay_std2" {
		t.Fatalf("PaymentID = %q, want latest payment recorded", pass.PaymentID)
	}
}

func TestProcessPaymentEventIgnoresOtherEventTypes(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, nil)

	body := strings.ReplaceAll(standardPaidBody, "payment_link.paid", "payment_link.expired")
	outcome := process(t, svc, body, "evt_7")
	if outcome != OutcomeIgnoredEvent {
		t.Fatalf("outcome = %q, want %q", outcome, OutcomeIgnoredEvent)
	}
	if len(repo.passes) != 0 || len(repo.unlocks) != 0 {
		t.Fatalf("non-success event mutated entitlements")
	}
	if stored := repo.events["razorpay|evt_7"]; stored == nil || stored.ProcessedAt == nil {
		t.Fatalf("ignored event should still be ledgered and marked processed")
	}
}

func TestProcessPaymentEventUnresolvableIdentity(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, nil)

	body := `{"event":"payment_link.paid","payload":{
		"payment":{"entity":{"id":"pay_x","amount":9900,"email":"void@razorpay.com"}}}}`
	outcome := process(t, svc, body, "evt_8")
	if outcome != OutcomeNoIdentity {
		t.Fatalf("outcome = %q, want %q", outcome, OutcomeNoIdentity)
	}
	if len(repo.passes) != 0 || len(repo.unlocks) != 0 {
		t.Fatalf("unresolvable identity must not persist an entitlement")
	}
	stored := repo.events["razorpay|evt_8"]
	if stored == nil || stored.ProcessingError == "" {
		t.Fatalf("expected the skip reason on the ledger row, got %+v", stored)
	}
}

func TestProcessPaymentEventResolvesViaPaymentLink(t *testing.T) {
	repo := newFakeRepo()
	fetcher := &fakeLinkFetcher{link: &PaymentLink{
		ID:       "plink_9",
		Customer: PaymentLinkCustomer{Email: "Recovered@Example.com"},
	}}
	svc := newTestService(repo, fetcher)

	body := `{"event":"payment_link.paid","created_at":1748736000,"payload":{
		"payment":{"entity":{"id":"pay_9","amount":9900,"email":"void@razorpay.com"}},
		"payment_link":{"entity":{"id":"plink_9"}}}}`
	outcome := process(t, svc, body, "evt_9")
	if outcome != OutcomeGrantedStandard {
		t.Fatalf("outcome = %q, want %q", outcome, OutcomeGrantedStandard)
	}
	if _, ok := repo.passes["recovered@example.com"]; !ok {
		t.Fatalf("expected pass under the remotely resolved email, have %v", repo.passes)
	}
	if _, ok := repo.passes["void@razorpay.com"]; ok {
		t.Fatalf("placeholder email must never receive a grant")
	}
}

func TestProcessPaymentEventResolverFailureDegrades(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeLinkFetcher{err: errors.New("api down")})

	body := `{"event":"payment_link.paid","payload":{
		"payment":{"entity":{"id":"pay_10","amount":9900,"email":""}},
		"payment_link":{"entity":{"id":"plink_10"}}}}`
	outcome := process(t, svc, body, "evt_10")
	if outcome != OutcomeNoIdentity {
		t.Fatalf("outcome = %q, want acknowledged skip, not an error", outcome)
	}
	if len(repo.passes) != 0 {
		t.Fatalf("degraded identity must not be persisted")
	}
}

func TestProcessPaymentEventUnknownAmount(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, nil)

	body := strings.ReplaceAll(standardPaidBody, "9900", "5000")
	outcome := process(t, svc, body, "evt_11")
	if outcome != OutcomeUnknownAmount {
		t.Fatalf("outcome = %q, want %q", outcome, OutcomeUnknownAmount)
	}
	if len(repo.passes) != 0 || len(repo.unlocks) != 0 {
		t.Fatalf("unknown amount must be a store no-op")
	}
	// The payload is still retained for audit.
	if stored := repo.events["razorpay|evt_11"]; stored == nil || stored.PayloadJSON != body {
		t.Fatalf("expected raw payload retained on the ledger row")
	}
}

func TestProcessPaymentEventMissingAmount(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, nil)

	body := `{"event":"payment_link.paid","payload":{
		"payment":{"entity":{"id":"pay_12","email":"buyer@example.com"}}}}`
	outcome := process(t, svc, body, "evt_12")
	if outcome != OutcomeNoAmount {
		t.Fatalf("outcome = %q, want %q", outcome, OutcomeNoAmount)
	}
	if len(repo.passes) != 0 {
		t.Fatalf("missing amount must not grant")
	}
}

func TestProcessPaymentEventLedgerFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.createEventErr = errors.New("db down")
	svc := newTestService(repo, nil)

	_, err := svc.ProcessPaymentEvent(context.Background(), mustParse(t, standardPaidBody), []byte(standardPaidBody), "evt_13")
	if err == nil {
		t.Fatalf("expected store failure to surface for retry")
	}
}

func TestProcessPaymentEventGrantFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.upsertErr = errors.New("db down")
	svc := newTestService(repo, nil)

	_, err := svc.ProcessPaymentEvent(context.Background(), mustParse(t, standardPaidBody), []byte(standardPaidBody), "evt_14")
	if err == nil {
		t.Fatalf("expected grant failure to surface for retry")
	}
}

func TestProcessPaymentEventHashFallbackEventID(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, nil)

	outcome := process(t, svc, standardPaidBody, "")
	if outcome != OutcomeGrantedStandard {
		t.Fatalf("outcome = %q, want grant despite missing event id header", outcome)
	}
	var storedID string
	for key := range repo.events {
		storedID = key
	}
	if !strings.Contains(storedID, "|hash:") {
		t.Fatalf("ledger key = %q, want payload-hash fallback id", storedID)
	}

	// A byte-identical redelivery without an event id hits the same hash.
	if outcome := process(t, svc, standardPaidBody, ""); outcome != OutcomeDuplicate {
		t.Fatalf("outcome = %q, want %q", outcome, OutcomeDuplicate)
	}
}

func TestProcessPaymentEventEmergencyWithoutPaymentID(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, nil)

	body := `{"event":"payment_link.paid","payload":{
		"payment":{"entity":{"amount":2900,"email":"buyer@example.com"}},
		"payment_link":{"entity":{"id":"plink_15"}}}}`
	process(t, svc, body, "evt_15")
	if len(repo.unlocks) != 1 {
		t.Fatalf("unlocks = %d, want 1", len(repo.unlocks))
	}
	if !strings.HasPrefix(repo.unlocks[0].PaymentID, "hash:") {
		t.Fatalf("PaymentID = %q, want payload-hash fallback", repo.unlocks[0].PaymentID)
	}
}

func TestProcessPaymentEventArchivesPayload(t *testing.T) {
	repo := newFakeRepo()
	archiver := &fakeArchiver{}
	svc := NewService(repo, NewIdentityResolver(nil), archiver, testPricing)
	svc.now = func() time.Time { return testNow }

	process(t, svc, standardPaidBody, "evt_16")
	if len(archiver.archived) != 1 || archiver.archived[0] != "razorpay/evt_16" {
		t.Fatalf("archived = %v, want one razorpay/evt_16 entry", archiver.archived)
	}

	// Archive failures never fail the delivery.
	archiver.err = errors.New("bucket gone")
	if outcome := process(t, svc, emergencyPaidBody, "evt_17"); outcome != OutcomeGrantedEmergency {
		t.Fatalf("outcome = %q, archive failure must not block the grant", outcome)
	}
}

func TestConsumeEmergencyUnlock(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, nil)

	process(t, svc, emergencyPaidBody, "evt_18")

	deleted, err := svc.ConsumeEmergencyUnlock(context.Background(), " Buyer@Example.com ")
	if err != nil {
		t.Fatalf("ConsumeEmergencyUnlock() error = %v", err)
	}
	if !deleted {
		t.Fatalf("expected unlock to be consumed")
	}

	deleted, err = svc.ConsumeEmergencyUnlock(context.Background(), "buyer@example.com")
	if err != nil {
		t.Fatalf("ConsumeEmergencyUnlock() error = %v", err)
	}
	if deleted {
		t.Fatalf("second consume must report not found")
	}
}

func TestConsumeEmergencyUnlockOldestFirst(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, nil)

	second := strings.ReplaceAll(emergencyPaidBody, "pay_em1", "pay_em2")
	process(t, svc, emergencyPaidBody, "evt_19a")
	process(t, svc, second, "evt_19b")

	if _, err := svc.ConsumeEmergencyUnlock(context.Background(), "buyer@example.com"); err != nil {
		t.Fatalf("ConsumeEmergencyUnlock() error = %v", err)
	}
	if !repo.unlocks[0].DeletedAt.Valid || repo.unlocks[1].DeletedAt.Valid {
		t.Fatalf("expected the oldest unlock consumed first")
	}
}

func TestConsumeEmergencyUnlockRequiresEmail(t *testing.T) {
	svc := newTestService(newFakeRepo(), nil)
	if _, err := svc.ConsumeEmergencyUnlock(context.Background(), "   "); err == nil {
		t.Fatalf("expected error for empty email")
	}
}

func TestConsumedPaymentIDStaysReserved(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, nil)

	process(t, svc, emergencyPaidBody, "evt_20a")
	if _, err := svc.ConsumeEmergencyUnlock(context.Background(), "buyer@example.com"); err != nil {
		t.Fatalf("ConsumeEmergencyUnlock() error = %v", err)
	}

	// A late redelivery of the consumed payment must not resurrect it.
	if outcome := process(t, svc, emergencyPaidBody, "evt_20b"); outcome != OutcomeDuplicate {
		t.Fatalf("outcome = %q, want %q", outcome, OutcomeDuplicate)
	}
	active := 0
	for _, u := range repo.unlocks {
		if !u.DeletedAt.Valid {
			active++
		}
	}
	if active != 0 {
		t.Fatalf("consumed unlock was re-granted on redelivery")
	}
}

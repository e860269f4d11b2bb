package core

import (
	"context"
	"errors"
	"sync"

	"github.com/example/contacts-backend/internal/db"
	"github.com/example/contacts-backend/internal/models"
)

var errBoom = errors.New("boom")

type mockPaymentProvider struct {
	CreateIntentFn func(ctx context.Context, req IntentRequest) (*Intent, error)
	ConfirmFn      func(ctx context.Context, intentID, paymentMethodID string) (models.PaymentOutcome, error)
	GetFn          func(ctx context.Context, intentID string) (models.PaymentOutcome, error)
	ParseWebhookFn func(payload []byte, signature string) (*WebhookEvent, error)

	mu    sync.Mutex
	calls int
}

func (m *mockPaymentProvider) count() {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
}

func (m *mockPaymentProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockPaymentProvider) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	m.count()
	if m.CreateIntentFn != nil {
		return m.CreateIntentFn(ctx, req)
	}
	return &Intent{ID: "pi_test", ClientSecret: "pi_test_secret", Status: models.PaymentStatusPending}, nil
}

func (m *mockPaymentProvider) Confirm(ctx context.Context, intentID, paymentMethodID string) (models.PaymentOutcome, error) {
	m.count()
	if m.ConfirmFn != nil {
		return m.ConfirmFn(ctx, intentID, paymentMethodID)
	}
	return models.PaymentOutcome{Status: models.PaymentStatusSucceeded}, nil
}

func (m *mockPaymentProvider) Get(ctx context.Context, intentID string) (models.PaymentOutcome, error) {
	m.count()
	if m.GetFn != nil {
		return m.GetFn(ctx, intentID)
	}
	return models.PaymentOutcome{Status: models.PaymentStatusPending}, nil
}

func (m *mockPaymentProvider) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	if m.ParseWebhookFn != nil {
		return m.ParseWebhookFn(payload, signature)
	}
	return nil, errors.New("not configured")
}

type mockAddressProvider struct {
	AutocompleteFn func(ctx context.Context, input string) ([]models.AddressSuggestion, error)
	GeocodeFn      func(ctx context.Context, placeID string) (*models.GeocodeResult, error)
	calls          int
}

func (m *mockAddressProvider) Autocomplete(ctx context.Context, input string) ([]models.AddressSuggestion, error) {
	m.calls++
	return m.AutocompleteFn(ctx, input)
}

func (m *mockAddressProvider) Geocode(ctx context.Context, placeID string) (*models.GeocodeResult, error) {
	m.calls++
	return m.GeocodeFn(ctx, placeID)
}

type memoryBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newMemoryBlobStore() *memoryBlobStore {
	return &memoryBlobStore{objects: map[string][]byte{}}
}

func (b *memoryBlobStore) Put(_ context.Context, key, _ string, data []byte) (string, error) {
	if b.putErr != nil {
		return "", b.putErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = data
	return "https://files.example.com/" + key, nil
}

func (b *memoryBlobStore) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
	return nil
}

func (b *memoryBlobStore) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.objects)
}

type recordingAudit struct {
	mu      sync.Mutex
	entries []models.AuditLog
}

func (r *recordingAudit) CreateAuditLog(_ context.Context, e models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return nil
}

func (r *recordingAudit) Actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e models.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// countingCredits wraps a CreditService and counts calls. TryDecrementFn
// overrides the decrement when set.
type countingCredits struct {
	CreditService
	TryDecrementFn func(ctx context.Context, userID string) (bool, error)

	mu         sync.Mutex
	reads      int
	decrements int
	increments int
}

func (c *countingCredits) GetBalance(ctx context.Context, userID string) (int64, error) {
	c.mu.Lock()
	c.reads++
	c.mu.Unlock()
	return c.CreditService.GetBalance(ctx, userID)
}

func (c *countingCredits) TryDecrement(ctx context.Context, userID string) (bool, error) {
	c.mu.Lock()
	c.decrements++
	c.mu.Unlock()
	if c.TryDecrementFn != nil {
		return c.TryDecrementFn(ctx, userID)
	}
	return c.CreditService.TryDecrement(ctx, userID)
}

func (c *countingCredits) Increment(ctx context.Context, userID string, amount int64, paymentID string) (bool, int64, error) {
	c.mu.Lock()
	c.increments++
	c.mu.Unlock()
	return c.CreditService.Increment(ctx, userID, amount, paymentID)
}

// unavailableCredits fails every call like a store that cannot be reached.
type unavailableCredits struct{}

func (unavailableCredits) GetBalance(context.Context, string) (int64, error) {
	return 0, storeErr("get balance", errBoom)
}

func (unavailableCredits) TryDecrement(context.Context, string) (bool, error) {
	return false, storeErr("decrement", errBoom)
}

func (unavailableCredits) Increment(context.Context, string, int64, string) (bool, int64, error) {
	return false, 0, storeErr("increment", errBoom)
}

// plainContacts hides CreateWithCredit so the workflow takes the
// insert-then-decrement path.
type plainContacts struct {
	db.ContactRepository
	CreateFn func(ctx context.Context, c *models.Contact) (string, error)
	creates  int
}

func (p *plainContacts) Create(ctx context.Context, c *models.Contact) (string, error) {
	p.creates++
	if p.CreateFn != nil {
		return p.CreateFn(ctx, c)
	}
	return p.ContactRepository.Create(ctx, c)
}

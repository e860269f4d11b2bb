package core

import (
	"context"

	"github.com/example/contacts-backend/internal/models"
)

// UserService manages local user profiles.
type UserService interface {
	// GetOrCreate returns the profile for actor, creating it and the zero
	// credit row on first call. The bool reports whether it was created.
	GetOrCreate(ctx context.Context, actor models.Actor) (*models.User, bool, error)
	GetByID(ctx context.Context, userID string) (*models.User, error)
}

// AuditService defines the interface for audit logging operations.
type AuditService interface {
	CreateAuditLog(ctx context.Context, logEntry models.AuditLog) error
}

// CreditService is the single entry point for balance reads and mutations.
type CreditService interface {
	GetBalance(ctx context.Context, userID string) (int64, error)
	TryDecrement(ctx context.Context, userID string) (bool, error)
	Increment(ctx context.Context, userID string, amount int64, paymentID string) (applied bool, balance int64, err error)
}

// PaymentService turns credit quantities into provider payments and credits
// the user once a payment succeeds.
type PaymentService interface {
	Packages() []models.CreditPackage
	CreatePaymentIntent(ctx context.Context, actor models.Actor, credits int64) (*models.PaymentSession, error)
	Confirm(ctx context.Context, actor models.Actor, paymentID, paymentMethodID string) (*models.PaymentResult, error)
	Refresh(ctx context.Context, actor models.Actor, paymentID string) (*models.PaymentResult, error)
	ListPending(ctx context.Context, actor models.Actor) ([]*models.PaymentSession, error)
	HandleWebhook(ctx context.Context, signature string, payload []byte) error
}

// ContactService serves reads and deletes. Creates and edits go through
// ContactWorkflow.Submit.
type ContactService interface {
	List(ctx context.Context, actor models.Actor) ([]*models.Contact, error)
	Get(ctx context.Context, actor models.Actor, contactID string) (*models.Contact, error)
	Delete(ctx context.Context, actor models.Actor, contactID string) error
}

// Submitter runs the credit-gated create/edit workflow.
type Submitter interface {
	Submit(ctx context.Context, actor models.Actor, req SubmitRequest) (*SubmitResult, error)
}

// AddressService resolves free-text addresses.
type AddressService interface {
	Autocomplete(ctx context.Context, input string) ([]models.AddressSuggestion, error)
	Geocode(ctx context.Context, placeID string) (*models.GeocodeResult, error)
}

// Intent is a payment intent created at the provider.
type Intent struct {
	ID           string
	ClientSecret string
	Status       models.PaymentStatus
}

// IntentRequest describes the amount to collect.
type IntentRequest struct {
	UserID      string
	Email       string
	Credits     int64
	AmountMinor int64
	Currency    string
}

// WebhookEvent is a verified provider notification about an intent.
type WebhookEvent struct {
	Type     string
	IntentID string
	Outcome  models.PaymentOutcome
}

// Webhook event types the payment service acts on.
const (
	WebhookPaymentSucceeded = "payment_intent.succeeded"
	WebhookPaymentFailed    = "payment_intent.payment_failed"
)

// PaymentProvider is the external payment gateway. Declined cards are an
// outcome with Status failed, not an error.
type PaymentProvider interface {
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	Confirm(ctx context.Context, intentID, paymentMethodID string) (models.PaymentOutcome, error)
	Get(ctx context.Context, intentID string) (models.PaymentOutcome, error)
	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)
}

// AddressProvider is the external address lookup.
type AddressProvider interface {
	Autocomplete(ctx context.Context, input string) ([]models.AddressSuggestion, error)
	Geocode(ctx context.Context, placeID string) (*models.GeocodeResult, error)
}

// BlobStore persists uploaded documents.
type BlobStore interface {
	// Put stores data under key and returns a URL the client can fetch.
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, key string) error
}

// EventPublisher emits domain events. Publishing is best effort.
type EventPublisher interface {
	Publish(ctx context.Context, event models.Event) error
}

package db

import (
	"context"
	"errors"

	"github.com/example/contacts-backend/internal/models"
)

var (
	// ErrNotFound is returned when a document or row does not exist, or exists
	// but belongs to another user.
	ErrNotFound = errors.New("document not found")
	// ErrInsufficientCredits is returned by atomic create-with-credit when the
	// balance is below one at commit time.
	ErrInsufficientCredits = errors.New("insufficient credits")
)

// UserRepository defines the interface for user profile storage.
type UserRepository interface {
	GetByID(ctx context.Context, userID string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

// CreditRepository owns the per-user balance. It is the only writer of
// credit rows.
type CreditRepository interface {
	// GetOrCreate returns the balance, inserting a zero row when absent.
	GetOrCreate(ctx context.Context, userID string) (*models.CreditBalance, error)
	// TryDecrement removes one credit if at least one is available. The check
	// and the write happen as one conditional mutation.
	TryDecrement(ctx context.Context, userID string) (bool, error)
	// Increment adds amount credits. With a non-empty paymentID the payment
	// session is marked succeeded and credited in the same write, and a second
	// call for the same payment is a no-op that returns applied=false.
	Increment(ctx context.Context, userID string, amount int64, paymentID string) (applied bool, balance int64, err error)
}

// ContactRepository stores contacts scoped to their owner.
type ContactRepository interface {
	Create(ctx context.Context, contact *models.Contact) (string, error)
	GetByID(ctx context.Context, ownerID, contactID string) (*models.Contact, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*models.Contact, error)
	Update(ctx context.Context, contact *models.Contact) error
	Delete(ctx context.Context, ownerID, contactID string) error
}

// ContactCreditor is implemented by stores that can insert a contact and
// consume one credit of its owner in a single transaction.
type ContactCreditor interface {
	// CreateWithCredit returns ErrInsufficientCredits, without inserting,
	// when the owner's balance is below one.
	CreateWithCredit(ctx context.Context, contact *models.Contact) (id string, balance int64, err error)
}

// PaymentRepository persists payment sessions so a pending payment can be
// resumed.
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.PaymentSession) error
	GetByID(ctx context.Context, paymentID string) (*models.PaymentSession, error)
	// UpdateStatus records a non-crediting status change. It never touches
	// the credited flag.
	UpdateStatus(ctx context.Context, paymentID string, status models.PaymentStatus, reason string) error
	ListPendingByUser(ctx context.Context, userID string) ([]*models.PaymentSession, error)
}

// AuditRepository defines the interface for audit log data storage operations.
type AuditRepository interface {
	Create(ctx context.Context, logEntry models.AuditLog) error
}

// Store bundles the repositories of one backend.
type Store struct {
	Users    UserRepository
	Credits  CreditRepository
	Contacts ContactRepository
	Payments PaymentRepository
	Audit    AuditRepository
	Close    func() error
}

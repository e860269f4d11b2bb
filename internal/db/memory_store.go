package db

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/contacts-backend/internal/models"
)

// memoryState is the shared, mutex-guarded state behind the in-memory
// repositories. Used by STORE_DRIVER=memory and by tests.
type memoryState struct {
	mu       sync.Mutex
	users    map[string]models.User
	credits  map[string]models.CreditBalance
	contacts map[string]models.Contact
	payments map[string]models.PaymentSession
	audit    []models.AuditLog
}

// NewMemoryStore returns a Store whose repositories share one in-memory state.
func NewMemoryStore() *Store {
	s := &memoryState{
		users:    make(map[string]models.User),
		credits:  make(map[string]models.CreditBalance),
		contacts: make(map[string]models.Contact),
		payments: make(map[string]models.PaymentSession),
	}
	return &Store{
		Users:    &memoryUserRepository{s},
		Credits:  &memoryCreditRepository{s},
		Contacts: &memoryContactRepository{s},
		Payments: &memoryPaymentRepository{s},
		Audit:    &memoryAuditRepository{s},
		Close:    func() error { return nil },
	}
}

type memoryUserRepository struct{ s *memoryState }

func (r *memoryUserRepository) GetByID(_ context.Context, userID string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return nil, fmt.Errorf("user with ID '%s' not found: %w", userID, ErrNotFound)
	}
	return &u, nil
}

func (r *memoryUserRepository) Create(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[user.ID]; ok {
		return fmt.Errorf("user with ID '%s' already exists", user.ID)
	}
	r.s.users[user.ID] = *user
	return nil
}

type memoryCreditRepository struct{ s *memoryState }

// balanceLocked returns the balance row, creating it. Caller holds mu.
func (s *memoryState) balanceLocked(userID string) models.CreditBalance {
	b, ok := s.credits[userID]
	if !ok {
		now := time.Now().UTC()
		b = models.CreditBalance{UserID: userID, CreatedAt: now, UpdatedAt: now}
		s.credits[userID] = b
	}
	return b
}

func (r *memoryCreditRepository) GetOrCreate(_ context.Context, userID string) (*models.CreditBalance, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b := r.s.balanceLocked(userID)
	return &b, nil
}

func (r *memoryCreditRepository) TryDecrement(_ context.Context, userID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b := r.s.balanceLocked(userID)
	if b.Credits < 1 {
		return false, nil
	}
	b.Credits--
	b.UpdatedAt = time.Now().UTC()
	r.s.credits[userID] = b
	return true, nil
}

func (r *memoryCreditRepository) Increment(_ context.Context, userID string, amount int64, paymentID string) (bool, int64, error) {
	if amount <= 0 {
		return false, 0, fmt.Errorf("increment amount must be positive, got %d", amount)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := time.Now().UTC()
	if paymentID != "" {
		p, ok := r.s.payments[paymentID]
		if !ok || p.UserID != userID {
			return false, 0, fmt.Errorf("payment '%s': %w", paymentID, ErrNotFound)
		}
		if p.Credited {
			return false, r.s.balanceLocked(userID).Credits, nil
		}
		p.Credited = true
		p.Status = models.PaymentStatusSucceeded
		p.FailureReason = ""
		p.UpdatedAt = now
		r.s.payments[paymentID] = p
	}

	b := r.s.balanceLocked(userID)
	b.Credits += amount
	b.UpdatedAt = now
	r.s.credits[userID] = b
	return true, b.Credits, nil
}

type memoryContactRepository struct{ s *memoryState }

func (r *memoryContactRepository) Create(_ context.Context, contact *models.Contact) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	contact.ID = uuid.NewString()
	r.s.contacts[contact.ID] = *contact
	return contact.ID, nil
}

func (r *memoryContactRepository) CreateWithCredit(_ context.Context, contact *models.Contact) (string, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b := r.s.balanceLocked(contact.CreatedBy)
	if b.Credits < 1 {
		return "", b.Credits, ErrInsufficientCredits
	}
	b.Credits--
	b.UpdatedAt = time.Now().UTC()
	r.s.credits[contact.CreatedBy] = b

	contact.ID = uuid.NewString()
	r.s.contacts[contact.ID] = *contact
	return contact.ID, b.Credits, nil
}

func (r *memoryContactRepository) GetByID(_ context.Context, ownerID, contactID string) (*models.Contact, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.contacts[contactID]
	if !ok || c.CreatedBy != ownerID {
		return nil, fmt.Errorf("contact with ID '%s' not found: %w", contactID, ErrNotFound)
	}
	return &c, nil
}

func (r *memoryContactRepository) ListByOwner(_ context.Context, ownerID string) ([]*models.Contact, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Contact
	for _, c := range r.s.contacts {
		if c.CreatedBy == ownerID {
			c := c
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FirstName != out[j].FirstName {
			return strings.Compare(out[i].FirstName, out[j].FirstName) < 0
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *memoryContactRepository) Update(_ context.Context, contact *models.Contact) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.contacts[contact.ID]
	if !ok || existing.CreatedBy != contact.CreatedBy {
		return fmt.Errorf("contact with ID '%s' not found: %w", contact.ID, ErrNotFound)
	}
	updated := *contact
	updated.CreatedAt = existing.CreatedAt
	r.s.contacts[contact.ID] = updated
	return nil
}

func (r *memoryContactRepository) Delete(_ context.Context, ownerID, contactID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.contacts[contactID]
	if !ok || c.CreatedBy != ownerID {
		return fmt.Errorf("contact with ID '%s' not found for deletion: %w", contactID, ErrNotFound)
	}
	delete(r.s.contacts, contactID)
	return nil
}

type memoryPaymentRepository struct{ s *memoryState }

func (r *memoryPaymentRepository) Create(_ context.Context, payment *models.PaymentSession) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.payments[payment.ID]; ok {
		return fmt.Errorf("payment with ID '%s' already exists", payment.ID)
	}
	r.s.payments[payment.ID] = *payment
	return nil
}

func (r *memoryPaymentRepository) GetByID(_ context.Context, paymentID string) (*models.PaymentSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.payments[paymentID]
	if !ok {
		return nil, fmt.Errorf("payment with ID '%s' not found: %w", paymentID, ErrNotFound)
	}
	return &p, nil
}

func (r *memoryPaymentRepository) UpdateStatus(_ context.Context, paymentID string, status models.PaymentStatus, reason string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.payments[paymentID]
	if !ok {
		return fmt.Errorf("payment with ID '%s' not found: %w", paymentID, ErrNotFound)
	}
	p.Status = status
	p.FailureReason = reason
	p.UpdatedAt = time.Now().UTC()
	r.s.payments[paymentID] = p
	return nil
}

func (r *memoryPaymentRepository) ListPendingByUser(_ context.Context, userID string) ([]*models.PaymentSession, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.PaymentSession
	for _, p := range r.s.payments {
		if p.UserID == userID && p.Status == models.PaymentStatusPending {
			p := p
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type memoryAuditRepository struct{ s *memoryState }

func (r *memoryAuditRepository) Create(_ context.Context, logEntry models.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if logEntry.ID == "" {
		logEntry.ID = uuid.NewString()
	}
	r.s.audit = append(r.s.audit, logEntry)
	return nil
}

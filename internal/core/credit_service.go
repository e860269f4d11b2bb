package core

import (
	"context"
	"fmt"
	"time"

	"github.com/example/contacts-backend/internal/db"
)

// creditService implements the CreditService interface on top of a
// CreditRepository. Every store call is bounded by timeout.
type creditService struct {
	repo    db.CreditRepository
	timeout time.Duration
}

// NewCreditService creates a new CreditService instance.
func NewCreditService(repo db.CreditRepository, timeout time.Duration) CreditService {
	return &creditService{repo: repo, timeout: timeout}
}

// GetBalance returns the user's balance, zero for a user never seen before.
func (s *creditService) GetBalance(ctx context.Context, userID string) (int64, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	balance, err := s.repo.GetOrCreate(ctx, userID)
	if err != nil {
		return 0, storeErr(fmt.Sprintf("read balance of %s", userID), err)
	}
	return balance.Credits, nil
}

// TryDecrement consumes one credit. It returns false, without error, when
// the balance is already zero.
func (s *creditService) TryDecrement(ctx context.Context, userID string) (bool, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	ok, err := s.repo.TryDecrement(ctx, userID)
	if err != nil {
		return false, storeErr(fmt.Sprintf("decrement balance of %s", userID), err)
	}
	return ok, nil
}

// Increment adds amount credits. When paymentID is set the call is
// idempotent per payment.
func (s *creditService) Increment(ctx context.Context, userID string, amount int64, paymentID string) (bool, int64, error) {
	if amount <= 0 {
		return false, 0, fmt.Errorf("%w: got %d", ErrInvalidAmount, amount)
	}
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	applied, balance, err := s.repo.Increment(ctx, userID, amount, paymentID)
	if err != nil {
		return false, 0, storeErr(fmt.Sprintf("increment balance of %s", userID), err)
	}
	return applied, balance, nil
}

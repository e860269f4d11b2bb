package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/example/contacts-backend/internal/models"
)

// firestoreCreditRepository keeps one document per user in the credits
// collection. Every mutation runs inside a transaction so the balance check
// and the write see the same snapshot.
type firestoreCreditRepository struct {
	client *firestore.Client
}

// NewFirestoreCreditRepository creates a new instance of firestoreCreditRepository.
func NewFirestoreCreditRepository(client *firestore.Client) CreditRepository {
	return &firestoreCreditRepository{client: client}
}

// readBalance loads the balance inside tx. A missing document yields a zero
// balance with exists=false.
func readBalance(tx *firestore.Transaction, ref *firestore.DocumentRef) (models.CreditBalance, bool, error) {
	var b models.CreditBalance
	snap, err := tx.Get(ref)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return models.CreditBalance{UserID: ref.ID}, false, nil
		}
		return b, false, fmt.Errorf("failed to read credits for user '%s': %w", ref.ID, err)
	}
	if err := snap.DataTo(&b); err != nil {
		return b, false, fmt.Errorf("failed to decode credits for user '%s': %w", ref.ID, err)
	}
	b.UserID = ref.ID
	return b, true, nil
}

// writeBalance stores b inside tx, creating the document when it did not exist.
func writeBalance(tx *firestore.Transaction, ref *firestore.DocumentRef, b models.CreditBalance, exists bool, now time.Time) error {
	if !exists {
		b.CreatedAt = now
		b.UpdatedAt = now
		return tx.Create(ref, b)
	}
	return tx.Update(ref, []firestore.Update{
		{Path: "credits", Value: b.Credits},
		{Path: "updated_at", Value: now},
	})
}

func (r *firestoreCreditRepository) GetOrCreate(ctx context.Context, userID string) (*models.CreditBalance, error) {
	if userID == "" {
		return nil, errors.New("userID cannot be empty for GetOrCreate operation")
	}
	ref := r.client.Collection(creditsCollection).Doc(userID)

	var out models.CreditBalance
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		b, exists, err := readBalance(tx, ref)
		if err != nil {
			return err
		}
		if !exists {
			now := time.Now().UTC()
			b.CreatedAt, b.UpdatedAt = now, now
			if err := tx.Create(ref, b); err != nil {
				return err
			}
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get or create credits for user '%s': %w", userID, err)
	}
	return &out, nil
}

func (r *firestoreCreditRepository) TryDecrement(ctx context.Context, userID string) (bool, error) {
	ref := r.client.Collection(creditsCollection).Doc(userID)

	var decremented bool
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		decremented = false
		b, exists, err := readBalance(tx, ref)
		if err != nil {
			return err
		}
		if b.Credits < 1 {
			return nil
		}
		b.Credits--
		if err := writeBalance(tx, ref, b, exists, time.Now().UTC()); err != nil {
			return err
		}
		decremented = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to decrement credits for user '%s': %w", userID, err)
	}
	return decremented, nil
}

func (r *firestoreCreditRepository) Increment(ctx context.Context, userID string, amount int64, paymentID string) (bool, int64, error) {
	if amount <= 0 {
		return false, 0, fmt.Errorf("increment amount must be positive, got %d", amount)
	}
	ref := r.client.Collection(creditsCollection).Doc(userID)

	var (
		applied bool
		balance int64
	)
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		applied = false

		var paymentRef *firestore.DocumentRef
		if paymentID != "" {
			paymentRef = r.client.Collection(paymentsCollection).Doc(paymentID)
			snap, err := tx.Get(paymentRef)
			if err != nil {
				if status.Code(err) == codes.NotFound {
					return fmt.Errorf("payment '%s': %w", paymentID, ErrNotFound)
				}
				return err
			}
			var p models.PaymentSession
			if err := snap.DataTo(&p); err != nil {
				return fmt.Errorf("failed to decode payment '%s': %w", paymentID, err)
			}
			if p.UserID != userID {
				return fmt.Errorf("payment '%s': %w", paymentID, ErrNotFound)
			}
			if p.Credited {
				b, _, err := readBalance(tx, ref)
				balance = b.Credits
				return err
			}
		}

		b, exists, err := readBalance(tx, ref)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		b.Credits += amount
		if err := writeBalance(tx, ref, b, exists, now); err != nil {
			return err
		}
		if paymentRef != nil {
			if err := tx.Update(paymentRef, []firestore.Update{
				{Path: "credited", Value: true},
				{Path: "status", Value: string(models.PaymentStatusSucceeded)},
				{Path: "failure_reason", Value: firestore.Delete},
				{Path: "updated_at", Value: now},
			}); err != nil {
				return err
			}
		}
		applied = true
		balance = b.Credits
		return nil
	})
	if err != nil {
		return false, 0, fmt.Errorf("failed to increment credits for user '%s': %w", userID, err)
	}
	return applied, balance, nil
}

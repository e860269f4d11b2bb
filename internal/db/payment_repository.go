package db

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/example/contacts-backend/internal/models"
)

// firestorePaymentRepository stores payment sessions keyed by provider intent ID.
type firestorePaymentRepository struct {
	client *firestore.Client
}

// NewFirestorePaymentRepository creates a new instance of firestorePaymentRepository.
func NewFirestorePaymentRepository(client *firestore.Client) PaymentRepository {
	return &firestorePaymentRepository{client: client}
}

func (r *firestorePaymentRepository) Create(ctx context.Context, payment *models.PaymentSession) error {
	if payment.ID == "" {
		return errors.New("payment ID cannot be empty for Create operation")
	}
	if _, err := r.client.Collection(paymentsCollection).Doc(payment.ID).Create(ctx, payment); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return fmt.Errorf("payment with ID '%s' already exists: %w", payment.ID, err)
		}
		return fmt.Errorf("failed to create payment with ID '%s': %w", payment.ID, err)
	}
	return nil
}

func (r *firestorePaymentRepository) GetByID(ctx context.Context, paymentID string) (*models.PaymentSession, error) {
	if paymentID == "" {
		return nil, errors.New("paymentID cannot be empty for GetByID operation")
	}
	snap, err := r.client.Collection(paymentsCollection).Doc(paymentID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("payment with ID '%s' not found: %w", paymentID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get payment with ID '%s': %w", paymentID, err)
	}
	var p models.PaymentSession
	if err := snap.DataTo(&p); err != nil {
		return nil, fmt.Errorf("failed to decode payment data for ID '%s': %w", paymentID, err)
	}
	p.ID = snap.Ref.ID
	return &p, nil
}

func (r *firestorePaymentRepository) UpdateStatus(ctx context.Context, paymentID string, st models.PaymentStatus, reason string) error {
	updates := []firestore.Update{
		{Path: "status", Value: string(st)},
		{Path: "updated_at", Value: time.Now().UTC()},
	}
	if reason != "" {
		updates = append(updates, firestore.Update{Path: "failure_reason", Value: reason})
	} else {
		updates = append(updates, firestore.Update{Path: "failure_reason", Value: firestore.Delete})
	}
	_, err := r.client.Collection(paymentsCollection).Doc(paymentID).Update(ctx, updates)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("payment with ID '%s' not found: %w", paymentID, ErrNotFound)
		}
		return fmt.Errorf("failed to update payment with ID '%s': %w", paymentID, err)
	}
	return nil
}

// ListPendingByUser returns pending sessions, newest first. Sorting happens
// here so the query needs no composite index.
func (r *firestorePaymentRepository) ListPendingByUser(ctx context.Context, userID string) ([]*models.PaymentSession, error) {
	iter := r.client.Collection(paymentsCollection).
		Where("user_id", "==", userID).
		Where("status", "==", string(models.PaymentStatusPending)).
		Documents(ctx)
	defer iter.Stop()

	var out []*models.PaymentSession
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate payments for user '%s': %w", userID, err)
		}
		var p models.PaymentSession
		if err := doc.DataTo(&p); err != nil {
			return nil, fmt.Errorf("failed to decode payment data for ID '%s': %w", doc.Ref.ID, err)
		}
		p.ID = doc.Ref.ID
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

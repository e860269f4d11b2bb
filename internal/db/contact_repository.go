package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/example/contacts-backend/internal/models"
)

// firestoreContactRepository implements ContactRepository and ContactCreditor
// using Firestore.
type firestoreContactRepository struct {
	client *firestore.Client
}

// NewFirestoreContactRepository creates a new instance of firestoreContactRepository.
func NewFirestoreContactRepository(client *firestore.Client) ContactRepository {
	return &firestoreContactRepository{client: client}
}

// Create adds a contact with an auto-generated ID.
func (r *firestoreContactRepository) Create(ctx context.Context, contact *models.Contact) (string, error) {
	docRef := r.client.Collection(contactsCollection).NewDoc()
	contact.ID = docRef.ID
	if _, err := docRef.Create(ctx, contact); err != nil {
		return "", fmt.Errorf("failed to create contact: %w", err)
	}
	return docRef.ID, nil
}

// CreateWithCredit inserts the contact and consumes one of its owner's
// credits in the same transaction.
func (r *firestoreContactRepository) CreateWithCredit(ctx context.Context, contact *models.Contact) (string, int64, error) {
	creditRef := r.client.Collection(creditsCollection).Doc(contact.CreatedBy)
	docRef := r.client.Collection(contactsCollection).NewDoc()

	var balance int64
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		b, exists, err := readBalance(tx, creditRef)
		if err != nil {
			return err
		}
		balance = b.Credits
		if b.Credits < 1 {
			return ErrInsufficientCredits
		}
		b.Credits--
		if err := writeBalance(tx, creditRef, b, exists, time.Now().UTC()); err != nil {
			return err
		}
		contact.ID = docRef.ID
		if err := tx.Create(docRef, contact); err != nil {
			return err
		}
		balance = b.Credits
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientCredits) {
			return "", balance, ErrInsufficientCredits
		}
		contact.ID = ""
		return "", 0, fmt.Errorf("failed to create contact with credit: %w", err)
	}
	return docRef.ID, balance, nil
}

// GetByID retrieves a contact, treating other owners' contacts as missing.
func (r *firestoreContactRepository) GetByID(ctx context.Context, ownerID, contactID string) (*models.Contact, error) {
	if contactID == "" {
		return nil, errors.New("contactID cannot be empty for GetByID operation")
	}
	docSnap, err := r.client.Collection(contactsCollection).Doc(contactID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("contact with ID '%s' not found: %w", contactID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get contact with ID '%s': %w", contactID, err)
	}
	contact, err := decodeContact(docSnap)
	if err != nil {
		return nil, err
	}
	if contact.CreatedBy != ownerID {
		return nil, fmt.Errorf("contact with ID '%s' not found: %w", contactID, ErrNotFound)
	}
	return contact, nil
}

// ListByOwner returns the owner's contacts ordered by first name.
func (r *firestoreContactRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.Contact, error) {
	if ownerID == "" {
		return nil, errors.New("ownerID cannot be empty for ListByOwner operation")
	}
	iter := r.client.Collection(contactsCollection).
		Where("created_by", "==", ownerID).
		OrderBy("first_name", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var contacts []*models.Contact
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate contacts for owner '%s': %w", ownerID, err)
		}
		contact, err := decodeContact(doc)
		if err != nil {
			zap.L().Warn("Skipping undecodable contact", zap.String("contact_id", doc.Ref.ID), zap.Error(err))
			continue
		}
		contacts = append(contacts, contact)
	}
	return contacts, nil
}

// Update replaces a contact after checking, in the same transaction, that it
// still belongs to contact.CreatedBy.
func (r *firestoreContactRepository) Update(ctx context.Context, contact *models.Contact) error {
	if contact.ID == "" {
		return errors.New("contact ID cannot be empty for Update operation")
	}
	ref := r.client.Collection(contactsCollection).Doc(contact.ID)
	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := checkOwner(tx, ref, contact.CreatedBy); err != nil {
			return err
		}
		return tx.Set(ref, contact)
	})
}

// Delete removes a contact owned by ownerID.
func (r *firestoreContactRepository) Delete(ctx context.Context, ownerID, contactID string) error {
	if contactID == "" {
		return errors.New("contactID cannot be empty for Delete operation")
	}
	ref := r.client.Collection(contactsCollection).Doc(contactID)
	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := checkOwner(tx, ref, ownerID); err != nil {
			return err
		}
		return tx.Delete(ref)
	})
}

func checkOwner(tx *firestore.Transaction, ref *firestore.DocumentRef, ownerID string) error {
	snap, err := tx.Get(ref)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("contact with ID '%s' not found: %w", ref.ID, ErrNotFound)
		}
		return fmt.Errorf("failed to get contact with ID '%s': %w", ref.ID, err)
	}
	owner, err := snap.DataAt("created_by")
	if err != nil || owner != ownerID {
		return fmt.Errorf("contact with ID '%s' not found: %w", ref.ID, ErrNotFound)
	}
	return nil
}

func decodeContact(snap *firestore.DocumentSnapshot) (*models.Contact, error) {
	var contact models.Contact
	if err := snap.DataTo(&contact); err != nil {
		return nil, fmt.Errorf("failed to decode contact data for ID '%s': %w", snap.Ref.ID, err)
	}
	contact.ID = snap.Ref.ID
	return &contact, nil
}

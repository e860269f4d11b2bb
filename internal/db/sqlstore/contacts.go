package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/example/contacts-backend/internal/db"
	"github.com/example/contacts-backend/internal/models"
)

const contactColumns = `id, created_by, first_name, last_name, phone, email, address, postal_code,
	latitude, longitude, note, document_url, document_path, created_at, updated_at`

type contactRepository struct{ s *SQLStore }

func insertContact(ctx context.Context, q querier, c *models.Contact) error {
	_, err := q.ExecContext(ctx,
		"INSERT INTO contacts ("+contactColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		c.ID, c.CreatedBy, c.FirstName, c.LastName, c.Phone,
		nullString(c.Email), nullString(c.Address), nullString(c.PostalCode),
		nullFloat(c.Latitude), nullFloat(c.Longitude), nullString(c.Note),
		nullString(c.DocumentURL), nullString(c.DocumentPath), c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert contact: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanContact(row rowScanner) (*models.Contact, error) {
	var (
		c                                      models.Contact
		email, address, postal, note, url, key sql.NullString
		lat, lng                               sql.NullFloat64
	)
	err := row.Scan(&c.ID, &c.CreatedBy, &c.FirstName, &c.LastName, &c.Phone,
		&email, &address, &postal, &lat, &lng, &note, &url, &key, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.Email = stringPtr(email)
	c.Address = stringPtr(address)
	c.PostalCode = stringPtr(postal)
	c.Latitude = floatPtr(lat)
	c.Longitude = floatPtr(lng)
	c.Note = stringPtr(note)
	c.DocumentURL = stringPtr(url)
	c.DocumentPath = stringPtr(key)
	return &c, nil
}

func (r *contactRepository) Create(ctx context.Context, contact *models.Contact) (string, error) {
	contact.ID = uuid.NewString()
	if err := insertContact(ctx, r.s.db, contact); err != nil {
		contact.ID = ""
		return "", err
	}
	return contact.ID, nil
}

// CreateWithCredit consumes one credit and inserts the contact in one
// transaction.
func (r *contactRepository) CreateWithCredit(ctx context.Context, contact *models.Contact) (string, int64, error) {
	id := uuid.NewString()
	var balance int64
	err := r.s.withTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		if err := r.s.ensureCreditRow(ctx, tx, contact.CreatedBy, now); err != nil {
			return err
		}
		ok, err := decrementOne(ctx, tx, contact.CreatedBy, now)
		if err != nil {
			return err
		}
		if !ok {
			return db.ErrInsufficientCredits
		}
		contact.ID = id
		if err := insertContact(ctx, tx, contact); err != nil {
			return err
		}
		balance, err = readCredits(ctx, tx, contact.CreatedBy)
		return err
	})
	if err != nil {
		contact.ID = ""
		if errors.Is(err, db.ErrInsufficientCredits) {
			current, readErr := readCredits(ctx, r.s.db, contact.CreatedBy)
			if readErr != nil {
				current = 0
			}
			return "", current, db.ErrInsufficientCredits
		}
		return "", 0, err
	}
	return id, balance, nil
}

func (r *contactRepository) GetByID(ctx context.Context, ownerID, contactID string) (*models.Contact, error) {
	row := r.s.db.QueryRowContext(ctx,
		"SELECT "+contactColumns+" FROM contacts WHERE id = ? AND created_by = ?", contactID, ownerID)
	c, err := scanContact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("contact with ID '%s' not found: %w", contactID, db.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contact with ID '%s': %w", contactID, err)
	}
	return c, nil
}

func (r *contactRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.Contact, error) {
	rows, err := r.s.db.QueryContext(ctx,
		"SELECT "+contactColumns+" FROM contacts WHERE created_by = ? ORDER BY first_name ASC, id ASC", ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts for owner '%s': %w", ownerID, err)
	}
	defer rows.Close()

	var out []*models.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contact for owner '%s': %w", ownerID, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *contactRepository) Update(ctx context.Context, c *models.Contact) error {
	res, err := r.s.db.ExecContext(ctx,
		`UPDATE contacts SET first_name = ?, last_name = ?, phone = ?, email = ?, address = ?, postal_code = ?,
			latitude = ?, longitude = ?, note = ?, document_url = ?, document_path = ?, updated_at = ?
		 WHERE id = ? AND created_by = ?`,
		c.FirstName, c.LastName, c.Phone, nullString(c.Email), nullString(c.Address), nullString(c.PostalCode),
		nullFloat(c.Latitude), nullFloat(c.Longitude), nullString(c.Note), nullString(c.DocumentURL),
		nullString(c.DocumentPath), c.UpdatedAt, c.ID, c.CreatedBy)
	if err != nil {
		return fmt.Errorf("failed to update contact with ID '%s': %w", c.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("contact with ID '%s' not found: %w", c.ID, db.ErrNotFound)
	}
	return nil
}

func (r *contactRepository) Delete(ctx context.Context, ownerID, contactID string) error {
	res, err := r.s.db.ExecContext(ctx, "DELETE FROM contacts WHERE id = ? AND created_by = ?", contactID, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete contact with ID '%s': %w", contactID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("contact with ID '%s' not found for deletion: %w", contactID, db.ErrNotFound)
	}
	return nil
}

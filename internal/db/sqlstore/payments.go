package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/contacts-backend/internal/db"
	"github.com/example/contacts-backend/internal/models"
)

const paymentColumns = `id, user_id, email, credits, amount_minor, currency, client_secret, status,
	failure_reason, credited, created_at, updated_at`

type paymentRepository struct{ s *SQLStore }

func scanPayment(row rowScanner) (*models.PaymentSession, error) {
	var (
		p                     models.PaymentSession
		email, secret, reason sql.NullString
		status                string
	)
	err := row.Scan(&p.ID, &p.UserID, &email, &p.Credits, &p.AmountMinor, &p.Currency, &secret,
		&status, &reason, &p.Credited, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Email = email.String
	p.ClientSecret = secret.String
	p.FailureReason = reason.String
	p.Status = models.PaymentStatus(status)
	return &p, nil
}

func (r *paymentRepository) Create(ctx context.Context, p *models.PaymentSession) error {
	_, err := r.s.db.ExecContext(ctx,
		"INSERT INTO payments ("+paymentColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		p.ID, p.UserID, p.Email, p.Credits, p.AmountMinor, p.Currency, p.ClientSecret,
		string(p.Status), sql.NullString{String: p.FailureReason, Valid: p.FailureReason != ""},
		p.Credited, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create payment with ID '%s': %w", p.ID, err)
	}
	return nil
}

func (r *paymentRepository) GetByID(ctx context.Context, paymentID string) (*models.PaymentSession, error) {
	row := r.s.db.QueryRowContext(ctx, "SELECT "+paymentColumns+" FROM payments WHERE id = ?", paymentID)
	p, err := scanPayment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("payment with ID '%s' not found: %w", paymentID, db.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment with ID '%s': %w", paymentID, err)
	}
	return p, nil
}

func (r *paymentRepository) UpdateStatus(ctx context.Context, paymentID string, status models.PaymentStatus, reason string) error {
	res, err := r.s.db.ExecContext(ctx,
		"UPDATE payments SET status = ?, failure_reason = ?, updated_at = ? WHERE id = ?",
		string(status), sql.NullString{String: reason, Valid: reason != ""}, time.Now().UTC(), paymentID)
	if err != nil {
		return fmt.Errorf("failed to update payment with ID '%s': %w", paymentID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("payment with ID '%s' not found: %w", paymentID, db.ErrNotFound)
	}
	return nil
}

func (r *paymentRepository) ListPendingByUser(ctx context.Context, userID string) ([]*models.PaymentSession, error) {
	rows, err := r.s.db.QueryContext(ctx,
		"SELECT "+paymentColumns+" FROM payments WHERE user_id = ? AND status = ? ORDER BY created_at DESC",
		userID, string(models.PaymentStatusPending))
	if err != nil {
		return nil, fmt.Errorf("failed to list payments for user '%s': %w", userID, err)
	}
	defer rows.Close()

	var out []*models.PaymentSession
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment for user '%s': %w", userID, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

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

type creditRepository struct{ s *SQLStore }

// ensureCreditRow inserts a zero balance for userID unless one exists.
func (s *SQLStore) ensureCreditRow(ctx context.Context, q querier, userID string, now time.Time) error {
	_, err := q.ExecContext(ctx,
		s.dialect.insertIgnore+" credits (user_id, credits, created_at, updated_at) VALUES (?, 0, ?, ?)",
		userID, now, now)
	if err != nil {
		return fmt.Errorf("failed to ensure credits row for user '%s': %w", userID, err)
	}
	return nil
}

func readCredits(ctx context.Context, q querier, userID string) (int64, error) {
	var credits int64
	if err := q.QueryRowContext(ctx, "SELECT credits FROM credits WHERE user_id = ?", userID).Scan(&credits); err != nil {
		return 0, fmt.Errorf("failed to read credits for user '%s': %w", userID, err)
	}
	return credits, nil
}

// decrementOne consumes one credit if available and reports whether it did.
func decrementOne(ctx context.Context, q querier, userID string, now time.Time) (bool, error) {
	res, err := q.ExecContext(ctx,
		"UPDATE credits SET credits = credits - 1, updated_at = ? WHERE user_id = ? AND credits >= 1",
		now, userID)
	if err != nil {
		return false, fmt.Errorf("failed to decrement credits for user '%s': %w", userID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *creditRepository) GetOrCreate(ctx context.Context, userID string) (*models.CreditBalance, error) {
	if userID == "" {
		return nil, errors.New("userID cannot be empty for GetOrCreate operation")
	}
	if err := r.s.ensureCreditRow(ctx, r.s.db, userID, time.Now().UTC()); err != nil {
		return nil, err
	}
	b := models.CreditBalance{UserID: userID}
	err := r.s.db.QueryRowContext(ctx,
		"SELECT credits, created_at, updated_at FROM credits WHERE user_id = ?", userID).
		Scan(&b.Credits, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to read credits for user '%s': %w", userID, err)
	}
	return &b, nil
}

func (r *creditRepository) TryDecrement(ctx context.Context, userID string) (bool, error) {
	now := time.Now().UTC()
	if err := r.s.ensureCreditRow(ctx, r.s.db, userID, now); err != nil {
		return false, err
	}
	return decrementOne(ctx, r.s.db, userID, now)
}

func (r *creditRepository) Increment(ctx context.Context, userID string, amount int64, paymentID string) (bool, int64, error) {
	if amount <= 0 {
		return false, 0, fmt.Errorf("increment amount must be positive, got %d", amount)
	}

	var (
		applied bool
		balance int64
	)
	err := r.s.withTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		if paymentID != "" {
			// The conditional update is the idempotency guard: only the
			// first caller flips credited.
			res, err := tx.ExecContext(ctx,
				`UPDATE payments SET credited = ?, status = ?, failure_reason = NULL, updated_at = ?
				 WHERE id = ? AND user_id = ? AND credited = ?`,
				true, string(models.PaymentStatusSucceeded), now, paymentID, userID, false)
			if err != nil {
				return fmt.Errorf("failed to mark payment '%s' credited: %w", paymentID, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if n == 0 {
				var credited bool
				err := tx.QueryRowContext(ctx,
					"SELECT credited FROM payments WHERE id = ? AND user_id = ?", paymentID, userID).Scan(&credited)
				if errors.Is(err, sql.ErrNoRows) {
					return fmt.Errorf("payment '%s': %w", paymentID, db.ErrNotFound)
				}
				if err != nil {
					return err
				}
				if err := r.s.ensureCreditRow(ctx, tx, userID, now); err != nil {
					return err
				}
				balance, err = readCredits(ctx, tx, userID)
				return err
			}
		}

		if err := r.s.ensureCreditRow(ctx, tx, userID, now); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE credits SET credits = credits + ?, updated_at = ? WHERE user_id = ?",
			amount, now, userID); err != nil {
			return fmt.Errorf("failed to increment credits for user '%s': %w", userID, err)
		}
		var err error
		balance, err = readCredits(ctx, tx, userID)
		if err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, 0, err
	}
	return applied, balance, nil
}

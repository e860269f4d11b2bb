package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/example/contacts-backend/internal/db"
	"github.com/example/contacts-backend/internal/models"
)

type userRepository struct{ s *SQLStore }

func (r *userRepository) Create(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		return errors.New("user ID cannot be empty for Create operation")
	}
	_, err := r.s.db.ExecContext(ctx,
		"INSERT INTO users (id, email, display_name, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		u.ID, u.Email, sql.NullString{String: u.DisplayName, Valid: u.DisplayName != ""}, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user with ID '%s': %w", u.ID, err)
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	var (
		u    models.User
		name sql.NullString
	)
	err := r.s.db.QueryRowContext(ctx,
		"SELECT id, email, display_name, created_at, updated_at FROM users WHERE id = ?", userID).
		Scan(&u.ID, &u.Email, &name, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user with ID '%s' not found: %w", userID, db.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user with ID '%s': %w", userID, err)
	}
	u.DisplayName = name.String
	return &u, nil
}

type auditRepository struct{ s *SQLStore }

func (r *auditRepository) Create(ctx context.Context, e models.AuditLog) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	var details sql.NullString
	if len(e.Details) > 0 {
		raw, err := json.Marshal(e.Details)
		if err != nil {
			return fmt.Errorf("failed to encode audit details: %w", err)
		}
		details = sql.NullString{String: string(raw), Valid: true}
	}
	_, err := r.s.db.ExecContext(ctx,
		"INSERT INTO audit_logs (id, user_id, action, target_type, target_id, details, occurred_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		e.ID, e.UserID, e.Action, e.TargetType, e.TargetID, details, e.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

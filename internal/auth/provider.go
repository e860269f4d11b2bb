// Package auth issues and verifies user identities, either through Firebase
// Authentication or through locally signed JWTs.
package auth

import (
	"context"
	"errors"

	"github.com/example/contacts-backend/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

// Identity is the verified subject of a token.
type Identity struct {
	UserID string
	Email  string
}

// Provider is an identity backend.
type Provider interface {
	SignUp(ctx context.Context, email, password string) (*models.AuthSession, error)
	SignIn(ctx context.Context, email, password string) (*models.AuthSession, error)
	// SignOut invalidates every token issued to userID so far.
	SignOut(ctx context.Context, userID string) error
	Verify(ctx context.Context, token string) (*Identity, error)
}

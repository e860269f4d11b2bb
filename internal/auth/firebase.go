package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	firebaseauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/googleapi"
	identitytoolkit "google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"

	"github.com/example/contacts-backend/internal/models"
)

// adminClient is the subset of *firebaseauth.Client used here.
type adminClient interface {
	VerifyIDTokenAndCheckRevoked(ctx context.Context, idToken string) (*firebaseauth.Token, error)
	CreateUser(ctx context.Context, user *firebaseauth.UserToCreate) (*firebaseauth.UserRecord, error)
	RevokeRefreshTokens(ctx context.Context, uid string) error
}

// FirebaseProvider verifies Firebase ID tokens with the Admin SDK and signs
// users in through the Identity Toolkit API.
type FirebaseProvider struct {
	client  adminClient
	toolkit *identitytoolkit.Service
	timeout time.Duration
}

// NewFirebaseProvider creates a provider. apiKey is the project's web API key.
func NewFirebaseProvider(ctx context.Context, client *firebaseauth.Client, apiKey string, timeout time.Duration, opts ...option.ClientOption) (*FirebaseProvider, error) {
	return newFirebaseProvider(ctx, client, apiKey, timeout, opts...)
}

func newFirebaseProvider(ctx context.Context, client adminClient, apiKey string, timeout time.Duration, opts ...option.ClientOption) (*FirebaseProvider, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	toolkit, err := identitytoolkit.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Identity Toolkit client: %w", err)
	}
	return &FirebaseProvider{client: client, toolkit: toolkit, timeout: timeout}, nil
}

func (p *FirebaseProvider) SignUp(ctx context.Context, email, password string) (*models.AuthSession, error) {
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}
	params := (&firebaseauth.UserToCreate{}).Email(strings.TrimSpace(email)).Password(password)
	if _, err := p.client.CreateUser(ctx, params); err != nil {
		if firebaseauth.IsEmailAlreadyExists(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create Firebase user: %w", err)
	}
	return p.SignIn(ctx, email, password)
}

func (p *FirebaseProvider) SignIn(ctx context.Context, email, password string) (*models.AuthSession, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	out, err := p.toolkit.Relyingparty.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             strings.TrimSpace(email),
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && isCredentialError(gerr.Message) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("identity toolkit sign-in failed: %w", err)
	}
	if out.ExpiresIn <= 0 {
		return nil, fmt.Errorf("identity toolkit sign-in returned no token lifetime for %s", out.LocalId)
	}

	return &models.AuthSession{
		UserID:       out.LocalId,
		Email:        out.Email,
		IDToken:      out.IdToken,
		RefreshToken: out.RefreshToken,
		ExpiresAt:    time.Now().UTC().Add(time.Duration(out.ExpiresIn) * time.Second),
	}, nil
}

func isCredentialError(msg string) bool {
	switch strings.SplitN(msg, " ", 2)[0] {
	case "INVALID_LOGIN_CREDENTIALS", "EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_EMAIL", "USER_DISABLED":
		return true
	}
	return false
}

func (p *FirebaseProvider) SignOut(ctx context.Context, userID string) error {
	if err := p.client.RevokeRefreshTokens(ctx, userID); err != nil {
		return fmt.Errorf("failed to revoke tokens for %s: %w", userID, err)
	}
	return nil
}

func (p *FirebaseProvider) Verify(ctx context.Context, token string) (*Identity, error) {
	t, err := p.client.VerifyIDTokenAndCheckRevoked(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	email, _ := t.Claims["email"].(string)
	return &Identity{UserID: t.UID, Email: email}, nil
}

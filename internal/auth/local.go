package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/contacts-backend/internal/models"
)

type localAccount struct {
	userID       string
	email        string
	passwordHash []byte
	generation   int64
}

// localClaims carries the token generation. SignOut bumps the generation so
// older tokens stop verifying.
type localClaims struct {
	Email      string `json:"email"`
	Generation int64  `json:"gen"`
	jwt.RegisteredClaims
}

// LocalProvider keeps accounts in memory and signs HS256 tokens. It is
// meant for development and tests.
type LocalProvider struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time

	mu      sync.RWMutex
	byEmail map[string]*localAccount
	byID    map[string]*localAccount
}

// NewLocalProvider creates a LocalProvider signing with secret.
func NewLocalProvider(secret string, ttl time.Duration) *LocalProvider {
	return &LocalProvider{
		secret:  []byte(secret),
		ttl:     ttl,
		now:     time.Now,
		byEmail: map[string]*localAccount{},
		byID:    map[string]*localAccount{},
	}
}

func (p *LocalProvider) SignUp(_ context.Context, email, password string) (*models.AuthSession, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	p.mu.Lock()
	if _, exists := p.byEmail[email]; exists {
		p.mu.Unlock()
		return nil, ErrEmailTaken
	}
	acct := &localAccount{userID: uuid.NewString(), email: email, passwordHash: hash}
	p.byEmail[email] = acct
	p.byID[acct.userID] = acct
	p.mu.Unlock()

	return p.issue(acct.userID, acct.email, 0)
}

func (p *LocalProvider) SignIn(_ context.Context, email, password string) (*models.AuthSession, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	p.mu.RLock()
	acct, ok := p.byEmail[email]
	var (
		userID string
		hash   []byte
		gen    int64
	)
	if ok {
		userID, hash, gen = acct.userID, acct.passwordHash, acct.generation
	}
	p.mu.RUnlock()
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return p.issue(userID, email, gen)
}

func (p *LocalProvider) SignOut(_ context.Context, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	acct, ok := p.byID[userID]
	if !ok {
		return ErrInvalidToken
	}
	acct.generation++
	return nil
}

func (p *LocalProvider) Verify(_ context.Context, token string) (*Identity, error) {
	claims := &localClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return p.secret, nil
	}, jwt.WithTimeFunc(p.now), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	p.mu.RLock()
	acct, ok := p.byID[claims.Subject]
	valid := ok && acct.generation == claims.Generation
	p.mu.RUnlock()
	if !valid {
		return nil, fmt.Errorf("%w: token revoked", ErrInvalidToken)
	}
	return &Identity{UserID: claims.Subject, Email: claims.Email}, nil
}

func (p *LocalProvider) issue(userID, email string, gen int64) (*models.AuthSession, error) {
	now := p.now()
	exp := now.Add(p.ttl)
	claims := localClaims{
		Email:      email,
		Generation: gen,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return &models.AuthSession{UserID: userID, Email: email, IDToken: signed, ExpiresAt: exp}, nil
}

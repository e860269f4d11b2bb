package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/contacts-backend/internal/db"
	"github.com/example/contacts-backend/internal/models"
)

// userService implements the UserService interface.
type userService struct {
	userRepo db.UserRepository
	credits  CreditService
	timeout  time.Duration
}

// NewUserService creates a new UserService instance. The credit service is
// used to create the zero balance row alongside a new profile.
func NewUserService(userRepo db.UserRepository, credits CreditService, timeout time.Duration) UserService {
	return &userService{
		userRepo: userRepo,
		credits:  credits,
		timeout:  timeout,
	}
}

// GetOrCreate retrieves a user by ID. If the user doesn't exist, it creates a new one.
// Returns the user, a boolean indicating if the user was created, and an error if any.
func (s *userService) GetOrCreate(ctx context.Context, actor models.Actor) (*models.User, bool, error) {
	if actor.UserID == "" {
		return nil, false, fieldError("user_id", "User ID is required")
	}
	tctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	user, err := s.userRepo.GetByID(tctx, actor.UserID)
	created := false
	switch {
	case errors.Is(err, db.ErrNotFound):
		now := time.Now().UTC()
		user = &models.User{
			ID:        actor.UserID,
			Email:     actor.Email,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.userRepo.Create(tctx, user); err != nil {
			return nil, false, storeErr(fmt.Sprintf("create user %s", actor.UserID), err)
		}
		created = true
	case err != nil:
		return nil, false, storeErr(fmt.Sprintf("get user %s", actor.UserID), err)
	}

	// Reading the balance inserts the zero row when it is missing.
	if _, err := s.credits.GetBalance(ctx, actor.UserID); err != nil {
		return nil, false, err
	}
	return user, created, nil
}

// GetByID retrieves a user by their ID.
func (s *userService) GetByID(ctx context.Context, userID string) (*models.User, error) {
	tctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	user, err := s.userRepo.GetByID(tctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: user with ID '%s'", ErrUserNotFound, userID)
		}
		return nil, storeErr(fmt.Sprintf("get user %s", userID), err)
	}
	return user, nil
}

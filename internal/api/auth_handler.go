package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/contacts-backend/internal/auth"
	"github.com/example/contacts-backend/internal/core"
	"github.com/example/contacts-backend/internal/middleware"
	"github.com/example/contacts-backend/internal/models"
)

// AuthHandler handles sign-up, sign-in, sign-out and profile initialization.
type AuthHandler struct {
	provider    auth.Provider
	userService core.UserService
	credits     core.CreditService
	logger      *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(provider auth.Provider, us core.UserService, cs core.CreditService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{provider: provider, userService: us, credits: cs, logger: logger}
}

// actorFrom reads the identity set by the auth middleware. It writes a 401
// and returns false when none is present.
func actorFrom(c *gin.Context) (models.Actor, bool) {
	userID := c.GetString(middleware.ContextUserID)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "User ID not found in context"})
		return models.Actor{}, false
	}
	return models.Actor{UserID: userID, Email: c.GetString(middleware.ContextUserEmail)}, true
}

// SignUp handles POST /auth/signup.
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req models.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}

	session, err := h.provider.SignUp(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		mapErrorToStatus(c, h.logger, err)
		return
	}
	user, _, err := h.userService.GetOrCreate(c.Request.Context(), models.Actor{UserID: session.UserID, Email: session.Email})
	if err != nil {
		mapErrorToStatus(c, h.logger, err)
		return
	}
	h.logger.Info("User signed up", zap.String("user_id", user.ID))
	c.JSON(http.StatusCreated, gin.H{"session": session, "user": user})
}

// SignIn handles POST /auth/signin.
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req models.SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}
	session, err := h.provider.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		mapErrorToStatus(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// SignOut handles POST /auth/signout. Every token issued so far stops
// verifying.
func (h *AuthHandler) SignOut(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	if err := h.provider.SignOut(c.Request.Context(), actor.UserID); err != nil {
		mapErrorToStatus(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Signed out"})
}

// InitializeUserProfile handles POST /users/initialize. It is called after
// a client-side sign-in to make sure the profile and credit row exist.
func (h *AuthHandler) InitializeUserProfile(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	user, created, err := h.userService.GetOrCreate(c.Request.Context(), actor)
	if err != nil {
		mapErrorToStatus(c, h.logger, err)
		return
	}
	balance, err := h.credits.GetBalance(c.Request.Context(), actor.UserID)
	if err != nil {
		mapErrorToStatus(c, h.logger, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, ProfileResponse{User: user, Credits: balance, Created: created})
}

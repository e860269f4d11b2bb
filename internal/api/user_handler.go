package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/contacts-backend/internal/core"
)

// UserHandler serves the caller's profile and balance.
type UserHandler struct {
	userService core.UserService
	credits     core.CreditService
	payments    core.PaymentService
	logger      *zap.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(us core.UserService, cs core.CreditService, ps core.PaymentService, logger *zap.Logger) *UserHandler {
	return &UserHandler{userService: us, credits: cs, payments: ps, logger: logger}
}

// GetCurrentUserProfile handles GET /users/me.
func (h *UserHandler) GetCurrentUserProfile(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	user, err := h.userService.GetByID(c.Request.Context(), actor.UserID)
	if err != nil {
		mapErrorToStatus(c, h.logger, err)
		return
	}
	balance, err := h.credits.GetBalance(c.Request.Context(), actor.UserID)
	if err != nil {
		mapErrorToStatus(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, ProfileResponse{User: user, Credits: balance})
}

// GetBalance handles GET /credits.
func (h *UserHandler) GetBalance(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	balance, err := h.credits.GetBalance(c.Request.Context(), actor.UserID)
	if err != nil {
		mapErrorToStatus(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, BalanceResponse{Credits: balance})
}

// ListPackages handles GET /credits/packages.
func (h *UserHandler) ListPackages(c *gin.Context) {
	c.JSON(http.StatusOK, h.payments.Packages())
}

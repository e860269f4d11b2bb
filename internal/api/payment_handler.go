package api

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/contacts-backend/internal/core"
	"github.com/example/contacts-backend/internal/models"
)

const maxWebhookBytes = 64 << 10

// PaymentHandler handles credit purchases and the Stripe webhook.
type PaymentHandler struct {
	payments core.PaymentService
	logger   *zap.Logger
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(ps core.PaymentService, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{payments: ps, logger: logger}
}

// CreateIntent handles POST /payments/intents.
func (h *PaymentHandler) CreateIntent(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req models.CreatePaymentIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}
	session, err := h.payments.CreatePaymentIntent(c.Request.Context(), actor, req.Credits)
	if err != nil {
		mapErrorToStatus(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

// Confirm handles POST /payments/:paymentId/confirm. A declined card
// answers 402 with the failed session.
func (h *PaymentHandler) Confirm(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req models.ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}
	res, err := h.payments.Confirm(c.Request.Context(), actor, c.Param("paymentId"), req.PaymentMethodID)
	if err != nil {
		mapErrorToStatus(c, h.logger, err)
		return
	}
	c.JSON(paymentStatusCode(res.Payment.Status), res)
}

// Refresh handles POST /payments/:paymentId/refresh.
func (h *PaymentHandler) Refresh(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	res, err := h.payments.Refresh(c.Request.Context(), actor, c.Param("paymentId"))
	if err != nil {
		mapErrorToStatus(c, h.logger, err)
		return
	}
	c.JSON(paymentStatusCode(res.Payment.Status), res)
}

// ListPending handles GET /payments/pending.
func (h *PaymentHandler) ListPending(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	list, err := h.payments.ListPending(c.Request.Context(), actor)
	if err != nil {
		mapErrorToStatus(c, h.logger, err)
		return
	}
	if list == nil {
		list = []*models.PaymentSession{}
	}
	c.JSON(http.StatusOK, list)
}

// HandleStripeWebhook handles POST /payments/webhooks/stripe. It is public;
// the payload is authenticated by its signature.
func (h *PaymentHandler) HandleStripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Failed to read request body"})
		return
	}
	if err := h.payments.HandleWebhook(c.Request.Context(), c.GetHeader("Stripe-Signature"), payload); err != nil {
		mapErrorToStatus(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

func paymentStatusCode(s models.PaymentStatus) int {
	switch s {
	case models.PaymentStatusFailed:
		return http.StatusPaymentRequired
	case models.PaymentStatusPending:
		return http.StatusAccepted
	}
	return http.StatusOK
}

package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/contacts-backend/internal/auth"
	"github.com/example/contacts-backend/internal/core"
)

// errorStatus maps service errors to an HTTP status and response body.
func errorStatus(err error) (int, ErrorResponse) {
	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, ErrorResponse{Error: "Validation failed", Fields: verr.Fields}
	case errors.Is(err, core.ErrValidation):
		return http.StatusBadRequest, ErrorResponse{Error: "Validation failed", Details: err.Error()}
	case errors.Is(err, core.ErrInvalidAmount):
		return http.StatusBadRequest, ErrorResponse{Error: core.ErrInvalidAmount.Error(), Details: err.Error()}
	case errors.Is(err, core.ErrInsufficientCredit):
		return http.StatusPaymentRequired, ErrorResponse{Error: core.ErrInsufficientCredit.Error()}
	case errors.Is(err, core.ErrPaymentFailed):
		return http.StatusPaymentRequired, ErrorResponse{Error: core.ErrPaymentFailed.Error(), Details: err.Error()}
	case errors.Is(err, core.ErrPaymentSetupFailed):
		return http.StatusBadGateway, ErrorResponse{Error: core.ErrPaymentSetupFailed.Error()}
	case errors.Is(err, core.ErrContactNotFound):
		return http.StatusNotFound, ErrorResponse{Error: core.ErrContactNotFound.Error()}
	case errors.Is(err, core.ErrPaymentNotFound):
		return http.StatusNotFound, ErrorResponse{Error: core.ErrPaymentNotFound.Error()}
	case errors.Is(err, core.ErrUserNotFound):
		return http.StatusNotFound, ErrorResponse{Error: core.ErrUserNotFound.Error()}
	case errors.Is(err, core.ErrWebhookSignature):
		return http.StatusBadRequest, ErrorResponse{Error: core.ErrWebhookSignature.Error()}
	case errors.Is(err, core.ErrAddressLookup):
		return http.StatusBadGateway, ErrorResponse{Error: core.ErrAddressLookup.Error()}
	case errors.Is(err, core.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, ErrorResponse{Error: "Service temporarily unavailable"}
	case errors.Is(err, core.ErrPersistence):
		return http.StatusInternalServerError, ErrorResponse{Error: core.ErrPersistence.Error()}
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, ErrorResponse{Error: auth.ErrInvalidCredentials.Error()}
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, ErrorResponse{Error: auth.ErrInvalidToken.Error()}
	case errors.Is(err, auth.ErrEmailTaken):
		return http.StatusConflict, ErrorResponse{Error: auth.ErrEmailTaken.Error()}
	case errors.Is(err, auth.ErrWeakPassword):
		return http.StatusBadRequest, ErrorResponse{Error: auth.ErrWeakPassword.Error()}
	}
	return http.StatusInternalServerError, ErrorResponse{Error: "An unexpected internal server error occurred."}
}

// mapErrorToStatus writes err as a JSON error response. Server-side
// failures are logged.
func mapErrorToStatus(c *gin.Context, logger *zap.Logger, err error) {
	status, body := errorStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}
	_ = c.Error(err)
	c.JSON(status, body)
}

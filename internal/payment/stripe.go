// Package payment adapts Stripe PaymentIntents to core.PaymentProvider.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"

	"github.com/example/contacts-backend/internal/core"
	"github.com/example/contacts-backend/internal/models"
)

// StripeProvider implements core.PaymentProvider.
type StripeProvider struct {
	sc            *client.API
	webhookSecret string
	logger        *zap.Logger
}

// NewStripeProvider creates a provider using secretKey for API calls and
// webhookSecret to verify notifications.
func NewStripeProvider(secretKey, webhookSecret string, logger *zap.Logger) *StripeProvider {
	return newStripeProvider(client.New(secretKey, nil), webhookSecret, logger)
}

func newStripeProvider(sc *client.API, webhookSecret string, logger *zap.Logger) *StripeProvider {
	return &StripeProvider{sc: sc, webhookSecret: webhookSecret, logger: logger}
}

// CreateIntent creates a card PaymentIntent for the requested amount.
func (p *StripeProvider) CreateIntent(ctx context.Context, req core.IntentRequest) (*core.Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(req.AmountMinor),
		Currency:           stripe.String(req.Currency),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	if req.Email != "" {
		params.ReceiptEmail = stripe.String(req.Email)
	}
	params.Context = ctx
	params.AddMetadata("user_id", req.UserID)
	params.AddMetadata("credits", strconv.FormatInt(req.Credits, 10))

	pi, err := p.sc.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create payment intent: %w", err)
	}
	return &core.Intent{ID: pi.ID, ClientSecret: pi.ClientSecret, Status: outcomeOf(pi).Status}, nil
}

// Confirm charges paymentMethodID. Card errors are returned as a failed
// outcome carrying the decline code.
func (p *StripeProvider) Confirm(ctx context.Context, intentID, paymentMethodID string) (models.PaymentOutcome, error) {
	params := &stripe.PaymentIntentConfirmParams{
		PaymentMethod: stripe.String(paymentMethodID),
	}
	params.Context = ctx

	pi, err := p.sc.PaymentIntents.Confirm(intentID, params)
	if err != nil {
		if outcome, ok := cardFailure(err); ok {
			p.logger.Info("Card payment declined", zap.String("payment_id", intentID), zap.String("reason", outcome.Reason))
			return outcome, nil
		}
		return models.PaymentOutcome{}, fmt.Errorf("stripe: confirm payment intent %s: %w", intentID, err)
	}
	return outcomeOf(pi), nil
}

// Get reads the current status of an intent.
func (p *StripeProvider) Get(ctx context.Context, intentID string) (models.PaymentOutcome, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := p.sc.PaymentIntents.Get(intentID, params)
	if err != nil {
		return models.PaymentOutcome{}, fmt.Errorf("stripe: get payment intent %s: %w", intentID, err)
	}
	return outcomeOf(pi), nil
}

// ParseWebhook verifies the Stripe-Signature header and decodes payment
// intent events.
func (p *StripeProvider) ParseWebhook(payload []byte, signature string) (*core.WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, err
	}

	out := &core.WebhookEvent{Type: string(event.Type)}
	if out.Type != core.WebhookPaymentSucceeded && out.Type != core.WebhookPaymentFailed {
		return out, nil
	}
	if event.Data == nil {
		return nil, errors.New("stripe: event without data")
	}
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("stripe: decode payment intent: %w", err)
	}
	out.IntentID = pi.ID
	out.Outcome = outcomeOf(&pi)
	if out.Type == core.WebhookPaymentFailed && out.Outcome.Status != models.PaymentStatusFailed {
		out.Outcome = models.PaymentOutcome{Status: models.PaymentStatusFailed, Reason: "payment_failed"}
	}
	return out, nil
}

func outcomeOf(pi *stripe.PaymentIntent) models.PaymentOutcome {
	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		return models.PaymentOutcome{Status: models.PaymentStatusSucceeded}
	case stripe.PaymentIntentStatusCanceled:
		return models.PaymentOutcome{Status: models.PaymentStatusFailed, Reason: "canceled"}
	case stripe.PaymentIntentStatusRequiresPaymentMethod:
		if pi.LastPaymentError != nil {
			return models.PaymentOutcome{Status: models.PaymentStatusFailed, Reason: declineReason(pi.LastPaymentError)}
		}
	}
	return models.PaymentOutcome{Status: models.PaymentStatusPending}
}

func cardFailure(err error) (models.PaymentOutcome, bool) {
	var se *stripe.Error
	if !errors.As(err, &se) || se.Type != stripe.ErrorTypeCard {
		return models.PaymentOutcome{}, false
	}
	return models.PaymentOutcome{Status: models.PaymentStatusFailed, Reason: declineReason(se)}, true
}

func declineReason(se *stripe.Error) string {
	if se.DeclineCode != "" {
		return string(se.DeclineCode)
	}
	if se.Code != "" {
		return string(se.Code)
	}
	return "payment_failed"
}

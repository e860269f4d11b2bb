package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v76"
	"go.uber.org/zap"

	"github.com/example/contacts-backend/internal/core"
	"github.com/example/contacts-backend/internal/models"
)

const testWebhookSecret = "whsec_test_secret"

func sign(payload []byte, secret string) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestParseWebhook(t *testing.T) {
	p := NewStripeProvider("sk_test_123", testWebhookSecret, zap.NewNop())

	tests := []struct {
		name    string
		payload string
		want    core.WebhookEvent
	}{
		{
			name:    "succeeded",
			payload: `{"id":"evt_1","object":"event","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1","object":"payment_intent","status":"succeeded"}}}`,
			want:    core.WebhookEvent{Type: core.WebhookPaymentSucceeded, IntentID: "pi_1", Outcome: models.PaymentOutcome{Status: models.PaymentStatusSucceeded}},
		},
		{
			name:    "failed with decline code",
			payload: `{"id":"evt_2","object":"event","type":"payment_intent.payment_failed","data":{"object":{"id":"pi_2","object":"payment_intent","status":"requires_payment_method","last_payment_error":{"type":"card_error","code":"card_declined","decline_code":"insufficient_funds"}}}}`,
			want:    core.WebhookEvent{Type: core.WebhookPaymentFailed, IntentID: "pi_2", Outcome: models.PaymentOutcome{Status: models.PaymentStatusFailed, Reason: "insufficient_funds"}},
		},
		{
			name:    "other event",
			payload: `{"id":"evt_3","object":"event","type":"customer.created","data":{"object":{"id":"cus_1","object":"customer"}}}`,
			want:    core.WebhookEvent{Type: "customer.created"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.ParseWebhook([]byte(tt.payload), sign([]byte(tt.payload), testWebhookSecret))
			if err != nil {
				t.Fatalf("ParseWebhook() error = %v", err)
			}
			if *got != tt.want {
				t.Errorf("ParseWebhook() = %+v, want %+v", *got, tt.want)
			}
		})
	}
}

func TestParseWebhookRejectsBadSignature(t *testing.T) {
	p := NewStripeProvider("sk_test_123", testWebhookSecret, zap.NewNop())
	payload := []byte(`{"id":"evt_1","object":"event","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1"}}}`)
	if _, err := p.ParseWebhook(payload, sign(payload, "whsec_other")); err == nil {
		t.Error("ParseWebhook() with wrong secret error = nil, want error")
	}
	if _, err := p.ParseWebhook(payload, ""); err == nil {
		t.Error("ParseWebhook() without signature error = nil, want error")
	}
}

func TestOutcomeOf(t *testing.T) {
	tests := []struct {
		pi   stripe.PaymentIntent
		want models.PaymentOutcome
	}{
		{stripe.PaymentIntent{Status: stripe.PaymentIntentStatusSucceeded}, models.PaymentOutcome{Status: models.PaymentStatusSucceeded}},
		{stripe.PaymentIntent{Status: stripe.PaymentIntentStatusRequiresAction}, models.PaymentOutcome{Status: models.PaymentStatusPending}},
		{stripe.PaymentIntent{Status: stripe.PaymentIntentStatusProcessing}, models.PaymentOutcome{Status: models.PaymentStatusPending}},
		{stripe.PaymentIntent{Status: stripe.PaymentIntentStatusRequiresPaymentMethod}, models.PaymentOutcome{Status: models.PaymentStatusPending}},
		{stripe.PaymentIntent{Status: stripe.PaymentIntentStatusCanceled}, models.PaymentOutcome{Status: models.PaymentStatusFailed, Reason: "canceled"}},
		{
			stripe.PaymentIntent{Status: stripe.PaymentIntentStatusRequiresPaymentMethod, LastPaymentError: &stripe.Error{Code: stripe.ErrorCodeCardDeclined}},
			models.PaymentOutcome{Status: models.PaymentStatusFailed, Reason: "card_declined"},
		},
	}
	for _, tt := range tests {
		if got := outcomeOf(&tt.pi); got != tt.want {
			t.Errorf("outcomeOf(%s) = %+v, want %+v", tt.pi.Status, got, tt.want)
		}
	}
}

func TestCardFailure(t *testing.T) {
	err := &stripe.Error{Type: stripe.ErrorTypeCard, Code: stripe.ErrorCodeCardDeclined, DeclineCode: stripe.DeclineCodeStolenCard}
	got, ok := cardFailure(fmt.Errorf("wrapped: %w", err))
	if !ok || got.Status != models.PaymentStatusFailed || got.Reason != "stolen_card" {
		t.Errorf("cardFailure() = %+v, %v", got, ok)
	}
	if _, ok := cardFailure(&stripe.Error{Type: stripe.ErrorTypeAPI}); ok {
		t.Error("cardFailure() accepted an api_error")
	}
}

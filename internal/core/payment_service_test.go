package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/example/contacts-backend/internal/models"
)

func TestPackagesArePriced(t *testing.T) {
	h := newHarness(t)
	pkgs := h.payments.Packages()
	if len(pkgs) != 4 {
		t.Fatalf("Packages() len = %d, want 4", len(pkgs))
	}
	five := pkgs[1]
	if five.Credits != 5 || five.Amount != "250.00" || five.AmountMinor != 25000 || five.Currency != "eur" {
		t.Errorf("Packages()[1] = %+v", five)
	}
}

func TestCreatePaymentIntentRejectsBadQuantities(t *testing.T) {
	h := newHarness(t)
	for _, n := range []int64{0, -3, 101} {
		if _, err := h.payments.CreatePaymentIntent(context.Background(), testActor, n); !errors.Is(err, ErrPaymentSetupFailed) || !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("CreatePaymentIntent(%d) error = %v", n, err)
		}
	}
	if h.provider.Calls() != 0 {
		t.Errorf("provider calls = %d, want 0", h.provider.Calls())
	}
}

func TestCreatePaymentIntentWithoutMaximum(t *testing.T) {
	h := newHarness(t)
	cfg := testPaymentConfig()
	cfg.MaxCredits = 0
	payments := NewPaymentService(h.provider, h.store.Payments, h.credits, h.audit, h.events, cfg, zap.NewNop())

	_, err := payments.CreatePaymentIntent(context.Background(), testActor, 0)
	if !errors.Is(err, ErrInvalidAmount) || strings.Contains(err.Error(), "between 1 and 0") {
		t.Errorf("CreatePaymentIntent(0) error = %v", err)
	}
	session, err := payments.CreatePaymentIntent(context.Background(), testActor, 500)
	if err != nil || session.AmountMinor != 2500000 {
		t.Errorf("CreatePaymentIntent(500) = %+v, %v", session, err)
	}
}

func TestConfirmIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	session, err := h.payments.CreatePaymentIntent(ctx, testActor, 5)
	if err != nil {
		t.Fatalf("CreatePaymentIntent() error = %v", err)
	}

	for i := 0; i < 2; i++ {
		res, err := h.payments.Confirm(ctx, testActor, session.ID, "pm_card_visa")
		if err != nil {
			t.Fatalf("Confirm() #%d error = %v", i, err)
		}
		if res.Balance != 5 {
			t.Errorf("Confirm() #%d balance = %d, want 5", i, res.Balance)
		}
	}
	if len(h.events.Types()) != 1 {
		t.Errorf("events = %v, want one purchase event", h.events.Types())
	}
}

func TestConfirmOtherUsersPayment(t *testing.T) {
	h := newHarness(t)
	session, err := h.payments.CreatePaymentIntent(context.Background(), testActor, 1)
	if err != nil {
		t.Fatalf("CreatePaymentIntent() error = %v", err)
	}
	_, err = h.payments.Confirm(context.Background(), models.Actor{UserID: "intruder"}, session.ID, "pm_card_visa")
	if !errors.Is(err, ErrPaymentNotFound) {
		t.Errorf("Confirm() error = %v, want ErrPaymentNotFound", err)
	}
}

func TestWebhookCreditsOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.provider.ConfirmFn = func(context.Context, string, string) (models.PaymentOutcome, error) {
		return models.PaymentOutcome{Status: models.PaymentStatusPending}, nil
	}
	session, _ := h.payments.CreatePaymentIntent(ctx, testActor, 10)
	if _, err := h.payments.Confirm(ctx, testActor, session.ID, "pm_3ds"); err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}

	h.provider.ParseWebhookFn = func(_ []byte, sig string) (*WebhookEvent, error) {
		if sig != "good" {
			return nil, errBoom
		}
		return &WebhookEvent{Type: WebhookPaymentSucceeded, IntentID: session.ID, Outcome: models.PaymentOutcome{Status: models.PaymentStatusSucceeded}}, nil
	}
	if err := h.payments.HandleWebhook(ctx, "bad", []byte("{}")); !errors.Is(err, ErrWebhookSignature) {
		t.Errorf("HandleWebhook(bad signature) error = %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := h.payments.HandleWebhook(ctx, "good", []byte("{}")); err != nil {
			t.Fatalf("HandleWebhook() #%d error = %v", i, err)
		}
	}
	if h.balance(t) != 10 {
		t.Errorf("balance = %d, want 10", h.balance(t))
	}
	pending, _ := h.payments.ListPending(ctx, testActor)
	if len(pending) != 0 {
		t.Errorf("pending = %d, want 0", len(pending))
	}
}

func TestWebhookUnknownPaymentIsIgnored(t *testing.T) {
	h := newHarness(t)
	h.provider.ParseWebhookFn = func([]byte, string) (*WebhookEvent, error) {
		return &WebhookEvent{Type: WebhookPaymentSucceeded, IntentID: "pi_elsewhere", Outcome: models.PaymentOutcome{Status: models.PaymentStatusSucceeded}}, nil
	}
	if err := h.payments.HandleWebhook(context.Background(), "sig", nil); err != nil {
		t.Errorf("HandleWebhook() error = %v, want nil", err)
	}
}

func TestCreditIncrementRejectsNonPositive(t *testing.T) {
	h := newHarness(t)
	if _, _, err := h.credits.Increment(context.Background(), "u1", 0, ""); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("Increment(0) error = %v, want ErrInvalidAmount", err)
	}
}

func TestUserGetOrCreateInitializesCredits(t *testing.T) {
	h := newHarness(t)
	users := NewUserService(h.store.Users, h.credits, 0)

	u, created, err := users.GetOrCreate(context.Background(), testActor)
	if err != nil || !created || u.Email != testActor.Email {
		t.Fatalf("GetOrCreate() = %+v, %v, %v", u, created, err)
	}
	_, created, err = users.GetOrCreate(context.Background(), testActor)
	if err != nil || created {
		t.Errorf("second GetOrCreate() created = %v, err = %v", created, err)
	}
	if h.balance(t) != 0 || h.credits.reads != 2 {
		t.Errorf("balance = %d reads = %d", h.balance(t), h.credits.reads)
	}
	if _, err := users.GetByID(context.Background(), "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("GetByID(ghost) error = %v", err)
	}
}

func TestContactServiceDeleteRemovesDocument(t *testing.T) {
	h := newHarness(t)
	h.seed(t, 1)
	res, err := h.workflow().Submit(context.Background(), testActor, SubmitRequest{
		Input:    validInput(),
		Document: &models.Document{Filename: "id.pdf", Content: pdfBytes()},
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	svc := NewContactService(h.store.Contacts, h.deps.Documents, h.audit, 0, zap.NewNop())

	if err := svc.Delete(context.Background(), models.Actor{UserID: "u2"}, res.Contact.ID); !errors.Is(err, ErrContactNotFound) {
		t.Errorf("Delete() by other user error = %v", err)
	}
	if err := svc.Delete(context.Background(), testActor, res.Contact.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if h.blobs.Len() != 0 {
		t.Errorf("blobs = %d, want 0", h.blobs.Len())
	}
	list, err := svc.List(context.Background(), testActor)
	if err != nil || len(list) != 0 {
		t.Errorf("List() = %v, %v, want empty", list, err)
	}
	if h.balance(t) != 0 {
		t.Errorf("balance = %d, delete must not refund", h.balance(t))
	}
}

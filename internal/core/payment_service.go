package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/example/contacts-backend/internal/db"
	"github.com/example/contacts-backend/internal/models"
)

// PaymentConfig prices credits.
type PaymentConfig struct {
	UnitPrice  decimal.Decimal
	Currency   string
	Packages   []int64
	MaxCredits int64
	Timeout    time.Duration
}

// AmountMinor returns the price of credits in minor currency units.
func (c PaymentConfig) AmountMinor(credits int64) int64 {
	return c.amount(credits).Shift(2).Round(0).IntPart()
}

func (c PaymentConfig) amount(credits int64) decimal.Decimal {
	return c.UnitPrice.Mul(decimal.NewFromInt(credits))
}

type paymentService struct {
	provider PaymentProvider
	payments db.PaymentRepository
	credits  CreditService
	audit    AuditService
	events   EventPublisher
	cfg      PaymentConfig
	logger   *zap.Logger
}

// NewPaymentService creates a new PaymentService instance.
func NewPaymentService(
	provider PaymentProvider,
	payments db.PaymentRepository,
	credits CreditService,
	audit AuditService,
	events EventPublisher,
	cfg PaymentConfig,
	logger *zap.Logger,
) PaymentService {
	return &paymentService{
		provider: provider,
		payments: payments,
		credits:  credits,
		audit:    audit,
		events:   events,
		cfg:      cfg,
		logger:   logger,
	}
}

// Packages lists the purchasable bundles with their prices.
func (s *paymentService) Packages() []models.CreditPackage {
	out := make([]models.CreditPackage, 0, len(s.cfg.Packages))
	for _, n := range s.cfg.Packages {
		out = append(out, models.CreditPackage{
			Credits:     n,
			Amount:      s.cfg.amount(n).StringFixed(2),
			AmountMinor: s.cfg.AmountMinor(n),
			Currency:    s.cfg.Currency,
		})
	}
	return out
}

// CreatePaymentIntent opens a provider intent for credits and records it as
// a pending payment session.
func (s *paymentService) CreatePaymentIntent(ctx context.Context, actor models.Actor, credits int64) (*models.PaymentSession, error) {
	if credits <= 0 {
		return nil, fmt.Errorf("%w: %w: credits must be at least 1", ErrPaymentSetupFailed, ErrInvalidAmount)
	}
	if s.cfg.MaxCredits > 0 && credits > s.cfg.MaxCredits {
		return nil, fmt.Errorf("%w: %w: credits must be between 1 and %d", ErrPaymentSetupFailed, ErrInvalidAmount, s.cfg.MaxCredits)
	}
	amount := s.cfg.AmountMinor(credits)

	tctx, cancel := withTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	intent, err := s.provider.CreateIntent(tctx, IntentRequest{
		UserID:      actor.UserID,
		Email:       actor.Email,
		Credits:     credits,
		AmountMinor: amount,
		Currency:    s.cfg.Currency,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPaymentSetupFailed, err)
	}

	now := time.Now().UTC()
	session := &models.PaymentSession{
		ID:           intent.ID,
		UserID:       actor.UserID,
		Email:        actor.Email,
		Credits:      credits,
		AmountMinor:  amount,
		Currency:     s.cfg.Currency,
		ClientSecret: intent.ClientSecret,
		Status:       models.PaymentStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	sctx, scancel := withTimeout(ctx, s.cfg.Timeout)
	defer scancel()
	if err := s.payments.Create(sctx, session); err != nil {
		return nil, storeErr("create payment session", err)
	}
	s.logger.Info("Payment intent created",
		zap.String("payment_id", session.ID),
		zap.String("user_id", actor.UserID),
		zap.Int64("credits", credits),
		zap.Int64("amount_minor", amount))
	return session, nil
}

// Confirm charges the payment method. A declined card is reported through
// the returned session status, not as an error.
func (s *paymentService) Confirm(ctx context.Context, actor models.Actor, paymentID, paymentMethodID string) (*models.PaymentResult, error) {
	if paymentMethodID == "" {
		return nil, fieldError("payment_method_id", "Payment method is required")
	}
	p, err := s.load(ctx, actor, paymentID)
	if err != nil {
		return nil, err
	}
	if p.Credited {
		return s.result(ctx, p)
	}

	tctx, cancel := withTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	outcome, err := s.provider.Confirm(tctx, p.ID, paymentMethodID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPaymentFailed, err)
	}
	return s.applyOutcome(ctx, p, outcome)
}

// Refresh asks the provider for the intent's current status and applies it.
// It lets a client resume a payment that was left pending.
func (s *paymentService) Refresh(ctx context.Context, actor models.Actor, paymentID string) (*models.PaymentResult, error) {
	p, err := s.load(ctx, actor, paymentID)
	if err != nil {
		return nil, err
	}
	if p.Credited {
		return s.result(ctx, p)
	}

	tctx, cancel := withTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	outcome, err := s.provider.Get(tctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPaymentFailed, err)
	}
	return s.applyOutcome(ctx, p, outcome)
}

// ListPending returns the actor's payments that have not settled yet.
func (s *paymentService) ListPending(ctx context.Context, actor models.Actor) ([]*models.PaymentSession, error) {
	tctx, cancel := withTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	list, err := s.payments.ListPendingByUser(tctx, actor.UserID)
	if err != nil {
		return nil, storeErr("list pending payments", err)
	}
	return list, nil
}

// HandleWebhook verifies a provider notification and settles the payment it
// refers to. Unknown intents and event types are acknowledged and ignored.
func (s *paymentService) HandleWebhook(ctx context.Context, signature string, payload []byte) error {
	evt, err := s.provider.ParseWebhook(payload, signature)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWebhookSignature, err)
	}
	if evt.Type != WebhookPaymentSucceeded && evt.Type != WebhookPaymentFailed {
		s.logger.Debug("Ignoring webhook event", zap.String("type", evt.Type))
		return nil
	}

	tctx, cancel := withTimeout(ctx, s.cfg.Timeout)
	p, err := s.payments.GetByID(tctx, evt.IntentID)
	cancel()
	if errors.Is(err, db.ErrNotFound) {
		s.logger.Warn("Webhook for unknown payment", zap.String("payment_id", evt.IntentID), zap.String("type", evt.Type))
		return nil
	}
	if err != nil {
		return storeErr("get payment for webhook", err)
	}
	if p.Credited {
		return nil
	}
	_, err = s.applyOutcome(ctx, p, evt.Outcome)
	return err
}

func (s *paymentService) load(ctx context.Context, actor models.Actor, paymentID string) (*models.PaymentSession, error) {
	tctx, cancel := withTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	p, err := s.payments.GetByID(tctx, paymentID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrPaymentNotFound, paymentID)
	}
	if err != nil {
		return nil, storeErr("get payment", err)
	}
	if p.UserID != actor.UserID {
		return nil, fmt.Errorf("%w: %s", ErrPaymentNotFound, paymentID)
	}
	return p, nil
}

// applyOutcome records what the provider reported. Success adds the credits
// and marks the session credited in one store write.
func (s *paymentService) applyOutcome(ctx context.Context, p *models.PaymentSession, outcome models.PaymentOutcome) (*models.PaymentResult, error) {
	switch outcome.Status {
	case models.PaymentStatusSucceeded:
		applied, balance, err := s.credits.Increment(ctx, p.UserID, p.Credits, p.ID)
		if err != nil {
			s.logger.Error("Payment succeeded but credits were not added",
				zap.String("payment_id", p.ID), zap.String("user_id", p.UserID), zap.Error(err))
			return nil, err
		}
		p.Status = models.PaymentStatusSucceeded
		p.FailureReason = ""
		p.Credited = true
		p.UpdatedAt = time.Now().UTC()
		if applied {
			s.recordPurchase(ctx, p, balance)
		}
		return &models.PaymentResult{Payment: p, Balance: balance}, nil

	case models.PaymentStatusFailed:
		reason := outcome.Reason
		if reason == "" {
			reason = "payment_failed"
		}
		tctx, cancel := withTimeout(ctx, s.cfg.Timeout)
		err := s.payments.UpdateStatus(tctx, p.ID, models.PaymentStatusFailed, reason)
		cancel()
		if err != nil {
			return nil, storeErr("record failed payment", err)
		}
		p.Status = models.PaymentStatusFailed
		p.FailureReason = reason
		p.UpdatedAt = time.Now().UTC()
		s.logger.Info("Payment failed", zap.String("payment_id", p.ID), zap.String("reason", reason))
		return s.result(ctx, p)
	}
	return s.result(ctx, p)
}

func (s *paymentService) result(ctx context.Context, p *models.PaymentSession) (*models.PaymentResult, error) {
	balance, err := s.credits.GetBalance(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	return &models.PaymentResult{Payment: p, Balance: balance}, nil
}

func (s *paymentService) recordPurchase(ctx context.Context, p *models.PaymentSession, balance int64) {
	s.logger.Info("Credits purchased",
		zap.String("payment_id", p.ID),
		zap.String("user_id", p.UserID),
		zap.Int64("credits", p.Credits),
		zap.Int64("balance", balance))

	if err := s.audit.CreateAuditLog(ctx, models.AuditLog{
		UserID:     p.UserID,
		Action:     models.AuditCreditPurchase,
		TargetType: "PAYMENT",
		TargetID:   p.ID,
		Details: map[string]interface{}{
			"credits":      p.Credits,
			"amount_minor": p.AmountMinor,
			"currency":     p.Currency,
			"balance":      balance,
		},
	}); err != nil {
		s.logger.Warn("Failed to write purchase audit log", zap.String("payment_id", p.ID), zap.Error(err))
	}

	if err := s.events.Publish(ctx, models.Event{
		Type:       models.EventCreditsPurchased,
		UserID:     p.UserID,
		Email:      p.Email,
		OccurredAt: time.Now().UTC(),
		Data: map[string]interface{}{
			"payment_id": p.ID,
			"credits":    p.Credits,
			"amount":     decimal.New(p.AmountMinor, -2).StringFixed(2),
			"currency":   p.Currency,
			"balance":    balance,
		},
	}); err != nil {
		s.logger.Warn("Failed to publish purchase event", zap.String("payment_id", p.ID), zap.Error(err))
	}
}

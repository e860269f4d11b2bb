package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/example/contacts-backend/internal/db"
	"github.com/example/contacts-backend/internal/models"
)

// WorkflowState is a step of a contact submission.
type WorkflowState string

const (
	StateIdle               WorkflowState = "idle"
	StateValidating         WorkflowState = "validating"
	StateInsufficientCredit WorkflowState = "insufficient_credit"
	StateAwaitingPayment    WorkflowState = "awaiting_payment"
	StatePaymentConfirmed   WorkflowState = "payment_confirmed"
	StatePersisting         WorkflowState = "persisting"
	StateDone               WorkflowState = "done"
	StateFailed             WorkflowState = "failed"
)

// FailureKind classifies why a submission ended in StateFailed.
type FailureKind string

const (
	FailureValidation         FailureKind = "validation_error"
	FailurePaymentSetup       FailureKind = "payment_setup_failed"
	FailurePayment            FailureKind = "payment_error"
	FailurePersistence        FailureKind = "persistence_error"
	FailureInsufficientCredit FailureKind = "insufficient_credit"
	FailureStoreUnavailable   FailureKind = "store_unavailable"
)

// SubmitRequest is one create or edit. An empty ContactID means create.
type SubmitRequest struct {
	ContactID string
	Input     models.ContactInput
	Document  *models.Document
	// Purchase is used only when a create finds the balance empty.
	Purchase *models.PurchaseRequest
}

// SubmitResult reports where a submission stopped and what it produced.
type SubmitResult struct {
	State              WorkflowState          `json:"state"`
	Failure            FailureKind            `json:"failure,omitempty"`
	Contact            *models.Contact        `json:"contact,omitempty"`
	Payment            *models.PaymentSession `json:"payment,omitempty"`
	Balance            int64                  `json:"balance"` // zero on edits, which never read credits
	CreditInconsistent bool                   `json:"credit_inconsistent,omitempty"`
	Transitions        []WorkflowState        `json:"transitions"`
	Err                error                  `json:"-"`
}

func (r *SubmitResult) to(s WorkflowState) {
	r.State = s
	r.Transitions = append(r.Transitions, s)
}

func (r *SubmitResult) fail(kind FailureKind, err error) (*SubmitResult, error) {
	r.to(StateFailed)
	r.Failure = kind
	r.Err = err
	return r, err
}

// WorkflowDeps are the collaborators of ContactWorkflow. Addresses and
// Documents may be nil.
type WorkflowDeps struct {
	Contacts  db.ContactRepository
	Credits   CreditService
	Payments  PaymentService
	Documents *DocumentService
	Addresses AddressService
	Audit     AuditService
	Events    EventPublisher
	Validator *Validator
	Timeout   time.Duration
	Logger    *zap.Logger
}

// ContactWorkflow gates contact creation on the user's credit balance.
// A create consumes exactly one credit. Edits never touch credits.
type ContactWorkflow struct {
	deps WorkflowDeps
	now  func() time.Time
}

// NewContactWorkflow creates a ContactWorkflow.
func NewContactWorkflow(deps WorkflowDeps) *ContactWorkflow {
	if deps.Validator == nil {
		deps.Validator = NewValidator()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &ContactWorkflow{deps: deps, now: func() time.Time { return time.Now().UTC() }}
}

// Submit runs one submission to a terminal or parking state. The returned
// error is non-nil exactly when the result is StateFailed. StateInsufficientCredit
// and StateAwaitingPayment are parking states with a nil error.
func (w *ContactWorkflow) Submit(ctx context.Context, actor models.Actor, req SubmitRequest) (*SubmitResult, error) {
	res := &SubmitResult{State: StateIdle, Transitions: []WorkflowState{StateIdle}}
	editing := req.ContactID != ""

	res.to(StateValidating)
	input := NormalizeContactInput(req.Input)
	if err := w.validate(input, req, editing); err != nil {
		return res.fail(FailureValidation, err)
	}

	if editing {
		res.to(StatePersisting)
		return w.persistEdit(ctx, actor, req.ContactID, input, req.Document, res)
	}

	balance, err := w.deps.Credits.GetBalance(ctx, actor.UserID)
	if err != nil {
		return res.fail(FailureStoreUnavailable, err)
	}
	res.Balance = balance

	if balance < 1 {
		res.to(StateInsufficientCredit)
		if req.Purchase == nil {
			return res, nil
		}

		res.to(StateAwaitingPayment)
		session, err := w.deps.Payments.CreatePaymentIntent(ctx, actor, req.Purchase.Credits)
		if err != nil {
			return res.fail(FailurePaymentSetup, err)
		}
		res.Payment = session

		pr, err := w.deps.Payments.Confirm(ctx, actor, session.ID, req.Purchase.PaymentMethodID)
		if err != nil {
			return res.fail(FailurePayment, err)
		}
		res.Payment = pr.Payment
		res.Balance = pr.Balance
		switch pr.Payment.Status {
		case models.PaymentStatusFailed:
			return res.fail(FailurePayment, fmt.Errorf("%w: %s", ErrPaymentFailed, pr.Payment.FailureReason))
		case models.PaymentStatusPending:
			return res, nil
		}
		res.to(StatePaymentConfirmed)
	}

	res.to(StatePersisting)
	return w.persistCreate(ctx, actor, input, req.Document, res)
}

func (w *ContactWorkflow) validate(input models.ContactInput, req SubmitRequest, editing bool) error {
	verr := &ValidationError{Fields: map[string]string{}}
	if err := w.deps.Validator.ValidateContact(input); err != nil {
		var fe *ValidationError
		if !errors.As(err, &fe) {
			return err
		}
		for k, v := range fe.Fields {
			verr.Fields[k] = v
		}
	}
	if req.Document != nil {
		if w.deps.Documents == nil {
			verr.Fields["document"] = "Document uploads are not available"
		} else if err := w.deps.Documents.Validate(req.Document); err != nil {
			var fe *ValidationError
			if errors.As(err, &fe) {
				for k, v := range fe.Fields {
					verr.Fields[k] = v
				}
			}
		}
	}
	if !editing && req.Purchase != nil && req.Purchase.PaymentMethodID == "" {
		verr.Fields["payment_method_id"] = "Payment method is required"
	}
	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

func (w *ContactWorkflow) persistCreate(ctx context.Context, actor models.Actor, input models.ContactInput, doc *models.Document, res *SubmitResult) (*SubmitResult, error) {
	now := w.now()
	contact := &models.Contact{CreatedBy: actor.UserID, CreatedAt: now, UpdatedAt: now}
	applyInput(contact, input)
	w.enrichAddress(ctx, input, contact)

	var docKey string
	if doc != nil {
		url, key, err := w.deps.Documents.Store(ctx, actor.UserID, doc)
		if err != nil {
			return res.fail(FailurePersistence, fmt.Errorf("%w: %w", ErrPersistence, err))
		}
		contact.DocumentURL, contact.DocumentPath = &url, &key
		docKey = key
	}

	tctx, cancel := withTimeout(ctx, w.deps.Timeout)
	defer cancel()

	if creditor, ok := w.deps.Contacts.(db.ContactCreditor); ok {
		id, balance, err := creditor.CreateWithCredit(tctx, contact)
		if errors.Is(err, db.ErrInsufficientCredits) {
			w.discardDocument(ctx, docKey)
			res.Balance = 0
			return res.fail(FailureInsufficientCredit, ErrInsufficientCredit)
		}
		if err != nil {
			w.discardDocument(ctx, docKey)
			return res.fail(FailurePersistence, fmt.Errorf("%w: %w", ErrPersistence, err))
		}
		contact.ID = id
		res.Balance = balance
	} else {
		id, err := w.deps.Contacts.Create(tctx, contact)
		if err != nil {
			w.discardDocument(ctx, docKey)
			return res.fail(FailurePersistence, fmt.Errorf("%w: %w", ErrPersistence, err))
		}
		contact.ID = id

		ok, err := w.deps.Credits.TryDecrement(ctx, actor.UserID)
		if err != nil || !ok {
			res.CreditInconsistent = true
			w.reportInconsistency(ctx, actor, contact, err)
		}
		if balance, err := w.deps.Credits.GetBalance(ctx, actor.UserID); err == nil {
			res.Balance = balance
		}
	}

	w.deps.Logger.Info("Contact created",
		zap.String("contact_id", contact.ID),
		zap.String("user_id", actor.UserID),
		zap.Int64("balance", res.Balance))
	w.audit(ctx, actor, models.AuditContactCreate, contact.ID, map[string]interface{}{"balance": res.Balance})
	w.publish(ctx, actor, models.EventContactCreated, map[string]interface{}{
		"contact_id": contact.ID,
		"balance":    res.Balance,
	})

	res.Contact = contact
	res.to(StateDone)
	return res, nil
}

func (w *ContactWorkflow) persistEdit(ctx context.Context, actor models.Actor, contactID string, input models.ContactInput, doc *models.Document, res *SubmitResult) (*SubmitResult, error) {
	gctx, gcancel := withTimeout(ctx, w.deps.Timeout)
	existing, err := w.deps.Contacts.GetByID(gctx, actor.UserID, contactID)
	gcancel()
	if errors.Is(err, db.ErrNotFound) {
		return res.fail(FailurePersistence, fmt.Errorf("%w: %w: %s", ErrPersistence, ErrContactNotFound, contactID))
	}
	if err != nil {
		return res.fail(FailurePersistence, fmt.Errorf("%w: %w", ErrPersistence, err))
	}

	applyInput(existing, input)
	w.enrichAddress(ctx, input, existing)

	var newKey, oldKey string
	if doc != nil {
		url, key, err := w.deps.Documents.Store(ctx, actor.UserID, doc)
		if err != nil {
			return res.fail(FailurePersistence, fmt.Errorf("%w: %w", ErrPersistence, err))
		}
		if existing.DocumentPath != nil {
			oldKey = *existing.DocumentPath
		}
		existing.DocumentURL, existing.DocumentPath = &url, &key
		newKey = key
	}
	existing.UpdatedAt = w.now()

	tctx, cancel := withTimeout(ctx, w.deps.Timeout)
	err = w.deps.Contacts.Update(tctx, existing)
	cancel()
	if err != nil {
		w.discardDocument(ctx, newKey)
		if errors.Is(err, db.ErrNotFound) {
			err = ErrContactNotFound
		}
		return res.fail(FailurePersistence, fmt.Errorf("%w: %w", ErrPersistence, err))
	}
	w.discardDocument(ctx, oldKey)
	w.audit(ctx, actor, models.AuditContactUpdate, existing.ID, nil)

	res.Contact = existing
	res.to(StateDone)
	return res, nil
}

// applyInput copies the editable fields onto c. Document fields are kept.
func applyInput(c *models.Contact, in models.ContactInput) {
	c.FirstName = in.FirstName
	c.LastName = in.LastName
	c.Phone = in.Phone
	c.Email = in.Email
	c.Address = in.Address
	c.PostalCode = in.PostalCode
	c.Latitude = in.Latitude
	c.Longitude = in.Longitude
	c.Note = in.Note
}

// enrichAddress fills coordinates and postal code from the selected place.
// Lookup failures leave the contact as entered.
func (w *ContactWorkflow) enrichAddress(ctx context.Context, in models.ContactInput, c *models.Contact) {
	if in.PlaceID == nil || w.deps.Addresses == nil {
		return
	}
	if c.Latitude != nil && c.Longitude != nil && c.PostalCode != nil {
		return
	}
	geo, err := w.deps.Addresses.Geocode(ctx, *in.PlaceID)
	if err != nil {
		w.deps.Logger.Warn("Geocoding failed, keeping address as entered",
			zap.String("place_id", *in.PlaceID), zap.Error(err))
		return
	}
	if c.Latitude == nil || c.Longitude == nil {
		lat, lng := geo.Latitude, geo.Longitude
		c.Latitude, c.Longitude = &lat, &lng
	}
	if c.PostalCode == nil && geo.PostalCode != "" {
		pc := geo.PostalCode
		c.PostalCode = &pc
	}
	if c.Address == nil && geo.FormattedAddress != "" {
		addr := geo.FormattedAddress
		c.Address = &addr
	}
}

func (w *ContactWorkflow) reportInconsistency(ctx context.Context, actor models.Actor, c *models.Contact, cause error) {
	fields := []zap.Field{zap.String("contact_id", c.ID), zap.String("user_id", actor.UserID)}
	if cause != nil {
		fields = append(fields, zap.Error(cause))
	}
	w.deps.Logger.Error(ErrInconsistentCredit.Error(), fields...)

	details := map[string]interface{}{"contact_id": c.ID}
	if cause != nil {
		details["error"] = cause.Error()
	}
	w.audit(ctx, actor, models.AuditCreditInconsistent, c.ID, details)
	w.publish(ctx, actor, models.EventCreditInconsistent, details)
}

func (w *ContactWorkflow) discardDocument(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := w.deps.Documents.Delete(ctx, key); err != nil {
		w.deps.Logger.Warn("Failed to delete document", zap.String("path", key), zap.Error(err))
	}
}

func (w *ContactWorkflow) audit(ctx context.Context, actor models.Actor, action, contactID string, details map[string]interface{}) {
	if w.deps.Audit == nil {
		return
	}
	if err := w.deps.Audit.CreateAuditLog(ctx, models.AuditLog{
		UserID:     actor.UserID,
		Action:     action,
		TargetType: "CONTACT",
		TargetID:   contactID,
		Details:    details,
	}); err != nil {
		w.deps.Logger.Warn("Failed to write audit log", zap.String("action", action), zap.Error(err))
	}
}

func (w *ContactWorkflow) publish(ctx context.Context, actor models.Actor, eventType string, data map[string]interface{}) {
	if w.deps.Events == nil {
		return
	}
	if err := w.deps.Events.Publish(ctx, models.Event{
		Type:       eventType,
		UserID:     actor.UserID,
		Email:      actor.Email,
		OccurredAt: w.now(),
		Data:       data,
	}); err != nil {
		w.deps.Logger.Warn("Failed to publish event", zap.String("type", eventType), zap.Error(err))
	}
}

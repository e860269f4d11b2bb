package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/contacts-backend/internal/core"
	"github.com/example/contacts-backend/internal/models"
)

// ContactHandler handles the contact endpoints. Creates and updates run
// through the credit-gated workflow.
type ContactHandler struct {
	contacts  core.ContactService
	submitter core.Submitter
	payments  core.PaymentService
	maxUpload int64
	logger    *zap.Logger
}

// NewContactHandler creates a new ContactHandler.
func NewContactHandler(cs core.ContactService, submitter core.Submitter, ps core.PaymentService, maxUpload int64, logger *zap.Logger) *ContactHandler {
	return &ContactHandler{contacts: cs, submitter: submitter, payments: ps, maxUpload: maxUpload, logger: logger}
}

// ListContacts handles GET /contacts.
func (h *ContactHandler) ListContacts(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	list, err := h.contacts.List(c.Request.Context(), actor)
	if err != nil {
		mapErrorToStatus(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toContactResponses(list))
}

// GetContact handles GET /contacts/:contactId.
func (h *ContactHandler) GetContact(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	contact, err := h.contacts.Get(c.Request.Context(), actor, c.Param("contactId"))
	if err != nil {
		mapErrorToStatus(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toContactResponse(contact))
}

// CreateContact handles POST /contacts. The body is JSON or
// multipart/form-data with an optional "document" file.
func (h *ContactHandler) CreateContact(c *gin.Context) {
	h.submit(c, "")
}

// UpdateContact handles PUT /contacts/:contactId.
func (h *ContactHandler) UpdateContact(c *gin.Context) {
	h.submit(c, c.Param("contactId"))
}

// DeleteContact handles DELETE /contacts/:contactId.
func (h *ContactHandler) DeleteContact(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	if err := h.contacts.Delete(c.Request.Context(), actor, c.Param("contactId")); err != nil {
		mapErrorToStatus(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ContactHandler) submit(c *gin.Context, contactID string) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	req, err := h.bindSubmit(c)
	if err != nil {
		mapErrorToStatus(c, h.logger, err)
		return
	}
	req.ContactID = contactID

	res, err := h.submitter.Submit(c.Request.Context(), actor, req)
	h.writeSubmitResult(c, res, err, contactID == "")
}

func (h *ContactHandler) writeSubmitResult(c *gin.Context, res *core.SubmitResult, err error, creating bool) {
	body := SubmitResponse{
		State:              res.State,
		Failure:            res.Failure,
		Payment:            res.Payment,
		CreditInconsistent: res.CreditInconsistent,
		Transitions:        res.Transitions,
	}
	if creating {
		balance := res.Balance
		body.Balance = &balance
	}
	if res.Contact != nil {
		cr := toContactResponse(res.Contact)
		body.Contact = &cr
	}

	status := http.StatusOK
	switch res.State {
	case core.StateDone:
		if creating {
			status = http.StatusCreated
		}
	case core.StateInsufficientCredit:
		status = http.StatusPaymentRequired
		body.Error = core.ErrInsufficientCredit.Error()
		body.Packages = h.payments.Packages()
	case core.StateAwaitingPayment:
		status = http.StatusAccepted
	case core.StateFailed:
		var eb ErrorResponse
		status, eb = errorStatus(err)
		body.Error, body.Details, body.Fields = eb.Error, eb.Details, eb.Fields
		if status >= http.StatusInternalServerError {
			h.logger.Error("Contact submission failed", zap.String("failure", string(res.Failure)), zap.Error(err))
		}
		if res.Failure == core.FailureInsufficientCredit {
			body.Packages = h.payments.Packages()
		}
	}
	c.JSON(status, body)
}

// bindSubmit decodes a JSON or multipart submission.
func (h *ContactHandler) bindSubmit(c *gin.Context) (core.SubmitRequest, error) {
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		var body SubmitContactRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			return core.SubmitRequest{}, fmt.Errorf("%w: %v", core.ErrValidation, err)
		}
		return core.SubmitRequest{Input: body.ContactInput, Purchase: body.Purchase}, nil
	}

	if h.maxUpload > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload+(1<<20))
	}
	var form contactForm
	if err := c.ShouldBind(&form); err != nil {
		return core.SubmitRequest{}, fmt.Errorf("%w: %v", core.ErrValidation, err)
	}
	req, err := form.toRequest()
	if err != nil {
		return core.SubmitRequest{}, err
	}

	fh, err := c.FormFile("document")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		return core.SubmitRequest{}, &core.ValidationError{Fields: map[string]string{"document": "Document could not be read"}}
	default:
		f, err := fh.Open()
		if err != nil {
			return core.SubmitRequest{}, fmt.Errorf("open upload: %w", err)
		}
		defer f.Close()
		content, err := io.ReadAll(f)
		if err != nil {
			return core.SubmitRequest{}, fmt.Errorf("read upload: %w", err)
		}
		req.Document = &models.Document{Filename: fh.Filename, Content: content}
	}
	return req, nil
}

func (f contactForm) toRequest() (core.SubmitRequest, error) {
	in := models.ContactInput{
		FirstName:  f.FirstName,
		LastName:   f.LastName,
		Phone:      f.Phone,
		Email:      optional(f.Email),
		Address:    optional(f.Address),
		PostalCode: optional(f.PostalCode),
		PlaceID:    optional(f.PlaceID),
		Note:       optional(f.Note),
	}
	fields := map[string]string{}
	var err error
	if in.Latitude, err = optionalFloat(f.Latitude); err != nil {
		fields["latitude"] = "Latitude must be a number"
	}
	if in.Longitude, err = optionalFloat(f.Longitude); err != nil {
		fields["longitude"] = "Longitude must be a number"
	}

	req := core.SubmitRequest{Input: in}
	if strings.TrimSpace(f.PurchaseCredits) != "" || f.PaymentMethodID != "" {
		n, err := strconv.ParseInt(strings.TrimSpace(f.PurchaseCredits), 10, 64)
		if err != nil {
			fields["purchase_credits"] = "Credits must be a whole number"
		}
		req.Purchase = &models.PurchaseRequest{Credits: n, PaymentMethodID: f.PaymentMethodID}
	}
	if len(fields) > 0 {
		return core.SubmitRequest{}, &core.ValidationError{Fields: fields}
	}
	return req, nil
}

func optional(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

func optionalFloat(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

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

type contactService struct {
	contacts  db.ContactRepository
	documents *DocumentService
	audit     AuditService
	timeout   time.Duration
	logger    *zap.Logger
}

// NewContactService creates a ContactService.
func NewContactService(contacts db.ContactRepository, documents *DocumentService, audit AuditService, timeout time.Duration, logger *zap.Logger) ContactService {
	return &contactService{
		contacts:  contacts,
		documents: documents,
		audit:     audit,
		timeout:   timeout,
		logger:    logger,
	}
}

// List returns the actor's contacts ordered by first name.
func (s *contactService) List(ctx context.Context, actor models.Actor) ([]*models.Contact, error) {
	tctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	list, err := s.contacts.ListByOwner(tctx, actor.UserID)
	if err != nil {
		return nil, storeErr("list contacts", err)
	}
	if list == nil {
		list = []*models.Contact{}
	}
	return list, nil
}

// Get returns one contact. Contacts of other users are reported as not found.
func (s *contactService) Get(ctx context.Context, actor models.Actor, contactID string) (*models.Contact, error) {
	tctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	c, err := s.contacts.GetByID(tctx, actor.UserID, contactID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrContactNotFound, contactID)
	}
	if err != nil {
		return nil, storeErr("get contact", err)
	}
	return c, nil
}

// Delete removes a contact and its document. Credits are not refunded.
func (s *contactService) Delete(ctx context.Context, actor models.Actor, contactID string) error {
	c, err := s.Get(ctx, actor, contactID)
	if err != nil {
		return err
	}

	tctx, cancel := withTimeout(ctx, s.timeout)
	err = s.contacts.Delete(tctx, actor.UserID, contactID)
	cancel()
	if errors.Is(err, db.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrContactNotFound, contactID)
	}
	if err != nil {
		return storeErr("delete contact", err)
	}

	if c.DocumentPath != nil && s.documents != nil {
		if err := s.documents.Delete(ctx, *c.DocumentPath); err != nil {
			s.logger.Warn("Failed to delete contact document",
				zap.String("contact_id", contactID), zap.String("path", *c.DocumentPath), zap.Error(err))
		}
	}

	if err := s.audit.CreateAuditLog(ctx, models.AuditLog{
		UserID:     actor.UserID,
		Action:     models.AuditContactDelete,
		TargetType: "CONTACT",
		TargetID:   contactID,
	}); err != nil {
		s.logger.Warn("Failed to write delete audit log", zap.String("contact_id", contactID), zap.Error(err))
	}
	return nil
}

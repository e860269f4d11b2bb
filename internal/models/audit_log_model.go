package models

import "time"

// Audit actions.
const (
	AuditContactCreate      = "CONTACT_CREATE"
	AuditContactUpdate      = "CONTACT_UPDATE"
	AuditContactDelete      = "CONTACT_DELETE"
	AuditCreditPurchase     = "CREDIT_PURCHASE"
	AuditCreditConsume      = "CREDIT_CONSUME"
	AuditCreditInconsistent = "CREDIT_INCONSISTENT"
)

// AuditLog represents an audit trail event.
type AuditLog struct {
	ID         string                 `json:"id" firestore:"-"`
	Timestamp  time.Time              `json:"timestamp" firestore:"timestamp"`
	UserID     string                 `json:"user_id" firestore:"user_id"`
	Action     string                 `json:"action" firestore:"action"`
	TargetType string                 `json:"target_type,omitempty" firestore:"target_type,omitempty"` // CONTACT, PAYMENT, CREDIT
	TargetID   string                 `json:"target_id,omitempty" firestore:"target_id,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty" firestore:"details,omitempty"`
}

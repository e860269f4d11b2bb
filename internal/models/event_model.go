package models

import "time"

// Domain event types published on the events queue.
const (
	EventContactCreated     = "contact.created"
	EventCreditsPurchased   = "credits.purchased"
	EventCreditInconsistent = "credit.inconsistent"
)

// Event is the envelope published to the message queue.
type Event struct {
	Type       string                 `json:"type"`
	UserID     string                 `json:"user_id"`
	Email      string                 `json:"email,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
	Data       map[string]interface{} `json:"data,omitempty"`
}

package models

import "time"

// PaymentStatus is the lifecycle state of a payment session.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// PaymentSession is a purchase of credits backed by a provider payment intent.
// The ID is the provider's intent ID. Credited flips to true exactly once,
// in the same store write that adds the credits.
type PaymentSession struct {
	ID            string        `json:"id" firestore:"-"`
	UserID        string        `json:"user_id" firestore:"user_id"`
	Email         string        `json:"email,omitempty" firestore:"email,omitempty"`
	Credits       int64         `json:"credits" firestore:"credits"`
	AmountMinor   int64         `json:"amount_minor" firestore:"amount_minor"`
	Currency      string        `json:"currency" firestore:"currency"`
	ClientSecret  string        `json:"client_secret,omitempty" firestore:"client_secret,omitempty"`
	Status        PaymentStatus `json:"status" firestore:"status"`
	FailureReason string        `json:"failure_reason,omitempty" firestore:"failure_reason,omitempty"`
	Credited      bool          `json:"credited" firestore:"credited"`
	CreatedAt     time.Time     `json:"created_at" firestore:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" firestore:"updated_at"`
}

// PaymentOutcome is what the payment provider reports for an intent.
type PaymentOutcome struct {
	Status PaymentStatus
	Reason string // provider decline code when Status is failed
}

// PaymentResult is returned by confirm and refresh.
type PaymentResult struct {
	Payment *PaymentSession `json:"payment"`
	Balance int64           `json:"balance"`
}

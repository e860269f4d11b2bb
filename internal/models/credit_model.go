package models

import "time"

// CreditBalance is the per-user credit counter. Credits never go below zero.
type CreditBalance struct {
	UserID    string    `json:"user_id" firestore:"-"` // document ID in Firestore
	Credits   int64     `json:"credits" firestore:"credits"`
	CreatedAt time.Time `json:"created_at" firestore:"created_at"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updated_at"`
}

// CreditPackage is a purchasable bundle of credits.
type CreditPackage struct {
	Credits     int64  `json:"credits"`
	Amount      string `json:"amount"` // major units, e.g. "250.00"
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency"`
}

package models

import "time"

// User is the local profile mirroring an identity issued by the auth provider.
type User struct {
	ID          string    `json:"id" firestore:"-"` // auth provider UID, also the document ID
	Email       string    `json:"email" firestore:"email"`
	DisplayName string    `json:"display_name,omitempty" firestore:"display_name,omitempty"`
	CreatedAt   time.Time `json:"created_at" firestore:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" firestore:"updated_at"`
}

// Actor identifies the authenticated caller of a service operation.
// Handlers build it from the verified token and pass it down explicitly.
type Actor struct {
	UserID string
	Email  string
}

// AuthSession is returned by sign-up and sign-in.
type AuthSession struct {
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	IDToken      string    `json:"id_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

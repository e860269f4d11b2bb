package models

import (
	"fmt"
	"regexp"
	"time"
)

// Contact is a person record owned by a single user.
// CreatedBy is set on creation and never changes.
type Contact struct {
	ID           string    `json:"id" firestore:"-"`
	CreatedBy    string    `json:"created_by" firestore:"created_by"`
	FirstName    string    `json:"first_name" firestore:"first_name"`
	LastName     string    `json:"last_name" firestore:"last_name"`
	Phone        string    `json:"phone" firestore:"phone"`
	Email        *string   `json:"email,omitempty" firestore:"email,omitempty"`
	Address      *string   `json:"address,omitempty" firestore:"address,omitempty"`
	PostalCode   *string   `json:"postal_code,omitempty" firestore:"postal_code,omitempty"`
	Latitude     *float64  `json:"latitude,omitempty" firestore:"latitude,omitempty"`
	Longitude    *float64  `json:"longitude,omitempty" firestore:"longitude,omitempty"`
	Note         *string   `json:"note,omitempty" firestore:"note,omitempty"`
	DocumentURL  *string   `json:"document_url,omitempty" firestore:"document_url,omitempty"`
	DocumentPath *string   `json:"-" firestore:"document_path,omitempty"` // blob object key, used for cleanup
	CreatedAt    time.Time `json:"created_at" firestore:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" firestore:"updated_at"`
}

var nonDigits = regexp.MustCompile(`\D`)

// FormattedPhone renders ten-digit numbers as (xxx) xxx-xxxx and returns
// anything else unchanged.
func (c *Contact) FormattedPhone() string {
	digits := nonDigits.ReplaceAllString(c.Phone, "")
	if len(digits) != 10 {
		return c.Phone
	}
	return fmt.Sprintf("(%s) %s-%s", digits[:3], digits[3:6], digits[6:])
}

// Document is an uploaded attachment waiting to be stored alongside a contact.
type Document struct {
	Filename string
	Content  []byte
}

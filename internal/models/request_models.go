package models

// ContactInput carries the user-editable contact fields for create and update.
// Validation tags are evaluated by core.Validator, which registers the
// phone and contact_email rules.
type ContactInput struct {
	FirstName  string   `json:"first_name" form:"first_name" validate:"required,max=100"`
	LastName   string   `json:"last_name" form:"last_name" validate:"required,max=100"`
	Phone      string   `json:"phone" form:"phone" validate:"required,phone"`
	Email      *string  `json:"email,omitempty" form:"email" validate:"omitempty,contact_email"`
	Address    *string  `json:"address,omitempty" form:"address" validate:"omitempty,max=500"`
	PostalCode *string  `json:"postal_code,omitempty" form:"postal_code" validate:"omitempty,max=20"`
	PlaceID    *string  `json:"place_id,omitempty" form:"place_id" validate:"omitempty,max=512"`
	Latitude   *float64 `json:"latitude,omitempty" form:"latitude" validate:"omitempty,latitude"`
	Longitude  *float64 `json:"longitude,omitempty" form:"longitude" validate:"omitempty,longitude"`
	Note       *string  `json:"note,omitempty" form:"note" validate:"omitempty,max=2000"`
}

// PurchaseRequest asks the workflow to buy credits when the balance is empty.
type PurchaseRequest struct {
	Credits         int64  `json:"credits" form:"purchase_credits"`
	PaymentMethodID string `json:"payment_method_id" form:"payment_method_id"`
}

// SignUpRequest is the body of POST /auth/signup.
type SignUpRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// SignInRequest is the body of POST /auth/signin.
type SignInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// CreatePaymentIntentRequest is the body of POST /payments/intents.
type CreatePaymentIntentRequest struct {
	Credits int64 `json:"credits" binding:"required"`
}

// ConfirmPaymentRequest is the body of POST /payments/:id/confirm.
type ConfirmPaymentRequest struct {
	PaymentMethodID string `json:"payment_method_id" binding:"required"`
}

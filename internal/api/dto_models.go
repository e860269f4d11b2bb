package api

import (
	"time"

	"github.com/example/contacts-backend/internal/core"
	"github.com/example/contacts-backend/internal/models"
)

// ErrorResponse is a generic structure for returning errors via API.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"` // per-field validation messages
}

// SuccessResponse is a generic structure for simple success messages.
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// BalanceResponse is returned by GET /credits.
type BalanceResponse struct {
	Credits int64 `json:"credits"`
}

// ProfileResponse is returned by the /users endpoints.
type ProfileResponse struct {
	User    *models.User `json:"user"`
	Credits int64        `json:"credits"`
	Created bool         `json:"created,omitempty"`
}

// ContactResponse adds display fields to a contact.
type ContactResponse struct {
	*models.Contact
	FormattedPhone string `json:"formatted_phone"`
}

func toContactResponse(c *models.Contact) ContactResponse {
	return ContactResponse{Contact: c, FormattedPhone: c.FormattedPhone()}
}

func toContactResponses(list []*models.Contact) []ContactResponse {
	out := make([]ContactResponse, 0, len(list))
	for _, c := range list {
		out = append(out, toContactResponse(c))
	}
	return out
}

// SubmitContactRequest is the JSON body for contact create and update.
// Purchase is honoured on create when the balance is empty.
type SubmitContactRequest struct {
	models.ContactInput
	Purchase *models.PurchaseRequest `json:"purchase,omitempty"`
}

// contactForm is the multipart variant of SubmitContactRequest. Numbers are
// kept as text so blank fields stay unset.
type contactForm struct {
	FirstName       string `form:"first_name"`
	LastName        string `form:"last_name"`
	Phone           string `form:"phone"`
	Email           string `form:"email"`
	Address         string `form:"address"`
	PostalCode      string `form:"postal_code"`
	PlaceID         string `form:"place_id"`
	Latitude        string `form:"latitude"`
	Longitude       string `form:"longitude"`
	Note            string `form:"note"`
	PurchaseCredits string `form:"purchase_credits"`
	PaymentMethodID string `form:"payment_method_id"`
}

// SubmitResponse reports the outcome of a contact submission.
type SubmitResponse struct {
	State              core.WorkflowState     `json:"state"`
	Failure            core.FailureKind       `json:"failure,omitempty"`
	Error              string                 `json:"error,omitempty"`
	Details            string                 `json:"details,omitempty"`
	Fields             map[string]string      `json:"fields,omitempty"`
	Contact            *ContactResponse       `json:"contact,omitempty"`
	Payment            *models.PaymentSession `json:"payment,omitempty"`
	Packages           []models.CreditPackage `json:"packages,omitempty"`
	Balance            *int64                 `json:"balance,omitempty"` // unset on edits
	CreditInconsistent bool                   `json:"credit_inconsistent,omitempty"`
	Transitions        []core.WorkflowState   `json:"transitions"`
}

// PlacesResponse wraps autocomplete predictions.
type PlacesResponse struct {
	Predictions []models.AddressSuggestion `json:"predictions"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}

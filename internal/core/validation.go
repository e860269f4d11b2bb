package core

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/example/contacts-backend/internal/models"
)

var (
	phonePattern      = regexp.MustCompile(`^[+]?[(]?[0-9]{3}[)]?[-\s.]?[0-9]{3}[-\s.]?[0-9]{4,6}$`)
	contactEmailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	whitespace        = regexp.MustCompile(`\s`)
)

var fieldLabels = map[string]string{
	"first_name":  "First name",
	"last_name":   "Last name",
	"phone":       "Phone",
	"email":       "Email",
	"address":     "Address",
	"postal_code": "Postal code",
	"place_id":    "Place ID",
	"note":        "Note",
}

// Validator checks contact input with go-playground/validator and the
// phone and contact_email rules.
type Validator struct {
	v *validator.Validate
}

// NewValidator builds a Validator with the custom rules registered.
func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(whitespace.ReplaceAllString(fl.Field().String(), ""))
	})
	_ = v.RegisterValidation("contact_email", func(fl validator.FieldLevel) bool {
		return contactEmailRegex.MatchString(fl.Field().String())
	})
	return &Validator{v: v}
}

// ValidateContact returns a *ValidationError describing every invalid field.
func (v *Validator) ValidateContact(in models.ContactInput) error {
	err := v.v.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	out := &ValidationError{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		out.Fields[fe.Field()] = fieldMessage(fe.Field(), fe.Tag(), fe.Param())
	}
	return out
}

func fieldMessage(field, tag, param string) string {
	switch {
	case field == "phone" && tag == "required":
		return "Phone is required"
	case tag == "required":
		return fieldLabels[field] + " is required"
	case tag == "phone":
		return "Please enter a valid phone number"
	case tag == "contact_email":
		return "Please enter a valid email address"
	case tag == "latitude":
		return "Latitude must be between -90 and 90"
	case tag == "longitude":
		return "Longitude must be between -180 and 180"
	case tag == "max":
		return fmt.Sprintf("%s must be at most %s characters", fieldLabels[field], param)
	}
	return "Invalid value"
}

// NormalizeContactInput trims text fields and turns blank optional fields
// into nil.
func NormalizeContactInput(in models.ContactInput) models.ContactInput {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = trimOptional(in.Email)
	in.Address = trimOptional(in.Address)
	in.PostalCode = trimOptional(in.PostalCode)
	in.PlaceID = trimOptional(in.PlaceID)
	in.Note = trimOptional(in.Note)
	return in
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

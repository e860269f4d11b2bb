package models

// AddressSuggestion is one autocomplete prediction.
type AddressSuggestion struct {
	PlaceID     string `json:"place_id"`
	Description string `json:"description"`
}

// GeocodeResult holds the coordinates and postal code of a resolved address.
type GeocodeResult struct {
	FormattedAddress string  `json:"formatted_address"`
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	PostalCode       string  `json:"postal_code,omitempty"`
}

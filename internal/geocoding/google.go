// Package geocoding resolves addresses with the Google Maps Places and
// Geocoding APIs.
package geocoding

import (
	"context"
	"errors"
	"fmt"

	"googlemaps.github.io/maps"

	"github.com/example/contacts-backend/internal/models"
)

// ErrNoResults is returned when a place ID resolves to nothing.
var ErrNoResults = errors.New("geocoding returned no results")

// GoogleProvider implements core.AddressProvider.
type GoogleProvider struct {
	client   *maps.Client
	language string
}

// NewGoogleProvider creates a provider. Extra options are passed to
// maps.NewClient after the API key.
func NewGoogleProvider(apiKey, language string, opts ...maps.ClientOption) (*GoogleProvider, error) {
	c, err := maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &GoogleProvider{client: c, language: language}, nil
}

// Autocomplete returns street address predictions for input.
func (g *GoogleProvider) Autocomplete(ctx context.Context, input string) ([]models.AddressSuggestion, error) {
	resp, err := g.client.PlaceAutocomplete(ctx, &maps.PlaceAutocompleteRequest{
		Input:    input,
		Language: g.language,
		Types:    maps.AutocompletePlaceTypeAddress,
	})
	if err != nil {
		return nil, fmt.Errorf("place autocomplete: %w", err)
	}
	out := make([]models.AddressSuggestion, 0, len(resp.Predictions))
	for _, p := range resp.Predictions {
		out = append(out, models.AddressSuggestion{PlaceID: p.PlaceID, Description: p.Description})
	}
	return out, nil
}

// Geocode resolves a place ID to coordinates and postal code.
func (g *GoogleProvider) Geocode(ctx context.Context, placeID string) (*models.GeocodeResult, error) {
	results, err := g.client.Geocode(ctx, &maps.GeocodingRequest{
		PlaceID:  placeID,
		Language: g.language,
	})
	if err != nil {
		return nil, fmt.Errorf("geocode place %s: %w", placeID, err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("place %s: %w", placeID, ErrNoResults)
	}
	r := results[0]
	return &models.GeocodeResult{
		FormattedAddress: r.FormattedAddress,
		Latitude:         r.Geometry.Location.Lat,
		Longitude:        r.Geometry.Location.Lng,
		PostalCode:       postalCode(r.AddressComponents),
	}, nil
}

func postalCode(components []maps.AddressComponent) string {
	for _, c := range components {
		for _, t := range c.Types {
			if t == "postal_code" {
				return c.LongName
			}
		}
	}
	return ""
}

package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/contacts-backend/internal/models"
	"github.com/example/contacts-backend/pkg/cache"
)

// minAutocompleteInput is the shortest query sent to the provider.
const minAutocompleteInput = 3

type addressService struct {
	provider AddressProvider
	cache    cache.Cache
	ttl      time.Duration
	timeout  time.Duration
	logger   *zap.Logger
}

// NewAddressService wraps provider with a read-through cache.
func NewAddressService(provider AddressProvider, c cache.Cache, ttl, timeout time.Duration, logger *zap.Logger) AddressService {
	return &addressService{provider: provider, cache: c, ttl: ttl, timeout: timeout, logger: logger}
}

func (s *addressService) Autocomplete(ctx context.Context, input string) ([]models.AddressSuggestion, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fieldError("input", "Input is required")
	}
	if len([]rune(input)) < minAutocompleteInput {
		return []models.AddressSuggestion{}, nil
	}

	key := "places:autocomplete:" + strings.ToLower(input)
	var out []models.AddressSuggestion
	if s.cached(ctx, key, &out) {
		return out, nil
	}

	tctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	out, err := s.provider.Autocomplete(tctx, input)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAddressLookup, err)
	}
	if out == nil {
		out = []models.AddressSuggestion{}
	}
	s.store(ctx, key, out)
	return out, nil
}

func (s *addressService) Geocode(ctx context.Context, placeID string) (*models.GeocodeResult, error) {
	placeID = strings.TrimSpace(placeID)
	if placeID == "" {
		return nil, fieldError("place_id", "Place ID is required")
	}

	key := "places:geocode:" + placeID
	var out models.GeocodeResult
	if s.cached(ctx, key, &out) {
		return &out, nil
	}

	tctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	res, err := s.provider.Geocode(tctx, placeID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAddressLookup, err)
	}
	s.store(ctx, key, res)
	return res, nil
}

func (s *addressService) cached(ctx context.Context, key string, dst interface{}) bool {
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn("Address cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		s.logger.Warn("Discarding corrupt address cache entry", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (s *addressService) store(ctx context.Context, key string, v interface{}) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, string(raw), s.ttl); err != nil {
		s.logger.Warn("Address cache write failed", zap.String("key", key), zap.Error(err))
	}
}

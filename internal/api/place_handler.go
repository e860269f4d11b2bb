package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/contacts-backend/internal/core"
)

// PlaceHandler proxies address autocomplete and geocoding.
type PlaceHandler struct {
	addresses core.AddressService
	logger    *zap.Logger
}

// NewPlaceHandler creates a new PlaceHandler.
func NewPlaceHandler(as core.AddressService, logger *zap.Logger) *PlaceHandler {
	return &PlaceHandler{addresses: as, logger: logger}
}

// Autocomplete handles GET /places/autocomplete?input=.
func (h *PlaceHandler) Autocomplete(c *gin.Context) {
	predictions, err := h.addresses.Autocomplete(c.Request.Context(), c.Query("input"))
	if err != nil {
		mapErrorToStatus(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, PlacesResponse{Predictions: predictions})
}

// Geocode handles GET /places/geocode?place_id=.
func (h *PlaceHandler) Geocode(c *gin.Context) {
	res, err := h.addresses.Geocode(c.Request.Context(), c.Query("place_id"))
	if err != nil {
		mapErrorToStatus(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

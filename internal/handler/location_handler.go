package handler

import (
	"github.com/aerolot/service-parking/internal/application"
	"github.com/aerolot/service-parking/internal/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// LocationHandler handles HTTP requests for the location catalog. Listing
// and availability checks are public; registration is admin-only and lives
// on the admin handler.
type LocationHandler struct {
	service *application.LocationService
}

// NewLocationHandler creates a new LocationHandler.
func NewLocationHandler(service *application.LocationService) *LocationHandler {
	return &LocationHandler{service: service}
}

// RegisterRoutes registers all location routes on the given router group.
func (h *LocationHandler) RegisterRoutes(r *gin.RouterGroup) {
	locations := r.Group("/api/v1/locations")
	{
		locations.GET("", h.ListLocations)
		locations.GET("/:id", h.GetLocation)
		locations.GET("/:id/availability", h.CheckAvailability)
	}
}

// ListLocations handles GET /api/v1/locations. An optional airport query
// parameter filters by airport code.
func (h *LocationHandler) ListLocations(c *gin.Context) {
	result, err := h.service.ListLocations(c.Request.Context(), c.Query("airport"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// GetLocation handles GET /api/v1/locations/:id.
func (h *LocationHandler) GetLocation(c *gin.Context) {
	locationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid location ID")
		return
	}

	result, err := h.service.GetLocation(c.Request.Context(), locationID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// CheckAvailability handles GET /api/v1/locations/:id/availability.
func (h *LocationHandler) CheckAvailability(c *gin.Context) {
	locationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid location ID")
		return
	}

	result, err := h.service.CheckAvailability(c.Request.Context(), locationID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

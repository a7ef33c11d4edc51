package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aerolot/service-parking/internal/application"
	"github.com/aerolot/service-parking/internal/auth"
	"github.com/aerolot/service-parking/internal/middleware"
	"github.com/aerolot/service-parking/internal/response"
)

// AdminHandler handles admin HTTP requests for booking and location management.
type AdminHandler struct {
	bookings  *application.BookingService
	locations *application.LocationService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(bookings *application.BookingService, locations *application.LocationService) *AdminHandler {
	return &AdminHandler{bookings: bookings, locations: locations}
}

// RegisterRoutes registers admin routes.
func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)
	adminRole := middleware.RequireRole(auth.RoleAdmin)

	admin := r.Group("/api/v1/admin")
	admin.Use(authMW, adminRole)
	{
		admin.GET("/dashboard", h.Dashboard)
		admin.GET("/bookings", h.ListBookings)
		admin.GET("/stats/bookings", h.BookingStats)
		admin.GET("/revenue", h.Revenue)
		admin.POST("/locations", h.CreateLocation)
		admin.PATCH("/locations/:id/active", h.SetLocationActive)
	}
}

// Dashboard handles GET /api/v1/admin/dashboard.
func (h *AdminHandler) Dashboard(c *gin.Context) {
	dashboard, err := h.bookings.GetDashboard(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dashboard)
}

// ListBookings handles GET /api/v1/admin/bookings.
func (h *AdminHandler) ListBookings(c *gin.Context) {
	page, limit := parsePagination(c)

	bookings, total, err := h.bookings.ListAllBookings(c.Request.Context(), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, bookings, total, page, limit)
}

// BookingStats handles GET /api/v1/admin/stats/bookings.
func (h *AdminHandler) BookingStats(c *gin.Context) {
	stats, err := h.bookings.GetBookingStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, stats)
}

// Revenue handles GET /api/v1/admin/revenue with optional start/end dates
// (RFC 3339).
func (h *AdminHandler) Revenue(c *gin.Context) {
	var from, to *time.Time
	if s := c.Query("start"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			response.BadRequest(c, "invalid start date")
			return
		}
		from = &t
	}
	if s := c.Query("end"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			response.BadRequest(c, "invalid end date")
			return
		}
		to = &t
	}
	if (from == nil) != (to == nil) {
		response.BadRequest(c, "start and end must be provided together")
		return
	}

	revenue, err := h.bookings.GetRevenue(c.Request.Context(), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, revenue)
}

// CreateLocation handles POST /api/v1/admin/locations.
func (h *AdminHandler) CreateLocation(c *gin.Context) {
	var req application.CreateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.locations.CreateLocation(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// SetLocationActive handles PATCH /api/v1/admin/locations/:id/active.
func (h *AdminHandler) SetLocationActive(c *gin.Context) {
	locationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid location ID")
		return
	}

	var body struct {
		Active *bool `json:"active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.locations.SetLocationActive(c.Request.Context(), locationID, *body.Active)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

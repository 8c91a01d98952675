package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mentorkita/service-booking/internal/application"
	"github.com/mentorkita/service-booking/internal/domain"
	"github.com/mentorkita/service-booking/internal/platform/auth"
	"github.com/mentorkita/service-booking/internal/platform/middleware"
	"github.com/mentorkita/service-booking/internal/platform/response"
)

// MentorHandler handles HTTP requests for mentor profiles and schedules.
type MentorHandler struct {
	mentors      *application.MentorService
	availability *application.AvailabilityService
}

// NewMentorHandler creates a new MentorHandler.
func NewMentorHandler(mentors *application.MentorService, availability *application.AvailabilityService) *MentorHandler {
	return &MentorHandler{mentors: mentors, availability: availability}
}

// RegisterRoutes registers all mentor routes on the given router group.
// The acting mentor's own profile lives under /profile to keep /mentors/:id
// free for public lookups.
func (h *MentorHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)

	profile := r.Group("/api/v1/profile")
	profile.Use(authMW, middleware.RequireRole(domain.RoleMentor))
	{
		profile.POST("", h.CreateProfile)
		profile.GET("", h.GetOwnProfile)
		profile.PATCH("", h.UpdateProfile)
	}

	mentors := r.Group("/api/v1/mentors")
	{
		mentors.GET("/:id", h.GetProfile)
		mentors.GET("/:id/availability", h.GetWindows)
		mentors.GET("/:id/availability/check", h.CheckSlot)
		mentors.PUT("/:id/availability", authMW, middleware.RequireRole(domain.RoleMentor, domain.RoleAdmin), h.ReplaceWindows)
	}
}

// CreateProfile handles POST /api/v1/profile.
func (h *MentorHandler) CreateProfile(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req application.CreateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.mentors.CreateProfile(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// GetOwnProfile handles GET /api/v1/profile.
func (h *MentorHandler) GetOwnProfile(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	result, err := h.mentors.GetOwnProfile(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// UpdateProfile handles PATCH /api/v1/profile.
func (h *MentorHandler) UpdateProfile(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req application.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.mentors.UpdateProfile(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// GetProfile handles GET /api/v1/mentors/:id. Public.
func (h *MentorHandler) GetProfile(c *gin.Context) {
	mentorProfileID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid mentor profile ID")
		return
	}

	result, err := h.mentors.GetProfile(c.Request.Context(), mentorProfileID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// GetWindows handles GET /api/v1/mentors/:id/availability. Public.
func (h *MentorHandler) GetWindows(c *gin.Context) {
	mentorProfileID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid mentor profile ID")
		return
	}

	result, err := h.availability.GetWindows(c.Request.Context(), mentorProfileID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// CheckSlot handles GET /api/v1/mentors/:id/availability/check. Public; lets
// clients pre-validate a slot before submitting a booking.
func (h *MentorHandler) CheckSlot(c *gin.Context) {
	mentorProfileID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid mentor profile ID")
		return
	}

	date, err := time.Parse("2006-01-02", c.Query("date"))
	if err != nil {
		response.BadRequest(c, "invalid date, expected YYYY-MM-DD")
		return
	}
	duration, err := parseDuration(c.Query("duration_minutes"))
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	open, err := h.availability.IsOpen(c.Request.Context(), mentorProfileID, date, c.Query("start_time"), duration)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"open": open})
}

// ReplaceWindows handles PUT /api/v1/mentors/:id/availability.
func (h *MentorHandler) ReplaceWindows(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	mentorProfileID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid mentor profile ID")
		return
	}

	var body struct {
		Windows []application.WindowInput `json:"windows" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.availability.ReplaceWindows(c.Request.Context(), actor, mentorProfileID, body.Windows)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

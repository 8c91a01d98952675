package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mentorkita/service-booking/internal/application"
	"github.com/mentorkita/service-booking/internal/domain"
	"github.com/mentorkita/service-booking/internal/platform/auth"
	"github.com/mentorkita/service-booking/internal/platform/middleware"
	"github.com/mentorkita/service-booking/internal/platform/response"
)

// PaymentHandler handles HTTP requests for payment operations.
type PaymentHandler struct {
	service       *application.PaymentService
	webhookSecret string
}

// NewPaymentHandler creates a new PaymentHandler. webhookSecret guards the
// gateway callback endpoint.
func NewPaymentHandler(service *application.PaymentService, webhookSecret string) *PaymentHandler {
	return &PaymentHandler{service: service, webhookSecret: webhookSecret}
}

// RegisterRoutes registers all payment routes on the given router group.
func (h *PaymentHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)

	payments := r.Group("/api/v1/payments")
	payments.Use(authMW)
	{
		payments.POST("", middleware.RequireRole(domain.RoleStudent), h.RecordPayment)
		payments.GET("", h.ListPayments)
		payments.GET("/:id", h.GetPayment)
		payments.POST("/:id/refund", middleware.RequireRole(domain.RoleAdmin), h.RefundPayment)
	}

	booking := r.Group("/api/v1/bookings")
	booking.Use(authMW)
	{
		booking.GET("/:id/payment", h.GetBookingPayment)
	}

	// The HTTP twin of the Kafka gateway topic, for gateways that only
	// deliver verdicts over webhooks.
	r.POST("/webhooks/payment", h.GatewayWebhook)
}

// RecordPayment handles POST /api/v1/payments.
func (h *PaymentHandler) RecordPayment(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req application.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.RecordPayment(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// ListPayments handles GET /api/v1/payments with the same role scoping as
// booking listings.
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	page, limit := parsePagination(c)

	var (
		result *domain.PaginatedResult[application.PaymentDTO]
		err    error
	)
	switch actor.Role {
	case domain.RoleMentor:
		result, err = h.service.GetMentorPayments(c.Request.Context(), actor, page, limit)
	case domain.RoleAdmin:
		result, err = h.service.ListAllPayments(c.Request.Context(), actor, page, limit)
	default:
		result, err = h.service.GetStudentPayments(c.Request.Context(), actor, page, limit)
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// GetPayment handles GET /api/v1/payments/:id.
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid payment ID")
		return
	}

	result, err := h.service.GetPayment(c.Request.Context(), actor, paymentID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// GetBookingPayment handles GET /api/v1/bookings/:id/payment.
func (h *PaymentHandler) GetBookingPayment(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid booking ID")
		return
	}

	result, err := h.service.GetBookingPayment(c.Request.Context(), actor, bookingID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// RefundPayment handles POST /api/v1/payments/:id/refund (admin).
func (h *PaymentHandler) RefundPayment(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid payment ID")
		return
	}

	result, err := h.service.RefundPayment(c.Request.Context(), actor, paymentID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// gatewayWebhookBody is the payload the payment gateway posts back.
type gatewayWebhookBody struct {
	PaymentCode string          `json:"payment_code" binding:"required"`
	Status      string          `json:"status" binding:"required"`
	ExternalID  string          `json:"external_id"`
	Details     json.RawMessage `json:"details"`
}

// GatewayWebhook handles POST /webhooks/payment.
func (h *PaymentHandler) GatewayWebhook(c *gin.Context) {
	if h.webhookSecret == "" || c.GetHeader("X-Webhook-Secret") != h.webhookSecret {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook secret"})
		return
	}

	var body gatewayWebhookBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result := application.GatewayResult{
		PaymentCode: body.PaymentCode,
		ExternalID:  body.ExternalID,
		Details:     body.Details,
	}

	var err error
	switch body.Status {
	case "success":
		err = h.service.HandleGatewaySuccess(c.Request.Context(), result)
	case "failure":
		err = h.service.HandleGatewayFailure(c.Request.Context(), result)
	default:
		response.BadRequest(c, "status must be success or failure")
		return
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"processed": true})
}

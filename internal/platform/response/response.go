package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mentorkita/service-booking/internal/domain"
)

// Envelope is the uniform response body shape.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// PaginationMeta carries paging information alongside list payloads.
type PaginationMeta struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

// Success writes a 200 with the given payload.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

// Created writes a 201 with the given payload.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Data: data})
}

// NoContent writes a 204.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Paginated writes a 200 with items and pagination metadata.
func Paginated(c *gin.Context, items interface{}, total int64, page, limit int) {
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"data":       items,
		"pagination": PaginationMeta{Total: total, Page: page, Limit: limit},
	})
}

// BadRequest writes a 400 with the given message.
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Envelope{Success: false, Error: message, Code: string(domain.CodeValidation)})
}

// Error maps a domain error to its HTTP status. Unexpected errors become an
// opaque 500 so internals never leak to callers.
func Error(c *gin.Context, err error) {
	code := domain.CodeOf(err)
	status, message := http.StatusInternalServerError, "internal server error"

	switch code {
	case domain.CodeValidation:
		status, message = http.StatusUnprocessableEntity, err.Error()
	case domain.CodeNotFound:
		status, message = http.StatusNotFound, err.Error()
	case domain.CodeConflict:
		status, message = http.StatusConflict, err.Error()
	case domain.CodeInvalidState:
		status, message = http.StatusUnprocessableEntity, err.Error()
	case domain.CodeForbidden:
		status, message = http.StatusForbidden, err.Error()
	}

	c.JSON(status, Envelope{Success: false, Error: message, Code: string(code)})
}

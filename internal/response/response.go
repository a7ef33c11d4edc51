package response

import (
	"errors"
	"net/http"

	"github.com/aerolot/service-parking/internal/domain"
	"github.com/gin-gonic/gin"
)

// Success writes a 200 with the given payload.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

// Created writes a 201 with the given payload.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": data})
}

// Paginated writes a 200 with paging metadata.
func Paginated(c *gin.Context, items interface{}, total int64, page, limit int) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    items,
		"total":   total,
		"page":    page,
		"limit":   limit,
	})
}

// BadRequest writes a 400 with the given message.
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": message})
}

// statusForCode maps the error taxonomy to HTTP status codes. Capacity
// exhaustion is an expected business outcome and carries its own code so
// callers can offer alternatives.
func statusForCode(code domain.ErrorCode) int {
	switch code {
	case domain.CodeValidation, domain.CodeInvalidRange, domain.CodeInvalidDiscount:
		return http.StatusBadRequest
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeForbidden:
		return http.StatusForbidden
	case domain.CodeCapacityExhausted, domain.CodeInvalidState, domain.CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error writes the transport representation of an application error. Typed
// errors map to their status and code; anything else is a 500 with the
// detail withheld.
func Error(c *gin.Context, err error) {
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		c.JSON(statusForCode(appErr.Code), gin.H{
			"success": false,
			"code":    string(appErr.Code),
			"error":   appErr.Message,
		})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal server error"})
}

package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cuemap/cuemap/internal/cuemap"
)

// Response is the standard JSON envelope for every endpoint.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// SuccessResponse sends a 200 success response.
func SuccessResponse(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, &Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// CreatedResponse sends a 201 created response.
func CreatedResponse(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, &Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ErrorResponse sends an error response.
func ErrorResponse(c *gin.Context, code int, message string) {
	c.JSON(code, &Response{
		Success: false,
		Message: message,
	})
}

// BadRequestError sends a 400 error.
func BadRequestError(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusBadRequest, message)
}

// NotFoundError sends a 404 error.
func NotFoundError(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusNotFound, message)
}

// NotFoundErrorWithID sends a 404 error naming the missing id.
func NotFoundErrorWithID(c *gin.Context, id string) {
	c.JSON(http.StatusNotFound, gin.H{
		"error": "not_found",
		"id":    id,
	})
}

// UnauthorizedError sends a 401 error.
func UnauthorizedError(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusUnauthorized, message)
}

// TooManyRequestsError sends a 429 error.
func TooManyRequestsError(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusTooManyRequests, message)
}

// PayloadTooLargeError sends a 413 error.
func PayloadTooLargeError(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusRequestEntityTooLarge, message)
}

// InternalError sends a 500 error.
func InternalError(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusInternalServerError, message)
}

// EngineError maps a cuemap.Error's Kind to the matching HTTP status and
// sends it, falling back to 500 for anything untyped (§7's boundary
// mapper).
func EngineError(c *gin.Context, err error) {
	var ce *cuemap.Error
	if !errors.As(err, &ce) {
		InternalError(c, err.Error())
		return
	}
	switch ce.Kind {
	case cuemap.KindNotFound:
		NotFoundError(c, err.Error())
	case cuemap.KindInvalidCue, cuemap.KindInvalidQuery:
		BadRequestError(c, err.Error())
	case cuemap.KindTenantMissing:
		ErrorResponse(c, http.StatusNotFound, err.Error())
	case cuemap.KindAuthRequired, cuemap.KindAuthInvalid:
		UnauthorizedError(c, err.Error())
	case cuemap.KindRateLimited:
		TooManyRequestsError(c, err.Error())
	case cuemap.KindSnapshotIO, cuemap.KindSnapshotCorrupt:
		InternalError(c, err.Error())
	default:
		InternalError(c, err.Error())
	}
}

package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/leafcare/terrarium-backend/internal/pkg/errors"
)

// Response is the uniform JSON envelope for every endpoint
type Response struct {
	Code    int                  `json:"code"`              // business code (0 means success)
	Message string               `json:"message,omitempty"` // human-readable message
	Data    interface{}          `json:"data,omitempty"`    // payload on success
	Error   *apperrors.ErrorData `json:"error,omitempty"`   // structured detail on failure
}

// Success writes a 200 response with the given payload
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code: apperrors.Success,
		Data: data,
	})
}

// Created writes a 201 response with the given payload
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code: apperrors.Success,
		Data: data,
	})
}

// NoContent writes an empty 204 response
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error writes a plain error response
func Error(c *gin.Context, httpStatus int, message string) {
	c.JSON(httpStatus, Response{
		Code:    httpStatus,
		Message: message,
	})
}

// BadRequest writes a 400 error
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

// Unauthorized writes a 401 error
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, message)
}

// Forbidden writes a 403 error
func Forbidden(c *gin.Context, message string) {
	Error(c, http.StatusForbidden, message)
}

// NotFound writes a 404 error
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message)
}

// InternalError writes a 500 error
func InternalError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, message)
}

// HandleError maps an AppError (or any error) to the envelope. Internal
// detail never reaches the client on 5xx responses.
func HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	code := apperrors.ExtractCode(err)
	httpStatus := apperrors.GetHTTPStatus(code)

	message := apperrors.GetMessage(code)
	if httpStatus < http.StatusInternalServerError {
		message = apperrors.FormatError(code, apperrors.GetDetails(err))
	}

	c.JSON(httpStatus, Response{
		Code:    code,
		Message: message,
		Error:   apperrors.ExtractData(err),
	})
}

// ErrorWithCode writes an error response from a business code
func ErrorWithCode(c *gin.Context, code int, details ...string) {
	c.JSON(apperrors.GetHTTPStatus(code), Response{
		Code:    code,
		Message: apperrors.FormatError(code, details...),
	})
}

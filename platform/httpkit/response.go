// Package httpkit holds the HTTP plumbing shared by every module: middleware,
// caller identity and the JSON response envelope.
// This is part of the platform layer and contains no business logic.
package httpkit

import (
	"errors"
	"net/http"

	"coaching_portal_backend/platform/apperr"

	"github.com/gin-gonic/gin"
)

const msgInternal = "internal server error"

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

// JSON writes payload with status.
func JSON(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, payload)
}

// OK writes payload with 200.
func OK(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusOK, payload)
}

// Created writes payload with 201.
func Created(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusCreated, payload)
}

// Error writes an ErrorResponse.
func Error(c *gin.Context, status int, message string, details interface{}) {
	c.JSON(status, ErrorResponse{Error: message, Details: details})
}

// HandleError writes the response for err and reports whether it did.
// An *apperr.Error anywhere in the chain picks the status and message; any
// other error is recorded on the context for the request logger and answered
// with a bare 500.
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	var domainErr *apperr.Error
	if !errors.As(err, &domainErr) {
		_ = c.Error(err)
		Error(c, http.StatusInternalServerError, msgInternal, nil)
		return true
	}

	if domainErr.Kind == apperr.KindInternal {
		_ = c.Error(err)
	}
	Error(c, domainErr.HTTPStatus(), domainErr.Message, domainErr.Details)
	return true
}

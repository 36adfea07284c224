// Package handler adapts the ledger application services to HTTP.
package handler

import (
	"net/http"
	"time"

	"github.com/cashledger/backend/internal/domain/shared"
	"github.com/cashledger/backend/internal/interfaces/http/dto"
	"github.com/cashledger/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

func getRequestID(c *gin.Context) string {
	return c.GetString(middleware.RequestIDKey)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// ValidationError sends a 400 response naming the offending field
func (h *BaseHandler) ValidationError(c *gin.Context, field, message string) {
	c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse(
		"Request validation failed",
		getRequestID(c),
		[]dto.ValidationDetail{{Field: field, Message: message}},
	))
}

// HandleError maps err onto its HTTP status and error envelope
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	status, resp := dto.FromError(err, getRequestID(c))
	c.JSON(status, resp)
}

// scope returns the caller scope. The router always installs JWTAuth in front
// of these handlers; a missing scope is answered with 401.
func (h *BaseHandler) scope(c *gin.Context) (shared.Scope, bool) {
	scope, ok := middleware.GetScope(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, dto.NewErrorResponse(
			dto.ErrCodeUnauthorized, "Authentication required", getRequestID(c)))
	}
	return scope, ok
}

// uuidParam parses a path parameter. Malformed ids are answered as not found,
// the same as ids outside the caller's tenant.
func (h *BaseHandler) uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.HandleError(c, shared.ErrNotFound.With(name, c.Param(name)))
		return uuid.Nil, false
	}
	return id, true
}

// parseUUIDField parses an already validated uuid string from a request body
func (h *BaseHandler) parseUUIDField(c *gin.Context, field, value string) (uuid.UUID, bool) {
	id, err := uuid.Parse(value)
	if err != nil {
		h.ValidationError(c, field, "Invalid UUID format")
		return uuid.Nil, false
	}
	return id, true
}

// parseDate parses a YYYY-MM-DD date as UTC midnight
func (h *BaseHandler) parseDate(c *gin.Context, field, value string) (time.Time, bool) {
	d, err := time.Parse(time.DateOnly, value)
	if err != nil {
		h.ValidationError(c, field, "Must be a date formatted as 2006-01-02")
		return time.Time{}, false
	}
	return d, true
}

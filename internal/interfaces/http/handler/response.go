package handler

import "github.com/cashledger/backend/internal/interfaces/http/dto"

// The types below only describe the dto.Response envelope for the OpenAPI
// document; handlers always write dto.Response.

// APIResponse is the envelope of a single resource or a plain list
type APIResponse[T any] struct {
	Success bool `json:"success" example:"true"`
	Data    T    `json:"data"`
}

// PageResponse is the envelope of a paginated list
type PageResponse[T any] struct {
	Success bool      `json:"success" example:"true"`
	Data    []T       `json:"data"`
	Meta    *dto.Meta `json:"meta"`
}

// ErrorResponse is the envelope of every failure. Integrity and
// infrastructure failures carry an opaque message.
type ErrorResponse struct {
	Success bool           `json:"success" example:"false"`
	Error   *dto.ErrorInfo `json:"error"`
}

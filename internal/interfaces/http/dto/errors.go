package dto

import (
	"net/http"

	"github.com/cashledger/backend/internal/domain/shared"
)

// Transport error codes. Domain errors surface as "ERR_" + their domain code.
const (
	ErrCodeInternal           = "ERR_INTERNAL"
	ErrCodeUnavailable        = "ERR_SERVICE_UNAVAILABLE"
	ErrCodeValidation         = "ERR_VALIDATION"
	ErrCodeBadRequest         = "ERR_BAD_REQUEST"
	ErrCodeInvalidJSON        = "ERR_INVALID_JSON"
	ErrCodeUnauthorized       = "ERR_UNAUTHORIZED"
	ErrCodeTokenExpired       = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid       = "ERR_TOKEN_INVALID"
	ErrCodeTokenRevoked       = "ERR_TOKEN_REVOKED"
	ErrCodeForbidden          = "ERR_FORBIDDEN"
	ErrCodeRateLimited        = "ERR_RATE_LIMITED"
	ErrCodeBodyTooLarge       = "ERR_REQUEST_TOO_LARGE"
	ErrCodeIdempotencyPending = "ERR_IDEMPOTENCY_IN_PROGRESS"
	ErrCodeIdempotencyReused  = "ERR_IDEMPOTENCY_KEY_REUSED"
	ErrCodeRouteNotFound      = "ERR_ROUTE_NOT_FOUND"
)

var kindStatus = map[shared.ErrorKind]int{
	shared.KindValidation:     http.StatusBadRequest,
	shared.KindNotFound:       http.StatusNotFound,
	shared.KindConflict:       http.StatusConflict,
	shared.KindAuthorization:  http.StatusForbidden,
	shared.KindIntegrity:      http.StatusInternalServerError,
	shared.KindInfrastructure: http.StatusServiceUnavailable,
}

// StatusForKind maps an error kind to its HTTP status. Unknown kinds are 500.
func StatusForKind(kind shared.ErrorKind) int {
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// ErrorCode returns the wire code of a domain error
func ErrorCode(de *shared.DomainError) string {
	return "ERR_" + de.Code
}

// FromError converts any error into a status and error envelope. Integrity and
// infrastructure failures keep their code but never expose their message or
// context.
func FromError(err error, requestID string) (int, Response) {
	de := shared.AsDomainError(err)
	status := StatusForKind(de.Kind)

	info := &ErrorInfo{
		Code:      ErrorCode(de),
		Message:   de.Message,
		RequestID: requestID,
	}
	switch {
	case de.Kind == shared.KindIntegrity:
		info.Message = "The ledger failed an integrity check"
	case de.Kind.Opaque():
		info.Message = "The service is temporarily unavailable"
	case len(de.Context) > 0:
		info.Details = de.Context
	}
	return status, Response{Success: false, Error: info}
}

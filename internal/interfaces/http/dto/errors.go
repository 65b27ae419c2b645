package dto

import "net/http"

// Stable machine-readable error codes surfaced by the API. Codes follow the
// domain's taxonomy: validation 400, auth 401/403, conflicts 409, state
// errors 422, upstream 502, everything else 5xx.
const (
	ErrCodeUnknown  = "UNKNOWN"
	ErrCodeInternal = "INTERNAL"

	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeValidation   = "VALIDATION_ERROR"

	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"

	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeAlreadyExists       = "ALREADY_EXISTS"
	ErrCodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	ErrCodeDuplicatePayment    = "DUPLICATE_PAYMENT"
	ErrCodeUnknownInvoice      = "UNKNOWN_INVOICE"

	ErrCodeInvalidState      = "INVALID_STATE"
	ErrCodeNoCollector       = "NO_COLLECTOR_IN_RANGE"
	ErrCodeOrderAlreadyOpen  = "ORDER_ALREADY_OPEN"
	ErrCodeSessionExpired    = "SESSION_EXPIRED"
	ErrCodeDuplicateAttempt  = "DUPLICATE_ATTEMPT"
	ErrCodeUpstreamFailed    = "UPSTREAM_UNAVAILABLE"
	ErrCodeInvalidAmount     = "INVALID_AMOUNT"
	ErrCodeInvalidPhone      = "INVALID_PHONE"
	ErrCodeInvalidPeriod     = "INVALID_PERIOD"
	ErrCodeInvalidReference  = "INVALID_REFERENCE"
	ErrCodeInvalidRecipient  = "INVALID_RECIPIENT"
)

// errorCodeHTTPStatus maps error codes to HTTP status codes
var errorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeValidation:   http.StatusBadRequest,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeUnknownInvoice:      http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeDuplicatePayment:    http.StatusConflict,

	ErrCodeInvalidState:     http.StatusUnprocessableEntity,
	ErrCodeNoCollector:      http.StatusUnprocessableEntity,
	ErrCodeOrderAlreadyOpen: http.StatusUnprocessableEntity,
	ErrCodeDuplicateAttempt: http.StatusUnprocessableEntity,
	ErrCodeSessionExpired:   http.StatusGone,

	ErrCodeUpstreamFailed: http.StatusBadGateway,

	ErrCodeInvalidAmount:    http.StatusBadRequest,
	ErrCodeInvalidPhone:     http.StatusBadRequest,
	ErrCodeInvalidPeriod:    http.StatusBadRequest,
	ErrCodeInvalidReference: http.StatusBadRequest,
	ErrCodeInvalidRecipient: http.StatusBadRequest,
}

// GetHTTPStatus returns the HTTP status for an error code, 422 for unmapped
// domain codes so state-machine rejections never surface as 5xx.
func GetHTTPStatus(code string) int {
	if status, ok := errorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusUnprocessableEntity
}

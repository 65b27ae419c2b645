package shared

// DomainError is a domain-level error with a stable machine-readable code.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrUnauthorized        = NewDomainError("UNAUTHORIZED", "Not authorized to perform this action")
	ErrForbidden           = NewDomainError("FORBIDDEN", "Access to this resource is forbidden")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrDuplicatePayment    = NewDomainError("DUPLICATE_PAYMENT", "Payment with this external reference was already applied")
	ErrUnknownInvoice      = NewDomainError("UNKNOWN_INVOICE", "Invoice does not exist")
	ErrUpstreamUnavailable = NewDomainError("UPSTREAM_UNAVAILABLE", "External provider is unavailable")
	ErrNoCollectorInRange  = NewDomainError("NO_COLLECTOR_IN_RANGE", "No available collector within dispatch radius")
	ErrSessionExpired      = NewDomainError("SESSION_EXPIRED", "Session has expired")
)

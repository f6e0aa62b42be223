// Package errors provides standardized error handling for the matching service.
package errors

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeInvalidTicket      ErrorCode = "INVALID_TICKET"
	ErrCodeInvalidCoordinates ErrorCode = "INVALID_COORDINATES"
	ErrCodeInvalidTrade       ErrorCode = "INVALID_TRADE"
	ErrCodeInvalidWeights     ErrorCode = "INVALID_WEIGHTS"
	ErrCodeInvalidRequest     ErrorCode = "INVALID_REQUEST"

	ErrCodeTicketNotFound     ErrorCode = "TICKET_NOT_FOUND"
	ErrCodeContractorNotFound ErrorCode = "CONTRACTOR_NOT_FOUND"
	ErrCodeAssignmentNotFound ErrorCode = "ASSIGNMENT_NOT_FOUND"

	ErrCodeTicketAlreadyAssigned ErrorCode = "TICKET_ALREADY_ASSIGNED"
	ErrCodeInvalidTransition     ErrorCode = "INVALID_TRANSITION"
	ErrCodeContractorAtCapacity  ErrorCode = "CONTRACTOR_AT_CAPACITY"
	ErrCodeAssignmentContention  ErrorCode = "ASSIGNMENT_CONTENTION"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeQueryTimeout             ErrorCode = "QUERY_TIMEOUT"

	ErrCodeSearchQueryFailed ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeSearchTimeout     ErrorCode = "SEARCH_TIMEOUT"
	ErrCodeIndexNotFound     ErrorCode = "INDEX_NOT_FOUND"

	ErrCodeCacheUnavailable ErrorCode = "CACHE_UNAVAILABLE"
)

// Category classifies an error for HTTP mapping and metrics.
type Category string

const (
	CategoryValidation     Category = "VALIDATION"
	CategoryNotFound       Category = "NOT_FOUND"
	CategoryConflict       Category = "CONFLICT"
	CategoryInfrastructure Category = "INFRASTRUCTURE"
)

// ServiceError represents a structured application error.
type ServiceError struct {
	Code      ErrorCode              `json:"code"`
	Category  Category               `json:"category"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("ServiceError[%s]: %s", e.Code, e.Message)
}

// HTTPStatus maps the error category to an HTTP status code.
func (e *ServiceError) HTTPStatus() int {
	switch e.Category {
	case CategoryValidation:
		return http.StatusBadRequest
	case CategoryNotFound:
		return http.StatusNotFound
	case CategoryConflict:
		return http.StatusConflict
	case CategoryInfrastructure:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ==========================
// 2. Error Constructors
// ==========================

// NewInvalidTicketError creates a non-retryable validation error for a malformed ticket.
func NewInvalidTicketError(details string) *ServiceError {
	return &ServiceError{
		Code:      ErrCodeInvalidTicket,
		Category:  CategoryValidation,
		Message:   "Ticket failed validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidCoordinatesError creates a non-retryable validation error for out-of-range coordinates.
func NewInvalidCoordinatesError(lat, lon float64) *ServiceError {
	return &ServiceError{
		Code:      ErrCodeInvalidCoordinates,
		Category:  CategoryValidation,
		Message:   "Coordinates out of valid range",
		Details:   fmt.Sprintf("latitude: %f, longitude: %f", lat, lon),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidTradeError creates a non-retryable validation error for an unknown trade.
func NewInvalidTradeError(trade string) *ServiceError {
	return &ServiceError{
		Code:      ErrCodeInvalidTrade,
		Category:  CategoryValidation,
		Message:   "Unknown trade category",
		Details:   fmt.Sprintf("trade: %s", trade),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidWeightsError creates a non-retryable validation error for scoring weights.
func NewInvalidWeightsError(details string) *ServiceError {
	return &ServiceError{
		Code:      ErrCodeInvalidWeights,
		Category:  CategoryValidation,
		Message:   "Scoring weights are invalid",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidRequestError creates a non-retryable validation error for a malformed request body.
func NewInvalidRequestError(details string) *ServiceError {
	return &ServiceError{
		Code:      ErrCodeInvalidRequest,
		Category:  CategoryValidation,
		Message:   "Request failed validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTicketNotFoundError creates a non-retryable not found error.
func NewTicketNotFoundError(ticketID string) *ServiceError {
	return &ServiceError{
		Code:      ErrCodeTicketNotFound,
		Category:  CategoryNotFound,
		Message:   "Ticket not found",
		Details:   fmt.Sprintf("ticketId: %s", ticketID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewContractorNotFoundError creates a non-retryable not found error.
func NewContractorNotFoundError(contractorID string) *ServiceError {
	return &ServiceError{
		Code:      ErrCodeContractorNotFound,
		Category:  CategoryNotFound,
		Message:   "Contractor not found",
		Details:   fmt.Sprintf("contractorId: %s", contractorID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAssignmentNotFoundError creates a non-retryable not found error.
func NewAssignmentNotFoundError(ticketID string) *ServiceError {
	return &ServiceError{
		Code:      ErrCodeAssignmentNotFound,
		Category:  CategoryNotFound,
		Message:   "No active assignment for ticket",
		Details:   fmt.Sprintf("ticketId: %s", ticketID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTicketAlreadyAssignedError creates a conflict error for a ticket that already has a contractor.
func NewTicketAlreadyAssignedError(ticketID, contractorID string) *ServiceError {
	return &ServiceError{
		Code:      ErrCodeTicketAlreadyAssigned,
		Category:  CategoryConflict,
		Message:   "Ticket is already assigned",
		Details:   fmt.Sprintf("ticketId: %s, assignedContractorId: %s", ticketID, contractorID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidTransitionError creates a conflict error for an illegal state transition.
func NewInvalidTransitionError(from, to string) *ServiceError {
	return &ServiceError{
		Code:      ErrCodeInvalidTransition,
		Category:  CategoryConflict,
		Message:   "Illegal ticket state transition",
		Details:   fmt.Sprintf("from: %s, to: %s", from, to),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewContractorAtCapacityError creates a conflict error for a contractor at max concurrent jobs.
func NewContractorAtCapacityError(contractorID string) *ServiceError {
	return &ServiceError{
		Code:      ErrCodeContractorAtCapacity,
		Category:  CategoryConflict,
		Message:   "Contractor is at maximum concurrent jobs",
		Details:   fmt.Sprintf("contractorId: %s", contractorID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAssignmentContentionError creates a retryable conflict error for a lost serialization race.
func NewAssignmentContentionError(ticketID string, err error) *ServiceError {
	return &ServiceError{
		Code:      ErrCodeAssignmentContention,
		Category:  CategoryConflict,
		Message:   "Concurrent assignment attempt lost",
		Details:   fmt.Sprintf("ticketId: %s, error: %s", ticketID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *ServiceError {
	return &ServiceError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Category:  CategoryInfrastructure,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(queryType string, err error) *ServiceError {
	return &ServiceError{
		Code:      ErrCodeQueryExecutionFailed,
		Category:  CategoryInfrastructure,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("queryType: %s, error: %s", queryType, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryTimeoutError creates a retryable query timeout error.
func NewQueryTimeoutError(queryType string) *ServiceError {
	return &ServiceError{
		Code:      ErrCodeQueryTimeout,
		Category:  CategoryInfrastructure,
		Message:   "Database query timeout",
		Details:   fmt.Sprintf("queryType: %s", queryType),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSearchQueryFailedError creates a retryable search query error.
func NewSearchQueryFailedError(queryType string, err error) *ServiceError {
	return &ServiceError{
		Code:      ErrCodeSearchQueryFailed,
		Category:  CategoryInfrastructure,
		Message:   "Elasticsearch query error",
		Details:   fmt.Sprintf("queryType: %s, error: %s", queryType, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSearchTimeoutError creates a retryable search timeout error.
func NewSearchTimeoutError(queryType string) *ServiceError {
	return &ServiceError{
		Code:      ErrCodeSearchTimeout,
		Category:  CategoryInfrastructure,
		Message:   "Elasticsearch query timeout",
		Details:   fmt.Sprintf("queryType: %s", queryType),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewIndexNotFoundError creates a non-retryable index not found error.
func NewIndexNotFoundError(indexName string) *ServiceError {
	return &ServiceError{
		Code:      ErrCodeIndexNotFound,
		Category:  CategoryInfrastructure,
		Message:   "Elasticsearch index not found",
		Details:   fmt.Sprintf("indexName: %s", indexName),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCacheUnavailableError creates a retryable cache error. Callers are expected
// to treat this as a miss rather than fail the request.
func NewCacheUnavailableError(operation string, err error) *ServiceError {
	return &ServiceError{
		Code:      ErrCodeCacheUnavailable,
		Category:  CategoryInfrastructure,
		Message:   "Redis operation failed",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// Generic constructors

func NewExternalServiceError(service string, err error) *ServiceError {
	return &ServiceError{
		Code:      "EXTERNAL_SERVICE_ERROR",
		Category:  CategoryInfrastructure,
		Message:   fmt.Sprintf("External service '%s' error", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewTimeoutError(service string, err error) *ServiceError {
	return &ServiceError{
		Code:      "TIMEOUT_ERROR",
		Category:  CategoryInfrastructure,
		Message:   fmt.Sprintf("Service '%s' timeout", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// AsServiceError extracts a *ServiceError from err, wrapping unknown errors
// as infrastructure errors so callers always have a category to map.
func AsServiceError(err error) *ServiceError {
	if svcErr, ok := err.(*ServiceError); ok {
		return svcErr
	}
	return &ServiceError{
		Code:      "INTERNAL_ERROR",
		Category:  CategoryInfrastructure,
		Message:   "Internal error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// GetRetryCount returns the recommended retry count for an error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeSearchQueryFailed,
		ErrCodeCacheUnavailable:
		return 3 // Retryable technical errors

	case ErrCodeQueryTimeout,
		ErrCodeSearchTimeout:
		return 2 // Partial retry for timeouts

	case ErrCodeAssignmentContention:
		return 1 // One immediate re-read, then surface the conflict

	default:
		return 0 // Business errors: no retry
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns a coarse grouping of the error code for metrics labels.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "TICKET") || strings.Contains(codeStr, "ASSIGNMENT") || strings.Contains(codeStr, "TRANSITION"):
		return "ASSIGNMENT"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY"):
		return "DATABASE"
	case strings.Contains(codeStr, "SEARCH") || strings.Contains(codeStr, "INDEX"):
		return "SEARCH"
	case strings.Contains(codeStr, "CACHE"):
		return "CACHE"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}

// internal/common/errors/errors_test.go
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    *ServiceError
		status int
	}{
		{"validation is 400", NewInvalidRequestError("bad body"), http.StatusBadRequest},
		{"not found is 404", NewTicketNotFoundError("t1"), http.StatusNotFound},
		{"conflict is 409", NewTicketAlreadyAssignedError("t1", "c1"), http.StatusConflict},
		{"contention is 409", NewAssignmentContentionError("t1", errors.New("40001")), http.StatusConflict},
		{"infrastructure is 503", NewQueryExecutionFailedError("lookup", errors.New("down")), http.StatusServiceUnavailable},
		{"unknown category is 500", &ServiceError{Category: "MYSTERY"}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.HTTPStatus())
		})
	}
}

func TestErrorString(t *testing.T) {
	err := NewContractorNotFoundError("c1")
	assert.Contains(t, err.Error(), string(ErrCodeContractorNotFound))
	assert.Contains(t, err.Error(), "Contractor not found")
}

func TestAsServiceError(t *testing.T) {
	svcErr := NewInvalidTradeError("roofing")
	assert.Same(t, svcErr, AsServiceError(svcErr))

	wrapped := AsServiceError(fmt.Errorf("plain failure"))
	assert.Equal(t, CategoryInfrastructure, wrapped.Category)
	assert.Equal(t, "plain failure", wrapped.Details)
}

func TestRetrySemantics(t *testing.T) {
	assert.Equal(t, 3, GetRetryCount(ErrCodeDatabaseConnectionFailed))
	assert.Equal(t, 2, GetRetryCount(ErrCodeSearchTimeout))
	assert.Equal(t, 1, GetRetryCount(ErrCodeAssignmentContention))
	assert.Equal(t, 0, GetRetryCount(ErrCodeTicketAlreadyAssigned))

	assert.True(t, IsRetryableErrorCode(ErrCodeCacheUnavailable))
	assert.False(t, IsRetryableErrorCode(ErrCodeInvalidTrade))

	assert.True(t, NewAssignmentContentionError("t1", errors.New("race")).Retryable)
	assert.False(t, NewTicketAlreadyAssignedError("t1", "c1").Retryable)
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "ASSIGNMENT", GetErrorCategory(ErrCodeTicketAlreadyAssigned))
	assert.Equal(t, "DATABASE", GetErrorCategory(ErrCodeQueryTimeout))
	assert.Equal(t, "SEARCH", GetErrorCategory(ErrCodeIndexNotFound))
	assert.Equal(t, "CACHE", GetErrorCategory(ErrCodeCacheUnavailable))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeInvalidWeights))
}

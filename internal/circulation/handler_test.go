// internal/circulation/handler_test.go
package circulation

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"libraflow/internal/inventory"
)

func TestWriteDomainErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"unknown status filter", fmt.Errorf("%w: %q", ErrInvalidStatusFilter, "bogus"), http.StatusBadRequest},
		{"loan not found", ErrLoanNotFound, http.StatusNotFound},
		{"book not found", inventory.ErrBookNotFound, http.StatusNotFound},
		{"no copies available", inventory.ErrUnavailable, http.StatusConflict},
		{"already borrowed", ErrAlreadyBorrowed, http.StatusConflict},
		{"already returned", ErrAlreadyReturned, http.StatusConflict},
		{"version conflict", ErrConflict, http.StatusConflict},
		{"loan limit", ErrLimitExceeded, http.StatusUnprocessableEntity},
		{"invalid state", ErrInvalidState, http.StatusUnprocessableEntity},
		{"renewal limit", ErrRenewalLimitExceeded, http.StatusUnprocessableEntity},
		{"opaque storage error", errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeDomainError(rec, tc.err)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

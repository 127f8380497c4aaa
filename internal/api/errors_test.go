package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"upi-pay-simulator-go/internal/store"
	"upi-pay-simulator-go/internal/transfer"
	"upi-pay-simulator-go/internal/validator"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		status    int
		code      string
		retryable bool
	}{
		{
			name:      "settlement failure wrapping a missing account",
			err:       fmt.Errorf("%w: %w", transfer.ErrSettlementFailed, store.ErrAccountNotFound),
			status:    http.StatusInternalServerError,
			code:      "SETTLEMENT_FAILED",
			retryable: true,
		},
		{
			name:   "lost commit",
			err:    fmt.Errorf("%w: %v", transfer.ErrSettlementUnknown, store.ErrCommitUnknown),
			status: http.StatusInternalServerError,
			code:   "SETTLEMENT_STATUS_UNKNOWN",
		},
		{
			name:   "missing account outside a transfer",
			err:    fmt.Errorf("%w: 42", store.ErrAccountNotFound),
			status: http.StatusNotFound,
			code:   "ACCOUNT_NOT_FOUND",
		},
		{
			name:   "reserved identifier",
			err:    fmt.Errorf("%w: 9111111111@paytm", ErrIdentifierReserved),
			status: http.StatusConflict,
			code:   "IDENTIFIER_RESERVED",
		},
		{
			name:   "registration validation",
			err:    validator.ErrInvalidPhone,
			status: http.StatusBadRequest,
			code:   "INVALID_PHONE",
		},
		{
			name:      "unknown",
			err:       errors.New("boom"),
			status:    http.StatusInternalServerError,
			code:      "INTERNAL_ERROR",
			retryable: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := classify(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, body.Code)
			assert.Equal(t, tt.retryable, body.Retryable)
		})
	}
}

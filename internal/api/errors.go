package api

import (
	"errors"
	"net/http"

	"upi-pay-simulator-go/internal/session"
	"upi-pay-simulator-go/internal/store"
	"upi-pay-simulator-go/internal/transfer"
	"upi-pay-simulator-go/internal/validator"
)

var (
	ErrInvalidRequest     = errors.New("invalid request")
	ErrInvalidCredentials = errors.New("invalid phone number or PIN")
	ErrForbidden          = errors.New("forbidden")
	ErrAdminDisabled      = errors.New("admin endpoints are disabled")
	ErrIdentifierReserved = errors.New("payment identifier is reserved for another phone number")
)

type apiError struct {
	err       error
	status    int
	code      string
	reason    string
	retryable bool
}

var apiErrors = []apiError{
	{ErrInvalidRequest, http.StatusBadRequest, "INVALID_REQUEST", "Malformed request", false},
	{ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid phone number or PIN", false},
	{session.ErrExpired, http.StatusUnauthorized, "SESSION_EXPIRED", "Session expired, please log in again", false},
	{session.ErrUnauthenticated, http.StatusUnauthorized, "UNAUTHENTICATED", "Authentication required", false},
	{ErrForbidden, http.StatusForbidden, "FORBIDDEN", "Not allowed to access this resource", false},
	{ErrAdminDisabled, http.StatusForbidden, "ADMIN_DISABLED", "Admin endpoints are disabled", false},
	{validator.ErrInvalidName, http.StatusBadRequest, "INVALID_NAME", "Name must be 1 to 100 characters", false},
	{validator.ErrInvalidPhone, http.StatusBadRequest, "INVALID_PHONE", "Phone must be a 10 digit Indian mobile number", false},
	{validator.ErrInvalidEmail, http.StatusBadRequest, "INVALID_EMAIL", "Invalid email address", false},
	{store.ErrDuplicateAccount, http.StatusConflict, "ACCOUNT_EXISTS", "An account with this phone or email already exists", false},
	{ErrIdentifierReserved, http.StatusConflict, "IDENTIFIER_RESERVED", "Identifiers of the form <phone>@<provider> belong to that phone number", false},
	{store.ErrIdentifierTaken, http.StatusConflict, "IDENTIFIER_TAKEN", "Payment identifier is already registered", false},
	{store.ErrIdentifierNotFound, http.StatusNotFound, "IDENTIFIER_NOT_FOUND", "Payment identifier not found on this account", false},
	{store.ErrTransactionNotFound, http.StatusNotFound, "TRANSACTION_NOT_FOUND", "Transaction not found", false},
	{store.ErrAccountNotFound, http.StatusNotFound, "ACCOUNT_NOT_FOUND", "Account not found", false},
}

// transferStatus maps transfer error codes to HTTP statuses.
var transferStatus = map[string]int{
	"INVALID_IDENTIFIER":   http.StatusBadRequest,
	"AMOUNT_OVER_LIMIT":    http.StatusBadRequest,
	"INVALID_AMOUNT":       http.StatusBadRequest,
	"INVALID_PIN_FORMAT":   http.StatusBadRequest,
	"VALIDATION_ERROR":     http.StatusBadRequest,
	"IDEMPOTENCY_CONFLICT": http.StatusConflict,
	"ACCOUNT_NOT_FOUND":    http.StatusNotFound,
	"ACCOUNT_LOCKED":       http.StatusLocked,
	"INVALID_PIN":          http.StatusUnauthorized,
	"DAILY_LIMIT_EXCEEDED": http.StatusForbidden,
	"INSUFFICIENT_BALANCE": http.StatusBadRequest,
	"RECIPIENT_NOT_FOUND":  http.StatusNotFound,
	"RECIPIENT_LOCKED":     http.StatusLocked,
	"SELF_TRANSFER":        http.StatusBadRequest,
	"DUPLICATE_REFERENCE":  http.StatusInternalServerError,
	"SETTLEMENT_FAILED":    http.StatusInternalServerError,

	"SETTLEMENT_STATUS_UNKNOWN": http.StatusInternalServerError,
}

// classify resolves err to its HTTP status and client-facing error body.
// Transfer codes win so a wrapped storage cause never relabels a transfer outcome.
func classify(err error) (int, *errorBody) {
	code := transfer.Code(err)
	if status, ok := transferStatus[code]; ok {
		return status, &errorBody{Code: code, Reason: transfer.Reason(err), Retryable: transfer.Retryable(err)}
	}

	for _, e := range apiErrors {
		if errors.Is(err, e.err) {
			return e.status, &errorBody{Code: e.code, Reason: e.reason, Retryable: e.retryable}
		}
	}
	return http.StatusInternalServerError, &errorBody{
		Code:      "INTERNAL_ERROR",
		Reason:    "Internal error, please retry",
		Retryable: true,
	}
}

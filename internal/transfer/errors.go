/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package transfer

import (
	"errors"

	"upi-pay-simulator-go/internal/validator"
)

// Sentinel errors for every way a transfer can end other than success
var (
	ErrValidation          = errors.New("validation failed")
	ErrAccountNotFound     = errors.New("sender account not found")
	ErrAccountLocked       = errors.New("sender account is locked")
	ErrInvalidPin          = errors.New("invalid PIN")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrDailyLimitExceeded  = errors.New("daily transfer limit exceeded")
	ErrRecipientNotFound   = errors.New("recipient not found")
	ErrRecipientLocked     = errors.New("recipient account is locked")
	ErrSelfTransfer        = errors.New("cannot transfer to own account")
	ErrIdempotencyConflict = errors.New("idempotency key reused with a different request")
	ErrSettlementFailed    = errors.New("settlement failed")
	ErrSettlementUnknown   = errors.New("settlement outcome unknown")
	ErrDuplicateReference  = errors.New("duplicate reference id")
)

// Failure reasons stored on FAILED ledger rows and returned to clients
const (
	ReasonRecipientNotFound = "Invalid recipient identifier"
	ReasonRecipientLocked   = "Recipient account is locked"
	ReasonSelfTransfer      = "Cannot transfer to your own account"

	// NoDebitNotice accompanies recorded failures so the client knows no money moved.
	NoDebitNotice = "No amount was debited from your account."

	// UnknownOutcomeNotice replaces NoDebitNotice when the commit result was lost.
	UnknownOutcomeNotice = "The payment may have completed. Check your transaction history before paying again."
)

var reasons = []struct {
	err    error
	code   string
	reason string
}{
	{validator.ErrInvalidIdentifier, "INVALID_IDENTIFIER", "Invalid payment identifier format"},
	{validator.ErrAmountOverLimit, "AMOUNT_OVER_LIMIT", "Amount exceeds the per-transaction limit"},
	{validator.ErrInvalidAmount, "INVALID_AMOUNT", "Amount must be a positive value with at most 2 decimal places"},
	{validator.ErrInvalidPinFormat, "INVALID_PIN_FORMAT", "PIN must be 4 to 6 digits"},
	{ErrIdempotencyConflict, "IDEMPOTENCY_CONFLICT", "Idempotency key was already used for a different payment"},
	{ErrValidation, "VALIDATION_ERROR", "Invalid payment request"},
	{ErrAccountNotFound, "ACCOUNT_NOT_FOUND", "Sender account not found"},
	{ErrAccountLocked, "ACCOUNT_LOCKED", "Sender account is locked"},
	{ErrInvalidPin, "INVALID_PIN", "Invalid PIN"},
	{ErrDailyLimitExceeded, "DAILY_LIMIT_EXCEEDED", "Daily transfer limit exceeded"},
	{ErrInsufficientBalance, "INSUFFICIENT_BALANCE", "Insufficient balance"},
	{ErrRecipientNotFound, "RECIPIENT_NOT_FOUND", ReasonRecipientNotFound},
	{ErrRecipientLocked, "RECIPIENT_LOCKED", ReasonRecipientLocked},
	{ErrSelfTransfer, "SELF_TRANSFER", ReasonSelfTransfer},
	{ErrDuplicateReference, "DUPLICATE_REFERENCE", "Could not allocate a unique reference, please retry"},
	{ErrSettlementUnknown, "SETTLEMENT_STATUS_UNKNOWN", "Payment status unknown, check your transaction history or retry with the same Idempotency-Key"},
	{ErrSettlementFailed, "SETTLEMENT_FAILED", "Settlement failed and no money was moved, please retry"},
}

// Reason returns the stable, human-readable reason for a transfer error.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return "Internal error, please retry"
}

// Code returns the machine-readable error code for a transfer error.
func Code(err error) string {
	if err == nil {
		return ""
	}
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.code
		}
	}
	return "INTERNAL_ERROR"
}

// Retryable reports whether the same request may succeed if sent again.
// Business-rule rejections are final; storage failures are not. An unknown
// commit outcome is not blindly retryable: only a retry with the same
// idempotency key is safe.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrSettlementFailed) || errors.Is(err, ErrDuplicateReference) {
		return true
	}
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return false
		}
	}
	return true
}

// Notice is the message sent alongside a failed transfer.
func Notice(err error) string {
	if errors.Is(err, ErrSettlementUnknown) {
		return UnknownOutcomeNotice
	}
	return NoDebitNotice
}

// IsRecorded reports whether the failure left a FAILED row in the ledger.
func IsRecorded(err error) bool {
	return errors.Is(err, ErrRecipientNotFound) ||
		errors.Is(err, ErrRecipientLocked) ||
		errors.Is(err, ErrSelfTransfer)
}

func errorForReason(reason string) error {
	switch reason {
	case ReasonRecipientNotFound:
		return ErrRecipientNotFound
	case ReasonRecipientLocked:
		return ErrRecipientLocked
	case ReasonSelfTransfer:
		return ErrSelfTransfer
	}
	return ErrSettlementFailed
}

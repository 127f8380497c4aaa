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

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus is the terminal state recorded for a transfer attempt
type TransactionStatus string

const (
	StatusSuccess TransactionStatus = "SUCCESS"
	StatusFailed  TransactionStatus = "FAILED"
	StatusPending TransactionStatus = "PENDING"
)

// Account represents a registered payer/payee and its wallet balance
type Account struct {
	Id                string              `db:"id" json:"id"`
	DisplayName       string              `db:"display_name" json:"displayName"`
	Phone             string              `db:"phone" json:"phone"`
	Email             string              `db:"email" json:"email"`
	PinHash           string              `db:"pin_hash" json:"-"`
	Balance           decimal.Decimal     `db:"balance_minor" json:"balance"`
	OpeningBalance    decimal.Decimal     `db:"opening_balance_minor" json:"-"`
	IsLocked          bool                `db:"is_locked" json:"isLocked"`
	FailedPinAttempts int                 `db:"failed_pin_attempts" json:"failedPinAttempts"`
	Identifiers       []PaymentIdentifier `json:"paymentIdentifiers,omitempty"`
	CreatedAt         time.Time           `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time           `db:"updated_at" json:"updatedAt"`
}

// DefaultIdentifier returns the account's default payment identifier, or "" if none was loaded
func (a *Account) DefaultIdentifier() string {
	for _, id := range a.Identifiers {
		if id.IsDefault {
			return id.Identifier
		}
	}
	return ""
}

// PaymentIdentifier is a "local@domain" alias (UPI ID) addressing an account
type PaymentIdentifier struct {
	Id         string    `db:"id" json:"id"`
	AccountId  string    `db:"account_id" json:"accountId"`
	Identifier string    `db:"identifier" json:"identifier"`
	IsDefault  bool      `db:"is_default" json:"isDefault"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// Transaction is the immutable ledger record of a single transfer attempt
type Transaction struct {
	Id                  string            `db:"id" json:"transactionId"`
	ReferenceId         string            `db:"reference_id" json:"referenceId"`
	FromAccountId       string            `db:"from_account_id" json:"fromAccountId"`
	ToAccountId         *string           `db:"to_account_id" json:"toAccountId"`
	ToPaymentIdentifier string            `db:"to_payment_identifier" json:"toPaymentIdentifier"`
	Amount              decimal.Decimal   `db:"amount_minor" json:"amount"`
	Description         string            `db:"description" json:"description,omitempty"`
	Status              TransactionStatus `db:"status" json:"status"`
	FailureReason       *string           `db:"failure_reason" json:"failureReason,omitempty"`
	IdempotencyKey      string            `db:"idempotency_key" json:"-"`
	CreatedAt           time.Time         `db:"created_at" json:"createdAt"`
}

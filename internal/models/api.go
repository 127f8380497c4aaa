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
	"github.com/shopspring/decimal"
)

// Direction of a transaction relative to the account viewing it
const (
	DirectionSent     = "sent"
	DirectionReceived = "received"
)

// TransactionView is a ledger row as seen by one of its parties
type TransactionView struct {
	Transaction
	Direction string `json:"direction"`
}

// TransactionPage is one page of an account's history, newest first
type TransactionPage struct {
	Transactions []TransactionView `json:"transactions"`
	Page         int               `json:"page"`
	Limit        int               `json:"limit"`
	Total        int               `json:"total"`
	HasMore      bool              `json:"hasMore"`
}

// TransactionStats aggregates ledger rows by status
type TransactionStats struct {
	TotalTransactions      int             `json:"totalTransactions"`
	SuccessfulTransactions int             `json:"successfulTransactions"`
	FailedTransactions     int             `json:"failedTransactions"`
	PendingTransactions    int             `json:"pendingTransactions"`
	TotalAmount            decimal.Decimal `json:"totalAmount"`
	AverageAmount          decimal.Decimal `json:"averageAmount"`
}

// AccountProfile is the externally visible projection of an Account
type AccountProfile struct {
	Id                 string              `json:"id"`
	DisplayName        string              `json:"displayName"`
	Phone              string              `json:"phone"`
	Email              string              `json:"email"`
	Balance            decimal.Decimal     `json:"balance"`
	IsLocked           bool                `json:"isLocked"`
	DefaultIdentifier  string              `json:"defaultIdentifier"`
	PaymentIdentifiers []PaymentIdentifier `json:"paymentIdentifiers"`
	QRPayload          string              `json:"qrPayload,omitempty"`
}

// ReconcileResult reports whether an account balance matches its ledger history
type ReconcileResult struct {
	AccountId  string          `json:"accountId"`
	Balance    decimal.Decimal `json:"balance"`
	Calculated decimal.Decimal `json:"calculated"`
	Difference decimal.Decimal `json:"difference"`
	Matched    bool            `json:"matched"`
}

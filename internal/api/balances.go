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

package api

import (
	"context"
	"fmt"

	"upi-pay-simulator-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// GetBalance returns the current balance for an account
func (s *PaymentService) GetBalance(ctx context.Context, accountId string) (decimal.Decimal, error) {
	if accountId == "" {
		return decimal.Zero, fmt.Errorf("%w: account_id is required", ErrInvalidRequest)
	}

	account, err := s.store.GetAccount(ctx, accountId)
	if err != nil {
		zap.L().Error("Failed to get account balance", zap.String("account_id", accountId), zap.Error(err))
		return decimal.Zero, err
	}

	return account.Balance, nil
}

// GetTransactionHistory returns one page of the caller's own history, newest first
func (s *PaymentService) GetTransactionHistory(ctx context.Context, callerId, accountId string, page, limit int) (*models.TransactionPage, error) {
	if callerId != accountId {
		return nil, ErrForbidden
	}

	page, limit = normalizePage(page, limit)
	offset := (page - 1) * limit

	transactions, err := s.store.ListAccountTransactions(ctx, accountId, limit, offset)
	if err != nil {
		zap.L().Error("Failed to get transaction history",
			zap.String("account_id", accountId),
			zap.Int("page", page),
			zap.Error(err))
		return nil, err
	}

	total, err := s.store.CountAccountTransactions(ctx, accountId)
	if err != nil {
		return nil, err
	}

	return &models.TransactionPage{
		Transactions: viewsFor(accountId, transactions),
		Page:         page,
		Limit:        limit,
		Total:        total,
		HasMore:      offset+len(transactions) < total,
	}, nil
}

// GetTransactionByReference returns a transaction the caller took part in
func (s *PaymentService) GetTransactionByReference(ctx context.Context, callerId, referenceId string) (*models.TransactionView, error) {
	txn, err := s.store.GetTransactionByReference(ctx, referenceId)
	if err != nil {
		return nil, err
	}

	isRecipient := txn.ToAccountId != nil && *txn.ToAccountId == callerId
	if txn.FromAccountId != callerId && !isRecipient {
		return nil, ErrForbidden
	}

	view := viewsFor(callerId, []models.Transaction{*txn})[0]
	return &view, nil
}

func (s *PaymentService) GetStats(ctx context.Context, accountId string) (*models.TransactionStats, error) {
	return s.store.GetTransactionStats(ctx, accountId)
}

func normalizePage(page, limit int) (int, int) {
	if limit <= 0 || limit > maxPageLimit {
		limit = defaultPageLimit
	}
	if page < 1 {
		page = 1
	}
	return page, limit
}

func viewsFor(accountId string, transactions []models.Transaction) []models.TransactionView {
	views := make([]models.TransactionView, len(transactions))
	for i, txn := range transactions {
		direction := models.DirectionReceived
		if txn.FromAccountId == accountId {
			direction = models.DirectionSent
		}
		views[i] = models.TransactionView{Transaction: txn, Direction: direction}
	}
	return views
}

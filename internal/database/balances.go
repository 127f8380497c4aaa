package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"upi-pay-simulator-go/internal/models"
	"upi-pay-simulator-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AdjustBalance applies delta outside of a settlement (admin credits, seeding)
func (s *Service) AdjustBalance(ctx context.Context, accountId string, delta decimal.Decimal) (decimal.Decimal, error) {
	zap.L().Debug("Adjusting balance", zap.String("account_id", accountId), zap.String("delta", delta.String()))
	return adjustBalance(ctx, s.db, accountId, delta, s.now())
}

// GetBalance returns the current balance for an account (O(1) lookup)
func (s *Service) GetBalance(ctx context.Context, accountId string) (decimal.Decimal, error) {
	zap.L().Debug("Getting balance", zap.String("account_id", accountId))

	var balanceMinor int64
	err := s.db.QueryRowContext(ctx, queryGetBalance, accountId).Scan(&balanceMinor)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("%w: %s", store.ErrAccountNotFound, accountId)
	}
	if err != nil {
		zap.L().Error("Failed to get balance", zap.String("account_id", accountId), zap.Error(err))
		return decimal.Zero, fmt.Errorf("failed to get balance: %w", err)
	}

	return fromMinor(balanceMinor), nil
}

// ReconcileAccount verifies that the stored balance equals the opening balance
// plus every successful credit minus every successful debit
func (s *Service) ReconcileAccount(ctx context.Context, accountId string) (*models.ReconcileResult, error) {
	zap.L().Debug("Reconciling balance", zap.String("account_id", accountId))

	var balanceMinor, openingMinor, receivedMinor, sentMinor int64
	err := s.db.QueryRowContext(ctx, queryReconcileBalance, accountId).
		Scan(&balanceMinor, &openingMinor, &receivedMinor, &sentMinor)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", store.ErrAccountNotFound, accountId)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to calculate balance from transactions: %w", err)
	}

	result := &models.ReconcileResult{
		AccountId:  accountId,
		Balance:    fromMinor(balanceMinor),
		Calculated: fromMinor(openingMinor + receivedMinor - sentMinor),
	}
	result.Difference = result.Balance.Sub(result.Calculated)
	result.Matched = result.Difference.IsZero()

	if !result.Matched {
		zap.L().Error("Balance reconciliation failed",
			zap.String("account_id", accountId),
			zap.String("current_balance", result.Balance.String()),
			zap.String("calculated_balance", result.Calculated.String()),
			zap.String("difference", result.Difference.String()))
	}
	return result, nil
}

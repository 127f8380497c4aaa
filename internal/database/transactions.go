package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"upi-pay-simulator-go/internal/models"
	"upi-pay-simulator-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var txn models.Transaction
	var toAccountId, failureReason, idempotencyKey sql.NullString
	var amountMinor int64
	var status string
	err := row.Scan(&txn.Id, &txn.ReferenceId, &txn.FromAccountId, &toAccountId, &txn.ToPaymentIdentifier,
		&amountMinor, &txn.Description, &status, &failureReason, &idempotencyKey, &txn.CreatedAt)
	if err != nil {
		return nil, err
	}

	txn.ToAccountId = stringPtr(toAccountId)
	txn.FailureReason = stringPtr(failureReason)
	txn.IdempotencyKey = idempotencyKey.String
	txn.Amount = fromMinor(amountMinor)
	txn.Status = models.TransactionStatus(status)
	txn.CreatedAt = txn.CreatedAt.UTC()
	return &txn, nil
}

// InsertTransaction records an attempt that does not move money (failed transfers).
// Successful transfers are written through WithinTransaction.
func (s *Service) InsertTransaction(ctx context.Context, txn *models.Transaction) error {
	return insertTransaction(ctx, s.db, txn)
}

func (s *Service) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	return s.getTransaction(ctx, queryGetTransactionById, id)
}

func (s *Service) GetTransactionByReference(ctx context.Context, referenceId string) (*models.Transaction, error) {
	return s.getTransaction(ctx, queryGetTransactionByReference, referenceId)
}

// GetTransactionByIdempotencyKey returns (nil, nil) when the caller has not used key before.
func (s *Service) GetTransactionByIdempotencyKey(ctx context.Context, fromAccountId, key string) (*models.Transaction, error) {
	txn, err := scanTransaction(s.db.QueryRowContext(ctx, queryGetTransactionByIdempotencyKey, fromAccountId, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction by idempotency key: %w", err)
	}
	return txn, nil
}

func (s *Service) getTransaction(ctx context.Context, query, key string) (*models.Transaction, error) {
	txn, err := scanTransaction(s.db.QueryRowContext(ctx, query, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", store.ErrTransactionNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return txn, nil
}

// ListAccountTransactions returns transactions sent or received by the account, newest first
func (s *Service) ListAccountTransactions(ctx context.Context, accountId string, limit, offset int) ([]models.Transaction, error) {
	zap.L().Debug("Getting transaction history",
		zap.String("account_id", accountId),
		zap.Int("limit", limit),
		zap.Int("offset", offset))

	return s.listTransactions(ctx, queryListAccountTransactions, accountId, limit, offset)
}

func (s *Service) CountAccountTransactions(ctx context.Context, accountId string) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, queryCountAccountTransactions, accountId).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

// ListAllTransactions returns one page of the whole ledger and its total size
func (s *Service) ListAllTransactions(ctx context.Context, limit, offset int) ([]models.Transaction, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, queryCountAllTransactions).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	transactions, err := s.listTransactions(ctx, queryListAllTransactions, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return transactions, total, nil
}

func (s *Service) listTransactions(ctx context.Context, query string, args ...any) ([]models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction history: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	transactions := []models.Transaction{}
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, *txn)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during transaction row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}

	return transactions, nil
}

// GetTransactionStats aggregates the ledger for one account, or for everyone when accountId is empty
func (s *Service) GetTransactionStats(ctx context.Context, accountId string) (*models.TransactionStats, error) {
	var row *sql.Row
	if accountId == "" {
		row = s.db.QueryRowContext(ctx, queryTransactionStatsSelect)
	} else {
		row = s.db.QueryRowContext(ctx, queryAccountTransactionStats, accountId)
	}

	var stats models.TransactionStats
	var totalMinor int64
	err := row.Scan(&stats.TotalTransactions, &stats.SuccessfulTransactions, &stats.FailedTransactions,
		&stats.PendingTransactions, &totalMinor)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction stats: %w", err)
	}

	stats.TotalAmount = fromMinor(totalMinor)
	stats.AverageAmount = decimal.Zero
	if stats.SuccessfulTransactions > 0 {
		stats.AverageAmount = stats.TotalAmount.Div(decimal.NewFromInt(int64(stats.SuccessfulTransactions))).Round(2)
	}
	return &stats, nil
}

// SumSentSince totals the successful transfers the account sent at or after since
func (s *Service) SumSentSince(ctx context.Context, accountId string, since time.Time) (decimal.Decimal, error) {
	var sentMinor int64
	if err := s.db.QueryRowContext(ctx, querySumSentSince, accountId, since.UTC()).Scan(&sentMinor); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum sent transactions: %w", err)
	}
	return fromMinor(sentMinor), nil
}

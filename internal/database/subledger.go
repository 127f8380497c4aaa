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

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"upi-pay-simulator-go/internal/models"
	"upi-pay-simulator-go/internal/store"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// querier is satisfied by both *sql.DB and *sql.Tx so the balance and ledger
// primitives run the same SQL inside or outside a settlement.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// txStore binds the settlement primitives to one database transaction
type txStore struct {
	tx  *sql.Tx
	now func() time.Time
}

var _ store.LedgerTx = (*txStore)(nil)

func (t *txStore) AdjustBalance(ctx context.Context, accountId string, delta decimal.Decimal) (decimal.Decimal, error) {
	return adjustBalance(ctx, t.tx, accountId, delta, t.now())
}

func (t *txStore) InsertTransaction(ctx context.Context, txn *models.Transaction) error {
	return insertTransaction(ctx, t.tx, txn)
}

// WithinTransaction runs fn in a single database transaction. Any error from fn
// rolls back every balance change and ledger row fn made. A failed commit is
// reported as store.ErrCommitUnknown since the server may have applied it.
func (s *Service) WithinTransaction(ctx context.Context, fn func(tx store.LedgerTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			zap.L().Warn("Failed to roll back transaction", zap.Error(err))
		}
	}()

	if err := fn(&txStore{tx: tx, now: s.now}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit transaction: %w", store.ErrCommitUnknown, err)
	}
	return nil
}

// adjustBalance applies delta with a single conditional UPDATE so concurrent
// adjustments on the same account serialize in the database, never in process.
func adjustBalance(ctx context.Context, q querier, accountId string, delta decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	deltaMinor, err := toMinor(delta)
	if err != nil {
		return decimal.Zero, err
	}

	var balanceMinor int64
	err = q.QueryRowContext(ctx, queryAdjustBalance, deltaMinor, now, accountId).Scan(&balanceMinor)
	if errors.Is(err, sql.ErrNoRows) {
		var exists int
		lookupErr := q.QueryRowContext(ctx, queryAccountExists, accountId).Scan(&exists)
		if errors.Is(lookupErr, sql.ErrNoRows) {
			return decimal.Zero, fmt.Errorf("%w: %s", store.ErrAccountNotFound, accountId)
		}
		if lookupErr != nil {
			return decimal.Zero, fmt.Errorf("failed to check account after rejected adjustment: %w", lookupErr)
		}
		return decimal.Zero, fmt.Errorf("%w: account %s cannot absorb %s", store.ErrInsufficientFunds, accountId, delta.String())
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to adjust balance: %w", err)
	}

	return fromMinor(balanceMinor), nil
}

// insertTransaction appends a ledger row. Rows are never updated afterwards.
func insertTransaction(ctx context.Context, q querier, txn *models.Transaction) error {
	amountMinor, err := toMinor(txn.Amount)
	if err != nil {
		return err
	}

	_, err = q.ExecContext(ctx, queryInsertTransaction,
		txn.Id, txn.ReferenceId, txn.FromAccountId, nullString(txn.ToAccountId), txn.ToPaymentIdentifier,
		amountMinor, txn.Description, string(txn.Status), nullString(txn.FailureReason),
		nullIfEmpty(txn.IdempotencyKey), txn.CreatedAt.UTC())
	if err != nil {
		switch uniqueViolation(err) {
		case uniqueReference:
			return fmt.Errorf("%w: %s", store.ErrDuplicateReference, txn.ReferenceId)
		case uniqueIdempotency:
			return fmt.Errorf("%w: %s", store.ErrDuplicateIdempotencyKey, txn.IdempotencyKey)
		}
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

// Unique index targets, named explicitly in the schema so both drivers report them.
const (
	uniqueNone        = ""
	uniqueOther       = "other"
	uniqueReference   = "reference"
	uniqueIdempotency = "idempotency"
	uniquePhone       = "phone"
	uniqueEmail       = "email"
	uniqueIdentifier  = "identifier"
)

var uniqueIndexTargets = map[string]string{
	"idx_transactions_reference":         uniqueReference,
	"idx_transactions_idempotency":       uniqueIdempotency,
	"idx_accounts_phone":                 uniquePhone,
	"idx_accounts_email":                 uniqueEmail,
	"idx_payment_identifiers_identifier": uniqueIdentifier,
}

// SQLite reports the columns rather than the index name.
var uniqueColumnTargets = []struct {
	columns string
	target  string
}{
	{"transactions.reference_id", uniqueReference},
	{"transactions.from_account_id, transactions.idempotency_key", uniqueIdempotency},
	{"accounts.phone", uniquePhone},
	{"accounts.email", uniqueEmail},
	{"payment_identifiers.identifier", uniqueIdentifier},
}

// uniqueViolation classifies a unique-constraint failure from either driver.
func uniqueViolation(err error) string {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		if sqliteErr.ExtendedCode != sqlite3.ErrConstraintUnique && sqliteErr.ExtendedCode != sqlite3.ErrConstraintPrimaryKey {
			return uniqueNone
		}
		msg := sqliteErr.Error()
		for _, c := range uniqueColumnTargets {
			if strings.Contains(msg, c.columns) {
				return c.target
			}
		}
		return uniqueOther
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != "23505" {
			return uniqueNone
		}
		if target, ok := uniqueIndexTargets[pgErr.ConstraintName]; ok {
			return target
		}
		return uniqueOther
	}

	return uniqueNone
}

// toMinor converts an amount to integer paise, rejecting sub-paisa precision.
func toMinor(amount decimal.Decimal) (int64, error) {
	shifted := amount.Shift(2)
	if !shifted.Equal(shifted.Truncate(0)) {
		return 0, fmt.Errorf("amount %s has more than 2 decimal places", amount.String())
	}
	return shifted.IntPart(), nil
}

func fromMinor(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

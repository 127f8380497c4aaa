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

	"upi-pay-simulator-go/internal/models"
	"upi-pay-simulator-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var account models.Account
	var balanceMinor, openingMinor int64
	err := row.Scan(&account.Id, &account.DisplayName, &account.Phone, &account.Email, &account.PinHash,
		&balanceMinor, &openingMinor, &account.IsLocked, &account.FailedPinAttempts,
		&account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return nil, err
	}

	account.Balance = fromMinor(balanceMinor)
	account.OpeningBalance = fromMinor(openingMinor)
	account.CreatedAt = account.CreatedAt.UTC()
	account.UpdatedAt = account.UpdatedAt.UTC()
	return &account, nil
}

// CreateAccount inserts the account and its default identifier in one transaction.
func (s *Service) CreateAccount(ctx context.Context, params store.CreateAccountParams) (*models.Account, error) {
	zap.L().Info("Creating account",
		zap.String("name", params.DisplayName),
		zap.String("phone", params.Phone),
		zap.String("email", params.Email))

	openingMinor, err := toMinor(params.OpeningBalance)
	if err != nil {
		return nil, err
	}
	if openingMinor < 0 {
		return nil, fmt.Errorf("opening balance cannot be negative, got %s", params.OpeningBalance.String())
	}

	identifier := strings.ToLower(strings.TrimSpace(params.DefaultIdentifier))
	if identifier == "" {
		return nil, fmt.Errorf("default payment identifier cannot be empty")
	}

	accountId := uuid.New().String()
	now := s.now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, queryInsertAccount,
		accountId, params.DisplayName, params.Phone, strings.ToLower(params.Email), params.PinHash,
		openingMinor, openingMinor, now, now)
	if err != nil {
		switch uniqueViolation(err) {
		case uniquePhone, uniqueEmail:
			return nil, fmt.Errorf("%w: %s / %s", store.ErrDuplicateAccount, params.Phone, params.Email)
		}
		zap.L().Error("Failed to insert account", zap.String("phone", params.Phone), zap.Error(err))
		return nil, fmt.Errorf("unable to insert account: %w", err)
	}

	_, err = tx.ExecContext(ctx, queryInsertIdentifier, uuid.New().String(), accountId, identifier, true, now)
	if err != nil {
		if uniqueViolation(err) == uniqueIdentifier {
			return nil, fmt.Errorf("%w: %s", store.ErrIdentifierTaken, identifier)
		}
		return nil, fmt.Errorf("unable to insert default identifier: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit account creation: %w", err)
	}

	zap.L().Info("Account created successfully",
		zap.String("id", accountId),
		zap.String("identifier", identifier),
		zap.String("opening_balance", params.OpeningBalance.String()))

	return s.GetAccount(ctx, accountId)
}

func (s *Service) GetAccount(ctx context.Context, accountId string) (*models.Account, error) {
	zap.L().Debug("Querying account by ID", zap.String("account_id", accountId))
	return s.getAccount(ctx, queryGetAccountById, accountId)
}

func (s *Service) GetAccountByPhone(ctx context.Context, phone string) (*models.Account, error) {
	zap.L().Debug("Querying account by phone", zap.String("phone", phone))
	return s.getAccount(ctx, queryGetAccountByPhone, phone)
}

func (s *Service) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	zap.L().Debug("Querying account by email", zap.String("email", email))
	return s.getAccount(ctx, queryGetAccountByEmail, email)
}

// FindAccountByIdentifier returns (nil, nil) when the identifier is not registered.
func (s *Service) FindAccountByIdentifier(ctx context.Context, identifier string) (*models.Account, error) {
	account, err := s.getAccount(ctx, queryFindAccountByIdentifier, strings.ToLower(strings.TrimSpace(identifier)))
	if errors.Is(err, store.ErrAccountNotFound) {
		return nil, nil
	}
	return account, err
}

func (s *Service) getAccount(ctx context.Context, query, key string) (*models.Account, error) {
	account, err := scanAccount(s.db.QueryRowContext(ctx, query, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrAccountNotFound, key)
		}
		zap.L().Error("Failed to query account", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("unable to query account: %w", err)
	}

	account.Identifiers, err = s.ListIdentifiers(ctx, account.Id)
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (s *Service) ListAccounts(ctx context.Context) ([]models.Account, error) {
	zap.L().Debug("Querying accounts")

	rows, err := s.db.QueryContext(ctx, queryListAccounts)
	if err != nil {
		zap.L().Error("Failed to query accounts", zap.Error(err))
		return nil, fmt.Errorf("unable to query accounts: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var accounts []models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			zap.L().Error("Failed to scan account row", zap.Error(err))
			return nil, fmt.Errorf("unable to scan account row: %w", err)
		}
		accounts = append(accounts, *account)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during account row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating account rows: %w", err)
	}

	byAccount, err := s.identifiersByAccount(ctx)
	if err != nil {
		return nil, err
	}
	for i := range accounts {
		accounts[i].Identifiers = byAccount[accounts[i].Id]
	}

	zap.L().Debug("Retrieved accounts", zap.Int("count", len(accounts)))
	return accounts, nil
}

func (s *Service) LockAccount(ctx context.Context, accountId string) error {
	zap.L().Warn("Locking account", zap.String("account_id", accountId))
	return s.execOnAccount(ctx, queryLockAccount, accountId)
}

// UnlockAccount clears the lock and the failed PIN counter.
func (s *Service) UnlockAccount(ctx context.Context, accountId string) error {
	zap.L().Info("Unlocking account", zap.String("account_id", accountId))
	return s.execOnAccount(ctx, queryUnlockAccount, accountId)
}

func (s *Service) ResetFailedAuth(ctx context.Context, accountId string) error {
	return s.execOnAccount(ctx, queryResetFailedAuth, accountId)
}

// RecordFailedAuth increments the failed PIN counter and locks the account
// once threshold is reached, in a single statement.
func (s *Service) RecordFailedAuth(ctx context.Context, accountId string, threshold int) (store.FailedAuth, error) {
	var result store.FailedAuth
	err := s.db.QueryRowContext(ctx, queryRecordFailedAuth, threshold, s.now(), accountId).Scan(&result.Attempts, &result.Locked)
	if errors.Is(err, sql.ErrNoRows) {
		return result, fmt.Errorf("%w: %s", store.ErrAccountNotFound, accountId)
	}
	if err != nil {
		return result, fmt.Errorf("failed to record failed PIN attempt: %w", err)
	}

	zap.L().Warn("Failed PIN attempt recorded",
		zap.String("account_id", accountId),
		zap.Int("attempts", result.Attempts),
		zap.Bool("locked", result.Locked))
	return result, nil
}

func (s *Service) execOnAccount(ctx context.Context, query, accountId string) error {
	result, err := s.db.ExecContext(ctx, query, s.now(), accountId)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("unable to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", store.ErrAccountNotFound, accountId)
	}
	return nil
}

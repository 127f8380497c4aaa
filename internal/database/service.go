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
	"fmt"
	"strings"
	"time"

	"upi-pay-simulator-go/internal/models"
	"upi-pay-simulator-go/internal/store"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.PaymentStore.
var _ store.PaymentStore = (*Service)(nil)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

type Service struct {
	db     *sql.DB
	driver string
	now    func() time.Time
}

func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	// Validate configuration
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}

	driver, dsn, err := dataSource(cfg)
	if err != nil {
		return nil, err
	}

	zap.L().Info("Opening database", zap.String("driver", driver), zap.String("file", cfg.Path))
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	// Set connection timeouts and limits
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test connection with timeout
	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			zap.L().Warn("Failed to close database after ping failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	service := &Service{db: db, driver: driver, now: utcNow}
	if err := service.initSchema(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			zap.L().Warn("Failed to close database after schema failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	zap.L().Info("Database service initialized successfully", zap.String("driver", driver))
	return service, nil
}

// dataSource picks the database/sql driver and DSN. SQLite runs in WAL mode with
// IMMEDIATE transactions so settlements take the write lock up front.
func dataSource(cfg models.DatabaseConfig) (string, string, error) {
	switch cfg.Driver {
	case "", DriverSQLite:
		if cfg.Path == "" {
			return "", "", fmt.Errorf("database path cannot be empty")
		}
		sep := "?"
		if strings.Contains(cfg.Path, "?") {
			sep = "&"
		}
		return DriverSQLite, cfg.Path + sep + "_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_txlock=immediate&_foreign_keys=on", nil
	case DriverPostgres:
		if cfg.URL == "" {
			return "", "", fmt.Errorf("database url cannot be empty for driver %s", DriverPostgres)
		}
		return DriverPostgres, cfg.URL, nil
	default:
		return "", "", fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func utcNow() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func (s *Service) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

// schema is portable between SQLite and Postgres. Money is stored in paise.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		display_name TEXT NOT NULL,
		phone TEXT NOT NULL,
		email TEXT NOT NULL,
		pin_hash TEXT NOT NULL,
		balance_minor BIGINT NOT NULL DEFAULT 0 CHECK (balance_minor >= 0),
		opening_balance_minor BIGINT NOT NULL DEFAULT 0,
		is_locked BOOLEAN NOT NULL DEFAULT FALSE,
		failed_pin_attempts INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_phone ON accounts(phone)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_email ON accounts(email)`,

	`CREATE TABLE IF NOT EXISTS payment_identifiers (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		identifier TEXT NOT NULL,
		is_default BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_payment_identifiers_identifier ON payment_identifiers(identifier)`,
	`CREATE INDEX IF NOT EXISTS idx_payment_identifiers_account ON payment_identifiers(account_id)`,

	// Append-only: no code path updates or deletes a row outside the administrative reset.
	`CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		reference_id TEXT NOT NULL,
		from_account_id TEXT NOT NULL REFERENCES accounts(id),
		to_account_id TEXT REFERENCES accounts(id),
		to_payment_identifier TEXT NOT NULL,
		amount_minor BIGINT NOT NULL CHECK (amount_minor > 0),
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		failure_reason TEXT,
		idempotency_key TEXT,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_reference ON transactions(reference_id)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_idempotency ON transactions(from_account_id, idempotency_key)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_from ON transactions(from_account_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_to ON transactions(to_account_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_status ON transactions(status)`,
}

func (s *Service) initSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// ResetDemoData deletes every transaction, identifier and account. Callers re-seed afterwards.
func (s *Service) ResetDemoData(ctx context.Context) error {
	zap.L().Warn("Resetting all payment data")

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin reset: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"transactions", "payment_identifiers", "accounts"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reset: %w", err)
	}
	return nil
}

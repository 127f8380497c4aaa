package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"upi-pay-simulator-go/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
)

func setupMockDb(t *testing.T) (*Service, sqlmock.Sqlmock, func()) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}

	fixed := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	service := &Service{db: db, driver: DriverSQLite, now: func() time.Time { return fixed }}

	cleanup := func() {
		db.Close()
	}
	return service, mock, cleanup
}

func TestWithinTransaction_CreditFailureRollsBack(t *testing.T) {
	service, mock, cleanup := setupMockDb(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE accounts`).
		WithArgs(int64(-10000), sqlmock.AnyArg(), "alice").
		WillReturnRows(sqlmock.NewRows([]string{"balance_minor"}).AddRow(int64(890000)))
	mock.ExpectQuery(`UPDATE accounts`).
		WithArgs(int64(10000), sqlmock.AnyArg(), "bob").
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	ctx := context.Background()
	err := service.WithinTransaction(ctx, func(tx store.LedgerTx) error {
		if _, err := tx.AdjustBalance(ctx, "alice", decimal.NewFromInt(-100)); err != nil {
			return err
		}
		_, err := tx.AdjustBalance(ctx, "bob", decimal.NewFromInt(100))
		return err
	})
	if err == nil {
		t.Fatal("Expected settlement error, got nil")
	}
	if errors.Is(err, store.ErrCommitUnknown) {
		t.Errorf("A failure before commit must not be reported as unknown: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestWithinTransaction_CommitFailure(t *testing.T) {
	service, mock, cleanup := setupMockDb(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("database is locked"))

	err := service.WithinTransaction(context.Background(), func(tx store.LedgerTx) error {
		return nil
	})
	if !errors.Is(err, store.ErrCommitUnknown) {
		t.Fatalf("Expected ErrCommitUnknown, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestAdjustBalance_RejectedUpdateDistinguishesMissingAccount(t *testing.T) {
	service, mock, cleanup := setupMockDb(t)
	defer cleanup()

	mock.ExpectQuery(`UPDATE accounts`).
		WithArgs(int64(-500), sqlmock.AnyArg(), "ghost").
		WillReturnRows(sqlmock.NewRows([]string{"balance_minor"}))
	mock.ExpectQuery(`SELECT 1 FROM accounts`).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))

	_, err := service.AdjustBalance(context.Background(), "ghost", decimal.NewFromInt(-5))
	if !errors.Is(err, store.ErrAccountNotFound) {
		t.Errorf("Expected ErrAccountNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

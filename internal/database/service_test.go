package database

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"upi-pay-simulator-go/internal/models"
	"upi-pay-simulator-go/internal/store"

	"github.com/shopspring/decimal"
)

func setupTestDb(t *testing.T) (*Service, func()) {
	t.Helper()

	cfg := models.DatabaseConfig{
		Driver:          DriverSQLite,
		Path:            filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns:    4,
		MaxIdleConns:    4,
		ConnMaxLifetime: time.Minute,
		ConnMaxIdleTime: time.Minute,
		PingTimeout:     5 * time.Second,
	}

	service, err := NewService(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	cleanup := func() {
		service.Close()
	}

	return service, cleanup
}

func createTestAccount(t *testing.T, service *Service, phone string, balance int64) *models.Account {
	t.Helper()

	account, err := service.CreateAccount(context.Background(), store.CreateAccountParams{
		DisplayName:       "User " + phone,
		Phone:             phone,
		Email:             phone + "@example.com",
		PinHash:           "hash",
		OpeningBalance:    decimal.NewFromInt(balance),
		DefaultIdentifier: phone + "@payease",
	})
	if err != nil {
		t.Fatalf("Failed to create account %s: %v", phone, err)
	}
	return account
}

func TestNewService_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  models.DatabaseConfig
	}{
		{"no open conns", models.DatabaseConfig{Driver: DriverSQLite, Path: "x.db", PingTimeout: time.Second}},
		{"no ping timeout", models.DatabaseConfig{Driver: DriverSQLite, Path: "x.db", MaxOpenConns: 1}},
		{"empty path", models.DatabaseConfig{Driver: DriverSQLite, MaxOpenConns: 1, PingTimeout: time.Second}},
		{"pgx without url", models.DatabaseConfig{Driver: DriverPostgres, MaxOpenConns: 1, PingTimeout: time.Second}},
		{"unknown driver", models.DatabaseConfig{Driver: "oracle", MaxOpenConns: 1, PingTimeout: time.Second}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewService(context.Background(), tt.cfg); err == nil {
				t.Errorf("Expected error for %s", tt.name)
			}
		})
	}
}

func TestNewService_SchemaIsIdempotent(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	if err := service.initSchema(context.Background()); err != nil {
		t.Fatalf("Re-running schema failed: %v", err)
	}
	if err := service.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
}

func TestResetDemoData(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	alice := createTestAccount(t, service, "9876543210", 1000)
	bob := createTestAccount(t, service, "9876543211", 1000)
	to := bob.Id
	if err := service.InsertTransaction(ctx, &models.Transaction{
		Id: "t1", ReferenceId: "TXN1", FromAccountId: alice.Id, ToAccountId: &to,
		ToPaymentIdentifier: "9876543211@payease", Amount: decimal.NewFromInt(1),
		Status: models.StatusSuccess, CreatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("InsertTransaction failed: %v", err)
	}

	if err := service.ResetDemoData(ctx); err != nil {
		t.Fatalf("ResetDemoData failed: %v", err)
	}

	accounts, err := service.ListAccounts(ctx)
	if err != nil {
		t.Fatalf("ListAccounts failed: %v", err)
	}
	if len(accounts) != 0 {
		t.Errorf("Expected no accounts after reset, got %d", len(accounts))
	}
	_, total, err := service.ListAllTransactions(ctx, 10, 0)
	if err != nil {
		t.Fatalf("ListAllTransactions failed: %v", err)
	}
	if total != 0 {
		t.Errorf("Expected no transactions after reset, got %d", total)
	}
}

func TestUniqueViolation_NonConstraintError(t *testing.T) {
	if got := uniqueViolation(fmt.Errorf("boom")); got != uniqueNone {
		t.Errorf("Expected no classification, got %q", got)
	}
}

func TestToMinor(t *testing.T) {
	tests := []struct {
		amount  string
		want    int64
		wantErr bool
	}{
		{"100", 10000, false},
		{"0.01", 1, false},
		{"99.5", 9950, false},
		{"-12.34", -1234, false},
		{"0.001", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			got, err := toMinor(decimal.RequireFromString(tt.amount))
			if (err != nil) != tt.wantErr {
				t.Fatalf("toMinor(%s) error = %v, wantErr %v", tt.amount, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("toMinor(%s) = %d, want %d", tt.amount, got, tt.want)
			}
			if !tt.wantErr && !fromMinor(got).Equal(decimal.RequireFromString(tt.amount)) {
				t.Errorf("fromMinor(%d) does not round-trip to %s", got, tt.amount)
			}
		})
	}
}

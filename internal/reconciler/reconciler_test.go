package reconciler

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"upi-pay-simulator-go/internal/database"
	"upi-pay-simulator-go/internal/metrics"
	"upi-pay-simulator-go/internal/models"
	"upi-pay-simulator-go/internal/store"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

func setupTestDb(t *testing.T) *database.Service {
	t.Helper()

	db, err := database.NewService(context.Background(), models.DatabaseConfig{
		Driver:          database.DriverSQLite,
		Path:            filepath.Join(t.TempDir(), "reconcile.db"),
		MaxOpenConns:    4,
		MaxIdleConns:    4,
		ConnMaxLifetime: time.Minute,
		ConnMaxIdleTime: time.Minute,
		PingTimeout:     5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(db.Close)
	return db
}

func createAccount(t *testing.T, db *database.Service, phone string) *models.Account {
	t.Helper()

	account, err := db.CreateAccount(context.Background(), store.CreateAccountParams{
		DisplayName:       "User " + phone,
		Phone:             phone,
		Email:             phone + "@example.com",
		PinHash:           "hash",
		OpeningBalance:    decimal.NewFromInt(1000),
		DefaultIdentifier: phone + "@payease",
	})
	if err != nil {
		t.Fatalf("Failed to create account: %v", err)
	}
	return account
}

func TestRunOnce_DetectsDrift(t *testing.T) {
	db := setupTestDb(t)
	clean := createAccount(t, db, "9000000001")
	drifted := createAccount(t, db, "9000000002")

	// A balance change with no ledger row behind it.
	if _, err := db.AdjustBalance(context.Background(), drifted.Id, decimal.NewFromInt(-25)); err != nil {
		t.Fatalf("Failed to adjust balance: %v", err)
	}

	registry := prometheus.NewRegistry()
	r := New(Config{Store: db, Metrics: metrics.NewMetrics(registry), Interval: time.Minute})

	report, err := r.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if report.Checked != 2 {
		t.Errorf("Expected 2 accounts checked, got %d", report.Checked)
	}
	if len(report.Mismatches) != 1 {
		t.Fatalf("Expected 1 mismatch, got %d", len(report.Mismatches))
	}
	mismatch := report.Mismatches[0]
	if mismatch.AccountId != drifted.Id || mismatch.AccountId == clean.Id {
		t.Errorf("Unexpected mismatched account %s", mismatch.AccountId)
	}
	if !mismatch.Difference.Equal(decimal.NewFromInt(-25)) {
		t.Errorf("Expected difference -25, got %s", mismatch.Difference)
	}

	if got := gaugeValue(t, registry, "upi_reconcile_mismatches"); got != 1 {
		t.Errorf("Expected mismatch gauge 1, got %v", got)
	}
}

type failingStore struct{}

func (failingStore) ListAccounts(context.Context) ([]models.Account, error) {
	return nil, errors.New("connection refused")
}

func (failingStore) ReconcileAccount(context.Context, string) (*models.ReconcileResult, error) {
	return nil, errors.New("unreachable")
}

func TestRunOnce_StoreError(t *testing.T) {
	r := New(Config{Store: failingStore{}, Interval: time.Minute})
	if _, err := r.RunOnce(context.Background()); err == nil {
		t.Error("Expected error when accounts cannot be listed")
	}
}

type countingSweeper struct {
	calls atomic.Int32
}

func (s *countingSweeper) Sweep() int {
	s.calls.Add(1)
	return 0
}

func TestStartStop(t *testing.T) {
	db := setupTestDb(t)
	createAccount(t, db, "9000000001")

	sweeper := &countingSweeper{}
	r := New(Config{
		Store:           db,
		Interval:        10 * time.Millisecond,
		Sweeper:         sweeper,
		CleanupInterval: 5 * time.Millisecond,
	})
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for sweeper.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	r.Stop()

	if sweeper.calls.Load() == 0 {
		t.Error("Expected the sweeper to run at least once")
	}
}

func TestStart_RejectsZeroInterval(t *testing.T) {
	r := New(Config{Store: failingStore{}})
	if err := r.Start(context.Background()); err == nil {
		t.Error("Expected error for zero interval")
	}
}

func gaugeValue(t *testing.T, registry *prometheus.Registry, name string) float64 {
	t.Helper()

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	for _, family := range families {
		if family.GetName() == name && len(family.GetMetric()) > 0 {
			return family.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatalf("Metric %s not registered", name)
	return 0
}

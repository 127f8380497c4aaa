package database

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"upi-pay-simulator-go/internal/models"
	"upi-pay-simulator-go/internal/store"

	"github.com/shopspring/decimal"
)

func TestAdjustBalance(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	account := createTestAccount(t, service, "9876543210", 100)

	balance, err := service.AdjustBalance(ctx, account.Id, decimal.RequireFromString("-40.25"))
	if err != nil {
		t.Fatalf("AdjustBalance failed: %v", err)
	}
	if !balance.Equal(decimal.RequireFromString("59.75")) {
		t.Errorf("Expected 59.75, got %s", balance)
	}

	stored, err := service.GetBalance(ctx, account.Id)
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if !stored.Equal(balance) {
		t.Errorf("Expected stored balance %s, got %s", balance, stored)
	}
}

func TestAdjustBalance_InsufficientFunds(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	account := createTestAccount(t, service, "9876543210", 100)

	_, err := service.AdjustBalance(ctx, account.Id, decimal.RequireFromString("-100.01"))
	if !errors.Is(err, store.ErrInsufficientFunds) {
		t.Fatalf("Expected ErrInsufficientFunds, got %v", err)
	}

	balance, err := service.GetBalance(ctx, account.Id)
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Rejected adjustment changed balance to %s", balance)
	}

	// Draining to exactly zero is allowed
	if _, err := service.AdjustBalance(ctx, account.Id, decimal.NewFromInt(-100)); err != nil {
		t.Errorf("Expected debit to zero to succeed, got %v", err)
	}
}

func TestAdjustBalance_AccountNotFound(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	_, err := service.AdjustBalance(context.Background(), "missing", decimal.NewFromInt(1))
	if !errors.Is(err, store.ErrAccountNotFound) {
		t.Errorf("Expected ErrAccountNotFound, got %v", err)
	}
	_, err = service.GetBalance(context.Background(), "missing")
	if !errors.Is(err, store.ErrAccountNotFound) {
		t.Errorf("Expected ErrAccountNotFound from GetBalance, got %v", err)
	}
}

func TestAdjustBalance_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	account := createTestAccount(t, service, "9876543210", 1000)

	const workers = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.AdjustBalance(ctx, account.Id, decimal.NewFromInt(-100))
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			} else if !errors.Is(err, store.ErrInsufficientFunds) {
				t.Errorf("Unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 10 {
		t.Errorf("Expected exactly 10 debits to succeed, got %d", succeeded)
	}
	balance, err := service.GetBalance(ctx, account.Id)
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if !balance.IsZero() {
		t.Errorf("Expected final balance 0, got %s", balance)
	}
}

func TestReconcileAccount(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	alice := createTestAccount(t, service, "9876543210", 1000)
	bob := createTestAccount(t, service, "9876543211", 1000)

	// Settle 250 from alice to bob the way the transfer engine does
	to := bob.Id
	err := service.WithinTransaction(ctx, func(tx store.LedgerTx) error {
		if _, err := tx.AdjustBalance(ctx, alice.Id, decimal.NewFromInt(-250)); err != nil {
			return err
		}
		if _, err := tx.AdjustBalance(ctx, bob.Id, decimal.NewFromInt(250)); err != nil {
			return err
		}
		return tx.InsertTransaction(ctx, &models.Transaction{
			Id: "t1", ReferenceId: "TXN1", FromAccountId: alice.Id, ToAccountId: &to,
			ToPaymentIdentifier: "9876543211@payease", Amount: decimal.NewFromInt(250),
			Status: models.StatusSuccess, CreatedAt: time.Now(),
		})
	})
	if err != nil {
		t.Fatalf("Settlement failed: %v", err)
	}

	for _, id := range []string{alice.Id, bob.Id} {
		result, err := service.ReconcileAccount(ctx, id)
		if err != nil {
			t.Fatalf("ReconcileAccount failed: %v", err)
		}
		if !result.Matched {
			t.Errorf("Expected account %s to reconcile, difference %s", id, result.Difference)
		}
	}

	// A balance change with no ledger row shows up as a mismatch
	if _, err := service.AdjustBalance(ctx, alice.Id, decimal.NewFromInt(5)); err != nil {
		t.Fatalf("AdjustBalance failed: %v", err)
	}
	result, err := service.ReconcileAccount(ctx, alice.Id)
	if err != nil {
		t.Fatalf("ReconcileAccount failed: %v", err)
	}
	if result.Matched || !result.Difference.Equal(decimal.NewFromInt(5)) {
		t.Errorf("Expected mismatch of 5, got matched=%v difference=%s", result.Matched, result.Difference)
	}

	if _, err := service.ReconcileAccount(ctx, "missing"); !errors.Is(err, store.ErrAccountNotFound) {
		t.Errorf("Expected ErrAccountNotFound, got %v", err)
	}
}

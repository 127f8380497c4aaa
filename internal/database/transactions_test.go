package database

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"upi-pay-simulator-go/internal/models"
	"upi-pay-simulator-go/internal/store"

	"github.com/shopspring/decimal"
)

func newTestTransaction(id, from string, to *string, amount int64, status models.TransactionStatus, at time.Time) *models.Transaction {
	txn := &models.Transaction{
		Id:                  id,
		ReferenceId:         "TXN-" + id,
		FromAccountId:       from,
		ToAccountId:         to,
		ToPaymentIdentifier: "someone@payease",
		Amount:              decimal.NewFromInt(amount),
		Description:         "test " + id,
		Status:              status,
		CreatedAt:           at,
	}
	if status == models.StatusFailed {
		reason := "Invalid recipient identifier"
		txn.FailureReason = &reason
	}
	return txn
}

func TestInsertTransaction_RoundTrip(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	alice := createTestAccount(t, service, "9876543210", 100)

	txn := newTestTransaction("t1", alice.Id, nil, 100, models.StatusFailed, time.Now().UTC().Truncate(time.Microsecond))
	txn.Amount = decimal.RequireFromString("12.34")
	if err := service.InsertTransaction(ctx, txn); err != nil {
		t.Fatalf("InsertTransaction failed: %v", err)
	}

	byId, err := service.GetTransaction(ctx, "t1")
	if err != nil {
		t.Fatalf("GetTransaction failed: %v", err)
	}
	byRef, err := service.GetTransactionByReference(ctx, "TXN-t1")
	if err != nil {
		t.Fatalf("GetTransactionByReference failed: %v", err)
	}

	if byId.ToAccountId != nil {
		t.Errorf("Expected nil recipient, got %v", *byId.ToAccountId)
	}
	if byId.FailureReason == nil || *byId.FailureReason != "Invalid recipient identifier" {
		t.Errorf("Unexpected failure reason %v", byId.FailureReason)
	}
	if !byId.Amount.Equal(txn.Amount) {
		t.Errorf("Expected amount %s, got %s", txn.Amount, byId.Amount)
	}
	if !byId.CreatedAt.Equal(txn.CreatedAt) {
		t.Errorf("Expected created_at %s, got %s", txn.CreatedAt, byId.CreatedAt)
	}
	if byId.Id != byRef.Id || byId.ReferenceId != byRef.ReferenceId {
		t.Errorf("Lookup by id and reference disagree: %+v vs %+v", byId, byRef)
	}

	if _, err := service.GetTransaction(ctx, "missing"); !errors.Is(err, store.ErrTransactionNotFound) {
		t.Errorf("Expected ErrTransactionNotFound, got %v", err)
	}
}

func TestInsertTransaction_DuplicateReference(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	alice := createTestAccount(t, service, "9876543210", 100)

	first := newTestTransaction("t1", alice.Id, nil, 10, models.StatusFailed, time.Now())
	if err := service.InsertTransaction(ctx, first); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	second := newTestTransaction("t2", alice.Id, nil, 10, models.StatusFailed, time.Now())
	second.ReferenceId = first.ReferenceId
	err := service.InsertTransaction(ctx, second)
	if !errors.Is(err, store.ErrDuplicateReference) {
		t.Fatalf("Expected ErrDuplicateReference, got %v", err)
	}
}

func TestInsertTransaction_IdempotencyKey(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	alice := createTestAccount(t, service, "9876543210", 100)
	bob := createTestAccount(t, service, "9876543211", 100)

	first := newTestTransaction("t1", alice.Id, nil, 10, models.StatusFailed, time.Now())
	first.IdempotencyKey = "key-1"
	if err := service.InsertTransaction(ctx, first); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	found, err := service.GetTransactionByIdempotencyKey(ctx, alice.Id, "key-1")
	if err != nil {
		t.Fatalf("GetTransactionByIdempotencyKey failed: %v", err)
	}
	if found == nil || found.Id != "t1" {
		t.Fatalf("Expected t1, got %+v", found)
	}

	missing, err := service.GetTransactionByIdempotencyKey(ctx, bob.Id, "key-1")
	if err != nil || missing != nil {
		t.Fatalf("Keys are scoped per sender, got %+v, %v", missing, err)
	}

	dup := newTestTransaction("t2", alice.Id, nil, 10, models.StatusFailed, time.Now())
	dup.IdempotencyKey = "key-1"
	if err := service.InsertTransaction(ctx, dup); !errors.Is(err, store.ErrDuplicateIdempotencyKey) {
		t.Errorf("Expected ErrDuplicateIdempotencyKey, got %v", err)
	}

	// Bob may reuse the same key, and rows without a key never collide
	other := newTestTransaction("t3", bob.Id, nil, 10, models.StatusFailed, time.Now())
	other.IdempotencyKey = "key-1"
	if err := service.InsertTransaction(ctx, other); err != nil {
		t.Errorf("Expected per-sender key to be accepted, got %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := service.InsertTransaction(ctx, newTestTransaction(fmt.Sprintf("n%d", i), alice.Id, nil, 10, models.StatusFailed, time.Now())); err != nil {
			t.Errorf("Insert without key failed: %v", err)
		}
	}
}

func TestListAccountTransactions_NewestFirst(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	alice := createTestAccount(t, service, "9876543210", 100)
	bob := createTestAccount(t, service, "9876543211", 100)
	carol := createTestAccount(t, service, "9876543212", 100)

	base := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	toBob, toAlice, toCarol := bob.Id, alice.Id, carol.Id
	rows := []*models.Transaction{
		newTestTransaction("t1", alice.Id, &toBob, 10, models.StatusSuccess, base),
		newTestTransaction("t2", bob.Id, &toAlice, 20, models.StatusSuccess, base.Add(time.Minute)),
		newTestTransaction("t3", bob.Id, &toCarol, 30, models.StatusSuccess, base.Add(2*time.Minute)),
		newTestTransaction("t4", alice.Id, nil, 40, models.StatusFailed, base.Add(3*time.Minute)),
	}
	for _, txn := range rows {
		if err := service.InsertTransaction(ctx, txn); err != nil {
			t.Fatalf("InsertTransaction failed: %v", err)
		}
	}

	history, err := service.ListAccountTransactions(ctx, alice.Id, 10, 0)
	if err != nil {
		t.Fatalf("ListAccountTransactions failed: %v", err)
	}
	want := []string{"t4", "t2", "t1"}
	if len(history) != len(want) {
		t.Fatalf("Expected %d transactions, got %d", len(want), len(history))
	}
	for i, id := range want {
		if history[i].Id != id {
			t.Errorf("Position %d: expected %s, got %s", i, id, history[i].Id)
		}
	}

	page, err := service.ListAccountTransactions(ctx, alice.Id, 1, 1)
	if err != nil {
		t.Fatalf("ListAccountTransactions page failed: %v", err)
	}
	if len(page) != 1 || page[0].Id != "t2" {
		t.Errorf("Expected second page to hold t2, got %+v", page)
	}

	count, err := service.CountAccountTransactions(ctx, alice.Id)
	if err != nil {
		t.Fatalf("CountAccountTransactions failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected 3 transactions for alice, got %d", count)
	}

	all, total, err := service.ListAllTransactions(ctx, 2, 0)
	if err != nil {
		t.Fatalf("ListAllTransactions failed: %v", err)
	}
	if total != 4 || len(all) != 2 || all[0].Id != "t4" {
		t.Errorf("Unexpected admin listing: total=%d rows=%d", total, len(all))
	}
}

func TestGetTransactionStats(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	alice := createTestAccount(t, service, "9876543210", 100)
	bob := createTestAccount(t, service, "9876543211", 100)

	toBob := bob.Id
	now := time.Now()
	for _, txn := range []*models.Transaction{
		newTestTransaction("t1", alice.Id, &toBob, 100, models.StatusSuccess, now),
		newTestTransaction("t2", alice.Id, &toBob, 50, models.StatusSuccess, now),
		newTestTransaction("t3", alice.Id, nil, 999, models.StatusFailed, now),
	} {
		if err := service.InsertTransaction(ctx, txn); err != nil {
			t.Fatalf("InsertTransaction failed: %v", err)
		}
	}

	stats, err := service.GetTransactionStats(ctx, alice.Id)
	if err != nil {
		t.Fatalf("GetTransactionStats failed: %v", err)
	}
	if stats.TotalTransactions != 3 || stats.SuccessfulTransactions != 2 || stats.FailedTransactions != 1 {
		t.Errorf("Unexpected counts: %+v", stats)
	}
	if !stats.TotalAmount.Equal(decimal.NewFromInt(150)) {
		t.Errorf("Expected total 150, got %s", stats.TotalAmount)
	}
	if !stats.AverageAmount.Equal(decimal.NewFromInt(75)) {
		t.Errorf("Expected average 75, got %s", stats.AverageAmount)
	}

	global, err := service.GetTransactionStats(ctx, "")
	if err != nil {
		t.Fatalf("GetTransactionStats global failed: %v", err)
	}
	if global.TotalTransactions != 3 {
		t.Errorf("Expected 3 transactions globally, got %d", global.TotalTransactions)
	}

	carol := createTestAccount(t, service, "9876543212", 100)
	empty, err := service.GetTransactionStats(ctx, carol.Id)
	if err != nil {
		t.Fatalf("GetTransactionStats empty failed: %v", err)
	}
	if empty.TotalTransactions != 0 || !empty.AverageAmount.IsZero() {
		t.Errorf("Expected empty stats, got %+v", empty)
	}
}

func TestSumSentSince(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	alice := createTestAccount(t, service, "9876543210", 100)
	bob := createTestAccount(t, service, "9876543211", 100)

	midnight := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	toBob, toAlice := bob.Id, alice.Id
	for _, txn := range []*models.Transaction{
		newTestTransaction("yesterday", alice.Id, &toBob, 500, models.StatusSuccess, midnight.Add(-time.Second)),
		newTestTransaction("today1", alice.Id, &toBob, 100, models.StatusSuccess, midnight),
		newTestTransaction("today2", alice.Id, &toBob, 25, models.StatusSuccess, midnight.Add(9*time.Hour)),
		newTestTransaction("failed", alice.Id, nil, 1000, models.StatusFailed, midnight.Add(time.Hour)),
		newTestTransaction("received", bob.Id, &toAlice, 70, models.StatusSuccess, midnight.Add(time.Hour)),
	} {
		if err := service.InsertTransaction(ctx, txn); err != nil {
			t.Fatalf("InsertTransaction failed: %v", err)
		}
	}

	sent, err := service.SumSentSince(ctx, alice.Id, midnight)
	if err != nil {
		t.Fatalf("SumSentSince failed: %v", err)
	}
	if !sent.Equal(decimal.NewFromInt(125)) {
		t.Errorf("Expected 125 sent today, got %s", sent)
	}
}

func TestWithinTransaction_RollsBackOnError(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	alice := createTestAccount(t, service, "9876543210", 100)
	bob := createTestAccount(t, service, "9876543211", 100)

	boom := errors.New("credit failed")
	err := service.WithinTransaction(ctx, func(tx store.LedgerTx) error {
		if _, err := tx.AdjustBalance(ctx, alice.Id, decimal.NewFromInt(-60)); err != nil {
			return err
		}
		if _, err := tx.AdjustBalance(ctx, bob.Id, decimal.NewFromInt(60)); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected callback error, got %v", err)
	}

	for _, account := range []*models.Account{alice, bob} {
		balance, err := service.GetBalance(ctx, account.Id)
		if err != nil {
			t.Fatalf("GetBalance failed: %v", err)
		}
		if !balance.Equal(decimal.NewFromInt(100)) {
			t.Errorf("Expected rolled back balance 100 for %s, got %s", account.Phone, balance)
		}
	}
}

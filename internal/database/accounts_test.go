package database

import (
	"context"
	"errors"
	"testing"

	"upi-pay-simulator-go/internal/store"

	"github.com/shopspring/decimal"
)

func TestCreateAccount(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	account := createTestAccount(t, service, "9876543210", 10000)

	if !account.Balance.Equal(decimal.NewFromInt(10000)) {
		t.Errorf("Expected balance 10000, got %s", account.Balance)
	}
	if !account.OpeningBalance.Equal(account.Balance) {
		t.Errorf("Expected opening balance to equal balance, got %s", account.OpeningBalance)
	}
	if account.IsLocked || account.FailedPinAttempts != 0 {
		t.Errorf("New account should be unlocked with no failures, got locked=%v attempts=%d",
			account.IsLocked, account.FailedPinAttempts)
	}
	if got := account.DefaultIdentifier(); got != "9876543210@payease" {
		t.Errorf("Expected default identifier 9876543210@payease, got %q", got)
	}
	if len(account.Identifiers) != 1 {
		t.Errorf("Expected exactly one identifier, got %d", len(account.Identifiers))
	}
}

func TestCreateAccount_Duplicates(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	createTestAccount(t, service, "9876543210", 100)

	_, err := service.CreateAccount(ctx, store.CreateAccountParams{
		DisplayName: "Dup", Phone: "9876543210", Email: "other@example.com", PinHash: "h",
		OpeningBalance: decimal.Zero, DefaultIdentifier: "other@payease",
	})
	if !errors.Is(err, store.ErrDuplicateAccount) {
		t.Errorf("Expected ErrDuplicateAccount for duplicate phone, got %v", err)
	}

	_, err = service.CreateAccount(ctx, store.CreateAccountParams{
		DisplayName: "Dup", Phone: "9876543219", Email: "9876543210@EXAMPLE.com", PinHash: "h",
		OpeningBalance: decimal.Zero, DefaultIdentifier: "other@payease",
	})
	if !errors.Is(err, store.ErrDuplicateAccount) {
		t.Errorf("Expected ErrDuplicateAccount for duplicate email, got %v", err)
	}

	_, err = service.CreateAccount(ctx, store.CreateAccountParams{
		DisplayName: "Dup", Phone: "9876543219", Email: "new@example.com", PinHash: "h",
		OpeningBalance: decimal.Zero, DefaultIdentifier: "9876543210@payease",
	})
	if !errors.Is(err, store.ErrIdentifierTaken) {
		t.Errorf("Expected ErrIdentifierTaken, got %v", err)
	}

	// The failed registration must not leave a half-created account behind
	if _, err := service.GetAccountByPhone(ctx, "9876543219"); !errors.Is(err, store.ErrAccountNotFound) {
		t.Errorf("Expected rolled back account, got %v", err)
	}
}

func TestGetAccount_NotFound(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	_, err := service.GetAccount(context.Background(), "missing")
	if !errors.Is(err, store.ErrAccountNotFound) {
		t.Errorf("Expected ErrAccountNotFound, got %v", err)
	}
}

func TestFindAccountByIdentifier(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	created := createTestAccount(t, service, "9876543210", 100)

	found, err := service.FindAccountByIdentifier(ctx, " 9876543210@PayEase ")
	if err != nil {
		t.Fatalf("FindAccountByIdentifier failed: %v", err)
	}
	if found == nil || found.Id != created.Id {
		t.Fatalf("Expected account %s, got %+v", created.Id, found)
	}

	missing, err := service.FindAccountByIdentifier(ctx, "nobody@payease")
	if err != nil {
		t.Fatalf("Expected no error for unknown identifier, got %v", err)
	}
	if missing != nil {
		t.Errorf("Expected nil account for unknown identifier, got %+v", missing)
	}
}

func TestIdentifiers_AddAndSetDefault(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	alice := createTestAccount(t, service, "9876543210", 100)
	bob := createTestAccount(t, service, "9876543211", 100)

	if _, err := service.AddIdentifier(ctx, alice.Id, "Alice@PayEase"); err != nil {
		t.Fatalf("AddIdentifier failed: %v", err)
	}
	if _, err := service.AddIdentifier(ctx, bob.Id, "alice@payease"); !errors.Is(err, store.ErrIdentifierTaken) {
		t.Errorf("Expected ErrIdentifierTaken, got %v", err)
	}
	if _, err := service.AddIdentifier(ctx, "missing", "x@payease"); !errors.Is(err, store.ErrAccountNotFound) {
		t.Errorf("Expected ErrAccountNotFound, got %v", err)
	}

	if err := service.SetDefaultIdentifier(ctx, alice.Id, "alice@payease"); err != nil {
		t.Fatalf("SetDefaultIdentifier failed: %v", err)
	}

	identifiers, err := service.ListIdentifiers(ctx, alice.Id)
	if err != nil {
		t.Fatalf("ListIdentifiers failed: %v", err)
	}
	defaults := 0
	for _, id := range identifiers {
		if id.IsDefault {
			defaults++
			if id.Identifier != "alice@payease" {
				t.Errorf("Expected alice@payease to be default, got %s", id.Identifier)
			}
		}
	}
	if defaults != 1 {
		t.Errorf("Expected exactly one default identifier, got %d", defaults)
	}

	// Another account's identifier cannot become alice's default
	if err := service.SetDefaultIdentifier(ctx, alice.Id, "9876543211@payease"); !errors.Is(err, store.ErrIdentifierNotFound) {
		t.Errorf("Expected ErrIdentifierNotFound, got %v", err)
	}
}

func TestRecordFailedAuth_AutoLocks(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	account := createTestAccount(t, service, "9876543210", 100)

	for attempt := 1; attempt <= 3; attempt++ {
		result, err := service.RecordFailedAuth(ctx, account.Id, 3)
		if err != nil {
			t.Fatalf("RecordFailedAuth failed: %v", err)
		}
		if result.Attempts != attempt {
			t.Errorf("Expected %d attempts, got %d", attempt, result.Attempts)
		}
		if result.Locked != (attempt == 3) {
			t.Errorf("Attempt %d: expected locked=%v, got %v", attempt, attempt == 3, result.Locked)
		}
	}

	if err := service.UnlockAccount(ctx, account.Id); err != nil {
		t.Fatalf("UnlockAccount failed: %v", err)
	}
	reloaded, err := service.GetAccount(ctx, account.Id)
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if reloaded.IsLocked || reloaded.FailedPinAttempts != 0 {
		t.Errorf("Expected unlocked account with reset counter, got locked=%v attempts=%d",
			reloaded.IsLocked, reloaded.FailedPinAttempts)
	}

	if _, err := service.RecordFailedAuth(ctx, "missing", 3); !errors.Is(err, store.ErrAccountNotFound) {
		t.Errorf("Expected ErrAccountNotFound, got %v", err)
	}
}

func TestLockAccount(t *testing.T) {
	service, cleanup := setupTestDb(t)
	defer cleanup()

	ctx := context.Background()
	account := createTestAccount(t, service, "9876543210", 100)

	if err := service.LockAccount(ctx, account.Id); err != nil {
		t.Fatalf("LockAccount failed: %v", err)
	}
	reloaded, err := service.GetAccount(ctx, account.Id)
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if !reloaded.IsLocked {
		t.Error("Expected account to be locked")
	}
	if err := service.LockAccount(ctx, "missing"); !errors.Is(err, store.ErrAccountNotFound) {
		t.Errorf("Expected ErrAccountNotFound, got %v", err)
	}
}

package common

import (
	"context"
	"errors"
	"fmt"

	"upi-pay-simulator-go/internal/models"
	"upi-pay-simulator-go/internal/security"
	"upi-pay-simulator-go/internal/store"

	"go.uber.org/zap"
)

// DemoPin is the PIN shared by every seeded demo account
const DemoPin = "1234"

type demoAccount struct {
	name  string
	phone string
	email string
}

var demoAccounts = []demoAccount{
	{"Aarav Sharma", "9876543210", "aarav@example.com"},
	{"Priya Patel", "9123456789", "priya@example.com"},
	{"Rohan Gupta", "9988776655", "rohan@example.com"},
}

// SeedDemoAccounts creates the demo accounts that do not exist yet and returns
// every demo account, new or existing.
func SeedDemoAccounts(ctx context.Context, accounts store.AccountStore, pins *security.PinHasher, cfg models.AccountsConfig) ([]*models.Account, error) {
	pinHash, err := pins.Hash(DemoPin)
	if err != nil {
		return nil, err
	}

	seeded := make([]*models.Account, 0, len(demoAccounts))
	for _, demo := range demoAccounts {
		account, err := accounts.CreateAccount(ctx, store.CreateAccountParams{
			DisplayName:       demo.name,
			Phone:             demo.phone,
			Email:             demo.email,
			PinHash:           pinHash,
			OpeningBalance:    cfg.StartingBalance,
			DefaultIdentifier: demo.phone + "@" + cfg.DefaultDomain,
		})
		if errors.Is(err, store.ErrDuplicateAccount) {
			account, err = accounts.GetAccountByPhone(ctx, demo.phone)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to seed demo account %s: %w", demo.phone, err)
		}
		seeded = append(seeded, account)
	}

	zap.L().Info("Demo accounts ready", zap.Int("count", len(seeded)), zap.String("pin", DemoPin))
	return seeded, nil
}

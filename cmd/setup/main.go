package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"upi-pay-simulator-go/internal/common"
	"upi-pay-simulator-go/internal/config"
	"upi-pay-simulator-go/internal/security"

	"go.uber.org/zap"
)

// runInit creates the schema (done when the database service opens) and seeds the demo accounts
func runInit(ctx context.Context, reset bool) {
	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	zap.L().Info("Initializing database", zap.String("driver", cfg.Database.Driver))
	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	if reset {
		zap.L().Warn("Deleting all accounts and transactions")
		if err := dbService.ResetDemoData(ctx); err != nil {
			zap.L().Fatal("Failed to reset data", zap.Error(err))
		}
	}

	pins := security.NewPinHasher(cfg.Accounts.PinHashCost)
	accounts, err := common.SeedDemoAccounts(ctx, dbService, pins, cfg.Accounts)
	if err != nil {
		zap.L().Fatal("Failed to seed demo accounts", zap.Error(err))
	}

	report := common.NewReport(os.Stdout, common.ReportWidth)
	report.Title("DEMO ACCOUNTS")
	for i, account := range accounts {
		isLast := i == len(accounts)-1
		report.Line(isLast, "%s (%s)", account.DisplayName, account.Phone)
		report.Detail(isLast, "UPI ID:  %s", account.DefaultIdentifier())
		report.Detail(isLast, "Balance: %s", common.FormatRupees(account.Balance))
	}
	report.Summary(fmt.Sprintf("All demo accounts use PIN %s", common.DemoPin))

	zap.L().Info("Initialization complete", zap.Int("accounts", len(accounts)))
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	resetFlag := flag.Bool("reset", false, "Delete all accounts and transactions before seeding")
	flag.Parse()

	runInit(ctx, *resetFlag)
}

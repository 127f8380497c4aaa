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

package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"upi-pay-simulator-go/internal/common"
	"upi-pay-simulator-go/internal/config"
	"upi-pay-simulator-go/internal/database"
	"upi-pay-simulator-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type balanceStats struct {
	totalAccounts  int
	lockedAccounts int
	mismatched     int
	totalBalance   decimal.Decimal
}

func printAccountHeader(report *common.Report, account models.Account) {
	lockState := ""
	if account.IsLocked {
		lockState = " [LOCKED]"
	}
	report.Block("Account: %s (%s)%s", account.DisplayName, account.Phone, lockState)
	report.Line(false, "ID: %s", account.Id)
	report.Line(false, "UPI ID: %s", account.DefaultIdentifier())
	report.Divider()
}

func printAccountDetails(report *common.Report, account models.Account, result *models.ReconcileResult, stats *models.TransactionStats) {
	reconciled := "matches ledger"
	if !result.Matched {
		reconciled = fmt.Sprintf("MISMATCH (ledger says %s, off by %s)",
			common.FormatRupees(result.Calculated), common.FormatRupees(result.Difference))
	}

	report.Line(false, "Balance:      %s (%s)", common.FormatRupees(account.Balance), reconciled)
	report.Line(false, "Transactions: %d (%d %s, %d %s)",
		stats.TotalTransactions,
		stats.SuccessfulTransactions, common.StatusMarker(models.StatusSuccess),
		stats.FailedTransactions, common.StatusMarker(models.StatusFailed))
	report.Line(true, "Volume:       %s (avg %s)",
		common.FormatRupees(stats.TotalAmount), common.FormatRupees(stats.AverageAmount))
}

func processAccount(ctx context.Context, report *common.Report, account models.Account, dbService *database.Service) (*models.ReconcileResult, error) {
	result, err := dbService.ReconcileAccount(ctx, account.Id)
	if err != nil {
		return nil, fmt.Errorf("failed to reconcile: %w", err)
	}

	stats, err := dbService.GetTransactionStats(ctx, account.Id)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}

	printAccountHeader(report, account)
	printAccountDetails(report, account, result, stats)
	return result, nil
}

func processAccountsAndGenerateReport(ctx context.Context, report *common.Report, accounts []models.Account, dbService *database.Service, logger *zap.Logger) balanceStats {
	stats := balanceStats{totalBalance: decimal.Zero}

	for _, account := range accounts {
		stats.totalAccounts++

		result, err := processAccount(ctx, report, account, dbService)
		if err != nil {
			logger.Error("Failed to process account",
				zap.String("account_id", account.Id),
				zap.String("display_name", account.DisplayName),
				zap.Error(err))
			continue
		}

		stats.totalBalance = stats.totalBalance.Add(account.Balance)
		if account.IsLocked {
			stats.lockedAccounts++
		}
		if !result.Matched {
			stats.mismatched++
		}
	}

	return stats
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	phoneFlag := flag.String("phone", "", "Filter by specific account phone number (optional)")
	flag.Parse()

	logger.Info("Starting balance query")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	logger.Info("Connecting to database", zap.String("driver", cfg.Database.Driver), zap.String("path", cfg.Database.Path))
	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	accounts, err := common.LookupAccounts(ctx, dbService, *phoneFlag, logger)
	if err != nil {
		logger.Fatal("Failed to look up accounts", zap.Error(err))
	}

	report := common.NewReport(os.Stdout, common.ReportWidth)
	report.Title("ACCOUNT BALANCE REPORT")

	stats := processAccountsAndGenerateReport(ctx, report, accounts, dbService, logger)

	summary := fmt.Sprintf("SUMMARY: %d accounts, %s held, %d locked, %d not reconciled",
		stats.totalAccounts, common.FormatRupees(stats.totalBalance), stats.lockedAccounts, stats.mismatched)
	report.Summary(summary)

	logger.Info("Balance query completed",
		zap.Int("accounts_queried", stats.totalAccounts),
		zap.Int("locked", stats.lockedAccounts),
		zap.Int("mismatched", stats.mismatched))
}

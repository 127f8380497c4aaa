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
	"strings"

	"upi-pay-simulator-go/internal/common"
	"upi-pay-simulator-go/internal/config"
	"upi-pay-simulator-go/internal/database"
	"upi-pay-simulator-go/internal/models"
	"upi-pay-simulator-go/internal/validator"

	"go.uber.org/zap"
)

type reportStats struct {
	totalAccounts    int
	totalIdentifiers int
	missingDefault   int
}

func printAccountHeader(report *common.Report, account models.Account) {
	report.Block("Account: %s (%s)", account.DisplayName, account.Phone)
	report.Line(false, "ID: %s", account.Id)
	report.Line(false, "Identifiers: %d", len(account.Identifiers))
	report.Divider()
}

func printIdentifier(report *common.Report, id models.PaymentIdentifier, isLast bool) {
	marker := ""
	if id.IsDefault {
		marker = " (default)"
	}
	report.Line(isLast, "%-40s%s", id.Identifier, marker)
	report.Detail(isLast, "Added: %s", id.CreatedAt.Format("2006-01-02 15:04:05"))
}

func printIdentifiers(report *common.Report, identifiers []models.PaymentIdentifier) {
	for i, id := range identifiers {
		printIdentifier(report, id, i == len(identifiers)-1)
	}
}

func processAccountsAndGenerateReport(report *common.Report, accounts []models.Account) reportStats {
	stats := reportStats{}

	for _, account := range accounts {
		stats.totalAccounts++
		stats.totalIdentifiers += len(account.Identifiers)
		if account.DefaultIdentifier() == "" {
			stats.missingDefault++
		}

		printAccountHeader(report, account)
		printIdentifiers(report, account.Identifiers)
	}

	return stats
}

// applyChanges adds and/or promotes an identifier for the account with the given phone
func applyChanges(ctx context.Context, dbService *database.Service, phone, add, setDefault string, logger *zap.Logger) error {
	if phone == "" {
		return fmt.Errorf("--phone is required with --add or --set-default")
	}

	account, err := dbService.GetAccountByPhone(ctx, phone)
	if err != nil {
		return err
	}

	if add != "" {
		add = strings.ToLower(strings.TrimSpace(add))
		if err := validator.ValidateIdentifier(add); err != nil {
			return err
		}
		if _, err := dbService.AddIdentifier(ctx, account.Id, add); err != nil {
			return fmt.Errorf("failed to add identifier: %w", err)
		}
		logger.Info("Added identifier", zap.String("account_id", account.Id), zap.String("identifier", add))
	}

	if setDefault != "" {
		setDefault = strings.ToLower(strings.TrimSpace(setDefault))
		if err := dbService.SetDefaultIdentifier(ctx, account.Id, setDefault); err != nil {
			return fmt.Errorf("failed to set default identifier: %w", err)
		}
		logger.Info("Set default identifier", zap.String("account_id", account.Id), zap.String("identifier", setDefault))
	}

	return nil
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	phoneFlag := flag.String("phone", "", "Filter by specific account phone number (optional)")
	addFlag := flag.String("add", "", "Payment identifier to add to the --phone account, e.g. name@payease")
	defaultFlag := flag.String("set-default", "", "Existing identifier to make the default for the --phone account")
	flag.Parse()

	logger.Info("Starting identifier query")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	logger.Info("Connecting to database", zap.String("path", cfg.Database.Path))
	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	if *addFlag != "" || *defaultFlag != "" {
		if err := applyChanges(ctx, dbService, *phoneFlag, *addFlag, *defaultFlag, logger); err != nil {
			logger.Fatal("Failed to update identifiers", zap.Error(err))
		}
	}

	accounts, err := common.LookupAccounts(ctx, dbService, *phoneFlag, logger)
	if err != nil {
		logger.Fatal("Failed to look up accounts", zap.Error(err))
	}

	report := common.NewReport(os.Stdout, common.WideReportWidth)
	report.Title("PAYMENT IDENTIFIERS REPORT")

	stats := processAccountsAndGenerateReport(report, accounts)

	summary := fmt.Sprintf("SUMMARY: %d identifiers across %d accounts (%d without a default)",
		stats.totalIdentifiers, stats.totalAccounts, stats.missingDefault)
	report.Summary(summary)

	logger.Info("Identifier query completed",
		zap.Int("accounts_queried", stats.totalAccounts),
		zap.Int("total_identifiers", stats.totalIdentifiers))
}

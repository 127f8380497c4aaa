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
	"errors"
	"flag"
	"fmt"
	"os"

	"upi-pay-simulator-go/internal/common"
	"upi-pay-simulator-go/internal/config"
	"upi-pay-simulator-go/internal/models"
	"upi-pay-simulator-go/internal/store"
	"upi-pay-simulator-go/internal/validator"

	"go.uber.org/zap"
)

type accountFlags struct {
	name     string
	phone    string
	email    string
	pin      string
	identity string
}

func validateFlags(f accountFlags) error {
	if err := validator.ValidateName(f.name); err != nil {
		return err
	}
	if err := validator.ValidatePhone(f.phone); err != nil {
		return err
	}
	if err := validator.ValidateEmail(f.email); err != nil {
		return err
	}
	if err := validator.ValidatePinFormat(f.pin); err != nil {
		return err
	}
	if f.identity != "" {
		return validator.ValidateIdentifier(f.identity)
	}
	return nil
}

func printAccount(account *models.Account) {
	report := common.NewReport(os.Stdout, common.ReportWidth)
	report.Title("ACCOUNT CREATED")
	fmt.Printf("ID:         %s\n", account.Id)
	fmt.Printf("Name:       %s\n", account.DisplayName)
	fmt.Printf("Phone:      %s\n", account.Phone)
	fmt.Printf("Email:      %s\n", account.Email)
	fmt.Printf("UPI ID:     %s\n", account.DefaultIdentifier())
	fmt.Printf("Balance:    %s\n", common.FormatRupees(account.Balance))
	report.Rule()
	fmt.Println()
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	var f accountFlags
	flag.StringVar(&f.name, "name", "", "Account holder's full name (required)")
	flag.StringVar(&f.phone, "phone", "", "10 digit mobile number (required)")
	flag.StringVar(&f.email, "email", "", "Email address (required)")
	flag.StringVar(&f.pin, "pin", "", "4 to 6 digit PIN (required)")
	flag.StringVar(&f.identity, "upi-id", "", "Default payment identifier (default: <phone>@<DEFAULT_UPI_DOMAIN>)")
	flag.Parse()

	if f.name == "" || f.phone == "" || f.email == "" || f.pin == "" {
		zap.L().Fatal("All flags are required: --name, --phone, --email and --pin")
	}
	if err := validateFlags(f); err != nil {
		zap.L().Fatal("Invalid account details", zap.Error(err))
	}

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	zap.L().Info("Initializing services")
	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	pinHash, err := services.Pins.Hash(f.pin)
	if err != nil {
		zap.L().Fatal("Failed to hash PIN", zap.Error(err))
	}

	identifier := f.identity
	if identifier == "" {
		identifier = f.phone + "@" + cfg.Accounts.DefaultDomain
	}

	account, err := services.DbService.CreateAccount(ctx, store.CreateAccountParams{
		DisplayName:       f.name,
		Phone:             f.phone,
		Email:             f.email,
		PinHash:           pinHash,
		OpeningBalance:    cfg.Accounts.StartingBalance,
		DefaultIdentifier: identifier,
	})
	switch {
	case errors.Is(err, store.ErrDuplicateAccount):
		zap.L().Fatal("Account already exists with this phone or email",
			zap.String("phone", f.phone),
			zap.String("email", f.email))
	case errors.Is(err, store.ErrIdentifierTaken):
		zap.L().Fatal("Payment identifier already registered", zap.String("identifier", identifier))
	case err != nil:
		zap.L().Fatal("Failed to create account", zap.Error(err))
	}

	printAccount(account)
	zap.L().Info("Account created successfully", zap.String("id", account.Id))
}

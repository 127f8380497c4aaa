package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"upi-pay-simulator-go/internal/common"
	"upi-pay-simulator-go/internal/config"
	"upi-pay-simulator-go/internal/models"
	"upi-pay-simulator-go/internal/transfer"
	"upi-pay-simulator-go/internal/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type transferFlags struct {
	fromPhone      string
	to             string
	amount         string
	pin            string
	description    string
	idempotencyKey string
}

func parseFlags() (*transferFlags, error) {
	fromFlag := flag.String("from-phone", "", "Sender phone number (required)")
	toFlag := flag.String("to", "", "Recipient identifier, e.g. 9123456789@payease (required)")
	amountFlag := flag.String("amount", "", "Amount in rupees (required)")
	pinFlag := flag.String("pin", "", "Sender PIN (required)")
	descriptionFlag := flag.String("description", "", "Optional note")
	keyFlag := flag.String("idempotency-key", "", "Idempotency key; a random one is generated when empty")
	flag.Parse()

	if *fromFlag == "" || *toFlag == "" || *amountFlag == "" || *pinFlag == "" {
		return nil, fmt.Errorf("all flags are required: --from-phone, --to, --amount, --pin")
	}

	key := *keyFlag
	if key == "" {
		key = uuid.NewString()
	}

	return &transferFlags{
		fromPhone:      *fromFlag,
		to:             *toFlag,
		amount:         *amountFlag,
		pin:            *pinFlag,
		description:    *descriptionFlag,
		idempotencyKey: key,
	}, nil
}

func printTransferSummary(report *common.Report, sender *models.Account, f *transferFlags, amount decimal.Decimal) {
	report.Title("TRANSFER REQUEST")
	fmt.Printf("From:            %s (%s)\n", sender.DisplayName, sender.Phone)
	fmt.Printf("To:              %s\n", f.to)
	fmt.Printf("Amount:          %s\n", common.FormatRupees(amount))
	fmt.Printf("Current Balance: %s\n", common.FormatRupees(sender.Balance))
	fmt.Printf("Idempotency Key: %s\n", f.idempotencyKey)
	report.Rule()
}

func printResult(result *transfer.Result) {
	fmt.Printf("\n%s %s\n", common.StatusMarker(result.Status), result.Status)
	fmt.Printf("   Transaction ID: %s\n", result.TransactionId)
	fmt.Printf("   Reference ID:   %s\n", result.ReferenceId)
	fmt.Printf("   Amount:         %s\n", common.FormatRupees(result.Amount))
	fmt.Printf("   New Balance:    %s\n", common.FormatRupees(result.NewBalance))
	if result.Replayed {
		fmt.Println("   (already processed, original result returned)")
	}
	if result.Transaction != nil && result.Transaction.FailureReason != nil {
		fmt.Printf("   Reason:         %s\n", *result.Transaction.FailureReason)
	}
	fmt.Println()
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	f, err := parseFlags()
	if err != nil {
		zap.L().Fatal("Invalid flags", zap.Error(err))
	}

	amount, err := validator.ParseAmount(f.amount)
	if err != nil {
		zap.L().Fatal("Invalid amount", zap.String("amount", f.amount), zap.Error(err))
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

	report := common.NewReport(os.Stdout, common.ReportWidth)
	sender, err := services.DbService.GetAccountByPhone(ctx, f.fromPhone)
	if err != nil {
		report.Title("TRANSFER FAILED")
		fmt.Printf("Error: no account for phone %s\n", f.fromPhone)
		report.Rule()
		zap.L().Fatal("Sender not found", zap.String("phone", f.fromPhone), zap.Error(err))
	}

	printTransferSummary(report, sender, f, amount)

	result, err := services.Engine.Transfer(ctx, transfer.Request{
		FromAccountId:  sender.Id,
		ToIdentifier:   f.to,
		Amount:         amount,
		Description:    f.description,
		Pin:            f.pin,
		IdempotencyKey: f.idempotencyKey,
	})
	if result != nil {
		printResult(result)
	}
	if err != nil {
		fmt.Printf("Transfer failed: %s\n", transfer.Reason(err))
		fmt.Println(transfer.Notice(err))
		zap.L().Fatal("Transfer failed",
			zap.String("code", transfer.Code(err)),
			zap.Bool("retryable", transfer.Retryable(err)),
			zap.Error(err))
	}

	zap.L().Info("Transfer completed",
		zap.String("reference_id", result.ReferenceId),
		zap.String("new_balance", result.NewBalance.String()))
}

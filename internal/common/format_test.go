package common

import (
	"bytes"
	"testing"

	"upi-pay-simulator-go/internal/models"

	"github.com/shopspring/decimal"
)

func TestFormatRupees(t *testing.T) {
	tests := map[string]string{
		"0":            "₹0.00",
		"7.5":          "₹7.50",
		"999.999":      "₹1,000.00",
		"1000":         "₹1,000.00",
		"99999.99":     "₹99,999.99",
		"123456.7":     "₹1,23,456.70",
		"12345678":     "₹1,23,45,678.00",
		"1234567890.1": "₹1,23,45,67,890.10",
		"-2500":        "-₹2,500.00",
		"-0.001":       "₹0.00",
	}

	for input, want := range tests {
		t.Run(input, func(t *testing.T) {
			got := FormatRupees(decimal.RequireFromString(input))
			if got != want {
				t.Errorf("FormatRupees(%s) = %q, want %q", input, got, want)
			}
		})
	}
}

func TestReport(t *testing.T) {
	var buf bytes.Buffer
	report := NewReport(&buf, 10)

	report.Title("BALANCES")
	report.Block("Account: %s", "Asha")
	report.Line(false, "ID: %d", 1)
	report.Divider()
	report.Line(false, "asha@payease")
	report.Detail(false, "Added: today")
	report.Line(true, "asha@paytm")
	report.Detail(true, "Added: %s", "yesterday")
	report.Summary("1 account")

	want := "\n==========\nBALANCES\n==========\n" +
		"\n┌─ Account: Asha\n" +
		"│  ID: 1\n" +
		"├────────\n" +
		"│  asha@payease\n" +
		"│     Added: today\n" +
		"└  asha@paytm\n" +
		"      Added: yesterday\n" +
		"\n==========\n1 account\n==========\n\n"

	if buf.String() != want {
		t.Errorf("Unexpected report output:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestStatusMarker(t *testing.T) {
	if StatusMarker(models.StatusSuccess) == StatusMarker(models.StatusFailed) {
		t.Error("Success and failure should use different markers")
	}
	if StatusMarker(models.StatusPending) != "…" {
		t.Errorf("Expected pending marker, got %q", StatusMarker(models.StatusPending))
	}
}

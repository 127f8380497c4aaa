package common

import (
	"fmt"
	"io"
	"strings"

	"upi-pay-simulator-go/internal/models"

	"github.com/shopspring/decimal"
)

const (
	ReportWidth     = 80
	WideReportWidth = 100
)

// Report writes the plain-text layout shared by the CLI tools: a ruled
// title, account blocks drawn with box characters, and a ruled summary.
type Report struct {
	out   io.Writer
	width int
}

func NewReport(out io.Writer, width int) *Report {
	return &Report{out: out, width: width}
}

func (r *Report) rule() string {
	return strings.Repeat("=", r.width)
}

// Title opens a report or a section of one.
func (r *Report) Title(title string) {
	fmt.Fprintf(r.out, "\n%s\n%s\n%s\n", r.rule(), title, r.rule())
}

// Rule closes a block without a summary line.
func (r *Report) Rule() {
	fmt.Fprintln(r.out, r.rule())
}

// Summary closes the report with a single line between rules.
func (r *Report) Summary(message string) {
	fmt.Fprintf(r.out, "\n%s\n%s\n%s\n\n", r.rule(), message, r.rule())
}

// Block starts an account block; the lines printed with Line and
// Detail hang off it until the next Block.
func (r *Report) Block(format string, args ...any) {
	fmt.Fprintf(r.out, "\n┌─ "+format+"\n", args...)
}

// Divider separates a block's heading from its entries.
func (r *Report) Divider() {
	fmt.Fprintln(r.out, "├"+strings.Repeat("─", r.width-2))
}

// Line prints an entry of the current block, closing it when last is set.
func (r *Report) Line(last bool, format string, args ...any) {
	branch := "│  "
	if last {
		branch = "└  "
	}
	fmt.Fprintf(r.out, branch+format+"\n", args...)
}

// Detail prints a continuation line under the entry printed just before it.
func (r *Report) Detail(last bool, format string, args ...any) {
	indent := "│     "
	if last {
		indent = "      "
	}
	fmt.Fprintf(r.out, indent+format+"\n", args...)
}

// FormatRupees renders an amount the way Indian banks print it: rupee
// sign, lakh/crore digit grouping and exactly two decimals.
func FormatRupees(amount decimal.Decimal) string {
	whole, paise, _ := strings.Cut(amount.Abs().StringFixed(2), ".")
	sign := ""
	if amount.Round(2).IsNegative() {
		sign = "-"
	}
	return sign + "₹" + groupLakhs(whole) + "." + paise
}

// groupLakhs groups the last three digits, then every two: 12345678 -> 1,23,45,678.
func groupLakhs(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var groups []string
	if len(head)%2 == 1 {
		groups = append(groups, head[:1])
		head = head[1:]
	}
	for ; head != ""; head = head[2:] {
		groups = append(groups, head[:2])
	}
	return strings.Join(append(groups, tail), ",")
}

// StatusMarker returns a one-character marker for a transaction status
func StatusMarker(status models.TransactionStatus) string {
	switch status {
	case models.StatusSuccess:
		return "✓"
	case models.StatusFailed:
		return "✗"
	default:
		return "…"
	}
}

package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"upi-pay-simulator-go/internal/models"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidIdentifier  = errors.New("invalid payment identifier")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrAmountOverLimit    = errors.New("amount exceeds per-transaction limit")
	ErrInvalidPinFormat   = errors.New("PIN must be 4 to 6 digits")
	ErrDailyLimitExceeded = errors.New("daily transfer limit exceeded")
	ErrInvalidPhone       = errors.New("invalid phone number")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrInvalidName        = errors.New("invalid name")
)

var (
	identifierRegex = regexp.MustCompile(`^[A-Za-z0-9._-]+@[A-Za-z0-9.-]+$`)
	pinRegex        = regexp.MustCompile(`^[0-9]{4,6}$`)
	phoneRegex      = regexp.MustCompile(`^[6-9][0-9]{9}$`)
	emailRegex      = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

const maxNameLength = 100

// Bounds on the decimal representation itself. Amounts outside them are
// rejected before any rescaling arithmetic is attempted.
const (
	maxAmountIntegerDigits  = 15
	maxAmountFractionDigits = 18
)

// ValidateIdentifier accepts only local@domain with no characters outside the
// allowed sets.
func ValidateIdentifier(identifier string) error {
	if !identifierRegex.MatchString(identifier) {
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, identifier)
	}
	return nil
}

// AmountInRange reports whether amount has a small enough exponent and digit
// count for comparisons and rounding to stay cheap. "1e10000000" does not.
func AmountInRange(amount decimal.Decimal) bool {
	exp := int64(amount.Exponent())
	if exp < -maxAmountFractionDigits {
		return false
	}
	return int64(amount.NumDigits())+exp <= maxAmountIntegerDigits
}

// ValidateAmount requires a positive amount in whole paise that does not exceed max.
func ValidateAmount(amount, max decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: must be greater than zero", ErrInvalidAmount)
	}
	if amount.Exponent() < -maxAmountFractionDigits {
		return fmt.Errorf("%w: at most 2 decimal places allowed", ErrInvalidAmount)
	}
	if !AmountInRange(amount) {
		return fmt.Errorf("%w: maximum is %s", ErrAmountOverLimit, max.String())
	}
	if !amount.Equal(amount.Round(2)) {
		return fmt.Errorf("%w: at most 2 decimal places allowed", ErrInvalidAmount)
	}
	if amount.GreaterThan(max) {
		return fmt.Errorf("%w: maximum is %s", ErrAmountOverLimit, max.String())
	}
	return nil
}

// ParseAmount parses a client-supplied amount string.
func ParseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q is not a number", ErrInvalidAmount, raw)
	}
	return amount, nil
}

func ValidatePinFormat(pin string) error {
	if !pinRegex.MatchString(pin) {
		return ErrInvalidPinFormat
	}
	return nil
}

// ValidateDailyLimit checks amount against what the payer already sent today.
// It is independent of the per-transaction maximum.
func ValidateDailyLimit(sentToday, amount, limit decimal.Decimal) error {
	if sentToday.Add(amount).GreaterThan(limit) {
		remaining := limit.Sub(sentToday)
		if remaining.IsNegative() {
			remaining = decimal.Zero
		}
		return fmt.Errorf("%w: limit %s, remaining %s", ErrDailyLimitExceeded, limit.String(), remaining.String())
	}
	return nil
}

func ValidatePhone(phone string) error {
	if !phoneRegex.MatchString(phone) {
		return fmt.Errorf("%w: expected 10 digits starting with 6-9", ErrInvalidPhone)
	}
	return nil
}

func ValidateEmail(email string) error {
	if !emailRegex.MatchString(strings.TrimSpace(email)) {
		return fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}
	return nil
}

func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxNameLength {
		return fmt.Errorf("%w: must be 1 to %d characters", ErrInvalidName, maxNameLength)
	}
	return nil
}

// TransferRequest holds the client inputs that are checked before any state is read.
type TransferRequest struct {
	ToIdentifier string
	Amount       decimal.Decimal
	Pin          string
}

type Validator struct {
	limits models.Limits
}

func New(limits models.Limits) *Validator {
	return &Validator{limits: limits}
}

func (v *Validator) Limits() models.Limits {
	return v.limits
}

// ValidateTransfer runs the identifier, amount and PIN format checks in order and
// returns the first failure.
func (v *Validator) ValidateTransfer(req TransferRequest) error {
	if err := ValidateIdentifier(req.ToIdentifier); err != nil {
		return err
	}
	if err := ValidateAmount(req.Amount, v.limits.MaxTransactionAmount); err != nil {
		return err
	}
	return ValidatePinFormat(req.Pin)
}

func (v *Validator) ValidateDailyLimit(sentToday, amount decimal.Decimal) error {
	return ValidateDailyLimit(sentToday, amount, v.limits.DailyLimit)
}

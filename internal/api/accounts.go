package api

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"upi-pay-simulator-go/internal/models"
	"upi-pay-simulator-go/internal/security"
	"upi-pay-simulator-go/internal/store"
	"upi-pay-simulator-go/internal/transfer"
	"upi-pay-simulator-go/internal/validator"

	"go.uber.org/zap"
)

type RegisterRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
	Pin   string `json:"pin"`
}

type LoginRequest struct {
	Phone string `json:"phone"`
	Pin   string `json:"pin"`
}

type LoginResult struct {
	Token     string                 `json:"token"`
	ExpiresAt time.Time              `json:"expiresAt"`
	Account   *models.AccountProfile `json:"account"`
}

// Recipient is what a payer may learn about the account an identifier resolves to.
type Recipient struct {
	Identifier  string `json:"identifier"`
	DisplayName string `json:"displayName"`
	MaskedPhone string `json:"maskedPhone"`
	Available   bool   `json:"available"`
}

// Register creates an account with the configured starting balance and a
// default identifier of <phone>@<default domain>.
func (s *PaymentService) Register(ctx context.Context, req RegisterRequest) (*models.AccountProfile, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if err := validator.ValidateName(req.Name); err != nil {
		return nil, err
	}
	if err := validator.ValidatePhone(req.Phone); err != nil {
		return nil, err
	}
	if err := validator.ValidateEmail(req.Email); err != nil {
		return nil, err
	}
	if err := validator.ValidatePinFormat(req.Pin); err != nil {
		return nil, err
	}

	pinHash, err := s.pins.Hash(req.Pin)
	if err != nil {
		return nil, err
	}

	account, err := s.store.CreateAccount(ctx, store.CreateAccountParams{
		DisplayName:       req.Name,
		Phone:             req.Phone,
		Email:             req.Email,
		PinHash:           pinHash,
		OpeningBalance:    s.accounts.StartingBalance,
		DefaultIdentifier: req.Phone + "@" + s.accounts.DefaultDomain,
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Account registered",
		zap.String("account_id", account.Id),
		zap.String("phone", maskPhone(account.Phone)),
		zap.String("balance", account.Balance.String()))
	return newProfile(account), nil
}

// Login checks the PIN against the same failure counter the transfer engine uses.
func (s *PaymentService) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	account, err := s.store.GetAccountByPhone(ctx, strings.TrimSpace(req.Phone))
	if errors.Is(err, store.ErrAccountNotFound) {
		s.metrics.ObserveLogin("unknown_account")
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if account.IsLocked {
		s.metrics.ObserveLogin("locked")
		return nil, transfer.ErrAccountLocked
	}

	err = s.pins.Compare(account.PinHash, req.Pin)
	if errors.Is(err, security.ErrPinMismatch) {
		s.metrics.ObserveLogin("invalid_pin")
		failed, recordErr := s.store.RecordFailedAuth(ctx, account.Id, s.limits.MaxPinAttempts)
		if recordErr != nil {
			return nil, recordErr
		}
		if failed.Locked {
			s.metrics.ObserveLockout()
			zap.L().Warn("Account locked after failed logins",
				zap.String("account_id", account.Id),
				zap.Int("attempts", failed.Attempts))
			return nil, transfer.ErrAccountLocked
		}
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if account.FailedPinAttempts > 0 {
		if err := s.store.ResetFailedAuth(ctx, account.Id); err != nil {
			return nil, err
		}
		account.FailedPinAttempts = 0
	}

	token, expiresAt, err := s.guard.Issue(ctx, account.Id)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveLogin("success")

	return &LoginResult{Token: token, ExpiresAt: expiresAt, Account: newProfile(account)}, nil
}

func (s *PaymentService) Logout(ctx context.Context, token string) error {
	return s.guard.Revoke(ctx, token)
}

func (s *PaymentService) GetProfile(ctx context.Context, accountId string) (*models.AccountProfile, error) {
	account, err := s.store.GetAccount(ctx, accountId)
	if err != nil {
		return nil, err
	}
	return newProfile(account), nil
}

func (s *PaymentService) ListIdentifiers(ctx context.Context, accountId string) ([]models.PaymentIdentifier, error) {
	return s.store.ListIdentifiers(ctx, accountId)
}

// AddIdentifier registers an extra alias for the caller. The domain may be any
// provider handle. A "<phone>@<provider>" alias is only accepted for the
// caller's own phone: anyone paying that handle expects to reach the phone's
// owner, and the default alias of a future registration must stay free.
func (s *PaymentService) AddIdentifier(ctx context.Context, accountId, identifier string) (*models.PaymentIdentifier, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if err := validator.ValidateIdentifier(identifier); err != nil {
		return nil, fmt.Errorf("%w: %w", transfer.ErrValidation, err)
	}

	if phone, ok := s.phoneHandle(identifier); ok {
		account, err := s.store.GetAccount(ctx, accountId)
		if err != nil {
			return nil, err
		}
		if account.Phone != phone {
			zap.L().Warn("Rejected alias for another phone number",
				zap.String("account_id", accountId),
				zap.String("identifier", identifier))
			return nil, fmt.Errorf("%w: %s", ErrIdentifierReserved, identifier)
		}
	}
	return s.store.AddIdentifier(ctx, accountId, identifier)
}

// phoneHandle reports the phone an identifier is addressed to by convention:
// any known provider handle, plus the registration domain.
func (s *PaymentService) phoneHandle(identifier string) (string, bool) {
	if phone, ok := s.resolver.PhoneHandle(identifier); ok {
		return phone, true
	}
	local, domain, found := strings.Cut(identifier, "@")
	if found && domain == s.accounts.DefaultDomain && validator.ValidatePhone(local) == nil {
		return local, true
	}
	return "", false
}

func (s *PaymentService) SetDefaultIdentifier(ctx context.Context, accountId, identifier string) error {
	return s.store.SetDefaultIdentifier(ctx, accountId, strings.ToLower(strings.TrimSpace(identifier)))
}

// ResolveRecipient previews who a payment to identifier would reach.
func (s *PaymentService) ResolveRecipient(ctx context.Context, identifier string) (*Recipient, error) {
	account, found, err := s.resolver.Resolve(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, transfer.ErrRecipientNotFound
	}
	return &Recipient{
		Identifier:  strings.ToLower(strings.TrimSpace(identifier)),
		DisplayName: account.DisplayName,
		MaskedPhone: maskPhone(account.Phone),
		Available:   !account.IsLocked,
	}, nil
}

func newProfile(account *models.Account) *models.AccountProfile {
	identifiers := account.Identifiers
	if identifiers == nil {
		identifiers = []models.PaymentIdentifier{}
	}
	profile := &models.AccountProfile{
		Id:                 account.Id,
		DisplayName:        account.DisplayName,
		Phone:              account.Phone,
		Email:              account.Email,
		Balance:            account.Balance,
		IsLocked:           account.IsLocked,
		DefaultIdentifier:  account.DefaultIdentifier(),
		PaymentIdentifiers: identifiers,
	}
	if profile.DefaultIdentifier != "" {
		profile.QRPayload = qrPayload(profile.DefaultIdentifier, account.DisplayName)
	}
	return profile
}

// qrPayload builds the upi://pay deep link a payer app scans.
func qrPayload(identifier, name string) string {
	q := url.Values{}
	q.Set("pa", identifier)
	q.Set("pn", name)
	q.Set("cu", "INR")
	return "upi://pay?" + q.Encode()
}

func maskPhone(phone string) string {
	if len(phone) < 4 {
		return phone
	}
	return strings.Repeat("X", len(phone)-4) + phone[len(phone)-4:]
}

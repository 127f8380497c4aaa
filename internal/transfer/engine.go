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

package transfer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"upi-pay-simulator-go/internal/clock"
	"upi-pay-simulator-go/internal/metrics"
	"upi-pay-simulator-go/internal/models"
	"upi-pay-simulator-go/internal/security"
	"upi-pay-simulator-go/internal/store"
	"upi-pay-simulator-go/internal/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Store is the storage the engine needs: sender lookups, the PIN failure
// counter, the ledger and an atomic unit of work for settlement.
type Store interface {
	GetAccount(ctx context.Context, accountId string) (*models.Account, error)
	RecordFailedAuth(ctx context.Context, accountId string, threshold int) (store.FailedAuth, error)
	ResetFailedAuth(ctx context.Context, accountId string) error
	InsertTransaction(ctx context.Context, txn *models.Transaction) error
	GetTransactionByIdempotencyKey(ctx context.Context, fromAccountId, key string) (*models.Transaction, error)
	SumSentSince(ctx context.Context, accountId string, since time.Time) (decimal.Decimal, error)
	store.UnitOfWork
}

type Resolver interface {
	Resolve(ctx context.Context, identifier string) (*models.Account, bool, error)
}

type PinVerifier interface {
	Compare(hash, pin string) error
}

// Request is an already-authenticated caller's payment instruction.
type Request struct {
	FromAccountId  string
	ToIdentifier   string
	Amount         decimal.Decimal
	Description    string
	Pin            string
	IdempotencyKey string
}

type Result struct {
	TransactionId string                   `json:"transactionId"`
	ReferenceId   string                   `json:"referenceId"`
	Status        models.TransactionStatus `json:"status"`
	Amount        decimal.Decimal          `json:"amount"`
	NewBalance    decimal.Decimal          `json:"newBalance"`
	Replayed      bool                     `json:"replayed"`
	Transaction   *models.Transaction      `json:"transaction,omitempty"`
}

type Engine struct {
	store        Store
	resolver     Resolver
	pins         PinVerifier
	validator    *validator.Validator
	clock        clock.Clock
	metrics      *metrics.Metrics
	newReference ReferenceGenerator
}

type Option func(*Engine)

func WithClock(c clock.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithReferenceGenerator(g ReferenceGenerator) Option {
	return func(e *Engine) { e.newReference = g }
}

func NewEngine(s Store, r Resolver, pins PinVerifier, limits models.Limits, opts ...Option) *Engine {
	e := &Engine{
		store:        s,
		resolver:     r,
		pins:         pins,
		validator:    validator.New(limits),
		clock:        clock.RealClock{},
		newReference: NewReferenceId,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Transfer moves req.Amount from the caller to the account req.ToIdentifier
// resolves to. Failures after authentication that are recorded in the ledger
// (unknown, locked or self recipient) return both the FAILED result and the
// error. Every other error leaves no ledger row and no balance change.
func (e *Engine) Transfer(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	req.ToIdentifier = strings.TrimSpace(req.ToIdentifier)
	req.Description = strings.TrimSpace(req.Description)
	req.IdempotencyKey = strings.TrimSpace(req.IdempotencyKey)

	result, err := e.transfer(ctx, req)
	e.observe(req, result, err, time.Since(start))
	return result, err
}

func (e *Engine) transfer(ctx context.Context, req Request) (*Result, error) {
	// VALIDATED
	if err := e.validator.ValidateTransfer(validator.TransferRequest{
		ToIdentifier: req.ToIdentifier,
		Amount:       req.Amount,
		Pin:          req.Pin,
	}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	if req.IdempotencyKey != "" {
		existing, err := e.store.GetTransactionByIdempotencyKey(ctx, req.FromAccountId, req.IdempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("failed to check idempotency key: %w", err)
		}
		if existing != nil {
			return e.replay(ctx, req, existing)
		}
	}

	// AUTHENTICATED
	sender, err := e.authenticate(ctx, req)
	if err != nil {
		return nil, err
	}

	sentToday, err := e.store.SumSentSince(ctx, sender.Id, clock.StartOfDay(e.clock.Now()))
	if err != nil {
		return nil, fmt.Errorf("failed to compute daily total: %w", err)
	}
	if err := e.validator.ValidateDailyLimit(sentToday, req.Amount); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDailyLimitExceeded, err)
	}

	// Pre-authorization check; settlement re-checks atomically.
	if sender.Balance.LessThan(req.Amount) {
		return nil, fmt.Errorf("%w: balance %s, requested %s", ErrInsufficientBalance,
			sender.Balance.String(), req.Amount.String())
	}

	// RESOLVED
	recipient, found, err := e.resolver.Resolve(ctx, req.ToIdentifier)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve recipient: %w", err)
	}
	switch {
	case !found:
		return e.recordFailure(ctx, req, sender, ReasonRecipientNotFound, ErrRecipientNotFound)
	case recipient.Id == sender.Id:
		return e.recordFailure(ctx, req, sender, ReasonSelfTransfer, ErrSelfTransfer)
	case recipient.IsLocked:
		return e.recordFailure(ctx, req, sender, ReasonRecipientLocked, ErrRecipientLocked)
	}

	// SETTLED
	return e.settle(ctx, req, sender, recipient)
}

func (e *Engine) authenticate(ctx context.Context, req Request) (*models.Account, error) {
	sender, err := e.store.GetAccount(ctx, req.FromAccountId)
	if errors.Is(err, store.ErrAccountNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, req.FromAccountId)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load sender: %w", err)
	}
	if sender.IsLocked {
		return nil, ErrAccountLocked
	}

	err = e.pins.Compare(sender.PinHash, req.Pin)
	if errors.Is(err, security.ErrPinMismatch) {
		threshold := e.validator.Limits().MaxPinAttempts
		failed, recordErr := e.store.RecordFailedAuth(ctx, sender.Id, threshold)
		if recordErr != nil {
			return nil, fmt.Errorf("failed to record failed PIN attempt: %w", recordErr)
		}
		if failed.Locked {
			if failed.Attempts == threshold {
				e.metrics.ObserveLockout()
			}
			return nil, fmt.Errorf("%w: account locked after %d failed attempts", ErrInvalidPin, failed.Attempts)
		}
		return nil, fmt.Errorf("%w: %d attempts remaining", ErrInvalidPin, threshold-failed.Attempts)
	}
	if err != nil {
		return nil, err
	}

	if sender.FailedPinAttempts > 0 {
		if err := e.store.ResetFailedAuth(ctx, sender.Id); err != nil {
			return nil, fmt.Errorf("failed to reset PIN attempts: %w", err)
		}
	}
	return sender, nil
}

// recordFailure writes the FAILED row for an attempt that got past
// authentication. The sender is never charged on this path.
func (e *Engine) recordFailure(ctx context.Context, req Request, sender *models.Account, reason string, cause error) (*Result, error) {
	for attempt := 0; ; attempt++ {
		txn, err := e.newTransaction(req, nil, models.StatusFailed)
		if err != nil {
			return nil, err
		}
		txn.FailureReason = &reason

		err = e.store.InsertTransaction(ctx, txn)
		switch {
		case err == nil:
			return &Result{
				TransactionId: txn.Id,
				ReferenceId:   txn.ReferenceId,
				Status:        txn.Status,
				Amount:        txn.Amount,
				NewBalance:    sender.Balance,
				Transaction:   txn,
			}, cause
		case errors.Is(err, store.ErrDuplicateReference) && attempt == 0:
			zap.L().Warn("Reference collision, reminting", zap.String("reference_id", txn.ReferenceId))
			continue
		case errors.Is(err, store.ErrDuplicateReference):
			return nil, fmt.Errorf("%w: %w", ErrDuplicateReference, err)
		case errors.Is(err, store.ErrDuplicateIdempotencyKey):
			return e.replayByKey(ctx, req)
		default:
			return nil, fmt.Errorf("failed to record failed transfer: %w", err)
		}
	}
}

// settle debits the sender, credits the recipient and writes the SUCCESS row
// as one storage transaction. A reference collision rolls everything back and
// is retried once with a fresh reference.
func (e *Engine) settle(ctx context.Context, req Request, sender, recipient *models.Account) (*Result, error) {
	for attempt := 0; ; attempt++ {
		toAccountId := recipient.Id
		txn, err := e.newTransaction(req, &toAccountId, models.StatusSuccess)
		if err != nil {
			return nil, err
		}

		var senderBalance decimal.Decimal
		err = e.store.WithinTransaction(ctx, func(tx store.LedgerTx) error {
			// Lock rows in id order so opposite transfers cannot deadlock.
			ids := []string{sender.Id, recipient.Id}
			sort.Strings(ids)
			for _, id := range ids {
				delta := req.Amount
				if id == sender.Id {
					delta = req.Amount.Neg()
				}
				balance, err := tx.AdjustBalance(ctx, id, delta)
				if err != nil {
					return err
				}
				if id == sender.Id {
					senderBalance = balance
				}
			}
			return tx.InsertTransaction(ctx, txn)
		})

		switch {
		case err == nil:
			return &Result{
				TransactionId: txn.Id,
				ReferenceId:   txn.ReferenceId,
				Status:        txn.Status,
				Amount:        txn.Amount,
				NewBalance:    senderBalance,
				Transaction:   txn,
			}, nil
		case errors.Is(err, store.ErrInsufficientFunds):
			return nil, fmt.Errorf("%w: %w", ErrInsufficientBalance, err)
		case errors.Is(err, store.ErrDuplicateReference) && attempt == 0:
			zap.L().Warn("Reference collision during settlement, reminting", zap.String("reference_id", txn.ReferenceId))
			continue
		case errors.Is(err, store.ErrDuplicateReference):
			return nil, fmt.Errorf("%w: %w", ErrDuplicateReference, err)
		case errors.Is(err, store.ErrDuplicateIdempotencyKey):
			return e.replayByKey(ctx, req)
		case errors.Is(err, store.ErrCommitUnknown):
			return nil, fmt.Errorf("%w: %v", ErrSettlementUnknown, err)
		default:
			// %v keeps store sentinels such as ErrAccountNotFound out of the chain.
			return nil, fmt.Errorf("%w: %v", ErrSettlementFailed, err)
		}
	}
}

func (e *Engine) newTransaction(req Request, toAccountId *string, status models.TransactionStatus) (*models.Transaction, error) {
	now := e.clock.Now().UTC().Truncate(time.Microsecond)
	referenceId, err := e.newReference(now)
	if err != nil {
		return nil, err
	}
	return &models.Transaction{
		Id:                  uuid.New().String(),
		ReferenceId:         referenceId,
		FromAccountId:       req.FromAccountId,
		ToAccountId:         toAccountId,
		ToPaymentIdentifier: strings.ToLower(req.ToIdentifier),
		Amount:              req.Amount,
		Description:         req.Description,
		Status:              status,
		IdempotencyKey:      req.IdempotencyKey,
		CreatedAt:           now,
	}, nil
}

// replayByKey returns the row a concurrent request with the same key committed first.
func (e *Engine) replayByKey(ctx context.Context, req Request) (*Result, error) {
	existing, err := e.store.GetTransactionByIdempotencyKey(ctx, req.FromAccountId, req.IdempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load idempotent transaction: %w", err)
	}
	if existing == nil {
		return nil, fmt.Errorf("%w: idempotency key %s vanished", ErrSettlementFailed, req.IdempotencyKey)
	}
	return e.replay(ctx, req, existing)
}

// replay answers a retried request from the stored row without re-running any stage.
func (e *Engine) replay(ctx context.Context, req Request, existing *models.Transaction) (*Result, error) {
	if !existing.Amount.Equal(req.Amount) || existing.ToPaymentIdentifier != strings.ToLower(req.ToIdentifier) {
		return nil, fmt.Errorf("%w: %s", ErrIdempotencyConflict, req.IdempotencyKey)
	}

	sender, err := e.store.GetAccount(ctx, existing.FromAccountId)
	if err != nil {
		return nil, fmt.Errorf("failed to load sender for replay: %w", err)
	}

	result := &Result{
		TransactionId: existing.Id,
		ReferenceId:   existing.ReferenceId,
		Status:        existing.Status,
		Amount:        existing.Amount,
		NewBalance:    sender.Balance,
		Replayed:      true,
		Transaction:   existing,
	}
	if existing.Status == models.StatusFailed {
		reason := ""
		if existing.FailureReason != nil {
			reason = *existing.FailureReason
		}
		return result, errorForReason(reason)
	}
	return result, nil
}

func (e *Engine) observe(req Request, result *Result, err error, elapsed time.Duration) {
	fields := []zap.Field{
		zap.String("account_id", req.FromAccountId),
		zap.String("to_identifier", req.ToIdentifier),
		amountField(req.Amount),
		zap.Duration("elapsed", elapsed),
	}
	if result != nil {
		fields = append(fields,
			zap.String("reference_id", result.ReferenceId),
			zap.String("status", string(result.Status)),
			zap.Bool("replayed", result.Replayed))
	}

	switch {
	case err == nil:
		zap.L().Info("Transfer settled", append(fields, zap.String("new_balance", result.NewBalance.String()))...)
		e.metrics.ObserveTransfer(string(models.StatusSuccess), "", elapsed)
	case result != nil:
		zap.L().Warn("Transfer recorded as failed", append(fields, zap.String("reason", Reason(err)))...)
		e.metrics.ObserveTransfer(string(models.StatusFailed), Reason(err), elapsed)
	case Retryable(err) || errors.Is(err, ErrSettlementUnknown):
		zap.L().Error("Transfer failed", append(fields, zap.Error(err))...)
		e.metrics.ObserveTransfer("ERROR", Reason(err), elapsed)
	default:
		zap.L().Info("Transfer rejected", append(fields, zap.String("reason", Reason(err)), zap.Error(err))...)
		e.metrics.ObserveTransfer("REJECTED", Reason(err), elapsed)
	}
}

// amountField avoids expanding amounts like 1e10000000 into log lines.
func amountField(amount decimal.Decimal) zap.Field {
	if !validator.AmountInRange(amount) {
		return zap.String("amount", "out of range")
	}
	return zap.String("amount", amount.String())
}

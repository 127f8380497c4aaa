package api

import (
	"context"

	"upi-pay-simulator-go/internal/transfer"

	"github.com/shopspring/decimal"
)

type PaymentRequest struct {
	ToIdentifier string          `json:"toIdentifier"`
	Amount       decimal.Decimal `json:"amount"`
	Description  string          `json:"description"`
	Pin          string          `json:"pin"`
}

// Pay runs one transfer for the authenticated caller.
func (s *PaymentService) Pay(ctx context.Context, callerId, idempotencyKey string, req PaymentRequest) (*transfer.Result, error) {
	return s.engine.Transfer(ctx, transfer.Request{
		FromAccountId:  callerId,
		ToIdentifier:   req.ToIdentifier,
		Amount:         req.Amount,
		Description:    req.Description,
		Pin:            req.Pin,
		IdempotencyKey: idempotencyKey,
	})
}

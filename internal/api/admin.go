package api

import (
	"context"

	"upi-pay-simulator-go/internal/models"

	"go.uber.org/zap"
)

func (s *PaymentService) ListAccounts(ctx context.Context) ([]*models.AccountProfile, error) {
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	profiles := make([]*models.AccountProfile, len(accounts))
	for i := range accounts {
		profiles[i] = newProfile(&accounts[i])
	}
	return profiles, nil
}

func (s *PaymentService) ListAllTransactions(ctx context.Context, page, limit int) (*models.TransactionPage, error) {
	page, limit = normalizePage(page, limit)
	offset := (page - 1) * limit

	transactions, total, err := s.store.ListAllTransactions(ctx, limit, offset)
	if err != nil {
		return nil, err
	}

	views := make([]models.TransactionView, len(transactions))
	for i, txn := range transactions {
		views[i] = models.TransactionView{Transaction: txn}
	}
	return &models.TransactionPage{
		Transactions: views,
		Page:         page,
		Limit:        limit,
		Total:        total,
		HasMore:      offset+len(transactions) < total,
	}, nil
}

func (s *PaymentService) UnlockAccount(ctx context.Context, accountId string) error {
	if err := s.store.UnlockAccount(ctx, accountId); err != nil {
		return err
	}
	zap.L().Info("Account unlocked by admin", zap.String("account_id", accountId))
	return nil
}

// ResetDemoData wipes every account and transaction, then re-seeds the demo accounts.
func (s *PaymentService) ResetDemoData(ctx context.Context) ([]*models.AccountProfile, error) {
	if err := s.store.ResetDemoData(ctx); err != nil {
		return nil, err
	}
	zap.L().Warn("All payment data deleted by admin reset")

	if s.seed == nil {
		return []*models.AccountProfile{}, nil
	}
	accounts, err := s.seed(ctx)
	if err != nil {
		return nil, err
	}
	profiles := make([]*models.AccountProfile, len(accounts))
	for i, account := range accounts {
		profiles[i] = newProfile(account)
	}
	return profiles, nil
}

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"upi-pay-simulator-go/internal/models"
	"upi-pay-simulator-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func scanIdentifiers(rows *sql.Rows) ([]models.PaymentIdentifier, error) {
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var identifiers []models.PaymentIdentifier
	for rows.Next() {
		var id models.PaymentIdentifier
		if err := rows.Scan(&id.Id, &id.AccountId, &id.Identifier, &id.IsDefault, &id.CreatedAt); err != nil {
			zap.L().Error("Failed to scan identifier row", zap.Error(err))
			return nil, fmt.Errorf("unable to scan identifier row: %w", err)
		}
		id.CreatedAt = id.CreatedAt.UTC()
		identifiers = append(identifiers, id)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during identifier row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating identifier rows: %w", err)
	}

	return identifiers, nil
}

// ListIdentifiers returns the account's identifiers, default first
func (s *Service) ListIdentifiers(ctx context.Context, accountId string) ([]models.PaymentIdentifier, error) {
	zap.L().Debug("Querying identifiers", zap.String("account_id", accountId))

	rows, err := s.db.QueryContext(ctx, queryListIdentifiers, accountId)
	if err != nil {
		zap.L().Error("Failed to query identifiers", zap.String("account_id", accountId), zap.Error(err))
		return nil, fmt.Errorf("unable to query identifiers: %w", err)
	}
	return scanIdentifiers(rows)
}

func (s *Service) identifiersByAccount(ctx context.Context) (map[string][]models.PaymentIdentifier, error) {
	rows, err := s.db.QueryContext(ctx, queryListAllIdentifiers)
	if err != nil {
		return nil, fmt.Errorf("unable to query identifiers: %w", err)
	}
	identifiers, err := scanIdentifiers(rows)
	if err != nil {
		return nil, err
	}

	byAccount := make(map[string][]models.PaymentIdentifier)
	for _, id := range identifiers {
		byAccount[id.AccountId] = append(byAccount[id.AccountId], id)
	}
	return byAccount, nil
}

// AddIdentifier registers an additional, non-default identifier for the account
func (s *Service) AddIdentifier(ctx context.Context, accountId, identifier string) (*models.PaymentIdentifier, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	zap.L().Info("Adding identifier", zap.String("account_id", accountId), zap.String("identifier", identifier))

	var exists int
	err := s.db.QueryRowContext(ctx, queryAccountExists, accountId).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", store.ErrAccountNotFound, accountId)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to check account: %w", err)
	}

	id := &models.PaymentIdentifier{
		Id:         uuid.New().String(),
		AccountId:  accountId,
		Identifier: identifier,
		IsDefault:  false,
		CreatedAt:  s.now(),
	}
	_, err = s.db.ExecContext(ctx, queryInsertIdentifier, id.Id, id.AccountId, id.Identifier, id.IsDefault, id.CreatedAt)
	if err != nil {
		if uniqueViolation(err) == uniqueIdentifier {
			return nil, fmt.Errorf("%w: %s", store.ErrIdentifierTaken, identifier)
		}
		zap.L().Error("Failed to insert identifier", zap.String("account_id", accountId), zap.Error(err))
		return nil, fmt.Errorf("unable to insert identifier: %w", err)
	}

	zap.L().Info("Identifier stored successfully", zap.String("id", id.Id))
	return id, nil
}

// SetDefaultIdentifier marks identifier as the account's only default.
// A single UPDATE flips every row of the account so exactly one stays default.
func (s *Service) SetDefaultIdentifier(ctx context.Context, accountId, identifier string) error {
	identifier = strings.ToLower(strings.TrimSpace(identifier))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var owner string
	err = tx.QueryRowContext(ctx, queryGetIdentifierOwner, identifier).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && owner != accountId) {
		return fmt.Errorf("%w: %s", store.ErrIdentifierNotFound, identifier)
	}
	if err != nil {
		return fmt.Errorf("unable to look up identifier: %w", err)
	}

	if _, err := tx.ExecContext(ctx, querySetDefaultIdentifier, identifier, accountId); err != nil {
		return fmt.Errorf("unable to set default identifier: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit default identifier: %w", err)
	}

	zap.L().Info("Default identifier updated", zap.String("account_id", accountId), zap.String("identifier", identifier))
	return nil
}

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

package database

const accountColumns = `
		a.id, a.display_name, a.phone, a.email, a.pin_hash, a.balance_minor, a.opening_balance_minor,
		a.is_locked, a.failed_pin_attempts, a.created_at, a.updated_at`

const transactionColumns = `
		id, reference_id, from_account_id, to_account_id, to_payment_identifier, amount_minor,
		description, status, failure_reason, idempotency_key, created_at`

const (
	// Account queries
	queryInsertAccount = `
		INSERT INTO accounts (id, display_name, phone, email, pin_hash, balance_minor, opening_balance_minor,
		                      is_locked, failed_pin_attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, 0, $8, $9)`

	queryGetAccountById = `
		SELECT` + accountColumns + `
		FROM accounts a
		WHERE a.id = $1`

	queryGetAccountByPhone = `
		SELECT` + accountColumns + `
		FROM accounts a
		WHERE a.phone = $1`

	queryGetAccountByEmail = `
		SELECT` + accountColumns + `
		FROM accounts a
		WHERE LOWER(a.email) = LOWER($1)`

	queryFindAccountByIdentifier = `
		SELECT` + accountColumns + `
		FROM accounts a
		JOIN payment_identifiers p ON p.account_id = a.id
		WHERE p.identifier = $1`

	queryListAccounts = `
		SELECT` + accountColumns + `
		FROM accounts a
		ORDER BY a.created_at, a.id`

	queryAccountExists = `
		SELECT 1 FROM accounts WHERE id = $1`

	queryLockAccount = `
		UPDATE accounts SET is_locked = TRUE, updated_at = $1 WHERE id = $2`

	queryUnlockAccount = `
		UPDATE accounts SET is_locked = FALSE, failed_pin_attempts = 0, updated_at = $1 WHERE id = $2`

	queryResetFailedAuth = `
		UPDATE accounts SET failed_pin_attempts = 0, updated_at = $1 WHERE id = $2`

	// Increment and auto-lock in one statement; the right-hand side sees the pre-update row.
	queryRecordFailedAuth = `
		UPDATE accounts
		SET failed_pin_attempts = failed_pin_attempts + 1,
		    is_locked = CASE WHEN failed_pin_attempts + 1 >= $1 THEN TRUE ELSE is_locked END,
		    updated_at = $2
		WHERE id = $3
		RETURNING failed_pin_attempts, is_locked`

	// Identifier queries
	queryInsertIdentifier = `
		INSERT INTO payment_identifiers (id, account_id, identifier, is_default, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	queryListIdentifiers = `
		SELECT id, account_id, identifier, is_default, created_at
		FROM payment_identifiers
		WHERE account_id = $1
		ORDER BY is_default DESC, created_at, identifier`

	queryListAllIdentifiers = `
		SELECT id, account_id, identifier, is_default, created_at
		FROM payment_identifiers
		ORDER BY account_id, is_default DESC, created_at, identifier`

	queryGetIdentifierOwner = `
		SELECT account_id FROM payment_identifiers WHERE identifier = $1`

	querySetDefaultIdentifier = `
		UPDATE payment_identifiers SET is_default = (identifier = $1) WHERE account_id = $2`

	// Balance queries
	queryGetBalance = `
		SELECT balance_minor FROM accounts WHERE id = $1`

	// Conditional update: zero rows means the account is missing or the delta would overdraw it.
	queryAdjustBalance = `
		UPDATE accounts
		SET balance_minor = balance_minor + $1, updated_at = $2
		WHERE id = $3 AND balance_minor + $1 >= 0
		RETURNING balance_minor`

	queryReconcileBalance = `
		SELECT a.balance_minor, a.opening_balance_minor,
		       CAST(COALESCE((SELECT SUM(t.amount_minor) FROM transactions t
		                      WHERE t.to_account_id = a.id AND t.status = 'SUCCESS'), 0) AS BIGINT),
		       CAST(COALESCE((SELECT SUM(t.amount_minor) FROM transactions t
		                      WHERE t.from_account_id = a.id AND t.status = 'SUCCESS'), 0) AS BIGINT)
		FROM accounts a
		WHERE a.id = $1`

	// Transaction queries
	queryInsertTransaction = `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	queryGetTransactionById = `
		SELECT` + transactionColumns + `
		FROM transactions
		WHERE id = $1`

	queryGetTransactionByReference = `
		SELECT` + transactionColumns + `
		FROM transactions
		WHERE reference_id = $1`

	queryGetTransactionByIdempotencyKey = `
		SELECT` + transactionColumns + `
		FROM transactions
		WHERE from_account_id = $1 AND idempotency_key = $2`

	queryListAccountTransactions = `
		SELECT` + transactionColumns + `
		FROM transactions
		WHERE from_account_id = $1 OR to_account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`

	queryCountAccountTransactions = `
		SELECT COUNT(*) FROM transactions WHERE from_account_id = $1 OR to_account_id = $1`

	queryListAllTransactions = `
		SELECT` + transactionColumns + `
		FROM transactions
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`

	queryCountAllTransactions = `
		SELECT COUNT(*) FROM transactions`

	queryTransactionStatsSelect = `
		SELECT COUNT(*),
		       CAST(COALESCE(SUM(CASE WHEN status = 'SUCCESS' THEN 1 ELSE 0 END), 0) AS BIGINT),
		       CAST(COALESCE(SUM(CASE WHEN status = 'FAILED' THEN 1 ELSE 0 END), 0) AS BIGINT),
		       CAST(COALESCE(SUM(CASE WHEN status = 'PENDING' THEN 1 ELSE 0 END), 0) AS BIGINT),
		       CAST(COALESCE(SUM(CASE WHEN status = 'SUCCESS' THEN amount_minor ELSE 0 END), 0) AS BIGINT)
		FROM transactions`

	queryAccountTransactionStats = queryTransactionStatsSelect + `
		WHERE from_account_id = $1 OR to_account_id = $1`

	querySumSentSince = `
		SELECT CAST(COALESCE(SUM(amount_minor), 0) AS BIGINT)
		FROM transactions
		WHERE from_account_id = $1 AND status = 'SUCCESS' AND created_at >= $2`
)

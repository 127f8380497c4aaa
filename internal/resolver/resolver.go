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

package resolver

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"upi-pay-simulator-go/internal/models"
	"upi-pay-simulator-go/internal/store"

	"go.uber.org/zap"
)

// DefaultProviderDomains are the UPI handles recognised when no providers file is configured.
var DefaultProviderDomains = []string{"payease", "paytm", "phonepe", "gpay", "upi"}

var barePhoneRegex = regexp.MustCompile(`^[0-9]{10}$`)

// SuffixTable is the declared set of provider handles ("@paytm", ...) that may
// be stripped from an identifier to reach the bare phone number.
type SuffixTable struct {
	domains map[string]struct{}
	ordered []string
}

func NewSuffixTable(domains ...string) *SuffixTable {
	t := &SuffixTable{domains: make(map[string]struct{}, len(domains))}
	for _, d := range domains {
		d = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(d), "@"))
		if d == "" {
			continue
		}
		if _, seen := t.domains[d]; seen {
			continue
		}
		t.domains[d] = struct{}{}
		t.ordered = append(t.ordered, d)
	}
	return t
}

func DefaultSuffixTable() *SuffixTable {
	return NewSuffixTable(DefaultProviderDomains...)
}

// Domains returns the known handles in declaration order.
func (t *SuffixTable) Domains() []string {
	return append([]string(nil), t.ordered...)
}

func (t *SuffixTable) Known(domain string) bool {
	_, ok := t.domains[strings.ToLower(domain)]
	return ok
}

// Strip returns the local part of identifier when its domain is a known provider.
func (t *SuffixTable) Strip(identifier string) (string, bool) {
	at := strings.LastIndex(identifier, "@")
	if at <= 0 || at == len(identifier)-1 {
		return "", false
	}
	if !t.Known(identifier[at+1:]) {
		return "", false
	}
	return identifier[:at], true
}

// AccountLookup is the subset of the account store the resolver reads.
type AccountLookup interface {
	FindAccountByIdentifier(ctx context.Context, identifier string) (*models.Account, error)
	GetAccountByPhone(ctx context.Context, phone string) (*models.Account, error)
}

type Resolver struct {
	accounts AccountLookup
	suffixes *SuffixTable
}

func New(accounts AccountLookup, suffixes *SuffixTable) *Resolver {
	if suffixes == nil {
		suffixes = DefaultSuffixTable()
	}
	return &Resolver{accounts: accounts, suffixes: suffixes}
}

// Resolve maps identifier to an account. An exact registered identifier wins;
// otherwise a known provider handle is stripped and the rest matched as a phone
// number. Absence is reported as (nil, false, nil), never as an error.
func (r *Resolver) Resolve(ctx context.Context, identifier string) (*models.Account, bool, error) {
	normalized := strings.ToLower(strings.TrimSpace(identifier))
	if normalized == "" {
		return nil, false, nil
	}

	account, err := r.accounts.FindAccountByIdentifier(ctx, normalized)
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up identifier: %w", err)
	}
	if account != nil {
		return account, true, nil
	}

	phone, ok := r.phoneCandidate(normalized)
	if !ok {
		zap.L().Debug("Identifier did not resolve", zap.String("identifier", normalized))
		return nil, false, nil
	}

	account, err = r.accounts.GetAccountByPhone(ctx, phone)
	if errors.Is(err, store.ErrAccountNotFound) {
		zap.L().Debug("Identifier did not resolve by phone", zap.String("identifier", normalized))
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up phone: %w", err)
	}

	zap.L().Debug("Identifier resolved by phone fallback",
		zap.String("identifier", normalized),
		zap.String("account_id", account.Id))
	return account, true, nil
}

// PhoneHandle returns the phone number behind a "<phone>@<known provider>"
// identifier. Such identifiers belong to the account registered with that
// phone, whether or not it exists yet.
func (r *Resolver) PhoneHandle(identifier string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(identifier))
	if !strings.Contains(normalized, "@") {
		return "", false
	}
	return r.phoneCandidate(normalized)
}

func (r *Resolver) phoneCandidate(identifier string) (string, bool) {
	local := identifier
	if strings.Contains(identifier, "@") {
		stripped, ok := r.suffixes.Strip(identifier)
		if !ok {
			return "", false
		}
		local = stripped
	}
	if !barePhoneRegex.MatchString(local) {
		return "", false
	}
	return local, true
}

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

package api

import (
	"context"
	"fmt"
	"time"

	"upi-pay-simulator-go/internal/metrics"
	"upi-pay-simulator-go/internal/models"
	"upi-pay-simulator-go/internal/resolver"
	"upi-pay-simulator-go/internal/security"
	"upi-pay-simulator-go/internal/session"
	"upi-pay-simulator-go/internal/store"
	"upi-pay-simulator-go/internal/transfer"
)

// Seeder recreates the demo accounts after an administrative reset.
type Seeder func(ctx context.Context) ([]*models.Account, error)

type PaymentServiceConfig struct {
	Store    store.PaymentStore
	Engine   *transfer.Engine
	Guard    *session.Guard
	Pins     *security.PinHasher
	Resolver *resolver.Resolver
	Accounts models.AccountsConfig
	Limits   models.Limits
	Metrics  *metrics.Metrics
	Seeder   Seeder
}

// PaymentService is the application layer behind the HTTP handlers
type PaymentService struct {
	store    store.PaymentStore
	engine   *transfer.Engine
	guard    *session.Guard
	pins     *security.PinHasher
	resolver *resolver.Resolver
	accounts models.AccountsConfig
	limits   models.Limits
	metrics  *metrics.Metrics
	seed     Seeder
}

func NewPaymentService(cfg PaymentServiceConfig) *PaymentService {
	return &PaymentService{
		store:    cfg.Store,
		engine:   cfg.Engine,
		guard:    cfg.Guard,
		pins:     cfg.Pins,
		resolver: cfg.Resolver,
		accounts: cfg.Accounts,
		limits:   cfg.Limits,
		metrics:  cfg.Metrics,
		seed:     cfg.Seeder,
	}
}

func (s *PaymentService) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

func (s *PaymentService) Guard() *session.Guard {
	return s.guard
}

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

package reconciler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"upi-pay-simulator-go/internal/metrics"
	"upi-pay-simulator-go/internal/models"

	"go.uber.org/zap"
)

const maxConcurrentChecks = 8

// Store is the read access the reconciler needs.
type Store interface {
	ListAccounts(ctx context.Context) ([]models.Account, error)
	ReconcileAccount(ctx context.Context, accountId string) (*models.ReconcileResult, error)
}

// Sweeper drops expired entries from an in-process cache.
type Sweeper interface {
	Sweep() int
}

// Config contains configuration for Reconciler
type Config struct {
	Store           Store
	Metrics         *metrics.Metrics
	Interval        time.Duration
	Sweeper         Sweeper
	CleanupInterval time.Duration
}

// Report summarises one pass over every account.
type Report struct {
	Checked    int
	Failed     int
	Mismatches []models.ReconcileResult
	RanAt      time.Time
}

// Reconciler periodically checks that every balance equals its opening
// balance plus settled credits minus settled debits.
type Reconciler struct {
	store           Store
	metrics         *metrics.Metrics
	interval        time.Duration
	sweeper         Sweeper
	cleanupInterval time.Duration

	// Control channels
	stopChan chan struct{}
	doneChan chan struct{}
	wg       sync.WaitGroup
}

func New(cfg Config) *Reconciler {
	return &Reconciler{
		store:           cfg.Store,
		metrics:         cfg.Metrics,
		interval:        cfg.Interval,
		sweeper:         cfg.Sweeper,
		cleanupInterval: cfg.CleanupInterval,
		stopChan:        make(chan struct{}),
		doneChan:        make(chan struct{}),
	}
}

// Start launches the background loops. The first pass runs immediately.
func (r *Reconciler) Start(ctx context.Context) error {
	if r.interval <= 0 {
		return fmt.Errorf("reconcile interval must be positive, got %s", r.interval)
	}

	r.wg.Add(1)
	go r.reconcileLoop(ctx)

	if r.sweeper != nil && r.cleanupInterval > 0 {
		r.wg.Add(1)
		go r.cleanupLoop(ctx)
	}

	go func() {
		r.wg.Wait()
		close(r.doneChan)
	}()

	zap.L().Info("Reconciler started", zap.Duration("interval", r.interval))
	return nil
}

// Stop gracefully stops the reconciler
func (r *Reconciler) Stop() {
	zap.L().Info("Stopping reconciler")
	close(r.stopChan)
	<-r.doneChan
	zap.L().Info("Reconciler stopped")
}

func (r *Reconciler) reconcileLoop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.runAndLog(ctx)

	for {
		select {
		case <-ticker.C:
			r.runAndLog(ctx)
		case <-r.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (r *Reconciler) cleanupLoop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := r.sweeper.Sweep(); removed > 0 {
				zap.L().Debug("Swept expired sessions", zap.Int("removed", removed))
			}
		case <-r.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (r *Reconciler) runAndLog(ctx context.Context) {
	report, err := r.RunOnce(ctx)
	if err != nil {
		zap.L().Error("Reconciliation pass failed", zap.Error(err))
		return
	}
	if len(report.Mismatches) > 0 {
		zap.L().Error("Reconciliation found mismatched balances",
			zap.Int("checked", report.Checked),
			zap.Int("mismatches", len(report.Mismatches)))
		return
	}
	zap.L().Debug("Reconciliation pass clean", zap.Int("checked", report.Checked), zap.Int("failed", report.Failed))
}

// RunOnce checks every account and records the outcome in the metrics.
func (r *Reconciler) RunOnce(ctx context.Context) (*Report, error) {
	now := time.Now().UTC()

	accounts, err := r.store.ListAccounts(ctx)
	if err != nil {
		r.metrics.ObserveReconcile("error", 0, now)
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	report := &Report{RanAt: now}
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, maxConcurrentChecks)

	for _, account := range accounts {
		wg.Add(1)
		sem <- struct{}{}

		go func(accountId string) {
			defer wg.Done()
			defer func() { <-sem }()

			result, err := r.store.ReconcileAccount(ctx, accountId)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed++
				zap.L().Error("Failed to reconcile account", zap.String("account_id", accountId), zap.Error(err))
				return
			}
			report.Checked++
			if !result.Matched {
				report.Mismatches = append(report.Mismatches, *result)
			}
		}(account.Id)
	}
	wg.Wait()

	outcome := "ok"
	switch {
	case len(report.Mismatches) > 0:
		outcome = "mismatch"
	case report.Failed > 0:
		outcome = "error"
	}
	r.metrics.ObserveReconcile(outcome, len(report.Mismatches), now)

	return report, nil
}

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

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"upi-pay-simulator-go/internal/api"
	"upi-pay-simulator-go/internal/common"
	"upi-pay-simulator-go/internal/config"
	"upi-pay-simulator-go/internal/models"
	"upi-pay-simulator-go/internal/reconciler"
	"upi-pay-simulator-go/internal/session"

	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = zap.NewProduction()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	zap.L().Info("Starting UPI payment simulator", zap.String("addr", cfg.Server.Addr))

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	paymentService := api.NewPaymentService(api.PaymentServiceConfig{
		Store:    services.DbService,
		Engine:   services.Engine,
		Guard:    services.Guard,
		Pins:     services.Pins,
		Resolver: services.Resolver,
		Accounts: cfg.Accounts,
		Limits:   cfg.Limits,
		Metrics:  services.Metrics,
		Seeder: func(ctx context.Context) ([]*models.Account, error) {
			return common.SeedDemoAccounts(ctx, services.DbService, services.Pins, cfg.Accounts)
		},
	})

	router := api.NewRouter(api.RouterConfig{
		Service:        paymentService,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AdminToken:     cfg.Server.AdminToken,
		Gatherer:       services.Registry,
	})
	if cfg.Server.AdminToken == "" {
		zap.L().Warn("ADMIN_TOKEN not set, admin endpoints are disabled")
	}

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           h2c.NewHandler(router, &http2.Server{}),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	var rec *reconciler.Reconciler
	if cfg.Reconciler.Interval > 0 {
		reconcilerCfg := reconciler.Config{
			Store:    services.DbService,
			Metrics:  services.Metrics,
			Interval: cfg.Reconciler.Interval,
		}
		// Redis expires sessions itself; only the in-memory store needs sweeping.
		if memStore, ok := services.SessionStore.(*session.MemoryStore); ok {
			reconcilerCfg.Sweeper = memStore
			reconcilerCfg.CleanupInterval = cfg.Reconciler.SessionCleanupInterval
		}
		rec = reconciler.New(reconcilerCfg)
		if err := rec.Start(ctx); err != nil {
			zap.L().Fatal("Failed to start reconciler", zap.Error(err))
		}
	} else {
		zap.L().Info("RECONCILE_INTERVAL is 0, background reconciliation disabled")
	}

	serverErr := make(chan error, 1)
	go func() {
		zap.L().Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	zap.L().Info("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		zap.L().Info("Shutdown signal received, stopping server...")
	case err := <-serverErr:
		zap.L().Error("HTTP server failed", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zap.L().Warn("Forced shutdown after timeout", zap.Error(err))
	}

	done := make(chan struct{})
	go func() {
		if rec != nil {
			rec.Stop()
		}
		close(done)
	}()

	select {
	case <-done:
		zap.L().Info("Server stopped gracefully")
	case <-shutdownCtx.Done():
		zap.L().Warn("Reconciler did not stop before timeout")
	}
}

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

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"upi-pay-simulator-go/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

func Load() (*models.Config, error) {
	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	connMaxIdleTime, err := getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second)
	if err != nil {
		return nil, err
	}

	pingTimeout, err := getEnvDuration("DB_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	readTimeout, err := getEnvDuration("HTTP_READ_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}

	writeTimeout, err := getEnvDuration("HTTP_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	sessionTTL, err := getEnvDuration("SESSION_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	reconcileInterval, err := getEnvDuration("RECONCILE_INTERVAL", 10*time.Minute)
	if err != nil {
		return nil, err
	}

	sessionCleanup, err := getEnvDuration("SESSION_CLEANUP_INTERVAL", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	maxAmount, err := getEnvDecimal("TXN_MAX_AMOUNT", models.DefaultMaxTransactionAmount)
	if err != nil {
		return nil, err
	}

	dailyLimit, err := getEnvDecimal("TXN_DAILY_LIMIT", models.DefaultDailyLimit)
	if err != nil {
		return nil, err
	}

	startingBalance, err := getEnvDecimal("STARTING_BALANCE", models.DefaultStartingBalance)
	if err != nil {
		return nil, err
	}

	cfg := &models.Config{
		Database: models.DatabaseConfig{
			Driver:             getEnvString("DB_DRIVER", "sqlite3"),
			Path:               getEnvString("DATABASE_PATH", "upi.db"),
			URL:                getEnvString("DATABASE_URL", ""),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:    connMaxLifetime,
			ConnMaxIdleTime:    connMaxIdleTime,
			PingTimeout:        pingTimeout,
			CreateDemoAccounts: getEnvBool("CREATE_DEMO_ACCOUNTS", false),
		},
		Server: models.ServerConfig{
			Addr:           getEnvString("HTTP_ADDR", ":3000"),
			ReadTimeout:    readTimeout,
			WriteTimeout:   writeTimeout,
			AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AdminToken:     getEnvString("ADMIN_TOKEN", ""),
		},
		Session: models.SessionConfig{
			JWTSecret:     getEnvString("JWT_SECRET", ""),
			TTL:           sessionTTL,
			RedisAddr:     getEnvString("REDIS_ADDR", ""),
			RedisPassword: getEnvString("REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("REDIS_DB", 0),
		},
		Limits: models.Limits{
			MaxTransactionAmount: maxAmount,
			DailyLimit:           dailyLimit,
			MaxPinAttempts:       getEnvInt("MAX_PIN_ATTEMPTS", models.DefaultMaxPinAttempts),
		},
		Accounts: models.AccountsConfig{
			StartingBalance: startingBalance,
			DefaultDomain:   strings.ToLower(getEnvString("DEFAULT_UPI_DOMAIN", "payease")),
			PinHashCost:     getEnvInt("PIN_HASH_COST", bcrypt.DefaultCost),
			ProvidersFile:   getEnvString("PROVIDERS_FILE", ""),
		},
		Reconciler: models.ReconcilerConfig{
			Interval:               reconcileInterval,
			SessionCleanupInterval: sessionCleanup,
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *models.Config) error {
	if cfg.Database.Driver != "sqlite3" && cfg.Database.Driver != "pgx" {
		return fmt.Errorf("unsupported DB_DRIVER %q (expected sqlite3 or pgx)", cfg.Database.Driver)
	}
	if cfg.Database.Driver == "pgx" && cfg.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required when DB_DRIVER=pgx")
	}
	if !cfg.Limits.MaxTransactionAmount.IsPositive() {
		return fmt.Errorf("TXN_MAX_AMOUNT must be positive, got %s", cfg.Limits.MaxTransactionAmount)
	}
	if cfg.Limits.DailyLimit.LessThan(cfg.Limits.MaxTransactionAmount) {
		return fmt.Errorf("TXN_DAILY_LIMIT (%s) must not be below TXN_MAX_AMOUNT (%s)",
			cfg.Limits.DailyLimit, cfg.Limits.MaxTransactionAmount)
	}
	if cfg.Limits.MaxPinAttempts <= 0 {
		return fmt.Errorf("MAX_PIN_ATTEMPTS must be positive, got %d", cfg.Limits.MaxPinAttempts)
	}
	if cfg.Accounts.StartingBalance.IsNegative() {
		return fmt.Errorf("STARTING_BALANCE cannot be negative, got %s", cfg.Accounts.StartingBalance)
	}
	if cfg.Accounts.DefaultDomain == "" {
		return fmt.Errorf("DEFAULT_UPI_DOMAIN cannot be empty")
	}
	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) (decimal.Decimal, error) {
	if value := os.Getenv(key); value != "" {
		d, err := decimal.NewFromString(value)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid decimal for %s: %q (%w)", key, value, err)
		}
		return d, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transfer limits used when the environment does not override them
var (
	DefaultMaxTransactionAmount = decimal.NewFromInt(100000)
	DefaultDailyLimit           = decimal.NewFromInt(200000)
	DefaultStartingBalance      = decimal.NewFromInt(10000)
)

const DefaultMaxPinAttempts = 3

// Config represents the application configuration
type Config struct {
	Database   DatabaseConfig
	Server     ServerConfig
	Session    SessionConfig
	Limits     Limits
	Accounts   AccountsConfig
	Reconciler ReconcilerConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver             string
	Path               string
	URL                string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetime    time.Duration
	ConnMaxIdleTime    time.Duration
	PingTimeout        time.Duration
	CreateDemoAccounts bool
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
	AdminToken     string
}

// SessionConfig holds auth guard settings
type SessionConfig struct {
	JWTSecret     string
	TTL           time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Limits are the compliance ceilings enforced on every transfer
type Limits struct {
	MaxTransactionAmount decimal.Decimal
	DailyLimit           decimal.Decimal
	MaxPinAttempts       int
}

// AccountsConfig holds registration defaults
type AccountsConfig struct {
	StartingBalance decimal.Decimal
	DefaultDomain   string
	PinHashCost     int
	ProvidersFile   string
}

// ReconcilerConfig holds background reconciliation settings
type ReconcilerConfig struct {
	Interval               time.Duration
	SessionCleanupInterval time.Duration
}

// DefaultLimits returns the built-in transfer limits
func DefaultLimits() Limits {
	return Limits{
		MaxTransactionAmount: DefaultMaxTransactionAmount,
		DailyLimit:           DefaultDailyLimit,
		MaxPinAttempts:       DefaultMaxPinAttempts,
	}
}

package common

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"strings"

	"upi-pay-simulator-go/internal/clock"
	"upi-pay-simulator-go/internal/database"
	"upi-pay-simulator-go/internal/metrics"
	"upi-pay-simulator-go/internal/models"
	"upi-pay-simulator-go/internal/resolver"
	"upi-pay-simulator-go/internal/security"
	"upi-pay-simulator-go/internal/session"
	"upi-pay-simulator-go/internal/transfer"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Try to load .env file - if it doesn't exist, that's okay
	// Environment variables can be set via other means (shell export, docker, etc.)
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

// Services is everything a command needs to serve or run payments
type Services struct {
	DbService    *database.Service
	Pins         *security.PinHasher
	Resolver     *resolver.Resolver
	Engine       *transfer.Engine
	Guard        *session.Guard
	SessionStore session.Store
	Metrics      *metrics.Metrics
	Registry     *prometheus.Registry

	redisClient *redis.Client
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	services := &Services{
		DbService: dbService,
		Pins:      security.NewPinHasher(cfg.Accounts.PinHashCost),
		Registry:  prometheus.NewRegistry(),
	}
	services.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	services.Metrics = metrics.NewMetrics(services.Registry)

	suffixes, err := LoadSuffixTable(cfg.Accounts.ProvidersFile, cfg.Accounts.DefaultDomain)
	if err != nil {
		services.Close()
		return nil, err
	}
	services.Resolver = resolver.New(dbService, suffixes)
	zap.L().Info("Loaded provider suffixes", zap.Strings("domains", suffixes.Domains()))

	services.Engine = transfer.NewEngine(dbService, services.Resolver, services.Pins, cfg.Limits,
		transfer.WithMetrics(services.Metrics))

	if cfg.Session.RedisAddr != "" {
		client, err := session.NewRedisClient(ctx, cfg.Session)
		if err != nil {
			services.Close()
			return nil, err
		}
		services.redisClient = client
		services.SessionStore = session.NewRedisStore(client)
	} else {
		zap.L().Info("REDIS_ADDR not set, keeping sessions in memory")
		services.SessionStore = session.NewMemoryStore(clock.RealClock{})
	}

	secret := cfg.Session.JWTSecret
	if secret == "" {
		secret, err = randomSecret()
		if err != nil {
			services.Close()
			return nil, err
		}
		zap.L().Warn("JWT_SECRET not set, using a random secret; sessions end on restart")
	}
	services.Guard = session.NewGuard(secret, cfg.Session.TTL, services.SessionStore, clock.RealClock{})

	if cfg.Database.CreateDemoAccounts {
		if _, err := SeedDemoAccounts(ctx, dbService, services.Pins, cfg.Accounts); err != nil {
			services.Close()
			return nil, err
		}
	}

	return services, nil
}

// InitializeDatabaseOnly initializes just the database service
// Useful for read-only operations like querying balances
func InitializeDatabaseOnly(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	return dbService, nil
}

func (cs *Services) Close() {
	if cs.redisClient != nil {
		if err := cs.redisClient.Close(); err != nil {
			zap.L().Warn("Failed to close redis client", zap.Error(err))
		}
	}
	if cs.DbService != nil {
		cs.DbService.Close()
	}
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}

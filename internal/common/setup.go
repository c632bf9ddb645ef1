package common

import (
	"context"
	"fmt"
	"log"
	"strings"

	"growwise-ledger-go/internal/api"
	"growwise-ledger-go/internal/config"
	"growwise-ledger-go/internal/database"
	"growwise-ledger-go/internal/formance"
	"growwise-ledger-go/internal/ledger"
	"growwise-ledger-go/internal/models"
	"growwise-ledger-go/internal/store"

	"github.com/joho/godotenv"
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

type Services struct {
	Store         store.LedgerStore
	Ledger        *ledger.Ledger
	LedgerService *api.LedgerService
	Rules         models.RewardRules
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

// InitializeServices opens the configured backend, loads the reward rules
// and wires the ledger, milestone tracker and daily cap behind LedgerService.
func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	rules, err := LoadRules(cfg.Ledger.RulesFile)
	if err != nil {
		return nil, err
	}
	if cfg.Ledger.ReferralBonus > 0 {
		rules.ReferralBonus = cfg.Ledger.ReferralBonus
	}

	ledgerStore, err := InitializeStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	l := ledger.New(ledgerStore)
	zap.L().Info("Ledger services initialized",
		zap.String("backend", cfg.Ledger.Backend),
		zap.String("timezone", cfg.Ledger.Location.String()),
		zap.Int("milestones", len(rules.Milestones)),
		zap.Int("games", len(rules.Games)))

	return &Services{
		Store:         ledgerStore,
		Ledger:        l,
		LedgerService: api.NewLedgerService(l, cfg.Ledger.Location, rules),
		Rules:         rules,
	}, nil
}

// InitializeStore opens just the configured ledger backend.
func InitializeStore(ctx context.Context, cfg *models.Config) (store.LedgerStore, error) {
	switch cfg.Ledger.Backend {
	case config.BackendFormance:
		return formance.NewService(ctx, cfg.Formance, cfg.Ledger.CapAttempts)
	case config.BackendSQLite, "":
		return database.NewService(ctx, cfg.Database)
	default:
		return nil, fmt.Errorf("unsupported ledger backend %q", cfg.Ledger.Backend)
	}
}

func (cs *Services) Close() {
	if cs.Store != nil {
		cs.Store.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}

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

import (
	"context"
	"database/sql"
	"fmt"

	"growwise-ledger-go/internal/models"
	"growwise-ledger-go/internal/store"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.LedgerStore.
var _ store.LedgerStore = (*Service)(nil)

type Service struct {
	db        *sql.DB
	subledger *SubledgerService
}

func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	// Validate configuration
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}

	zap.L().Info("Opening SQLite database", zap.String("file", cfg.Path))
	db, err := sql.Open("sqlite3", dataSourceName(cfg))
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	// Set connection timeouts and limits
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test connection with timeout
	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			zap.L().Warn("Failed to close database after ping failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("%w: unable to ping database: %w", store.ErrStoreUnavailable, err)
	}

	subledger := NewSubledgerService(db)
	if err := subledger.InitSchema(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			zap.L().Warn("Failed to close database after schema failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("unable to initialize subledger schema: %w", err)
	}

	zap.L().Info("Database service initialized successfully")
	return &Service{db: db, subledger: subledger}, nil
}

// NewServiceWithDB wraps an already opened SQLite handle and ensures the schema exists.
func NewServiceWithDB(db *sql.DB) (*Service, error) {
	subledger := NewSubledgerService(db)
	if err := subledger.InitSchema(); err != nil {
		return nil, fmt.Errorf("unable to initialize subledger schema: %w", err)
	}
	return &Service{db: db, subledger: subledger}, nil
}

// dataSourceName builds the go-sqlite3 DSN. _txlock=immediate makes every
// BeginTx take the write lock up front, which serializes capped appends.
func dataSourceName(cfg models.DatabaseConfig) string {
	busy := cfg.BusyTimeout.Milliseconds()
	if busy <= 0 {
		busy = 5000
	}
	return fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=1000&_busy_timeout=%d&_txlock=immediate",
		cfg.Path, busy)
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

func (s *Service) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", store.ErrStoreUnavailable, err)
	}
	return nil
}

// Subledger convenience methods

func (s *Service) Append(ctx context.Context, entry models.LedgerEntry) (*models.LedgerEntry, error) {
	return s.subledger.AppendEntry(ctx, entry)
}

func (s *Service) AppendCapped(ctx context.Context, entry models.LedgerEntry, window store.CapWindow) (*store.CappedEntry, error) {
	return s.subledger.AppendCappedEntry(ctx, entry, window)
}

func (s *Service) GetEntry(ctx context.Context, entryId string) (*models.LedgerEntry, error) {
	return s.subledger.GetEntry(ctx, entryId)
}

func (s *Service) SumAmounts(ctx context.Context, subjectId string, filter models.EntryFilter) (int64, error) {
	return s.subledger.SumAmounts(ctx, subjectId, filter)
}

func (s *Service) ListEntries(ctx context.Context, subjectId string, filter models.EntryFilter) ([]models.LedgerEntry, error) {
	return s.subledger.ListEntries(ctx, subjectId, filter)
}

func (s *Service) ListSubjects(ctx context.Context) ([]string, error) {
	return s.subledger.ListSubjects(ctx)
}

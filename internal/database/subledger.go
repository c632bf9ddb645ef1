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
	"database/sql"
)

// SubledgerService handles coin ledger operations
type SubledgerService struct {
	db *sql.DB
}

func NewSubledgerService(db *sql.DB) *SubledgerService {
	return &SubledgerService{
		db: db,
	}
}

func (s *SubledgerService) InitSchema() error {
	schema := `
	-- Coin entries (append-only log; balances are always derived from it)
	CREATE TABLE IF NOT EXISTS coin_entries (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		subject_id TEXT NOT NULL,
		amount INTEGER NOT NULL,
		source_kind TEXT NOT NULL,
		source_id TEXT NOT NULL DEFAULT '',
		source_ref TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		occurred_at INTEGER NOT NULL,
		recorded_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- Balance and history lookups
	CREATE INDEX IF NOT EXISTS idx_coin_entries_subject_time ON coin_entries(subject_id, occurred_at);
	-- Daily cap windows
	CREATE INDEX IF NOT EXISTS idx_coin_entries_cap ON coin_entries(subject_id, source_kind, source_id, occurred_at);
	-- One entry per originating event
	CREATE UNIQUE INDEX IF NOT EXISTS idx_coin_entries_source_ref ON coin_entries(source_kind, source_ref) WHERE source_ref != '';

	CREATE TRIGGER IF NOT EXISTS coin_entries_no_update BEFORE UPDATE ON coin_entries
	BEGIN
		SELECT RAISE(ABORT, 'coin_entries is append-only');
	END;

	CREATE TRIGGER IF NOT EXISTS coin_entries_no_delete BEFORE DELETE ON coin_entries
	BEGIN
		SELECT RAISE(ABORT, 'coin_entries is append-only');
	END;
	`

	_, err := s.db.Exec(schema)
	return err
}

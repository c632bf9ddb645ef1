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

const (
	entryColumns = `id, subject_id, amount, source_kind, source_id, source_ref, description, occurred_at`

	// Entry queries
	queryInsertEntry = `
		INSERT INTO coin_entries (` + entryColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING ` + entryColumns

	queryCheckDuplicateEntry = `
		SELECT id FROM coin_entries WHERE source_kind = ? AND source_ref = ? LIMIT 1`

	queryGetEntry = `
		SELECT ` + entryColumns + `
		FROM coin_entries
		WHERE id = ?`

	// Filtered reads; the WHERE clause comes from filterClause
	querySumAmounts = `
		SELECT COALESCE(SUM(amount), 0)
		FROM coin_entries
		WHERE `

	queryListEntries = `
		SELECT ` + entryColumns + `
		FROM coin_entries
		WHERE `

	queryListEntriesOrder = `
		ORDER BY occurred_at DESC, seq DESC
		LIMIT ? OFFSET ?`

	queryListSubjects = `
		SELECT DISTINCT subject_id
		FROM coin_entries
		ORDER BY subject_id`
)

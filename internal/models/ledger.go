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

package models

import "time"

// SourceKind identifies the workflow that produced a ledger entry.
type SourceKind string

const (
	SourceTask     SourceKind = "task"
	SourceCalendar SourceKind = "calendar"
	SourceGame     SourceKind = "game"
	SourceBonus    SourceKind = "bonus"
	SourceReferral SourceKind = "referral"
)

// SourceKinds lists every recognized source kind.
var SourceKinds = []SourceKind{SourceTask, SourceCalendar, SourceGame, SourceBonus, SourceReferral}

// Valid reports whether k is a recognized source kind.
func (k SourceKind) Valid() bool {
	for _, known := range SourceKinds {
		if k == known {
			return true
		}
	}
	return false
}

// LedgerEntry is one immutable coin-affecting event.
type LedgerEntry struct {
	Id          string     `db:"id" json:"id"`
	SubjectId   string     `db:"subject_id" json:"subject_id"`
	Amount      int64      `db:"amount" json:"amount"`
	SourceKind  SourceKind `db:"source_kind" json:"source_kind"`
	SourceId    string     `db:"source_id" json:"source_id,omitempty"`
	SourceRef   string     `db:"source_ref" json:"source_ref,omitempty"`
	Description string     `db:"description" json:"description"`
	OccurredAt  time.Time  `db:"occurred_at" json:"occurred_at"`
}

// LedgerEntryInput is what a collaborator hands to the ledger.
// Id and OccurredAt are assigned when empty.
type LedgerEntryInput struct {
	Id          string     `json:"id" validate:"omitempty,uuid"`
	SubjectId   string     `json:"subject_id" validate:"required,notblank,max=128"`
	Amount      int64      `json:"amount" validate:"required"`
	SourceKind  SourceKind `json:"source_kind" validate:"required,source_kind"`
	SourceId    string     `json:"source_id" validate:"max=128"`
	SourceRef   string     `json:"source_ref" validate:"max=256"`
	Description string     `json:"description" validate:"max=512"`
	OccurredAt  time.Time  `json:"occurred_at"`
}

// EntryFilter narrows EntriesOf. Zero values match everything.
// The time range is half-open: From <= OccurredAt < To.
type EntryFilter struct {
	SourceKind SourceKind
	SourceId   string
	From       time.Time
	To         time.Time
	Limit      int
	Offset     int
}

// Matches applies the filter to a single entry. Limit and Offset are ignored.
func (f EntryFilter) Matches(e LedgerEntry) bool {
	if f.SourceKind != "" && e.SourceKind != f.SourceKind {
		return false
	}
	if f.SourceId != "" && e.SourceId != f.SourceId {
		return false
	}
	if !f.From.IsZero() && e.OccurredAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !e.OccurredAt.Before(f.To) {
		return false
	}
	return true
}

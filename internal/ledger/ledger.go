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

// Package ledger is the single write path for coin-affecting events.
// Balances are never stored; they are summed from the entries on every read.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"growwise-ledger-go/internal/metrics"
	"growwise-ledger-go/internal/models"
	"growwise-ledger-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Ledger struct {
	store     store.LedgerStore
	now       func() time.Time
	validator *entryValidator
}

type Option func(*Ledger)

// WithClock replaces the wall clock used for entries without an OccurredAt.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

func New(s store.LedgerStore, opts ...Option) *Ledger {
	l := &Ledger{
		store:     s,
		now:       time.Now,
		validator: newEntryValidator(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Now returns the ledger clock reading.
func (l *Ledger) Now() time.Time {
	return l.now()
}

// Append validates in, assigns its id and timestamp when absent and records it.
func (l *Ledger) Append(ctx context.Context, in models.LedgerEntryInput) (*models.LedgerEntry, error) {
	entry, err := l.prepare(in)
	if err != nil {
		return nil, err
	}

	recorded, err := l.store.Append(ctx, entry)
	if err != nil {
		return nil, l.appendFailed(entry, err)
	}

	metrics.RecordEntry(*recorded)
	return recorded, nil
}

// AppendCapped records in with its amount clipped to what remains in window.
// It returns store.ErrCapReached when nothing remains. A non-nil result means
// the entry is recorded, even when its Unsettled field reports that the
// window could not be confirmed.
func (l *Ledger) AppendCapped(ctx context.Context, in models.LedgerEntryInput, window store.CapWindow) (*store.CappedEntry, error) {
	if in.Amount < 0 {
		metrics.ValidationFailures.Inc()
		return nil, fieldError("amount", "capped earnings must be positive")
	}

	entry, err := l.prepare(in)
	if err != nil {
		return nil, err
	}
	if entry.OccurredAt.Before(window.Start) || !entry.OccurredAt.Before(window.End) {
		metrics.ValidationFailures.Inc()
		return nil, fieldError("occurred_at", fmt.Sprintf("outside cap window [%s, %s)",
			window.Start.Format(time.RFC3339), window.End.Format(time.RFC3339)))
	}

	capped, err := l.store.AppendCapped(ctx, entry, window)
	if err != nil {
		if errors.Is(err, store.ErrCapReached) {
			return nil, err
		}
		return nil, l.appendFailed(entry, err)
	}

	metrics.RecordEntry(capped.Entry)
	if capped.Unsettled != nil {
		metrics.CapUnsettled.WithLabelValues(string(entry.SourceKind), entry.SourceId).Inc()
	}
	return capped, nil
}

func (l *Ledger) prepare(in models.LedgerEntryInput) (models.LedgerEntry, error) {
	if err := l.validator.check(in); err != nil {
		metrics.ValidationFailures.Inc()
		zap.L().Warn("Rejected invalid ledger entry",
			zap.String("subject_id", in.SubjectId),
			zap.String("source_kind", string(in.SourceKind)),
			zap.Error(err))
		return models.LedgerEntry{}, err
	}

	id := in.Id
	if id == "" {
		id = uuid.New().String()
	}
	occurredAt := in.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = l.now()
	}

	return models.LedgerEntry{
		Id:          id,
		SubjectId:   in.SubjectId,
		Amount:      in.Amount,
		SourceKind:  in.SourceKind,
		SourceId:    in.SourceId,
		SourceRef:   in.SourceRef,
		Description: in.Description,
		// UTC also drops the monotonic reading so stored and returned times compare equal
		OccurredAt: occurredAt.UTC(),
	}, nil
}

func (l *Ledger) appendFailed(entry models.LedgerEntry, err error) error {
	if errors.Is(err, store.ErrDuplicateEntry) {
		metrics.DuplicateEntries.WithLabelValues(string(entry.SourceKind)).Inc()
		return err
	}
	zap.L().Error("Failed to append ledger entry",
		zap.String("entry_id", entry.Id),
		zap.String("subject_id", entry.SubjectId),
		zap.Error(err))
	return fmt.Errorf("failed to append entry for %s: %w", entry.SubjectId, err)
}

// BalanceOf returns the sum of every entry of the subject; unknown subjects have 0.
func (l *Ledger) BalanceOf(ctx context.Context, subjectId string) (int64, error) {
	return l.SumOf(ctx, subjectId, models.EntryFilter{})
}

// SumOf returns the sum of the subject's entries matching filter.
func (l *Ledger) SumOf(ctx context.Context, subjectId string, filter models.EntryFilter) (int64, error) {
	sum, err := l.store.SumAmounts(ctx, subjectId, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to sum entries for %s: %w", subjectId, err)
	}
	return sum, nil
}

// EntriesOf lists the subject's entries matching filter, newest first.
// Entries with the same OccurredAt are ordered by most recent insertion first.
func (l *Ledger) EntriesOf(ctx context.Context, subjectId string, filter models.EntryFilter) ([]models.LedgerEntry, error) {
	entries, err := l.store.ListEntries(ctx, subjectId, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries for %s: %w", subjectId, err)
	}
	return entries, nil
}

func (l *Ledger) GetEntry(ctx context.Context, entryId string) (*models.LedgerEntry, error) {
	return l.store.GetEntry(ctx, entryId)
}

// Subjects lists every subject with at least one entry.
func (l *Ledger) Subjects(ctx context.Context) ([]string, error) {
	return l.store.ListSubjects(ctx)
}

// Ping checks the backing store is reachable.
func (l *Ledger) Ping(ctx context.Context) error {
	return l.store.Ping(ctx)
}

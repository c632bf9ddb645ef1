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

package dailycap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"growwise-ledger-go/internal/metrics"
	"growwise-ledger-go/internal/models"
	"growwise-ledger-go/internal/store"

	"go.uber.org/zap"
)

// EarningLedger is the slice of the ledger the cap reads and writes through.
type EarningLedger interface {
	SumOf(ctx context.Context, subjectId string, filter models.EntryFilter) (int64, error)
	AppendCapped(ctx context.Context, in models.LedgerEntryInput, window store.CapWindow) (*store.CappedEntry, error)
	Now() time.Time
}

// Cap bounds per-source earnings per local calendar day. Days run from
// midnight to midnight in the configured location, not as rolling 24h windows.
type Cap struct {
	ledger EarningLedger
	loc    *time.Location
}

func New(ledger EarningLedger, loc *time.Location) *Cap {
	if loc == nil {
		loc = time.Local
	}
	return &Cap{ledger: ledger, loc: loc}
}

func (c *Cap) Location() *time.Location {
	return c.loc
}

// DayWindow returns the calendar day containing asOf with the given allowance.
func (c *Cap) DayWindow(asOf time.Time, maxCoins int64) store.CapWindow {
	y, m, d := asOf.In(c.loc).Date()
	return store.CapWindow{
		Start:    time.Date(y, m, d, 0, 0, 0, 0, c.loc),
		End:      time.Date(y, m, d+1, 0, 0, 0, 0, c.loc),
		MaxCoins: maxCoins,
	}
}

// EarnedToday sums what the subject earned from the source on asOf's calendar day.
func (c *Cap) EarnedToday(ctx context.Context, subjectId string, kind models.SourceKind, sourceId string, asOf time.Time) (int64, error) {
	window := c.DayWindow(asOf, 0)
	earned, err := c.ledger.SumOf(ctx, subjectId, window.Filter(kind, sourceId))
	if err != nil {
		return 0, fmt.Errorf("failed to sum today's earnings: %w", err)
	}
	return earned, nil
}

// RemainingToday returns max(0, rule.MaxCoinsPerDay - earned today).
func (c *Cap) RemainingToday(ctx context.Context, subjectId string, kind models.SourceKind, sourceId string, rule models.DailyCapRule, asOf time.Time) (int64, error) {
	earned, err := c.EarnedToday(ctx, subjectId, kind, sourceId, asOf)
	if err != nil {
		return 0, err
	}
	remaining := rule.MaxCoinsPerDay - earned
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// TryEarn decides how much of desired the cap would grant right now. It
// records nothing, so the answer can be stale by the time the caller acts
// on it; use Earn to decide and record atomically.
func (c *Cap) TryEarn(ctx context.Context, subjectId string, kind models.SourceKind, sourceId string, desired int64, rule models.DailyCapRule, asOf time.Time) (models.EarnResult, error) {
	earned, err := c.EarnedToday(ctx, subjectId, kind, sourceId, asOf)
	if err != nil {
		return models.Denied(), err
	}

	granted := c.DayWindow(asOf, rule.MaxCoinsPerDay).Clip(earned, desired)
	if granted <= 0 {
		return models.Denied(), nil
	}
	return models.Granted(granted), nil
}

// Earn records in under rule, clipping its amount to what remains today.
// A denied result is returned with a nil entry and no error. The granted
// amount is what sticks on the ledger; the entry is returned as stored.
func (c *Cap) Earn(ctx context.Context, in models.LedgerEntryInput, rule models.DailyCapRule) (models.EarnResult, *models.LedgerEntry, error) {
	if err := checkRule(in, rule); err != nil {
		return models.Denied(), nil, err
	}

	desired := in.Amount
	if desired <= 0 || rule.MaxCoinsPerDay <= 0 {
		metrics.RecordCapDecision(in.SourceKind, in.SourceId, desired, models.Denied())
		return models.Denied(), nil, nil
	}

	// Fix the timestamp before choosing the day so the entry and its window agree.
	if in.OccurredAt.IsZero() {
		in.OccurredAt = c.ledger.Now()
	}
	window := c.DayWindow(in.OccurredAt, rule.MaxCoinsPerDay)

	capped, err := c.ledger.AppendCapped(ctx, in, window)
	if errors.Is(err, store.ErrCapReached) {
		zap.L().Info("Daily cap reached",
			zap.String("subject_id", in.SubjectId),
			zap.String("source_kind", string(in.SourceKind)),
			zap.String("source_id", in.SourceId),
			zap.Int64("max_coins_per_day", rule.MaxCoinsPerDay))
		metrics.RecordCapDecision(in.SourceKind, in.SourceId, desired, models.Denied())
		return models.Denied(), nil, nil
	}
	if err != nil {
		return models.Denied(), nil, err
	}

	// The entry is on the ledger from here on; the result reports it.
	if capped.Unsettled != nil {
		zap.L().Warn("Earned coins recorded without a confirmed daily cap",
			zap.String("entry_id", capped.Entry.Id),
			zap.String("subject_id", in.SubjectId),
			zap.String("source_id", in.SourceId),
			zap.Int64("net", capped.Net),
			zap.Error(capped.Unsettled))
	}
	if capped.Net <= 0 {
		// Concurrent earners filled the window; the grant was withdrawn in full.
		metrics.RecordCapDecision(in.SourceKind, in.SourceId, desired, models.Denied())
		return models.Denied(), nil, nil
	}

	result := models.Granted(capped.Net)
	metrics.RecordCapDecision(in.SourceKind, in.SourceId, desired, result)
	entry := capped.Entry
	return result, &entry, nil
}

func checkRule(in models.LedgerEntryInput, rule models.DailyCapRule) error {
	if rule.SourceKind != "" && rule.SourceKind != in.SourceKind {
		return fmt.Errorf("cap rule for %s/%s does not apply to %s entries", rule.SourceKind, rule.SourceId, in.SourceKind)
	}
	if rule.SourceId != "" && rule.SourceId != in.SourceId {
		return fmt.Errorf("cap rule for %s/%s does not apply to source %q", rule.SourceKind, rule.SourceId, in.SourceId)
	}
	return nil
}

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

package api

import (
	"context"
	"fmt"
	"strings"

	"growwise-ledger-go/internal/ledger"
	"growwise-ledger-go/internal/models"

	"go.uber.org/zap"
)

// requireSourceId rejects an empty originating id; the id is what makes the
// credit one-shot.
func requireSourceId(field, id string) error {
	if strings.TrimSpace(id) == "" {
		return &ledger.ValidationError{Fields: map[string]string{field: field + " is required"}}
	}
	return nil
}

// ApproveActivity credits a parent-approved activity. Activities without a
// coin value pay the configured default.
func (s *LedgerService) ApproveActivity(ctx context.Context, activity models.Activity) (*models.LedgerEntry, error) {
	if err := requireSourceId("activity_id", activity.Id); err != nil {
		return nil, err
	}
	coins := activity.CoinValue
	if coins == 0 {
		coins = s.rules.DefaultTaskCoins
	}

	entry, err := s.ledger.Append(ctx, models.LedgerEntryInput{
		SubjectId:   activity.SubjectId,
		Amount:      coins,
		SourceKind:  models.SourceTask,
		SourceRef:   activity.Id,
		Description: fmt.Sprintf("Activity approved: %s", activity.Title),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to credit activity %s: %w", activity.Id, err)
	}

	zap.L().Info("Activity approved",
		zap.String("activity_id", activity.Id),
		zap.String("subject_id", activity.SubjectId),
		zap.Int64("coins", entry.Amount))
	return entry, nil
}

// CompleteCalendarEvent credits a completed calendar event.
func (s *LedgerService) CompleteCalendarEvent(ctx context.Context, event models.CalendarEvent) (*models.LedgerEntry, error) {
	if err := requireSourceId("event_id", event.Id); err != nil {
		return nil, err
	}
	coins := event.CoinReward
	if coins == 0 {
		coins = s.rules.CalendarCoins
	}

	entry, err := s.ledger.Append(ctx, models.LedgerEntryInput{
		SubjectId:   event.SubjectId,
		Amount:      coins,
		SourceKind:  models.SourceCalendar,
		SourceRef:   event.Id,
		Description: fmt.Sprintf("Completed: %s", event.Title),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to credit calendar event %s: %w", event.Id, err)
	}

	zap.L().Info("Calendar event completed",
		zap.String("event_id", event.Id),
		zap.String("subject_id", event.SubjectId),
		zap.Int64("coins", entry.Amount))
	return entry, nil
}

// CompleteGameSession scores a session and earns its coins under the game's
// daily cap. Sessions scoring under one coin, and sessions past the cap,
// record nothing and return a denied result.
func (s *LedgerService) CompleteGameSession(ctx context.Context, session models.GameSession) (*models.EarnOutcome, error) {
	game, ok := s.rules.Game(session.GameId)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGame, session.GameId)
	}

	if err := requireSourceId("session_id", session.Id); err != nil {
		return nil, err
	}

	coins := CoinsForScore(session.Score)
	if coins == 0 {
		zap.L().Info("Game session earned no coins",
			zap.String("session_id", session.Id),
			zap.String("game_id", game.Id),
			zap.Int("score", session.Score))
		return &models.EarnOutcome{Result: models.Denied()}, nil
	}

	result, entry, err := s.cap.Earn(ctx, models.LedgerEntryInput{
		SubjectId:   session.SubjectId,
		Amount:      coins,
		SourceKind:  models.SourceGame,
		SourceId:    game.Id,
		SourceRef:   session.Id,
		Description: fmt.Sprintf("%s: scored %d", game.Title, session.Score),
		OccurredAt:  session.CompletedAt,
	}, game.CapRule())
	if err != nil {
		return nil, fmt.Errorf("failed to earn coins for session %s: %w", session.Id, err)
	}

	zap.L().Info("Game session completed",
		zap.String("session_id", session.Id),
		zap.String("subject_id", session.SubjectId),
		zap.String("game_id", game.Id),
		zap.Int("score", session.Score),
		zap.Int64("desired", coins),
		zap.Bool("granted", result.Granted),
		zap.Int64("coins", result.Amount))
	return &models.EarnOutcome{Result: result, Entry: entry}, nil
}

// CompleteReferral pays the referral bonus once per referral.
func (s *LedgerService) CompleteReferral(ctx context.Context, referral models.Referral) (*models.LedgerEntry, error) {
	if err := requireSourceId("referral_id", referral.Id); err != nil {
		return nil, err
	}
	entry, err := s.ledger.Append(ctx, models.LedgerEntryInput{
		SubjectId:   referral.SubjectId,
		Amount:      s.rules.ReferralBonus,
		SourceKind:  models.SourceReferral,
		SourceRef:   referral.Id,
		Description: fmt.Sprintf("Referral bonus: %s joined", referral.ReferredName),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to pay referral %s: %w", referral.Id, err)
	}

	zap.L().Info("Referral bonus paid",
		zap.String("referral_id", referral.Id),
		zap.String("subject_id", referral.SubjectId),
		zap.Int64("coins", entry.Amount))
	return entry, nil
}

// AwardBonus records parent-granted coins. A negative amount is a correction.
func (s *LedgerService) AwardBonus(ctx context.Context, subjectId string, amount int64, reason string) (*models.LedgerEntry, error) {
	entry, err := s.ledger.Append(ctx, models.LedgerEntryInput{
		SubjectId:   subjectId,
		Amount:      amount,
		SourceKind:  models.SourceBonus,
		Description: reason,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to award bonus: %w", err)
	}
	return entry, nil
}

// ReverseEntry appends the negation of an entry. Each entry can be reversed
// once. The reversal keeps the source kind but not the source id, so it never
// counts toward a daily cap window.
func (s *LedgerService) ReverseEntry(ctx context.Context, entryId, reason string) (*models.LedgerEntry, error) {
	original, err := s.ledger.GetEntry(ctx, entryId)
	if err != nil {
		return nil, fmt.Errorf("failed to load entry %s: %w", entryId, err)
	}

	description := fmt.Sprintf("Reversal of %s", original.Description)
	if reason != "" {
		description = fmt.Sprintf("%s (%s)", description, reason)
	}

	entry, err := s.ledger.Append(ctx, models.LedgerEntryInput{
		SubjectId:   original.SubjectId,
		Amount:      -original.Amount,
		SourceKind:  original.SourceKind,
		SourceRef:   original.Id + "-reversal",
		Description: description,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reverse entry %s: %w", entryId, err)
	}

	zap.L().Info("Entry reversed",
		zap.String("entry_id", entryId),
		zap.String("reversal_id", entry.Id),
		zap.String("subject_id", entry.SubjectId),
		zap.Int64("amount", entry.Amount))
	return entry, nil
}

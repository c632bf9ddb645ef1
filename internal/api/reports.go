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
	"time"

	"growwise-ledger-go/internal/milestone"
	"growwise-ledger-go/internal/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
	summaryRecentLimit  = 5
	reportConcurrency   = 8
)

// Balance returns the subject's derived coin balance.
func (s *LedgerService) Balance(ctx context.Context, subjectId string) (*models.SubjectBalance, error) {
	if subjectId == "" {
		return nil, fmt.Errorf("subject_id is required")
	}

	balance, err := s.ledger.BalanceOf(ctx, subjectId)
	if err != nil {
		zap.L().Error("Failed to get balance", zap.String("subject_id", subjectId), zap.Error(err))
		return nil, err
	}
	return &models.SubjectBalance{SubjectId: subjectId, Balance: balance}, nil
}

// History returns a page of the subject's entries, newest first.
func (s *LedgerService) History(ctx context.Context, subjectId string, filter models.EntryFilter) ([]models.EntryRecord, error) {
	if subjectId == "" {
		return nil, fmt.Errorf("subject_id is required")
	}

	if filter.Limit <= 0 || filter.Limit > maxHistoryLimit {
		filter.Limit = defaultHistoryLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	entries, err := s.ledger.EntriesOf(ctx, subjectId, filter)
	if err != nil {
		zap.L().Error("Failed to get history", zap.String("subject_id", subjectId), zap.Error(err))
		return nil, err
	}
	return toRecords(entries), nil
}

func (s *LedgerService) Progress(ctx context.Context, subjectId string) ([]models.MilestoneStatus, error) {
	return s.tracker.Progress(ctx, subjectId, s.rules.Milestones)
}

func (s *LedgerService) NextMilestone(ctx context.Context, subjectId string) (*models.MilestoneDefinition, error) {
	return s.tracker.NextMilestone(ctx, subjectId, s.rules.Milestones)
}

// GameStatus reports how much the subject can still earn from a game on
// asOf's day. It is advisory: a later CompleteGameSession makes the decision.
func (s *LedgerService) GameStatus(ctx context.Context, subjectId, gameId string, asOf time.Time) (*models.GameStatus, error) {
	game, ok := s.rules.Game(gameId)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGame, gameId)
	}

	remaining, err := s.cap.RemainingToday(ctx, subjectId, models.SourceGame, game.Id, game.CapRule(), asOf)
	if err != nil {
		return nil, err
	}

	return &models.GameStatus{
		Game:        game,
		EarnedToday: game.MaxCoinsPerDay - remaining,
		Remaining:   remaining,
		CanEarn:     remaining > 0,
	}, nil
}

// GameStatuses reports GameStatus for every configured game.
func (s *LedgerService) GameStatuses(ctx context.Context, subjectId string, asOf time.Time) ([]models.GameStatus, error) {
	statuses := make([]models.GameStatus, 0, len(s.rules.Games))
	for _, game := range s.rules.Games {
		status, err := s.GameStatus(ctx, subjectId, game.Id, asOf)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, *status)
	}
	return statuses, nil
}

// Summary gathers one student's balance, milestone progress and recent entries.
// Progress is computed from the same balance read so the parts agree.
func (s *LedgerService) Summary(ctx context.Context, subjectId string) (*models.StudentSummary, error) {
	balance, err := s.ledger.BalanceOf(ctx, subjectId)
	if err != nil {
		return nil, err
	}

	recent, err := s.ledger.EntriesOf(ctx, subjectId, models.EntryFilter{Limit: summaryRecentLimit})
	if err != nil {
		return nil, err
	}

	return &models.StudentSummary{
		SubjectId:     subjectId,
		Balance:       balance,
		Milestones:    milestone.StatusAll(balance, s.rules.Milestones),
		NextMilestone: milestone.Next(balance, s.rules.Milestones),
		RecentEntries: toRecords(recent),
	}, nil
}

// FamilyReport summarizes the given students, or every student with entries
// when none are given.
func (s *LedgerService) FamilyReport(ctx context.Context, subjectIds []string) (*models.FamilyReport, error) {
	if len(subjectIds) == 0 {
		subjects, err := s.ledger.Subjects(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list students: %w", err)
		}
		subjectIds = subjects
	}

	summaries := make([]models.StudentSummary, len(subjectIds))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(reportConcurrency)
	for i, subjectId := range subjectIds {
		g.Go(func() error {
			summary, err := s.Summary(gctx, subjectId)
			if err != nil {
				return fmt.Errorf("failed to summarize %s: %w", subjectId, err)
			}
			summaries[i] = *summary
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &models.FamilyReport{Students: summaries}
	for _, summary := range summaries {
		report.TotalCoins += summary.Balance
	}

	zap.L().Debug("Family report built",
		zap.Int("students", len(summaries)),
		zap.Int64("total_coins", report.TotalCoins))
	return report, nil
}

func toRecords(entries []models.LedgerEntry) []models.EntryRecord {
	records := make([]models.EntryRecord, len(entries))
	for i, e := range entries {
		records[i] = models.EntryRecord{
			Id:          e.Id,
			Kind:        e.SourceKind,
			SourceId:    e.SourceId,
			Amount:      e.Amount,
			Description: e.Description,
			OccurredAt:  e.OccurredAt,
		}
	}
	return records
}

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

package milestone

import (
	"context"
	"fmt"

	"growwise-ledger-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var hundred = decimal.NewFromInt(100)

// DefaultMilestones are the reward zones offered when no rules file overrides them.
var DefaultMilestones = []models.MilestoneDefinition{
	{ThresholdCoins: 5000, Label: "First Milestone! 🎉", Description: "Basic Reward Zone"},
	{ThresholdCoins: 50000, Label: "Major Achievement! 🌟", Description: "Major Gift Zone (parent decides)"},
}

// BalanceReader is the slice of the ledger the tracker needs.
type BalanceReader interface {
	BalanceOf(ctx context.Context, subjectId string) (int64, error)
}

// Tracker evaluates milestones live against the ledger balance; nothing is persisted.
type Tracker struct {
	balances BalanceReader
}

func NewTracker(balances BalanceReader) *Tracker {
	return &Tracker{balances: balances}
}

// Validate checks that every threshold is positive and thresholds strictly increase.
func Validate(milestones []models.MilestoneDefinition) error {
	var previous int64
	for i, m := range milestones {
		if m.ThresholdCoins <= 0 {
			return fmt.Errorf("milestone %d (%s): threshold must be positive, got %d", i, m.Label, m.ThresholdCoins)
		}
		if i > 0 && m.ThresholdCoins <= previous {
			return fmt.Errorf("milestone %d (%s): threshold %d must exceed previous threshold %d",
				i, m.Label, m.ThresholdCoins, previous)
		}
		previous = m.ThresholdCoins
	}
	return nil
}

// Progress returns the subject's status against each milestone, in order.
func (t *Tracker) Progress(ctx context.Context, subjectId string, milestones []models.MilestoneDefinition) ([]models.MilestoneStatus, error) {
	if len(milestones) == 0 {
		return []models.MilestoneStatus{}, nil
	}
	if err := Validate(milestones); err != nil {
		return nil, err
	}

	balance, err := t.balances.BalanceOf(ctx, subjectId)
	if err != nil {
		return nil, fmt.Errorf("failed to read balance for milestone progress: %w", err)
	}

	zap.L().Debug("Evaluating milestones",
		zap.String("subject_id", subjectId),
		zap.Int64("balance", balance),
		zap.Int("milestones", len(milestones)))

	return StatusAll(balance, milestones), nil
}

// NextMilestone returns the first milestone, in threshold order, that the
// subject has not reached. It returns nil when all are reached or none exist.
func (t *Tracker) NextMilestone(ctx context.Context, subjectId string, milestones []models.MilestoneDefinition) (*models.MilestoneDefinition, error) {
	if len(milestones) == 0 {
		return nil, nil
	}
	if err := Validate(milestones); err != nil {
		return nil, err
	}

	balance, err := t.balances.BalanceOf(ctx, subjectId)
	if err != nil {
		return nil, fmt.Errorf("failed to read balance for next milestone: %w", err)
	}
	return Next(balance, milestones), nil
}

// StatusAll evaluates balance against every milestone.
func StatusAll(balance int64, milestones []models.MilestoneDefinition) []models.MilestoneStatus {
	statuses := make([]models.MilestoneStatus, 0, len(milestones))
	for _, m := range milestones {
		statuses = append(statuses, Status(balance, m))
	}
	return statuses
}

// Status evaluates balance against one milestone.
// Percent is 100*balance/threshold, capped at 100 and floored at 0. A
// non-positive threshold has no meaningful ratio and reads 0 until reached.
func Status(balance int64, m models.MilestoneDefinition) models.MilestoneStatus {
	achieved := balance >= m.ThresholdCoins

	percent := hundred
	switch {
	case achieved:
	case m.ThresholdCoins <= 0:
		percent = decimal.Zero
	default:
		percent = decimal.NewFromInt(balance).Mul(hundred).Div(decimal.NewFromInt(m.ThresholdCoins))
		if percent.IsNegative() {
			percent = decimal.Zero
		}
	}

	var toGo int64
	if !achieved {
		toGo = m.ThresholdCoins - balance
	}

	return models.MilestoneStatus{
		Definition:    m,
		Achieved:      achieved,
		AchievedCoins: balance,
		Percent:       percent,
		CoinsToGo:     toGo,
	}
}

// Next returns the first unreached milestone for balance.
func Next(balance int64, milestones []models.MilestoneDefinition) *models.MilestoneDefinition {
	for i := range milestones {
		if balance < milestones[i].ThresholdCoins {
			next := milestones[i]
			return &next
		}
	}
	return nil
}

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
	"growwise-ledger-go/internal/milestone"
	"growwise-ledger-go/internal/models"
)

const (
	// pointsPerCoin is the game score needed for one coin.
	pointsPerCoin = 25
	// maxCoinsPerSession bounds a single game session's payout.
	maxCoinsPerSession = 3

	DefaultTaskCoins     = 15
	DefaultCalendarCoins = 5
	DefaultReferralBonus = 300
)

// DefaultGames is the mini-game catalogue with its daily caps.
var DefaultGames = []models.GameDefinition{
	{Id: "flag-quiz", Title: "Flag Quiz", MaxCoinsPerDay: 3},
	{Id: "vocabulary-builder", Title: "Vocabulary Builder", MaxCoinsPerDay: 3},
	{Id: "typing-practice", Title: "Typing Practice", MaxCoinsPerDay: 2},
	{Id: "memory-match", Title: "Memory Match", MaxCoinsPerDay: 3},
}

// CoinsForScore converts a game score to coins: one per 25 points, at most 3.
func CoinsForScore(score int) int64 {
	if score <= 0 {
		return 0
	}
	return min(int64(score/pointsPerCoin), maxCoinsPerSession)
}

// DefaultRules returns the reward configuration used when no rules file overrides it.
func DefaultRules() models.RewardRules {
	return models.RewardRules{
		Milestones:       append([]models.MilestoneDefinition(nil), milestone.DefaultMilestones...),
		Games:            append([]models.GameDefinition(nil), DefaultGames...),
		DefaultTaskCoins: DefaultTaskCoins,
		CalendarCoins:    DefaultCalendarCoins,
		ReferralBonus:    DefaultReferralBonus,
	}
}

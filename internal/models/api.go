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

// Activity is a task a parent approved for coins
type Activity struct {
	Id        string `json:"id"`
	SubjectId string `json:"subject_id"`
	Title     string `json:"title"`
	CoinValue int64  `json:"coin_value"`
}

// CalendarEvent is a scheduled event a student completed
type CalendarEvent struct {
	Id         string `json:"id"`
	SubjectId  string `json:"subject_id"`
	Title      string `json:"title"`
	CoinReward int64  `json:"coin_reward"`
}

// GameSession is one finished mini-game play
type GameSession struct {
	Id          string    `json:"id"`
	SubjectId   string    `json:"subject_id"`
	GameId      string    `json:"game_id"`
	Score       int       `json:"score"`
	CompletedAt time.Time `json:"completed_at"`
}

// Referral is a successful invitation made by a student
type Referral struct {
	Id           string `json:"id"`
	SubjectId    string `json:"subject_id"`
	ReferredName string `json:"referred_name"`
}

// SubjectBalance is a subject's derived coin balance
type SubjectBalance struct {
	SubjectId string `json:"subject_id"`
	Balance   int64  `json:"balance"`
}

// EntryRecord represents an entry in a subject's history
type EntryRecord struct {
	Id          string     `json:"id"`
	Kind        SourceKind `json:"kind"`
	SourceId    string     `json:"source_id,omitempty"`
	Amount      int64      `json:"amount"`
	Description string     `json:"description"`
	OccurredAt  time.Time  `json:"occurred_at"`
}

// EarnOutcome represents the result of a capped earning workflow
type EarnOutcome struct {
	Result EarnResult   `json:"result"`
	Entry  *LedgerEntry `json:"entry,omitempty"`
}

// GameStatus is the speculative cap view of one game for one subject
type GameStatus struct {
	Game        GameDefinition `json:"game"`
	EarnedToday int64          `json:"earned_today"`
	Remaining   int64          `json:"remaining"`
	CanEarn     bool           `json:"can_earn"`
}

// StudentSummary is the read model handed to reporting
type StudentSummary struct {
	SubjectId     string               `json:"subject_id"`
	Balance       int64                `json:"balance"`
	Milestones    []MilestoneStatus    `json:"milestones"`
	NextMilestone *MilestoneDefinition `json:"next_milestone,omitempty"`
	RecentEntries []EntryRecord        `json:"recent_entries"`
}

// FamilyReport aggregates the summaries of several students
type FamilyReport struct {
	Students   []StudentSummary `json:"students"`
	TotalCoins int64            `json:"total_coins"`
}

// Reward is a parent-defined reward a student buys with coins
type Reward struct {
	Id          string     `json:"id"`
	SubjectId   string     `json:"subject_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	CoinCost    int64      `json:"coin_cost"`
	IsRedeemed  bool       `json:"is_redeemed"`
	RedeemedAt  *time.Time `json:"redeemed_at,omitempty"`
}

// RewardStatus is a subject's standing against one reward
type RewardStatus struct {
	Reward     Reward `json:"reward"`
	Redeemable bool   `json:"redeemable"`
	CoinsToGo  int64  `json:"coins_to_go"`
}

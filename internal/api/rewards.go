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
	"errors"
	"fmt"

	"growwise-ledger-go/internal/models"
	"growwise-ledger-go/internal/store"

	"go.uber.org/zap"
)

var (
	ErrRewardRedeemed    = errors.New("reward already redeemed")
	ErrInsufficientCoins = errors.New("insufficient coins")
)

// RedemptionRef is the source reference of a reward's redemption entry.
func RedemptionRef(rewardId string) string {
	return rewardId + "-redemption"
}

// rewardStatus applies the redeem rule: not yet redeemed and affordable.
func rewardStatus(balance int64, reward models.Reward) models.RewardStatus {
	status := models.RewardStatus{Reward: reward}
	if reward.IsRedeemed {
		return status
	}
	status.Redeemable = balance >= reward.CoinCost
	if !status.Redeemable {
		status.CoinsToGo = reward.CoinCost - balance
	}
	return status
}

// RedeemableRewards evaluates the subject's rewards against one balance read.
func (s *LedgerService) RedeemableRewards(ctx context.Context, subjectId string, rewards []models.Reward) ([]models.RewardStatus, error) {
	statuses := make([]models.RewardStatus, 0, len(rewards))
	if len(rewards) == 0 {
		return statuses, nil
	}

	balance, err := s.ledger.BalanceOf(ctx, subjectId)
	if err != nil {
		return nil, fmt.Errorf("failed to read balance for rewards: %w", err)
	}
	for _, reward := range rewards {
		statuses = append(statuses, rewardStatus(balance, reward))
	}
	return statuses, nil
}

// RedeemReward spends the reward's cost and returns the reward marked redeemed.
// A reward can be redeemed once; a second attempt fails with ErrRewardRedeemed.
func (s *LedgerService) RedeemReward(ctx context.Context, reward models.Reward) (*models.Reward, *models.LedgerEntry, error) {
	if reward.Id == "" {
		return nil, nil, fmt.Errorf("reward id is required")
	}
	if reward.CoinCost <= 0 {
		return nil, nil, fmt.Errorf("reward %s: coin cost must be positive, got %d", reward.Id, reward.CoinCost)
	}
	if reward.IsRedeemed {
		return nil, nil, fmt.Errorf("%w: %s", ErrRewardRedeemed, reward.Id)
	}

	balance, err := s.ledger.BalanceOf(ctx, reward.SubjectId)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read balance for reward %s: %w", reward.Id, err)
	}
	if balance < reward.CoinCost {
		return nil, nil, fmt.Errorf("%w: reward %s costs %d, balance is %d",
			ErrInsufficientCoins, reward.Id, reward.CoinCost, balance)
	}

	entry, err := s.ledger.Append(ctx, models.LedgerEntryInput{
		SubjectId:   reward.SubjectId,
		Amount:      -reward.CoinCost,
		SourceKind:  models.SourceBonus,
		SourceRef:   RedemptionRef(reward.Id),
		Description: fmt.Sprintf("Redeemed: %s", reward.Title),
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEntry) {
			return nil, nil, fmt.Errorf("%w: %s: %w", ErrRewardRedeemed, reward.Id, err)
		}
		return nil, nil, fmt.Errorf("failed to redeem reward %s: %w", reward.Id, err)
	}

	redeemed := reward
	redeemed.IsRedeemed = true
	redeemedAt := entry.OccurredAt
	redeemed.RedeemedAt = &redeemedAt

	zap.L().Info("Reward redeemed",
		zap.String("reward_id", reward.Id),
		zap.String("subject_id", reward.SubjectId),
		zap.Int64("coin_cost", reward.CoinCost),
		zap.Int64("balance_before", balance))
	return &redeemed, entry, nil
}

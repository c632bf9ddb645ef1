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
	"time"

	"growwise-ledger-go/internal/dailycap"
	"growwise-ledger-go/internal/ledger"
	"growwise-ledger-go/internal/milestone"
	"growwise-ledger-go/internal/models"
)

var ErrUnknownGame = errors.New("unknown game")

// LedgerService is the in-process surface the approval, calendar, game,
// referral and reporting workflows call.
type LedgerService struct {
	ledger  *ledger.Ledger
	tracker *milestone.Tracker
	cap     *dailycap.Cap
	rules   models.RewardRules
}

func NewLedgerService(l *ledger.Ledger, loc *time.Location, rules models.RewardRules) *LedgerService {
	return &LedgerService{
		ledger:  l,
		tracker: milestone.NewTracker(l),
		cap:     dailycap.New(l, loc),
		rules:   rules,
	}
}

// Rules returns the reward configuration the service applies.
func (s *LedgerService) Rules() models.RewardRules {
	return s.rules
}

func (s *LedgerService) HealthCheck(ctx context.Context) error {
	if err := s.ledger.Ping(ctx); err != nil {
		return fmt.Errorf("ledger health check failed: %w", err)
	}
	return nil
}

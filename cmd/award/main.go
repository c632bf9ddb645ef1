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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"growwise-ledger-go/internal/api"
	"growwise-ledger-go/internal/common"
	"growwise-ledger-go/internal/config"
	"growwise-ledger-go/internal/ledger"
	"growwise-ledger-go/internal/models"
	"growwise-ledger-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	kindTask     = "task"
	kindCalendar = "calendar"
	kindBonus    = "bonus"
	kindReferral = "referral"
	kindReversal = "reversal"
	kindRedeem   = "redeem"
)

type awardRequest struct {
	kind    string
	student string
	amount  int64
	ref     string
	title   string
	entryId string
}

func parseAndValidateFlags() (*awardRequest, error) {
	kindFlag := flag.String("kind", "", "Award kind: task, calendar, bonus, referral, redeem or reversal (required)")
	studentFlag := flag.String("student", "", "Student id (required except for reversal)")
	amountFlag := flag.Int64("amount", 0, "Coins to award (task/calendar default from rules; required for bonus and as the reward cost for redeem)")
	refFlag := flag.String("ref", "", "Originating activity, event or referral id (generated when empty); reward id for redeem")
	titleFlag := flag.String("title", "", "Description shown in the student's history")
	entryFlag := flag.String("entry", "", "Entry id to reverse (reversal only)")
	flag.Parse()

	req := &awardRequest{
		kind:    *kindFlag,
		student: *studentFlag,
		amount:  *amountFlag,
		ref:     *refFlag,
		title:   *titleFlag,
		entryId: *entryFlag,
	}

	switch req.kind {
	case kindReversal:
		if req.entryId == "" {
			return nil, fmt.Errorf("--entry is required for a reversal")
		}
		return req, nil
	case kindTask, kindCalendar, kindReferral:
	case kindRedeem:
		if req.ref == "" || req.amount <= 0 {
			return nil, fmt.Errorf("--ref and a positive --amount are required to redeem a reward")
		}
	case kindBonus:
		if req.amount == 0 {
			return nil, fmt.Errorf("--amount is required for a bonus")
		}
	default:
		return nil, fmt.Errorf("--kind must be one of task, calendar, bonus, referral, redeem, reversal")
	}

	if req.student == "" {
		return nil, fmt.Errorf("--student is required")
	}
	if req.amount < 0 && req.kind != kindBonus {
		return nil, fmt.Errorf("--amount cannot be negative for %s awards", req.kind)
	}
	if req.ref == "" {
		req.ref = uuid.New().String()
	}
	return req, nil
}

func award(ctx context.Context, svc *api.LedgerService, req *awardRequest) (*models.LedgerEntry, error) {
	switch req.kind {
	case kindTask:
		return svc.ApproveActivity(ctx, models.Activity{
			Id: req.ref, SubjectId: req.student, Title: req.title, CoinValue: req.amount,
		})
	case kindCalendar:
		return svc.CompleteCalendarEvent(ctx, models.CalendarEvent{
			Id: req.ref, SubjectId: req.student, Title: req.title, CoinReward: req.amount,
		})
	case kindReferral:
		return svc.CompleteReferral(ctx, models.Referral{
			Id: req.ref, SubjectId: req.student, ReferredName: req.title,
		})
	case kindBonus:
		return svc.AwardBonus(ctx, req.student, req.amount, req.title)
	case kindRedeem:
		_, entry, err := svc.RedeemReward(ctx, models.Reward{
			Id: req.ref, SubjectId: req.student, Title: req.title, CoinCost: req.amount,
		})
		return entry, err
	default:
		return svc.ReverseEntry(ctx, req.entryId, req.title)
	}
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	req, err := parseAndValidateFlags()
	if err != nil {
		logger.Fatal("Invalid arguments", zap.Error(err))
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	entry, err := award(ctx, services.LedgerService, req)
	switch {
	case errors.Is(err, store.ErrDuplicateEntry), errors.Is(err, api.ErrRewardRedeemed):
		logger.Warn("Already recorded, nothing to do", zap.String("kind", req.kind), zap.String("ref", req.ref), zap.Error(err))
		return
	case errors.Is(err, api.ErrInsufficientCoins):
		logger.Fatal("Not enough coins to redeem", zap.Error(err))
	case errors.Is(err, ledger.ErrValidation):
		logger.Fatal("Award rejected", zap.Error(err))
	case err != nil:
		logger.Fatal("Failed to record award", zap.Error(err))
	}

	balance, err := services.LedgerService.Balance(ctx, entry.SubjectId)
	if err != nil {
		logger.Fatal("Failed to read balance", zap.Error(err))
	}

	common.PrintHeader("COINS RECORDED", common.DefaultWidth)
	fmt.Printf("Entry:    %s\n", entry.Id)
	fmt.Printf("Student:  %s\n", entry.SubjectId)
	fmt.Printf("Kind:     %s\n", entry.SourceKind)
	fmt.Printf("Amount:   %s\n", common.FormatSignedCoins(entry.Amount))
	fmt.Printf("Note:     %s\n", entry.Description)
	common.PrintFooter(fmt.Sprintf("New balance: %d coins", balance.Balance), common.DefaultWidth)
}

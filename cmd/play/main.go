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
	"time"

	"growwise-ledger-go/internal/api"
	"growwise-ledger-go/internal/common"
	"growwise-ledger-go/internal/config"
	"growwise-ledger-go/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func printGameStatuses(statuses []models.GameStatus) {
	for i, status := range statuses {
		state := "can play for coins"
		if !status.CanEarn {
			state = "daily cap reached"
		}
		fmt.Printf("%s %-20s %d / %d today, %s\n",
			common.BoxPrefix(i == len(statuses)-1),
			status.Game.Title,
			status.EarnedToday,
			status.Game.MaxCoinsPerDay,
			state)
	}
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	studentFlag := flag.String("student", "", "Student id (required)")
	gameFlag := flag.String("game", "", "Game id; omit to list today's game status")
	scoreFlag := flag.Int("score", 0, "Session score (25 points per coin, at most 3 coins)")
	sessionFlag := flag.String("session", "", "Session id (generated when empty)")
	flag.Parse()

	if *studentFlag == "" {
		logger.Fatal("--student is required")
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

	if *gameFlag == "" {
		statuses, err := services.LedgerService.GameStatuses(ctx, *studentFlag, time.Now())
		if err != nil {
			logger.Fatal("Failed to read game status", zap.Error(err))
		}
		common.PrintHeader(fmt.Sprintf("GAMES TODAY: %s", *studentFlag), common.DefaultWidth)
		printGameStatuses(statuses)
		return
	}

	sessionId := *sessionFlag
	if sessionId == "" {
		sessionId = uuid.New().String()
	}

	outcome, err := services.LedgerService.CompleteGameSession(ctx, models.GameSession{
		Id:          sessionId,
		SubjectId:   *studentFlag,
		GameId:      *gameFlag,
		Score:       *scoreFlag,
		CompletedAt: time.Now(),
	})
	if errors.Is(err, api.ErrUnknownGame) {
		logger.Fatal("Unknown game", zap.String("game", *gameFlag))
	}
	if err != nil {
		logger.Fatal("Failed to record game session", zap.Error(err))
	}

	common.PrintHeader("GAME SESSION", common.DefaultWidth)
	fmt.Printf("Session:  %s\n", sessionId)
	fmt.Printf("Score:    %d (worth %d coins)\n", *scoreFlag, api.CoinsForScore(*scoreFlag))
	if outcome.Result.Granted {
		common.PrintFooter(fmt.Sprintf("Earned %d coins", outcome.Result.Amount), common.DefaultWidth)
	} else {
		common.PrintFooter("No coins earned: score too low or today's cap already reached", common.DefaultWidth)
	}
}

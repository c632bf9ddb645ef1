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
	"flag"
	"fmt"
	"time"

	"growwise-ledger-go/internal/common"
	"growwise-ledger-go/internal/config"
	"growwise-ledger-go/internal/models"

	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

func parseDay(value string, loc *time.Location) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation(dateLayout, value, loc)
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	studentFlag := flag.String("student", "", "Student id (required)")
	kindFlag := flag.String("kind", "", "Only entries of this source kind (optional)")
	sourceFlag := flag.String("source", "", "Only entries from this source id, e.g. a game id (optional)")
	fromFlag := flag.String("from", "", "First day to include, YYYY-MM-DD (optional)")
	toFlag := flag.String("to", "", "Day to stop before, YYYY-MM-DD (optional)")
	limitFlag := flag.Int("limit", 20, "Maximum entries to show (1-100)")
	offsetFlag := flag.Int("offset", 0, "Entries to skip")
	flag.Parse()

	if *studentFlag == "" {
		logger.Fatal("--student is required")
	}
	if *kindFlag != "" && !models.SourceKind(*kindFlag).Valid() {
		logger.Fatal("Unknown source kind", zap.String("kind", *kindFlag))
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	from, err := parseDay(*fromFlag, cfg.Ledger.Location)
	if err != nil {
		logger.Fatal("Invalid --from date", zap.Error(err))
	}
	to, err := parseDay(*toFlag, cfg.Ledger.Location)
	if err != nil {
		logger.Fatal("Invalid --to date", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	records, err := services.LedgerService.History(ctx, *studentFlag, models.EntryFilter{
		SourceKind: models.SourceKind(*kindFlag),
		SourceId:   *sourceFlag,
		From:       from,
		To:         to,
		Limit:      *limitFlag,
		Offset:     *offsetFlag,
	})
	if err != nil {
		logger.Fatal("Failed to read history", zap.Error(err))
	}

	common.PrintHeader(fmt.Sprintf("COIN HISTORY: %s", *studentFlag), common.WideWidth)
	var net int64
	for i, record := range records {
		net += record.Amount
		fmt.Printf("%s %s  %-8s %-18s %6s  %s\n",
			common.BoxPrefix(i == len(records)-1),
			record.OccurredAt.In(cfg.Ledger.Location).Format("2006-01-02 15:04"),
			record.Kind,
			record.SourceId,
			common.FormatSignedCoins(record.Amount),
			record.Description)
	}
	common.PrintFooter(fmt.Sprintf("%d entries shown, net %s coins", len(records), common.FormatSignedCoins(net)), common.WideWidth)
}

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

	"growwise-ledger-go/internal/api"
	"growwise-ledger-go/internal/common"
	"growwise-ledger-go/internal/config"
	"growwise-ledger-go/internal/models"

	"go.uber.org/zap"
)

const progressBarWidth = 30

type balanceStats struct {
	totalStudents int
	totalCoins    int64
	milestonesHit int
}

func formatEntryId(entryId string) string {
	if len(entryId) > 8 {
		return entryId[:8] + "..."
	}
	return entryId
}

func printMilestone(status models.MilestoneStatus, isLast bool) {
	symbol := common.BoxPrefix(isLast)
	state := fmt.Sprintf("%d to go", status.CoinsToGo)
	if status.Achieved {
		state = "reached"
	}

	fmt.Printf("%s %-24s %s %6s%% (%d / %d, %s)\n",
		symbol,
		status.Definition.Label,
		common.ProgressBar(status.Percent, progressBarWidth),
		status.Percent.StringFixed(1),
		status.AchievedCoins,
		status.Definition.ThresholdCoins,
		state)
	if status.Definition.Description != "" {
		fmt.Printf("%s   %s\n", common.BoxDetailPrefix(isLast), status.Definition.Description)
	}
}

func printRecentEntries(entries []models.EntryRecord) {
	for i, entry := range entries {
		isLast := i == len(entries)-1
		fmt.Printf("%s %-8s %-11s %6s  %s  (%s)\n",
			common.BoxPrefix(isLast),
			entry.Kind,
			formatEntryId(entry.Id),
			common.FormatSignedCoins(entry.Amount),
			entry.Description,
			entry.OccurredAt.Local().Format("2006-01-02 15:04:05"))
	}
}

func printStudent(summary models.StudentSummary) {
	fmt.Printf("\n┌─ Student: %s\n", summary.SubjectId)
	fmt.Printf("│  Balance: %d coins\n", summary.Balance)
	if summary.NextMilestone != nil {
		fmt.Printf("│  Next: %s at %d coins\n", summary.NextMilestone.Label, summary.NextMilestone.ThresholdCoins)
	} else if len(summary.Milestones) > 0 {
		fmt.Println("│  Next: every milestone reached")
	}
	common.PrintBoxSeparator(78)

	for i, status := range summary.Milestones {
		printMilestone(status, i == len(summary.Milestones)-1 && len(summary.RecentEntries) == 0)
	}
	if len(summary.RecentEntries) > 0 {
		common.PrintBoxSeparator(78)
		printRecentEntries(summary.RecentEntries)
	}
}

func generateReport(ctx context.Context, subjects []string, svc *api.LedgerService) (balanceStats, error) {
	report, err := svc.FamilyReport(ctx, subjects)
	if err != nil {
		return balanceStats{}, err
	}

	stats := balanceStats{totalStudents: len(report.Students), totalCoins: report.TotalCoins}
	for _, summary := range report.Students {
		printStudent(summary)
		for _, status := range summary.Milestones {
			if status.Achieved {
				stats.milestonesHit++
			}
		}
	}
	return stats, nil
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	// Parse command line flags
	studentFlag := flag.String("student", "", "Filter by specific student id (optional)")
	flag.Parse()

	logger.Info("Starting balance query")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	subjects, err := common.ResolveSubjects(ctx, services.Ledger, *studentFlag, logger)
	if err != nil {
		logger.Fatal("Failed to resolve students", zap.Error(err))
	}
	if len(subjects) == 0 {
		common.PrintFooter("No students have ledger entries yet", common.DefaultWidth)
		return
	}

	common.PrintHeader("STUDENT COIN REPORT", common.DefaultWidth)

	stats, err := generateReport(ctx, subjects, services.LedgerService)
	if err != nil {
		logger.Fatal("Failed to build report", zap.Error(err))
	}

	summary := fmt.Sprintf("SUMMARY: %d coins across %d students (%d milestones reached)",
		stats.totalCoins, stats.totalStudents, stats.milestonesHit)
	common.PrintFooter(summary, common.DefaultWidth)

	logger.Info("Balance query completed",
		zap.Int("students", stats.totalStudents),
		zap.Int64("total_coins", stats.totalCoins),
		zap.Int("milestones_reached", stats.milestonesHit))
}

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"

	"growwise-ledger-go/internal/common"
	"growwise-ledger-go/internal/config"
	"growwise-ledger-go/internal/models"

	"go.uber.org/zap"
)

func printRules(rules models.RewardRules) {
	common.PrintHeader("REWARD RULES", common.DefaultWidth)

	fmt.Println("┌─ Milestones")
	for i, m := range rules.Milestones {
		fmt.Printf("%s %7d coins  %-24s %s\n", common.BoxPrefix(i == len(rules.Milestones)-1), m.ThresholdCoins, m.Label, m.Description)
	}

	fmt.Println("\n┌─ Games (daily caps)")
	for i, g := range rules.Games {
		fmt.Printf("%s %-20s %-20s %d coins/day\n", common.BoxPrefix(i == len(rules.Games)-1), g.Id, g.Title, g.MaxCoinsPerDay)
	}

	fmt.Println("\n┌─ Fixed rewards")
	fmt.Printf("%s task default      %d coins\n", common.BoxPrefix(false), rules.DefaultTaskCoins)
	fmt.Printf("%s calendar event    %d coins\n", common.BoxPrefix(false), rules.CalendarCoins)
	fmt.Printf("%s referral          %d coins\n", common.BoxPrefix(true), rules.ReferralBonus)
}

func runInit(ctx context.Context, cfg *models.Config) {
	zap.L().Info("Initializing ledger storage", zap.String("backend", cfg.Ledger.Backend))

	ledgerStore, err := common.InitializeStore(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize ledger storage", zap.Error(err))
	}
	defer ledgerStore.Close()

	if err := ledgerStore.Ping(ctx); err != nil {
		zap.L().Fatal("Ledger storage is not reachable", zap.Error(err))
	}

	zap.L().Info("Initialization complete")
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	initFlag := flag.Bool("init", false, "Initialize the ledger storage")
	rulesFlag := flag.String("rules", "", "Rules file to validate (defaults to RULES_FILE)")
	jsonFlag := flag.Bool("json", false, "Print the effective rules as JSON")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}
	if *rulesFlag != "" {
		cfg.Ledger.RulesFile = *rulesFlag
	}

	if *initFlag {
		runInit(ctx, cfg)
	}

	zap.L().Info("Loading reward rules", zap.String("file", cfg.Ledger.RulesFile))
	rules, err := common.LoadRules(cfg.Ledger.RulesFile)
	if err != nil {
		zap.L().Fatal("Invalid reward rules", zap.Error(err))
	}
	if cfg.Ledger.ReferralBonus > 0 {
		rules.ReferralBonus = cfg.Ledger.ReferralBonus
	}

	if *jsonFlag {
		out, err := json.MarshalIndent(rules, "", "  ")
		if err != nil {
			zap.L().Fatal("Error marshaling rules to JSON", zap.Error(err))
		}
		fmt.Println(string(out))
		return
	}

	printRules(rules)
	common.PrintFooter(fmt.Sprintf("Rules valid: %d milestones, %d games", len(rules.Milestones), len(rules.Games)), common.DefaultWidth)
}

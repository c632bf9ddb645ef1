package common

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"growwise-ledger-go/internal/api"
	"growwise-ledger-go/internal/milestone"
	"growwise-ledger-go/internal/models"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// LoadRules reads the reward rules file. A missing file yields the default
// rules; sections absent from the file keep their defaults.
func LoadRules(rulesFile string) (models.RewardRules, error) {
	var rulesPath string
	if filepath.IsAbs(rulesFile) {
		rulesPath = rulesFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return models.RewardRules{}, fmt.Errorf("failed to get working directory: %w", err)
		}
		rulesPath = filepath.Join(wd, rulesFile)
	}

	data, err := os.ReadFile(rulesPath)
	if errors.Is(err, fs.ErrNotExist) {
		zap.L().Info("No rules file found, using default rules", zap.String("file", rulesPath))
		return api.DefaultRules(), nil
	}
	if err != nil {
		return models.RewardRules{}, fmt.Errorf("unable to read %s: %w", rulesFile, err)
	}

	return ParseRules(data)
}

// ParseRules decodes and validates a rules document.
func ParseRules(data []byte) (models.RewardRules, error) {
	var rules models.RewardRules
	if err := yaml.UnmarshalStrict(data, &rules); err != nil {
		return models.RewardRules{}, fmt.Errorf("unable to parse rules: %w", err)
	}

	defaults := api.DefaultRules()
	if rules.Milestones == nil {
		rules.Milestones = defaults.Milestones
	}
	if rules.Games == nil {
		rules.Games = defaults.Games
	}
	if rules.DefaultTaskCoins == 0 {
		rules.DefaultTaskCoins = defaults.DefaultTaskCoins
	}
	if rules.CalendarCoins == 0 {
		rules.CalendarCoins = defaults.CalendarCoins
	}
	if rules.ReferralBonus == 0 {
		rules.ReferralBonus = defaults.ReferralBonus
	}

	if err := ValidateRules(rules); err != nil {
		return models.RewardRules{}, err
	}
	return rules, nil
}

func ValidateRules(rules models.RewardRules) error {
	if err := milestone.Validate(rules.Milestones); err != nil {
		return fmt.Errorf("invalid milestones: %w", err)
	}

	seen := make(map[string]bool, len(rules.Games))
	for i, game := range rules.Games {
		if game.Id == "" {
			return fmt.Errorf("game at index %d missing id", i)
		}
		if seen[game.Id] {
			return fmt.Errorf("game %s defined more than once", game.Id)
		}
		seen[game.Id] = true
		if game.MaxCoinsPerDay <= 0 {
			return fmt.Errorf("game %s: max_coins_per_day must be positive, got %d", game.Id, game.MaxCoinsPerDay)
		}
	}

	if rules.DefaultTaskCoins <= 0 {
		return fmt.Errorf("default_task_coins must be positive, got %d", rules.DefaultTaskCoins)
	}
	if rules.CalendarCoins <= 0 {
		return fmt.Errorf("calendar_coins must be positive, got %d", rules.CalendarCoins)
	}
	if rules.ReferralBonus <= 0 {
		return fmt.Errorf("referral_bonus must be positive, got %d", rules.ReferralBonus)
	}
	return nil
}

package models

import "github.com/shopspring/decimal"

// MilestoneDefinition is a fixed coin threshold unlocking a reward state.
type MilestoneDefinition struct {
	ThresholdCoins int64  `yaml:"threshold_coins" json:"threshold_coins"`
	Label          string `yaml:"label" json:"label"`
	Description    string `yaml:"description" json:"description"`
}

// MilestoneStatus is a subject's live standing against one milestone.
type MilestoneStatus struct {
	Definition    MilestoneDefinition `json:"definition"`
	Achieved      bool                `json:"achieved"`
	AchievedCoins int64               `json:"achieved_coins"`
	Percent       decimal.Decimal     `json:"percent"`
	CoinsToGo     int64               `json:"coins_to_go"`
}

// DailyCapRule bounds the coins a subject can earn from one source per calendar day.
type DailyCapRule struct {
	SourceKind     SourceKind `yaml:"source_kind" json:"source_kind"`
	SourceId       string     `yaml:"source_id" json:"source_id"`
	MaxCoinsPerDay int64      `yaml:"max_coins_per_day" json:"max_coins_per_day"`
}

// EarnResult is the outcome of a cap decision. A denied result is an
// expected outcome, not a fault.
type EarnResult struct {
	Granted bool  `json:"granted"`
	Amount  int64 `json:"amount"`
}

// Granted returns a result permitting amount coins.
func Granted(amount int64) EarnResult {
	return EarnResult{Granted: true, Amount: amount}
}

// Denied returns a result permitting nothing.
func Denied() EarnResult {
	return EarnResult{}
}

// GameDefinition is a mini-game that pays coins under a daily cap.
type GameDefinition struct {
	Id             string `yaml:"id" json:"id"`
	Title          string `yaml:"title" json:"title"`
	MaxCoinsPerDay int64  `yaml:"max_coins_per_day" json:"max_coins_per_day"`
}

// CapRule returns the daily cap rule for the game.
func (g GameDefinition) CapRule() DailyCapRule {
	return DailyCapRule{SourceKind: SourceGame, SourceId: g.Id, MaxCoinsPerDay: g.MaxCoinsPerDay}
}

// RewardRules is the fixed reward configuration loaded from the rules file.
type RewardRules struct {
	Milestones       []MilestoneDefinition `yaml:"milestones" json:"milestones"`
	Games            []GameDefinition      `yaml:"games" json:"games"`
	DefaultTaskCoins int64                 `yaml:"default_task_coins" json:"default_task_coins"`
	CalendarCoins    int64                 `yaml:"calendar_coins" json:"calendar_coins"`
	ReferralBonus    int64                 `yaml:"referral_bonus" json:"referral_bonus"`
}

// Game looks up a game by id.
func (r RewardRules) Game(id string) (GameDefinition, bool) {
	for _, g := range r.Games {
		if g.Id == id {
			return g, true
		}
	}
	return GameDefinition{}, false
}

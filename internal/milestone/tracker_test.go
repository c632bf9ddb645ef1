package milestone

import (
	"context"
	"errors"
	"testing"

	"growwise-ledger-go/internal/models"

	"github.com/shopspring/decimal"
)

type fixedBalance struct {
	balance int64
	err     error
	calls   int
}

func (f *fixedBalance) BalanceOf(_ context.Context, _ string) (int64, error) {
	f.calls++
	return f.balance, f.err
}

func TestProgress_PartialBalance(t *testing.T) {
	tracker := NewTracker(&fixedBalance{balance: 40})

	statuses, err := tracker.Progress(context.Background(), "student-1", DefaultMilestones)
	if err != nil {
		t.Fatalf("Progress failed: %v", err)
	}
	if len(statuses) != 2 {
		t.Fatalf("Expected 2 statuses, got %d", len(statuses))
	}

	first := statuses[0]
	if first.Achieved {
		t.Error("Expected first milestone not achieved")
	}
	if !first.Percent.Equal(decimal.RequireFromString("0.8")) {
		t.Errorf("Expected percent 0.8, got %s", first.Percent)
	}
	if first.CoinsToGo != 4960 {
		t.Errorf("Expected 4960 coins to go, got %d", first.CoinsToGo)
	}
	if first.AchievedCoins != 40 {
		t.Errorf("Expected achieved coins 40, got %d", first.AchievedCoins)
	}
}

func TestProgress_ExactThreshold(t *testing.T) {
	tracker := NewTracker(&fixedBalance{balance: 5000})
	ctx := context.Background()

	statuses, err := tracker.Progress(ctx, "student-1", DefaultMilestones)
	if err != nil {
		t.Fatalf("Progress failed: %v", err)
	}
	if !statuses[0].Achieved {
		t.Error("Expected first milestone achieved at exactly 5000")
	}
	if !statuses[0].Percent.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected percent 100, got %s", statuses[0].Percent)
	}
	if statuses[0].CoinsToGo != 0 {
		t.Errorf("Expected 0 coins to go, got %d", statuses[0].CoinsToGo)
	}

	next, err := tracker.NextMilestone(ctx, "student-1", DefaultMilestones)
	if err != nil {
		t.Fatalf("NextMilestone failed: %v", err)
	}
	if next == nil || next.ThresholdCoins != 50000 {
		t.Errorf("Expected next milestone 50000, got %+v", next)
	}
}

func TestNextMilestone_AllAchieved(t *testing.T) {
	tracker := NewTracker(&fixedBalance{balance: 60000})

	next, err := tracker.NextMilestone(context.Background(), "student-1", DefaultMilestones)
	if err != nil {
		t.Fatalf("NextMilestone failed: %v", err)
	}
	if next != nil {
		t.Errorf("Expected no next milestone, got %+v", next)
	}
}

func TestEmptyMilestones(t *testing.T) {
	balances := &fixedBalance{balance: 100}
	tracker := NewTracker(balances)
	ctx := context.Background()

	statuses, err := tracker.Progress(ctx, "student-1", nil)
	if err != nil {
		t.Fatalf("Progress failed: %v", err)
	}
	if len(statuses) != 0 {
		t.Errorf("Expected empty progress, got %d statuses", len(statuses))
	}

	next, err := tracker.NextMilestone(ctx, "student-1", nil)
	if err != nil {
		t.Fatalf("NextMilestone failed: %v", err)
	}
	if next != nil {
		t.Errorf("Expected nil next milestone, got %+v", next)
	}
	if balances.calls != 0 {
		t.Errorf("Expected no balance reads, got %d", balances.calls)
	}
}

func TestProgress_BalanceError(t *testing.T) {
	boom := errors.New("boom")
	tracker := NewTracker(&fixedBalance{err: boom})

	if _, err := tracker.Progress(context.Background(), "student-1", DefaultMilestones); !errors.Is(err, boom) {
		t.Errorf("Expected wrapped balance error, got: %v", err)
	}
}

func TestStatus_Monotonic(t *testing.T) {
	m := DefaultMilestones[0]
	previous := Status(-50, m)
	for _, balance := range []int64{0, 1, 40, 2500, 4999, 5000, 7000} {
		current := Status(balance, m)
		if current.Percent.LessThan(previous.Percent) {
			t.Errorf("Percent decreased from %s to %s at balance %d", previous.Percent, current.Percent, balance)
		}
		if previous.Achieved && !current.Achieved {
			t.Errorf("Achieved flipped back at balance %d", balance)
		}
		previous = current
	}
}

func TestStatus_NegativeBalance(t *testing.T) {
	status := Status(-20, DefaultMilestones[0])
	if !status.Percent.IsZero() {
		t.Errorf("Expected percent 0 for negative balance, got %s", status.Percent)
	}
	if status.CoinsToGo != 5020 {
		t.Errorf("Expected 5020 coins to go, got %d", status.CoinsToGo)
	}
}

func TestStatus_NonPositiveThreshold(t *testing.T) {
	for _, balance := range []int64{-5, 0, 7} {
		status := Status(balance, models.MilestoneDefinition{ThresholdCoins: 0})
		if status.Achieved != (balance >= 0) {
			t.Errorf("balance %d: achieved = %v", balance, status.Achieved)
		}
		if status.Percent.GreaterThan(decimal.NewFromInt(100)) || status.Percent.IsNegative() {
			t.Errorf("balance %d: percent out of range: %s", balance, status.Percent)
		}
	}
}

func TestProgress_RejectsInvalidMilestones(t *testing.T) {
	balances := &fixedBalance{balance: -5}
	tracker := NewTracker(balances)
	invalid := []models.MilestoneDefinition{{ThresholdCoins: 0, Label: "Broken"}}

	if _, err := tracker.Progress(context.Background(), "student-1", invalid); err == nil {
		t.Error("Expected Progress to reject a zero threshold")
	}
	if _, err := tracker.NextMilestone(context.Background(), "student-1", invalid); err == nil {
		t.Error("Expected NextMilestone to reject a zero threshold")
	}
	if balances.calls != 0 {
		t.Errorf("Expected no balance reads for invalid milestones, got %d", balances.calls)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		milestones []models.MilestoneDefinition
		wantErr    bool
	}{
		{name: "defaults", milestones: DefaultMilestones},
		{name: "empty"},
		{name: "zero threshold", milestones: []models.MilestoneDefinition{{ThresholdCoins: 0}}, wantErr: true},
		{name: "equal thresholds", milestones: []models.MilestoneDefinition{{ThresholdCoins: 10}, {ThresholdCoins: 10}}, wantErr: true},
		{name: "decreasing", milestones: []models.MilestoneDefinition{{ThresholdCoins: 100}, {ThresholdCoins: 50}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.milestones)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

package api

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"testing"
	"time"

	"growwise-ledger-go/internal/database"
	"growwise-ledger-go/internal/ledger"
	"growwise-ledger-go/internal/models"
	"growwise-ledger-go/internal/store"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

func setupTestService(t *testing.T, now *time.Time) (*LedgerService, func()) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)

	dbService, err := database.NewServiceWithDB(db)
	if err != nil {
		t.Fatalf("Failed to create test service: %v", err)
	}

	l := ledger.New(dbService, ledger.WithClock(func() time.Time { return *now }))
	return NewLedgerService(l, time.UTC, DefaultRules()), func() { dbService.Close() }
}

func TestCoinsForScore(t *testing.T) {
	tests := []struct {
		score int
		want  int64
	}{
		{-10, 0},
		{0, 0},
		{24, 0},
		{25, 1},
		{60, 2},
		{75, 3},
		{100, 3},
		{250, 3},
	}
	for _, tt := range tests {
		if got := CoinsForScore(tt.score); got != tt.want {
			t.Errorf("CoinsForScore(%d) = %d, want %d", tt.score, got, tt.want)
		}
	}
}

func TestWorkflows_BalanceAndProgress(t *testing.T) {
	now := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	s, cleanup := setupTestService(t, &now)
	defer cleanup()

	ctx := context.Background()
	task, err := s.ApproveActivity(ctx, models.Activity{Id: "act-1", SubjectId: "student-1", Title: "Homework"})
	if err != nil {
		t.Fatalf("ApproveActivity failed: %v", err)
	}
	if task.Amount != DefaultTaskCoins {
		t.Errorf("Expected default task coins %d, got %d", DefaultTaskCoins, task.Amount)
	}
	if _, err := s.CompleteCalendarEvent(ctx, models.CalendarEvent{Id: "evt-1", SubjectId: "student-1", Title: "Piano"}); err != nil {
		t.Fatalf("CompleteCalendarEvent failed: %v", err)
	}
	if _, err := s.ApproveActivity(ctx, models.Activity{Id: "act-2", SubjectId: "student-1", Title: "Garden", CoinValue: 20}); err != nil {
		t.Fatalf("ApproveActivity failed: %v", err)
	}

	balance, err := s.Balance(ctx, "student-1")
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if balance.Balance != 40 {
		t.Errorf("Expected balance 40, got %d", balance.Balance)
	}

	progress, err := s.Progress(ctx, "student-1")
	if err != nil {
		t.Fatalf("Progress failed: %v", err)
	}
	if !progress[0].Percent.Equal(decimal.RequireFromString("0.8")) {
		t.Errorf("Expected 0.8 percent, got %s", progress[0].Percent)
	}

	next, err := s.NextMilestone(ctx, "student-1")
	if err != nil {
		t.Fatalf("NextMilestone failed: %v", err)
	}
	if next == nil || next.ThresholdCoins != 5000 {
		t.Errorf("Expected next milestone 5000, got %+v", next)
	}
}

func TestApproveActivity_OnlyOnce(t *testing.T) {
	now := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	s, cleanup := setupTestService(t, &now)
	defer cleanup()

	ctx := context.Background()
	activity := models.Activity{Id: "act-1", SubjectId: "student-1", Title: "Homework", CoinValue: 15}
	if _, err := s.ApproveActivity(ctx, activity); err != nil {
		t.Fatalf("ApproveActivity failed: %v", err)
	}
	if _, err := s.ApproveActivity(ctx, activity); !errors.Is(err, store.ErrDuplicateEntry) {
		t.Errorf("Expected duplicate entry error, got: %v", err)
	}
}

func TestApproveActivity_ValidationSurfaced(t *testing.T) {
	now := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	s, cleanup := setupTestService(t, &now)
	defer cleanup()

	_, err := s.ApproveActivity(context.Background(), models.Activity{Id: "act-1", Title: "No student"})
	if !errors.Is(err, ledger.ErrValidation) {
		t.Errorf("Expected validation error, got: %v", err)
	}
}

func TestCompleteGameSession_DailyCap(t *testing.T) {
	now := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	s, cleanup := setupTestService(t, &now)
	defer cleanup()

	ctx := context.Background()
	sessions := []struct {
		id    string
		score int
		want  models.EarnResult
	}{
		{"session-1", 50, models.Granted(2)},
		{"session-2", 75, models.Granted(1)},
		{"session-3", 100, models.Denied()},
	}
	for _, sess := range sessions {
		outcome, err := s.CompleteGameSession(ctx, models.GameSession{
			Id: sess.id, SubjectId: "student-1", GameId: "flag-quiz", Score: sess.score,
		})
		if err != nil {
			t.Fatalf("%s: CompleteGameSession failed: %v", sess.id, err)
		}
		if outcome.Result != sess.want {
			t.Errorf("%s: result = %+v, want %+v", sess.id, outcome.Result, sess.want)
		}
		if (outcome.Entry != nil) != sess.want.Granted {
			t.Errorf("%s: entry presence mismatch: %+v", sess.id, outcome.Entry)
		}
	}

	status, err := s.GameStatus(ctx, "student-1", "flag-quiz", now)
	if err != nil {
		t.Fatalf("GameStatus failed: %v", err)
	}
	if status.EarnedToday != 3 || status.Remaining != 0 || status.CanEarn {
		t.Errorf("Unexpected status after cap: %+v", status)
	}

	now = now.AddDate(0, 0, 1)
	outcome, err := s.CompleteGameSession(ctx, models.GameSession{
		Id: "session-4", SubjectId: "student-1", GameId: "flag-quiz", Score: 50,
	})
	if err != nil {
		t.Fatalf("CompleteGameSession next day failed: %v", err)
	}
	if outcome.Result != models.Granted(2) {
		t.Errorf("Expected Granted(2) next day, got %+v", outcome.Result)
	}
}

func TestCompleteGameSession_LowScoreRecordsNothing(t *testing.T) {
	now := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	s, cleanup := setupTestService(t, &now)
	defer cleanup()

	ctx := context.Background()
	outcome, err := s.CompleteGameSession(ctx, models.GameSession{
		Id: "session-1", SubjectId: "student-1", GameId: "typing-practice", Score: 10,
	})
	if err != nil {
		t.Fatalf("CompleteGameSession failed: %v", err)
	}
	if outcome.Result.Granted || outcome.Entry != nil {
		t.Errorf("Expected nothing recorded, got %+v", outcome)
	}

	history, err := s.History(ctx, "student-1", models.EntryFilter{})
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("Expected empty history, got %d entries", len(history))
	}
}

func TestCompleteGameSession_UnknownGame(t *testing.T) {
	now := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	s, cleanup := setupTestService(t, &now)
	defer cleanup()

	_, err := s.CompleteGameSession(context.Background(), models.GameSession{
		Id: "session-1", SubjectId: "student-1", GameId: "chess", Score: 100,
	})
	if !errors.Is(err, ErrUnknownGame) {
		t.Errorf("Expected unknown game error, got: %v", err)
	}
}

func TestCompleteReferral(t *testing.T) {
	now := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	s, cleanup := setupTestService(t, &now)
	defer cleanup()

	ctx := context.Background()
	referral := models.Referral{Id: "ref-1", SubjectId: "student-1", ReferredName: "Sam"}
	entry, err := s.CompleteReferral(ctx, referral)
	if err != nil {
		t.Fatalf("CompleteReferral failed: %v", err)
	}
	if entry.Amount != DefaultReferralBonus {
		t.Errorf("Expected %d coins, got %d", DefaultReferralBonus, entry.Amount)
	}
	if _, err := s.CompleteReferral(ctx, referral); !errors.Is(err, store.ErrDuplicateEntry) {
		t.Errorf("Expected duplicate referral to be rejected, got: %v", err)
	}
}

func TestReverseEntry(t *testing.T) {
	now := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	s, cleanup := setupTestService(t, &now)
	defer cleanup()

	ctx := context.Background()
	if _, err := s.AwardBonus(ctx, "student-1", 50, "Great week"); err != nil {
		t.Fatalf("AwardBonus failed: %v", err)
	}
	outcome, err := s.CompleteGameSession(ctx, models.GameSession{
		Id: "session-1", SubjectId: "student-1", GameId: "memory-match", Score: 75,
	})
	if err != nil {
		t.Fatalf("CompleteGameSession failed: %v", err)
	}

	reversal, err := s.ReverseEntry(ctx, outcome.Entry.Id, "played on a sibling's account")
	if err != nil {
		t.Fatalf("ReverseEntry failed: %v", err)
	}
	if reversal.Amount != -3 {
		t.Errorf("Expected reversal of -3, got %d", reversal.Amount)
	}

	balance, err := s.Balance(ctx, "student-1")
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if balance.Balance != 50 {
		t.Errorf("Expected balance 50 after reversal, got %d", balance.Balance)
	}

	status, err := s.GameStatus(ctx, "student-1", "memory-match", now)
	if err != nil {
		t.Fatalf("GameStatus failed: %v", err)
	}
	if status.EarnedToday != 3 {
		t.Errorf("Reversal must not reopen the daily cap, earned today = %d", status.EarnedToday)
	}

	if _, err := s.ReverseEntry(ctx, outcome.Entry.Id, ""); !errors.Is(err, store.ErrDuplicateEntry) {
		t.Errorf("Expected second reversal to be rejected, got: %v", err)
	}
	if _, err := s.ReverseEntry(ctx, "missing", ""); !errors.Is(err, store.ErrEntryNotFound) {
		t.Errorf("Expected entry not found, got: %v", err)
	}
}

func TestFamilyReport(t *testing.T) {
	now := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	s, cleanup := setupTestService(t, &now)
	defer cleanup()

	ctx := context.Background()
	if _, err := s.AwardBonus(ctx, "student-a", 5000, "Milestone push"); err != nil {
		t.Fatalf("AwardBonus failed: %v", err)
	}
	if _, err := s.ApproveActivity(ctx, models.Activity{Id: "act-1", SubjectId: "student-b", CoinValue: 15}); err != nil {
		t.Fatalf("ApproveActivity failed: %v", err)
	}

	report, err := s.FamilyReport(ctx, nil)
	if err != nil {
		t.Fatalf("FamilyReport failed: %v", err)
	}
	if len(report.Students) != 2 {
		t.Fatalf("Expected 2 students, got %d", len(report.Students))
	}
	if report.TotalCoins != 5015 {
		t.Errorf("Expected total 5015, got %d", report.TotalCoins)
	}

	a := report.Students[0]
	if a.SubjectId != "student-a" || !a.Milestones[0].Achieved {
		t.Errorf("Expected student-a to have reached the first milestone: %+v", a)
	}
	if a.NextMilestone == nil || a.NextMilestone.ThresholdCoins != 50000 {
		t.Errorf("Expected next milestone 50000 for student-a, got %+v", a.NextMilestone)
	}
	if len(report.Students[1].RecentEntries) != 1 {
		t.Errorf("Expected 1 recent entry for student-b, got %d", len(report.Students[1].RecentEntries))
	}
}

func TestHealthCheck(t *testing.T) {
	now := time.Now()
	s, cleanup := setupTestService(t, &now)
	defer cleanup()

	if err := s.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck failed: %v", err)
	}
}

func TestProgress_RepeatedReadsAgree(t *testing.T) {
	now := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	s, cleanup := setupTestService(t, &now)
	defer cleanup()

	ctx := context.Background()
	if _, err := s.ApproveActivity(ctx, models.Activity{Id: "act-1", SubjectId: "student-1", CoinValue: 4990}); err != nil {
		t.Fatalf("ApproveActivity failed: %v", err)
	}
	if _, err := s.AwardBonus(ctx, "student-1", 25, "Tidy room"); err != nil {
		t.Fatalf("AwardBonus failed: %v", err)
	}

	first, err := s.Progress(ctx, "student-1")
	if err != nil {
		t.Fatalf("Progress failed: %v", err)
	}
	second, err := s.Progress(ctx, "student-1")
	if err != nil {
		t.Fatalf("Progress failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Progress changed between reads:\n%+v\n%+v", first, second)
	}

	summary, err := s.Summary(ctx, "student-1")
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if !reflect.DeepEqual(summary.Milestones, first) {
		t.Errorf("Summary milestones %+v differ from Progress %+v", summary.Milestones, first)
	}
	if summary.Balance != 5015 || !first[0].Achieved {
		t.Errorf("Expected balance 5015 with the first milestone reached, got %d", summary.Balance)
	}
}

func TestWorkflows_RequireSourceIds(t *testing.T) {
	now := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	s, cleanup := setupTestService(t, &now)
	defer cleanup()

	ctx := context.Background()
	calls := map[string]func() error{
		"activity": func() error {
			_, err := s.ApproveActivity(ctx, models.Activity{SubjectId: "student-1", CoinValue: 15})
			return err
		},
		"calendar": func() error {
			_, err := s.CompleteCalendarEvent(ctx, models.CalendarEvent{Id: " ", SubjectId: "student-1"})
			return err
		},
		"referral": func() error {
			_, err := s.CompleteReferral(ctx, models.Referral{SubjectId: "student-1", ReferredName: "Sam"})
			return err
		},
		"game": func() error {
			_, err := s.CompleteGameSession(ctx, models.GameSession{SubjectId: "student-1", GameId: "flag-quiz", Score: 75})
			return err
		},
	}
	for name, call := range calls {
		for attempt := 0; attempt < 2; attempt++ {
			if err := call(); !errors.Is(err, ledger.ErrValidation) {
				t.Errorf("%s: expected validation error, got: %v", name, err)
			}
		}
	}

	balance, err := s.Balance(ctx, "student-1")
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if balance.Balance != 0 {
		t.Errorf("Expected nothing credited without source ids, got %d", balance.Balance)
	}
}

func TestRedeemableRewards(t *testing.T) {
	now := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	s, cleanup := setupTestService(t, &now)
	defer cleanup()

	ctx := context.Background()
	if _, err := s.AwardBonus(ctx, "student-1", 100, "Report card"); err != nil {
		t.Fatalf("AwardBonus failed: %v", err)
	}

	redeemedAt := now.Add(-time.Hour)
	rewards := []models.Reward{
		{Id: "movie", SubjectId: "student-1", Title: "Movie night", CoinCost: 80},
		{Id: "bike", SubjectId: "student-1", Title: "New bike", CoinCost: 400},
		{Id: "ice-cream", SubjectId: "student-1", Title: "Ice cream", CoinCost: 20, IsRedeemed: true, RedeemedAt: &redeemedAt},
		{Id: "exact", SubjectId: "student-1", Title: "Exactly affordable", CoinCost: 100},
	}
	statuses, err := s.RedeemableRewards(ctx, "student-1", rewards)
	if err != nil {
		t.Fatalf("RedeemableRewards failed: %v", err)
	}

	want := []struct {
		redeemable bool
		toGo       int64
	}{{true, 0}, {false, 300}, {false, 0}, {true, 0}}
	for i, w := range want {
		if statuses[i].Redeemable != w.redeemable || statuses[i].CoinsToGo != w.toGo {
			t.Errorf("%s: got %+v, want redeemable=%v toGo=%d", rewards[i].Id, statuses[i], w.redeemable, w.toGo)
		}
	}

	empty, err := s.RedeemableRewards(ctx, "student-1", nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("Expected empty statuses, got %+v, %v", empty, err)
	}
}

func TestRedeemReward(t *testing.T) {
	now := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	s, cleanup := setupTestService(t, &now)
	defer cleanup()

	ctx := context.Background()
	if _, err := s.AwardBonus(ctx, "student-1", 100, "Report card"); err != nil {
		t.Fatalf("AwardBonus failed: %v", err)
	}

	reward := models.Reward{Id: "movie", SubjectId: "student-1", Title: "Movie night", CoinCost: 80}
	redeemed, entry, err := s.RedeemReward(ctx, reward)
	if err != nil {
		t.Fatalf("RedeemReward failed: %v", err)
	}
	if !redeemed.IsRedeemed || redeemed.RedeemedAt == nil || !redeemed.RedeemedAt.Equal(now) {
		t.Errorf("Expected reward marked redeemed at %v, got %+v", now, redeemed)
	}
	if entry.Amount != -80 || entry.SourceKind != models.SourceBonus || entry.SourceRef != RedemptionRef("movie") {
		t.Errorf("Unexpected redemption entry: %+v", entry)
	}

	balance, err := s.Balance(ctx, "student-1")
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if balance.Balance != 20 {
		t.Errorf("Expected balance 20 after redemption, got %d", balance.Balance)
	}

	// The caller may not have persisted the flag yet; the ledger still refuses a second spend.
	if _, _, err := s.RedeemReward(ctx, models.Reward{Id: "movie", SubjectId: "student-1", CoinCost: 10}); !errors.Is(err, ErrRewardRedeemed) {
		t.Errorf("Expected already redeemed, got: %v", err)
	}
	if _, _, err := s.RedeemReward(ctx, *redeemed); !errors.Is(err, ErrRewardRedeemed) {
		t.Errorf("Expected already redeemed for flagged reward, got: %v", err)
	}
	if _, _, err := s.RedeemReward(ctx, models.Reward{Id: "bike", SubjectId: "student-1", CoinCost: 400}); !errors.Is(err, ErrInsufficientCoins) {
		t.Errorf("Expected insufficient coins, got: %v", err)
	}
	if _, _, err := s.RedeemReward(ctx, models.Reward{Id: "free", SubjectId: "student-1"}); err == nil {
		t.Error("Expected zero-cost reward to be rejected")
	}
}

package store

import (
	"testing"
	"time"

	"growwise-ledger-go/internal/models"
)

func TestCapWindowClip(t *testing.T) {
	w := CapWindow{MaxCoins: 3}
	tests := []struct {
		name    string
		earned  int64
		desired int64
		want    int64
	}{
		{"fits", 0, 2, 2},
		{"clipped", 2, 2, 1},
		{"exhausted", 3, 2, 0},
		{"over", 5, 1, 0},
		{"negative earned", -2, 4, 4},
		{"non-positive desired", 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.Clip(tt.earned, tt.desired); got != tt.want {
				t.Errorf("Clip(%d, %d) = %d, want %d", tt.earned, tt.desired, got, tt.want)
			}
		})
	}
}

func TestCapWindowFilter(t *testing.T) {
	start := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	w := CapWindow{Start: start, End: start.AddDate(0, 0, 1), MaxCoins: 3}
	f := w.Filter(models.SourceGame, "flag-quiz")

	in := models.LedgerEntry{SourceKind: models.SourceGame, SourceId: "flag-quiz", OccurredAt: start}
	if !f.Matches(in) {
		t.Error("entry at window start should match")
	}

	atEnd := in
	atEnd.OccurredAt = w.End
	if f.Matches(atEnd) {
		t.Error("entry at window end should not match")
	}

	otherGame := in
	otherGame.SourceId = "memory-match"
	if f.Matches(otherGame) {
		t.Error("entry from another game should not match")
	}
}

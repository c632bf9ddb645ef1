package common

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFormatSignedCoins(t *testing.T) {
	tests := []struct {
		amount int64
		want   string
	}{
		{15, "+15"},
		{0, "0"},
		{-3, "-3"},
	}
	for _, tt := range tests {
		if got := FormatSignedCoins(tt.amount); got != tt.want {
			t.Errorf("FormatSignedCoins(%d) = %q, want %q", tt.amount, got, tt.want)
		}
	}
}

func TestProgressBar(t *testing.T) {
	tests := []struct {
		percent string
		want    string
	}{
		{"0", "[░░░░░░░░░░]"},
		{"0.8", "[░░░░░░░░░░]"},
		{"55", "[█████░░░░░]"},
		{"100", "[██████████]"},
	}
	for _, tt := range tests {
		if got := ProgressBar(decimal.RequireFromString(tt.percent), 10); got != tt.want {
			t.Errorf("ProgressBar(%s) = %q, want %q", tt.percent, got, tt.want)
		}
	}
}

func TestBoxDetailPrefix(t *testing.T) {
	if got := BoxDetailPrefix(false); got != "│  " {
		t.Errorf("BoxDetailPrefix(false) = %q", got)
	}
	if got := BoxDetailPrefix(true); got != "   " {
		t.Errorf("BoxDetailPrefix(true) = %q", got)
	}
}

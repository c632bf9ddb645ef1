package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"DATABASE_PATH", "LEDGER_BACKEND", "LEDGER_TIMEZONE", "REFERRAL_BONUS", "CAP_MAX_ATTEMPTS", "DB_BUSY_TIMEOUT"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.Path != "coins.db" {
		t.Errorf("Expected default path coins.db, got %s", cfg.Database.Path)
	}
	if cfg.Database.BusyTimeout != 5*time.Second {
		t.Errorf("Expected busy timeout 5s, got %v", cfg.Database.BusyTimeout)
	}
	if cfg.Ledger.Backend != BackendSQLite {
		t.Errorf("Expected sqlite backend, got %s", cfg.Ledger.Backend)
	}
	if cfg.Ledger.ReferralBonus != 0 {
		t.Errorf("Expected referral bonus to defer to the rules file, got %d", cfg.Ledger.ReferralBonus)
	}
	if cfg.Ledger.CapAttempts != 3 {
		t.Errorf("Expected 3 cap attempts, got %d", cfg.Ledger.CapAttempts)
	}
	if cfg.Ledger.Location != time.Local {
		t.Errorf("Expected local time zone, got %v", cfg.Ledger.Location)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_PATH", "/tmp/family.db")
	t.Setenv("LEDGER_BACKEND", "formance")
	t.Setenv("LEDGER_TIMEZONE", "UTC")
	t.Setenv("REFERRAL_BONUS", "150")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Database.Path != "/tmp/family.db" {
		t.Errorf("Expected overridden path, got %s", cfg.Database.Path)
	}
	if cfg.Ledger.Backend != BackendFormance {
		t.Errorf("Expected formance backend, got %s", cfg.Ledger.Backend)
	}
	if cfg.Ledger.Location != time.UTC {
		t.Errorf("Expected UTC, got %v", cfg.Ledger.Location)
	}
	if cfg.Ledger.ReferralBonus != 150 {
		t.Errorf("Expected referral bonus 150, got %d", cfg.Ledger.ReferralBonus)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"LEDGER_BACKEND", "postgres"},
		{"LEDGER_TIMEZONE", "Mars/Olympus_Mons"},
		{"DB_PING_TIMEOUT", "soon"},
		{"REFERRAL_BONUS", "-5"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("Expected error for %s=%q", tt.key, tt.value)
			}
		})
	}
}

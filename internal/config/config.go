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

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"growwise-ledger-go/internal/models"
)

const (
	BackendSQLite   = "sqlite"
	BackendFormance = "formance"
)

func Load() (*models.Config, error) {
	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	connMaxIdleTime, err := getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second)
	if err != nil {
		return nil, err
	}

	pingTimeout, err := getEnvDuration("DB_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	busyTimeout, err := getEnvDuration("DB_BUSY_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	backend := getEnvString("LEDGER_BACKEND", BackendSQLite)
	if backend != BackendSQLite && backend != BackendFormance {
		return nil, fmt.Errorf("invalid LEDGER_BACKEND %q: must be %q or %q", backend, BackendSQLite, BackendFormance)
	}

	location, err := getEnvLocation("LEDGER_TIMEZONE", time.Local)
	if err != nil {
		return nil, err
	}

	// 0 defers to the rules file
	referralBonus := getEnvInt("REFERRAL_BONUS", 0)
	if referralBonus < 0 {
		return nil, fmt.Errorf("REFERRAL_BONUS cannot be negative, got %d", referralBonus)
	}

	return &models.Config{
		Database: models.DatabaseConfig{
			Path:            getEnvString("DATABASE_PATH", "coins.db"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: connMaxLifetime,
			ConnMaxIdleTime: connMaxIdleTime,
			PingTimeout:     pingTimeout,
			BusyTimeout:     busyTimeout,
		},
		Formance: models.FormanceConfig{
			StackURL:     getEnvString("FORMANCE_STACK_URL", ""),
			ClientID:     getEnvString("FORMANCE_CLIENT_ID", ""),
			ClientSecret: getEnvString("FORMANCE_CLIENT_SECRET", ""),
			LedgerName:   getEnvString("FORMANCE_LEDGER", "growwise-coins"),
		},
		Ledger: models.LedgerConfig{
			Backend:       backend,
			Location:      location,
			RulesFile:     getEnvString("RULES_FILE", "rules.yaml"),
			ReferralBonus: int64(referralBonus),
			CapAttempts:   getEnvInt("CAP_MAX_ATTEMPTS", 3),
		},
	}, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

// getEnvLocation resolves an IANA zone name such as "Europe/Paris".
func getEnvLocation(key string, defaultValue *time.Location) (*time.Location, error) {
	if value := os.Getenv(key); value != "" {
		loc, err := time.LoadLocation(value)
		if err != nil {
			return nil, fmt.Errorf("invalid time zone for %s: %q (%w)", key, value, err)
		}
		return loc, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

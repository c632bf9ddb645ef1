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

package metrics

import (
	"growwise-ledger-go/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// EntriesAppended counts ledger entries recorded, by source kind.
var EntriesAppended = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "growwise",
	Subsystem: "ledger",
	Name:      "entries_appended_total",
	Help:      "Total ledger entries recorded.",
}, []string{"source_kind"})

// CoinsCredited sums positive entry amounts, by source kind.
var CoinsCredited = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "growwise",
	Subsystem: "ledger",
	Name:      "coins_credited_total",
	Help:      "Total coins credited to students.",
}, []string{"source_kind"})

// CoinsDebited sums the magnitude of negative entry amounts, by source kind.
var CoinsDebited = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "growwise",
	Subsystem: "ledger",
	Name:      "coins_debited_total",
	Help:      "Total coins removed by corrections and reversals.",
}, []string{"source_kind"})

// DuplicateEntries counts appends rejected because the source event was already recorded.
var DuplicateEntries = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "growwise",
	Subsystem: "ledger",
	Name:      "duplicate_entries_total",
	Help:      "Total appends rejected as duplicates of a recorded source event.",
}, []string{"source_kind"})

// ValidationFailures counts malformed append requests.
var ValidationFailures = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "growwise",
	Subsystem: "ledger",
	Name:      "validation_failures_total",
	Help:      "Total append requests rejected by validation.",
})

// CapDenials counts earn attempts denied because the daily cap was exhausted.
var CapDenials = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "growwise",
	Subsystem: "dailycap",
	Name:      "denials_total",
	Help:      "Total earn attempts denied by the daily cap.",
}, []string{"source_kind", "source_id"})

// CapClipped counts earn attempts granted less than requested.
var CapClipped = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "growwise",
	Subsystem: "dailycap",
	Name:      "clipped_total",
	Help:      "Total earn attempts partially granted by the daily cap.",
}, []string{"source_kind", "source_id"})

// CapUnsettled counts capped entries recorded while their window could not
// be confirmed within the cap.
var CapUnsettled = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "growwise",
	Subsystem: "dailycap",
	Name:      "unsettled_total",
	Help:      "Total capped entries recorded without a confirmed cap window.",
}, []string{"source_kind", "source_id"})

// RecordEntry updates the ledger counters for a recorded entry.
func RecordEntry(entry models.LedgerEntry) {
	kind := string(entry.SourceKind)
	EntriesAppended.WithLabelValues(kind).Inc()
	switch {
	case entry.Amount > 0:
		CoinsCredited.WithLabelValues(kind).Add(float64(entry.Amount))
	case entry.Amount < 0:
		CoinsDebited.WithLabelValues(kind).Add(float64(-entry.Amount))
	}
}

// RecordCapDecision updates the cap counters given what was asked for and what was granted.
func RecordCapDecision(kind models.SourceKind, sourceId string, desired int64, result models.EarnResult) {
	switch {
	case !result.Granted:
		CapDenials.WithLabelValues(string(kind), sourceId).Inc()
	case result.Amount < desired:
		CapClipped.WithLabelValues(string(kind), sourceId).Inc()
	}
}

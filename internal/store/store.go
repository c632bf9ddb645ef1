package store

import (
	"context"
	"errors"
	"time"

	"growwise-ledger-go/internal/models"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrDuplicateEntry         = errors.New("duplicate ledger entry")
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrCapReached             = errors.New("daily cap reached")
	ErrEntryNotFound          = errors.New("ledger entry not found")
	ErrStoreUnavailable       = errors.New("ledger store unavailable")
)

// CapWindow is the per-day earning bucket a capped append is charged against.
// Entries count toward the window when subject, source kind and source id
// match and Start <= OccurredAt < End.
type CapWindow struct {
	Start    time.Time
	End      time.Time
	MaxCoins int64
}

// Filter returns the entry filter selecting the window's entries for a source.
func (w CapWindow) Filter(kind models.SourceKind, sourceId string) models.EntryFilter {
	return models.EntryFilter{SourceKind: kind, SourceId: sourceId, From: w.Start, To: w.End}
}

// Clip returns how much of desired fits into the window given what has
// already been earned in it.
func (w CapWindow) Clip(earned, desired int64) int64 {
	remaining := w.MaxCoins - earned
	if remaining <= 0 || desired <= 0 {
		return 0
	}
	if desired < remaining {
		return desired
	}
	return remaining
}

// CappedEntry is the outcome of a capped append that recorded something.
type CappedEntry struct {
	// Entry is the entry exactly as stored.
	Entry models.LedgerEntry
	// Net is what Entry adds to its window once compensating corrections
	// are taken into account. It equals Entry.Amount unless a backend had to
	// withdraw part of the grant after recording it.
	Net int64
	// Unsettled is set when Entry was recorded but the window could not be
	// confirmed within its cap. It wraps ErrConcurrentModification or
	// ErrStoreUnavailable.
	Unsettled error
}

// LedgerStore defines the contract that every backend (SQLite, Formance, ...) must satisfy.
// Entries handed to Append and AppendCapped are complete: id, timestamp and
// validation are the caller's responsibility.
type LedgerStore interface {
	// --- Writes ---
	Append(ctx context.Context, entry models.LedgerEntry) (*models.LedgerEntry, error)
	// AppendCapped records entry with its amount clipped to what remains in
	// window. It returns ErrCapReached, and records nothing, when the window
	// is exhausted. An error means nothing was recorded; once the entry is
	// stored the result is always returned.
	AppendCapped(ctx context.Context, entry models.LedgerEntry, window CapWindow) (*CappedEntry, error)

	// --- Reads ---
	GetEntry(ctx context.Context, entryId string) (*models.LedgerEntry, error)
	SumAmounts(ctx context.Context, subjectId string, filter models.EntryFilter) (int64, error)
	ListEntries(ctx context.Context, subjectId string, filter models.EntryFilter) ([]models.LedgerEntry, error)
	ListSubjects(ctx context.Context) ([]string, error)

	// --- Lifecycle ---
	Ping(ctx context.Context) error
	Close()
}

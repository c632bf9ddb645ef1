package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"growwise-ledger-go/internal/models"
	"growwise-ledger-go/internal/store"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// AppendEntry records a single entry in its own transaction
func (s *SubledgerService) AppendEntry(ctx context.Context, entry models.LedgerEntry) (*models.LedgerEntry, error) {
	zap.L().Info("Appending entry",
		zap.String("subject_id", entry.SubjectId),
		zap.String("source_kind", string(entry.SourceKind)),
		zap.String("source_id", entry.SourceId),
		zap.Int64("amount", entry.Amount),
		zap.String("source_ref", entry.SourceRef))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, unavailable("failed to begin transaction", err)
	}
	defer tx.Rollback()

	if err := checkDuplicate(ctx, tx, entry); err != nil {
		return nil, err
	}

	recorded, err := insertEntry(ctx, tx, entry)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, unavailable("failed to commit transaction", err)
	}

	zap.L().Info("Entry appended successfully",
		zap.String("entry_id", recorded.Id),
		zap.String("subject_id", recorded.SubjectId),
		zap.Int64("amount", recorded.Amount))
	return recorded, nil
}

// AppendCappedEntry sums the cap window and inserts the clipped entry inside
// one IMMEDIATE transaction, so concurrent earners are serialized by SQLite's
// write lock and the grant never needs compensating.
func (s *SubledgerService) AppendCappedEntry(ctx context.Context, entry models.LedgerEntry, window store.CapWindow) (*store.CappedEntry, error) {
	zap.L().Info("Appending capped entry",
		zap.String("subject_id", entry.SubjectId),
		zap.String("source_kind", string(entry.SourceKind)),
		zap.String("source_id", entry.SourceId),
		zap.Int64("desired", entry.Amount),
		zap.Int64("max_coins", window.MaxCoins),
		zap.Time("window_start", window.Start))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, unavailable("failed to begin transaction", err)
	}
	defer tx.Rollback()

	if err := checkDuplicate(ctx, tx, entry); err != nil {
		return nil, err
	}

	earned, err := sumAmounts(ctx, tx, entry.SubjectId, window.Filter(entry.SourceKind, entry.SourceId))
	if err != nil {
		return nil, err
	}

	granted := window.Clip(earned, entry.Amount)
	if granted <= 0 {
		zap.L().Info("Daily cap reached, nothing recorded",
			zap.String("subject_id", entry.SubjectId),
			zap.String("source_id", entry.SourceId),
			zap.Int64("earned", earned),
			zap.Int64("max_coins", window.MaxCoins))
		return nil, store.ErrCapReached
	}
	entry.Amount = granted

	recorded, err := insertEntry(ctx, tx, entry)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, unavailable("failed to commit transaction", err)
	}

	zap.L().Info("Capped entry appended successfully",
		zap.String("entry_id", recorded.Id),
		zap.String("subject_id", recorded.SubjectId),
		zap.Int64("granted", recorded.Amount),
		zap.Int64("earned_before", earned))
	return &store.CappedEntry{Entry: *recorded, Net: recorded.Amount}, nil
}

func checkDuplicate(ctx context.Context, q queryer, entry models.LedgerEntry) error {
	if entry.SourceRef == "" {
		return nil
	}

	var existingId string
	err := q.QueryRowContext(ctx, queryCheckDuplicateEntry, string(entry.SourceKind), entry.SourceRef).Scan(&existingId)
	if err == nil {
		zap.L().Warn("Duplicate source reference detected, skipping",
			zap.String("source_kind", string(entry.SourceKind)),
			zap.String("source_ref", entry.SourceRef),
			zap.String("existing_entry_id", existingId))
		return fmt.Errorf("%w: %s %s already recorded as %s", store.ErrDuplicateEntry, entry.SourceKind, entry.SourceRef, existingId)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return unavailable("failed to check for duplicate entry", err)
	}
	return nil
}

func insertEntry(ctx context.Context, tx *sql.Tx, entry models.LedgerEntry) (*models.LedgerEntry, error) {
	row := tx.QueryRowContext(ctx, queryInsertEntry,
		entry.Id, entry.SubjectId, entry.Amount, string(entry.SourceKind),
		entry.SourceId, entry.SourceRef, entry.Description, entry.OccurredAt.UnixNano())

	recorded, err := scanEntry(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", store.ErrDuplicateEntry, err)
		}
		return nil, unavailable("failed to insert entry", err)
	}
	return recorded, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	var kind string
	var occurredAt int64
	err := row.Scan(&entry.Id, &entry.SubjectId, &entry.Amount, &kind,
		&entry.SourceId, &entry.SourceRef, &entry.Description, &occurredAt)
	if err != nil {
		return nil, err
	}
	entry.SourceKind = models.SourceKind(kind)
	entry.OccurredAt = time.Unix(0, occurredAt).UTC()
	return &entry, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", store.ErrStoreUnavailable, op, err)
}

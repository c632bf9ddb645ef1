package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"growwise-ledger-go/internal/models"
	"growwise-ledger-go/internal/store"

	"go.uber.org/zap"
)

// SumAmounts returns the sum of a subject's entry amounts matching filter.
// A subject with no entries sums to zero.
func (s *SubledgerService) SumAmounts(ctx context.Context, subjectId string, filter models.EntryFilter) (int64, error) {
	zap.L().Debug("Summing amounts",
		zap.String("subject_id", subjectId),
		zap.String("source_kind", string(filter.SourceKind)),
		zap.String("source_id", filter.SourceId))

	sum, err := sumAmounts(ctx, s.db, subjectId, filter)
	if err != nil {
		zap.L().Error("Failed to sum amounts", zap.String("subject_id", subjectId), zap.Error(err))
		return 0, err
	}

	zap.L().Debug("Summed amounts", zap.String("subject_id", subjectId), zap.Int64("sum", sum))
	return sum, nil
}

func sumAmounts(ctx context.Context, q queryer, subjectId string, filter models.EntryFilter) (int64, error) {
	where, args := filterClause(subjectId, filter)

	var sum int64
	if err := q.QueryRowContext(ctx, querySumAmounts+where, args...).Scan(&sum); err != nil {
		return 0, unavailable("failed to sum amounts", err)
	}
	return sum, nil
}

// ListEntries returns a subject's entries, most recent first
func (s *SubledgerService) ListEntries(ctx context.Context, subjectId string, filter models.EntryFilter) ([]models.LedgerEntry, error) {
	zap.L().Debug("Listing entries",
		zap.String("subject_id", subjectId),
		zap.String("source_kind", string(filter.SourceKind)),
		zap.Int("limit", filter.Limit),
		zap.Int("offset", filter.Offset))

	where, args := filterClause(subjectId, filter)
	limit := filter.Limit
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, queryListEntries+where+queryListEntriesOrder, args...)
	if err != nil {
		return nil, unavailable("failed to list entries", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var entries []models.LedgerEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, *entry)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during entry row iteration", zap.Error(err))
		return nil, unavailable("error iterating entry rows", err)
	}

	return entries, nil
}

func (s *SubledgerService) GetEntry(ctx context.Context, entryId string) (*models.LedgerEntry, error) {
	entry, err := scanEntry(s.db.QueryRowContext(ctx, queryGetEntry, entryId))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", store.ErrEntryNotFound, entryId)
	}
	if err != nil {
		return nil, unavailable("failed to get entry", err)
	}
	return entry, nil
}

// ListSubjects returns every subject that has at least one entry
func (s *SubledgerService) ListSubjects(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, queryListSubjects)
	if err != nil {
		return nil, unavailable("failed to list subjects", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var subjects []string
	for rows.Next() {
		var subjectId string
		if err := rows.Scan(&subjectId); err != nil {
			return nil, fmt.Errorf("failed to scan subject: %w", err)
		}
		subjects = append(subjects, subjectId)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("error iterating subject rows", err)
	}

	zap.L().Debug("Retrieved subjects", zap.Int("count", len(subjects)))
	return subjects, nil
}

// filterClause renders the WHERE conditions for a subject and filter.
func filterClause(subjectId string, filter models.EntryFilter) (string, []any) {
	conds := []string{"subject_id = ?"}
	args := []any{subjectId}

	if filter.SourceKind != "" {
		conds = append(conds, "source_kind = ?")
		args = append(args, string(filter.SourceKind))
	}
	if filter.SourceId != "" {
		conds = append(conds, "source_id = ?")
		args = append(args, filter.SourceId)
	}
	if !filter.From.IsZero() {
		conds = append(conds, "occurred_at >= ?")
		args = append(args, filter.From.UnixNano())
	}
	if !filter.To.IsZero() {
		conds = append(conds, "occurred_at < ?")
		args = append(args, filter.To.UnixNano())
	}

	return strings.Join(conds, " AND "), args
}

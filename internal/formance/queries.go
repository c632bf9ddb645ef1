package formance

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"time"

	"growwise-ledger-go/internal/models"
	"growwise-ledger-go/internal/store"

	v3 "github.com/formancehq/formance-sdk-go/v3"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"go.uber.org/zap"
)

// recordedEntry pairs an entry with its transaction id, the ledger's insertion order.
type recordedEntry struct {
	entry models.LedgerEntry
	seq   int64
}

// SumAmounts returns the sum of the subject's entries matching filter.
// An unfiltered sum is the student account balance; anything narrower is
// summed from the entry metadata.
func (s *Service) SumAmounts(ctx context.Context, subjectId string, filter models.EntryFilter) (int64, error) {
	zap.L().Debug("Summing amounts from Formance",
		zap.String("subject_id", subjectId),
		zap.String("source_kind", string(filter.SourceKind)),
		zap.String("source_id", filter.SourceId))

	if isUnfiltered(filter) {
		return s.accountBalance(ctx, studentAccount(subjectId))
	}

	recorded, err := s.listMatching(ctx, matchQuery(subjectId, filter))
	if err != nil {
		return 0, err
	}

	var sum int64
	for _, r := range recorded {
		if filter.Matches(r.entry) {
			sum += r.entry.Amount
		}
	}
	return sum, nil
}

// ListEntries returns the subject's entries matching filter, newest first.
func (s *Service) ListEntries(ctx context.Context, subjectId string, filter models.EntryFilter) ([]models.LedgerEntry, error) {
	zap.L().Debug("Listing entries from Formance",
		zap.String("subject_id", subjectId),
		zap.String("source_kind", string(filter.SourceKind)),
		zap.Int("limit", filter.Limit),
		zap.Int("offset", filter.Offset))

	recorded, err := s.listMatching(ctx, matchQuery(subjectId, filter))
	if err != nil {
		return nil, err
	}

	matching := recorded[:0]
	for _, r := range recorded {
		if filter.Matches(r.entry) {
			matching = append(matching, r)
		}
	}
	return page(sortNewestFirst(matching), filter.Offset, filter.Limit), nil
}

// GetEntry finds the transaction recording entryId.
func (s *Service) GetEntry(ctx context.Context, entryId string) (*models.LedgerEntry, error) {
	recorded, err := s.listMatching(ctx, map[string]any{
		"$match": map[string]any{"metadata[entry_id]": entryId},
	})
	if err != nil {
		return nil, err
	}
	if len(recorded) == 0 {
		return nil, fmt.Errorf("%w: %s", store.ErrEntryNotFound, entryId)
	}
	entry := recorded[0].entry
	return &entry, nil
}

// ListSubjects collects the distinct subjects across all recorded entries.
func (s *Service) ListSubjects(ctx context.Context) ([]string, error) {
	recorded, err := s.listMatching(ctx, nil)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var subjects []string
	for _, r := range recorded {
		if !seen[r.entry.SubjectId] {
			seen[r.entry.SubjectId] = true
			subjects = append(subjects, r.entry.SubjectId)
		}
	}
	sort.Strings(subjects)

	zap.L().Debug("Retrieved subjects from Formance", zap.Int("count", len(subjects)))
	return subjects, nil
}

// listMatching pages through every transaction matching query and decodes
// those that carry a ledger entry.
func (s *Service) listMatching(ctx context.Context, query map[string]any) ([]recordedEntry, error) {
	pageSize := listPageSize
	req := operations.V2ListTransactionsRequest{
		Ledger:      s.ledger,
		PageSize:    &pageSize,
		RequestBody: query,
	}

	var recorded []recordedEntry
	for {
		resp, err := s.client.Ledger.V2.ListTransactions(ctx, req)
		if err != nil {
			return nil, unavailable("failed to list transactions", err)
		}

		cursor := resp.V2TransactionsCursorResponse.Cursor
		for _, tx := range cursor.Data {
			entry, err := entryFromMetadata(tx.Metadata)
			if err != nil {
				zap.L().Warn("Skipping transaction without a readable entry",
					zap.String("tx_id", bigString(tx.ID)),
					zap.Error(err))
				continue
			}
			recorded = append(recorded, recordedEntry{entry: entry, seq: bigInt64(tx.ID)})
		}

		if !cursor.HasMore || cursor.Next == nil {
			return recorded, nil
		}
		req.Cursor = cursor.Next
	}
}

// accountBalance reads the COIN balance of address from its volumes.
func (s *Service) accountBalance(ctx context.Context, address string) (int64, error) {
	resp, err := s.client.Ledger.V2.GetAccount(ctx, operations.V2GetAccountRequest{
		Ledger:  s.ledger,
		Address: address,
		Expand:  v3.Pointer("volumes"),
	})
	if err != nil {
		if isNotFoundError(err) {
			return 0, nil
		}
		return 0, unavailable("failed to get account volumes", err)
	}

	bal := volumeBalance(resp.V2AccountResponse.Data.Volumes, coinAsset)
	if bal == nil {
		return 0, nil
	}
	if !bal.IsInt64() {
		return 0, fmt.Errorf("balance of %s overflows int64: %s", address, bal)
	}
	return bal.Int64(), nil
}

// ---------- helpers ----------

func isUnfiltered(filter models.EntryFilter) bool {
	return filter.SourceKind == "" && filter.SourceId == "" && filter.From.IsZero() && filter.To.IsZero()
}

// matchQuery builds the metadata match for a subject and filter. Time bounds
// are applied client-side against the entry's own occurred_at.
func matchQuery(subjectId string, filter models.EntryFilter) map[string]any {
	clauses := []any{
		map[string]any{"$match": map[string]any{"metadata[subject_id]": subjectId}},
	}
	if filter.SourceKind != "" {
		clauses = append(clauses, map[string]any{"$match": map[string]any{"metadata[source_kind]": string(filter.SourceKind)}})
	}
	if filter.SourceId != "" {
		clauses = append(clauses, map[string]any{"$match": map[string]any{"metadata[source_id]": filter.SourceId}})
	}
	if len(clauses) == 1 {
		return clauses[0].(map[string]any)
	}
	return map[string]any{"$and": clauses}
}

// entryFromMetadata rebuilds an entry from the metadata written by the posting scripts.
func entryFromMetadata(meta map[string]string) (models.LedgerEntry, error) {
	id := meta["entry_id"]
	if id == "" {
		return models.LedgerEntry{}, fmt.Errorf("missing entry_id metadata")
	}
	amount, err := strconv.ParseInt(meta["amount"], 10, 64)
	if err != nil {
		return models.LedgerEntry{}, fmt.Errorf("invalid amount metadata %q: %w", meta["amount"], err)
	}
	occurredAt, err := time.Parse(time.RFC3339Nano, meta["occurred_at"])
	if err != nil {
		return models.LedgerEntry{}, fmt.Errorf("invalid occurred_at metadata %q: %w", meta["occurred_at"], err)
	}

	return models.LedgerEntry{
		Id:          id,
		SubjectId:   meta["subject_id"],
		Amount:      amount,
		SourceKind:  models.SourceKind(meta["source_kind"]),
		SourceId:    meta["source_id"],
		SourceRef:   meta["source_ref"],
		Description: meta["description"],
		OccurredAt:  occurredAt.UTC(),
	}, nil
}

// sortNewestFirst orders by OccurredAt descending, then insertion descending.
func sortNewestFirst(recorded []recordedEntry) []models.LedgerEntry {
	sort.Slice(recorded, func(i, j int) bool {
		a, b := recorded[i], recorded[j]
		if !a.entry.OccurredAt.Equal(b.entry.OccurredAt) {
			return a.entry.OccurredAt.After(b.entry.OccurredAt)
		}
		return a.seq > b.seq
	})

	entries := make([]models.LedgerEntry, 0, len(recorded))
	for _, r := range recorded {
		entries = append(entries, r.entry)
	}
	return entries
}

// page applies offset and limit; a non-positive limit returns everything after offset.
func page(entries []models.LedgerEntry, offset, limit int) []models.LedgerEntry {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(entries) {
		return []models.LedgerEntry{}
	}
	entries = entries[offset:]
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return entries
}

// volumeBalance extracts the balance for a specific asset from volumes.
func volumeBalance(vols map[string]shared.V2Volume, asset string) *big.Int {
	vol, ok := vols[asset]
	if !ok {
		return nil
	}
	if vol.Balance != nil {
		return vol.Balance
	}
	if vol.Input == nil {
		return nil
	}
	result := new(big.Int).Set(vol.Input)
	if vol.Output != nil {
		result.Sub(result, vol.Output)
	}
	return result
}

func bigInt64(v *big.Int) int64 {
	if v == nil || !v.IsInt64() {
		return 0
	}
	return v.Int64()
}

func bigString(v *big.Int) string {
	if v == nil {
		return ""
	}
	return v.String()
}

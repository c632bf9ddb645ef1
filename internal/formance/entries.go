package formance

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"growwise-ledger-go/internal/models"
	"growwise-ledger-go/internal/store"

	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"go.uber.org/zap"
)

// ---------------------------------------------------------------------------
// Numscript templates. Credits flow from the rewards pool to the student,
// corrections flow back. Every entry field is written with set_tx_meta() so
// the transaction alone describes the entry.
// ---------------------------------------------------------------------------

const (
	rewardsAccount     = "growwise:rewards"
	correctionsAccount = "growwise:corrections"
)

const entryMetaVars = `
  string $entry_id
  string $subject_id
  string $signed_amount
  string $source_kind
  string $source_id
  string $source_ref
  string $description
  string $occurred_at
}
`

const entryMetaSetters = `
set_tx_meta("entry_id", $entry_id)
set_tx_meta("subject_id", $subject_id)
set_tx_meta("amount", $signed_amount)
set_tx_meta("source_kind", $source_kind)
set_tx_meta("source_id", $source_id)
set_tx_meta("source_ref", $source_ref)
set_tx_meta("description", $description)
set_tx_meta("occurred_at", $occurred_at)
`

const numscriptCredit = `vars {
  asset $asset
  number $amount
  account $student` + entryMetaVars + `
send [$asset $amount] (
  source = @growwise:rewards allowing unbounded overdraft
  destination = $student
)
` + entryMetaSetters

const numscriptDebit = `vars {
  asset $asset
  number $amount
  account $student` + entryMetaVars + `
send [$asset $amount] (
  source = $student allowing unbounded overdraft
  destination = @growwise:corrections
)
` + entryMetaSetters

// studentAccount is the Formance account holding a subject's coins.
func studentAccount(subjectId string) string {
	return "students:" + subjectId
}

// transactionReference is unique per ledger, so it carries the idempotency key:
// the originating event when there is one, the entry id otherwise.
func transactionReference(entry models.LedgerEntry) string {
	if entry.SourceRef != "" {
		return fmt.Sprintf("%s:%s", entry.SourceKind, entry.SourceRef)
	}
	return "entry:" + entry.Id
}

// postingFor returns the script and vars recording entry.
func postingFor(entry models.LedgerEntry) (string, map[string]string) {
	script := numscriptCredit
	magnitude := entry.Amount
	if entry.Amount < 0 {
		script = numscriptDebit
		magnitude = -entry.Amount
	}

	return script, map[string]string{
		"asset":         coinAsset,
		"amount":        strconv.FormatInt(magnitude, 10),
		"student":       studentAccount(entry.SubjectId),
		"entry_id":      entry.Id,
		"subject_id":    entry.SubjectId,
		"signed_amount": strconv.FormatInt(entry.Amount, 10),
		"source_kind":   string(entry.SourceKind),
		"source_id":     entry.SourceId,
		"source_ref":    entry.SourceRef,
		"description":   entry.Description,
		"occurred_at":   entry.OccurredAt.UTC().Format(time.RFC3339Nano),
	}
}

// Append posts entry as a single Formance transaction.
func (s *Service) Append(ctx context.Context, entry models.LedgerEntry) (*models.LedgerEntry, error) {
	zap.L().Info("Appending entry to Formance",
		zap.String("subject_id", entry.SubjectId),
		zap.String("source_kind", string(entry.SourceKind)),
		zap.String("source_id", entry.SourceId),
		zap.Int64("amount", entry.Amount),
		zap.String("source_ref", entry.SourceRef))

	if err := s.post(ctx, entry); err != nil {
		return nil, err
	}

	zap.L().Info("Entry appended to Formance",
		zap.String("entry_id", entry.Id),
		zap.String("subject_id", entry.SubjectId),
		zap.Int64("amount", entry.Amount))
	recorded := entry
	return &recorded, nil
}

func (s *Service) post(ctx context.Context, entry models.LedgerEntry) error {
	script, vars := postingFor(entry)
	occurredAt := entry.OccurredAt.UTC()

	_, err := s.client.Ledger.V2.CreateTransaction(ctx, operations.V2CreateTransactionRequest{
		Ledger: s.ledger,
		V2PostTransaction: shared.V2PostTransaction{
			Reference: strPtr(transactionReference(entry)),
			Script: &shared.V2PostTransactionScript{
				Plain: script,
				Vars:  vars,
			},
			Timestamp: &occurredAt,
		},
	})
	if err != nil {
		if isConflictError(err) {
			zap.L().Warn("Duplicate source reference detected, skipping",
				zap.String("source_kind", string(entry.SourceKind)),
				zap.String("source_ref", entry.SourceRef))
			return fmt.Errorf("%w: reference %s already exists", store.ErrDuplicateEntry, transactionReference(entry))
		}
		return unavailable("failed to create transaction", err)
	}
	return nil
}

// AppendCapped records entry clipped to the window's remaining allowance.
// Formance has no multi-statement transaction, so the decision is optimistic:
// post the clipped entry, then settle the window against concurrent writers.
// Once the post succeeds the result is always returned; a settlement that
// could not finish is reported through CappedEntry.Unsettled.
func (s *Service) AppendCapped(ctx context.Context, entry models.LedgerEntry, window store.CapWindow) (*store.CappedEntry, error) {
	filter := window.Filter(entry.SourceKind, entry.SourceId)

	earned, err := s.SumAmounts(ctx, entry.SubjectId, filter)
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

	if err := s.post(ctx, entry); err != nil {
		return nil, err
	}

	net, unsettled := settleCap(
		func() (int64, error) { return s.SumAmounts(ctx, entry.SubjectId, filter) },
		func(c models.LedgerEntry) error { return s.post(ctx, c) },
		entry, window, s.capAttempts)
	if unsettled != nil {
		zap.L().Error("Capped entry recorded but its window is unsettled",
			zap.String("entry_id", entry.Id),
			zap.String("subject_id", entry.SubjectId),
			zap.Int64("net", net),
			zap.Error(unsettled))
	}

	return &store.CappedEntry{Entry: entry, Net: net, Unsettled: unsettled}, nil
}

// settleCap re-sums the window after entry was posted and withdraws any
// overshoot from entry's grant with compensating corrections. It returns what
// is left of the grant and, when the window could not be brought within its
// cap, why.
func settleCap(sum func() (int64, error), post func(models.LedgerEntry) error, entry models.LedgerEntry, window store.CapWindow, attempts int) (int64, error) {
	net := entry.Amount
	for attempt := 1; ; attempt++ {
		total, err := sum()
		if err != nil {
			return net, err
		}
		overshoot := total - window.MaxCoins
		// Once our share is fully withdrawn the remaining overshoot belongs to other writers.
		if overshoot <= 0 || net == 0 {
			return net, nil
		}
		if attempt > attempts {
			return net, fmt.Errorf("%w: cap window for %s/%s still over after %d attempts",
				store.ErrConcurrentModification, entry.SourceKind, entry.SourceId, attempts)
		}

		back := min(overshoot, net)
		zap.L().Warn("Concurrent earn overshot the daily cap, compensating",
			zap.String("entry_id", entry.Id),
			zap.String("subject_id", entry.SubjectId),
			zap.Int64("overshoot", overshoot),
			zap.Int64("compensation", back),
			zap.Int("attempt", attempt))
		if err := post(compensation(entry, back, attempt)); err != nil {
			return net, err
		}
		net -= back
	}
}

// compensation is the correction withdrawing amount from entry's grant.
// It shares the entry's timestamp so both land in the same cap window.
func compensation(entry models.LedgerEntry, amount int64, attempt int) models.LedgerEntry {
	return models.LedgerEntry{
		Id:          fmt.Sprintf("%s-compensation-%d", entry.Id, attempt),
		SubjectId:   entry.SubjectId,
		Amount:      -amount,
		SourceKind:  entry.SourceKind,
		SourceId:    entry.SourceId,
		SourceRef:   fmt.Sprintf("%s-compensation-%d", entry.Id, attempt),
		Description: "Daily cap compensation: " + entry.Description,
		OccurredAt:  entry.OccurredAt,
	}
}

func strPtr(s string) *string { return &s }

package common

import (
	"context"
	"fmt"

	"growwise-ledger-go/internal/ledger"

	"go.uber.org/zap"
)

// ResolveSubjects returns the single subject named by subjectFilter, or every
// subject with ledger entries when the filter is empty.
func ResolveSubjects(ctx context.Context, l *ledger.Ledger, subjectFilter string, logger *zap.Logger) ([]string, error) {
	if subjectFilter != "" {
		logger.Info("Using requested subject", zap.String("subject_id", subjectFilter))
		return []string{subjectFilter}, nil
	}

	subjects, err := l.Subjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list subjects: %w", err)
	}

	logger.Info("Retrieved subjects", zap.Int("count", len(subjects)))
	return subjects, nil
}

package storage

import (
	"context"
	"fmt"
	"time"

	"fintrack/internal/core"
)

func (r *SQLiteRepository) InsertInsight(ctx context.Context, rec core.InsightRecord) (core.InsightRecord, error) {
	if rec.UserID <= 0 {
		return core.InsightRecord{}, violation(core.ErrInvalidUser)
	}
	if err := rec.Insight.Validate(); err != nil {
		return core.InsightRecord{}, violation(err)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	err := r.exec(func(q *Queries) error {
		id, err := q.CreateInsight(ctx, rec)
		if err != nil {
			return fmt.Errorf("create insight: %w", classify(err))
		}
		rec.ID = id
		return nil
	})
	if err != nil {
		return core.InsightRecord{}, err
	}
	return rec, nil
}

// InsightsByUser returns the stored snapshot for the user, unordered.
func (r *SQLiteRepository) InsightsByUser(ctx context.Context, userID int64) ([]core.InsightRecord, error) {
	recs, err := r.queries.GetInsightsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get insights for user %d: %w", userID, classify(err))
	}
	return recs, nil
}

// ReplaceInsights swaps the user's stored snapshot for insights in a single
// transaction, so readers see either the old or the new set.
func (r *SQLiteRepository) ReplaceInsights(ctx context.Context, userID int64, insights []core.Insight) error {
	if userID <= 0 {
		return violation(core.ErrInvalidUser)
	}
	for _, in := range insights {
		if err := in.Validate(); err != nil {
			return violation(err)
		}
	}

	now := time.Now().UTC()
	return r.inTx(ctx, func(q *Queries) error {
		if _, err := q.DeleteInsightsByUser(ctx, userID); err != nil {
			return fmt.Errorf("clear insights for user %d: %w", userID, classify(err))
		}
		for _, in := range insights {
			rec := core.InsightRecord{UserID: userID, Insight: in, CreatedAt: now}
			if _, err := q.CreateInsight(ctx, rec); err != nil {
				return fmt.Errorf("create insight: %w", classify(err))
			}
		}
		return nil
	})
}

// DeleteInsightsByUser is idempotent.
func (r *SQLiteRepository) DeleteInsightsByUser(ctx context.Context, userID int64) error {
	err := r.exec(func(q *Queries) error {
		_, err := q.DeleteInsightsByUser(ctx, userID)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete insights for user %d: %w", userID, classify(err))
	}
	return nil
}

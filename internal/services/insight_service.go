package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fintrack/internal/core"
	"fintrack/internal/query"
)

type SnapshotReader interface {
	Snapshot(ctx context.Context, userID int64) (query.Snapshot, error)
}

type InsightStore interface {
	ReplaceInsights(ctx context.Context, userID int64, insights []core.Insight) error
	UserIDs(ctx context.Context) ([]int64, error)
}

// Generator turns a history into insights.
type Generator interface {
	Generate(txs []core.Transaction, cats []core.Category) []core.Insight
}

type InsightService struct {
	reader    SnapshotReader
	generator Generator
	store     InsightStore
}

func NewInsightService(reader SnapshotReader, generator Generator, store InsightStore) *InsightService {
	return &InsightService{reader: reader, generator: generator, store: store}
}

// Current computes the user's insights from the store as it is now.
func (s *InsightService) Current(ctx context.Context, userID int64) ([]core.Insight, error) {
	snap, err := s.reader.Snapshot(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	return s.generator.Generate(snap.Transactions, snap.Categories), nil
}

// Refresh recomputes the user's insights and replaces the stored snapshot.
func (s *InsightService) Refresh(ctx context.Context, userID int64) ([]core.Insight, error) {
	insights, err := s.Current(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.store.ReplaceInsights(ctx, userID, insights); err != nil {
		return nil, fmt.Errorf("store insights for user %d: %w", userID, err)
	}
	return insights, nil
}

// RefreshAll refreshes every user, continuing past individual failures.
func (s *InsightService) RefreshAll(ctx context.Context) error {
	ids, err := s.store.UserIDs(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	var errs []error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := s.Refresh(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}

	slog.InfoContext(ctx, "Insights refreshed", "users", len(ids), "failed", len(errs))
	return errors.Join(errs...)
}

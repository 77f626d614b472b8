package services

import (
	"context"
	"fmt"

	"fintrack/internal/core"
	"fintrack/internal/query"
)

const (
	RecentTransactions = 10
	ChartCategories    = 5
)

// Dashboard is everything the main screen shows for one user.
type Dashboard struct {
	Summary    query.Summary           `json:"summary"`
	Recent     []query.TransactionView `json:"transactions"`
	Chart      []query.CategoryTotal   `json:"chart"`
	Insights   []core.Insight          `json:"insights"`
	Categories []query.CategoryOption  `json:"categories"`
}

// DemoSeeder is satisfied by *Seeder.
type DemoSeeder interface {
	SeedDemoIfEmpty(ctx context.Context, userID int64) (bool, error)
}

type DashboardService struct {
	reader    SnapshotReader
	generator Generator
	seeder    DemoSeeder
}

// NewDashboardService returns a dashboard loader. With a non-nil seeder an
// empty account receives demo data before its first read.
func NewDashboardService(reader SnapshotReader, generator Generator, seeder DemoSeeder) *DashboardService {
	return &DashboardService{reader: reader, generator: generator, seeder: seeder}
}

func (s *DashboardService) Load(ctx context.Context, userID int64) (Dashboard, error) {
	if s.seeder != nil {
		if _, err := s.seeder.SeedDemoIfEmpty(ctx, userID); err != nil {
			return Dashboard{}, fmt.Errorf("seed demo data: %w", err)
		}
	}

	snap, err := s.reader.Snapshot(ctx, userID)
	if err != nil {
		return Dashboard{}, fmt.Errorf("load dashboard: %w", err)
	}

	return Dashboard{
		Summary:    query.Summarize(snap.Transactions),
		Recent:     query.TransactionViews(snap.Transactions, snap.Categories, RecentTransactions),
		Chart:      query.ExpenseBreakdown(snap.Transactions, snap.Categories, ChartCategories),
		Insights:   s.generator.Generate(snap.Transactions, snap.Categories),
		Categories: query.CategoryOptions(snap.Categories),
	}, nil
}

// Package worker keeps the stored insight snapshots current. Ledger events
// refresh a single user; a cron schedule refreshes everyone so month
// boundaries are picked up without new writes.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
)

// Refresher is satisfied by *services.InsightService.
type Refresher interface {
	Refresh(ctx context.Context, userID int64) ([]core.Insight, error)
	RefreshAll(ctx context.Context) error
}

type InsightsWorker struct {
	refresher Refresher
}

func NewInsightsWorker(refresher Refresher) *InsightsWorker {
	return &InsightsWorker{refresher: refresher}
}

// HandleLedgerEvent recomputes the insights of the event's user. A returned
// error requeues the message.
func (w *InsightsWorker) HandleLedgerEvent(ctx context.Context, e *amqp.LedgerEvent) error {
	insights, err := w.refresher.Refresh(ctx, e.UserID)
	if err != nil {
		return fmt.Errorf("refresh insights for user %d after %s: %w", e.UserID, e.Type, err)
	}
	slog.InfoContext(ctx, "Insights refreshed",
		"user_id", e.UserID,
		"event", e.Type,
		"count", len(insights))
	return nil
}

// RefreshAll is the scheduled job. Failures are logged, not returned.
func (w *InsightsWorker) RefreshAll(ctx context.Context) {
	if err := w.refresher.RefreshAll(ctx); err != nil {
		slog.ErrorContext(ctx, "Scheduled insights refresh failed", "error", err)
	}
}

// Package services holds the application operations behind the HTTP API and
// the insights worker: registration and login, recording and removing
// transactions, demo seeding, insights and the dashboard view.
package services

import (
	"context"
	"log/slog"

	"fintrack/internal/amqp"
)

// Publisher announces ledger changes. A nil Publisher disables events.
type Publisher interface {
	PublishLedgerEvent(ctx context.Context, e *amqp.LedgerEvent) error
}

// publish never fails the caller: the write it reports is already committed.
func publish(ctx context.Context, p Publisher, t amqp.EventType, userID, transactionID int64) {
	if p == nil {
		return
	}
	if err := p.PublishLedgerEvent(ctx, amqp.NewLedgerEvent(t, userID, transactionID)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"type", t,
			"user_id", userID,
			"transaction_id", transactionID,
			"error", err)
	}
}

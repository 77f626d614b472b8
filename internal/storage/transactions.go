package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cloud.google.com/go/civil"

	"fintrack/internal/core"
)

// InsertTransaction rejects non-positive amounts before anything reaches the
// database. The category reference is advisory and not checked here.
func (r *SQLiteRepository) InsertTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, violation(err)
	}
	err := r.exec(func(q *Queries) error {
		id, err := q.CreateTransaction(ctx, t)
		if err != nil {
			return fmt.Errorf("create transaction: %w", classify(err))
		}
		t.ID = id
		return nil
	})
	if err != nil {
		return core.Transaction{}, err
	}

	slog.DebugContext(ctx, "Transaction saved",
		"id", t.ID,
		"user_id", t.UserID,
		"kind", t.Kind,
		"amount", t.Amount.String(),
		"date", t.Date.String())
	return t, nil
}

func (r *SQLiteRepository) TransactionByID(ctx context.Context, id int64) (core.Transaction, error) {
	t, err := r.queries.GetTransactionByID(ctx, id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, classify(err))
	}
	return t, nil
}

// TransactionsByUser returns the user's transactions unordered. Ordering is
// the query layer's job.
func (r *SQLiteRepository) TransactionsByUser(ctx context.Context, userID int64) ([]core.Transaction, error) {
	txs, err := r.queries.GetTransactionsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get transactions for user %d: %w", userID, classify(err))
	}
	return txs, nil
}

// TransactionsByDateRange returns the user's transactions dated within
// [from, to], both inclusive, unordered.
func (r *SQLiteRepository) TransactionsByDateRange(ctx context.Context, userID int64, from, to civil.Date) ([]core.Transaction, error) {
	txs, err := r.queries.GetTransactionsByDateRange(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("get transactions for user %d between %s and %s: %w", userID, from, to, classify(err))
	}
	return txs, nil
}

func (r *SQLiteRepository) CountTransactionsByUser(ctx context.Context, userID int64) (int64, error) {
	n, err := r.queries.CountTransactionsByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("count transactions for user %d: %w", userID, classify(err))
	}
	return n, nil
}

// DeleteTransaction removes the transaction with the given id. Deleting an
// id that does not exist succeeds.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64) error {
	var affected int64
	err := r.exec(func(q *Queries) error {
		n, err := q.DeleteTransaction(ctx, id)
		affected = n
		return err
	})
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, classify(err))
	}
	if affected == 0 {
		slog.DebugContext(ctx, "Delete of missing transaction ignored", "id", id)
	}
	return nil
}

// BulkInsertTransactions is best effort like BulkInsertCategories; every
// record still goes through InsertTransaction's amount check.
func (r *SQLiteRepository) BulkInsertTransactions(ctx context.Context, txs []core.Transaction) ([]core.Transaction, error) {
	inserted := make([]core.Transaction, 0, len(txs))
	var errs []error
	for i, t := range txs {
		saved, err := r.InsertTransaction(ctx, t)
		if err != nil {
			errs = append(errs, fmt.Errorf("transaction %d: %w", i, err))
			continue
		}
		inserted = append(inserted, saved)
	}
	if len(errs) > 0 {
		slog.WarnContext(ctx, "Bulk transaction insert partially failed",
			"inserted", len(inserted), "failed", len(errs))
	}
	return inserted, errors.Join(errs...)
}

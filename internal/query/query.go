// Package query shapes record store data for its consumers. Every call
// re-reads the store; nothing is cached, so callers re-query after each
// mutation.
package query

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"cloud.google.com/go/civil"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/core"
)

// Store is the subset of the record store the query layer reads from.
type Store interface {
	TransactionsByUser(ctx context.Context, userID int64) ([]core.Transaction, error)
	TransactionsByDateRange(ctx context.Context, userID int64, from, to civil.Date) ([]core.Transaction, error)
	CategoriesByUser(ctx context.Context, userID int64) ([]core.Category, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// TransactionsForUser returns the user's transactions sorted by date
// descending. Equal dates are ordered by id descending, so the most
// recently recorded entry of a day comes first.
func (s *Service) TransactionsForUser(ctx context.Context, userID int64) ([]core.Transaction, error) {
	txs, err := s.store.TransactionsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("transactions for user %d: %w", userID, err)
	}
	SortByDateDesc(txs)
	return txs, nil
}

// TransactionsBetween is TransactionsForUser restricted to dates within
// [from, to], answered from the date index.
func (s *Service) TransactionsBetween(ctx context.Context, userID int64, from, to civil.Date) ([]core.Transaction, error) {
	txs, err := s.store.TransactionsByDateRange(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("transactions for user %d between %s and %s: %w", userID, from, to, err)
	}
	SortByDateDesc(txs)
	return txs, nil
}

// CategoriesForUser returns the user's categories unordered.
func (s *Service) CategoriesForUser(ctx context.Context, userID int64) ([]core.Category, error) {
	cats, err := s.store.CategoriesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("categories for user %d: %w", userID, err)
	}
	return cats, nil
}

// Snapshot is a user's full history as read in one pass.
type Snapshot struct {
	Transactions []core.Transaction
	Categories   []core.Category
}

// Snapshot reads transactions and categories concurrently. Each read is its
// own atomic unit against its own collection.
func (s *Service) Snapshot(ctx context.Context, userID int64) (Snapshot, error) {
	var snap Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		txs, err := s.TransactionsForUser(gctx, userID)
		snap.Transactions = txs
		return err
	})
	g.Go(func() error {
		cats, err := s.CategoriesForUser(gctx, userID)
		snap.Categories = cats
		return err
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// SortByDateDesc sorts txs in place, newest date first, ties by id descending.
func SortByDateDesc(txs []core.Transaction) {
	slices.SortStableFunc(txs, func(a, b core.Transaction) int {
		switch {
		case a.Date.After(b.Date):
			return -1
		case a.Date.Before(b.Date):
			return 1
		}
		return cmp.Compare(b.ID, a.ID)
	})
}

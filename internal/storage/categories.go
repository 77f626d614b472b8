package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fintrack/internal/core"
)

func (r *SQLiteRepository) InsertCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, violation(err)
	}
	err := r.exec(func(q *Queries) error {
		id, err := q.CreateCategory(ctx, c)
		if err != nil {
			return fmt.Errorf("create category: %w", classify(err))
		}
		c.ID = id
		return nil
	})
	if err != nil {
		return core.Category{}, err
	}
	return c, nil
}

func (r *SQLiteRepository) CategoryByID(ctx context.Context, id int64) (core.Category, error) {
	c, err := r.queries.GetCategoryByID(ctx, id)
	if err != nil {
		return core.Category{}, fmt.Errorf("get category %d: %w", id, classify(err))
	}
	return c, nil
}

// CategoriesByUser returns the user's categories in no particular order.
func (r *SQLiteRepository) CategoriesByUser(ctx context.Context, userID int64) ([]core.Category, error) {
	cats, err := r.queries.GetCategoriesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get categories for user %d: %w", userID, classify(err))
	}
	return cats, nil
}

// BulkInsertCategories inserts each category on its own. Failures do not stop
// the batch; the inserted records are returned together with the joined
// errors of the ones that were rejected.
func (r *SQLiteRepository) BulkInsertCategories(ctx context.Context, cats []core.Category) ([]core.Category, error) {
	inserted := make([]core.Category, 0, len(cats))
	var errs []error
	for i, c := range cats {
		saved, err := r.InsertCategory(ctx, c)
		if err != nil {
			errs = append(errs, fmt.Errorf("category %d (%s): %w", i, c.Name, err))
			continue
		}
		inserted = append(inserted, saved)
	}
	if len(errs) > 0 {
		slog.WarnContext(ctx, "Bulk category insert partially failed",
			"inserted", len(inserted), "failed", len(errs))
	}
	return inserted, errors.Join(errs...)
}

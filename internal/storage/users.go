package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/core"
)

// InsertUser stores u under a fresh id. The email lookup and the insert run
// in one transaction under the write lock, so of two concurrent inserts with
// the same email exactly one succeeds; the other gets
// core.ErrConstraintViolation wrapping core.ErrEmailTaken.
func (r *SQLiteRepository) InsertUser(ctx context.Context, u core.User) (core.User, error) {
	u.Email = core.NormalizeEmail(u.Email)
	if err := u.Validate(); err != nil {
		return core.User{}, violation(err)
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	err := r.inTx(ctx, func(q *Queries) error {
		_, err := q.GetUserByEmail(ctx, u.Email)
		switch classified := classify(err); {
		case err == nil:
			return violation(core.ErrEmailTaken)
		case !errors.Is(classified, core.ErrNotFound):
			return fmt.Errorf("check email: %w", classified)
		}

		id, err := q.CreateUser(ctx, u)
		if err != nil {
			return fmt.Errorf("create user: %w", classify(err))
		}
		u.ID = id
		return nil
	})
	if err != nil {
		return core.User{}, err
	}

	slog.InfoContext(ctx, "User registered", "id", u.ID)
	return u, nil
}

// UserByEmail looks a user up through the unique email index.
func (r *SQLiteRepository) UserByEmail(ctx context.Context, email string) (core.User, error) {
	u, err := r.queries.GetUserByEmail(ctx, core.NormalizeEmail(email))
	if err != nil {
		return core.User{}, fmt.Errorf("get user by email: %w", classify(err))
	}
	return u, nil
}

func (r *SQLiteRepository) UserByID(ctx context.Context, id int64) (core.User, error) {
	u, err := r.queries.GetUserByID(ctx, id)
	if err != nil {
		return core.User{}, fmt.Errorf("get user %d: %w", id, classify(err))
	}
	return u, nil
}

// UserIDs lists every registered user id in ascending order.
func (r *SQLiteRepository) UserIDs(ctx context.Context) ([]int64, error) {
	ids, err := r.queries.ListUserIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", classify(err))
	}
	return ids, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
)

type LedgerStore interface {
	InsertTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	TransactionByID(ctx context.Context, id int64) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, id int64) error
	CategoryByID(ctx context.Context, id int64) (core.Category, error)
}

// NewTransaction is a transaction as submitted by a user.
type NewTransaction struct {
	UserID     int64
	CategoryID int64
	Kind       core.Kind
	Amount     decimal.Decimal
	Date       civil.Date
	Note       string
}

type LedgerService struct {
	store     LedgerStore
	publisher Publisher
	now       func() time.Time
}

// NewLedgerService returns a service judging future dates against now. A nil
// now uses time.Now.
func NewLedgerService(store LedgerStore, publisher Publisher, now func() time.Time) *LedgerService {
	if now == nil {
		now = time.Now
	}
	return &LedgerService{store: store, publisher: publisher, now: now}
}

// Validate reports every problem with in, joined, or nil. It does not touch
// the store.
func (s *LedgerService) Validate(in NewTransaction) error {
	var errs []error
	if !in.Amount.IsPositive() {
		errs = append(errs, core.ErrInvalidAmount)
	}
	if !in.Kind.Valid() {
		errs = append(errs, core.ErrInvalidKind)
	}
	switch {
	case !in.Date.IsValid():
		errs = append(errs, core.ErrInvalidDate)
	case in.Date.After(core.Today(s.now())):
		errs = append(errs, core.ErrFutureDate)
	}
	if in.CategoryID <= 0 {
		errs = append(errs, core.ErrEmptyCategory)
	}
	return errors.Join(errs...)
}

// AddTransaction validates in, checks that its category belongs to the same
// user and has the same kind, and stores it. Rejections wrap
// core.ErrConstraintViolation.
func (s *LedgerService) AddTransaction(ctx context.Context, in NewTransaction) (core.Transaction, error) {
	if err := s.Validate(in); err != nil {
		return core.Transaction{}, fmt.Errorf("%w: %w", core.ErrConstraintViolation, err)
	}

	cat, err := s.store.CategoryByID(ctx, in.CategoryID)
	switch {
	case errors.Is(err, core.ErrNotFound):
		return core.Transaction{}, fmt.Errorf("%w: %w: category %d does not exist",
			core.ErrConstraintViolation, core.ErrCategoryMismatch, in.CategoryID)
	case err != nil:
		return core.Transaction{}, fmt.Errorf("load category: %w", err)
	case cat.UserID != in.UserID || cat.Kind != in.Kind:
		return core.Transaction{}, fmt.Errorf("%w: %w: category %d is not a %s category of user %d",
			core.ErrConstraintViolation, core.ErrCategoryMismatch, in.CategoryID, in.Kind, in.UserID)
	}

	t, err := s.store.InsertTransaction(ctx, core.Transaction{
		UserID:     in.UserID,
		CategoryID: in.CategoryID,
		Kind:       in.Kind,
		Amount:     in.Amount,
		Date:       in.Date,
		Note:       in.Note,
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("add transaction: %w", err)
	}

	publish(ctx, s.publisher, amqp.EventTransactionCreated, t.UserID, t.ID)
	return t, nil
}

// DeleteTransaction removes a transaction owned by userID. Missing ids and
// transactions of other users are a no-op.
func (s *LedgerService) DeleteTransaction(ctx context.Context, userID, id int64) error {
	t, err := s.store.TransactionByID(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load transaction: %w", err)
	}
	if t.UserID != userID {
		slog.WarnContext(ctx, "Refusing to delete transaction of another user",
			"user_id", userID, "transaction_id", id)
		return nil
	}

	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	publish(ctx, s.publisher, amqp.EventTransactionDeleted, userID, id)
	return nil
}

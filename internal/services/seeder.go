package services

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"fintrack/internal/analytics"
	"fintrack/internal/core"
)

// DefaultCategories are created for every new account.
var DefaultCategories = []core.Category{
	{Name: "Salary", Kind: core.KindIncome},
	{Name: "Freelance", Kind: core.KindIncome},
	{Name: "Food", Kind: core.KindExpense},
	{Name: "Rent", Kind: core.KindExpense},
	{Name: "Transport", Kind: core.KindExpense},
	{Name: "Utilities", Kind: core.KindExpense},
	{Name: "Entertainment", Kind: core.KindExpense},
	{Name: "Health", Kind: core.KindExpense},
}

const (
	demoDays          = 90
	demoExpenseChance = 0.3
	demoSalaryMonths  = 3
)

var (
	demoSalary    = decimal.NewFromInt(3500)
	demoMinAmount = 10.0
	demoMaxAmount = 60.0
)

type SeedStore interface {
	CountTransactionsByUser(ctx context.Context, userID int64) (int64, error)
	CategoriesByUser(ctx context.Context, userID int64) ([]core.Category, error)
	BulkInsertCategories(ctx context.Context, cats []core.Category) ([]core.Category, error)
	BulkInsertTransactions(ctx context.Context, txs []core.Transaction) ([]core.Transaction, error)
}

// Seeder populates accounts with default categories and demo history.
type Seeder struct {
	store SeedStore
	now   func() time.Time
	group singleflight.Group

	mu    sync.Mutex
	faker *gofakeit.Faker
}

// NewSeeder returns a seeder drawing demo data from a generator seeded with
// seed. A nil now uses time.Now.
func NewSeeder(store SeedStore, now func() time.Time, seed int64) *Seeder {
	if now == nil {
		now = time.Now
	}
	return &Seeder{store: store, now: now, faker: gofakeit.New(seed)}
}

func (s *Seeder) SeedCategories(ctx context.Context, userID int64) ([]core.Category, error) {
	cats := make([]core.Category, len(DefaultCategories))
	for i, c := range DefaultCategories {
		c.UserID = userID
		cats[i] = c
	}
	inserted, err := s.store.BulkInsertCategories(ctx, cats)
	if err != nil {
		return inserted, fmt.Errorf("seed categories for user %d: %w", userID, err)
	}
	return inserted, nil
}

// SeedDemoIfEmpty gives a user without transactions three months of demo
// history. Concurrent calls for the same user share one run, so a user is
// seeded at most once. It reports whether this call's run inserted data.
func (s *Seeder) SeedDemoIfEmpty(ctx context.Context, userID int64) (bool, error) {
	v, err, _ := s.group.Do(strconv.FormatInt(userID, 10), func() (any, error) {
		return s.seedDemo(ctx, userID)
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

func (s *Seeder) seedDemo(ctx context.Context, userID int64) (bool, error) {
	n, err := s.store.CountTransactionsByUser(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("count transactions: %w", err)
	}
	if n > 0 {
		return false, nil
	}

	cats, err := s.store.CategoriesByUser(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("load categories: %w", err)
	}
	if len(cats) == 0 {
		if cats, err = s.SeedCategories(ctx, userID); len(cats) == 0 {
			return false, err
		}
	}

	txs := s.DemoTransactions(userID, cats)
	inserted, err := s.store.BulkInsertTransactions(ctx, txs)
	if err != nil {
		slog.WarnContext(ctx, "Demo data incomplete", "user_id", userID, "error", err)
	}

	slog.InfoContext(ctx, "Seeded demo data", "user_id", userID, "transactions", len(inserted))
	return len(inserted) > 0, nil
}

// DemoTransactions builds demo history for userID from its categories: on
// each of the last demoDays days an expense of 10 to 60 with probability
// demoExpenseChance, plus a salary on the first of this and the two previous
// months.
func (s *Seeder) DemoTransactions(userID int64, cats []core.Category) []core.Transaction {
	var incomeCats, expenseCats []core.Category
	for _, c := range cats {
		if c.Kind == core.KindIncome {
			incomeCats = append(incomeCats, c)
		} else {
			expenseCats = append(expenseCats, c)
		}
	}
	// the salary goes to the oldest income category, "Salary" for a default account
	slices.SortFunc(incomeCats, func(a, b core.Category) int { return cmp.Compare(a.ID, b.ID) })

	s.mu.Lock()
	defer s.mu.Unlock()

	today := core.Today(s.now())
	var txs []core.Transaction
	if len(expenseCats) > 0 {
		for i := 0; i < demoDays; i++ {
			if s.faker.Float64() >= demoExpenseChance {
				continue
			}
			cat := expenseCats[s.faker.Number(0, len(expenseCats)-1)]
			amount := decimal.NewFromFloat(s.faker.Float64Range(demoMinAmount, demoMaxAmount)).Round(2)
			txs = append(txs, core.Transaction{
				UserID:     userID,
				CategoryID: cat.ID,
				Kind:       core.KindExpense,
				Amount:     amount,
				Date:       today.AddDays(-i),
				Note:       "Demo expense",
			})
		}
	}

	if len(incomeCats) > 0 {
		m := analytics.MonthOf(today)
		for i := 0; i < demoSalaryMonths; i++ {
			txs = append(txs, core.Transaction{
				UserID:     userID,
				CategoryID: incomeCats[0].ID,
				Kind:       core.KindIncome,
				Amount:     demoSalary,
				Date:       m.First(),
				Note:       "Monthly salary",
			})
			m = m.Prev()
		}
	}
	return txs
}

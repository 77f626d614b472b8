package query

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

type fakeStore struct {
	txs  []core.Transaction
	cats []core.Category
	err  error
}

func (f *fakeStore) TransactionsByUser(_ context.Context, userID int64) ([]core.Transaction, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []core.Transaction
	for _, t := range f.txs {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) TransactionsByDateRange(ctx context.Context, userID int64, from, to civil.Date) ([]core.Transaction, error) {
	all, err := f.TransactionsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	var out []core.Transaction
	for _, t := range all {
		if !t.Date.Before(from) && !t.Date.After(to) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) CategoriesByUser(_ context.Context, userID int64) ([]core.Category, error) {
	var out []core.Category
	for _, c := range f.cats {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func d(s string) civil.Date {
	v, err := civil.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return v
}

func tx(id int64, date string, kind core.Kind, cat int64, amount string) core.Transaction {
	return core.Transaction{
		ID:         id,
		UserID:     1,
		CategoryID: cat,
		Kind:       kind,
		Amount:     decimal.RequireFromString(amount),
		Date:       d(date),
	}
}

func TestTransactionsForUserSortedByDateDesc(t *testing.T) {
	store := &fakeStore{txs: []core.Transaction{
		tx(1, "2024-01-05", core.KindExpense, 1, "10"),
		tx(2, "2024-03-01", core.KindExpense, 1, "10"),
		tx(3, "2024-02-10", core.KindExpense, 1, "10"),
	}}
	got, err := NewService(store).TransactionsForUser(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"2024-03-01", "2024-02-10", "2024-01-05"}
	if len(got) != len(want) {
		t.Fatalf("got %d transactions", len(got))
	}
	for i, w := range want {
		if got[i].Date.String() != w {
			t.Fatalf("position %d: got %s want %s", i, got[i].Date, w)
		}
	}
}

func TestSortByDateDescTiesByIDDesc(t *testing.T) {
	txs := []core.Transaction{
		tx(4, "2024-02-01", core.KindExpense, 1, "1"),
		tx(9, "2024-02-01", core.KindExpense, 1, "1"),
		tx(2, "2024-02-03", core.KindExpense, 1, "1"),
	}
	SortByDateDesc(txs)
	ids := []int64{txs[0].ID, txs[1].ID, txs[2].ID}
	if ids[0] != 2 || ids[1] != 9 || ids[2] != 4 {
		t.Fatalf("unexpected order %v", ids)
	}
}

func TestTransactionsBetween(t *testing.T) {
	store := &fakeStore{txs: []core.Transaction{
		tx(1, "2024-01-31", core.KindExpense, 1, "10"),
		tx(2, "2024-02-01", core.KindExpense, 1, "10"),
		tx(3, "2024-02-20", core.KindExpense, 1, "10"),
	}}
	got, err := NewService(store).TransactionsBetween(context.Background(), 1, d("2024-02-01"), d("2024-02-29"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].ID != 3 || got[1].ID != 2 {
		t.Fatalf("unexpected range result %+v", got)
	}
}

func TestSnapshotPropagatesErrors(t *testing.T) {
	boom := errors.New("handle closed")
	_, err := NewService(&fakeStore{err: boom}).Snapshot(context.Background(), 1)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}

func TestSnapshot(t *testing.T) {
	store := &fakeStore{
		txs:  []core.Transaction{tx(1, "2024-01-01", core.KindIncome, 1, "5"), tx(2, "2024-01-02", core.KindExpense, 2, "3")},
		cats: []core.Category{{ID: 1, UserID: 1, Name: "Salary", Kind: core.KindIncome}},
	}
	snap, err := NewService(store).Snapshot(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snap.Transactions) != 2 || snap.Transactions[0].ID != 2 || len(snap.Categories) != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]core.Transaction{
		tx(1, "2024-01-01", core.KindIncome, 1, "3500"),
		tx(2, "2024-01-02", core.KindExpense, 2, "120.50"),
		tx(3, "2024-01-03", core.KindExpense, 2, "79.50"),
	})
	if !s.Income.Equal(decimal.NewFromInt(3500)) || !s.Expense.Equal(decimal.NewFromInt(200)) || !s.Balance.Equal(decimal.NewFromInt(3300)) {
		t.Fatalf("unexpected summary %+v", s)
	}
}

func TestTransactionViewsUnknownCategory(t *testing.T) {
	cats := []core.Category{{ID: 1, UserID: 1, Name: "Food", Kind: core.KindExpense}}
	views := TransactionViews([]core.Transaction{
		tx(2, "2024-01-02", core.KindExpense, 1, "12.5"),
		tx(1, "2024-01-01", core.KindIncome, 77, "100"),
	}, cats, 10)
	if len(views) != 2 {
		t.Fatalf("got %d views", len(views))
	}
	if views[0].CategoryName != "Food" || views[0].SignedAmount != "-12.50" {
		t.Fatalf("unexpected first view %+v", views[0])
	}
	if views[1].CategoryName != UnknownCategory || views[1].SignedAmount != "+100.00" {
		t.Fatalf("unexpected second view %+v", views[1])
	}

	if got := TransactionViews(make([]core.Transaction, 15), nil, 10); len(got) != 10 {
		t.Fatalf("limit not applied: %d", len(got))
	}
}

func TestExpenseBreakdown(t *testing.T) {
	cats := []core.Category{
		{ID: 1, Name: "Food"}, {ID: 2, Name: "Rent"}, {ID: 3, Name: "Fun"},
	}
	txs := []core.Transaction{
		tx(1, "2024-01-01", core.KindExpense, 1, "30"),
		tx(2, "2024-01-01", core.KindExpense, 2, "900"),
		tx(3, "2024-01-02", core.KindExpense, 1, "40"),
		tx(4, "2024-01-02", core.KindIncome, 9, "5000"),
		tx(5, "2024-01-03", core.KindExpense, 3, "5"),
		tx(6, "2024-01-03", core.KindExpense, 8, "70"),
	}
	got := ExpenseBreakdown(txs, cats, 3)
	if len(got) != 3 {
		t.Fatalf("got %d totals", len(got))
	}
	if got[0].Name != "Rent" || got[1].Name != "Food" || got[2].Name != UnknownCategory {
		t.Fatalf("unexpected order %+v", got)
	}
	if !got[1].Amount.Equal(decimal.NewFromInt(70)) || !got[2].Amount.Equal(decimal.NewFromInt(70)) {
		t.Fatalf("unexpected totals %+v", got)
	}
}

func TestCategoryOptions(t *testing.T) {
	opts := CategoryOptions([]core.Category{{ID: 3, Name: "Salary", Kind: core.KindIncome}})
	if len(opts) != 1 || opts[0].Label != "Salary (income)" || opts[0].ID != 3 {
		t.Fatalf("unexpected options %+v", opts)
	}
}

package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

func newTestRepo(t *testing.T) (*SQLiteRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fintrack.db")
	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo, path
}

func mustUser(t *testing.T, repo *SQLiteRepository, email string) core.User {
	t.Helper()
	u, err := repo.InsertUser(context.Background(), core.User{Email: email, CredentialDigest: "digest"})
	if err != nil {
		t.Fatalf("insert user %s: %v", email, err)
	}
	return u
}

func date(s string) civil.Date {
	d, err := civil.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestOpenIsIdempotent(t *testing.T) {
	repo, path := newTestRepo(t)
	if repo.SchemaVersion() != SchemaVersion {
		t.Fatalf("schema version = %d, want %d", repo.SchemaVersion(), SchemaVersion)
	}
	u := mustUser(t, repo, "a@example.com")
	repo.Close()

	again, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer again.Close()

	if again.SchemaVersion() != SchemaVersion {
		t.Fatalf("schema version after reopen = %d", again.SchemaVersion())
	}
	got, err := again.UserByEmail(context.Background(), "a@example.com")
	if err != nil || got.ID != u.ID {
		t.Fatalf("user lost across reopen: got=%+v err=%v", got, err)
	}
}

func TestOpenStorageUnavailable(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}
	_, err := NewSQLiteRepository(filepath.Join(blocker, "sub", "db.sqlite"))
	if !errors.Is(err, core.ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
}

func TestInsertUserDuplicateEmail(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	mustUser(t, repo, "dup@example.com")

	_, err := repo.InsertUser(ctx, core.User{Email: " DUP@example.com", CredentialDigest: "other"})
	if !errors.Is(err, core.ErrConstraintViolation) || !errors.Is(err, core.ErrEmailTaken) {
		t.Fatalf("expected constraint violation for duplicate email, got %v", err)
	}
}

func TestInsertUserConcurrentSameEmail(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	const workers = 16
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		successes  int
		violations int
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := repo.InsertUser(ctx, core.User{Email: "race@example.com", CredentialDigest: "d"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, core.ErrConstraintViolation):
				violations++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if successes != 1 || violations != workers-1 {
		t.Fatalf("successes=%d violations=%d, want 1 and %d", successes, violations, workers-1)
	}
}

func TestUserRoundTrip(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	created := time.Date(2024, 3, 1, 10, 30, 0, 123, time.UTC)

	u, err := repo.InsertUser(ctx, core.User{Email: "rt@example.com", CredentialDigest: "abc", CreatedAt: created})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	got, err := repo.UserByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("by id: %v", err)
	}
	if got.Email != "rt@example.com" || got.CredentialDigest != "abc" || !got.CreatedAt.Equal(created) {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if _, err := repo.UserByEmail(ctx, "missing@example.com"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInsertTransactionRejectsNonPositiveAmount(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	u := mustUser(t, repo, "amt@example.com")

	for _, amount := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-10)} {
		_, err := repo.InsertTransaction(ctx, core.Transaction{
			UserID: u.ID, CategoryID: 1, Kind: core.KindExpense, Amount: amount, Date: date("2024-01-05"),
		})
		if !errors.Is(err, core.ErrConstraintViolation) || !errors.Is(err, core.ErrInvalidAmount) {
			t.Fatalf("amount %s: expected invalid amount violation, got %v", amount, err)
		}
	}

	n, err := repo.CountTransactionsByUser(ctx, u.ID)
	if err != nil || n != 0 {
		t.Fatalf("expected no rows written, got %d (err=%v)", n, err)
	}
}

func TestTransactionRoundTripAndDelete(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	u := mustUser(t, repo, "tx@example.com")

	in := core.Transaction{
		UserID:     u.ID,
		CategoryID: 42,
		Kind:       core.KindExpense,
		Amount:     decimal.RequireFromString("19.99"),
		Date:       date("2024-02-10"),
		Note:       "groceries",
	}
	saved, err := repo.InsertTransaction(ctx, in)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	got, err := repo.TransactionByID(ctx, saved.ID)
	if err != nil {
		t.Fatalf("by id: %v", err)
	}
	if got.UserID != in.UserID || got.CategoryID != in.CategoryID || got.Kind != in.Kind ||
		!got.Amount.Equal(in.Amount) || got.Date != in.Date || got.Note != in.Note {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, in)
	}

	if err := repo.DeleteTransaction(ctx, saved.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.DeleteTransaction(ctx, saved.ID); err != nil {
		t.Fatalf("second delete should be a no-op: %v", err)
	}
	if err := repo.DeleteTransaction(ctx, 999999); err != nil {
		t.Fatalf("delete of unknown id should succeed: %v", err)
	}
	txs, err := repo.TransactionsByUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, tx := range txs {
		if tx.ID == saved.ID {
			t.Fatalf("deleted transaction %d returned again", saved.ID)
		}
	}
	if _, err := repo.TransactionByID(ctx, saved.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestIDsAreMonotonicAndNeverReused(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	u := mustUser(t, repo, "ids@example.com")

	tx := core.Transaction{UserID: u.ID, CategoryID: 1, Kind: core.KindIncome, Amount: decimal.NewFromInt(1), Date: date("2024-01-01")}
	first, err := repo.InsertTransaction(ctx, tx)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := repo.DeleteTransaction(ctx, first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	second, err := repo.InsertTransaction(ctx, tx)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if second.ID <= first.ID {
		t.Fatalf("id reused or decreasing: first=%d second=%d", first.ID, second.ID)
	}
}

func TestBulkInsertIsBestEffort(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	u := mustUser(t, repo, "bulk@example.com")

	txs := []core.Transaction{
		{UserID: u.ID, CategoryID: 1, Kind: core.KindExpense, Amount: decimal.NewFromInt(10), Date: date("2024-01-01")},
		{UserID: u.ID, CategoryID: 1, Kind: core.KindExpense, Amount: decimal.Zero, Date: date("2024-01-02")},
		{UserID: u.ID, CategoryID: 1, Kind: core.KindExpense, Amount: decimal.NewFromInt(30), Date: date("2024-01-03")},
	}
	inserted, err := repo.BulkInsertTransactions(ctx, txs)
	if len(inserted) != 2 {
		t.Fatalf("expected 2 inserted, got %d", len(inserted))
	}
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected joined ErrInvalidAmount, got %v", err)
	}

	cats, err := repo.BulkInsertCategories(ctx, []core.Category{
		{UserID: u.ID, Name: "Food", Kind: core.KindExpense},
		{UserID: u.ID, Name: "Salary", Kind: core.KindIncome},
	})
	if err != nil || len(cats) != 2 || cats[0].ID >= cats[1].ID {
		t.Fatalf("unexpected bulk categories: %+v err=%v", cats, err)
	}
	byUser, err := repo.CategoriesByUser(ctx, u.ID)
	if err != nil || len(byUser) != 2 {
		t.Fatalf("categories by user: %+v err=%v", byUser, err)
	}
}

func TestTransactionsByUserIsolatesUsers(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	a := mustUser(t, repo, "a@example.com")
	b := mustUser(t, repo, "b@example.com")

	for _, u := range []core.User{a, a, b} {
		if _, err := repo.InsertTransaction(ctx, core.Transaction{
			UserID: u.ID, CategoryID: 1, Kind: core.KindExpense, Amount: decimal.NewFromInt(5), Date: date("2024-01-01"),
		}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	txs, err := repo.TransactionsByUser(ctx, a.ID)
	if err != nil || len(txs) != 2 {
		t.Fatalf("user a: %d txs err=%v", len(txs), err)
	}
}

func TestTransactionsByDateRange(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	u := mustUser(t, repo, "range@example.com")

	for _, d := range []string{"2024-01-31", "2024-02-01", "2024-02-29", "2024-03-01"} {
		if _, err := repo.InsertTransaction(ctx, core.Transaction{
			UserID: u.ID, CategoryID: 1, Kind: core.KindExpense, Amount: decimal.NewFromInt(5), Date: date(d),
		}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	txs, err := repo.TransactionsByDateRange(ctx, u.ID, date("2024-02-01"), date("2024-02-29"))
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("expected 2 february transactions, got %d", len(txs))
	}
}

func TestReplaceInsights(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	u := mustUser(t, repo, "ins@example.com")

	first := []core.Insight{{Message: "one", Level: core.LevelInfo}, {Message: "two", Level: core.LevelWarning}}
	if err := repo.ReplaceInsights(ctx, u.ID, first); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if err := repo.ReplaceInsights(ctx, u.ID, []core.Insight{{Message: "three", Level: core.LevelInfo}}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	recs, err := repo.InsightsByUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 1 || recs[0].Insight.Message != "three" {
		t.Fatalf("unexpected snapshot: %+v", recs)
	}

	err = repo.ReplaceInsights(ctx, u.ID, []core.Insight{{Message: "bad", Level: "fatal"}})
	if !errors.Is(err, core.ErrConstraintViolation) {
		t.Fatalf("expected constraint violation, got %v", err)
	}
	if recs, _ := repo.InsightsByUser(ctx, u.ID); len(recs) != 1 {
		t.Fatalf("rejected replace must not touch the snapshot, got %+v", recs)
	}

	if err := repo.DeleteInsightsByUser(ctx, u.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if recs, _ := repo.InsightsByUser(ctx, u.ID); len(recs) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", recs)
	}
}

package analytics

import (
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// mid-March 2024: current month is 2024-03, previous is 2024-02.
func fixedClock() time.Time {
	return time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)
}

func newTestEngine() *Engine {
	return NewEngine(fixedClock)
}

var testCats = []core.Category{
	{ID: 1, UserID: 1, Name: "Salary", Kind: core.KindIncome},
	{ID: 3, UserID: 1, Name: "Food", Kind: core.KindExpense},
	{ID: 4, UserID: 1, Name: "Rent", Kind: core.KindExpense},
	{ID: 5, UserID: 1, Name: "Transport", Kind: core.KindExpense},
}

func tx(date string, kind core.Kind, cat int64, amount string) core.Transaction {
	d, err := civil.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return core.Transaction{UserID: 1, CategoryID: cat, Kind: kind, Amount: decimal.RequireFromString(amount), Date: d}
}

func income(date, amount string) core.Transaction {
	return tx(date, core.KindIncome, 1, amount)
}

func expense(date string, cat int64, amount string) core.Transaction {
	return tx(date, core.KindExpense, cat, amount)
}

func messages(ins []core.Insight) string {
	parts := make([]string, len(ins))
	for i, in := range ins {
		parts[i] = string(in.Level) + ": " + in.Message
	}
	return strings.Join(parts, "\n")
}

func TestGenerateEmptyHistory(t *testing.T) {
	got := newTestEngine().Generate(nil, nil)
	if len(got) != 1 || got[0].Level != core.LevelInfo || got[0].Message != MsgWelcome {
		t.Fatalf("unexpected insights:\n%s", messages(got))
	}
}

func TestGenerateCategorySpikeAtExactlyTwentyPercent(t *testing.T) {
	txs := []core.Transaction{
		expense("2024-03-05", 3, "120"),
		expense("2024-02-05", 3, "100"),
	}
	got := newTestEngine().Generate(txs, testCats)

	var found bool
	for _, in := range got {
		if in.Message == "Food spending jumped 20% compared to last month." {
			found = in.Level == core.LevelWarning
		}
	}
	if !found {
		t.Fatalf("expected 20%% Food spike warning, got:\n%s", messages(got))
	}
}

func TestGenerateBelowThresholdNoSpike(t *testing.T) {
	txs := []core.Transaction{
		income("2024-03-01", "1000"),
		income("2024-02-01", "1000"),
		expense("2024-03-05", 3, "119"),
		expense("2024-02-05", 3, "100"),
	}
	got := newTestEngine().Generate(txs, testCats)
	for _, in := range got {
		if strings.Contains(in.Message, "jumped") {
			t.Fatalf("19%% increase must not be a spike:\n%s", messages(got))
		}
	}
}

func TestGenerateZeroPreviousCategoryNoSpike(t *testing.T) {
	txs := []core.Transaction{
		income("2024-03-01", "1000"),
		expense("2024-03-05", 3, "200"),
		expense("2024-02-05", 4, "50"),
	}
	got := newTestEngine().Generate(txs, testCats)
	for _, in := range got {
		if strings.Contains(in.Message, "Food spending jumped") {
			t.Fatalf("category without previous-month spending must not spike:\n%s", messages(got))
		}
	}
}

func TestGenerateSpikeFloorIsStrict(t *testing.T) {
	txs := []core.Transaction{
		income("2024-03-01", "1000"),
		expense("2024-03-05", 3, "50"),
		expense("2024-02-05", 3, "10"),
	}
	got := newTestEngine().Generate(txs, testCats)
	for _, in := range got {
		if strings.Contains(in.Message, "jumped") {
			t.Fatalf("total of exactly 50 is under the floor:\n%s", messages(got))
		}
	}
}

func TestGenerateCashFlow(t *testing.T) {
	t.Run("no income", func(t *testing.T) {
		got := newTestEngine().Generate([]core.Transaction{expense("2024-03-02", 3, "10")}, testCats)
		if got[0].Message != MsgNoIncome || got[0].Level != core.LevelWarning {
			t.Fatalf("unexpected first insight:\n%s", messages(got))
		}
	})
	t.Run("expenses exceed income", func(t *testing.T) {
		got := newTestEngine().Generate([]core.Transaction{
			income("2024-03-01", "800.40"),
			expense("2024-03-02", 4, "1199.60"),
		}, testCats)
		want := "Your expenses (1200) exceeded income (800) this month."
		if got[0].Message != want {
			t.Fatalf("got %q want %q", got[0].Message, want)
		}
	})
}

func TestGenerateTrend(t *testing.T) {
	t.Run("increase", func(t *testing.T) {
		got := newTestEngine().Generate([]core.Transaction{
			income("2024-03-01", "5000"),
			income("2024-02-01", "5000"),
			expense("2024-03-02", 3, "30"),
			expense("2024-03-03", 4, "120"),
			expense("2024-02-02", 3, "30"),
			expense("2024-02-03", 4, "70"),
		}, testCats)
		if got[0].Message != "Total spending increased by 50% compared to last month." || got[0].Level != core.LevelWarning {
			t.Fatalf("unexpected insights:\n%s", messages(got))
		}
	})
	t.Run("decrease", func(t *testing.T) {
		got := newTestEngine().Generate([]core.Transaction{
			income("2024-03-01", "5000"),
			income("2024-02-01", "5000"),
			expense("2024-03-02", 3, "75"),
			expense("2024-02-02", 3, "100"),
		}, testCats)
		if len(got) != 1 || got[0].Message != "Great job! Spending is down 25% compared to last month." || got[0].Level != core.LevelInfo {
			t.Fatalf("unexpected insights:\n%s", messages(got))
		}
	})
	t.Run("no previous expense skips trend", func(t *testing.T) {
		got := newTestEngine().Generate([]core.Transaction{
			income("2024-03-01", "5000"),
			income("2024-02-01", "5000"),
			expense("2024-03-02", 3, "75"),
		}, testCats)
		for _, in := range got {
			if strings.Contains(in.Message, "compared to last month") {
				t.Fatalf("trend must be skipped:\n%s", messages(got))
			}
		}
	})
}

func TestGenerateFallbacks(t *testing.T) {
	t.Run("first month", func(t *testing.T) {
		got := newTestEngine().Generate([]core.Transaction{income("2024-03-01", "100")}, testCats)
		if len(got) != 1 || got[0].Message != MsgFirstMonth {
			t.Fatalf("unexpected insights:\n%s", messages(got))
		}
	})
	t.Run("stable", func(t *testing.T) {
		got := newTestEngine().Generate([]core.Transaction{
			income("2024-03-01", "100"),
			income("2024-02-01", "100"),
		}, testCats)
		if len(got) != 1 || got[0].Message != MsgStableSpending {
			t.Fatalf("unexpected insights:\n%s", messages(got))
		}
	})
	t.Run("history outside both months", func(t *testing.T) {
		got := newTestEngine().Generate([]core.Transaction{expense("2023-06-01", 3, "10")}, testCats)
		if len(got) != 1 || got[0].Message != MsgFirstMonth {
			t.Fatalf("unexpected insights:\n%s", messages(got))
		}
	})
}

func TestGenerateOrderAndTruncation(t *testing.T) {
	txs := []core.Transaction{
		// no income this month: cash-flow warning
		expense("2024-03-02", 3, "100"),
		expense("2024-03-02", 4, "100"),
		expense("2024-03-02", 5, "100"),
		expense("2024-03-02", 77, "100"),
		expense("2024-03-02", 6, "100"),
		expense("2024-02-02", 3, "10"),
		expense("2024-02-02", 4, "10"),
		expense("2024-02-02", 5, "10"),
		expense("2024-02-02", 77, "10"),
		expense("2024-02-02", 6, "10"),
	}
	got := newTestEngine().Generate(txs, testCats)
	if len(got) != MaxInsights {
		t.Fatalf("expected %d insights, got %d:\n%s", MaxInsights, len(got), messages(got))
	}
	want := []string{
		MsgNoIncome,
		"Total spending increased by 900% compared to last month.",
		"Food spending jumped 900% compared to last month.",
		"Rent spending jumped 900% compared to last month.",
		"Transport spending jumped 900% compared to last month.",
	}
	for i, w := range want {
		if got[i].Message != w {
			t.Fatalf("position %d: got %q want %q", i, got[i].Message, w)
		}
	}
}

func TestGenerateUnknownCategoryName(t *testing.T) {
	txs := []core.Transaction{
		income("2024-03-01", "1000"),
		income("2024-02-01", "1000"),
		expense("2024-03-02", 99, "100"),
		expense("2024-02-02", 99, "50"),
	}
	got := newTestEngine().Generate(txs, testCats)
	last := got[len(got)-1]
	if last.Message != "Unknown spending jumped 100% compared to last month." {
		t.Fatalf("unexpected insights:\n%s", messages(got))
	}
}

func TestGenerateYearBoundary(t *testing.T) {
	e := NewEngine(func() time.Time { return time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC) })
	got := e.Generate([]core.Transaction{
		income("2025-01-02", "1000"),
		income("2024-12-02", "1000"),
		expense("2025-01-05", 3, "60"),
		expense("2024-12-05", 3, "120"),
	}, testCats)
	if got[0].Message != "Great job! Spending is down 50% compared to last month." {
		t.Fatalf("december must be the previous month of january:\n%s", messages(got))
	}
}

func TestMonth(t *testing.T) {
	m := Month{Year: 2024, Month: time.February}
	if m.Last() != (civil.Date{Year: 2024, Month: time.February, Day: 29}) {
		t.Fatalf("leap february last day = %v", m.Last())
	}
	if m.First() != (civil.Date{Year: 2024, Month: time.February, Day: 1}) {
		t.Fatalf("first = %v", m.First())
	}
	if (Month{Year: 2024, Month: time.January}).Prev() != (Month{Year: 2023, Month: time.December}) {
		t.Fatalf("prev of january")
	}
	if m.String() != "2024-02" {
		t.Fatalf("string = %q", m.String())
	}
}

package query

import (
	"cmp"
	"slices"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// UnknownCategory is shown for transactions whose category reference dangles.
const UnknownCategory = "Unknown"

// Summary totals a transaction list.
type Summary struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Balance decimal.Decimal `json:"balance"`
}

// TransactionView is a display row for one transaction.
type TransactionView struct {
	ID           int64      `json:"id"`
	Date         civil.Date `json:"date"`
	CategoryName string     `json:"category"`
	Kind         core.Kind  `json:"kind"`
	SignedAmount string     `json:"amount"`
	Note         string     `json:"note,omitempty"`
}

// CategoryTotal is one bar of the expense breakdown chart.
type CategoryTotal struct {
	CategoryID int64           `json:"category_id"`
	Name       string          `json:"name"`
	Amount     decimal.Decimal `json:"amount"`
}

// CategoryOption is one entry of a category picker.
type CategoryOption struct {
	ID    int64     `json:"id"`
	Label string    `json:"label"`
	Kind  core.Kind `json:"kind"`
}

func Summarize(txs []core.Transaction) Summary {
	income, expense := decimal.Zero, decimal.Zero
	for _, t := range txs {
		if t.IsIncome() {
			income = income.Add(t.Amount)
		} else {
			expense = expense.Add(t.Amount)
		}
	}
	return Summary{
		Income:  income,
		Expense: expense,
		Balance: income.Sub(expense),
	}
}

// CategoryName resolves id against cats, falling back to UnknownCategory.
func CategoryName(id int64, cats []core.Category) string {
	for _, c := range cats {
		if c.ID == id {
			return c.Name
		}
	}
	return UnknownCategory
}

// TransactionViews renders the first limit transactions of txs, keeping
// their order. A limit <= 0 renders all of them.
func TransactionViews(txs []core.Transaction, cats []core.Category, limit int) []TransactionView {
	if limit > 0 && len(txs) > limit {
		txs = txs[:limit]
	}
	names := categoryNames(cats)
	views := make([]TransactionView, 0, len(txs))
	for _, t := range txs {
		name, ok := names[t.CategoryID]
		if !ok {
			name = UnknownCategory
		}
		views = append(views, TransactionView{
			ID:           t.ID,
			Date:         t.Date,
			CategoryName: name,
			Kind:         t.Kind,
			SignedAmount: core.SignedAmount(t),
			Note:         t.Note,
		})
	}
	return views
}

// ExpenseBreakdown sums expenses per category and returns the limit largest,
// biggest first. Equal totals keep ascending category id order.
func ExpenseBreakdown(txs []core.Transaction, cats []core.Category, limit int) []CategoryTotal {
	totals := map[int64]decimal.Decimal{}
	for _, t := range txs {
		if t.Kind != core.KindExpense {
			continue
		}
		totals[t.CategoryID] = totals[t.CategoryID].Add(t.Amount)
	}

	names := categoryNames(cats)
	out := make([]CategoryTotal, 0, len(totals))
	for id, amount := range totals {
		name, ok := names[id]
		if !ok {
			name = UnknownCategory
		}
		out = append(out, CategoryTotal{CategoryID: id, Name: name, Amount: amount})
	}
	slices.SortFunc(out, func(a, b CategoryTotal) int {
		if c := b.Amount.Cmp(a.Amount); c != 0 {
			return c
		}
		return cmp.Compare(a.CategoryID, b.CategoryID)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func CategoryOptions(cats []core.Category) []CategoryOption {
	opts := make([]CategoryOption, 0, len(cats))
	for _, c := range cats {
		opts = append(opts, CategoryOption{
			ID:    c.ID,
			Label: c.Name + " (" + string(c.Kind) + ")",
			Kind:  c.Kind,
		})
	}
	return opts
}

func categoryNames(cats []core.Category) map[int64]string {
	names := make(map[int64]string, len(cats))
	for _, c := range cats {
		names[c.ID] = c.Name
	}
	return names
}

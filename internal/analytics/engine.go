// Package analytics derives short insight messages from a user's
// transaction history.
//
// The engine is a pure function of its inputs and the clock: it keeps no
// state between calls and never fails. Degenerate input (no history, zero
// denominators) yields fallback insights instead of errors.
package analytics

import (
	"fmt"
	"slices"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

const (
	// MaxInsights caps the result. Insights are kept in the order they are
	// produced, not ranked by severity.
	MaxInsights = 5

	MsgWelcome        = "Welcome! Add your first transaction to get insights."
	MsgNoIncome       = "No income recorded this month, review your cash flow."
	MsgFirstMonth     = "This is your first month of tracking. Keep going to see trends!"
	MsgStableSpending = "Your spending behavior is stable. Good job!"
)

var (
	// spikeFloor is the current-month total a category must exceed before
	// it is compared with the previous month.
	spikeFloor = decimal.NewFromInt(50)
	// spikeThreshold is the minimum percentage increase reported as a spike.
	spikeThreshold = decimal.NewFromInt(20)

	hundred = decimal.NewFromInt(100)
)

// Engine generates insights relative to the month its clock reports.
type Engine struct {
	now func() time.Time
}

// NewEngine returns an engine reading the current time from now. A nil now
// uses time.Now.
func NewEngine(now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{now: now}
}

// Generate returns at most MaxInsights insights for txs. Category names are
// resolved against cats; unknown ids render as "Unknown".
func (e *Engine) Generate(txs []core.Transaction, cats []core.Category) []core.Insight {
	if len(txs) == 0 {
		return []core.Insight{{Message: MsgWelcome, Level: core.LevelInfo}}
	}

	current := MonthOf(civil.DateOf(e.now()))
	previous := current.Prev()

	currentTxs := filterByMonth(txs, current)
	previousTxs := filterByMonth(txs, previous)

	var insights []core.Insight
	insights = append(insights, cashFlow(currentTxs)...)
	insights = append(insights, trend(currentTxs, previousTxs)...)
	insights = append(insights, categorySpikes(currentTxs, previousTxs, cats)...)

	if len(insights) == 0 {
		if len(previousTxs) == 0 {
			insights = append(insights, core.Insight{Message: MsgFirstMonth, Level: core.LevelInfo})
		} else {
			insights = append(insights, core.Insight{Message: MsgStableSpending, Level: core.LevelInfo})
		}
	}

	if len(insights) > MaxInsights {
		insights = insights[:MaxInsights]
	}
	return insights
}

func cashFlow(current []core.Transaction) []core.Insight {
	income := sumKind(current, core.KindIncome)
	expense := sumKind(current, core.KindExpense)

	switch {
	case income.IsZero() && expense.IsPositive():
		return []core.Insight{{Message: MsgNoIncome, Level: core.LevelWarning}}
	case expense.GreaterThan(income):
		return []core.Insight{{
			Message: fmt.Sprintf("Your expenses (%s) exceeded income (%s) this month.",
				expense.StringFixed(0), income.StringFixed(0)),
			Level: core.LevelWarning,
		}}
	}
	return nil
}

func trend(current, previous []core.Transaction) []core.Insight {
	expense := sumKind(current, core.KindExpense)
	prevExpense := sumKind(previous, core.KindExpense)
	if !prevExpense.IsPositive() || !expense.IsPositive() {
		return nil
	}

	diff := expense.Sub(prevExpense)
	pct := percentOf(diff, prevExpense)
	if diff.IsPositive() {
		return []core.Insight{{
			Message: fmt.Sprintf("Total spending increased by %s%% compared to last month.", pct.StringFixed(0)),
			Level:   core.LevelWarning,
		}}
	}
	return []core.Insight{{
		Message: fmt.Sprintf("Great job! Spending is down %s%% compared to last month.", pct.Abs().StringFixed(0)),
		Level:   core.LevelInfo,
	}}
}

// categorySpikes walks categories in ascending id order. A category is only
// considered when its current total exceeds spikeFloor and it had spending
// in the previous month.
func categorySpikes(current, previous []core.Transaction, cats []core.Category) []core.Insight {
	currentByCat := expensesByCategory(current)
	previousByCat := expensesByCategory(previous)

	ids := make([]int64, 0, len(currentByCat))
	for id := range currentByCat {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	var out []core.Insight
	for _, id := range ids {
		amount := currentByCat[id]
		prevAmount := previousByCat[id]
		if !amount.GreaterThan(spikeFloor) || !prevAmount.IsPositive() {
			continue
		}
		pct := percentOf(amount.Sub(prevAmount), prevAmount)
		if pct.LessThan(spikeThreshold) {
			continue
		}
		out = append(out, core.Insight{
			Message: fmt.Sprintf("%s spending jumped %s%% compared to last month.",
				categoryName(id, cats), pct.StringFixed(0)),
			Level: core.LevelWarning,
		})
	}
	return out
}

// percentOf returns part/whole*100. whole must be non-zero.
func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	return part.Mul(hundred).Div(whole)
}

func sumKind(txs []core.Transaction, kind core.Kind) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range txs {
		if t.Kind == kind {
			sum = sum.Add(t.Amount)
		}
	}
	return sum
}

func expensesByCategory(txs []core.Transaction) map[int64]decimal.Decimal {
	out := map[int64]decimal.Decimal{}
	for _, t := range txs {
		if t.Kind != core.KindExpense {
			continue
		}
		if sum, ok := out[t.CategoryID]; ok {
			out[t.CategoryID] = sum.Add(t.Amount)
		} else {
			out[t.CategoryID] = t.Amount
		}
	}
	return out
}

func filterByMonth(txs []core.Transaction, m Month) []core.Transaction {
	var out []core.Transaction
	for _, t := range txs {
		if m.Contains(t.Date) {
			out = append(out, t)
		}
	}
	return out
}

func categoryName(id int64, cats []core.Category) string {
	for _, c := range cats {
		if c.ID == id {
			return c.Name
		}
	}
	return "Unknown"
}

/*
aggregate.go - Cycle membership and per-category aggregation

PURPOSE:
  Answers "how much went where in this cycle?". Membership first selects
  the transactions of a cycle. Aggregation then sums them per category and
  per kind and compares each category with its budget.

MEMBERSHIP:
  Inclusive on both ends at day granularity. A transaction whose date could
  not be parsed is logged and skipped, never fatal.

TOTALS (by kind, magnitudes only, so a mis-signed row still counts where
its kind says it belongs):
  TotalIncome     = sum |amount| of income
  TotalExpense    = sum |amount| of expenses
  TotalInvestment = sum |amount| of investments
  TotalGain       = sum of investment gains (may be negative)
  Balance         = TotalIncome - TotalExpense
  On normalized input (NewTransaction, TransactionFromRow) expenses are the
  negative rows and income the positive non-investment ones, so summing by
  sign and summing by kind give the same totals.

BUDGET USAGE:
  Percent = 100 * spent / budget, 0 when the budget is 0.
  Status:  < 80   -> ok
           80-100 -> warning
           > 100  -> over

Aggregation is pure: same inputs, same output, inputs never mutated.
*/
package budget

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var (
	hundred          = decimal.NewFromInt(100)
	warningThreshold = decimal.NewFromInt(80)
)

// =============================================================================
// MEMBERSHIP
// =============================================================================

// TransactionsInCycle returns the transactions dated inside c, in input
// order. log may be nil.
func TransactionsInCycle(txs []Transaction, c Cycle, log logrus.FieldLogger) []Transaction {
	if log == nil {
		log = logrus.StandardLogger()
	}
	var out []Transaction
	for _, tx := range txs {
		if !tx.HasValidDate() {
			log.WithFields(logrus.Fields{
				"transaction_id": tx.ID,
				"raw_date":       tx.RawDate,
				"cycle":          c.String(),
			}).Warn("skipping transaction with invalid date")
			continue
		}
		if c.Contains(tx.Date) {
			out = append(out, tx)
		}
	}
	return out
}

// =============================================================================
// BUDGET STATUS
// =============================================================================

type BudgetStatus string

const (
	StatusOK      BudgetStatus = "ok"
	StatusWarning BudgetStatus = "warning"
	StatusOver    BudgetStatus = "over"
)

// PercentOf returns 100*spent/budget rounded to two places, or 0 when the
// budget is zero.
func PercentOf(spent, budget Amount) decimal.Decimal {
	if budget.IsZero() {
		return decimal.Zero
	}
	return spent.Value.Abs().Mul(hundred).Div(budget.Value.Abs()).Round(2)
}

func StatusFor(percent decimal.Decimal) BudgetStatus {
	switch {
	case percent.LessThan(warningThreshold):
		return StatusOK
	case percent.LessThanOrEqual(hundred):
		return StatusWarning
	default:
		return StatusOver
	}
}

// =============================================================================
// SUMMARY
// =============================================================================

type CategoryTotal struct {
	Name    string
	Kind    Kind
	Spent   Amount
	Budget  Amount
	Percent decimal.Decimal
	Status  BudgetStatus
}

type Summary struct {
	PerCategory     []CategoryTotal
	TotalIncome     Amount
	TotalExpense    Amount
	TotalInvestment Amount
	TotalGain       Amount
	Balance         Amount
}

// Category returns the total for name+kind, if present.
func (s Summary) Category(name string, kind Kind) (CategoryTotal, bool) {
	key := newCategoryKey(name, kind)
	for _, ct := range s.PerCategory {
		if newCategoryKey(ct.Name, ct.Kind) == key {
			return ct, true
		}
	}
	return CategoryTotal{}, false
}

// Aggregate sums txs per category and kind. Every category in cats appears
// in the result; categories that only appear on transactions are added with
// a zero budget.
func Aggregate(txs []Transaction, cats []Category) Summary {
	spent := make(map[categoryKey]Amount)
	names := make(map[categoryKey]string)
	budgets := make(map[categoryKey]Amount)
	var order []categoryKey

	track := func(key categoryKey, name string) {
		if _, ok := names[key]; !ok {
			names[key] = name
			order = append(order, key)
		}
	}

	for _, cat := range cats {
		key := newCategoryKey(cat.Name, cat.Kind)
		track(key, strings.TrimSpace(cat.Name))
		budgets[key] = cat.Budget
	}

	s := Summary{
		TotalIncome:     ZeroAmount(),
		TotalExpense:    ZeroAmount(),
		TotalInvestment: ZeroAmount(),
		TotalGain:       ZeroAmount(),
	}

	for _, tx := range txs {
		magnitude := tx.Amount.Abs()
		key := newCategoryKey(tx.Category, tx.Kind())
		track(key, strings.TrimSpace(tx.Category))
		spent[key] = spent[key].Add(magnitude)

		switch tx.Kind() {
		case KindIncome:
			s.TotalIncome = s.TotalIncome.Add(magnitude)
		case KindExpense:
			s.TotalExpense = s.TotalExpense.Add(magnitude)
		case KindInvestment:
			s.TotalInvestment = s.TotalInvestment.Add(magnitude)
			if g := tx.Gain(); g != nil {
				s.TotalGain = s.TotalGain.Add(*g)
			}
		}
	}
	s.Balance = s.TotalIncome.Sub(s.TotalExpense)

	s.PerCategory = make([]CategoryTotal, 0, len(order))
	for _, key := range order {
		total, budget := spent[key], budgets[key]
		percent := PercentOf(total, budget)
		s.PerCategory = append(s.PerCategory, CategoryTotal{
			Name:    names[key],
			Kind:    key.kind,
			Spent:   total,
			Budget:  budget,
			Percent: percent,
			Status:  StatusFor(percent),
		})
	}
	sortCategoryTotals(s.PerCategory)
	return s
}

func sortCategoryTotals(totals []CategoryTotal) {
	sort.SliceStable(totals, func(i, j int) bool {
		if totals[i].Kind != totals[j].Kind {
			return totals[i].Kind.order() < totals[j].Kind.order()
		}
		return strings.ToLower(totals[i].Name) < strings.ToLower(totals[j].Name)
	})
}

/*
simulation.go - Annual budget simulation

PURPOSE:
  Users plan a year ahead: for each month, how much they expect per
  category. The plan lives apart from real transactions until it is
  compared with them.

COMPARISON:
  Month m of the plan is compared with the cycle that STARTS in month m
  (boundary day 25: plan "March" = cycle Mar 25 - Apr 24). Actuals include
  installment projections, like every other cycle view.

SEE ALSO:
  - snapshot.go: BuildSnapshot (actuals per cycle)
*/
package budget

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// SimulationEntry is the planned amount for one category in one month.
type SimulationEntry struct {
	UserID       UserID
	Year         int
	Month        int // 1..12
	CategoryName string
	Kind         Kind
	Planned      Amount
}

func (e SimulationEntry) Validate() error {
	if e.Month < 1 || e.Month > 12 {
		return &ValidationError{Field: "month", Reason: fmt.Sprintf("%d is outside 1..12", e.Month), Err: ErrInvalidMonth}
	}
	if strings.TrimSpace(e.CategoryName) == "" {
		return &ValidationError{Field: "category", Reason: "must not be empty", Err: ErrEmptyCategory}
	}
	if _, err := ParseKind(string(e.Kind)); err != nil {
		return err
	}
	return nil
}

// =============================================================================
// PLAN
// =============================================================================

type CategoryPlan struct {
	Name    string
	Kind    Kind
	Planned Amount
}

type MonthPlan struct {
	Month      time.Month
	Income     Amount
	Expense    Amount
	Investment Amount
	Balance    Amount
	Categories []CategoryPlan
}

type Plan struct {
	Year   int
	Months [12]MonthPlan
	Totals MonthPlan // Month is zero
}

// BuildPlan groups entries of year by month. Entries of other years and
// invalid entries are ignored.
func BuildPlan(year int, entries []SimulationEntry) Plan {
	p := Plan{Year: year, Totals: emptyMonthPlan(0)}
	for m := range p.Months {
		p.Months[m] = emptyMonthPlan(time.Month(m + 1))
	}

	for _, e := range entries {
		if e.Year != year || e.Validate() != nil {
			continue
		}
		mp := &p.Months[e.Month-1]
		planned := e.Planned.Abs()
		mp.Categories = append(mp.Categories, CategoryPlan{Name: strings.TrimSpace(e.CategoryName), Kind: e.Kind, Planned: planned})
		addPlanned(mp, e.Kind, planned)
		addPlanned(&p.Totals, e.Kind, planned)
	}

	for m := range p.Months {
		mp := &p.Months[m]
		mp.Balance = mp.Income.Sub(mp.Expense)
		sort.SliceStable(mp.Categories, func(i, j int) bool {
			if mp.Categories[i].Kind != mp.Categories[j].Kind {
				return mp.Categories[i].Kind.order() < mp.Categories[j].Kind.order()
			}
			return strings.ToLower(mp.Categories[i].Name) < strings.ToLower(mp.Categories[j].Name)
		})
	}
	p.Totals.Balance = p.Totals.Income.Sub(p.Totals.Expense)
	return p
}

func emptyMonthPlan(m time.Month) MonthPlan {
	return MonthPlan{Month: m, Income: ZeroAmount(), Expense: ZeroAmount(), Investment: ZeroAmount(), Balance: ZeroAmount()}
}

func addPlanned(mp *MonthPlan, kind Kind, amount Amount) {
	switch kind {
	case KindIncome:
		mp.Income = mp.Income.Add(amount)
	case KindExpense:
		mp.Expense = mp.Expense.Add(amount)
	case KindInvestment:
		mp.Investment = mp.Investment.Add(amount)
	}
}

// =============================================================================
// PLAN VS ACTUAL
// =============================================================================

// PlanComparison puts one planned month next to the actuals of its cycle.
// Variances are actual - planned.
type PlanComparison struct {
	Month              time.Month
	Cycle              Cycle
	Planned            MonthPlan
	Actual             Summary
	IncomeVariance     Amount
	ExpenseVariance    Amount
	InvestmentVariance Amount
}

// ComparePlan compares every month of plan with the cycle that starts in
// that month.
func ComparePlan(plan Plan, cfg CycleConfig, stored []Transaction, cats []Category, log logrus.FieldLogger) []PlanComparison {
	out := make([]PlanComparison, 0, len(plan.Months))
	for _, mp := range plan.Months {
		c := cfg.CycleStartingIn(plan.Year, mp.Month)
		snap := BuildSnapshotForCycle(c, stored, cats, log)
		out = append(out, PlanComparison{
			Month:              mp.Month,
			Cycle:              c,
			Planned:            mp,
			Actual:             snap.Summary,
			IncomeVariance:     snap.Summary.TotalIncome.Sub(mp.Income),
			ExpenseVariance:    snap.Summary.TotalExpense.Sub(mp.Expense),
			InvestmentVariance: snap.Summary.TotalInvestment.Sub(mp.Investment),
		})
	}
	return out
}

/*
Package report renders and delivers the per-cycle budget report.

PURPOSE:
  The same text a user receives on a messaging channel: a fixed set of
  emoji-prefixed sections describing one cycle.

LAYOUT:
  📊 header with the cycle label and dates
  💰 summary: income, expenses, investments, balance (and gains, if any)
  📂 one line per expense category with a budget or spending:
       🟢 under 80% of budget
       🟡 80% to 100%
       🔴 over 100%
  💳 installments projected into the cycle (omitted when none)

SEE ALSO:
  - budget/aggregate.go: StatusFor thresholds
  - dispatcher.go:       scheduled delivery
*/
package report

import (
	"fmt"
	"strings"

	"github.com/warp/budget-engine/budget"
)

// Options tunes Format.
type Options struct {
	Locale   budget.Locale
	Currency string // prefix, e.g. "R$"
}

func (o Options) withDefaults() Options {
	if o.Locale == "" {
		o.Locale = budget.LocalePtBR
	}
	if o.Currency == "" {
		o.Currency = "R$"
	}
	return o
}

type phrases struct {
	title, period, to, summary, income, expense, investment, gains, balance,
	categories, noCategories, of, installments string
}

var phrasebook = map[budget.Locale]phrases{
	budget.LocalePtBR: {
		title: "Relatório do ciclo", period: "Período", to: "a",
		summary: "Resumo", income: "Receitas", expense: "Despesas",
		investment: "Investimentos", gains: "Rendimentos", balance: "Saldo",
		categories: "Categorias", noCategories: "Nenhuma despesa no ciclo",
		of: "de", installments: "Parcelas do ciclo",
	},
	budget.LocaleEnUS: {
		title: "Cycle report", period: "Period", to: "to",
		summary: "Summary", income: "Income", expense: "Expenses",
		investment: "Investments", gains: "Gains", balance: "Balance",
		categories: "Categories", noCategories: "No expenses this cycle",
		of: "of", installments: "Installments this cycle",
	},
}

// StatusEmoji maps a budget status to its traffic light.
func StatusEmoji(s budget.BudgetStatus) string {
	switch s {
	case budget.StatusWarning:
		return "🟡"
	case budget.StatusOver:
		return "🔴"
	default:
		return "🟢"
	}
}

// Format renders the report of one cycle snapshot.
func Format(snap budget.CycleSnapshot, opts Options) string {
	opts = opts.withDefaults()
	p, ok := phrasebook[opts.Locale]
	if !ok {
		p = phrasebook[budget.LocalePtBR]
	}
	money := func(a budget.Amount) string { return opts.Currency + " " + a.String() }

	var b strings.Builder
	fmt.Fprintf(&b, "📊 %s %s\n", p.title, snap.Cycle.Label)
	fmt.Fprintf(&b, "📅 %s: %s %s %s\n", p.period, snap.Cycle.Start, p.to, snap.Cycle.End)

	s := snap.Summary
	fmt.Fprintf(&b, "\n💰 %s\n", p.summary)
	fmt.Fprintf(&b, "• %s: %s\n", p.income, money(s.TotalIncome))
	fmt.Fprintf(&b, "• %s: %s\n", p.expense, money(s.TotalExpense))
	fmt.Fprintf(&b, "• %s: %s\n", p.investment, money(s.TotalInvestment))
	if !s.TotalGain.IsZero() {
		fmt.Fprintf(&b, "• %s: %s\n", p.gains, money(s.TotalGain))
	}
	fmt.Fprintf(&b, "• %s: %s\n", p.balance, money(s.Balance))

	fmt.Fprintf(&b, "\n📂 %s\n", p.categories)
	listed := 0
	for _, ct := range s.PerCategory {
		if ct.Kind != budget.KindExpense || (ct.Budget.IsZero() && ct.Spent.IsZero()) {
			continue
		}
		listed++
		if ct.Budget.IsZero() {
			fmt.Fprintf(&b, "%s %s: %s\n", StatusEmoji(ct.Status), ct.Name, money(ct.Spent))
			continue
		}
		fmt.Fprintf(&b, "%s %s: %s %s %s (%s%%)\n",
			StatusEmoji(ct.Status), ct.Name, money(ct.Spent), p.of, money(ct.Budget), ct.Percent.StringFixed(0))
	}
	if listed == 0 {
		fmt.Fprintf(&b, "%s\n", p.noCategories)
	}

	if len(snap.Projected) > 0 {
		fmt.Fprintf(&b, "\n💳 %s\n", p.installments)
		for _, pr := range snap.Projected {
			fmt.Fprintf(&b, "• %s %s: %s\n", pr.Date, strings.TrimSpace(pr.Description), money(pr.Amount.Abs()))
		}
	}
	return b.String()
}

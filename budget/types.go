/*
Package budget provides the financial-cycle engine.

PURPOSE:
  Everything needed to answer "what happened in this cycle?" for one user:
  cycle boundaries, installment projections, cycle membership and the
  per-category aggregation used by the dashboard and the cycle report.
  The package is pure: no I/O, no wall clock, no shared state. Callers
  pass immutable snapshots in and get values back.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: money, backed by decimal.Decimal
  - Kind / Variant: expense | income | investment as a tagged union
  - Transaction: a stored financial event
  - Projection: a synthesized future installment of a stored transaction

SIGN CONVENTION:
  Expenses are negative, income and investments are positive. Rows coming
  from the datastore do not always follow it, so Normalized() re-applies
  the convention from the kind and aggregation only looks at magnitudes.

INSTALLMENT CONVENTION:
  Transaction.Amount is the amount of ONE installment. A purchase split
  into 3 installments of 100 has Amount=-100, Installments=3 and a total
  cost of 300 (see TotalCost).

SEE ALSO:
  - cycle.go: Cycle calculator
  - installment.go: Installment projector
  - aggregate.go: Cycle membership and aggregation
*/
package budget

import (
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Money
// =============================================================================

type Amount struct {
	Value decimal.Decimal
}

func NewAmount(value float64) Amount        { return Amount{Value: decimal.NewFromFloat(value)} }
func NewAmountFromInt(value int64) Amount   { return Amount{Value: decimal.NewFromInt(value)} }
func AmountOf(d decimal.Decimal) Amount     { return Amount{Value: d} }
func ZeroAmount() Amount                    { return Amount{Value: decimal.Zero} }

// ParseAmount parses a decimal string such as "-123.45".
func ParseAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Amount{}, err
	}
	return Amount{Value: d}, nil
}

func (a Amount) Add(b Amount) Amount          { return Amount{Value: a.Value.Add(b.Value)} }
func (a Amount) Sub(b Amount) Amount          { return Amount{Value: a.Value.Sub(b.Value)} }
func (a Amount) Mul(s decimal.Decimal) Amount { return Amount{Value: a.Value.Mul(s)} }
func (a Amount) Neg() Amount                  { return Amount{Value: a.Value.Neg()} }
func (a Amount) Abs() Amount                  { return Amount{Value: a.Value.Abs()} }
func (a Amount) IsZero() bool                 { return a.Value.IsZero() }
func (a Amount) IsNegative() bool             { return a.Value.IsNegative() }
func (a Amount) Equal(b Amount) bool          { return a.Value.Equal(b.Value) }
func (a Amount) String() string               { return a.Value.StringFixed(2) }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UserID string
type TransactionID string

// =============================================================================
// KIND - expense | income | investment
// =============================================================================

type Kind string

const (
	KindExpense    Kind = "expense"
	KindIncome     Kind = "income"
	KindInvestment Kind = "investment"
)

// Kinds lists every kind in display order.
var Kinds = []Kind{KindIncome, KindExpense, KindInvestment}

// ParseKind accepts the English names and the datastore names
// ("despesa", "receita", "investimento").
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "expense", "despesa":
		return KindExpense, nil
	case "income", "receita":
		return KindIncome, nil
	case "investment", "investimento":
		return KindInvestment, nil
	}
	return "", &ValidationError{Field: "kind", Reason: "unknown kind " + s, Err: ErrInvalidKind}
}

// RowName returns the datastore name of the kind.
func (k Kind) RowName() string {
	switch k {
	case KindExpense:
		return "despesa"
	case KindIncome:
		return "receita"
	case KindInvestment:
		return "investimento"
	}
	return string(k)
}

func (k Kind) order() int {
	for i, kk := range Kinds {
		if kk == k {
			return i
		}
	}
	return len(Kinds)
}

// =============================================================================
// VARIANT - Tagged union over Kind
// =============================================================================

// Variant carries the fields that only make sense for one kind.
// Implemented by Expense, Income and Investment only.
type Variant interface {
	Kind() Kind
	sealed()
}

type Expense struct{}

type Income struct{}

// Investment optionally records the gain (or loss, when negative) realised
// on the position.
type Investment struct {
	Gain *Amount
}

func (Expense) Kind() Kind    { return KindExpense }
func (Income) Kind() Kind     { return KindIncome }
func (Investment) Kind() Kind { return KindInvestment }

func (Expense) sealed()    {}
func (Income) sealed()     {}
func (Investment) sealed() {}

// VariantFor builds the variant for kind. A gain is only accepted for
// investments.
func VariantFor(kind Kind, gain *Amount) (Variant, error) {
	switch kind {
	case KindExpense, KindIncome:
		if gain != nil && !gain.IsZero() {
			return nil, &ValidationError{Field: "gain", Reason: "only investments carry a gain", Err: ErrGainOnNonInvestment}
		}
		if kind == KindExpense {
			return Expense{}, nil
		}
		return Income{}, nil
	case KindInvestment:
		return Investment{Gain: gain}, nil
	}
	return nil, &ValidationError{Field: "kind", Reason: "unknown kind " + string(kind), Err: ErrInvalidKind}
}

// =============================================================================
// TRANSACTION - Stored financial event
// =============================================================================

type Transaction struct {
	ID     TransactionID
	UserID UserID

	// Date is zero when RawDate could not be parsed. Such transactions are
	// kept (they are still editable) but never belong to a cycle.
	Date    TimePoint
	RawDate string

	Category     string
	Amount       Amount
	Installments int
	SpentBy      string
	Description  string
	Variant      Variant
}

// TransactionInput holds the fields accepted by NewTransaction.
type TransactionInput struct {
	ID           TransactionID
	UserID       UserID
	Date         string
	Category     string
	Amount       Amount
	Installments int
	SpentBy      string
	Description  string
	Kind         Kind
	Gain         *Amount
}

// NewTransaction validates the input and returns a transaction with the
// sign convention applied.
func NewTransaction(in TransactionInput) (Transaction, error) {
	if strings.TrimSpace(in.Category) == "" {
		return Transaction{}, &ValidationError{Field: "category", Reason: "must not be empty", Err: ErrEmptyCategory}
	}
	installments := in.Installments
	if installments == 0 {
		installments = 1
	}
	if installments < 1 {
		return Transaction{}, &ValidationError{Field: "installments", Reason: "must be >= 1", Err: ErrInvalidInstallments}
	}
	date, err := ParseDate(in.Date)
	if err != nil {
		return Transaction{}, err
	}
	variant, err := VariantFor(in.Kind, in.Gain)
	if err != nil {
		return Transaction{}, err
	}

	tx := Transaction{
		ID:           in.ID,
		UserID:       in.UserID,
		Date:         date,
		RawDate:      date.String(),
		Category:     strings.TrimSpace(in.Category),
		Amount:       in.Amount,
		Installments: installments,
		SpentBy:      in.SpentBy,
		Description:  in.Description,
		Variant:      variant,
	}
	return tx.Normalized(), nil
}

// Kind returns the transaction kind. A transaction without a variant is
// treated as an expense.
func (t Transaction) Kind() Kind {
	if t.Variant == nil {
		return KindExpense
	}
	return t.Variant.Kind()
}

// Gain returns the investment gain, or nil for other kinds.
func (t Transaction) Gain() *Amount {
	if inv, ok := t.Variant.(Investment); ok {
		return inv.Gain
	}
	return nil
}

// HasValidDate reports whether the transaction can be placed in a cycle.
func (t Transaction) HasValidDate() bool { return !t.Date.IsZero() }

// Normalized returns a copy with the sign convention applied.
func (t Transaction) Normalized() Transaction {
	magnitude := t.Amount.Abs()
	if t.Kind() == KindExpense {
		t.Amount = magnitude.Neg()
	} else {
		t.Amount = magnitude
	}
	return t
}

// =============================================================================
// PROJECTION - Synthesized future installment
// =============================================================================

// Projection is a derived, read-only occurrence of a stored multi-installment
// transaction. It is never persisted. Transaction.ID holds the synthetic id.
type Projection struct {
	Transaction
	ParentID TransactionID
	Index    int // 2..Total
	Total    int
}

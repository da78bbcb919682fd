/*
installment.go - Installment projector

PURPOSE:
  A purchase paid in N installments is stored ONCE, dated on the first
  installment. The remaining N-1 occurrences are synthesized on demand so
  that later cycles show what is already committed.

RULES:
  - Installments <= 1 or an already-projected input: nothing to project.
  - Occurrence i (2..N) is dated original + (i-1) months, with the day
    clamped to the month's last day (Jan 31 -> Feb 28/29 -> Mar 31).
  - Projections copy every field of the parent except id, date and
    description. Each carries the same per-installment amount.
  - Occurrence 1 is the stored record. It is never projected, whatever
    cycle is being computed, so a cycle never counts it twice.

IDENTIFIERS:
  projection-{parentId}-installment-{i}

SEE ALSO:
  - types.go: Projection, installment amount convention
  - snapshot.go: Merges stored and projected sequences for display
*/
package budget

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const projectionIDPrefix = "projection-"

// ProjectionID builds the synthetic id of occurrence index of parent.
func ProjectionID(parent TransactionID, index int) TransactionID {
	return TransactionID(fmt.Sprintf("%s%s-installment-%d", projectionIDPrefix, parent, index))
}

// IsProjectionID reports whether id was produced by ProjectionID.
func IsProjectionID(id TransactionID) bool {
	return strings.HasPrefix(string(id), projectionIDPrefix)
}

// ProjectInstallments returns occurrences 2..Installments of tx.
func ProjectInstallments(tx Transaction) []Projection {
	if tx.Installments <= 1 || IsProjectionID(tx.ID) || !tx.HasValidDate() {
		return nil
	}

	out := make([]Projection, 0, tx.Installments-1)
	for i := 2; i <= tx.Installments; i++ {
		occurrence := tx
		occurrence.ID = ProjectionID(tx.ID, i)
		occurrence.Date = tx.Date.AddMonthsClamped(i - 1)
		occurrence.RawDate = occurrence.Date.String()
		occurrence.Description = installmentDescription(tx.Description, i, tx.Installments)

		out = append(out, Projection{
			Transaction: occurrence,
			ParentID:    tx.ID,
			Index:       i,
			Total:       tx.Installments,
		})
	}
	return out
}

// ProjectionsInCycle returns the projected occurrences of stored
// transactions that fall inside c, ordered by date.
func ProjectionsInCycle(stored []Transaction, c Cycle) []Projection {
	var out []Projection
	for _, tx := range stored {
		// Occurrences are monthly, so a parent dated after the cycle or more
		// than Installments months before it cannot land inside.
		if !tx.HasValidDate() || tx.Date.After(c.End) {
			continue
		}
		if monthIndex(c.Start)-monthIndex(tx.Date) > tx.Installments {
			continue
		}
		for _, p := range ProjectInstallments(tx) {
			if c.Contains(p.Date) {
				out = append(out, p)
			}
		}
	}
	sortProjections(out)
	return out
}

// TotalCost is the full cost of a purchase: |amount| x installments.
func TotalCost(tx Transaction) Amount {
	n := tx.Installments
	if n < 1 {
		n = 1
	}
	return tx.Amount.Abs().Mul(decimal.NewFromInt(int64(n)))
}

func installmentDescription(desc string, index, total int) string {
	suffix := fmt.Sprintf("(Installment %d/%d)", index, total)
	if strings.TrimSpace(desc) == "" {
		return suffix
	}
	return desc + " " + suffix
}

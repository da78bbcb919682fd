package budget

import (
	"sort"

	"github.com/sirupsen/logrus"
)

// =============================================================================
// CYCLE SNAPSHOT - Everything a view needs for one cycle
// =============================================================================

// CycleSnapshot keeps stored and projected transactions apart. They are
// merged only by Entries(), for display.
type CycleSnapshot struct {
	Cycle     Cycle
	Stored    []Transaction
	Projected []Projection
	Summary   Summary
}

// BuildSnapshot computes the snapshot of the cycle containing ref.
func BuildSnapshot(cfg CycleConfig, stored []Transaction, cats []Category, ref TimePoint, log logrus.FieldLogger) CycleSnapshot {
	return BuildSnapshotForCycle(cfg.CycleFor(ref), stored, cats, log)
}

// BuildSnapshotForCycle selects the members of c, projects installments of
// every stored transaction into c and aggregates both.
func BuildSnapshotForCycle(c Cycle, stored []Transaction, cats []Category, log logrus.FieldLogger) CycleSnapshot {
	members := TransactionsInCycle(stored, c, log)
	projected := ProjectionsInCycle(stored, c)

	all := make([]Transaction, 0, len(members)+len(projected))
	all = append(all, members...)
	for _, p := range projected {
		all = append(all, p.Transaction)
	}

	return CycleSnapshot{
		Cycle:     c,
		Stored:    members,
		Projected: projected,
		Summary:   Aggregate(all, cats),
	}
}

// =============================================================================
// ENTRIES - Presentation boundary
// =============================================================================

// Entry is one line of a cycle listing.
type Entry struct {
	Transaction
	Projected bool
	ParentID  TransactionID // set on projections
	Index     int           // 1 for stored transactions
	Total     int
}

// Entries merges stored and projected transactions, ordered by date then id.
func (s CycleSnapshot) Entries() []Entry {
	out := make([]Entry, 0, len(s.Stored)+len(s.Projected))
	for _, tx := range s.Stored {
		out = append(out, Entry{Transaction: tx, Index: 1, Total: tx.Installments})
	}
	for _, p := range s.Projected {
		out = append(out, Entry{
			Transaction: p.Transaction,
			Projected:   true,
			ParentID:    p.ParentID,
			Index:       p.Index,
			Total:       p.Total,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func sortProjections(ps []Projection) {
	sort.SliceStable(ps, func(i, j int) bool {
		if !ps[i].Date.Equal(ps[j].Date) {
			return ps[i].Date.Before(ps[j].Date)
		}
		return ps[i].ID < ps[j].ID
	})
}

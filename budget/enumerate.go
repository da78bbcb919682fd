package budget

import "sort"

// DefaultPadMonths is how far before the oldest and after the newest
// transaction the cycle picker reaches.
const DefaultPadMonths = 6

// =============================================================================
// CYCLE ENUMERATOR
// =============================================================================

// EnumerateForTransactions returns every cycle from padMonths before the
// oldest transaction to padMonths after the newest one, ascending and
// de-duplicated by start month. Transactions without a valid date are
// ignored. Returns nil when no transaction has a valid date.
func (cc CycleConfig) EnumerateForTransactions(txs []Transaction, padMonths int) []Cycle {
	var oldest, newest TimePoint
	found := false
	for _, tx := range txs {
		if !tx.HasValidDate() {
			continue
		}
		if !found || tx.Date.Before(oldest) {
			oldest = tx.Date
		}
		if !found || tx.Date.After(newest) {
			newest = tx.Date
		}
		found = true
	}
	if !found {
		return nil
	}
	if padMonths < 0 {
		padMonths = 0
	}
	return cc.enumerate(oldest.AddMonthsClamped(-padMonths), newest.AddMonthsClamped(padMonths))
}

// EnumerateWindow returns the cycles from today-monthsBefore to
// today+monthsAfter.
func (cc CycleConfig) EnumerateWindow(today TimePoint, monthsBefore, monthsAfter int) []Cycle {
	if monthsBefore < 0 {
		monthsBefore = 0
	}
	if monthsAfter < 0 {
		monthsAfter = 0
	}
	return cc.enumerate(today.AddMonthsClamped(-monthsBefore), today.AddMonthsClamped(monthsAfter))
}

// enumerate walks month by month from `from` to `to`. Steps are taken from
// the origin (from + i months) so clamping in short months does not drift
// the day-of-month.
func (cc CycleConfig) enumerate(from, to TimePoint) []Cycle {
	seen := make(map[CycleKey]bool)
	var cycles []Cycle

	add := func(c Cycle) {
		if seen[c.Key()] {
			return
		}
		seen[c.Key()] = true
		cycles = append(cycles, c)
	}

	for i := 0; ; i++ {
		d := from.AddMonthsClamped(i)
		if d.After(to) {
			break
		}
		add(cc.CycleFor(d))
	}
	add(cc.CycleFor(to))

	sort.Slice(cycles, func(i, j int) bool {
		return cycles[i].Start.Before(cycles[j].Start)
	})
	return cycles
}

package budget_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/budget-engine/budget"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func day(s string) budget.TimePoint { return budget.MustParseDate(s) }

func cfg25() budget.CycleConfig {
	return budget.CycleConfig{BoundaryDay: 25, Locale: budget.LocalePtBR}
}

// =============================================================================
// CYCLE CALCULATOR
// =============================================================================

func TestCycleFor_OnOrAfterBoundary_StartsThisMonth(t *testing.T) {
	c := cfg25().CycleFor(day("2025-03-26"))

	assert.Equal(t, "2025-03-25", c.Start.String())
	assert.Equal(t, "2025-04-24", c.End.String())
	assert.Equal(t, "mar - abr 2025", c.Label)
}

func TestCycleFor_BoundaryDayItself_StartsThisMonth(t *testing.T) {
	c := cfg25().CycleFor(day("2025-03-25"))
	assert.Equal(t, "2025-03-25", c.Start.String())
}

func TestCycleFor_BeforeBoundary_StartsPreviousMonth(t *testing.T) {
	c := cfg25().CycleFor(day("2025-03-20"))

	assert.Equal(t, "2025-02-25", c.Start.String())
	assert.Equal(t, "2025-03-24", c.End.String())
	assert.Equal(t, "fev - mar 2025", c.Label)
}

func TestCycleFor_DecemberRollsIntoNextYear(t *testing.T) {
	// GIVEN: Dec 30 with boundary 25
	// THEN: Cycle is Dec 25 -> Jan 24 of the NEXT year
	c := cfg25().CycleFor(day("2025-12-30"))

	assert.Equal(t, "2025-12-25", c.Start.String())
	assert.Equal(t, "2026-01-24", c.End.String())
	assert.Equal(t, "dez 2025 - jan 2026", c.Label)
}

func TestCycleFor_JanuaryBeforeBoundary_StartsInPreviousYear(t *testing.T) {
	c := cfg25().CycleFor(day("2026-01-10"))

	assert.Equal(t, "2025-12-25", c.Start.String())
	assert.Equal(t, "2026-01-24", c.End.String())
}

func TestCycleFor_BoundaryOne_IsCalendarMonth(t *testing.T) {
	cfg := budget.CycleConfig{BoundaryDay: 1, Locale: budget.LocaleEnUS}
	c := cfg.CycleFor(day("2024-02-15"))

	assert.Equal(t, "2024-02-01", c.Start.String())
	assert.Equal(t, "2024-02-29", c.End.String())
	assert.Equal(t, "Feb 2024", c.Label)
}

func TestCycleFor_EnglishLabel(t *testing.T) {
	cfg := budget.CycleConfig{BoundaryDay: 7, Locale: budget.LocaleEnUS}
	c := cfg.CycleFor(day("2025-05-07"))

	assert.Equal(t, "2025-05-07", c.Start.String())
	assert.Equal(t, "2025-06-06", c.End.String())
	assert.Equal(t, "May - Jun 2025", c.Label)
}

func TestCycleFor_ContainsItsDate_AllDaysOfTwoYears(t *testing.T) {
	// Property: start <= d <= end for every day and several boundaries.
	for _, boundary := range []int{1, 7, 21, 25, 28} {
		cfg := budget.CycleConfig{BoundaryDay: boundary}
		for d := day("2024-01-01"); d.Before(day("2026-01-01")); d = d.AddDays(1) {
			c := cfg.CycleFor(d)
			if !c.Contains(d) {
				t.Fatalf("boundary %d: %s not in %s", boundary, d, c)
			}
		}
	}
}

func TestCycles_TileWithoutGapsOrOverlaps(t *testing.T) {
	// Property: end + 1 day == start of the next cycle.
	for _, boundary := range []int{1, 7, 21, 25, 28} {
		cfg := budget.CycleConfig{BoundaryDay: boundary}
		c := cfg.CycleFor(day("2024-01-15"))
		for i := 0; i < 30; i++ {
			next := cfg.Next(c)
			require.True(t, c.End.AddDays(1).Equal(next.Start),
				"boundary %d: %s then %s", boundary, c, next)

			// d + 1 month lands in the adjacent cycle
			d := c.Start.AddDays(3)
			assert.Equal(t, next.Start, cfg.CycleFor(d.AddMonthsClamped(1)).Start)

			assert.Equal(t, c.Start, cfg.Previous(next).Start)
			c = next
		}
	}
}

func TestCycle_Contains_InclusiveBounds(t *testing.T) {
	c := cfg25().CycleFor(day("2025-03-26"))

	assert.True(t, c.Contains(day("2025-03-25")))
	assert.True(t, c.Contains(day("2025-04-24")))
	assert.False(t, c.Contains(day("2025-04-25")))
	assert.False(t, c.Contains(day("2025-03-24")))
	assert.False(t, c.Contains(budget.TimePoint{}))
}

func TestCycleConfig_Validate(t *testing.T) {
	assert.NoError(t, cfg25().Validate())

	for _, bad := range []int{0, -1, 29, 31} {
		err := budget.CycleConfig{BoundaryDay: bad}.Validate()
		require.Error(t, err)
		assert.True(t, errors.Is(err, budget.ErrInvalidBoundaryDay))
		assert.True(t, budget.IsClientError(err))
	}
}

func TestCycleKey_String(t *testing.T) {
	c := cfg25().CycleFor(day("2025-03-26"))
	assert.Equal(t, "2025-03", c.Key().String())
}

// =============================================================================
// ENUMERATOR
// =============================================================================

func TestEnumerateWindow_SortedAndDeduplicated(t *testing.T) {
	cycles := cfg25().EnumerateWindow(day("2025-03-26"), 2, 2)

	require.Len(t, cycles, 5)
	assert.Equal(t, "2025-01-25", cycles[0].Start.String())
	assert.Equal(t, "2025-03-25", cycles[2].Start.String())
	assert.Equal(t, "2025-05-25", cycles[4].Start.String())
	for i := 1; i < len(cycles); i++ {
		assert.True(t, cycles[i-1].End.AddDays(1).Equal(cycles[i].Start))
	}
}

func TestEnumerateWindow_ClampedDayDoesNotDrift(t *testing.T) {
	// Walking from Jan 31 must not stick on the 28th after February.
	cycles := cfg25().EnumerateWindow(day("2025-01-31"), 0, 3)

	require.Len(t, cycles, 4)
	assert.Equal(t, "2025-01-25", cycles[0].Start.String())
	assert.Equal(t, "2025-04-25", cycles[3].Start.String())
}

func TestEnumerateForTransactions_PadsSixMonths(t *testing.T) {
	txs := []budget.Transaction{
		expense("a", "2025-03-20", -100, "Casa"),
		expense("b", "2025-05-02", -50, "Casa"),
	}

	cycles := cfg25().EnumerateForTransactions(txs, budget.DefaultPadMonths)

	require.NotEmpty(t, cycles)
	assert.Equal(t, "2024-08-25", cycles[0].Start.String())           // cycle of 2024-09-20
	assert.Equal(t, "2025-10-25", cycles[len(cycles)-1].Start.String()) // cycle of 2025-11-02

	seen := map[budget.CycleKey]bool{}
	for _, c := range cycles {
		assert.False(t, seen[c.Key()], "duplicate %s", c.Key())
		seen[c.Key()] = true
	}
}

func TestEnumerateForTransactions_CoversEveryTransaction(t *testing.T) {
	txs := []budget.Transaction{
		expense("a", "2024-12-31", -1, "X"),
		expense("b", "2025-01-24", -1, "X"),
		expense("c", "2025-01-25", -1, "X"),
		expense("d", "2025-07-01", -1, "X"),
	}

	cycles := cfg25().EnumerateForTransactions(txs, 0)

	for _, tx := range txs {
		covered := false
		for _, c := range cycles {
			if c.Contains(tx.Date) {
				covered = true
			}
		}
		assert.True(t, covered, "transaction %s not covered", tx.ID)
	}
}

func TestEnumerateForTransactions_NoValidDates(t *testing.T) {
	bad := budget.Transaction{ID: "x", RawDate: "not-a-date"}
	assert.Nil(t, cfg25().EnumerateForTransactions([]budget.Transaction{bad}, 6))
	assert.Nil(t, cfg25().EnumerateForTransactions(nil, 6))
}

// =============================================================================
// TIME
// =============================================================================

func TestParseDate(t *testing.T) {
	tp, err := budget.ParseDate("2025-03-20")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-20", tp.String())

	tp, err = budget.ParseDate("2025-03-20T15:04:05Z")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-20", tp.String())

	_, err = budget.ParseDate("20/03/2025")
	assert.ErrorIs(t, err, budget.ErrInvalidDate)

	_, err = budget.ParseDate("2025-02-30")
	assert.ErrorIs(t, err, budget.ErrInvalidDate)

	tp, err = budget.ParseDate(" 2025-03-20 ")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-20", tp.String())

	for _, bad := range []string{"2025-03-2012", "2025-03-20garbage", "2025-03-20 junk", "2025-03-20T15:04", ""} {
		_, err = budget.ParseDate(bad)
		assert.ErrorIs(t, err, budget.ErrInvalidDate, bad)
	}
}

func TestAddMonthsClamped(t *testing.T) {
	assert.Equal(t, "2025-02-28", day("2025-01-31").AddMonthsClamped(1).String())
	assert.Equal(t, "2024-02-29", day("2024-01-31").AddMonthsClamped(1).String())
	assert.Equal(t, "2025-03-31", day("2025-01-31").AddMonthsClamped(2).String())
	assert.Equal(t, "2024-11-30", day("2025-01-30").AddMonthsClamped(-2).String())
	assert.Equal(t, "2026-01-15", day("2025-12-15").AddMonthsClamped(1).String())
}

func TestEndOfMonth(t *testing.T) {
	assert.Equal(t, "2024-02-29", budget.EndOfMonth(2024, 2).String())
	assert.Equal(t, "2025-02-28", budget.EndOfMonth(2025, 2).String())
	assert.Equal(t, "2025-04-30", budget.EndOfMonth(2025, 4).String())
	assert.Equal(t, "2025-12-31", budget.EndOfMonth(2025, 12).String())
}

/*
cycle.go - Financial cycle calculator

PURPOSE:
  A financial cycle is the budgeting window that follows the household's
  pay day rather than the calendar month. With boundary day 25 the cycle
  runs from the 25th of one month to the 24th of the next.

RULE:
  date.Day() <  BoundaryDay  => cycle started on BoundaryDay of the PREVIOUS month
  date.Day() >= BoundaryDay  => cycle started on BoundaryDay of THIS month
  End = Start + 1 month - 1 day

  Cycles tile the calendar: CycleFor(c.End + 1 day) starts exactly one day
  after c ends. December rolls over into January of the next year.

BOUNDARY DAY:
  Restricted to 1..28 so every month has the boundary day and the tiling
  holds without clamping. One value per deployment (config: cycle.boundary_day).

EXAMPLE:
  cfg := budget.CycleConfig{BoundaryDay: 25, Locale: budget.LocalePtBR}
  c := cfg.CycleFor(budget.NewTimePoint(2025, time.March, 26))
  // c.Start = 2025-03-25, c.End = 2025-04-24, c.Label = "mar - abr 2025"

SEE ALSO:
  - enumerate.go: Sequences of cycles
  - aggregate.go: Cycle membership
*/
package budget

import (
	"fmt"
	"strings"
	"time"
)

// DefaultBoundaryDay is the boundary used by most of the dashboard.
const DefaultBoundaryDay = 25

// =============================================================================
// LOCALE - Cycle label formatting
// =============================================================================

type Locale string

const (
	LocalePtBR Locale = "pt-BR"
	LocaleEnUS Locale = "en-US"
)

var monthNames = map[Locale][12]string{
	LocalePtBR: {"jan", "fev", "mar", "abr", "mai", "jun", "jul", "ago", "set", "out", "nov", "dez"},
	LocaleEnUS: {"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"},
}

// MonthName returns the short month name for the locale, falling back to pt-BR.
func (l Locale) MonthName(m time.Month) string {
	names, ok := monthNames[l]
	if !ok {
		names = monthNames[LocalePtBR]
	}
	return names[m-1]
}

// ParseLocale accepts "pt-BR", "en-US" and their lowercase/underscore forms.
func ParseLocale(s string) (Locale, bool) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-") {
	case "pt-br", "pt":
		return LocalePtBR, true
	case "en-us", "en":
		return LocaleEnUS, true
	}
	return "", false
}

// =============================================================================
// CYCLE
// =============================================================================

// Cycle is the closed interval [Start, End] plus a display label.
type Cycle struct {
	Start TimePoint
	End   TimePoint
	Label string
}

// CycleKey identifies a cycle by the year and month it starts in.
type CycleKey struct {
	Year  int
	Month time.Month
}

func (k CycleKey) String() string { return fmt.Sprintf("%04d-%02d", k.Year, int(k.Month)) }

func (c Cycle) Key() CycleKey { return CycleKey{Year: c.Start.Year(), Month: c.Start.Month()} }

// Contains reports whether the day lies in [Start, End]. Zero days never do.
func (c Cycle) Contains(tp TimePoint) bool {
	if tp.IsZero() {
		return false
	}
	return tp.AfterOrEqual(c.Start) && tp.BeforeOrEqual(c.End)
}

func (c Cycle) String() string {
	return "[" + c.Start.String() + ", " + c.End.String() + "]"
}

// =============================================================================
// CYCLE CONFIG - Determines which cycle a date falls into
// =============================================================================

type CycleConfig struct {
	BoundaryDay int
	Locale      Locale
}

func DefaultCycleConfig() CycleConfig {
	return CycleConfig{BoundaryDay: DefaultBoundaryDay, Locale: LocalePtBR}
}

func (cc CycleConfig) Validate() error {
	if cc.BoundaryDay < 1 || cc.BoundaryDay > 28 {
		return &ValidationError{
			Field:  "boundary_day",
			Reason: fmt.Sprintf("%d is outside 1..28", cc.BoundaryDay),
			Err:    ErrInvalidBoundaryDay,
		}
	}
	return nil
}

func (cc CycleConfig) boundary() int {
	switch {
	case cc.BoundaryDay == 0:
		return DefaultBoundaryDay
	case cc.BoundaryDay < 1:
		return 1
	case cc.BoundaryDay > 28:
		return 28
	}
	return cc.BoundaryDay
}

// CycleFor returns the cycle containing date.
func (cc CycleConfig) CycleFor(date TimePoint) Cycle {
	year, month := date.Year(), date.Month()
	if date.Day() < cc.boundary() {
		prev := NewTimePoint(year, month, 1).AddMonthsClamped(-1)
		year, month = prev.Year(), prev.Month()
	}
	return cc.CycleStartingIn(year, month)
}

// CycleStartingIn returns the cycle whose start falls in year/month.
func (cc CycleConfig) CycleStartingIn(year int, month time.Month) Cycle {
	start := NewTimePoint(year, month, cc.boundary())
	end := start.AddMonthsClamped(1).AddDays(-1)
	return Cycle{Start: start, End: end, Label: cc.Label(start, end)}
}

// Next returns the cycle that starts the day after c ends.
func (cc CycleConfig) Next(c Cycle) Cycle { return cc.CycleFor(c.End.AddDays(1)) }

// Previous returns the cycle that ends the day before c starts.
func (cc CycleConfig) Previous(c Cycle) Cycle { return cc.CycleFor(c.Start.AddDays(-1)) }

// Label formats a cycle as "mar - abr 2025", or "dez 2025 - jan 2026" when
// the cycle crosses a year.
func (cc CycleConfig) Label(start, end TimePoint) string {
	loc := cc.Locale
	if loc == "" {
		loc = LocalePtBR
	}
	startName, endName := loc.MonthName(start.Month()), loc.MonthName(end.Month())

	switch {
	case start.Year() != end.Year():
		return fmt.Sprintf("%s %d - %s %d", startName, start.Year(), endName, end.Year())
	case start.Month() == end.Month():
		return fmt.Sprintf("%s %d", startName, start.Year())
	default:
		return fmt.Sprintf("%s - %s %d", startName, endName, start.Year())
	}
}

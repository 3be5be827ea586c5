/*
Package reporting rolls ledger entries up into dashboard statistics.

PURPOSE:
  Two kinds of rollups, computed from a fresh read of the store on every
  call and never written back:
  - Snapshot: flat counts and sums for the dashboard summary
  - Series:   revenue bucketed by day or month over a reporting window

PERIODS:
  The reporting period is a closed set of variants. Each maps, through a
  pure function of "now", to a window and a bucket granularity:

    Period     Window                                           Buckets
    --------   ----------------------------------------------   -------
    Monthly    first .. last day of the current month           day
    Quarterly  first day of (current month - 3) .. last day     day
               of the current month
    Yearly     Jan 1 of previous year .. Dec 31 of this year    month (1-12)

  Windows are half-open internally: [Start, End). End is midnight of the
  day after the last included day.

SEE ALSO:
  - snapshot.go: Flat dashboard summary
  - series.go: Bucketed revenue
*/
package reporting

import (
	"fmt"
	"strings"
	"time"

	"github.com/warp/rent-ledger/ledger"
)

// Period selects the reporting window for a revenue series.
type Period int

const (
	PeriodMonthly Period = iota
	PeriodQuarterly
	PeriodYearly
)

// ParsePeriod maps the API keyword onto a Period. Empty means monthly.
func ParsePeriod(s string) (Period, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "monthly":
		return PeriodMonthly, nil
	case "quarterly":
		return PeriodQuarterly, nil
	case "yearly":
		return PeriodYearly, nil
	default:
		return PeriodMonthly, &ledger.ValidationError{Field: "period", Reason: fmt.Sprintf("unknown period %q", s)}
	}
}

func (p Period) String() string {
	switch p {
	case PeriodQuarterly:
		return "quarterly"
	case PeriodYearly:
		return "yearly"
	default:
		return "monthly"
	}
}

// Granularity is the width of one bucket.
type Granularity int

const (
	GranularityDay Granularity = iota
	GranularityMonth
)

func (g Granularity) String() string {
	if g == GranularityMonth {
		return "month"
	}
	return "day"
}

// Window is the half-open time range [Start, End) a series covers.
type Window struct {
	Start       time.Time
	End         time.Time
	Granularity Granularity
}

// Contains returns true if t falls in [Start, End).
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// LastDay returns the last calendar day included in the window.
func (w Window) LastDay() time.Time {
	return w.End.AddDate(0, 0, -1)
}

// Window maps the period to its reporting window at now.
// Calendar arithmetic happens in now's location.
func (p Period) Window(now time.Time) Window {
	monthStart := ledger.StartOfMonth(now)
	nextMonth := ledger.StartOfNextMonth(now)

	switch p {
	case PeriodYearly:
		return Window{
			Start:       time.Date(now.Year()-1, time.January, 1, 0, 0, 0, 0, now.Location()),
			End:         time.Date(now.Year()+1, time.January, 1, 0, 0, 0, 0, now.Location()),
			Granularity: GranularityMonth,
		}
	case PeriodQuarterly:
		return Window{
			Start:       monthStart.AddDate(0, -3, 0),
			End:         nextMonth,
			Granularity: GranularityDay,
		}
	default:
		return Window{
			Start:       monthStart,
			End:         nextMonth,
			Granularity: GranularityDay,
		}
	}
}

package reporting

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/rent-ledger/ledger"
)

// Snapshot is the flat dashboard summary.
type Snapshot struct {
	Total              int
	ByStatus           map[ledger.Status]int
	CollectedThisMonth decimal.Decimal
	ExpectedThisMonth  decimal.Decimal
	OverdueCount       int
	AsOf               time.Time
}

// Summarize computes the dashboard snapshot at now. Status counts use the
// normalized status, so a stale pending entry past its due date counts as
// overdue.
func Summarize(payments []ledger.Payment, now time.Time) Snapshot {
	s := Snapshot{
		ByStatus:           make(map[ledger.Status]int, len(ledger.Statuses)),
		CollectedThisMonth: decimal.Zero,
		ExpectedThisMonth:  decimal.Zero,
		AsOf:               now,
	}
	for _, st := range ledger.Statuses {
		s.ByStatus[st] = 0
	}

	loc := now.Location()
	for _, p := range payments {
		s.Total++
		s.ByStatus[ledger.NormalizeStatus(p.Status, p.DueDate, now)]++

		if p.PaidDate != nil && ledger.SameMonth(*p.PaidDate, now, loc) {
			s.CollectedThisMonth = s.CollectedThisMonth.Add(p.Amount)
		}
		if ledger.SameMonth(p.DueDate, now, loc) {
			s.ExpectedThisMonth = s.ExpectedThisMonth.Add(p.Amount)
		}
		if p.DueDate.Before(now) && p.Status != ledger.StatusPaid {
			s.OverdueCount++
		}
	}
	return s
}

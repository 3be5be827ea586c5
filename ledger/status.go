/*
status.go - Status transition engine

PURPOSE:
  Derives and normalizes Payment status the same way regardless of entry
  point (creation, update, listing). Every function takes "now" explicitly.

RULES:
  DaysLate:
    paid          -> 0
    now <= due    -> 0
    otherwise     -> elapsed time in days, partial days rounded up

  NormalizeStatus:
    paid, cancelled  -> unchanged (terminal)
    now > due        -> overdue
    otherwise        -> unchanged

  The boundary is strict: a payment due exactly "now" is not overdue.
  Normalization is idempotent.

SETTLEMENT:
  An update that moves a payment into paid from any other status sets the
  paid date (caller supplied, else now) and is reported as Settled. It is
  the only event that produces a receipt. Leaving paid clears the paid date.

SEE ALSO:
  - validate.go: Invariants checked after normalization
  - billing/service.go: Applies these rules before every persist
*/
package ledger

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const day = 24 * time.Hour

// DaysLate returns how many calendar days the payment is past due at now.
func DaysLate(p Payment, now time.Time) int {
	if p.Status == StatusPaid {
		return 0
	}
	if !now.After(p.DueDate) {
		return 0
	}
	late := now.Sub(p.DueDate)
	days := int(late / day)
	if late%day != 0 {
		days++
	}
	return days
}

// NormalizeStatus returns the status a payment must hold at now.
func NormalizeStatus(status Status, due, now time.Time) Status {
	if status.IsTerminal() {
		return status
	}
	if now.After(due) {
		return StatusOverdue
	}
	return status
}

// Normalized returns a copy of p with its status normalized at now.
func (p Payment) Normalized(now time.Time) Payment {
	p.Status = NormalizeStatus(p.Status, p.DueDate, now)
	return p
}

// =============================================================================
// CREATION
// =============================================================================

// Draft carries the caller's input for a new payment.
type Draft struct {
	PropertyID    PropertyID
	TenantID      TenantID
	Amount        decimal.Decimal
	LateFee       decimal.Decimal
	DueDate       time.Time
	PaidDate      *time.Time
	Period        BillingPeriod
	Status        Status // empty means pending
	Method        Method
	Description   string
	TransactionID string
	Notes         string
	Attachments   []DocumentID
}

// NewPayment builds a normalized, validated payment from a draft.
func NewPayment(id PaymentID, d Draft, caller UserID, now time.Time) (Payment, error) {
	status := d.Status
	if status == "" {
		status = StatusPending
	}

	p := Payment{
		ID:            id,
		TenantID:      d.TenantID,
		PropertyID:    d.PropertyID,
		Amount:        d.Amount,
		LateFee:       d.LateFee,
		DueDate:       d.DueDate,
		Period:        d.Period,
		Status:        status,
		Method:        d.Method,
		Description:   strings.TrimSpace(d.Description),
		TransactionID: d.TransactionID,
		Notes:         d.Notes,
		Attachments:   append([]DocumentID(nil), d.Attachments...),
		CreatedBy:     caller,
		UpdatedBy:     caller,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if status == StatusPaid {
		paid := now
		if d.PaidDate != nil {
			paid = *d.PaidDate
		}
		p.PaidDate = &paid
	}

	p = p.Normalized(now)
	if err := Validate(p); err != nil {
		return Payment{}, err
	}
	return p, nil
}

// =============================================================================
// UPDATE
// =============================================================================

// Update is a partial update. Nil fields are left untouched.
type Update struct {
	Amount        *decimal.Decimal
	LateFee       *decimal.Decimal
	DueDate       *time.Time
	PaidDate      *time.Time
	PeriodStart   *time.Time
	PeriodEnd     *time.Time
	Status        *Status
	Method        *Method
	Description   *string
	TransactionID *string
	Notes         *string
	Attachments   *[]DocumentID
}

// Transition describes the status change an update produced.
type Transition struct {
	From    Status
	To      Status
	Settled bool // moved into paid from a non-paid status
}

// ApplyUpdate applies u to current and returns the normalized, validated result.
// current is not modified.
func ApplyUpdate(current Payment, u Update, caller UserID, now time.Time) (Payment, Transition, error) {
	next := current.Clone()
	wasPaid := current.Status == StatusPaid

	if u.Amount != nil {
		next.Amount = *u.Amount
	}
	if u.LateFee != nil {
		next.LateFee = *u.LateFee
	}
	if u.DueDate != nil {
		next.DueDate = *u.DueDate
	}
	if u.PeriodStart != nil {
		next.Period.Start = *u.PeriodStart
	}
	if u.PeriodEnd != nil {
		next.Period.End = *u.PeriodEnd
	}
	if u.Status != nil {
		next.Status = *u.Status
	}
	if u.Method != nil {
		next.Method = *u.Method
	}
	if u.Description != nil {
		next.Description = strings.TrimSpace(*u.Description)
	}
	if u.TransactionID != nil {
		next.TransactionID = *u.TransactionID
	}
	if u.Notes != nil {
		next.Notes = *u.Notes
	}
	if u.Attachments != nil {
		next.Attachments = append([]DocumentID(nil), (*u.Attachments)...)
	}

	switch {
	case next.Status == StatusPaid && !wasPaid:
		paid := now
		if u.PaidDate != nil {
			paid = *u.PaidDate
		}
		next.PaidDate = &paid
	case next.Status == StatusPaid && u.PaidDate != nil:
		// correction of the settlement date
		paid := *u.PaidDate
		next.PaidDate = &paid
	case next.Status != StatusPaid:
		next.PaidDate = nil
	}

	next.UpdatedBy = caller
	next.UpdatedAt = now
	next = next.Normalized(now)

	if err := Validate(next); err != nil {
		return Payment{}, Transition{}, err
	}

	return next, Transition{
		From:    NormalizeStatus(current.Status, current.DueDate, now),
		To:      next.Status,
		Settled: next.Status == StatusPaid && !wasPaid,
	}, nil
}

package ledger

import (
	"fmt"
)

// Validate checks the invariants that must hold after every write.
// Status normalization (the overdue rule) is the caller's job; Validate
// checks the remaining invariants and required fields.
func Validate(p Payment) error {
	if p.PropertyID == "" {
		return &ValidationError{Field: "property_id", Reason: "required"}
	}
	if p.TenantID == "" {
		return &ValidationError{Field: "tenant_id", Reason: "required"}
	}
	if p.Amount.IsNegative() {
		return &ValidationError{Field: "amount", Reason: "must not be negative"}
	}
	if p.LateFee.IsNegative() {
		return &ValidationError{Field: "late_fee", Reason: "must not be negative"}
	}
	if p.DueDate.IsZero() {
		return &ValidationError{Field: "due_date", Reason: "required"}
	}
	if p.Period.Start.IsZero() || p.Period.End.IsZero() {
		return &ValidationError{Field: "period", Reason: "start and end are required"}
	}
	if p.Period.Start.After(p.Period.End) {
		return &ValidationError{Field: "period", Reason: "start is after end"}
	}
	if !p.Status.Valid() {
		return &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", p.Status)}
	}

	if !p.Method.Valid() {
		return &ValidationError{Field: "method", Reason: fmt.Sprintf("unknown method %q", p.Method)}
	}

	if p.Status == StatusPaid {
		if p.PaidDate == nil || p.PaidDate.IsZero() {
			return &ValidationError{Field: "paid_date", Reason: "required when status is paid"}
		}
		if p.PaidDate.Before(p.CreatedAt) {
			return &ValidationError{Field: "paid_date", Reason: "must not precede creation"}
		}
	}

	for i := 1; i < len(p.Reminders); i++ {
		if p.Reminders[i].SentAt.Before(p.Reminders[i-1].SentAt) {
			return &ValidationError{Field: "reminders", Reason: "must be chronological"}
		}
	}
	return nil
}

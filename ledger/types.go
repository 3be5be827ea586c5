/*
Package ledger provides the billing ledger core: the Payment entity, its
status transitions and the invariants every write must satisfy.

PURPOSE:
  A Payment is one obligation owed by one tenant for one property over one
  billing period. Despite the name it usually starts life as an unpaid
  charge; settlement is the transition into StatusPaid.

KEY CONCEPTS IN THIS FILE (types.go):
  - Status: canonical five-value status set
  - Payment: the ledger entry
  - BillingPeriod: the period an obligation covers
  - Reminder: append-only audit of reminders sent to the tenant

DESIGN PRINCIPLES:
  1. Precision: every monetary field is decimal.Decimal
  2. Explicit time: nothing in this package reads the wall clock directly,
     callers pass "now" (see clock.go)
  3. References, not copies: tenants, properties and documents are held
     by ID and resolved through the Directory

SEE ALSO:
  - status.go: Transition engine (DaysLate, NormalizeStatus, ApplyUpdate)
  - validate.go: Invariant checks
  - errors.go: Error taxonomy
  - store.go: Persistence and directory contracts
*/
package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type (
	PaymentID  string
	TenantID   string
	PropertyID string
	UserID     string
	DocumentID string
)

// =============================================================================
// STATUS
// =============================================================================

// Status is the settlement state of a Payment. Exactly one holds at a time.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPartial   Status = "partial"
	StatusPaid      Status = "paid"
	StatusOverdue   Status = "overdue"
	StatusCancelled Status = "cancelled"
)

// Statuses lists the canonical statuses in display order.
var Statuses = []Status{StatusPending, StatusPartial, StatusPaid, StatusOverdue, StatusCancelled}

// legacyStatuses maps values written by older clients onto the canonical set.
var legacyStatuses = map[string]Status{
	"late":           StatusOverdue,
	"partially_paid": StatusPartial,
}

// ParseStatus converts user or storage input into a canonical Status.
// Legacy synonyms are folded into their canonical value.
func ParseStatus(s string) (Status, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	for _, st := range Statuses {
		if string(st) == v {
			return st, nil
		}
	}
	if st, ok := legacyStatuses[v]; ok {
		return st, nil
	}
	return "", &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", s)}
}

// LegacySpellings returns the older stored values that fold into s.
func LegacySpellings(s Status) []string {
	var out []string
	for legacy, st := range legacyStatuses {
		if st == s {
			out = append(out, legacy)
		}
	}
	return out
}

// IsTerminal reports whether automatic normalization must leave s alone.
func (s Status) IsTerminal() bool {
	return s == StatusPaid || s == StatusCancelled
}

// Valid reports whether s is one of the canonical statuses.
func (s Status) Valid() bool {
	for _, st := range Statuses {
		if s == st {
			return true
		}
	}
	return false
}

func (s Status) String() string { return string(s) }

// =============================================================================
// METHOD
// =============================================================================

// Method describes how a payment was (or will be) settled. Descriptive only.
type Method string

const (
	MethodCash         Method = "cash"
	MethodBankTransfer Method = "bank_transfer"
	MethodCard         Method = "card"
	MethodCheck        Method = "check"
	MethodOther        Method = "other"
)

// Valid reports whether m is empty or a known method.
func (m Method) Valid() bool {
	switch m {
	case "", MethodCash, MethodBankTransfer, MethodCard, MethodCheck, MethodOther:
		return true
	}
	return false
}

// ReminderMethod is the channel a reminder went out on.
type ReminderMethod string

const (
	ReminderEmail ReminderMethod = "email"
	ReminderSMS   ReminderMethod = "sms"
)

func (m ReminderMethod) Valid() bool {
	return m == ReminderEmail || m == ReminderSMS
}

// =============================================================================
// PAYMENT
// =============================================================================

// BillingPeriod is the span of time an obligation covers, both ends inclusive.
type BillingPeriod struct {
	Start time.Time
	End   time.Time
}

// Reminder is one reminder sent to the tenant about a payment.
type Reminder struct {
	SentAt time.Time
	SentBy UserID
	Method ReminderMethod
}

// Payment is a single ledger entry.
type Payment struct {
	ID         PaymentID
	TenantID   TenantID
	PropertyID PropertyID

	Amount  decimal.Decimal
	LateFee decimal.Decimal

	DueDate  time.Time
	PaidDate *time.Time
	Period   BillingPeriod

	Status        Status
	Method        Method
	Description   string
	TransactionID string
	Notes         string
	Attachments   []DocumentID
	Reminders     []Reminder

	CreatedBy UserID
	UpdatedBy UserID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OwnedBy reports whether the user may read or modify the payment.
func (p Payment) OwnedBy(user UserID) bool {
	return user != "" && p.CreatedBy == user
}

// TotalDue is the amount plus any late fee.
func (p Payment) TotalDue() decimal.Decimal {
	return p.Amount.Add(p.LateFee)
}

// Clone returns a deep copy so callers can mutate slices and pointers freely.
func (p Payment) Clone() Payment {
	c := p
	if p.PaidDate != nil {
		t := *p.PaidDate
		c.PaidDate = &t
	}
	c.Attachments = append([]DocumentID(nil), p.Attachments...)
	c.Reminders = append([]Reminder(nil), p.Reminders...)
	return c
}

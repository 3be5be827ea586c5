/*
store.go - Persistence and entity-lookup contracts

PURPOSE:
  Defines the interface between the billing logic and the database, and
  the read-only directory the billing logic uses to resolve properties and
  tenants it does not own.

CONCURRENCY CONTRACT:
  UpdatePayment is a compare-and-swap on the stored status: the write only
  lands if the row still holds the status the caller read. A lost race
  returns ErrConcurrentModification and nothing is written.

  AppendReminder is an atomic append. Implementations must not read the
  reminder list and write it back; concurrent appends must all land, in
  chronological order, or fail with ErrConcurrentModification.

IMPLEMENTATIONS:
  - store/sqldb: SQLite (default) and PostgreSQL
  - store/memory: In-memory for tests and development
*/
package ledger

import (
	"context"
	"time"
)

// Filter narrows ListPayments. Zero values mean "no constraint".
type Filter struct {
	OwnerID    UserID
	TenantID   TenantID
	PropertyID PropertyID
	Statuses   []Status // matched against the stored status

	DueFrom  *time.Time // inclusive
	DueTo    *time.Time // exclusive
	PaidFrom *time.Time // inclusive
	PaidTo   *time.Time // exclusive
}

// Store persists payments.
type Store interface {
	// CreatePayment inserts a new payment.
	CreatePayment(ctx context.Context, p Payment) error

	// GetPayment returns the payment with its reminders, or ErrPaymentNotFound.
	GetPayment(ctx context.Context, id PaymentID) (*Payment, error)

	// UpdatePayment overwrites the mutable fields of p if the stored status
	// still equals expected.
	UpdatePayment(ctx context.Context, p Payment, expected Status) error

	// DeletePayment removes a payment and its reminders.
	DeletePayment(ctx context.Context, id PaymentID) error

	// ListPayments returns matching payments ordered by due date, newest first.
	ListPayments(ctx context.Context, f Filter) ([]Payment, error)

	// AppendReminder atomically appends r to the payment's reminders.
	AppendReminder(ctx context.Context, id PaymentID, r Reminder) error
}

// Directory resolves entities owned by other parts of the back office.
type Directory interface {
	// PropertyOwner returns who owns a property; ok is false when it is unknown.
	PropertyOwner(ctx context.Context, id PropertyID) (owner UserID, ok bool, err error)

	// TenantProperty returns the property a tenant rents; ok is false when
	// the tenant is unknown.
	TenantProperty(ctx context.Context, id TenantID) (property PropertyID, ok bool, err error)

	// TenantContact returns the tenant's address, or "" when none is on file.
	TenantContact(ctx context.Context, id TenantID) (string, error)

	PropertyName(ctx context.Context, id PropertyID) (string, error)
	TenantName(ctx context.Context, id TenantID) (string, error)
}

/*
service.go - The ledger API operations

PURPOSE:
  Service is the application layer between the HTTP handlers and the
  ledger core. Every operation is scoped to a caller: entries belong to
  the user who created them and no one else can read or change them.

OPERATIONS:
  CreateEntry       validate, check references, insert, send new-charge notice
  UpdateEntry       apply a partial update with compare-and-swap on status;
                    send the receipt when the entry moves into paid
  ListEntries       owner-scoped, normalized, newest due first
  GetEntry          404 if absent, 403 if not owned
  DeleteEntry       hard delete
  GetStats          dashboard snapshot, bounded by a deadline
  GetRevenueSeries  bucketed revenue, bounded by a deadline
  SendReminder      atomic reminder append, then delivery
  GenerateReceipt   rendered receipt for a paid entry

NOTIFICATIONS:
  Messages go out after the write is committed. A delivery failure never
  rolls back or fails the operation; it is returned in Result.Warnings.

READ-TIME NORMALIZATION:
  Entries are normalized against the clock whenever they are returned.
  The normalized status is not written back on read; the next write
  persists it.

SEE ALSO:
  - ledger/status.go: Transition engine
  - reporting/: Snapshot and revenue series
  - dispatch/dispatcher.go: Notifications and receipts
*/
package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/warp/rent-ledger/dispatch"
	"github.com/warp/rent-ledger/ledger"
	"github.com/warp/rent-ledger/reporting"
	"go.uber.org/zap"
)

const (
	defaultStatsTimeout = 5 * time.Second
	defaultMaxRetries   = 5
)

// Deps are the collaborators a Service needs.
type Deps struct {
	Store      ledger.Store
	Directory  ledger.Directory
	Registry   ledger.Registry
	Dispatcher *dispatch.Dispatcher
	Clock      ledger.Clock
	Logger     *zap.Logger
}

// Service implements the ledger API operations.
type Service struct {
	store      ledger.Store
	directory  ledger.Directory
	registry   ledger.Registry
	dispatcher *dispatch.Dispatcher
	clock      ledger.Clock
	log        *zap.Logger

	newID        func() string
	statsTimeout time.Duration
	maxRetries   int
}

// Option configures a Service.
type Option func(*Service)

// WithStatsTimeout sets the default deadline for aggregation queries.
func WithStatsTimeout(d time.Duration) Option {
	return func(s *Service) { s.statsTimeout = d }
}

// WithMaxRetries sets how often a write that lost a race is retried.
func WithMaxRetries(n int) Option {
	return func(s *Service) { s.maxRetries = n }
}

// WithIDGenerator replaces the UUID generator, for deterministic tests.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// New creates a Service. Clock defaults to the system clock and Logger to a
// no-op logger.
func New(deps Deps, opts ...Option) *Service {
	s := &Service{
		store:        deps.Store,
		directory:    deps.Directory,
		registry:     deps.Registry,
		dispatcher:   deps.Dispatcher,
		clock:        deps.Clock,
		log:          deps.Logger,
		newID:        uuid.NewString,
		statsTimeout: defaultStatsTimeout,
		maxRetries:   defaultMaxRetries,
	}
	if s.clock == nil {
		s.clock = ledger.SystemClock{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	s.log = s.log.Named("billing")
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Result is a written entry plus any delivery problems that followed it.
type Result struct {
	Payment  ledger.Payment
	Warnings []string
}

func (r *Result) warn(err error) {
	if err != nil {
		r.Warnings = append(r.Warnings, err.Error())
	}
}

// =============================================================================
// WRITE OPERATIONS
// =============================================================================

// CreateEntry records a new obligation for a tenant of a property.
func (s *Service) CreateEntry(ctx context.Context, caller ledger.UserID, d ledger.Draft) (Result, error) {
	if caller == "" {
		return Result{}, ledger.ErrForbidden
	}
	now := s.clock.Now()

	p, err := ledger.NewPayment(ledger.PaymentID(s.newID()), d, caller, now)
	if err != nil {
		return Result{}, err
	}
	if err := s.checkReferences(ctx, caller, p.PropertyID, p.TenantID); err != nil {
		return Result{}, err
	}

	if err := s.store.CreatePayment(ctx, p); err != nil {
		return Result{}, fmt.Errorf("failed to create payment: %w", err)
	}
	s.log.Info("payment created",
		zap.String("payment_id", string(p.ID)),
		zap.String("status", string(p.Status)),
		zap.String("amount", p.Amount.String()),
	)

	res := Result{Payment: p}
	if s.dispatcher != nil {
		res.warn(s.dispatcher.Created(ctx, p))
	}
	return res, nil
}

// UpdateEntry applies a partial update. The write is conditional on the
// status the update was computed from; on a lost race the entry is re-read
// and the update recomputed. Only the writer that actually moves the entry
// into paid sends the receipt.
func (s *Service) UpdateEntry(ctx context.Context, caller ledger.UserID, id ledger.PaymentID, u ledger.Update) (Result, error) {
	for attempt := 0; ; attempt++ {
		current, err := s.owned(ctx, caller, id)
		if err != nil {
			return Result{}, err
		}

		now := s.clock.Now()
		next, tr, err := ledger.ApplyUpdate(*current, u, caller, now)
		if err != nil {
			return Result{}, err
		}

		err = s.store.UpdatePayment(ctx, next, current.Status)
		if errors.Is(err, ledger.ErrConcurrentModification) && attempt < s.maxRetries {
			s.log.Debug("update lost a race, retrying",
				zap.String("payment_id", string(id)), zap.Int("attempt", attempt+1))
			continue
		}
		if err != nil {
			return Result{}, err
		}

		if tr.From != tr.To {
			s.log.Info("payment status changed",
				zap.String("payment_id", string(id)),
				zap.String("from", string(tr.From)),
				zap.String("to", string(tr.To)),
			)
		}

		res := Result{Payment: next}
		if tr.Settled && s.dispatcher != nil {
			res.warn(s.dispatcher.Settled(ctx, next))
		}
		return res, nil
	}
}

// DeleteEntry removes an entry the caller owns.
func (s *Service) DeleteEntry(ctx context.Context, caller ledger.UserID, id ledger.PaymentID) error {
	if _, err := s.owned(ctx, caller, id); err != nil {
		return err
	}
	if err := s.store.DeletePayment(ctx, id); err != nil {
		return err
	}
	s.log.Info("payment deleted", zap.String("payment_id", string(id)))
	return nil
}

// SendReminder records a reminder and delivers it to the tenant. The
// reminder is recorded even if delivery then fails; the failure is a warning.
func (s *Service) SendReminder(ctx context.Context, caller ledger.UserID, id ledger.PaymentID, method ledger.ReminderMethod) (Result, error) {
	p, err := s.owned(ctx, caller, id)
	if err != nil {
		return Result{}, err
	}
	if p.Status.IsTerminal() {
		return Result{}, &ledger.ValidationError{
			Field:  "status",
			Reason: fmt.Sprintf("cannot send a reminder for a %s payment", p.Status),
		}
	}
	if method == "" {
		method = ledger.ReminderEmail
	}
	if !method.Valid() {
		return Result{}, &ledger.ValidationError{Field: "method", Reason: fmt.Sprintf("unknown reminder method %q", method)}
	}

	to, err := s.directory.TenantContact(ctx, p.TenantID)
	if err != nil {
		return Result{}, fmt.Errorf("failed to look up tenant contact: %w", err)
	}
	if to == "" {
		return Result{}, fmt.Errorf("tenant %s: %w", p.TenantID, ledger.ErrNoContact)
	}

	var now time.Time
	for attempt := 0; ; attempt++ {
		now = s.clock.Now()
		err = s.store.AppendReminder(ctx, id, ledger.Reminder{SentAt: now, SentBy: caller, Method: method})
		if errors.Is(err, ledger.ErrConcurrentModification) && attempt < s.maxRetries {
			continue
		}
		if err != nil {
			return Result{}, err
		}
		break
	}

	fresh, err := s.store.GetPayment(ctx, id)
	if err != nil {
		return Result{}, err
	}
	res := Result{Payment: fresh.Normalized(now)}
	s.log.Info("reminder recorded",
		zap.String("payment_id", string(id)),
		zap.Int("reminders", len(fresh.Reminders)),
	)
	if s.dispatcher != nil {
		res.warn(s.dispatcher.Remind(ctx, res.Payment, to, now))
	}
	return res, nil
}

// =============================================================================
// READ OPERATIONS
// =============================================================================

// ListQuery narrows ListEntries. Zero values mean "no constraint".
type ListQuery struct {
	TenantID   ledger.TenantID
	PropertyID ledger.PropertyID
	Status     ledger.Status
	DueFrom    *time.Time
	DueTo      *time.Time
}

// ListEntries returns the caller's entries, normalized, newest due first.
func (s *Service) ListEntries(ctx context.Context, caller ledger.UserID, q ListQuery) ([]ledger.Payment, error) {
	if caller == "" {
		return nil, ledger.ErrForbidden
	}
	if q.Status != "" && !q.Status.Valid() {
		return nil, &ledger.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", q.Status)}
	}

	f := ledger.Filter{
		OwnerID:    caller,
		TenantID:   q.TenantID,
		PropertyID: q.PropertyID,
		DueFrom:    q.DueFrom,
		DueTo:      q.DueTo,
	}
	// Terminal statuses are never changed by normalization, so the store
	// can filter them. The others must be matched after normalizing.
	if q.Status.IsTerminal() {
		f.Statuses = []ledger.Status{q.Status}
	}

	stored, err := s.store.ListPayments(ctx, f)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	out := make([]ledger.Payment, 0, len(stored))
	for _, p := range stored {
		p = p.Normalized(now)
		if q.Status != "" && p.Status != q.Status {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// GetEntry returns one normalized entry the caller owns.
func (s *Service) GetEntry(ctx context.Context, caller ledger.UserID, id ledger.PaymentID) (ledger.Payment, error) {
	p, err := s.owned(ctx, caller, id)
	if err != nil {
		return ledger.Payment{}, err
	}
	return p.Normalized(s.clock.Now()), nil
}

// GenerateReceipt renders the receipt for a paid entry the caller owns.
func (s *Service) GenerateReceipt(ctx context.Context, caller ledger.UserID, id ledger.PaymentID) (dispatch.Artifact, error) {
	p, err := s.owned(ctx, caller, id)
	if err != nil {
		return dispatch.Artifact{}, err
	}
	if s.dispatcher == nil {
		return dispatch.Artifact{}, errors.New("no receipt renderer configured")
	}
	return s.dispatcher.Receipt(ctx, *p)
}

// =============================================================================
// AGGREGATION
// =============================================================================

// GetStats computes the caller's dashboard snapshot. A zero timeout uses the
// service default. On deadline the result is ErrTimeout, never a partial
// snapshot.
func (s *Service) GetStats(ctx context.Context, caller ledger.UserID, timeout time.Duration) (reporting.Snapshot, error) {
	if caller == "" {
		return reporting.Snapshot{}, ledger.ErrForbidden
	}
	ctx, cancel := s.deadline(ctx, timeout)
	defer cancel()

	payments, err := s.store.ListPayments(ctx, ledger.Filter{OwnerID: caller})
	if err := s.timedOut(ctx, err, "stats"); err != nil {
		return reporting.Snapshot{}, err
	}
	return reporting.Summarize(payments, s.clock.Now()), nil
}

// GetRevenueSeries buckets the caller's collected revenue over the period's
// window. An empty keyword means monthly.
func (s *Service) GetRevenueSeries(ctx context.Context, caller ledger.UserID, period string, timeout time.Duration) (reporting.Series, error) {
	if caller == "" {
		return reporting.Series{}, ledger.ErrForbidden
	}
	p, err := reporting.ParsePeriod(period)
	if err != nil {
		return reporting.Series{}, err
	}

	ctx, cancel := s.deadline(ctx, timeout)
	defer cancel()

	now := s.clock.Now()
	w := p.Window(now)
	payments, err := s.store.ListPayments(ctx, ledger.Filter{
		OwnerID:  caller,
		Statuses: []ledger.Status{ledger.StatusPaid},
		PaidFrom: &w.Start,
		PaidTo:   &w.End,
	})
	if err := s.timedOut(ctx, err, "revenue"); err != nil {
		return reporting.Series{}, err
	}
	return reporting.RevenueSeries(payments, p, now), nil
}

func (s *Service) deadline(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = s.statsTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// timedOut maps a query error, or a deadline that passed after the query
// returned, onto ErrTimeout.
func (s *Service) timedOut(ctx context.Context, err error, what string) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		s.log.Warn("aggregation timed out", zap.String("query", what))
		return fmt.Errorf("%s: %w", what, ledger.ErrTimeout)
	}
	return err
}

// =============================================================================
// DIRECTORY MAINTENANCE
// =============================================================================

// RegisterProperty adds a property owned by the caller.
func (s *Service) RegisterProperty(ctx context.Context, caller ledger.UserID, name, address string) (ledger.Property, error) {
	if caller == "" {
		return ledger.Property{}, ledger.ErrForbidden
	}
	if name == "" {
		return ledger.Property{}, &ledger.ValidationError{Field: "name", Reason: "is required"}
	}
	p := ledger.Property{
		ID:        ledger.PropertyID(s.newID()),
		Name:      name,
		Address:   address,
		OwnerID:   caller,
		CreatedAt: s.clock.Now(),
	}
	if err := s.registry.SaveProperty(ctx, p); err != nil {
		return ledger.Property{}, err
	}
	return p, nil
}

// ListProperties returns the caller's properties.
func (s *Service) ListProperties(ctx context.Context, caller ledger.UserID) ([]ledger.Property, error) {
	if caller == "" {
		return nil, ledger.ErrForbidden
	}
	return s.registry.ListProperties(ctx, caller)
}

// RegisterTenant adds a tenant to one of the caller's properties.
func (s *Service) RegisterTenant(ctx context.Context, caller ledger.UserID, t ledger.Tenant) (ledger.Tenant, error) {
	if caller == "" {
		return ledger.Tenant{}, ledger.ErrForbidden
	}
	if t.Name == "" {
		return ledger.Tenant{}, &ledger.ValidationError{Field: "name", Reason: "is required"}
	}
	if t.PropertyID == "" {
		return ledger.Tenant{}, &ledger.ValidationError{Field: "property_id", Reason: "is required"}
	}
	if err := s.ownedProperty(ctx, caller, t.PropertyID); err != nil {
		return ledger.Tenant{}, err
	}
	t.ID = ledger.TenantID(s.newID())
	t.CreatedAt = s.clock.Now()
	if err := s.registry.SaveTenant(ctx, t); err != nil {
		return ledger.Tenant{}, err
	}
	return t, nil
}

// ListTenants returns the tenants of the caller's properties, optionally of
// one property.
func (s *Service) ListTenants(ctx context.Context, caller ledger.UserID, property ledger.PropertyID) ([]ledger.Tenant, error) {
	if caller == "" {
		return nil, ledger.ErrForbidden
	}
	return s.registry.ListTenants(ctx, caller, property)
}

// =============================================================================
// Helpers
// =============================================================================

// owned loads an entry and checks the caller created it.
func (s *Service) owned(ctx context.Context, caller ledger.UserID, id ledger.PaymentID) (*ledger.Payment, error) {
	p, err := s.store.GetPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	if caller == "" || !p.OwnedBy(caller) {
		return nil, ledger.ErrForbidden
	}
	return p, nil
}

// ownedProperty checks the property exists and belongs to the caller.
func (s *Service) ownedProperty(ctx context.Context, caller ledger.UserID, property ledger.PropertyID) error {
	owner, ok, err := s.directory.PropertyOwner(ctx, property)
	if err != nil {
		return fmt.Errorf("failed to look up property: %w", err)
	}
	if !ok {
		return fmt.Errorf("property %s: %w", property, ledger.ErrPropertyNotFound)
	}
	if owner != caller {
		return fmt.Errorf("property %s: %w", property, ledger.ErrForbidden)
	}
	return nil
}

// checkReferences resolves a charge's property and tenant. The property must
// be the caller's and the tenant must rent it.
func (s *Service) checkReferences(ctx context.Context, caller ledger.UserID, property ledger.PropertyID, tenant ledger.TenantID) error {
	if err := s.ownedProperty(ctx, caller, property); err != nil {
		return err
	}
	rents, ok, err := s.directory.TenantProperty(ctx, tenant)
	if err != nil {
		return fmt.Errorf("failed to look up tenant: %w", err)
	}
	if !ok {
		return fmt.Errorf("tenant %s: %w", tenant, ledger.ErrTenantNotFound)
	}
	if rents != property {
		return &ledger.ValidationError{Field: "tenant_id", Reason: "does not rent this property"}
	}
	return nil
}

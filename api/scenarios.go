/*
scenarios.go - Demo portfolio loaders for testing and demonstrations

PURPOSE:

	Provides pre-built portfolios that populate the database with realistic
	billing history for demos. Each scenario registers properties and
	tenants for the caller and back-fills ledger entries relative to today,
	so the dashboard, revenue charts and reminder flows have data.

AVAILABLE SCENARIOS:

	single-flat:     One flat, one tenant, six months paid on time
	late-payers:     Two buildings with overdue and partial entries
	portfolio-year:  Three properties with twelve months of history

HOW SCENARIOS WORK:
 1. Register properties (owned by the caller)
 2. Register tenants
 3. Back-fill entries with ledger.NewPayment, dated at their creation
 4. Append past reminders for late entries

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "late-payers"}

USAGE VIA CLI:

	ledger seed --scenario late-payers --owner user-1

NOTE:

	Scenarios add to whatever the caller already has. Only use in
	development/demo environments.

SEE ALSO:
  - handlers.go: Route table
  - cmd/server/main.go: seed command
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/rent-ledger/ledger"
	"go.uber.org/zap"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

// ScenarioDTO represents a demo portfolio.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var scenarios = []ScenarioDTO{
	{
		ID:          "single-flat",
		Name:        "Single Flat",
		Description: "One flat, one tenant, six months paid on time and the current month pending",
	},
	{
		ID:          "late-payers",
		Name:        "Late Payers",
		Description: "Two buildings with overdue, partial and reminded entries",
	},
	{
		ID:          "portfolio-year",
		Name:        "Portfolio Year",
		Description: "Three properties with twelve months of history for the revenue charts",
	},
}

// Scenarios loads demo portfolios straight into the stores.
type Scenarios struct {
	store    ledger.Store
	registry ledger.Registry
	clock    ledger.Clock
}

// NewScenarios creates a loader over the given stores.
func NewScenarios(store ledger.Store, registry ledger.Registry, clock ledger.Clock) *Scenarios {
	if clock == nil {
		clock = ledger.SystemClock{}
	}
	return &Scenarios{store: store, registry: registry, clock: clock}
}

// List returns the available scenarios.
func (s *Scenarios) List() []ScenarioDTO {
	return append([]ScenarioDTO(nil), scenarios...)
}

// Load populates the named scenario for owner.
func (s *Scenarios) Load(ctx context.Context, owner ledger.UserID, id string) error {
	if owner == "" {
		return ledger.ErrForbidden
	}
	switch id {
	case "single-flat":
		return s.loadSingleFlat(ctx, owner)
	case "late-payers":
		return s.loadLatePayers(ctx, owner)
	case "portfolio-year":
		return s.loadPortfolioYear(ctx, owner)
	default:
		return &ledger.ValidationError{Field: "scenario_id", Reason: fmt.Sprintf("unknown scenario %q", id)}
	}
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	if h.Scenarios == nil {
		writeJSON(w, http.StatusOK, []ScenarioDTO{})
		return
	}
	writeJSON(w, http.StatusOK, h.Scenarios.List())
}

// LoadScenario loads a predefined scenario for the caller.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if h.Scenarios == nil {
		writeError(w, http.StatusNotFound, "Scenarios are disabled", nil)
		return
	}

	caller := CallerFrom(r.Context())
	if err := h.Scenarios.Load(r.Context(), caller, req.ScenarioID); err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.Log.Info("scenario loaded", zap.String("scenario", req.ScenarioID), zap.String("owner", string(caller)))

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (s *Scenarios) loadSingleFlat(ctx context.Context, owner ledger.UserID) error {
	now := s.clock.Now()
	prop, err := s.property(ctx, owner, "Flat 4B", "12 Harbour Street")
	if err != nil {
		return err
	}
	tenant, err := s.tenant(ctx, prop, "Ada Byron", "ada@example.com", "+44 20 7946 0001")
	if err != nil {
		return err
	}

	rent := decimal.NewFromInt(1250)
	for back := 6; back >= 1; back-- {
		due := monthDue(now, -back, 1)
		paid := due.AddDate(0, 0, -2)
		if err := s.entry(ctx, owner, prop, tenant, rent, decimal.Zero, due, &paid, ledger.MethodBankTransfer); err != nil {
			return err
		}
	}
	return s.entry(ctx, owner, prop, tenant, rent, decimal.Zero, monthDue(now, 0, 1), nil, "")
}

func (s *Scenarios) loadLatePayers(ctx context.Context, owner ledger.UserID) error {
	now := s.clock.Now()
	mill, err := s.property(ctx, owner, "Old Mill Lofts", "3 Canal Side")
	if err != nil {
		return err
	}
	court, err := s.property(ctx, owner, "Queens Court", "88 Queens Road")
	if err != nil {
		return err
	}

	grace, err := s.tenant(ctx, mill, "Grace Hopper", "grace@example.com", "")
	if err != nil {
		return err
	}
	alan, err := s.tenant(ctx, mill, "Alan Turing", "alan@example.com", "+44 20 7946 0002")
	if err != nil {
		return err
	}
	// No email on file: reminders for this tenant fail with ErrNoContact.
	edsger, err := s.tenant(ctx, court, "Edsger Dijkstra", "", "+31 20 555 0100")
	if err != nil {
		return err
	}

	rent := decimal.NewFromInt(980)
	fee := decimal.NewFromInt(45)

	// Grace pays late but pays.
	for back := 3; back >= 1; back-- {
		due := monthDue(now, -back, 1)
		paid := due.AddDate(0, 0, 9)
		if err := s.entry(ctx, owner, mill, grace, rent, fee, due, &paid, ledger.MethodCard); err != nil {
			return err
		}
	}

	// Alan is two months behind and has been reminded.
	for back := 2; back >= 1; back-- {
		due := monthDue(now, -back, 5)
		id, err := s.entryID(ctx, owner, mill, alan, rent, fee, due, nil, "")
		if err != nil {
			return err
		}
		for i, days := range []int{3, 10} {
			sent := due.AddDate(0, 0, days)
			if sent.After(now) {
				break
			}
			method := ledger.ReminderEmail
			if i > 0 {
				method = ledger.ReminderSMS
			}
			if err := s.store.AppendReminder(ctx, id, ledger.Reminder{SentAt: sent, SentBy: owner, Method: method}); err != nil {
				return err
			}
		}
	}

	// Edsger missed last month and has paid part of next month up front.
	if err := s.entry(ctx, owner, court, edsger, decimal.NewFromInt(1400), decimal.Zero, monthDue(now, -1, 1), nil, ""); err != nil {
		return err
	}
	next := ledger.Draft{
		PropertyID: court,
		TenantID:   edsger,
		Amount:     decimal.NewFromInt(1400),
		LateFee:    decimal.Zero,
		DueDate:    monthDue(now, 1, 1),
		Status:     ledger.StatusPartial,
		Method:     ledger.MethodCheck,
		Notes:      "Paid 700 by cheque, balance promised",
	}
	_, err = s.create(ctx, owner, next)
	return err
}

func (s *Scenarios) loadPortfolioYear(ctx context.Context, owner ledger.UserID) error {
	now := s.clock.Now()
	units := []struct {
		property, address, tenant, email string
		rent                             int64
		payDay                           int
	}{
		{"Riverside 1", "1 Riverside Walk", "Barbara Liskov", "barbara@example.com", 1100, -1},
		{"Riverside 2", "2 Riverside Walk", "Ken Thompson", "ken@example.com", 1150, 0},
		{"Hilltop House", "7 Hilltop Lane", "Radia Perlman", "radia@example.com", 2300, 6},
	}

	for _, u := range units {
		prop, err := s.property(ctx, owner, u.property, u.address)
		if err != nil {
			return err
		}
		tenant, err := s.tenant(ctx, prop, u.tenant, u.email, "")
		if err != nil {
			return err
		}
		for back := 12; back >= 1; back-- {
			due := monthDue(now, -back, 1)
			paid := due.AddDate(0, 0, u.payDay)
			fee := decimal.Zero
			if u.payDay > 0 {
				fee = decimal.NewFromInt(30)
			}
			if err := s.entry(ctx, owner, prop, tenant, decimal.NewFromInt(u.rent), fee, due, &paid, ledger.MethodBankTransfer); err != nil {
				return err
			}
		}
		if err := s.entry(ctx, owner, prop, tenant, decimal.NewFromInt(u.rent), decimal.Zero, monthDue(now, 0, 1), nil, ""); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Scenarios) property(ctx context.Context, owner ledger.UserID, name, address string) (ledger.PropertyID, error) {
	p := ledger.Property{
		ID:        ledger.PropertyID(uuid.NewString()),
		Name:      name,
		Address:   address,
		OwnerID:   owner,
		CreatedAt: s.clock.Now(),
	}
	return p.ID, s.registry.SaveProperty(ctx, p)
}

func (s *Scenarios) tenant(ctx context.Context, property ledger.PropertyID, name, email, phone string) (ledger.TenantID, error) {
	t := ledger.Tenant{
		ID:         ledger.TenantID(uuid.NewString()),
		Name:       name,
		Email:      email,
		Phone:      phone,
		PropertyID: property,
		CreatedAt:  s.clock.Now(),
	}
	return t.ID, s.registry.SaveTenant(ctx, t)
}

func (s *Scenarios) entry(ctx context.Context, owner ledger.UserID, property ledger.PropertyID, tenant ledger.TenantID,
	amount, fee decimal.Decimal, due time.Time, paid *time.Time, method ledger.Method) error {
	_, err := s.entryID(ctx, owner, property, tenant, amount, fee, due, paid, method)
	return err
}

// entryID back-fills one monthly entry.
func (s *Scenarios) entryID(ctx context.Context, owner ledger.UserID, property ledger.PropertyID, tenant ledger.TenantID,
	amount, fee decimal.Decimal, due time.Time, paid *time.Time, method ledger.Method) (ledger.PaymentID, error) {
	d := ledger.Draft{
		PropertyID: property,
		TenantID:   tenant,
		Amount:     amount,
		LateFee:    fee,
		DueDate:    due,
		Method:     method,
	}
	if paid != nil {
		d.Status = ledger.StatusPaid
		d.PaidDate = paid
	}
	return s.create(ctx, owner, d)
}

// create stores d as it would have been recorded: a week before it fell
// due (or now, if that is earlier), normalized against today.
func (s *Scenarios) create(ctx context.Context, owner ledger.UserID, d ledger.Draft) (ledger.PaymentID, error) {
	now := s.clock.Now()
	d.Period = ledger.BillingPeriod{Start: ledger.StartOfMonth(d.DueDate), End: ledger.StartOfNextMonth(d.DueDate).AddDate(0, 0, -1)}
	d.Description = "Rent " + d.DueDate.Format("January 2006")

	created := d.DueDate.AddDate(0, 0, -7)
	if created.After(now) {
		created = now
	}
	p, err := ledger.NewPayment(ledger.PaymentID(uuid.NewString()), d, owner, created)
	if err != nil {
		return "", err
	}
	p = p.Normalized(now)
	if err := s.store.CreatePayment(ctx, p); err != nil {
		return "", err
	}
	return p.ID, nil
}

// monthDue returns day of the month offset months from now.
func monthDue(now time.Time, offset, day int) time.Time {
	return time.Date(now.Year(), now.Month()+time.Month(offset), day, 0, 0, 0, 0, time.UTC)
}

/*
handlers.go - HTTP API handlers for the billing ledger

PURPOSE:
  Exposes the billing service via REST API. Handles HTTP request/response,
  JSON serialization, and delegates every decision to billing.Service.

ENDPOINTS:
  Payments:
    GET    /api/payments                 List entries (tenant_id, property_id,
                                         status, due_from, due_to)
    POST   /api/payments                 Create entry
    GET    /api/payments/{id}            Get entry
    PUT    /api/payments/{id}            Update entry
    DELETE /api/payments/{id}            Delete entry
    POST   /api/payments/{id}/reminders  Send a reminder
    GET    /api/payments/{id}/receipt    Download the receipt

  Aggregation:
    GET    /api/payments/stats           Dashboard snapshot
    GET    /api/payments/revenue         Revenue series (?period=monthly|quarterly|yearly)
    GET    /api/payments/export          Entries as an xlsx workbook

  Directory:
    GET    /api/properties               List the caller's properties
    POST   /api/properties               Register a property
    GET    /api/tenants                  List tenants (?property_id=)
    POST   /api/tenants                  Register a tenant

  Scenarios:
    GET    /api/scenarios                List demo portfolios
    POST   /api/scenarios/load           Load a demo portfolio

REQUEST FLOW:
  1. Resolve caller (auth.go middleware)
  2. Parse and convert the request (dto.go)
  3. Call the billing service
  4. Serialize response, with dispatch warnings when present

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 401: No caller identity
  - 403: Caller does not own the entry or property
  - 404: Entry, property or tenant not found
  - 409: Concurrent modification survived every retry
  - 422: Receipt for an unpaid entry, tenant without contact
  - 503: Aggregation timed out (Retry-After set)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo portfolio loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/warp/rent-ledger/billing"
	"github.com/warp/rent-ledger/ledger"
	"go.uber.org/zap"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service   *billing.Service
	Scenarios *Scenarios // nil disables the demo loader
	Log       *zap.Logger
	Clock     ledger.Clock
}

// NewHandler creates a new handler over the billing service.
func NewHandler(svc *billing.Service, log *zap.Logger, clock ledger.Clock) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	if clock == nil {
		clock = ledger.SystemClock{}
	}
	return &Handler{Service: svc, Log: log.Named("api"), Clock: clock}
}

// =============================================================================
// PAYMENT HANDLERS
// =============================================================================

// ListPayments returns the caller's entries.
// GET /api/payments
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	query, err := listQuery(r)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	payments, err := h.Service.ListEntries(r.Context(), CallerFrom(r.Context()), query)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	now := h.Clock.Now()
	dtos := make([]PaymentDTO, len(payments))
	for i, p := range payments {
		dtos[i] = toPaymentDTO(p, now)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreatePayment records a new entry.
// POST /api/payments
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	draft, err := req.toDraft()
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	res, err := h.Service.CreateEntry(r.Context(), CallerFrom(r.Context()), draft)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentResponse(res, h.Clock.Now()))
}

// GetPayment returns one entry.
// GET /api/payments/{id}
func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	p, err := h.Service.GetEntry(r.Context(), CallerFrom(r.Context()), paymentID(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentDTO(p, h.Clock.Now()))
}

// UpdatePayment applies a partial update.
// PUT /api/payments/{id}
func (h *Handler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	var req UpdatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	update, err := req.toUpdate()
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	res, err := h.Service.UpdateEntry(r.Context(), CallerFrom(r.Context()), paymentID(r), update)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentResponse(res, h.Clock.Now()))
}

// DeletePayment removes an entry.
// DELETE /api/payments/{id}
func (h *Handler) DeletePayment(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteEntry(r.Context(), CallerFrom(r.Context()), paymentID(r)); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SendReminder notifies the tenant and logs the reminder.
// POST /api/payments/{id}/reminders
func (h *Handler) SendReminder(w http.ResponseWriter, r *http.Request) {
	var req ReminderRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	res, err := h.Service.SendReminder(r.Context(), CallerFrom(r.Context()), paymentID(r), ledger.ReminderMethod(req.Method))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentResponse(res, h.Clock.Now()))
}

// GetReceipt serves the rendered receipt of a paid entry.
// GET /api/payments/{id}/receipt
func (h *Handler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Service.GenerateReceipt(r.Context(), CallerFrom(r.Context()), paymentID(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", `inline; filename="`+doc.Name+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(doc.Data)
}

// =============================================================================
// AGGREGATION HANDLERS
// =============================================================================

// GetStats returns the dashboard snapshot.
// GET /api/payments/stats[?timeout=2s]
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	timeout, ok := parseTimeout(w, r)
	if !ok {
		return
	}
	snap, err := h.Service.GetStats(r.Context(), CallerFrom(r.Context()), timeout)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStatsDTO(snap))
}

// GetRevenue returns the revenue series for a period.
// GET /api/payments/revenue?period=monthly|quarterly|yearly[&timeout=2s]
func (h *Handler) GetRevenue(w http.ResponseWriter, r *http.Request) {
	timeout, ok := parseTimeout(w, r)
	if !ok {
		return
	}
	series, err := h.Service.GetRevenueSeries(r.Context(), CallerFrom(r.Context()), r.URL.Query().Get("period"), timeout)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSeriesDTO(series))
}

// =============================================================================
// DIRECTORY HANDLERS
// =============================================================================

// ListProperties returns the caller's properties.
// GET /api/properties
func (h *Handler) ListProperties(w http.ResponseWriter, r *http.Request) {
	props, err := h.Service.ListProperties(r.Context(), CallerFrom(r.Context()))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if props == nil {
		props = []ledger.Property{}
	}
	writeJSON(w, http.StatusOK, props)
}

// CreateProperty registers a property owned by the caller.
// POST /api/properties
func (h *Handler) CreateProperty(w http.ResponseWriter, r *http.Request) {
	var req CreatePropertyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	p, err := h.Service.RegisterProperty(r.Context(), CallerFrom(r.Context()), req.Name, req.Address)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// ListTenants returns tenants, optionally of one property.
// GET /api/tenants[?property_id=]
func (h *Handler) ListTenants(w http.ResponseWriter, r *http.Request) {
	property := ledger.PropertyID(r.URL.Query().Get("property_id"))
	tenants, err := h.Service.ListTenants(r.Context(), CallerFrom(r.Context()), property)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if tenants == nil {
		tenants = []ledger.Tenant{}
	}
	writeJSON(w, http.StatusOK, tenants)
}

// CreateTenant registers a tenant.
// POST /api/tenants
func (h *Handler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	var req CreateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	t, err := h.Service.RegisterTenant(r.Context(), CallerFrom(r.Context()), ledger.Tenant{
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		PropertyID: ledger.PropertyID(req.PropertyID),
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// =============================================================================
// HELPERS
// =============================================================================

func paymentID(r *http.Request) ledger.PaymentID {
	return ledger.PaymentID(chi.URLParam(r, "id"))
}

// listQuery reads the list filters shared by ListPayments and ExportPayments.
func listQuery(r *http.Request) (billing.ListQuery, error) {
	q := r.URL.Query()
	query := billing.ListQuery{
		TenantID:   ledger.TenantID(q.Get("tenant_id")),
		PropertyID: ledger.PropertyID(q.Get("property_id")),
	}
	if s := q.Get("status"); s != "" {
		st, err := ledger.ParseStatus(s)
		if err != nil {
			return query, err
		}
		query.Status = st
	}
	for _, b := range []struct {
		field string
		out   **time.Time
	}{{"due_from", &query.DueFrom}, {"due_to", &query.DueTo}} {
		s := q.Get(b.field)
		if s == "" {
			continue
		}
		t, err := parseDate(b.field, s)
		if err != nil {
			return query, err
		}
		*b.out = &t
	}
	return query, nil
}

// parseTimeout reads ?timeout= as a Go duration or whole seconds. Zero
// means the service default.
func parseTimeout(w http.ResponseWriter, r *http.Request) (time.Duration, bool) {
	s := r.URL.Query().Get("timeout")
	if s == "" {
		return 0, true
	}
	if secs, err := strconv.Atoi(s); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second, true
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "Invalid timeout",
			Field: "timeout",
		})
		return 0, false
	}
	return d, true
}

// writeServiceError maps ledger errors onto HTTP statuses.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var verr *ledger.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "Validation failed",
			Field:   verr.Field,
			Details: verr.Error(),
		})
	case errors.Is(err, ledger.ErrValidation):
		writeError(w, http.StatusBadRequest, "Validation failed", err)
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	case errors.Is(err, ledger.ErrForbidden):
		writeError(w, http.StatusForbidden, "Forbidden", err)
	case errors.Is(err, ledger.ErrNotSettled), errors.Is(err, ledger.ErrNoContact):
		writeError(w, http.StatusUnprocessableEntity, "Unprocessable", err)
	case errors.Is(err, ledger.ErrConcurrentModification):
		writeError(w, http.StatusConflict, "Concurrent modification", err)
	case errors.Is(err, ledger.ErrTimeout):
		w.Header().Set("Retry-After", "5")
		writeError(w, http.StatusServiceUnavailable, "Query timed out", err)
	default:
		h.Log.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

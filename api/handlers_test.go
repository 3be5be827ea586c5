/*
handlers_test.go - Tests for the HTTP API

Tests for:
- Caller resolution (X-User-ID, bearer tokens)
- Payment CRUD through the router, error-to-status mapping
- Receipts, reminders and their 422 cases
- Stats, revenue and the 503 deadline path
- Directory endpoints and the xlsx export
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/rent-ledger/billing"
	"github.com/warp/rent-ledger/dispatch"
	"github.com/warp/rent-ledger/ledger"
	"github.com/warp/rent-ledger/store/sqldb"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

var testNow = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

// =============================================================================
// TEST HARNESS
// =============================================================================

type recordingMessenger struct {
	mu   sync.Mutex
	sent []dispatch.Message
}

func (m *recordingMessenger) Send(_ context.Context, msg dispatch.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMessenger) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// slowStore blocks listing until the caller's deadline passes.
type slowStore struct {
	ledger.Store
}

func (s slowStore) ListPayments(ctx context.Context, _ ledger.Filter) ([]ledger.Payment, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type testServer struct {
	router    http.Handler
	store     *sqldb.Store
	messenger *recordingMessenger
}

func setupTestServer(t *testing.T, secret []byte, wrap func(ledger.Store) ledger.Store) *testServer {
	t.Helper()
	store, err := sqldb.Open(sqldb.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	ctx := context.Background()

	require.NoError(t, store.SaveProperty(ctx, ledger.Property{ID: "prop-1", Name: "Flat 4B", OwnerID: "owner-1", CreatedAt: testNow}))
	require.NoError(t, store.SaveTenant(ctx, ledger.Tenant{ID: "tenant-1", Name: "Ada", Email: "ada@example.com", PropertyID: "prop-1", CreatedAt: testNow}))
	require.NoError(t, store.SaveTenant(ctx, ledger.Tenant{ID: "tenant-mute", Name: "Bo", PropertyID: "prop-1", CreatedAt: testNow}))

	var payments ledger.Store = store
	if wrap != nil {
		payments = wrap(store)
	}

	clock := ledger.FixedClock{At: testNow}
	m := &recordingMessenger{}
	svc := billing.New(billing.Deps{
		Store:      payments,
		Directory:  store,
		Registry:   store,
		Dispatcher: dispatch.NewDispatcher(m, dispatch.NewHTMLRenderer(), store, zap.NewNop(), time.Second),
		Clock:      clock,
		Logger:     zap.NewNop(),
	}, billing.WithStatsTimeout(2*time.Second))

	h := NewHandler(svc, zap.NewNop(), clock)
	h.Scenarios = NewScenarios(store, store, clock)
	return &testServer{
		router:    NewRouter(h, RouterOptions{JWTSecret: secret}),
		store:     store,
		messenger: m,
	}
}

func (s *testServer) do(t *testing.T, method, path, caller string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if caller != "" {
		req.Header.Set("X-User-ID", caller)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (s *testServer) createPayment(t *testing.T, caller string, body map[string]any) PaymentDTO {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/payments", caller, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[PaymentResponse](t, rec).Payment
}

func charge(due string) map[string]any {
	return map[string]any{
		"property_id": "prop-1",
		"tenant_id":   "tenant-1",
		"amount":      "1250.50",
		"due_date":    due,
	}
}

// =============================================================================
// AUTHENTICATION
// =============================================================================

func TestAuth_MissingCallerIs401(t *testing.T) {
	// GIVEN: A server trusting X-User-ID
	s := setupTestServer(t, nil, nil)

	// WHEN: A request carries no caller
	rec := s.do(t, http.MethodGet, "/api/payments", "", nil)

	// THEN: It is rejected, while the health check stays open
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/healthz", "", nil).Code)
}

func TestAuth_BearerToken(t *testing.T) {
	// GIVEN: A server with a signing secret
	secret := []byte("test-secret")
	s := setupTestServer(t, secret, nil)

	sign := func(key []byte, claims jwt.MapClaims) string {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
		require.NoError(t, err)
		return tok
	}

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"subject claim", "Bearer " + sign(secret, jwt.MapClaims{"sub": "owner-1"}), http.StatusOK},
		{"user_id claim", "Bearer " + sign(secret, jwt.MapClaims{"user_id": "owner-1"}), http.StatusOK},
		{"wrong key", "Bearer " + sign([]byte("other"), jwt.MapClaims{"sub": "owner-1"}), http.StatusUnauthorized},
		{"expired", "Bearer " + sign(secret, jwt.MapClaims{"sub": "owner-1", "exp": time.Now().Add(-time.Hour).Unix()}), http.StatusUnauthorized},
		{"no user", "Bearer " + sign(secret, jwt.MapClaims{"role": "admin"}), http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"missing", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// WHEN: The token is presented
			req := httptest.NewRequest(http.MethodGet, "/api/payments", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			// X-User-ID is ignored once a secret is configured
			req.Header.Set("X-User-ID", "owner-1")
			rec := httptest.NewRecorder()
			s.router.ServeHTTP(rec, req)

			// THEN: Only a valid token with a user is accepted
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

// =============================================================================
// PAYMENTS
// =============================================================================

func TestCreatePayment_DefaultsPeriodToDueMonth(t *testing.T) {
	// GIVEN: A registered property and tenant
	s := setupTestServer(t, nil, nil)

	// WHEN: An entry is created with a bare due date and no period
	p := s.createPayment(t, "owner-1", charge("2025-03-15"))

	// THEN: It is pending, covers March and announces the charge
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "pending", p.Status)
	assert.Equal(t, "2025-03-01", p.PeriodStart)
	assert.Equal(t, "2025-03-31", p.PeriodEnd)
	assert.True(t, decimal.RequireFromString("1250.50").Equal(p.TotalDue))
	assert.Equal(t, "owner-1", p.CreatedBy)
	assert.Empty(t, p.Reminders)
	assert.Equal(t, 1, s.messenger.count())
}

func TestCreatePayment_Errors(t *testing.T) {
	s := setupTestServer(t, nil, nil)

	tests := []struct {
		name  string
		body  map[string]any
		want  int
		field string
	}{
		{"negative amount", map[string]any{"property_id": "prop-1", "tenant_id": "tenant-1", "amount": "-1", "due_date": "2025-03-15"}, http.StatusBadRequest, "amount"},
		{"bad due date", map[string]any{"property_id": "prop-1", "tenant_id": "tenant-1", "amount": "10", "due_date": "15/03/2025"}, http.StatusBadRequest, "due_date"},
		{"unknown status", map[string]any{"property_id": "prop-1", "tenant_id": "tenant-1", "amount": "10", "due_date": "2025-03-15", "status": "lost"}, http.StatusBadRequest, "status"},
		{"unknown method", map[string]any{"property_id": "prop-1", "tenant_id": "tenant-1", "amount": "10", "due_date": "2025-03-15", "method": "barter"}, http.StatusBadRequest, "method"},
		{"unknown property", map[string]any{"property_id": "prop-x", "tenant_id": "tenant-1", "amount": "10", "due_date": "2025-03-15"}, http.StatusNotFound, ""},
		{"unknown tenant", map[string]any{"property_id": "prop-1", "tenant_id": "tenant-x", "amount": "10", "due_date": "2025-03-15"}, http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// WHEN: The invalid entry is posted
			rec := s.do(t, http.MethodPost, "/api/payments", "owner-1", tt.body)

			// THEN: The status and offending field are reported
			require.Equal(t, tt.want, rec.Code, rec.Body.String())
			if tt.field != "" {
				assert.Equal(t, tt.field, decode[ErrorResponse](t, rec).Field)
			}
		})
	}

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/payments", bytes.NewBufferString("{"))
		req.Header.Set("X-User-ID", "owner-1")
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetPayment_OwnershipAndNotFound(t *testing.T) {
	// GIVEN: An entry owned by owner-1
	s := setupTestServer(t, nil, nil)
	p := s.createPayment(t, "owner-1", charge("2025-03-15"))

	// WHEN/THEN: Owner reads it, others are forbidden, unknown IDs are 404
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/payments/"+p.ID, "owner-1", nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/api/payments/"+p.ID, "intruder", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/payments/nope", "owner-1", nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPut, "/api/payments/"+p.ID, "intruder", map[string]any{"notes": "x"}).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodDelete, "/api/payments/"+p.ID, "intruder", nil).Code)
}

func TestListPayments_NormalizesAndFilters(t *testing.T) {
	// GIVEN: One entry past due and one still open
	s := setupTestServer(t, nil, nil)
	late := s.createPayment(t, "owner-1", charge("2025-02-01"))
	s.createPayment(t, "owner-1", charge("2025-03-20"))
	s.createPayment(t, "someone-else", charge("2025-03-20"))

	// WHEN: The caller lists overdue entries
	rec := s.do(t, http.MethodGet, "/api/payments?status=overdue", "owner-1", nil)

	// THEN: Only the past-due entry comes back, with its lateness
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]PaymentDTO](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, late.ID, list[0].ID)
	assert.Equal(t, "overdue", list[0].Status)
	assert.Equal(t, 38, list[0].DaysLate)

	// AND: Unfiltered listing is owner-scoped, newest due first
	all := decode[[]PaymentDTO](t, s.do(t, http.MethodGet, "/api/payments", "owner-1", nil))
	require.Len(t, all, 2)
	assert.Equal(t, "pending", all[0].Status)

	// AND: A due window narrows the list
	window := decode[[]PaymentDTO](t, s.do(t, http.MethodGet, "/api/payments?due_from=2025-03-01&due_to=2025-04-01", "owner-1", nil))
	assert.Len(t, window, 1)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/payments?status=lost", "owner-1", nil).Code)
}

func TestUpdatePayment_SettleThenReceipt(t *testing.T) {
	// GIVEN: A pending entry
	s := setupTestServer(t, nil, nil)
	p := s.createPayment(t, "owner-1", charge("2025-03-15"))

	// WHEN: The receipt is requested before payment
	rec := s.do(t, http.MethodGet, "/api/payments/"+p.ID+"/receipt", "owner-1", nil)

	// THEN: It is refused as unprocessable
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// WHEN: The entry is marked paid
	rec = s.do(t, http.MethodPut, "/api/payments/"+p.ID, "owner-1", map[string]any{
		"status": "paid",
		"method": "bank_transfer",
	})

	// THEN: It is paid today and the receipt goes out with the settlement
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[PaymentResponse](t, rec)
	assert.Equal(t, "paid", updated.Payment.Status)
	require.NotNil(t, updated.Payment.PaidDate)
	assert.Equal(t, testNow.Format(time.RFC3339), *updated.Payment.PaidDate)
	assert.Empty(t, updated.Warnings)
	assert.Equal(t, 2, s.messenger.count())

	// AND: The receipt can be downloaded
	rec = s.do(t, http.MethodGet, "/api/payments/"+p.ID+"/receipt", "owner-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "1250.50")
}

func TestUpdatePayment_LegacyStatusAccepted(t *testing.T) {
	// GIVEN: A pending entry
	s := setupTestServer(t, nil, nil)
	p := s.createPayment(t, "owner-1", charge("2025-03-15"))

	// WHEN: A client sends the older partially_paid spelling
	rec := s.do(t, http.MethodPut, "/api/payments/"+p.ID, "owner-1", map[string]any{"status": "partially_paid"})

	// THEN: It is stored and returned as partial
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "partial", decode[PaymentResponse](t, rec).Payment.Status)
}

func TestDeletePayment(t *testing.T) {
	// GIVEN: An entry
	s := setupTestServer(t, nil, nil)
	p := s.createPayment(t, "owner-1", charge("2025-03-15"))

	// WHEN: It is deleted
	rec := s.do(t, http.MethodDelete, "/api/payments/"+p.ID, "owner-1", nil)

	// THEN: It is gone
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/payments/"+p.ID, "owner-1", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, "/api/payments/"+p.ID, "owner-1", nil).Code)
}

// =============================================================================
// REMINDERS
// =============================================================================

func TestSendReminder(t *testing.T) {
	// GIVEN: An overdue entry
	s := setupTestServer(t, nil, nil)
	p := s.createPayment(t, "owner-1", charge("2025-03-01"))
	before := s.messenger.count()

	// WHEN: A reminder is sent without a body
	req := httptest.NewRequest(http.MethodPost, "/api/payments/"+p.ID+"/reminders", nil)
	req.Header.Set("X-User-ID", "owner-1")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	// THEN: It is logged as an email by the caller and delivered
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[PaymentResponse](t, rec).Payment
	require.Len(t, got.Reminders, 1)
	assert.Equal(t, "email", got.Reminders[0].Method)
	assert.Equal(t, "owner-1", got.Reminders[0].SentBy)
	assert.Equal(t, before+1, s.messenger.count())

	// AND: An sms reminder is appended after it
	rec = s.do(t, http.MethodPost, "/api/payments/"+p.ID+"/reminders", "owner-1", ReminderRequest{Method: "sms"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[PaymentResponse](t, rec).Payment.Reminders, 2)

	assert.Equal(t, http.StatusBadRequest,
		s.do(t, http.MethodPost, "/api/payments/"+p.ID+"/reminders", "owner-1", ReminderRequest{Method: "fax"}).Code)
}

func TestSendReminder_NoContactIs422(t *testing.T) {
	// GIVEN: An entry for a tenant without an email address
	s := setupTestServer(t, nil, nil)
	body := charge("2025-03-01")
	body["tenant_id"] = "tenant-mute"
	p := s.createPayment(t, "owner-1", body)

	// WHEN: A reminder is requested
	rec := s.do(t, http.MethodPost, "/api/payments/"+p.ID+"/reminders", "owner-1", nil)

	// THEN: It is refused and nothing is logged
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	got := decode[PaymentDTO](t, s.do(t, http.MethodGet, "/api/payments/"+p.ID, "owner-1", nil))
	assert.Empty(t, got.Reminders)
}

// =============================================================================
// AGGREGATION
// =============================================================================

func TestStatsAndRevenue(t *testing.T) {
	// GIVEN: One paid entry this month, one overdue
	s := setupTestServer(t, nil, nil)
	paid := s.createPayment(t, "owner-1", charge("2025-03-05"))
	s.do(t, http.MethodPut, "/api/payments/"+paid.ID, "owner-1", map[string]any{"status": "paid"})
	s.createPayment(t, "owner-1", charge("2025-02-01"))

	// WHEN: Stats are requested
	rec := s.do(t, http.MethodGet, "/api/payments/stats", "owner-1", nil)

	// THEN: The snapshot counts both entries
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	stats := decode[StatsDTO](t, rec)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.ByStatus["paid"])
	assert.Equal(t, 1, stats.OverdueCount)
	assert.True(t, decimal.RequireFromString("1250.50").Equal(stats.CollectedThisMonth))

	// WHEN: The monthly revenue series is requested
	rec = s.do(t, http.MethodGet, "/api/payments/revenue?period=monthly", "owner-1", nil)

	// THEN: Only collected money is counted
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	series := decode[SeriesDTO](t, rec)
	assert.Equal(t, "monthly", series.Period)
	assert.Equal(t, 1, series.Count)
	assert.True(t, decimal.RequireFromString("1250.50").Equal(series.Total))

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/payments/revenue?period=weekly", "owner-1", nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/payments/stats?timeout=soon", "owner-1", nil).Code)
}

func TestStats_TimeoutIs503(t *testing.T) {
	// GIVEN: A store slower than the deadline
	s := setupTestServer(t, nil, func(st ledger.Store) ledger.Store { return slowStore{Store: st} })

	// WHEN: Stats and revenue are requested with a short timeout
	stats := s.do(t, http.MethodGet, "/api/payments/stats?timeout=20ms", "owner-1", nil)
	revenue := s.do(t, http.MethodGet, "/api/payments/revenue?timeout=20ms", "owner-1", nil)

	// THEN: Both report a retryable timeout
	for _, rec := range []*httptest.ResponseRecorder{stats, revenue} {
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	}
}

// =============================================================================
// DIRECTORY
// =============================================================================

func TestPropertiesAndTenants(t *testing.T) {
	s := setupTestServer(t, nil, nil)

	// WHEN: A property and a tenant are registered
	rec := s.do(t, http.MethodPost, "/api/properties", "owner-2", CreatePropertyRequest{Name: "Queens Court", Address: "88 Queens Road"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	prop := decode[ledger.Property](t, rec)

	rec = s.do(t, http.MethodPost, "/api/tenants", "owner-2", CreateTenantRequest{Name: "Edsger", Email: "e@example.com", PropertyID: string(prop.ID)})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// THEN: Each list shows them
	props := decode[[]ledger.Property](t, s.do(t, http.MethodGet, "/api/properties", "owner-2", nil))
	require.Len(t, props, 1)
	assert.Equal(t, "Queens Court", props[0].Name)

	tenants := decode[[]ledger.Tenant](t, s.do(t, http.MethodGet, "/api/tenants?property_id="+string(prop.ID), "owner-2", nil))
	require.Len(t, tenants, 1)
	assert.Equal(t, "Edsger", tenants[0].Name)

	// AND: Bad input is rejected
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/properties", "owner-2", CreatePropertyRequest{}).Code)
	assert.Equal(t, http.StatusNotFound,
		s.do(t, http.MethodPost, "/api/tenants", "owner-2", CreateTenantRequest{Name: "X", PropertyID: "nowhere"}).Code)
}

func TestDirectory_OtherOwnersAreHidden(t *testing.T) {
	// GIVEN: prop-1 and its tenants belong to owner-1
	s := setupTestServer(t, nil, nil)

	// WHEN: Another caller lists tenants
	tenants := decode[[]ledger.Tenant](t, s.do(t, http.MethodGet, "/api/tenants", "stranger", nil))

	// THEN: Nothing of owner-1's leaks
	assert.Empty(t, tenants)
	assert.Len(t, decode[[]ledger.Tenant](t, s.do(t, http.MethodGet, "/api/tenants", "owner-1", nil)), 2)

	// AND: The stranger can neither add tenants to prop-1 nor charge its tenants
	assert.Equal(t, http.StatusForbidden,
		s.do(t, http.MethodPost, "/api/tenants", "stranger", CreateTenantRequest{Name: "Eve", PropertyID: "prop-1"}).Code)
	assert.Equal(t, http.StatusForbidden,
		s.do(t, http.MethodPost, "/api/payments", "stranger", charge("2025-03-15")).Code)
	assert.Zero(t, s.messenger.count())
}

// =============================================================================
// EXPORT
// =============================================================================

func TestExportPayments(t *testing.T) {
	// GIVEN: Two entries
	s := setupTestServer(t, nil, nil)
	s.createPayment(t, "owner-1", charge("2025-03-15"))
	s.createPayment(t, "owner-1", charge("2025-04-15"))

	// WHEN: The workbook is exported
	rec := s.do(t, http.MethodGet, "/api/payments/export", "owner-1", nil)

	// THEN: It is an xlsx with a header row and one row per entry
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Payments")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, exportHeaders[0], rows[0][0])
	assert.Equal(t, "2025-04-15", rows[1][5])

	// AND: Amounts are exact numeric cells formatted to two decimals
	raw, err := f.GetCellValue("Payments", "G2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "1250.50", raw)
	fee, err := f.GetCellValue("Payments", "H2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "0.00", fee)
	styleID, err := f.GetCellStyle("Payments", "I3")
	require.NoError(t, err)
	style, err := f.GetStyle(styleID)
	require.NoError(t, err)
	assert.Equal(t, 2, style.NumFmt)
}

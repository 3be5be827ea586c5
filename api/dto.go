/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication, decoupling the
  ledger's domain types from the wire contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Wrappers around DTOs

DATES:
  Responses carry RFC3339 timestamps. Requests accept either RFC3339 or a
  bare calendar date (2006-01-02, read as midnight UTC).

MONEY:
  Amounts are decimal.Decimal, serialized as JSON strings ("1250.5").
  Requests accept strings or numbers.

SEE ALSO:
  - handlers.go: Uses these types
  - ledger/types.go: Domain types
*/
package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/rent-ledger/billing"
	"github.com/warp/rent-ledger/ledger"
	"github.com/warp/rent-ledger/reporting"
)

const dateLayout = "2006-01-02"

// =============================================================================
// PAYMENTS
// =============================================================================

// PaymentDTO represents a ledger entry in API responses.
type PaymentDTO struct {
	ID            string          `json:"id"`
	TenantID      string          `json:"tenant_id"`
	PropertyID    string          `json:"property_id"`
	Amount        decimal.Decimal `json:"amount"`
	LateFee       decimal.Decimal `json:"late_fee"`
	TotalDue      decimal.Decimal `json:"total_due"`
	DueDate       string          `json:"due_date"`
	PaidDate      *string         `json:"paid_date,omitempty"`
	PeriodStart   string          `json:"period_start"`
	PeriodEnd     string          `json:"period_end"`
	Status        string          `json:"status"`
	DaysLate      int             `json:"days_late"`
	Method        string          `json:"method,omitempty"`
	Description   string          `json:"description,omitempty"`
	TransactionID string          `json:"transaction_id,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	Attachments   []string        `json:"attachments"`
	Reminders     []ReminderDTO   `json:"reminders"`
	CreatedBy     string          `json:"created_by"`
	UpdatedBy     string          `json:"updated_by"`
	CreatedAt     string          `json:"created_at"`
	UpdatedAt     string          `json:"updated_at"`
}

// ReminderDTO is one entry of a payment's reminder log.
type ReminderDTO struct {
	SentAt string `json:"sent_at"`
	SentBy string `json:"sent_by"`
	Method string `json:"method"`
}

// PaymentResponse wraps a written payment with delivery warnings.
type PaymentResponse struct {
	Payment  PaymentDTO `json:"payment"`
	Warnings []string   `json:"warnings,omitempty"`
}

// CreatePaymentRequest is the body for POST /api/payments.
// When period_start and period_end are both omitted the period is the
// calendar month of the due date.
type CreatePaymentRequest struct {
	PropertyID    string           `json:"property_id"`
	TenantID      string           `json:"tenant_id"`
	Amount        decimal.Decimal  `json:"amount"`
	LateFee       *decimal.Decimal `json:"late_fee,omitempty"`
	DueDate       string           `json:"due_date"`
	PaidDate      *string          `json:"paid_date,omitempty"`
	PeriodStart   string           `json:"period_start,omitempty"`
	PeriodEnd     string           `json:"period_end,omitempty"`
	Status        string           `json:"status,omitempty"`
	Method        string           `json:"method,omitempty"`
	Description   string           `json:"description,omitempty"`
	TransactionID string           `json:"transaction_id,omitempty"`
	Notes         string           `json:"notes,omitempty"`
	Attachments   []string         `json:"attachments,omitempty"`
}

// UpdatePaymentRequest is the body for PUT /api/payments/{id}.
// Absent fields are left unchanged.
type UpdatePaymentRequest struct {
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	LateFee       *decimal.Decimal `json:"late_fee,omitempty"`
	DueDate       *string          `json:"due_date,omitempty"`
	PaidDate      *string          `json:"paid_date,omitempty"`
	PeriodStart   *string          `json:"period_start,omitempty"`
	PeriodEnd     *string          `json:"period_end,omitempty"`
	Status        *string          `json:"status,omitempty"`
	Method        *string          `json:"method,omitempty"`
	Description   *string          `json:"description,omitempty"`
	TransactionID *string          `json:"transaction_id,omitempty"`
	Notes         *string          `json:"notes,omitempty"`
	Attachments   *[]string        `json:"attachments,omitempty"`
}

// ReminderRequest is the optional body for POST /api/payments/{id}/reminders.
type ReminderRequest struct {
	Method string `json:"method,omitempty"`
}

// =============================================================================
// AGGREGATION
// =============================================================================

// StatsDTO is the dashboard snapshot.
type StatsDTO struct {
	Total              int             `json:"total"`
	ByStatus           map[string]int  `json:"by_status"`
	CollectedThisMonth decimal.Decimal `json:"collected_this_month"`
	ExpectedThisMonth  decimal.Decimal `json:"expected_this_month"`
	OverdueCount       int             `json:"overdue_count"`
	AsOf               string          `json:"as_of"`
}

// SeriesDTO is a bucketed revenue series.
type SeriesDTO struct {
	Period      string          `json:"period"`
	Granularity string          `json:"granularity"`
	From        string          `json:"from"`
	To          string          `json:"to"`
	Buckets     []BucketDTO     `json:"buckets"`
	Total       decimal.Decimal `json:"total"`
	Count       int             `json:"count"`
}

// BucketDTO is one point of a series.
type BucketDTO struct {
	Key   string          `json:"key"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

// =============================================================================
// DIRECTORY
// =============================================================================

// CreatePropertyRequest is the body for POST /api/properties.
type CreatePropertyRequest struct {
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
}

// CreateTenantRequest is the body for POST /api/tenants.
type CreateTenantRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	PropertyID string `json:"property_id,omitempty"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toPaymentDTO(p ledger.Payment, now time.Time) PaymentDTO {
	dto := PaymentDTO{
		ID:            string(p.ID),
		TenantID:      string(p.TenantID),
		PropertyID:    string(p.PropertyID),
		Amount:        p.Amount,
		LateFee:       p.LateFee,
		TotalDue:      p.TotalDue(),
		DueDate:       p.DueDate.Format(time.RFC3339),
		PeriodStart:   p.Period.Start.Format(dateLayout),
		PeriodEnd:     p.Period.End.Format(dateLayout),
		Status:        string(p.Status),
		DaysLate:      ledger.DaysLate(p, now),
		Method:        string(p.Method),
		Description:   p.Description,
		TransactionID: p.TransactionID,
		Notes:         p.Notes,
		Attachments:   make([]string, 0, len(p.Attachments)),
		Reminders:     make([]ReminderDTO, 0, len(p.Reminders)),
		CreatedBy:     string(p.CreatedBy),
		UpdatedBy:     string(p.UpdatedBy),
		CreatedAt:     p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     p.UpdatedAt.Format(time.RFC3339),
	}
	if p.PaidDate != nil {
		s := p.PaidDate.Format(time.RFC3339)
		dto.PaidDate = &s
	}
	for _, a := range p.Attachments {
		dto.Attachments = append(dto.Attachments, string(a))
	}
	for _, r := range p.Reminders {
		dto.Reminders = append(dto.Reminders, ReminderDTO{
			SentAt: r.SentAt.Format(time.RFC3339),
			SentBy: string(r.SentBy),
			Method: string(r.Method),
		})
	}
	return dto
}

func toPaymentResponse(res billing.Result, now time.Time) PaymentResponse {
	return PaymentResponse{Payment: toPaymentDTO(res.Payment, now), Warnings: res.Warnings}
}

func toStatsDTO(s reporting.Snapshot) StatsDTO {
	dto := StatsDTO{
		Total:              s.Total,
		ByStatus:           make(map[string]int, len(s.ByStatus)),
		CollectedThisMonth: s.CollectedThisMonth,
		ExpectedThisMonth:  s.ExpectedThisMonth,
		OverdueCount:       s.OverdueCount,
		AsOf:               s.AsOf.Format(time.RFC3339),
	}
	for st, n := range s.ByStatus {
		dto.ByStatus[string(st)] = n
	}
	return dto
}

func toSeriesDTO(s reporting.Series) SeriesDTO {
	dto := SeriesDTO{
		Period:      s.Period.String(),
		Granularity: s.Window.Granularity.String(),
		From:        s.Window.Start.Format(dateLayout),
		To:          s.Window.LastDay().Format(dateLayout),
		Buckets:     make([]BucketDTO, 0, len(s.Buckets)),
		Total:       s.Total,
		Count:       s.Count,
	}
	for _, b := range s.Buckets {
		dto.Buckets = append(dto.Buckets, BucketDTO{Key: b.Key, Total: b.Total, Count: b.Count})
	}
	return dto
}

func (req CreatePaymentRequest) toDraft() (ledger.Draft, error) {
	d := ledger.Draft{
		PropertyID:    ledger.PropertyID(strings.TrimSpace(req.PropertyID)),
		TenantID:      ledger.TenantID(strings.TrimSpace(req.TenantID)),
		Amount:        req.Amount,
		LateFee:       decimal.Zero,
		Method:        ledger.Method(req.Method),
		Description:   req.Description,
		TransactionID: req.TransactionID,
		Notes:         req.Notes,
		Attachments:   toDocumentIDs(req.Attachments),
	}
	if req.LateFee != nil {
		d.LateFee = *req.LateFee
	}

	var err error
	if d.DueDate, err = parseDate("due_date", req.DueDate); err != nil {
		return d, err
	}
	if req.PaidDate != nil {
		paid, err := parseDate("paid_date", *req.PaidDate)
		if err != nil {
			return d, err
		}
		d.PaidDate = &paid
	}

	if req.PeriodStart == "" && req.PeriodEnd == "" {
		d.Period = ledger.BillingPeriod{
			Start: ledger.StartOfMonth(d.DueDate),
			End:   ledger.StartOfNextMonth(d.DueDate).AddDate(0, 0, -1),
		}
	} else {
		if d.Period.Start, err = parseDate("period_start", req.PeriodStart); err != nil {
			return d, err
		}
		if d.Period.End, err = parseDate("period_end", req.PeriodEnd); err != nil {
			return d, err
		}
	}

	if req.Status != "" {
		if d.Status, err = ledger.ParseStatus(req.Status); err != nil {
			return d, err
		}
	}
	return d, nil
}

func (req UpdatePaymentRequest) toUpdate() (ledger.Update, error) {
	u := ledger.Update{
		Amount:        req.Amount,
		LateFee:       req.LateFee,
		Description:   req.Description,
		TransactionID: req.TransactionID,
		Notes:         req.Notes,
	}

	dates := []struct {
		field string
		in    *string
		out   **time.Time
	}{
		{"due_date", req.DueDate, &u.DueDate},
		{"paid_date", req.PaidDate, &u.PaidDate},
		{"period_start", req.PeriodStart, &u.PeriodStart},
		{"period_end", req.PeriodEnd, &u.PeriodEnd},
	}
	for _, d := range dates {
		if d.in == nil {
			continue
		}
		t, err := parseDate(d.field, *d.in)
		if err != nil {
			return u, err
		}
		*d.out = &t
	}

	if req.Status != nil {
		st, err := ledger.ParseStatus(*req.Status)
		if err != nil {
			return u, err
		}
		u.Status = &st
	}
	if req.Method != nil {
		m := ledger.Method(*req.Method)
		u.Method = &m
	}
	if req.Attachments != nil {
		ids := toDocumentIDs(*req.Attachments)
		u.Attachments = &ids
	}
	return u, nil
}

func toDocumentIDs(in []string) []ledger.DocumentID {
	out := make([]ledger.DocumentID, 0, len(in))
	for _, s := range in {
		out = append(out, ledger.DocumentID(s))
	}
	return out
}

// parseDate accepts RFC3339 or a calendar date.
func parseDate(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, &ledger.ValidationError{Field: field, Reason: "required"}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, &ledger.ValidationError{Field: field, Reason: fmt.Sprintf("invalid date %q", s)}
	}
	return t, nil
}

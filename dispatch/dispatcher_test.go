package dispatch_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/divan/num2words"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/rent-ledger/dispatch"
	"github.com/warp/rent-ledger/ledger"
	"go.uber.org/zap"
)

// =============================================================================
// TEST DOUBLES
// =============================================================================

type recordingMessenger struct {
	mu   sync.Mutex
	sent []dispatch.Message
	err  error
}

func (m *recordingMessenger) Send(_ context.Context, msg dispatch.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type directory struct {
	contacts map[ledger.TenantID]string
}

func (d directory) PropertyOwner(context.Context, ledger.PropertyID) (ledger.UserID, bool, error) {
	return "owner-1", true, nil
}
func (d directory) TenantProperty(context.Context, ledger.TenantID) (ledger.PropertyID, bool, error) {
	return "prop-1", true, nil
}
func (d directory) TenantContact(_ context.Context, id ledger.TenantID) (string, error) {
	return d.contacts[id], nil
}
func (d directory) PropertyName(context.Context, ledger.PropertyID) (string, error) {
	return "12 Harbour Street", nil
}
func (d directory) TenantName(context.Context, ledger.TenantID) (string, error) {
	return "Ada Tenant", nil
}

func newDispatcher(m dispatch.Messenger) *dispatch.Dispatcher {
	dir := directory{contacts: map[ledger.TenantID]string{"tenant-1": "ada@example.com"}}
	return dispatch.NewDispatcher(m, dispatch.NewHTMLRenderer(), dir, zap.NewNop(), time.Second)
}

var due = time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)

func payment(status ledger.Status) ledger.Payment {
	p := ledger.Payment{
		ID:         "pay-1",
		TenantID:   "tenant-1",
		PropertyID: "prop-1",
		Amount:     decimal.RequireFromString("1250.50"),
		DueDate:    due,
		Period:     ledger.BillingPeriod{Start: due, End: due.AddDate(0, 1, -1)},
		Status:     status,
		Method:     ledger.MethodBankTransfer,
	}
	if status == ledger.StatusPaid {
		paid := due.AddDate(0, 0, -1)
		p.PaidDate = &paid
	}
	return p
}

// =============================================================================
// TESTS
// =============================================================================

func TestCreated_SendsNoticeForPending(t *testing.T) {
	m := &recordingMessenger{}
	d := newDispatcher(m)

	require.NoError(t, d.Created(context.Background(), payment(ledger.StatusPending)))

	require.Len(t, m.sent, 1)
	assert.Equal(t, "ada@example.com", m.sent[0].To)
	assert.Contains(t, m.sent[0].Subject, "12 Harbour Street")
	assert.Contains(t, m.sent[0].Body, "1250.50")
	assert.Contains(t, m.sent[0].Body, "2025-03-10")
}

func TestNewDispatcher_NilLogger(t *testing.T) {
	// GIVEN: A dispatcher built without a logger
	m := &recordingMessenger{}
	dir := directory{contacts: map[ledger.TenantID]string{"tenant-1": "ada@example.com"}}
	var d *dispatch.Dispatcher
	require.NotPanics(t, func() {
		d = dispatch.NewDispatcher(m, dispatch.NewHTMLRenderer(), dir, nil, 0)
	})

	// WHEN: A notice is sent
	err := d.Created(context.Background(), payment(ledger.StatusPending))

	// THEN: It is delivered
	require.NoError(t, err)
	assert.Len(t, m.sent, 1)
}

func TestCreated_SkipsNonPendingAndMissingContact(t *testing.T) {
	m := &recordingMessenger{}
	d := newDispatcher(m)

	require.NoError(t, d.Created(context.Background(), payment(ledger.StatusOverdue)))

	noContact := payment(ledger.StatusPending)
	noContact.TenantID = "tenant-without-email"
	require.NoError(t, d.Created(context.Background(), noContact))

	assert.Empty(t, m.sent)
}

func TestSettled_AttachesReceipt(t *testing.T) {
	m := &recordingMessenger{}
	d := newDispatcher(m)

	require.NoError(t, d.Settled(context.Background(), payment(ledger.StatusPaid)))

	require.Len(t, m.sent, 1)
	require.Len(t, m.sent[0].Attachments, 1)
	att := m.sent[0].Attachments[0]
	assert.Equal(t, "receipt-pay-1.html", att.Name)
	body := string(att.Data)
	assert.Contains(t, body, "Ada Tenant")
	assert.Contains(t, body, "12 Harbour Street")
	assert.Contains(t, body, "2025-03-09")
	assert.Contains(t, body, "bank_transfer")
}

func TestSettled_MessengerFailureIsReturned(t *testing.T) {
	m := &recordingMessenger{err: errors.New("broker unavailable")}
	d := newDispatcher(m)

	err := d.Settled(context.Background(), payment(ledger.StatusPaid))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker unavailable")
}

func TestSettled_NoContactIsReported(t *testing.T) {
	d := newDispatcher(&recordingMessenger{})
	p := payment(ledger.StatusPaid)
	p.TenantID = "tenant-without-email"

	assert.ErrorIs(t, d.Settled(context.Background(), p), ledger.ErrNoContact)
}

func TestReceipt_RequiresPaid(t *testing.T) {
	d := newDispatcher(&recordingMessenger{})

	_, err := d.Receipt(context.Background(), payment(ledger.StatusPending))

	assert.ErrorIs(t, err, ledger.ErrNotSettled)
}

func TestReceipt_IncludesLateFeeAndTotal(t *testing.T) {
	d := newDispatcher(&recordingMessenger{})
	p := payment(ledger.StatusPaid)
	p.LateFee = decimal.RequireFromString("25")

	art, err := d.Receipt(context.Background(), p)

	require.NoError(t, err)
	body := string(art.Data)
	assert.Contains(t, body, "25.00")
	assert.Contains(t, body, "1275.50")
	assert.True(t, strings.HasPrefix(art.ContentType, "text/html"))
}

func TestRemind_QuotesDaysLate(t *testing.T) {
	m := &recordingMessenger{}
	d := newDispatcher(m)

	err := d.Remind(context.Background(), payment(ledger.StatusOverdue), "ada@example.com", due.AddDate(0, 0, 4))

	require.NoError(t, err)
	require.Len(t, m.sent, 1)
	assert.Contains(t, m.sent[0].Subject, "4 day(s) overdue")
	assert.Contains(t, m.sent[0].Body, "4 day(s) late")
}

func TestAmountInWords(t *testing.T) {
	got := dispatch.AmountInWords(decimal.RequireFromString("1250.5"))

	assert.Equal(t, num2words.Convert(1250)+" and 50/100", got)
	assert.Equal(t, num2words.Convert(0)+" and 07/100", dispatch.AmountInWords(decimal.RequireFromString("0.07")))
}

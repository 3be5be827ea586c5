package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/rent-ledger/ledger"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// Dispatcher composes and sends ledger notifications.
type Dispatcher struct {
	messenger Messenger
	renderer  Renderer
	directory ledger.Directory
	log       *zap.Logger
	timeout   time.Duration
}

// NewDispatcher wires a dispatcher. A zero timeout means the caller's context
// alone bounds delivery. A nil logger discards logs.
func NewDispatcher(m Messenger, r Renderer, dir ledger.Directory, log *zap.Logger, timeout time.Duration) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		messenger: m,
		renderer:  r,
		directory: dir,
		log:       log.Named("dispatch"),
		timeout:   timeout,
	}
}

// Created sends the "new charge" notice for a freshly created pending payment.
// Payments in any other status, or tenants without an address, are skipped.
func (d *Dispatcher) Created(ctx context.Context, p ledger.Payment) error {
	if p.Status != ledger.StatusPending {
		return nil
	}
	ctx, cancel := d.bound(ctx)
	defer cancel()

	to, err := d.directory.TenantContact(ctx, p.TenantID)
	if err != nil {
		return d.fail("new_charge", p.ID, fmt.Errorf("failed to look up tenant contact: %w", err))
	}
	if to == "" {
		d.log.Debug("no tenant contact, skipping new charge notice", zap.String("payment_id", string(p.ID)))
		return nil
	}

	property, tenant := d.names(ctx, p)
	art, err := d.renderer.Render(TemplateNewCharge, NewChargeData{
		PaymentID:    string(p.ID),
		PropertyName: property,
		TenantName:   tenant,
		Amount:       money(p.Amount),
		DueDate:      p.DueDate.Format(dateLayout),
		Description:  p.Description,
	})
	if err != nil {
		return d.fail("new_charge", p.ID, err)
	}

	err = d.messenger.Send(ctx, Message{
		To:      to,
		Subject: fmt.Sprintf("New charge for %s", property),
		Body:    string(art.Data),
	})
	if err != nil {
		return d.fail("new_charge", p.ID, err)
	}
	return nil
}

// Settled renders the receipt for a payment that just moved into paid and
// delivers it to the tenant.
func (d *Dispatcher) Settled(ctx context.Context, p ledger.Payment) error {
	ctx, cancel := d.bound(ctx)
	defer cancel()

	art, err := d.Receipt(ctx, p)
	if err != nil {
		return d.fail("receipt", p.ID, err)
	}

	to, err := d.directory.TenantContact(ctx, p.TenantID)
	if err != nil {
		return d.fail("receipt", p.ID, fmt.Errorf("failed to look up tenant contact: %w", err))
	}
	if to == "" {
		return d.fail("receipt", p.ID, fmt.Errorf("receipt not delivered: %w", ledger.ErrNoContact))
	}

	err = d.messenger.Send(ctx, Message{
		To:      to,
		Subject: fmt.Sprintf("Receipt for payment %s", p.ID),
		Body:    "Thank you for your payment. Your receipt is attached.",
		Attachments: []Attachment{{
			Name:        art.Name,
			ContentType: art.ContentType,
			Data:        art.Data,
		}},
	})
	if err != nil {
		return d.fail("receipt", p.ID, err)
	}
	return nil
}

// Receipt renders the receipt artifact. Only settled payments have one.
func (d *Dispatcher) Receipt(ctx context.Context, p ledger.Payment) (Artifact, error) {
	if p.Status != ledger.StatusPaid || p.PaidDate == nil {
		return Artifact{}, fmt.Errorf("payment %s: %w", p.ID, ledger.ErrNotSettled)
	}

	property, tenant := d.names(ctx, p)
	data := ReceiptData{
		PaymentID:     string(p.ID),
		PropertyName:  property,
		TenantName:    tenant,
		Amount:        money(p.Amount),
		Total:         money(p.TotalDue()),
		AmountInWords: AmountInWords(p.TotalDue()),
		SettledOn:     p.PaidDate.Format(dateLayout),
		Method:        string(p.Method),
		TransactionID: p.TransactionID,
		PeriodStart:   p.Period.Start.Format(dateLayout),
		PeriodEnd:     p.Period.End.Format(dateLayout),
	}
	if !p.LateFee.IsZero() {
		data.LateFee = money(p.LateFee)
	}
	return d.renderer.Render(TemplateReceipt, data)
}

// Remind sends a reminder to the given address quoting days late at now.
func (d *Dispatcher) Remind(ctx context.Context, p ledger.Payment, to string, now time.Time) error {
	ctx, cancel := d.bound(ctx)
	defer cancel()

	property, tenant := d.names(ctx, p)
	daysLate := ledger.DaysLate(p, now)
	art, err := d.renderer.Render(TemplateReminder, ReminderData{
		PaymentID:    string(p.ID),
		PropertyName: property,
		TenantName:   tenant,
		Amount:       money(p.TotalDue()),
		DueDate:      p.DueDate.Format(dateLayout),
		DaysLate:     daysLate,
	})
	if err != nil {
		return d.fail("reminder", p.ID, err)
	}

	subject := fmt.Sprintf("Payment reminder for %s", property)
	if daysLate > 0 {
		subject = fmt.Sprintf("Payment %d day(s) overdue for %s", daysLate, property)
	}
	if err := d.messenger.Send(ctx, Message{To: to, Subject: subject, Body: string(art.Data)}); err != nil {
		return d.fail("reminder", p.ID, err)
	}
	return nil
}

// names resolves display names, falling back to the raw IDs.
func (d *Dispatcher) names(ctx context.Context, p ledger.Payment) (property, tenant string) {
	property, tenant = string(p.PropertyID), string(p.TenantID)
	if n, err := d.directory.PropertyName(ctx, p.PropertyID); err == nil && n != "" {
		property = n
	}
	if n, err := d.directory.TenantName(ctx, p.TenantID); err == nil && n != "" {
		tenant = n
	}
	return property, tenant
}

func (d *Dispatcher) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d.timeout)
}

func (d *Dispatcher) fail(kind string, id ledger.PaymentID, err error) error {
	d.log.Warn("dispatch failed",
		zap.String("kind", kind),
		zap.String("payment_id", string(id)),
		zap.Error(err),
	)
	return fmt.Errorf("%s dispatch failed: %w", kind, err)
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

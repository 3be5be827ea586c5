package dispatch

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/divan/num2words"
	"github.com/shopspring/decimal"
)

// ReceiptData feeds the receipt template.
type ReceiptData struct {
	PaymentID     string
	PropertyName  string
	TenantName    string
	Amount        string
	LateFee       string
	Total         string
	AmountInWords string
	SettledOn     string
	Method        string
	TransactionID string
	PeriodStart   string
	PeriodEnd     string
}

// ReminderData feeds the reminder template.
type ReminderData struct {
	PaymentID    string
	PropertyName string
	TenantName   string
	Amount       string
	DueDate      string
	DaysLate     int
}

// NewChargeData feeds the new-charge template.
type NewChargeData struct {
	PaymentID    string
	PropertyName string
	TenantName   string
	Amount       string
	DueDate      string
	Description  string
}

var templates = template.Must(template.New(TemplateReceipt).Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Receipt {{.PaymentID}}</title></head>
<body style="font-family: system-ui; max-width: 640px; margin: 40px auto;">
<h1>Payment receipt</h1>
<table>
<tr><th align="left">Receipt</th><td>{{.PaymentID}}</td></tr>
<tr><th align="left">Property</th><td>{{.PropertyName}}</td></tr>
<tr><th align="left">Tenant</th><td>{{.TenantName}}</td></tr>
<tr><th align="left">Period</th><td>{{.PeriodStart}} to {{.PeriodEnd}}</td></tr>
<tr><th align="left">Amount</th><td>{{.Amount}}</td></tr>
{{- if .LateFee}}
<tr><th align="left">Late fee</th><td>{{.LateFee}}</td></tr>
{{- end}}
<tr><th align="left">Total</th><td>{{.Total}} ({{.AmountInWords}})</td></tr>
<tr><th align="left">Settled on</th><td>{{.SettledOn}}</td></tr>
<tr><th align="left">Method</th><td>{{.Method}}</td></tr>
{{- if .TransactionID}}
<tr><th align="left">Reference</th><td>{{.TransactionID}}</td></tr>
{{- end}}
</table>
</body></html>
`))

func init() {
	template.Must(templates.New(TemplateReminder).Parse(`<p>Dear {{.TenantName}},</p>
<p>This is a reminder that the payment of {{.Amount}} for {{.PropertyName}} was due on {{.DueDate}}
{{- if gt .DaysLate 0}} and is now {{.DaysLate}} day(s) late{{end}}.</p>
<p>Reference: {{.PaymentID}}</p>
`))
	template.Must(templates.New(TemplateNewCharge).Parse(`<p>Dear {{.TenantName}},</p>
<p>A new charge of {{.Amount}} for {{.PropertyName}} has been recorded{{if .Description}} ({{.Description}}){{end}}.
It is due on {{.DueDate}}.</p>
<p>Reference: {{.PaymentID}}</p>
`))
}

// HTMLRenderer renders the built-in HTML templates.
type HTMLRenderer struct{}

// NewHTMLRenderer creates a renderer over the built-in templates.
func NewHTMLRenderer() *HTMLRenderer {
	return &HTMLRenderer{}
}

// Render executes the named template with data.
func (r *HTMLRenderer) Render(name string, data any) (Artifact, error) {
	t := templates.Lookup(name)
	if t == nil {
		return Artifact{}, fmt.Errorf("unknown template %q", name)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return Artifact{}, fmt.Errorf("failed to render %s: %w", name, err)
	}

	filename := name + ".html"
	if rd, ok := data.(ReceiptData); ok {
		filename = fmt.Sprintf("receipt-%s.html", rd.PaymentID)
	}
	return Artifact{
		Name:        filename,
		ContentType: "text/html; charset=utf-8",
		Data:        buf.Bytes(),
	}, nil
}

// AmountInWords spells out the whole units and appends the cents as a fraction,
// e.g. 1250.5 -> "one thousand two hundred fifty and 50/100".
func AmountInWords(amount decimal.Decimal) string {
	amount = amount.Round(2)
	whole := amount.Truncate(0)
	cents := amount.Sub(whole).Mul(decimal.NewFromInt(100)).Abs().IntPart()
	return fmt.Sprintf("%s and %02d/100", num2words.Convert(int(whole.IntPart())), cents)
}

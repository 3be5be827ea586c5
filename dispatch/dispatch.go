/*
Package dispatch sends the best-effort side effects of ledger writes.

PURPOSE:
  Notifications and receipts follow a committed write; they never gate it.
  Every method returns an error for the caller to surface as a warning,
  and none of them touches the store.

EVENTS:
  Created  - a new charge is pending and the tenant has an address:
             send a "new charge" notice
  Settled  - a payment moved into paid: render a receipt and mail it
  Reminder - the owner asked to chase a payment: send a reminder that
             quotes the current days-late figure

COLLABORATORS:
  Messenger: delivers a message (log sink, Kafka topic, Redis stream)
  Renderer:  turns a named template and data into an artifact
  Directory: resolves tenant contact and display names

SEE ALSO:
  - render.go: HTML templates
  - billing/service.go: Calls the dispatcher after each write
  - messaging/: Messenger implementations
*/
package dispatch

import (
	"context"
)

// Attachment is a file delivered with a message.
type Attachment struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

// Message is one outbound notification.
type Message struct {
	To          string       `json:"to"`
	Subject     string       `json:"subject"`
	Body        string       `json:"body"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Messenger delivers messages. From the ledger's point of view delivery is
// fire-and-forget: an error only becomes a warning.
type Messenger interface {
	Send(ctx context.Context, msg Message) error
}

// Artifact is a rendered document.
type Artifact struct {
	Name        string
	ContentType string
	Data        []byte
}

// Renderer renders a named template.
type Renderer interface {
	Render(template string, data any) (Artifact, error)
}

// Template names understood by the HTML renderer.
const (
	TemplateReceipt   = "receipt"
	TemplateReminder  = "reminder"
	TemplateNewCharge = "new_charge"
)

package dispatch

import (
	"context"

	"go.uber.org/zap"
)

// LogMessenger writes messages to the log instead of delivering them.
// Used in development and when no broker is configured.
type LogMessenger struct {
	log *zap.Logger
}

func NewLogMessenger(log *zap.Logger) *LogMessenger {
	return &LogMessenger{log: log.Named("messenger")}
}

func (m *LogMessenger) Send(_ context.Context, msg Message) error {
	names := make([]string, len(msg.Attachments))
	for i, a := range msg.Attachments {
		names[i] = a.Name
	}
	m.log.Info("message sent",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("body_bytes", len(msg.Body)),
		zap.Strings("attachments", names),
	)
	return nil
}

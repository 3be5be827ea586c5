// Package kafka delivers ledger notifications by publishing them to a Kafka
// topic. A mail worker outside this service consumes the topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"github.com/warp/rent-ledger/dispatch"
)

// Publisher implements dispatch.Messenger on top of a kafka.Writer.
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher creates a publisher writing to topic on the given brokers.
func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
		},
	}
}

// Send publishes msg keyed by recipient so one tenant's messages stay ordered.
func (p *Publisher) Send(ctx context.Context, msg dispatch.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.To),
		Value: data,
		Headers: []kafka.Header{
			{Key: "subject", Value: []byte(msg.Subject)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// Close flushes pending writes.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

var _ dispatch.Messenger = (*Publisher)(nil)

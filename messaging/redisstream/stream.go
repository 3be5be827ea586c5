// Package redisstream delivers ledger notifications by appending them to a
// Redis stream.
package redisstream

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/warp/rent-ledger/dispatch"
)

// Stream implements dispatch.Messenger with XADD.
type Stream struct {
	client *redis.Client
	stream string
	maxLen int64
}

// New connects to addr and verifies the connection with PING.
func New(ctx context.Context, addr, stream string) (*Stream, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return &Stream{client: client, stream: stream, maxLen: 100000}, nil
}

// Send appends msg to the stream, trimming it to roughly maxLen entries.
func (s *Stream) Send(ctx context.Context, msg dispatch.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	err = s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]any{
			"to":      msg.To,
			"subject": msg.Subject,
			"payload": data,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to append to stream %s: %w", s.stream, err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Stream) Close() error {
	return s.client.Close()
}

var _ dispatch.Messenger = (*Stream)(nil)

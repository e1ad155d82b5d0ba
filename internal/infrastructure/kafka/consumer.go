package kafka

import (
	"context"
	"encoding/json"
	"log"

	"github.com/segmentio/kafka-go"

	"github.com/example/storefront-core/internal/domain/order"
)

// EnvelopeHandler processes one decoded order lifecycle event.
type EnvelopeHandler func(ctx context.Context, env order.Envelope) error

// Consumer reads order lifecycle events as part of a consumer group.
type Consumer struct {
	reader *kafka.Reader
}

func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{reader: reader}
}

// Consume reads messages until ctx is cancelled, decoding each into an
// Envelope before dispatch. Malformed payloads and handler failures are
// logged and skipped so one bad message cannot stall the group.
func (c *Consumer) Consume(ctx context.Context, handler EnvelopeHandler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Printf("[Kafka] Error reading message: %v", err)
				continue
			}

			var env order.Envelope
			if err := json.Unmarshal(msg.Value, &env); err != nil {
				log.Printf("[Kafka] Skipping malformed event (key=%s): %v", msg.Key, err)
				continue
			}

			if err := handler(ctx, env); err != nil {
				log.Printf("[Kafka] Error handling %s event (key=%s): %v", env.Type, msg.Key, err)
			}
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

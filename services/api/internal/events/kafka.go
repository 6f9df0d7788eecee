// Package events publishes committed order changes to Kafka.
package events

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"

	"github.com/JunaidIslam2105/escrow-p2p-git/services/api/internal/domain"
)

const defaultWriteTimeout = 5 * time.Second

// kafkaMessageWriter abstracts kafka.Writer for tests.
type kafkaMessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes one message per order event, keyed by order id so a
// single order's events land on one partition in commit order.
type KafkaPublisher struct {
	writer  kafkaMessageWriter
	timeout time.Duration
}

// NewKafkaPublisher creates a publisher for topic. brokers is a
// comma-separated list of host:port.
func NewKafkaPublisher(brokers, topic string) (*KafkaPublisher, error) {
	var addrs []string
	for _, a := range strings.Split(brokers, ",") {
		if a = strings.TrimSpace(a); a != "" {
			addrs = append(addrs, a)
		}
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("kafka publisher: no brokers")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka publisher: topic is required")
	}
	return newKafkaPublisher(&kafka.Writer{
		Addr:                   kafka.TCP(addrs...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}), nil
}

func newKafkaPublisher(w kafkaMessageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: w, timeout: defaultWriteTimeout}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event domain.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(event.OrderID),
		Value: value,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s for order %s: %w", event.Type, event.OrderID, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Nop discards events. It is used when no brokers are configured.
type Nop struct{}

func (Nop) Publish(context.Context, domain.Event) error { return nil }

func (Nop) Close() error { return nil }

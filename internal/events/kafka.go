package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kgo "github.com/segmentio/kafka-go"
)

// flushInterval bounds how long a write waits for a batch to fill; events
// are published one at a time on the request path
const flushInterval = 5 * time.Millisecond

// KafkaPublisher writes events as JSON messages keyed by Event.Key
type KafkaPublisher struct {
	writer  *kgo.Writer
	timeout time.Duration
}

func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka: no brokers configured")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka: topic is required")
	}
	w := &kgo.Writer{
		Addr:         kgo.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kgo.Hash{},
		RequiredAcks: kgo.RequireOne,
		BatchSize:    1,
		BatchTimeout: flushInterval,
	}
	return &KafkaPublisher{writer: w, timeout: 3 * time.Second}, nil
}

func (p *KafkaPublisher) Close() error { return p.writer.Close() }

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}

	// small timeout so a request doesn't hang when Kafka is down
	cctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	return p.writer.WriteMessages(cctx, kgo.Message{
		Key:   []byte(e.Key),
		Value: b,
		Time:  e.OccurredAt,
		Headers: []kgo.Header{
			{Key: "type", Value: []byte(e.Type)},
		},
	})
}
